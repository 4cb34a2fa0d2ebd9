// Package decl turns structural declaration records into declaration header text.
package decl

import (
	"fmt"
	"strings"
)

// Kind is the closed set of declaration kinds reported by a structural parser.
type Kind uint8

// Kind values, named after their SourceKit "source.lang.swift.decl.*" suffixes.
const (
	KindUnknown Kind = iota
	KindClass
	KindStruct
	KindEnum
	KindEnumCase
	KindEnumElement
	KindProtocol
	KindExtension
	KindExtensionClass
	KindExtensionStruct
	KindExtensionEnum
	KindExtensionProtocol
	KindTypeAlias
	KindAssociatedType
	KindGenericTypeParam
	KindFunctionFree
	KindFunctionMethodInstance
	KindFunctionMethodStatic
	KindFunctionMethodClass
	KindFunctionConstructor
	KindFunctionDestructor
	KindFunctionSubscript
	KindFunctionOperator
	KindFunctionAccessorGetter
	KindFunctionAccessorSetter
	KindVarGlobal
	KindVarInstance
	KindVarStatic
	KindVarClass
	KindVarLocal
	KindVarParameter
	KindPrecedenceGroup
)

const kindPrefix = "source.lang.swift.decl."

var kindNames = [...]string{
	KindUnknown:                "",
	KindClass:                  "class",
	KindStruct:                 "struct",
	KindEnum:                   "enum",
	KindEnumCase:               "enumcase",
	KindEnumElement:            "enumelement",
	KindProtocol:               "protocol",
	KindExtension:              "extension",
	KindExtensionClass:         "extension.class",
	KindExtensionStruct:        "extension.struct",
	KindExtensionEnum:          "extension.enum",
	KindExtensionProtocol:      "extension.protocol",
	KindTypeAlias:              "typealias",
	KindAssociatedType:         "associatedtype",
	KindGenericTypeParam:       "generic_type_param",
	KindFunctionFree:           "function.free",
	KindFunctionMethodInstance: "function.method.instance",
	KindFunctionMethodStatic:   "function.method.static",
	KindFunctionMethodClass:    "function.method.class",
	KindFunctionConstructor:    "function.constructor",
	KindFunctionDestructor:     "function.destructor",
	KindFunctionSubscript:      "function.subscript",
	KindFunctionOperator:       "function.operator",
	KindFunctionAccessorGetter: "function.accessor.getter",
	KindFunctionAccessorSetter: "function.accessor.setter",
	KindVarGlobal:              "var.global",
	KindVarInstance:            "var.instance",
	KindVarStatic:              "var.static",
	KindVarClass:               "var.class",
	KindVarLocal:               "var.local",
	KindVarParameter:           "var.parameter",
	KindPrecedenceGroup:        "precedencegroup",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if name != "" {
			m[name] = Kind(k)
		}
	}
	return m
}()

// ParseKind accepts a full "source.lang.swift.decl.*" identifier or its suffix.
func ParseKind(s string) (Kind, bool) {
	k, ok := kindsByName[strings.TrimPrefix(s, kindPrefix)]
	return k, ok
}

// ShortName returns the kind without the SourceKit prefix.
func (k Kind) ShortName() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

func (k Kind) String() string {
	name := k.ShortName()
	if name == "" {
		return fmt.Sprintf("Kind(%d)", k)
	}
	return kindPrefix + name
}

// Category groups kinds by the construct they declare.
type Category uint8

// Category values.
const (
	CategoryOther Category = iota
	CategoryType
	CategoryExtension
	CategoryFunction
	CategoryVariable
)

func (c Category) String() string {
	switch c {
	case CategoryType:
		return "type"
	case CategoryExtension:
		return "extension"
	case CategoryFunction:
		return "function"
	case CategoryVariable:
		return "variable"
	default:
		return "other"
	}
}

// Category returns the construct group of k.
func (k Kind) Category() Category {
	switch k {
	case KindClass, KindStruct, KindEnum, KindProtocol, KindTypeAlias, KindAssociatedType:
		return CategoryType
	case KindExtension, KindExtensionClass, KindExtensionStruct, KindExtensionEnum, KindExtensionProtocol:
		return CategoryExtension
	case KindFunctionFree, KindFunctionMethodInstance, KindFunctionMethodStatic, KindFunctionMethodClass,
		KindFunctionConstructor, KindFunctionDestructor, KindFunctionSubscript, KindFunctionOperator,
		KindFunctionAccessorGetter, KindFunctionAccessorSetter:
		return CategoryFunction
	case KindVarGlobal, KindVarInstance, KindVarStatic, KindVarClass, KindVarLocal, KindVarParameter:
		return CategoryVariable
	default:
		return CategoryOther
	}
}

// ExtensionEligible reports whether a record of this kind with a metatype type
// name is rendered as an extension header. Protocol extensions keep their header.
func (k Kind) ExtensionEligible() bool {
	switch k {
	case KindExtension, KindExtensionClass, KindExtensionStruct, KindExtensionEnum:
		return true
	default:
		return false
	}
}
