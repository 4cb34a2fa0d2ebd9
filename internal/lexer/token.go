// Package lexer provides a lossless token/trivia lexer for Swift source.
package lexer

import (
	"fmt"

	"github.com/kpumuk/swift-weaver/internal/text"
)

// TokenKind identifies the syntactic category of a token.
type TokenKind uint8

// TokenKind values used by the Swift lexer.
const (
	TokenError TokenKind = iota
	TokenEOF
	TokenIdentifier
	TokenTypeIdentifier
	TokenKeyword
	TokenPoundKeyword
	TokenAttribute
	TokenIntLiteral
	TokenFloatLiteral
	TokenStringLiteral

	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenColon
	TokenSemi
	TokenDot
	TokenArrow
	TokenOperator
)

func (k TokenKind) String() string {
	switch k {
	case TokenError:
		return "Error"
	case TokenEOF:
		return "EOF"
	case TokenIdentifier:
		return "Identifier"
	case TokenTypeIdentifier:
		return "TypeIdentifier"
	case TokenKeyword:
		return "Keyword"
	case TokenPoundKeyword:
		return "PoundKeyword"
	case TokenAttribute:
		return "Attribute"
	case TokenIntLiteral:
		return "IntLiteral"
	case TokenFloatLiteral:
		return "FloatLiteral"
	case TokenStringLiteral:
		return "StringLiteral"
	case TokenLBrace:
		return "LBrace"
	case TokenRBrace:
		return "RBrace"
	case TokenLParen:
		return "LParen"
	case TokenRParen:
		return "RParen"
	case TokenLBracket:
		return "LBracket"
	case TokenRBracket:
		return "RBracket"
	case TokenComma:
		return "Comma"
	case TokenColon:
		return "Colon"
	case TokenSemi:
		return "Semi"
	case TokenDot:
		return "Dot"
	case TokenArrow:
		return "Arrow"
	case TokenOperator:
		return "Operator"
	default:
		return fmt.Sprintf("TokenKind(%d)", k)
	}
}

// TokenFlags carry metadata about the token source or origin.
type TokenFlags uint8

// TokenFlags values describe token provenance or recovery state.
const (
	TokenFlagMalformed TokenFlags = 1 << iota
)

// Has reports whether all bits in mask are set.
func (f TokenFlags) Has(mask TokenFlags) bool {
	return f&mask == mask
}

// Token is a lexed token with a source span and leading trivia.
type Token struct {
	Kind    TokenKind
	Span    text.Span
	Leading []Trivia
	Flags   TokenFlags
}

// Bytes returns the token bytes referenced by Span or nil if Span is invalid for src.
func (t Token) Bytes(src []byte) []byte {
	return bytesForSpan(src, t.Span)
}

// Declaration and statement keywords. Contextual words such as get/set/willSet
// stay identifiers because they are legal names elsewhere.
var keywords = map[string]struct{}{
	"associatedtype":  {},
	"class":           {},
	"deinit":          {},
	"enum":            {},
	"extension":       {},
	"fileprivate":     {},
	"func":            {},
	"import":          {},
	"init":            {},
	"inout":           {},
	"internal":        {},
	"let":             {},
	"open":            {},
	"operator":        {},
	"private":         {},
	"precedencegroup": {},
	"protocol":        {},
	"public":          {},
	"rethrows":        {},
	"static":          {},
	"struct":          {},
	"subscript":       {},
	"typealias":       {},
	"var":             {},
	"break":           {},
	"case":            {},
	"catch":           {},
	"continue":        {},
	"default":         {},
	"defer":           {},
	"do":              {},
	"else":            {},
	"fallthrough":     {},
	"for":             {},
	"guard":           {},
	"if":              {},
	"in":              {},
	"repeat":          {},
	"return":          {},
	"throw":           {},
	"switch":          {},
	"where":           {},
	"while":           {},
	"as":              {},
	"Any":             {},
	"await":           {},
	"false":           {},
	"is":              {},
	"nil":             {},
	"self":            {},
	"Self":            {},
	"super":           {},
	"throws":          {},
	"true":            {},
	"try":             {},
	"convenience":     {},
	"dynamic":         {},
	"final":           {},
	"indirect":        {},
	"lazy":            {},
	"mutating":        {},
	"nonmutating":     {},
	"override":        {},
	"required":        {},
	"some":            {},
	"unowned":         {},
	"weak":            {},
}

// IsKeyword reports whether word lexes as a keyword.
func IsKeyword(word string) bool {
	_, ok := keywords[word]
	return ok
}

func bytesForSpan(src []byte, sp text.Span) []byte {
	if !sp.IsValid() {
		return nil
	}
	if sp.End > text.ByteOffset(len(src)) {
		return nil
	}
	return src[sp.Start:sp.End]
}
