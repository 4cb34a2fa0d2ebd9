// Package syntaxmap defines the syntax token stream consumed by the documentation core.
//
// A syntax map is what a structural parser reports for a source file: an ordered
// list of (kind, byte offset, byte length) tokens. Kinds use the SourceKit
// "source.lang.swift.syntaxtype.*" naming so maps from external tools can be
// passed through unchanged.
package syntaxmap

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/kpumuk/swift-weaver/internal/text"
)

// Kind identifies the syntactic category of a syntax token.
type Kind string

const kindPrefix = "source.lang.swift.syntaxtype."

// Kind values produced by the built-in builders.
const (
	KindKeyword            Kind = kindPrefix + "keyword"
	KindIdentifier         Kind = kindPrefix + "identifier"
	KindTypeIdentifier     Kind = kindPrefix + "typeidentifier"
	KindBuildConfigKeyword Kind = kindPrefix + "buildconfig.keyword"
	KindAttributeBuiltin   Kind = kindPrefix + "attribute.builtin"
	KindNumber             Kind = kindPrefix + "number"
	KindString             Kind = kindPrefix + "string"
	KindComment            Kind = kindPrefix + "comment"
	KindDocComment         Kind = kindPrefix + "doccomment"
)

// ShortName returns the kind without the SourceKit prefix.
func (k Kind) ShortName() string {
	return strings.TrimPrefix(string(k), kindPrefix)
}

// ParseKind accepts either a full SourceKit kind or its short name.
func ParseKind(s string) Kind {
	if strings.HasPrefix(s, kindPrefix) {
		return Kind(s)
	}
	return Kind(kindPrefix + s)
}

// IsComment reports whether tokens of this kind hold comment text, including
// sub-kinds such as "comment.mark" and "doccomment.field".
func (k Kind) IsComment() bool {
	name := k.ShortName()
	return hasKindPrefix(name, "comment") || k.IsDocComment()
}

// IsDocComment reports whether tokens of this kind hold documentation comment text.
func (k Kind) IsDocComment() bool {
	return hasKindPrefix(k.ShortName(), "doccomment")
}

func hasKindPrefix(name, base string) bool {
	return name == base || strings.HasPrefix(name, base+".")
}

// Token is a syntax token reported by a structural parser.
type Token struct {
	Kind   Kind            `json:"type"`
	Offset text.ByteOffset `json:"offset"`
	Length text.ByteOffset `json:"length"`
}

// Span returns the byte span covered by the token.
func (t Token) Span() text.Span {
	return text.SpanOf(t.Offset, t.Length)
}

// End returns the byte offset just past the token.
func (t Token) End() text.ByteOffset {
	return t.Offset + t.Length
}

// Map is the syntax token stream of one source file.
type Map struct {
	Tokens []Token `json:"syntaxmap"`
}

// Sorted returns the tokens ordered by offset, then length.
// The receiver is left untouched.
func (m Map) Sorted() []Token {
	out := slices.Clone(m.Tokens)
	slices.SortStableFunc(out, func(a, b Token) int {
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(a.Length, b.Length)
	})
	return out
}

// Builder produces syntax maps from source bytes.
type Builder interface {
	Name() string
	Build(ctx context.Context, src []byte) (Map, error)
}
