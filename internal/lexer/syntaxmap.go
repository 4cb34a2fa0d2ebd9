package lexer

import (
	"context"

	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
)

// BuilderName is the registry name of the lexer-backed syntax map builder.
const BuilderName = "lexer"

var buildConfigWords = map[string]struct{}{
	"#if":     {},
	"#elseif": {},
	"#else":   {},
	"#endif":  {},
}

func init() {
	syntaxmap.Register(Builder{})
}

// Builder produces syntax maps with the in-process lexer.
type Builder struct{}

// Name implements syntaxmap.Builder.
func (Builder) Name() string { return BuilderName }

// Build implements syntaxmap.Builder.
func (Builder) Build(ctx context.Context, src []byte) (syntaxmap.Map, error) {
	if err := ctx.Err(); err != nil {
		return syntaxmap.Map{}, err
	}
	return SyntaxMap(src, Lex(src).Tokens), nil
}

// SyntaxMap converts lexed tokens into the SourceKit-style syntax token stream.
// Punctuation, operators and error tokens are not part of a syntax map.
func SyntaxMap(src []byte, tokens []Token) syntaxmap.Map {
	out := make([]syntaxmap.Token, 0, len(tokens))
	for _, tok := range tokens {
		for _, tr := range tok.Leading {
			if kind, ok := triviaSyntaxKind(tr.Kind); ok {
				out = append(out, syntaxmap.Token{Kind: kind, Offset: tr.Span.Start, Length: tr.Span.Len()})
			}
		}
		if kind, ok := tokenSyntaxKind(src, tok); ok {
			out = append(out, syntaxmap.Token{Kind: kind, Offset: tok.Span.Start, Length: tok.Span.Len()})
		}
	}
	return syntaxmap.Map{Tokens: out}
}

func triviaSyntaxKind(k TriviaKind) (syntaxmap.Kind, bool) {
	switch {
	case k.IsDoc():
		return syntaxmap.KindDocComment, true
	case k.IsComment():
		return syntaxmap.KindComment, true
	default:
		return "", false
	}
}

func tokenSyntaxKind(src []byte, tok Token) (syntaxmap.Kind, bool) {
	switch tok.Kind {
	case TokenIdentifier:
		return syntaxmap.KindIdentifier, true
	case TokenTypeIdentifier:
		return syntaxmap.KindTypeIdentifier, true
	case TokenKeyword:
		return syntaxmap.KindKeyword, true
	case TokenPoundKeyword:
		if _, ok := buildConfigWords[string(tok.Bytes(src))]; ok {
			return syntaxmap.KindBuildConfigKeyword, true
		}
		return syntaxmap.KindKeyword, true
	case TokenAttribute:
		return syntaxmap.KindAttributeBuiltin, true
	case TokenIntLiteral, TokenFloatLiteral:
		return syntaxmap.KindNumber, true
	case TokenStringLiteral:
		return syntaxmap.KindString, true
	default:
		return "", false
	}
}
