package lexer

import (
	"fmt"

	"github.com/kpumuk/swift-weaver/internal/text"
)

// TriviaKind identifies non-token source segments attached as leading trivia.
type TriviaKind uint8

// TriviaKind values describe trivia categories.
const (
	TriviaWhitespace TriviaKind = iota
	TriviaNewline
	TriviaLineComment
	TriviaDocLineComment
	TriviaBlockComment
	TriviaDocBlockComment
)

func (k TriviaKind) String() string {
	switch k {
	case TriviaWhitespace:
		return "Whitespace"
	case TriviaNewline:
		return "Newline"
	case TriviaLineComment:
		return "LineComment"
	case TriviaDocLineComment:
		return "DocLineComment"
	case TriviaBlockComment:
		return "BlockComment"
	case TriviaDocBlockComment:
		return "DocBlockComment"
	default:
		return fmt.Sprintf("TriviaKind(%d)", k)
	}
}

// IsComment reports whether the trivia is any kind of comment.
func (k TriviaKind) IsComment() bool {
	return k >= TriviaLineComment
}

// IsDoc reports whether the trivia is a documentation comment.
func (k TriviaKind) IsDoc() bool {
	return k == TriviaDocLineComment || k == TriviaDocBlockComment
}

// Trivia represents a non-token source span (whitespace/comments/newlines).
type Trivia struct {
	Kind TriviaKind
	Span text.Span
}

// Bytes returns the trivia bytes referenced by Span or nil if Span is invalid for src.
func (t Trivia) Bytes(src []byte) []byte {
	return bytesForSpan(src, t.Span)
}
