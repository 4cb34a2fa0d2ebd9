// Package docs decides which syntax tokens carry documentation and pairs them
// with their documentation comments.
package docs

import (
	"strings"
	"unicode"

	"github.com/kpumuk/swift-weaver/internal/comment"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

// Default allow-list values.
var (
	DefaultKinds     = []syntaxmap.Kind{syntaxmap.KindIdentifier}
	DefaultKeywords  = []string{"subscript", "init", "deinit"}
	DefaultSkipKinds = []syntaxmap.Kind{syntaxmap.KindAttributeBuiltin}
	// DefaultSkipKeywords are the declaration introducers and modifiers that may
	// sit between a doc comment and the name it documents.
	DefaultSkipKeywords = []string{
		"actor", "associatedtype", "case", "class", "convenience", "distributed", "dynamic",
		"enum", "extension", "fileprivate", "final", "func", "indirect", "infix", "internal",
		"lazy", "let", "macro", "mutating", "nonisolated", "nonmutating", "open", "operator",
		"optional", "override", "package", "postfix", "precedencegroup", "prefix", "private",
		"protocol", "public", "required", "static", "struct", "typealias", "unowned", "var",
		"weak",
	}
)

// Classifier holds the documentable allow-list. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	kinds        map[syntaxmap.Kind]struct{}
	keywords     map[string]struct{}
	skipKinds    map[syntaxmap.Kind]struct{}
	skipKeywords map[string]struct{}
}

// NewClassifier builds a classifier.
//
// Tokens of a kind in kinds are documentable; keyword tokens are documentable
// when their text is in keywords. Between a documentable token and its doc
// comment only whitespace and non-documentable skippable tokens may appear: tokens
// of skipKinds, and keyword tokens whose text is in skipKeywords. A skippable
// token may carry a parenthesized argument list, as in "@available(iOS 13, *)"
// or "private(set)".
func NewClassifier(kinds []syntaxmap.Kind, keywords []string, skipKinds []syntaxmap.Kind, skipKeywords []string) *Classifier {
	c := &Classifier{
		kinds:        make(map[syntaxmap.Kind]struct{}, len(kinds)),
		keywords:     make(map[string]struct{}, len(keywords)),
		skipKinds:    make(map[syntaxmap.Kind]struct{}, len(skipKinds)),
		skipKeywords: make(map[string]struct{}, len(skipKeywords)),
	}
	for _, k := range kinds {
		c.kinds[k] = struct{}{}
	}
	for _, w := range keywords {
		c.keywords[w] = struct{}{}
	}
	for _, k := range skipKinds {
		c.skipKinds[k] = struct{}{}
	}
	for _, w := range skipKeywords {
		c.skipKeywords[w] = struct{}{}
	}
	return c
}

// DefaultClassifier returns the classifier for the default allow-list:
// identifiers, and the subscript/init/deinit keywords.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultKinds, DefaultKeywords, DefaultSkipKinds, DefaultSkipKeywords)
}

// IsDocumentable reports whether tok may be the subject of a doc comment.
// Keyword tokens whose text cannot be read from idx are not documentable.
func (c *Classifier) IsDocumentable(idx *text.Index, tok syntaxmap.Token) bool {
	if tok.Kind == syntaxmap.KindKeyword {
		word, err := idx.Substring(tok.Offset, tok.Length)
		if err != nil {
			return false
		}
		_, ok := c.keywords[word]
		return ok
	}
	_, ok := c.kinds[tok.Kind]
	return ok
}

// DocumentedTokenOffsets returns, in ascending order, the offsets of the
// documentable tokens that directly follow a doc comment.
//
// Tokens need not be sorted. A doc comment counts when it starts its line and
// only whitespace and skippable tokens (declaration keywords, attributes and
// their argument lists) separate it from the token; a plain comment or any
// other source text in between breaks adjacency.
func (c *Classifier) DocumentedTokenOffsets(idx *text.Index, tokens []syntaxmap.Token) []text.ByteOffset {
	sorted := syntaxmap.Map{Tokens: tokens}.Sorted()
	var out []text.ByteOffset
	for i, tok := range sorted {
		if !c.IsDocumentable(idx, tok) {
			continue
		}
		if _, ok := c.docComment(idx, sorted, i); !ok {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == tok.Offset {
			continue
		}
		out = append(out, tok.Offset)
	}
	return out
}

// docComment returns the index of the doc comment token adjacent to sorted[at].
func (c *Classifier) docComment(idx *text.Index, sorted []syntaxmap.Token, at int) (int, bool) {
	end := sorted[at].Offset
	for i := at - 1; i >= 0; i-- {
		prev := sorted[i]
		if owner, open, ok := argumentList(idx, sorted, i, end); ok {
			prev = sorted[owner]
			if !onlySpace(idx, prev.End(), open) || !c.skippable(idx, prev) {
				return 0, false
			}
			i = owner
			end = prev.Offset
			continue
		}
		if !onlySpace(idx, prev.End(), end) {
			return 0, false
		}
		if prev.Kind.IsComment() {
			return i, isDocComment(idx, sorted, i)
		}
		if !c.skippable(idx, prev) {
			return 0, false
		}
		end = prev.Offset
	}
	return 0, false
}

func (c *Classifier) skippable(idx *text.Index, tok syntaxmap.Token) bool {
	if c.IsDocumentable(idx, tok) {
		return false
	}
	if _, ok := c.skipKinds[tok.Kind]; ok {
		return true
	}
	if tok.Kind != syntaxmap.KindKeyword {
		return false
	}
	word, err := idx.Substring(tok.Offset, tok.Length)
	if err != nil {
		return false
	}
	_, ok := c.skipKeywords[word]
	return ok
}

// argumentList matches a source text ending at end with ")" (and trailing
// whitespace) against its "(". Only text between tokens is scanned, so
// parentheses inside string literals do not count. It returns the index of the
// last token before the "(" and the offset of the "(".
func argumentList(idx *text.Index, sorted []syntaxmap.Token, last int, end text.ByteOffset) (int, text.ByteOffset, bool) {
	depth := 0
	hi := end
	for j := last; j >= 0; j-- {
		lo := sorted[j].End()
		if lo > hi {
			return 0, 0, false
		}
		gap, err := idx.Substring(lo, hi-lo)
		if err != nil {
			return 0, 0, false
		}
		for k := len(gap) - 1; k >= 0; k-- {
			switch ch := gap[k]; {
			case ch == '{' || ch == '}' || ch == ';':
				return 0, 0, false
			case ch == ')':
				depth++
			case ch == '(' && depth > 0:
				depth--
				if depth == 0 {
					return j, lo + text.ByteOffset(k), true
				}
			case depth == 0 && !isSpaceByte(ch):
				return 0, 0, false
			}
		}
		if depth == 0 {
			return 0, 0, false
		}
		hi = sorted[j].Offset
	}
	return 0, 0, false
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// docRun extends the doc comment at sorted[last] backwards over directly
// preceding doc comments and returns the first index of the run.
func docRun(idx *text.Index, sorted []syntaxmap.Token, last int) int {
	first := last
	for first > 0 {
		prev := sorted[first-1]
		if !isDocComment(idx, sorted, first-1) || !onlySpace(idx, prev.End(), sorted[first].Offset) {
			break
		}
		first--
	}
	return first
}

// isDocComment trusts doc comment kinds and checks the text of plain comment
// tokens, so maps that report every comment as a plain comment still work.
// Comments trailing code on their line are never documentation.
func isDocComment(idx *text.Index, sorted []syntaxmap.Token, i int) bool {
	tok := sorted[i]
	if !tok.Kind.IsComment() || !leadsLine(idx, sorted, i) {
		return false
	}
	if tok.Kind.IsDocComment() {
		return true
	}
	s, err := idx.Substring(tok.Offset, tok.Length)
	if err != nil {
		return false
	}
	return comment.IsDoc(s)
}

// leadsLine reports whether only whitespace and comments precede sorted[i] on
// its line.
func leadsLine(idx *text.Index, sorted []syntaxmap.Token, i int) bool {
	end := sorted[i].Offset
	line, err := idx.LineSpan(end, 0)
	if err != nil {
		return false
	}
	for j := i - 1; j >= 0 && sorted[j].End() > line.Start; j-- {
		prev := sorted[j]
		if !prev.Kind.IsComment() || !onlySpace(idx, prev.End(), end) {
			return false
		}
		end = prev.Offset
	}
	return end <= line.Start || onlySpace(idx, line.Start, end)
}

func onlySpace(idx *text.Index, from, to text.ByteOffset) bool {
	if from > to {
		return false
	}
	s, err := idx.Substring(from, to-from)
	if err != nil {
		return false
	}
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}
