package docs

import (
	"github.com/kpumuk/swift-weaver/internal/comment"
	"github.com/kpumuk/swift-weaver/internal/decl"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

// Entry is one documented token with its documentation.
type Entry struct {
	Name   string          `json:"name"`
	Offset text.ByteOffset `json:"offset"`
	Length text.ByteOffset `json:"length"`
	Lines  text.LineRange  `json:"lines"`
	// Position is the editor-facing start of the token.
	Position text.UTF16Position `json:"position"`
	// CommentOffset and CommentLength cover the whole doc comment run.
	CommentOffset text.ByteOffset `json:"comment_offset"`
	CommentLength text.ByteOffset `json:"comment_length"`
	Comment       string          `json:"comment"`
	// Kind and Declaration are empty when no declaration could be derived.
	Kind        string `json:"kind,omitempty"`
	Declaration string `json:"declaration,omitempty"`
}

// Entries assembles an Entry for every token DocumentedTokenOffsets reports.
// Tokens whose ranges do not fit idx are skipped.
func (c *Classifier) Entries(idx *text.Index, tokens []syntaxmap.Token) []Entry {
	sorted := syntaxmap.Map{Tokens: tokens}.Sorted()
	var out []Entry
	for i, tok := range sorted {
		if !c.IsDocumentable(idx, tok) {
			continue
		}
		last, ok := c.docComment(idx, sorted, i)
		if !ok {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Offset == tok.Offset {
			continue
		}
		e, ok := entry(idx, sorted, i, docRun(idx, sorted, last), last)
		if !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

func entry(idx *text.Index, sorted []syntaxmap.Token, at, first, last int) (Entry, bool) {
	tok := sorted[at]
	name, err := idx.Substring(tok.Offset, tok.Length)
	if err != nil {
		return Entry{}, false
	}
	lines, ok := idx.LineRange(tok.Offset, tok.Length)
	if !ok {
		return Entry{}, false
	}
	pos, err := idx.OffsetToUTF16Position(tok.Offset)
	if err != nil {
		return Entry{}, false
	}

	e := Entry{
		Name:          name,
		Offset:        tok.Offset,
		Length:        tok.Length,
		Lines:         lines,
		Position:      pos,
		CommentOffset: sorted[first].Offset,
		CommentLength: sorted[last].End() - sorted[first].Offset,
	}
	// Whole lines keep the indentation the body is normalized against.
	if raw, err := idx.SubstringLines(e.CommentOffset, e.CommentLength); err == nil {
		e.Comment, _ = comment.Body(raw)
	}

	if rec, ok := decl.RecordFor(idx, sorted, at); ok {
		e.Kind = rec.Kind.String()
		e.Declaration, _ = decl.Parse(rec, idx)
	}
	return e, true
}
