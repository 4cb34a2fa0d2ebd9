package lsp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kpumuk/swift-weaver/internal/decl"
	"github.com/kpumuk/swift-weaver/internal/docs"
	itext "github.com/kpumuk/swift-weaver/internal/text"
)

var errInvalidPosition = errors.New("invalid position")

// LSP SymbolKind values.
const (
	symbolKindNamespace     = 3
	symbolKindClass         = 5
	symbolKindMethod        = 6
	symbolKindProperty      = 7
	symbolKindConstructor   = 9
	symbolKindEnum          = 10
	symbolKindInterface     = 11
	symbolKindFunction      = 12
	symbolKindVariable      = 13
	symbolKindEnumMember    = 22
	symbolKindStruct        = 23
	symbolKindOperator      = 25
	symbolKindTypeParameter = 26
)

// Hover handles textDocument/hover. It returns nil when the position is not on
// a documented token.
func (s *Server) Hover(ctx context.Context, p TextDocumentPositionParams) (*Hover, error) {
	snap, err := s.querySnapshot(ctx, p.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	off, err := snap.Index.UTF16PositionToOffset(itext.UTF16Position{Line: p.Position.Line, Character: p.Position.Character})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidPosition, err)
	}
	e, ok := entryAt(snap.Entries, off)
	if !ok {
		return nil, nil
	}
	r, err := byteRange(snap.Index, e.Offset, e.Offset+e.Length)
	if err != nil {
		return nil, err
	}
	return &Hover{
		Contents: MarkupContent{Kind: MarkupKindMarkdown, Value: hoverMarkdown(e)},
		Range:    &r,
	}, nil
}

// DocumentSymbol handles textDocument/documentSymbol. Every documented token is
// one symbol spanning its doc comment and name.
func (s *Server) DocumentSymbol(ctx context.Context, p DocumentSymbolParams) ([]DocumentSymbol, error) {
	snap, err := s.querySnapshot(ctx, p.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentSymbol, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		full, err := byteRange(snap.Index, e.CommentOffset, e.Offset+e.Length)
		if err != nil {
			return nil, err
		}
		sel, err := byteRange(snap.Index, e.Offset, e.Offset+e.Length)
		if err != nil {
			return nil, err
		}
		out = append(out, DocumentSymbol{
			Name:           e.Name,
			Detail:         e.Declaration,
			Kind:           symbolKind(e.Kind),
			Range:          full,
			SelectionRange: sel,
		})
	}
	return out, nil
}

func (s *Server) querySnapshot(ctx context.Context, uri string) (*Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store, err := s.requireStore()
	if err != nil {
		return nil, err
	}
	snap, ok := store.Snapshot(uri)
	if !ok {
		return nil, ErrDocumentNotOpen
	}
	return snap, nil
}

// entryAt finds the entry whose token contains off or ends right at it.
func entryAt(entries []docs.Entry, off itext.ByteOffset) (docs.Entry, bool) {
	for _, e := range entries {
		if e.Offset <= off && off <= e.Offset+e.Length {
			return e, true
		}
	}
	return docs.Entry{}, false
}

func hoverMarkdown(e docs.Entry) string {
	var b strings.Builder
	if e.Declaration != "" {
		b.WriteString("```swift\n")
		b.WriteString(e.Declaration)
		b.WriteString("\n```")
		if e.Comment != "" {
			b.WriteString("\n\n")
		}
	}
	b.WriteString(e.Comment)
	return b.String()
}

func byteRange(idx *itext.Index, start, end itext.ByteOffset) (Range, error) {
	s, err := idx.OffsetToUTF16Position(start)
	if err != nil {
		return Range{}, err
	}
	e, err := idx.OffsetToUTF16Position(end)
	if err != nil {
		return Range{}, err
	}
	return Range{
		Start: Position{Line: s.Line, Character: s.Character},
		End:   Position{Line: e.Line, Character: e.Character},
	}, nil
}

func symbolKind(name string) int {
	k, ok := decl.ParseKind(name)
	if !ok {
		return symbolKindVariable
	}
	switch k {
	case decl.KindClass:
		return symbolKindClass
	case decl.KindStruct:
		return symbolKindStruct
	case decl.KindEnum:
		return symbolKindEnum
	case decl.KindEnumCase, decl.KindEnumElement:
		return symbolKindEnumMember
	case decl.KindProtocol:
		return symbolKindInterface
	case decl.KindTypeAlias, decl.KindAssociatedType, decl.KindGenericTypeParam:
		return symbolKindTypeParameter
	case decl.KindFunctionFree:
		return symbolKindFunction
	case decl.KindFunctionConstructor, decl.KindFunctionDestructor:
		return symbolKindConstructor
	case decl.KindFunctionOperator, decl.KindPrecedenceGroup:
		return symbolKindOperator
	case decl.KindFunctionAccessorGetter, decl.KindFunctionAccessorSetter,
		decl.KindVarInstance, decl.KindVarStatic, decl.KindVarClass:
		return symbolKindProperty
	}
	switch k.Category() {
	case decl.CategoryExtension:
		return symbolKindNamespace
	case decl.CategoryFunction:
		return symbolKindMethod
	default:
		return symbolKindVariable
	}
}
