package lsp

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	itext "github.com/kpumuk/swift-weaver/internal/text"
)

var (
	semanticTokenTypes = []string{
		"comment",
		"string",
		"number",
		"keyword",
		"type",
		"variable",
		"decorator",
		"macro",
	}
	semanticTokenModifiers = []string{
		"documentation",
	}
	semanticTokenTypeIndex = indexStringsUint32(semanticTokenTypes)
	semanticTokenModIndex  = indexStringsUint32(semanticTokenModifiers)
)

type semanticAbsToken struct {
	line      uint32
	startChar uint32
	length    uint32
	tokenType uint32
	modBits   uint32
}

func semanticTokenLegendTypes() []string {
	return slices.Clone(semanticTokenTypes)
}

func semanticTokenLegendModifiers() []string {
	return slices.Clone(semanticTokenModifiers)
}

// SemanticTokensFull handles textDocument/semanticTokens/full.
func (s *Server) SemanticTokensFull(ctx context.Context, p SemanticTokensParams) (SemanticTokens, error) {
	snap, err := s.querySnapshot(ctx, p.TextDocument.URI)
	if err != nil {
		return SemanticTokens{}, err
	}
	return semanticTokensFromSyntaxMap(snap.Index, snap.Tokens), nil
}

func semanticTokensFromSyntaxMap(idx *itext.Index, tokens []syntaxmap.Token) SemanticTokens {
	var abs []semanticAbsToken
	for _, tok := range (syntaxmap.Map{Tokens: tokens}).Sorted() {
		tokenType, modifiers, ok := semanticTokenKind(tok.Kind)
		if !ok {
			continue
		}
		typeIdx := semanticTokenTypeIndex[tokenType]
		modBits := modifierBits(modifiers)
		for _, seg := range semanticLineSegments(idx, tok.Span()) {
			if t, ok := semanticTokenForSpan(idx, seg, typeIdx, modBits); ok {
				abs = append(abs, t)
			}
		}
	}
	return SemanticTokens{Data: encodeSemanticTokens(abs)}
}

func semanticTokenKind(kind syntaxmap.Kind) (string, []string, bool) {
	switch {
	case kind.IsDocComment():
		return "comment", []string{"documentation"}, true
	case kind.IsComment():
		return "comment", nil, true
	}
	switch kind {
	case syntaxmap.KindString:
		return "string", nil, true
	case syntaxmap.KindNumber:
		return "number", nil, true
	case syntaxmap.KindKeyword:
		return "keyword", nil, true
	case syntaxmap.KindTypeIdentifier:
		return "type", nil, true
	case syntaxmap.KindIdentifier:
		return "variable", nil, true
	case syntaxmap.KindAttributeBuiltin:
		return "decorator", nil, true
	case syntaxmap.KindBuildConfigKeyword:
		return "macro", nil, true
	default:
		return "", nil, false
	}
}

func semanticTokenForSpan(idx *itext.Index, sp itext.Span, tokenType uint32, modBits uint32) (semanticAbsToken, bool) {
	if !sp.IsValid() || sp.IsEmpty() {
		return semanticAbsToken{}, false
	}
	start, err := idx.OffsetToUTF16Position(sp.Start)
	if err != nil {
		return semanticAbsToken{}, false
	}
	end, err := idx.OffsetToUTF16Position(sp.End)
	if err != nil {
		return semanticAbsToken{}, false
	}
	if start.Line != end.Line || end.Character <= start.Character {
		return semanticAbsToken{}, false
	}

	line, ok := uint32FromNonNegativeInt(start.Line)
	if !ok {
		return semanticAbsToken{}, false
	}
	startChar, ok := uint32FromNonNegativeInt(start.Character)
	if !ok {
		return semanticAbsToken{}, false
	}
	length, ok := uint32FromNonNegativeInt(end.Character - start.Character)
	if !ok || length == 0 {
		return semanticAbsToken{}, false
	}
	return semanticAbsToken{
		line:      line,
		startChar: startChar,
		length:    length,
		tokenType: tokenType,
		modBits:   modBits,
	}, true
}

// semanticLineSegments splits sp at line terminators; LSP tokens cannot span lines.
func semanticLineSegments(idx *itext.Index, sp itext.Span) []itext.Span {
	src, err := idx.SpanText(sp)
	if err != nil || src == "" {
		return nil
	}
	out := make([]itext.Span, 0, 2)
	segStart := sp.Start
	for line := range strings.Lines(src) {
		content := strings.TrimRight(line, "\r\n")
		if content != "" {
			out = append(out, itext.Span{Start: segStart, End: segStart + itext.ByteOffset(len(content))})
		}
		segStart += itext.ByteOffset(len(line))
	}
	return out
}

func encodeSemanticTokens(tokens []semanticAbsToken) []uint32 {
	if len(tokens) == 0 {
		return []uint32{}
	}
	data := make([]uint32, 0, len(tokens)*5)
	var prevLine uint32
	var prevStart uint32
	for i, tok := range tokens {
		deltaLine := tok.line
		deltaStart := tok.startChar
		if i > 0 {
			deltaLine = tok.line - prevLine
			if deltaLine == 0 {
				deltaStart = tok.startChar - prevStart
			}
		}
		data = append(data, deltaLine, deltaStart, tok.length, tok.tokenType, tok.modBits)
		prevLine = tok.line
		prevStart = tok.startChar
	}
	return data
}

func modifierBits(modifiers []string) uint32 {
	modBits := uint32(0)
	for _, mod := range modifiers {
		idx, ok := semanticTokenModIndex[mod]
		if !ok {
			continue
		}
		modBits |= 1 << idx
	}
	return modBits
}

func indexStringsUint32(in []string) map[string]uint32 {
	out := make(map[string]uint32, len(in))
	for i, value := range in {
		idx, ok := uint32FromNonNegativeInt(i)
		if !ok {
			continue
		}
		out[value] = idx
	}
	return out
}

func uint32FromNonNegativeInt(v int) (uint32, bool) {
	if v < 0 || v > math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}
