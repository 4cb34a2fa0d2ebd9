//go:build cgo && swiftweaver_treesitter

package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/swift"

	"github.com/kpumuk/swift-weaver/internal/comment"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

// BuilderName is the registry name of the tree-sitter builder.
const BuilderName = "treesitter"

var (
	commentNodes = map[string]struct{}{
		"comment":           {},
		"multiline_comment": {},
	}
	stringNodes = map[string]struct{}{
		"line_string_literal":       {},
		"multi_line_string_literal": {},
		"raw_string_literal":        {},
	}
	numberNodes = map[string]struct{}{
		"integer_literal": {},
		"real_literal":    {},
		"hex_literal":     {},
		"oct_literal":     {},
		"bin_literal":     {},
	}
	buildConfigWords = map[string]struct{}{
		"#if":     {},
		"#elseif": {},
		"#else":   {},
		"#endif":  {},
	}
)

func init() {
	syntaxmap.Register(Builder{})
}

// Builder produces syntax maps from a tree-sitter parse.
type Builder struct{}

// Name implements syntaxmap.Builder.
func (Builder) Name() string { return BuilderName }

// Build implements syntaxmap.Builder.
func (Builder) Build(ctx context.Context, src []byte) (syntaxmap.Map, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(swift.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return syntaxmap.Map{}, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	var out []syntaxmap.Token
	collect(tree.RootNode(), src, &out)
	return syntaxmap.Map{Tokens: out}, nil
}

// collect appends the syntax tokens under n in document order. Classified
// nodes are emitted whole and not descended into.
func collect(n *sitter.Node, src []byte, out *[]syntaxmap.Token) {
	if n == nil {
		return
	}
	if kind, end, ok := classify(n, src); ok {
		start := text.ByteOffset(n.StartByte())
		if end > start {
			*out = append(*out, syntaxmap.Token{Kind: kind, Offset: start, Length: end - start})
		}
		return
	}
	for i := range int(n.ChildCount()) {
		collect(n.Child(i), src, out)
	}
}

func classify(n *sitter.Node, src []byte) (syntaxmap.Kind, text.ByteOffset, bool) {
	typ := n.Type()
	end := text.ByteOffset(n.EndByte())
	if _, ok := commentNodes[typ]; ok {
		if comment.IsDoc(n.Content(src)) {
			return syntaxmap.KindDocComment, end, true
		}
		return syntaxmap.KindComment, end, true
	}
	if _, ok := stringNodes[typ]; ok {
		return syntaxmap.KindString, end, true
	}
	if _, ok := numberNodes[typ]; ok {
		return syntaxmap.KindNumber, end, true
	}

	switch typ {
	case "simple_identifier":
		return syntaxmap.KindIdentifier, end, true
	case "type_identifier":
		return syntaxmap.KindTypeIdentifier, end, true
	case "attribute":
		// "@name" only; arguments are not part of the attribute token.
		if name := n.NamedChild(0); name != nil {
			end = text.ByteOffset(name.EndByte())
		}
		return syntaxmap.KindAttributeBuiltin, end, true
	}

	if n.IsNamed() || n.ChildCount() > 0 {
		return "", 0, false
	}
	word := n.Content(src)
	if !isKeywordText(word) {
		return "", 0, false
	}
	if _, ok := buildConfigWords[word]; ok {
		return syntaxmap.KindBuildConfigKeyword, end, true
	}
	return syntaxmap.KindKeyword, end, true
}

// isKeywordText reports whether an anonymous leaf spells a word such as "func"
// or "#available" rather than punctuation.
func isKeywordText(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '#' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := range len(s) {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
