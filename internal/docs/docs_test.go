package docs

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kpumuk/swift-weaver/internal/lexer"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/testutil"
	"github.com/kpumuk/swift-weaver/internal/text"
)

func TestIsDocumentableSubscriptScenario(t *testing.T) {
	t.Parallel()

	src := "struct A { subscript(key: String) -> Void { return () } }"
	idx := text.NewIndexString(src)
	c := DefaultClassifier()

	var got []syntaxmap.Token
	for _, tok := range syntaxTokens(src) {
		if c.IsDocumentable(idx, tok) {
			got = append(got, tok)
		}
	}
	want := []syntaxmap.Token{
		{Kind: syntaxmap.KindIdentifier, Offset: 7, Length: 1},
		{Kind: syntaxmap.KindKeyword, Offset: 11, Length: 9},
		{Kind: syntaxmap.KindIdentifier, Offset: 21, Length: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("documentable tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestIsDocumentableKeywordText(t *testing.T) {
	t.Parallel()

	idx := text.NewIndexString("init deinit return")
	c := DefaultClassifier()
	tests := map[syntaxmap.Token]bool{
		{Kind: syntaxmap.KindKeyword, Offset: 0, Length: 4}:         true,
		{Kind: syntaxmap.KindKeyword, Offset: 5, Length: 6}:         true,
		{Kind: syntaxmap.KindKeyword, Offset: 12, Length: 6}:        false,
		{Kind: syntaxmap.KindKeyword, Offset: 12, Length: 60}:       false,
		{Kind: syntaxmap.KindTypeIdentifier, Offset: 0, Length: 4}:  false,
		{Kind: syntaxmap.KindDocComment, Offset: 0, Length: 4}:      false,
		{Kind: syntaxmap.KindIdentifier, Offset: 100, Length: 1}:    true,
		{Kind: syntaxmap.ParseKind("custom"), Offset: 0, Length: 1}: false,
	}
	for tok, want := range tests {
		if got := c.IsDocumentable(idx, tok); got != want {
			t.Fatalf("IsDocumentable(%+v) = %v, want %v", tok, got, want)
		}
	}
}

func TestDocumentedTokenOffsets(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src  string
		want []text.ByteOffset
	}{
		"doc line comment":               {src: "/// Comment\nlet global = 0", want: []text.ByteOffset{16}},
		"plain line comment":             {src: "// Comment\nlet global = 0"},
		"plain block comment":            {src: "/* Comment */\nlet global = 0"},
		"empty block comment":            {src: "/**/\nlet global = 0"},
		"doc block comment same line":    {src: "/** doc */ init() {}", want: []text.ByteOffset{11}},
		"plain comment breaks adjacency": {src: "/// doc\n// note\nlet x = 1"},
		"code breaks adjacency":          {src: "/// doc\nlet a = 1; let b = 2", want: []text.ByteOffset{12}},
		"attributes and modifiers":       {src: "/// doc\n\n@objc public func f() {}", want: []text.ByteOffset{27}},
		"members need their own doc":     {src: "/// doc\nstruct A { func b() }", want: []text.ByteOffset{15}},
		"parameters are not documented":  {src: "/// doc\nfunc f(x: Int, y: Int)", want: []text.ByteOffset{13}},
		"multibyte doc text":             {src: "/// 😄 ほげ\nlet 名前 = 1", want: []text.ByteOffset{20}},
		"no tokens":                      {src: ""},
		"return statement":               {src: "func f() {\n    /// doc\n    return value\n}"},
		"import statement":               {src: "/// doc\nimport Foundation"},
		"throw statement":                {src: "/// doc\nthrow error"},
		"if statement":                   {src: "/// doc\nif flag { }"},
		"attribute arguments":            {src: "/// doc\n@available(iOS 13, *)\nfunc f() {}", want: []text.ByteOffset{35}},
		"attribute string argument":      {src: "/// doc\n@available(*, deprecated, message: \"use f()\")\nfunc g() {}", want: []text.ByteOffset{59}},
		"modifier arguments":             {src: "/// doc\nprivate(set) var x = 1", want: []text.ByteOffset{25}},
		"call arguments break adjacency": {src: "/// doc\nstatic func f(a: Int) var x = 1", want: []text.ByteOffset{20}},
		"trailing doc line comment":      {src: "let a = 1 /// note\nlet b = 2"},
		"trailing doc block comment":     {src: "let a = 1 /** note */\nlet b = 2"},
		"indented doc comment":           {src: "struct S {\n\t/// doc\n\tvar v = 0\n}", want: []text.ByteOffset{25}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			idx := text.NewIndexString(tc.src)
			got := DefaultClassifier().DocumentedTokenOffsets(idx, syntaxTokens(tc.src))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("DocumentedTokenOffsets(%q) mismatch (-want +got):\n%s", tc.src, diff)
			}
		})
	}
}

func TestDocumentedTokenOffsetsExternalMaps(t *testing.T) {
	t.Parallel()

	src := "/// Comment\nlet global = 0"
	idx := text.NewIndexString(src)
	c := DefaultClassifier()

	// Unsorted, with every comment reported as a plain comment.
	tokens := []syntaxmap.Token{
		{Kind: syntaxmap.KindNumber, Offset: 25, Length: 1},
		{Kind: syntaxmap.KindIdentifier, Offset: 16, Length: 6},
		{Kind: syntaxmap.KindKeyword, Offset: 12, Length: 3},
		{Kind: syntaxmap.KindComment, Offset: 0, Length: 11},
	}
	if diff := cmp.Diff([]text.ByteOffset{16}, c.DocumentedTokenOffsets(idx, tokens)); diff != "" {
		t.Fatalf("unsorted plain-comment map mismatch (-want +got):\n%s", diff)
	}

	// Doc comments split around field markers.
	src = "/// - Parameter x: value\nfunc f(x: Int) {}"
	idx = text.NewIndexString(src)
	tokens = []syntaxmap.Token{
		{Kind: syntaxmap.KindDocComment, Offset: 0, Length: 6},
		{Kind: syntaxmap.ParseKind("doccomment.field"), Offset: 6, Length: 9},
		{Kind: syntaxmap.KindDocComment, Offset: 15, Length: 9},
		{Kind: syntaxmap.KindKeyword, Offset: 25, Length: 4},
		{Kind: syntaxmap.KindIdentifier, Offset: 30, Length: 1},
		{Kind: syntaxmap.KindIdentifier, Offset: 32, Length: 1},
		{Kind: syntaxmap.KindTypeIdentifier, Offset: 35, Length: 3},
	}
	if diff := cmp.Diff([]text.ByteOffset{30}, c.DocumentedTokenOffsets(idx, tokens)); diff != "" {
		t.Fatalf("split doc comment mismatch (-want +got):\n%s", diff)
	}

	// Ranges that do not fit the text are ignored.
	tokens = []syntaxmap.Token{
		{Kind: syntaxmap.KindDocComment, Offset: 0, Length: 400},
		{Kind: syntaxmap.KindIdentifier, Offset: 500, Length: 2},
	}
	if got := c.DocumentedTokenOffsets(idx, tokens); len(got) != 0 {
		t.Fatalf("DocumentedTokenOffsets(out of range) = %v, want none", got)
	}
}

func TestClassifierConfiguration(t *testing.T) {
	t.Parallel()

	src := "/// doc\nlet g = 0"
	idx := text.NewIndexString(src)
	tokens := syntaxTokens(src)

	strict := NewClassifier([]syntaxmap.Kind{syntaxmap.KindIdentifier}, nil, nil, nil)
	if got := strict.DocumentedTokenOffsets(idx, tokens); len(got) != 0 {
		t.Fatalf("without skip kinds = %v, want none", got)
	}

	keywordsOnly := NewClassifier(nil, []string{"let"}, nil, nil)
	if diff := cmp.Diff([]text.ByteOffset{8}, keywordsOnly.DocumentedTokenOffsets(idx, tokens)); diff != "" {
		t.Fatalf("keyword allow-list mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentedTokenOffsetsGolden(t *testing.T) {
	t.Parallel()

	cases, err := testutil.OffsetGoldenCases()
	if err != nil {
		t.Fatalf("OffsetGoldenCases: %v", err)
	}
	for _, gc := range cases {
		t.Run(gc.Name, func(t *testing.T) {
			t.Parallel()

			src := testutil.ReadFile(t, gc.InputPath)
			idx := text.NewIndex(src)
			got := DefaultClassifier().DocumentedTokenOffsets(idx, syntaxTokens(string(src)))

			var want []text.ByteOffset
			for _, field := range strings.Fields(string(testutil.ReadFile(t, gc.ExpectedPath))) {
				n, err := strconv.Atoi(field)
				if err != nil {
					t.Fatalf("bad expected offset %q: %v", field, err)
				}
				want = append(want, text.ByteOffset(n))
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("offsets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEntries(t *testing.T) {
	t.Parallel()

	src := `import Foundation

/// A bicycle.
///
/// Has two wheels.
public class Bicycle {
    /**
        Creates a bicycle.
    */
    public init() {}

    // Not documented.
    var gears = 1
}
`
	idx := text.NewIndexString(src)
	got := DefaultClassifier().Entries(idx, syntaxTokens(src))
	want := []Entry{
		{
			Name:          "Bicycle",
			Offset:        71,
			Length:        7,
			Lines:         text.LineRange{Start: 6, End: 6},
			Position:      text.UTF16Position{Line: 5, Character: 13},
			CommentOffset: 19,
			CommentLength: 38,
			Comment:       "A bicycle.\n\nHas two wheels.",
			Kind:          "source.lang.swift.decl.class",
			Declaration:   "public class Bicycle",
		},
		{
			Name:          "init",
			Offset:        134,
			Length:        4,
			Lines:         text.LineRange{Start: 10, End: 10},
			Position:      text.UTF16Position{Line: 9, Character: 11},
			CommentOffset: 85,
			CommentLength: 37,
			Comment:       "Creates a bicycle.",
			Kind:          "source.lang.swift.decl.function.constructor",
			Declaration:   "public init() {}",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestEntriesSkipTrailingComments(t *testing.T) {
	t.Parallel()

	src := "let a = 1 /// note\nlet b = 2\n/// Real.\nlet c = 3"
	idx := text.NewIndexString(src)
	c := DefaultClassifier()

	got := c.Entries(idx, syntaxTokens(src))
	if len(got) != 1 || got[0].Name != "c" || got[0].Comment != "Real." {
		t.Fatalf("Entries(%q) = %+v, want only c documented as %q", src, got, "Real.")
	}

	// A map reporting the trailing comment as a plain comment.
	tokens := []syntaxmap.Token{
		{Kind: syntaxmap.KindKeyword, Offset: 0, Length: 3},
		{Kind: syntaxmap.KindIdentifier, Offset: 4, Length: 1},
		{Kind: syntaxmap.KindNumber, Offset: 8, Length: 1},
		{Kind: syntaxmap.KindComment, Offset: 10, Length: 8},
		{Kind: syntaxmap.KindKeyword, Offset: 19, Length: 3},
		{Kind: syntaxmap.KindIdentifier, Offset: 23, Length: 1},
	}
	if got := c.DocumentedTokenOffsets(idx, tokens); len(got) != 0 {
		t.Fatalf("DocumentedTokenOffsets(trailing plain comment) = %v, want none", got)
	}
}

func TestEntriesUTF16Position(t *testing.T) {
	t.Parallel()

	src := "/// d\n/** 😄 */ let 名 = 1"
	idx := text.NewIndexString(src)
	got := DefaultClassifier().Entries(idx, syntaxTokens(src))
	want := []Entry{{
		Name:          "名",
		Offset:        22,
		Length:        3,
		Lines:         text.LineRange{Start: 2, End: 2},
		Position:      text.UTF16Position{Line: 1, Character: 14},
		CommentOffset: 0,
		CommentLength: 17,
		Comment:       "😄",
		Kind:          "source.lang.swift.decl.var.global",
		Declaration:   "/** 😄 */ let 名 = 1",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifierConcurrentUse(t *testing.T) {
	t.Parallel()

	src := "/// Comment\nlet global = 0"
	idx := text.NewIndexString(src)
	tokens := syntaxTokens(src)
	c := DefaultClassifier()

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for range 8 {
		wg.Go(func() {
			got := c.DocumentedTokenOffsets(idx, tokens)
			if len(got) != 1 || got[0] != 16 {
				errs <- "unexpected offsets"
			}
		})
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatal(msg)
	}
}

func syntaxTokens(src string) []syntaxmap.Token {
	b := []byte(src)
	return lexer.SyntaxMap(b, lexer.Lex(b).Tokens).Tokens
}
