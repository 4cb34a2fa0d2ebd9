package lexer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/testutil"
	"github.com/kpumuk/swift-weaver/internal/text"
)

func TestTokenAndTriviaBytesUseRawSpans(t *testing.T) {
	t.Parallel()

	src := []byte("  abc")
	tr := Trivia{Kind: TriviaWhitespace, Span: text.Span{Start: 0, End: 2}}
	tok := Token{Kind: TokenIdentifier, Span: text.Span{Start: 2, End: 5}}

	if got := string(tr.Bytes(src)); got != "  " {
		t.Fatalf("Trivia.Bytes() = %q, want %q", got, "  ")
	}
	if got := string(tok.Bytes(src)); got != "abc" {
		t.Fatalf("Token.Bytes() = %q, want %q", got, "abc")
	}
	if got := tok.Bytes([]byte("ab")); got != nil {
		t.Fatalf("Token.Bytes(short) = %q, want nil", got)
	}
}

func TestLexGoldenRepresentativeValidInput(t *testing.T) {
	t.Parallel()

	src := []byte(`/// Doc.
public func f(x: Int) -> String { // trailing
  return #"raw"#
}
`)

	res := Lex(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	got := renderTokens(src, res.Tokens)
	want := strings.TrimSpace(`
Keyword("public") lead=[DocLineComment("/// Doc."),Newline("\n")]
Keyword("func") lead=[Whitespace(" ")]
Identifier("f") lead=[Whitespace(" ")]
LParen("(") lead=[]
Identifier("x") lead=[]
Colon(":") lead=[]
TypeIdentifier("Int") lead=[Whitespace(" ")]
RParen(")") lead=[]
Arrow("->") lead=[Whitespace(" ")]
TypeIdentifier("String") lead=[Whitespace(" ")]
LBrace("{") lead=[Whitespace(" ")]
Keyword("return") lead=[Whitespace(" "),LineComment("// trailing"),Newline("\n"),Whitespace("  ")]
StringLiteral("#\"raw\"#") lead=[Whitespace(" ")]
RBrace("}") lead=[Newline("\n")]
EOF("") lead=[Newline("\n")]
`)
	if got != want {
		t.Fatalf("golden mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestLexSubscriptDeclarationKindsAndOffsets(t *testing.T) {
	t.Parallel()

	src := []byte("struct A { subscript(key: String) -> Void { return () } }")
	res := Lex(src)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}

	type kindAt struct {
		Kind   TokenKind
		Offset text.ByteOffset
	}
	var got []kindAt
	for _, tok := range res.Tokens {
		switch tok.Kind {
		case TokenKeyword, TokenIdentifier, TokenTypeIdentifier:
			got = append(got, kindAt{Kind: tok.Kind, Offset: tok.Span.Start})
		}
	}
	want := []kindAt{
		{TokenKeyword, 0},
		{TokenIdentifier, 7},
		{TokenKeyword, 11},
		{TokenIdentifier, 21},
		{TokenTypeIdentifier, 26},
		{TokenTypeIdentifier, 37},
		{TokenKeyword, 44},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("token kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestLexTypePositions(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src  string
		word string
		want TokenKind
	}{
		"annotation":           {src: "let a: Int", word: "Int", want: TokenTypeIdentifier},
		"return type":          {src: "func f() -> Bool", word: "Bool", want: TokenTypeIdentifier},
		"cast":                 {src: "x as Double", word: "Double", want: TokenTypeIdentifier},
		"type check":           {src: "x is Float", word: "Float", want: TokenTypeIdentifier},
		"qualified":            {src: "let a: Swift.Int", word: "Int", want: TokenTypeIdentifier},
		"label on next line":   {src: "f(a:\nb)", word: "b", want: TokenIdentifier},
		"plain reference":      {src: "print(value)", word: "value", want: TokenIdentifier},
		"member of value":      {src: "value.count", word: "count", want: TokenIdentifier},
		"escaped identifier":   {src: "let `class` = 1", word: "`class`", want: TokenIdentifier},
		"contextual keyword":   {src: "var x: Int { get set }", word: "get", want: TokenIdentifier},
		"unicode identifier":   {src: "let 😄 = 1", word: "😄", want: TokenIdentifier},
		"dollar closure param": {src: "{ $0 }", word: "$0", want: TokenIdentifier},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := []byte(tc.src)
			res := Lex(src)
			for _, tok := range res.Tokens {
				if string(tok.Bytes(src)) == tc.word {
					if tok.Kind != tc.want {
						t.Fatalf("kind(%q) = %s, want %s", tc.word, tok.Kind, tc.want)
					}
					return
				}
			}
			t.Fatalf("token %q not found in %q", tc.word, tc.src)
		})
	}
}

func TestLexMalformedInputsEmitErrorTokensAndDiagnostics(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src  []byte
		code DiagnosticCode
	}{
		"unterminated string":        {src: []byte("let s = \"abc\nlet t = 1"), code: DiagnosticUnterminatedString},
		"unterminated multiline":     {src: []byte("let s = \"\"\"\nabc\n"), code: DiagnosticUnterminatedString},
		"unterminated interpolation": {src: []byte(`let s = "\(a`), code: DiagnosticUnterminatedString},
		"unterminated block comment": {src: []byte("/* open /* nested */"), code: DiagnosticUnterminatedBlockComment},
		"unterminated backtick":      {src: []byte("let `abc\n"), code: DiagnosticUnterminatedIdentifier},
		"invalid utf8":               {src: []byte{'a', ' ', 0xff}, code: DiagnosticInvalidByte},
		"unknown character":          {src: []byte("let x = 1 ' 2"), code: DiagnosticUnknownCharacter},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := Lex(tc.src)
			if len(res.Diagnostics) == 0 {
				t.Fatal("expected diagnostics")
			}
			if res.Diagnostics[0].Code != tc.code {
				t.Fatalf("diagnostic code = %s, want %s", res.Diagnostics[0].Code, tc.code)
			}

			var sawError bool
			for _, tok := range res.Tokens {
				if tok.Kind == TokenError {
					sawError = true
					if !tok.Flags.Has(TokenFlagMalformed) {
						t.Fatal("error token missing malformed flag")
					}
				}
			}
			if !sawError {
				t.Fatal("expected an error token")
			}
			if last := res.Tokens[len(res.Tokens)-1]; last.Kind != TokenEOF {
				t.Fatalf("last token = %s, want EOF", last.Kind)
			}
		})
	}
}

func TestLexTriviaAndLiteralFidelity(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src     string
		trivia  []TriviaKind
		literal TokenKind
	}{
		"doc block":         {src: "/** doc */ 1", trivia: []TriviaKind{TriviaDocBlockComment, TriviaWhitespace}, literal: TokenIntLiteral},
		"empty block":       {src: "/**/ 1", trivia: []TriviaKind{TriviaBlockComment, TriviaWhitespace}, literal: TokenIntLiteral},
		"banner block":      {src: "/*** banner */1", trivia: []TriviaKind{TriviaBlockComment}, literal: TokenIntLiteral},
		"nested block":      {src: "/* a /* b */ c */1", trivia: []TriviaKind{TriviaBlockComment}, literal: TokenIntLiteral},
		"doc line":          {src: "/// doc\n1.5", trivia: []TriviaKind{TriviaDocLineComment, TriviaNewline}, literal: TokenFloatLiteral},
		"four slashes":      {src: "//// plain\n0x1p3", trivia: []TriviaKind{TriviaLineComment, TriviaNewline}, literal: TokenFloatLiteral},
		"crlf":              {src: "// c\r\n0b1010", trivia: []TriviaKind{TriviaLineComment, TriviaNewline}, literal: TokenIntLiteral},
		"nbsp":              {src: "\u00a01_000", trivia: []TriviaKind{TriviaWhitespace}, literal: TokenIntLiteral},
		"exponent":          {src: "1e-3", literal: TokenFloatLiteral},
		"interpolation":     {src: `"a \("b")"`, literal: TokenStringLiteral},
		"multiline string":  {src: "\"\"\"\nline \" quote\n\"\"\"", literal: TokenStringLiteral},
		"raw with escape":   {src: `#"a\#(x)"#`, literal: TokenStringLiteral},
		"raw keeps slashes": {src: `#"\n"#`, literal: TokenStringLiteral},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := []byte(tc.src)
			res := Lex(src)
			if len(res.Diagnostics) != 0 {
				t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
			}
			first := res.Tokens[0]
			if first.Kind != tc.literal {
				t.Fatalf("first token = %s(%q), want %s", first.Kind, first.Bytes(src), tc.literal)
			}
			if int(first.Span.End) != len(src) {
				t.Fatalf("literal ends at %d, want %d", first.Span.End, len(src))
			}
			var got []TriviaKind
			for _, tr := range first.Leading {
				got = append(got, tr.Kind)
			}
			if diff := cmp.Diff(tc.trivia, got); diff != "" {
				t.Fatalf("leading trivia mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSyntaxMapKinds(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src  string
		want []syntaxmap.Token
	}{
		"documented global": {
			src: "/// Comment\nlet global = 0",
			want: []syntaxmap.Token{
				{Kind: syntaxmap.KindDocComment, Offset: 0, Length: 11},
				{Kind: syntaxmap.KindKeyword, Offset: 12, Length: 3},
				{Kind: syntaxmap.KindIdentifier, Offset: 16, Length: 6},
				{Kind: syntaxmap.KindNumber, Offset: 25, Length: 1},
			},
		},
		"build configuration": {
			src: "#if DEBUG\n#endif",
			want: []syntaxmap.Token{
				{Kind: syntaxmap.KindBuildConfigKeyword, Offset: 0, Length: 3},
				{Kind: syntaxmap.KindIdentifier, Offset: 4, Length: 5},
				{Kind: syntaxmap.KindBuildConfigKeyword, Offset: 10, Length: 6},
			},
		},
		"attribute and pound keyword": {
			src: "@objc // x\nlet s = #selector(f)",
			want: []syntaxmap.Token{
				{Kind: syntaxmap.KindAttributeBuiltin, Offset: 0, Length: 5},
				{Kind: syntaxmap.KindComment, Offset: 6, Length: 4},
				{Kind: syntaxmap.KindKeyword, Offset: 11, Length: 3},
				{Kind: syntaxmap.KindIdentifier, Offset: 15, Length: 1},
				{Kind: syntaxmap.KindKeyword, Offset: 19, Length: 9},
				{Kind: syntaxmap.KindIdentifier, Offset: 29, Length: 1},
			},
		},
		"string and block doc": {
			src: "/** d */\nvar s: String = \"x\"",
			want: []syntaxmap.Token{
				{Kind: syntaxmap.KindDocComment, Offset: 0, Length: 8},
				{Kind: syntaxmap.KindKeyword, Offset: 9, Length: 3},
				{Kind: syntaxmap.KindIdentifier, Offset: 13, Length: 1},
				{Kind: syntaxmap.KindTypeIdentifier, Offset: 16, Length: 6},
				{Kind: syntaxmap.KindString, Offset: 25, Length: 3},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			src := []byte(tc.src)
			got := SyntaxMap(src, Lex(src).Tokens)
			if diff := cmp.Diff(tc.want, got.Tokens); diff != "" {
				t.Fatalf("SyntaxMap() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuilderIsRegistered(t *testing.T) {
	t.Parallel()

	b, err := syntaxmap.Lookup(BuilderName)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", BuilderName, err)
	}
	m, err := b.Build(context.Background(), []byte("/// d\nfunc f() {}"))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(m.Tokens) != 3 || m.Tokens[0].Kind != syntaxmap.KindDocComment {
		t.Fatalf("Build() = %+v, want doc comment, keyword, identifier", m.Tokens)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx, nil); err == nil {
		t.Fatal("Build(canceled) error = nil, want context error")
	}
}

func TestLexValidCorpusHasNoDiagnostics(t *testing.T) {
	t.Parallel()

	files, err := testutil.CorpusFiles("valid")
	if err != nil {
		t.Fatalf("CorpusFiles(valid): %v", err)
	}
	for _, path := range files {
		src := testutil.ReadFile(t, path)
		res := Lex(src)
		if len(res.Diagnostics) != 0 {
			t.Fatalf("%s: unexpected diagnostics: %+v", path, res.Diagnostics)
		}
		if got := reassemble(src, res.Tokens); got != string(src) {
			t.Fatalf("%s: token stream is not lossless", path)
		}
	}
}

func TestDocCommentsMatchSourceKitten(t *testing.T) {
	oracle := testutil.RequireSourceKittenOracle(t)

	files, err := testutil.CorpusFiles("valid")
	if err != nil {
		t.Fatalf("CorpusFiles(valid): %v", err)
	}
	for _, path := range files {
		want, err := oracle.SyntaxMap(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		src := testutil.ReadFile(t, path)
		got := SyntaxMap(src, Lex(src).Tokens)
		if diff := cmp.Diff(docCommentLines(t, src, want), docCommentLines(t, src, got)); diff != "" {
			t.Fatalf("%s: doc comment lines mismatch (-sourcekitten +lexer):\n%s", path, diff)
		}
	}
}

// docCommentLines reports the lines holding doc comment tokens. SourceKit splits
// doc comments around field markers, so covered lines compare better than offsets.
func docCommentLines(t *testing.T, src []byte, m syntaxmap.Map) []int {
	t.Helper()
	idx := text.NewIndex(src)
	var out []int
	for _, tok := range m.Tokens {
		if !strings.HasPrefix(tok.Kind.ShortName(), "doccomment") {
			continue
		}
		first, err := idx.Line(tok.Offset)
		if err != nil {
			t.Fatalf("Line(%d): %v", tok.Offset, err)
		}
		last := first
		if tok.Length > 0 {
			if last, err = idx.Line(tok.End() - 1); err != nil {
				t.Fatalf("Line(%d): %v", tok.End()-1, err)
			}
		}
		for line := first; line <= last; line++ {
			out = append(out, line)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func reassemble(src []byte, tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		for _, tr := range tok.Leading {
			b.Write(tr.Bytes(src))
		}
		b.Write(tok.Bytes(src))
	}
	return b.String()
}

func renderTokens(src []byte, tokens []Token) string {
	lines := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		lines = append(lines, fmt.Sprintf("%s(%q) lead=%s", tok.Kind, tok.Bytes(src), renderLeading(src, tok.Leading)))
	}
	return strings.Join(lines, "\n")
}

func renderLeading(src []byte, trivia []Trivia) string {
	if len(trivia) == 0 {
		return "[]"
	}

	parts := make([]string, 0, len(trivia))
	for _, tr := range trivia {
		parts = append(parts, fmt.Sprintf("%s(%q)", tr.Kind, tr.Bytes(src)))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
