//go:build cgo && swiftweaver_treesitter

package treesitter

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

func TestBuilderIsRegistered(t *testing.T) {
	t.Parallel()

	b, err := syntaxmap.Lookup(BuilderName)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", BuilderName, err)
	}
	if b.Name() != BuilderName {
		t.Fatalf("Name() = %q, want %q", b.Name(), BuilderName)
	}
}

func TestBuildDocumentedOffsets(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		src  string
		want []text.ByteOffset
	}{
		"doc line comment":   {src: "/// Comment\nlet global = 0", want: []text.ByteOffset{16}},
		"plain line comment": {src: "// Comment\nlet global = 0"},
		"subscript":          {src: "/// doc\nstruct A {\n  /// sub\n  subscript(key: String) -> Void { return () }\n}", want: []text.ByteOffset{15, 31}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, err := Builder{}.Build(context.Background(), []byte(tc.src))
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			got := docs.DefaultClassifier().DocumentedTokenOffsets(text.NewIndexString(tc.src), m.Tokens)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("DocumentedTokenOffsets mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildTokensAreOrderedAndDisjoint(t *testing.T) {
	t.Parallel()

	src := "@objc public final class A: B {\n  /* c */ var x = \"s\" // t\n}\n"
	m, err := Builder{}.Build(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	var prevEnd text.ByteOffset
	for i, tok := range m.Tokens {
		if tok.Offset < prevEnd || tok.Length <= 0 {
			t.Fatalf("token %d %+v overlaps previous end %d", i, tok, prevEnd)
		}
		prevEnd = tok.End()
	}
	if len(m.Tokens) == 0 || m.Tokens[0].Kind != syntaxmap.KindAttributeBuiltin {
		t.Fatalf("first token = %+v, want attribute", m.Tokens)
	}
}
