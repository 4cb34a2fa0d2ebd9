package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kpumuk/swift-weaver/internal/text"
)

const bicycleSource = `import Foundation

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

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	args = append([]string{args[0], "--color", "never"}, args[1:]...)
	code := run(context.Background(), strings.NewReader(stdin), &out, &errb, args)
	return code, out.String(), errb.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestRunOffsetsText(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Global.swift")
	writeFile(t, path, "/// Comment\nlet global = 0")

	code, out, errOut := runCLI(t, "", "offsets", path)
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, path+":16\n", out)
	require.Empty(t, errOut)
}

func TestRunOffsetsWalksDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".gitignore"), "Generated/\n")
	writeFile(t, filepath.Join(dir, "Sources", "App", "Point.swift"), "/// A point.\nstruct Point {}\n")
	writeFile(t, filepath.Join(dir, "Sources", "App", "Plain.swift"), "struct Plain {}\n")
	writeFile(t, filepath.Join(dir, "Generated", "Model.swift"), "/// Generated.\nstruct Model {}\n")
	writeFile(t, filepath.Join(dir, ".build", "Cache.swift"), "/// Cached.\nstruct Cache {}\n")
	writeFile(t, filepath.Join(dir, "README.md"), "/// not swift\n")

	code, out, errOut := runCLI(t, "", "offsets", "--format", "json", "--jobs", "2", dir)
	require.Equal(t, exitOK, code, "stderr=%q", errOut)

	var got []offsetsJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, []offsetsJSON{
		{Path: filepath.Join(dir, "Sources", "App", "Plain.swift"), Offsets: []text.ByteOffset{}},
		{Path: filepath.Join(dir, "Sources", "App", "Point.swift"), Offsets: []text.ByteOffset{20}},
	}, got)
}

func TestRunOffsetsNothingFound(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Plain.swift")
	writeFile(t, path, "// Comment\nlet global = 0")

	code, out, errOut := runCLI(t, "", "offsets", path)
	require.Equal(t, exitIssues, code)
	require.Empty(t, out)
	require.Empty(t, errOut)

	code, _, _ = runCLI(t, "", "offsets", t.TempDir())
	require.Equal(t, exitIssues, code)
}

func TestRunDocsJSON(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCLI(t, bicycleSource, "docs", "--stdin", "--assume-filename", "Bicycle.swift", "--format", "json")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)

	var got []docsJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Bicycle.swift", got[0].Path)
	require.Len(t, got[0].Entries, 2)

	class, ctor := got[0].Entries[0], got[0].Entries[1]
	require.Equal(t, "Bicycle", class.Name)
	require.Equal(t, text.ByteOffset(71), class.Offset)
	require.Equal(t, "A bicycle.\n\nHas two wheels.", class.Comment)
	require.Equal(t, "source.lang.swift.decl.class", class.Kind)
	require.Equal(t, "public class Bicycle", class.Declaration)
	require.Equal(t, text.LineRange{Start: 6, End: 6}, class.Lines)

	require.Equal(t, "init", ctor.Name)
	require.Equal(t, "Creates a bicycle.", ctor.Comment)
	require.Equal(t, "source.lang.swift.decl.function.constructor", ctor.Kind)
}

func TestRunDocsText(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCLI(t, "/// Comment\nlet global = 0", "docs", "--stdin")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, "<stdin>:2:5: global (var.global)\n    let global = 0\n    Comment\n", out)
}

func TestRunDocsColumns(t *testing.T) {
	t.Parallel()

	src := "/** 😄 */ let 名 = 1"
	tests := map[string]struct {
		args []string
		want string
	}{
		"bytes": {args: []string{"docs", "--stdin"}, want: "<stdin>:1:17: 名"},
		"utf16": {args: []string{"docs", "--stdin", "--utf16"}, want: "<stdin>:1:15: 名"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			code, out, errOut := runCLI(t, src, tc.args...)
			require.Equal(t, exitOK, code, "stderr=%q", errOut)
			require.True(t, strings.HasPrefix(out, tc.want), "stdout=%q, want prefix %q", out, tc.want)
		})
	}
}

func TestRunDocsVerboseLogsToStderr(t *testing.T) {
	t.Parallel()

	code, _, errOut := runCLI(t, "/// Comment\nlet global = 0", "docs", "--stdin", "--verbose")
	require.Equal(t, exitOK, code)
	require.Contains(t, errOut, "syntax map built")
	require.Contains(t, errOut, "backend=lexer")
}

func TestRunLines(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCLI(t, "a\nbc\nd", "lines", "--stdin", "--start", "3", "--length", "1")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, "bc\n", out)

	code, out, errOut = runCLI(t, "a\nbc\nd", "lines", "--stdin", "--start", "4", "--length", "10")
	require.Equal(t, exitInternal, code)
	require.Empty(t, out)
	require.Contains(t, errOut, "swiftdoc: <stdin>: byte range")

	code, _, errOut = runCLI(t, "a", "lines", "--stdin", "--start", "0")
	require.Equal(t, exitInternal, code)
	require.Contains(t, errOut, "length")
}

func TestRunComment(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCLI(t, "  /// Hello\n  /// World\nfunc f()", "comment", "--stdin")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, "Hello\nWorld\n", out)

	code, out, _ = runCLI(t, "// plain\nfunc f()", "comment", "--stdin")
	require.Equal(t, exitIssues, code)
	require.Empty(t, out)
}

func TestRunDecl(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	record := filepath.Join(dir, "record.json")
	writeFile(t, record, `{"key.kind":"source.lang.swift.decl.class","key.offset":0,"key.bodyoffset":14}`)

	code, out, errOut := runCLI(t, "class ClassA {\n}\n", "decl", "--stdin", "--record", record)
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, "class ClassA\n", out)

	other := filepath.Join(dir, "other.json")
	writeFile(t, other, `{"key.kind":"source.lang.swift.decl.class","key.offset":0,"key.filepath":"/elsewhere/A.swift"}`)
	code, out, _ = runCLI(t, "class ClassA {\n}\n", "decl", "--stdin", "--record", other)
	require.Equal(t, exitIssues, code)
	require.Empty(t, out)

	bad := filepath.Join(dir, "bad.json")
	writeFile(t, bad, `{"key.kind":"source.lang.swift.decl.nope","key.offset":0}`)
	code, _, _ = runCLI(t, "class ClassA {}", "decl", "--stdin", "--record", bad)
	require.Equal(t, exitInternal, code)
}

func TestRunConfigSelectsClassifier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := filepath.Join(dir, "swiftdoc.yaml")
	writeFile(t, cfg, "documentable:\n  kinds: []\n  keywords: [let]\n")

	code, out, errOut := runCLI(t, "/// doc\nlet g = 0", "offsets", "--stdin", "--config", cfg)
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, "<stdin>:8\n", out)

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "unknown: true\n")
	code, _, errOut = runCLI(t, "", "offsets", "--stdin", "--config", bad)
	require.Equal(t, exitInternal, code)
	require.Contains(t, errOut, bad)
}

func TestRunBackends(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCLI(t, "", "backends")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Contains(t, out, "* lexer\n")

	code, _, errOut = runCLI(t, "", "backends", "--backend", "missing")
	require.Equal(t, exitInternal, code)
	require.Contains(t, errOut, `unknown syntax map backend "missing"`)
}

func TestRunIndexAndSearch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db := filepath.Join(dir, "docs.db")
	src := filepath.Join(dir, "src")
	bicycle := filepath.Join(src, "Bicycle.swift")
	writeFile(t, bicycle, bicycleSource)
	writeFile(t, filepath.Join(src, "Global.swift"), "/// Comment\nlet global = 0\n")

	code, out, errOut := runCLI(t, "", "index", "--db", db, src)
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, db+": 2 updated, 0 unchanged, 0 removed, 3 entries\n", out)

	code, out, errOut = runCLI(t, "", "index", "--db", db, "--prune", bicycle)
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Equal(t, db+": 0 updated, 1 unchanged, 1 removed, 2 entries\n", out)

	code, out, errOut = runCLI(t, "", "search", "--db", db, "--format", "json", "bicycle")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	var results []struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.Equal(t, "Bicycle", results[0].Name)
	require.Equal(t, bicycle, results[0].Path)
	require.Equal(t, "init", results[1].Name)

	code, out, _ = runCLI(t, "", "search", "--db", db, "global")
	require.Equal(t, exitIssues, code)
	require.Empty(t, out)
}

func TestColorEnabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.True(t, colorEnabled(colorAlways, &buf))
	require.False(t, colorEnabled(colorNever, &buf))
	require.False(t, colorEnabled(colorAuto, &buf), "buffers are never terminals")
}

func TestRunColorAlways(t *testing.T) {
	t.Parallel()

	var out, errb bytes.Buffer
	code := run(context.Background(), strings.NewReader("/// Comment\nlet global = 0"), &out, &errb,
		[]string{"offsets", "--stdin", "--color", "always"})
	require.Equal(t, exitOK, code, "stderr=%q", errb.String())
	require.Contains(t, out.String(), "\x1b[")
	require.Contains(t, out.String(), "16")
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	code, out, errOut := runCLI(t, "", "version")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Contains(t, out, "swiftdoc dev\n")
	require.Contains(t, out, "Commit:")
	require.Contains(t, out, "Go version:")
	require.Contains(t, out, "OS/Arch:")
}

func TestRunServe(t *testing.T) {
	t.Parallel()

	frame := func(body string) string {
		return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(body), body)
	}
	in := frame(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`) +
		frame(`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":"file:///g.swift","version":1,"text":"/// Global.\nlet g = 0\n"}}}`) +
		frame(`{"jsonrpc":"2.0","id":2,"method":"textDocument/hover","params":{"textDocument":{"uri":"file:///g.swift"},"position":{"line":1,"character":4}}}`) +
		frame(`{"jsonrpc":"2.0","method":"exit"}`)

	code, out, errOut := runCLI(t, in, "serve")
	require.Equal(t, exitOK, code, "stderr=%q", errOut)
	require.Contains(t, out, `"name":"swiftdoc"`)
	require.Contains(t, out, `"hoverProvider":true`)
	require.Contains(t, out, "let g = 0")
	require.Contains(t, out, "Global.")
}

func TestRunRejectsInvalidArgs(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		args []string
		want string
	}{
		"stdin with path":  {args: []string{"comment", "--stdin", "a.swift"}, want: "positional file path is not allowed with --stdin"},
		"missing path":     {args: []string{"offsets"}, want: "at least one input path is required"},
		"bad format":       {args: []string{"docs", "--format", "xml", "a.swift"}, want: "--format must be one of"},
		"bad color":        {args: []string{"offsets", "--color", "rainbow", "a.swift"}, want: "--color must be one of"},
		"bad jobs":         {args: []string{"offsets", "--jobs", "0", "a.swift"}, want: "--jobs must be positive"},
		"unknown flag":     {args: []string{"offsets", "--frobnicate"}, want: "unknown flag"},
		"unknown command":  {args: []string{"frobnicate"}, want: "unknown command"},
		"missing file":     {args: []string{"comment", "missing.swift"}, want: "read missing.swift"},
		"too many paths":   {args: []string{"lines", "--start", "0", "--length", "0", "a", "b"}, want: "accepts at most 1 arg"},
		"missing required": {args: []string{"decl", "--stdin"}, want: "record"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			code, out, errOut := runCLI(t, "", tc.args...)
			require.Equal(t, exitInternal, code)
			require.Empty(t, out)
			require.Contains(t, errOut, tc.want)
		})
	}
}

func TestForEachFileKeepsOrder(t *testing.T) {
	t.Parallel()

	paths := []string{"a", "b", "c", "d", "e"}
	got, err := forEachFile(context.Background(), paths, 3, func(_ context.Context, p string) (string, error) {
		return strings.ToUpper(p), nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C", "D", "E"}, got)

	empty, err := forEachFile(context.Background(), nil, 3, func(context.Context, string) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestForEachFileStopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := forEachFile(context.Background(), []string{"a", "b", "c"}, 2, func(_ context.Context, p string) (int, error) {
		if p == "b" {
			return 0, boom
		}
		return 1, nil
	})
	require.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = forEachFile(ctx, []string{"a"}, 1, func(context.Context, string) (int, error) { return 1, nil })
	require.ErrorIs(t, err, context.Canceled)
}
