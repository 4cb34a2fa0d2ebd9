package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/kpumuk/swift-weaver/internal/decl"
	"github.com/kpumuk/swift-weaver/internal/docs"
	"github.com/kpumuk/swift-weaver/internal/text"
)

// styles holds the text output formatters.
type styles struct {
	path        *color.Color
	offset      *color.Color
	name        *color.Color
	kind        *color.Color
	declaration *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		path:        color.New(color.Bold),
		offset:      color.New(color.FgHiGreen),
		name:        color.New(color.Bold, color.FgHiBlue),
		kind:        color.New(color.FgHiBlack),
		declaration: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{s.path, s.offset, s.name, s.kind, s.declaration} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// colorEnabled resolves a --color mode. "auto" colors only a terminal w and
// honors NO_COLOR.
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case colorAlways:
		return true
	case colorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeEntry prints one documented token as
//
//	path:line:column: name (kind)
//	    declaration
//	    comment lines
//
// Without idx the column is always in UTF-16 code units.
func (a *app) writeEntry(path string, idx *text.Index, e docs.Entry, utf16 bool) {
	column := e.Position.Character + 1
	if !utf16 && idx != nil {
		if p, err := idx.OffsetToPoint(e.Offset); err == nil {
			column = p.Column + 1
		}
	}

	writef(a.stdout, "%s:%d:%d: %s", a.styles.path.Sprint(path), e.Lines.Start, column, a.styles.name.Sprint(e.Name))
	if k, ok := decl.ParseKind(e.Kind); ok {
		writef(a.stdout, " %s", a.styles.kind.Sprintf("(%s)", k.ShortName()))
	}
	writef(a.stdout, "\n")

	if e.Declaration != "" {
		for line := range strings.Lines(e.Declaration) {
			writef(a.stdout, "    %s\n", a.styles.declaration.Sprint(strings.TrimRight(line, "\r\n")))
		}
	}
	for line := range strings.Lines(e.Comment) {
		if line = strings.TrimRight(line, "\r\n"); line == "" {
			writef(a.stdout, "\n")
			continue
		}
		writef(a.stdout, "    %s\n", line)
	}
}
