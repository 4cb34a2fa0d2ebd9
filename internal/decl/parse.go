package decl

import (
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/kpumuk/swift-weaver/internal/text"
)

const metatypeSuffix = ".Type"

// Parse returns the declaration header of rec as written in the source indexed by idx.
//
// The header is every line touched by [Offset, BodyOffset), or the line holding
// Offset when the record has no body, with surrounding whitespace and '{'
// removed. Extension-eligible records whose type name is a metatype render as
// "extension Name" followed by the source's inheritance clause. When no header
// can be sliced from the source, the annotated form is used with its markup
// removed.
//
// Parse reports false for records that do not fit the source: offsets out of
// range or splitting a scalar, a body that starts before the declaration, or a
// FilePath naming a different file than idx.
func Parse(rec Record, idx *text.Index) (string, bool) {
	if idx == nil || !sameFile(rec.FilePath, idx.Path()) {
		return "", false
	}

	header, ok := sourceHeader(rec, idx)
	if !ok {
		return "", false
	}
	if header == "" {
		header = annotatedHeader(rec.AnnotatedForm)
	}
	if header == "" {
		return "", false
	}

	if rec.Kind.ExtensionEligible() && strings.HasSuffix(rec.TypeName, metatypeSuffix) {
		name := strings.TrimSuffix(rec.TypeName, metatypeSuffix)
		return "extension " + name + inheritanceClause(header), true
	}
	return header, true
}

func sameFile(recordPath, indexPath string) bool {
	if recordPath == "" {
		return true
	}
	return filepath.Clean(recordPath) == filepath.Clean(indexPath)
}

// sourceHeader slices the header text. It reports false only for records that
// are inconsistent with the source.
func sourceHeader(rec Record, idx *text.Index) (string, bool) {
	length := text.ByteOffset(0)
	if rec.HasBody {
		if rec.BodyOffset < rec.Offset {
			return "", false
		}
		length = rec.BodyOffset - rec.Offset
	}
	lines, err := idx.SubstringLines(rec.Offset, length)
	if err != nil {
		return "", false
	}
	return strings.TrimFunc(lines, isHeaderPadding), true
}

func isHeaderPadding(r rune) bool {
	return r == '{' || unicode.IsSpace(r)
}

// annotatedHeader strips markup from an annotated declaration such as
// "<Declaration>class <Type>A</Type></Declaration>", decoding entities.
func annotatedHeader(annotated string) string {
	if strings.TrimSpace(annotated) == "" {
		return ""
	}

	dec := xml.NewDecoder(strings.NewReader(annotated))
	dec.Strict = false
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ""
		}
		if data, ok := tok.(xml.CharData); ok {
			b.Write(data)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// inheritanceClause returns the part of header starting at its first top-level
// ':' or "where", normalized to ": ..." or " where ...".
func inheritanceClause(header string) string {
	depth := 0
	for i, r := range header {
		switch r {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				return ": " + strings.TrimSpace(header[i+1:])
			}
		}
	}
	if i := strings.Index(header, " where "); i >= 0 {
		return " where " + strings.TrimSpace(header[i+len(" where "):])
	}
	return ""
}
