// Package comment recognizes documentation comments and normalizes their bodies.
//
// Two forms are documentation: runs of line comments starting with "///" and
// block comments opened with "/**". Plain "//" and "/*" comments are not, and
// neither are "////" or "/***" banners.
package comment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	lineMarker       = "///"
	blockOpenMarker  = "/**"
	blockCloseMarker = "*/"

	// Parts mentioning this marker are section headings for header docs, not prose.
	nameMarker = "@name"
)

// Body extracts the normalized documentation body found anywhere in s.
//
// Block comments anchored at a line start win over "///" lines. Each body part is
// re-indented with the width of its source line, the parts are joined with
// newlines, trailing whitespace is trimmed and the common leading whitespace of
// the result is removed. It reports false when s holds no documentation comment.
func Body(s string) (string, bool) {
	parts := blockParts(s)
	if len(parts) == 0 {
		parts = lineParts(s)
	}
	if len(parts) == 0 {
		return "", false
	}
	joined := strings.Join(parts, "\n")
	return RemoveCommonLeadingWhitespace(TrimTrailingWhitespace(joined)), true
}

// IsDoc reports whether a single comment's text uses a documentation marker.
func IsDoc(c string) bool {
	c = strings.TrimLeftFunc(c, unicode.IsSpace)
	switch {
	case strings.HasPrefix(c, lineMarker):
		return !strings.HasPrefix(c, lineMarker+"/")
	case strings.HasPrefix(c, blockOpenMarker):
		rest := c[len(blockOpenMarker):]
		return !strings.HasPrefix(rest, "*") && strings.Contains(rest, blockCloseMarker)
	default:
		return false
	}
}

// blockParts collects the contents of every "/** ... */" comment that opens
// after nothing but whitespace on its line. "/***" banners are skipped.
func blockParts(s string) []string {
	var parts []string
	cursor := 0
	for ls := 0; ls < len(s); ls = nextLineStart(s, ls) {
		if ls < cursor {
			continue
		}
		open := skipSpace(s, ls)
		if !strings.HasPrefix(s[open:], blockOpenMarker) || strings.HasPrefix(s[open+len(blockOpenMarker):], "*") {
			continue
		}
		bodyStart := skipSpace(s, open+len(blockOpenMarker))
		end := strings.Index(s[bodyStart:], blockCloseMarker)
		if end < 0 {
			continue
		}
		end += bodyStart
		parts = append(parts, indentedPart(s, bodyStart, s[bodyStart:end]))
		cursor = end + len(blockCloseMarker)
	}
	return parts
}

// lineParts collects the remainder of every line whose first non-blank text is
// "///", skipping "////" banners.
func lineParts(s string) []string {
	var parts []string
	for ls := 0; ls < len(s); ls = nextLineStart(s, ls) {
		marker := skipHorizontalSpace(s, ls)
		if !strings.HasPrefix(s[marker:], lineMarker) || strings.HasPrefix(s[marker:], lineMarker+"/") {
			continue
		}
		bodyStart := marker + len(lineMarker)
		bodyEnd := lineContentEnd(s, bodyStart)
		if bodyEnd == bodyStart {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, indentedPart(s, bodyStart, s[bodyStart:bodyEnd]))
	}
	return parts
}

func indentedPart(s string, at int, body string) string {
	if strings.Contains(body, nameMarker) {
		return ""
	}
	ls := lineStartBefore(s, at)
	indent := 0
	for _, r := range s[ls:lineContentEnd(s, ls)] {
		if !unicode.IsSpace(r) {
			break
		}
		indent++
	}
	return strings.Repeat(" ", indent) + body
}

func nextLineStart(s string, from int) int {
	i := strings.IndexByte(s[from:], '\n')
	if i < 0 {
		return len(s)
	}
	return from + i + 1
}

func lineStartBefore(s string, at int) int {
	return strings.LastIndexByte(s[:at], '\n') + 1
}

func lineContentEnd(s string, from int) int {
	end := len(s)
	if i := strings.IndexByte(s[from:], '\n'); i >= 0 {
		end = from + i
	}
	if end > from && s[end-1] == '\r' {
		end--
	}
	return end
}

// skipSpace skips whitespace including line breaks.
func skipSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}

// skipHorizontalSpace skips whitespace up to, but not across, a line break.
func skipHorizontalSpace(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '\n' || r == '\r' || !unicode.IsSpace(r) {
			break
		}
		i += size
	}
	return i
}
