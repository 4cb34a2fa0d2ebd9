package comment

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TrimTrailingWhitespace removes trailing whitespace and line breaks.
func TrimTrailingWhitespace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}

// RemoveCommonLeadingWhitespace strips the indentation shared by every non-blank
// line. Blank lines do not take part in the minimum and lines shorter than it are
// kept as is. A trailing line break is dropped.
func RemoveCommonLeadingWhitespace(s string) string {
	lines := splitLines(s)

	minIndent := math.MaxInt
	for _, line := range lines {
		n := leadingSpaceCount(line)
		if n < minIndent && n != utf8.RuneCountInString(line) {
			minIndent = n
		}
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if utf8.RuneCountInString(line) < minIndent {
			out = append(out, line)
			continue
		}
		out = append(out, dropRunes(line, minIndent))
	}
	return strings.Join(out, "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func leadingSpaceCount(line string) int {
	n := 0
	for _, r := range line {
		if !unicode.IsSpace(r) {
			break
		}
		n++
	}
	return n
}

func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}
