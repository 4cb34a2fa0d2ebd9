package text

import (
	"errors"
	"fmt"
	"slices"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrOutOfRange reports a byte range that does not fit the source or splits a scalar.
var ErrOutOfRange = errors.New("byte range out of range")

// RangeError describes a rejected byte range. It unwraps to ErrOutOfRange.
type RangeError struct {
	Start  ByteOffset
	Length ByteOffset
	Size   ByteOffset
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("byte range (start=%d, length=%d) over %d bytes: %s", e.Start, e.Length, e.Size, e.Reason)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// Index maps byte offsets in a UTF-8 source to scalars, lines and substrings.
//
// An Index is immutable once built and safe for concurrent use. Build one per
// source text and pass it to every component that needs offset lookups.
//
// Line semantics:
//   - Lines are split on '\n'; the terminator belongs to the line it ends.
//   - A final line exists even when the source does not end with a newline.
//   - Invalid UTF-8 bytes count as one scalar each.
type Index struct {
	path       string
	src        string
	lineStarts []ByteOffset
	// scalarAt[i] is the scalar index starting at byte i, or -1 inside an encoded scalar.
	// It has len(src)+1 entries; the last one is the scalar count.
	scalarAt []int32
	// scalarStarts[i] is the byte offset of scalar i, plus a trailing len(src).
	scalarStarts []ByteOffset
}

var errNilIndex = errors.New("nil Index")

// NewIndex builds an index over src.
func NewIndex(src []byte) *Index {
	return NewIndexString(string(src))
}

// NewIndexString builds an index over src without copying it.
func NewIndexString(src string) *Index {
	lineStarts := []ByteOffset{0}
	scalarAt := make([]int32, len(src)+1)
	scalarStarts := make([]ByteOffset, 0, len(src)+1)

	n := int32(0)
	for i := 0; i < len(src); {
		_, size := utf8.DecodeRuneInString(src[i:])
		scalarAt[i] = n
		for j := 1; j < size; j++ {
			scalarAt[i+j] = -1
		}
		scalarStarts = append(scalarStarts, ByteOffset(i))
		if src[i] == '\n' {
			lineStarts = append(lineStarts, ByteOffset(i+1))
		}
		n++
		i += size
	}
	scalarAt[len(src)] = n
	scalarStarts = append(scalarStarts, ByteOffset(len(src)))

	return &Index{
		src:          src,
		lineStarts:   lineStarts,
		scalarAt:     scalarAt,
		scalarStarts: scalarStarts,
	}
}

// WithPath returns a copy of the index labelled with the file path it was read from.
// The lookup tables are shared.
func (ix *Index) WithPath(path string) *Index {
	if ix == nil {
		return nil
	}
	out := *ix
	out.path = path
	return &out
}

// Path returns the file path the index was labelled with, if any.
func (ix *Index) Path() string {
	if ix == nil {
		return ""
	}
	return ix.path
}

// Source returns the indexed text.
func (ix *Index) Source() string {
	if ix == nil {
		return ""
	}
	return ix.src
}

// Len returns the source length in bytes.
func (ix *Index) Len() ByteOffset {
	if ix == nil {
		return 0
	}
	return ByteOffset(len(ix.src))
}

// ScalarCount returns the number of Unicode scalars in the source.
func (ix *Index) ScalarCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.scalarStarts) - 1
}

// LineCount returns the number of logical lines in the source.
func (ix *Index) LineCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.lineStarts)
}

// IsBoundary reports whether off lies between two complete scalars.
func (ix *Index) IsBoundary(off ByteOffset) bool {
	if ix == nil || !off.IsValid() || off > ix.Len() {
		return false
	}
	return ix.scalarAt[off] >= 0
}

// Substring returns the text whose bytes are exactly [start, start+length).
func (ix *Index) Substring(start, length ByteOffset) (string, error) {
	sp, err := ix.checkRange(start, length)
	if err != nil {
		return "", err
	}
	return ix.src[sp.Start:sp.End], nil
}

// SpanText returns the text covered by sp.
func (ix *Index) SpanText(sp Span) (string, error) {
	return ix.Substring(sp.Start, sp.Len())
}

// SubstringLines returns every line touched by [start, start+length), each with
// its original terminator. An empty range selects the line containing start;
// a range ending right after a newline does not select the following line.
func (ix *Index) SubstringLines(start, length ByteOffset) (string, error) {
	sp, err := ix.LineSpan(start, length)
	if err != nil {
		return "", err
	}
	return ix.src[sp.Start:sp.End], nil
}

// LineSpan returns the byte span of the lines SubstringLines would select.
func (ix *Index) LineSpan(start, length ByteOffset) (Span, error) {
	sp, err := ix.checkRange(start, length)
	if err != nil {
		return Span{}, err
	}
	first := ix.lineForOffset(sp.Start)
	last := first
	if length > 0 {
		last = ix.lineForOffset(sp.End - 1)
	}
	lineStart, _, _ := ix.lineBounds(first)
	_, lineEnd, _ := ix.lineBounds(last)
	return Span{Start: lineStart, End: lineEnd}, nil
}

// LineRange returns the 1-based inclusive lines spanned by [start, start+length).
// The line of the end position counts, so a range ending right after a newline
// reaches the following line. It reports false for empty sources and ranges
// that cannot be resolved.
func (ix *Index) LineRange(start, length ByteOffset) (LineRange, bool) {
	if ix == nil || len(ix.src) == 0 {
		return LineRange{}, false
	}
	sp, err := ix.checkRange(start, length)
	if err != nil {
		return LineRange{}, false
	}
	return LineRange{
		Start: ix.lineForOffset(sp.Start) + 1,
		End:   ix.lineForOffset(sp.End) + 1,
	}, true
}

// Line returns the 1-based line number containing off.
func (ix *Index) Line(off ByteOffset) (int, error) {
	if err := ix.validateOffset(off); err != nil {
		return 0, err
	}
	return ix.lineForOffset(off) + 1, nil
}

// LineText returns the content of the 1-based line without its terminator.
func (ix *Index) LineText(line int) (string, error) {
	if ix == nil {
		return "", errNilIndex
	}
	if line < 1 || line > ix.LineCount() {
		return "", fmt.Errorf("line out of range: %d", line)
	}
	start, _, contentEnd := ix.lineBounds(line - 1)
	return ix.src[start:contentEnd], nil
}

// ScalarOffset converts a byte offset to a scalar index.
func (ix *Index) ScalarOffset(off ByteOffset) (int, error) {
	if err := ix.validateOffset(off); err != nil {
		return 0, err
	}
	n := ix.scalarAt[off]
	if n < 0 {
		return 0, &RangeError{Start: off, Size: ix.Len(), Reason: "offset splits a multi-byte scalar"}
	}
	return int(n), nil
}

// ByteOffsetForScalar converts a scalar index to a byte offset.
func (ix *Index) ByteOffsetForScalar(n int) (ByteOffset, error) {
	if ix == nil {
		return 0, errNilIndex
	}
	if n < 0 || n >= len(ix.scalarStarts) {
		return 0, fmt.Errorf("scalar index out of range: %d > %d: %w", n, ix.ScalarCount(), ErrOutOfRange)
	}
	return ix.scalarStarts[n], nil
}

// OffsetToPoint converts a byte offset to a UTF-8 byte-based point.
func (ix *Index) OffsetToPoint(off ByteOffset) (Point, error) {
	if err := ix.validateOffset(off); err != nil {
		return Point{}, err
	}
	line := ix.lineForOffset(off)
	return Point{
		Line:   line,
		Column: int(off - ix.lineStarts[line]),
	}, nil
}

// OffsetToUTF16Position converts a byte offset to an editor-facing UTF-16 position.
func (ix *Index) OffsetToUTF16Position(off ByteOffset) (UTF16Position, error) {
	if err := ix.validateOffset(off); err != nil {
		return UTF16Position{}, err
	}
	if ix.scalarAt[off] < 0 {
		return UTF16Position{}, &RangeError{Start: off, Size: ix.Len(), Reason: "offset splits a multi-byte scalar"}
	}

	line := ix.lineForOffset(off)
	start, nextStart, contentEnd := ix.lineBounds(line)

	// Offsets inside a CRLF terminator collapse to the line end.
	if off > contentEnd && off < nextStart {
		off = contentEnd
	}

	units := 0
	for _, r := range ix.src[start:off] {
		units += utf16RuneUnits(r)
	}
	return UTF16Position{Line: line, Character: units}, nil
}

// UTF16PositionToOffset converts an editor-facing UTF-16 position to a byte
// offset. Characters past the line content and positions splitting a surrogate
// pair are rejected.
func (ix *Index) UTF16PositionToOffset(pos UTF16Position) (ByteOffset, error) {
	if ix == nil {
		return 0, errNilIndex
	}
	if pos.Line < 0 || pos.Line >= len(ix.lineStarts) {
		return 0, fmt.Errorf("%w: line %d of %d", ErrOutOfRange, pos.Line, len(ix.lineStarts))
	}
	if pos.Character < 0 {
		return 0, fmt.Errorf("%w: character %d", ErrOutOfRange, pos.Character)
	}

	start, _, contentEnd := ix.lineBounds(pos.Line)
	units := 0
	for i, r := range ix.src[start:contentEnd] {
		if units == pos.Character {
			return start + ByteOffset(i), nil
		}
		n := utf16RuneUnits(r)
		if pos.Character < units+n {
			return 0, fmt.Errorf("%w: character %d splits a surrogate pair", ErrOutOfRange, pos.Character)
		}
		units += n
	}
	if units == pos.Character {
		return contentEnd, nil
	}
	return 0, fmt.Errorf("%w: character %d > %d", ErrOutOfRange, pos.Character, units)
}

func (ix *Index) checkRange(start, length ByteOffset) (Span, error) {
	if ix == nil {
		return Span{}, errNilIndex
	}
	size := ix.Len()
	reject := func(reason string) (Span, error) {
		return Span{}, &RangeError{Start: start, Length: length, Size: size, Reason: reason}
	}
	switch {
	case !start.IsValid():
		return reject("negative start")
	case !length.IsValid():
		return reject("negative length")
	case start > size || length > size-start:
		return reject("range exceeds source length")
	case ix.scalarAt[start] < 0:
		return reject("start splits a multi-byte scalar")
	case ix.scalarAt[start+length] < 0:
		return reject("end splits a multi-byte scalar")
	}
	return SpanOf(start, length), nil
}

func (ix *Index) validateOffset(off ByteOffset) error {
	if ix == nil {
		return errNilIndex
	}
	if !off.IsValid() || off > ix.Len() {
		return &RangeError{Start: off, Size: ix.Len(), Reason: "offset out of range"}
	}
	return nil
}

func (ix *Index) lineForOffset(off ByteOffset) int {
	// largest i such that lineStarts[i] <= off
	i, found := slices.BinarySearch(ix.lineStarts, off)
	if found {
		return i
	}
	return i - 1
}

func (ix *Index) lineBounds(line int) (start ByteOffset, nextStart ByteOffset, contentEnd ByteOffset) {
	start = ix.lineStarts[line]
	if line+1 < len(ix.lineStarts) {
		nextStart = ix.lineStarts[line+1]
	} else {
		nextStart = ByteOffset(len(ix.src))
	}
	contentEnd = nextStart
	if contentEnd > start && ix.src[contentEnd-1] == '\n' {
		contentEnd--
		if contentEnd > start && ix.src[contentEnd-1] == '\r' {
			contentEnd--
		}
	}
	return start, nextStart, contentEnd
}

func utf16RuneUnits(r rune) int {
	if utf16.IsSurrogate(r) {
		return 1
	}
	if r <= 0xFFFF {
		return 1
	}
	return 2
}
