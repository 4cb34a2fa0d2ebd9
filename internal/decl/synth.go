package decl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
	"github.com/kpumuk/swift-weaver/internal/text"
)

var introducerKinds = map[string]Kind{
	"class":           KindClass,
	"struct":          KindStruct,
	"enum":            KindEnum,
	"protocol":        KindProtocol,
	"extension":       KindExtension,
	"typealias":       KindTypeAlias,
	"associatedtype":  KindAssociatedType,
	"precedencegroup": KindPrecedenceGroup,
	"case":            KindEnumElement,
	"init":            KindFunctionConstructor,
	"deinit":          KindFunctionDestructor,
	"subscript":       KindFunctionSubscript,
}

// RecordFor synthesizes a declaration record for tokens[at] from a sorted syntax
// map, for sources no structural parser has described. The declaration starts at
// the keyword and attribute run directly before the token; the body offset is
// the position after the first top-level '{' that follows it.
//
// It reports false when no declaration introducer precedes the token.
func RecordFor(idx *text.Index, tokens []syntaxmap.Token, at int) (Record, bool) {
	if idx == nil || at < 0 || at >= len(tokens) {
		return Record{}, false
	}
	src := idx.Source()
	tok := tokens[at]

	first := at
	for first > 0 {
		prev := tokens[first-1]
		if !isModifierKind(prev.Kind) || !onlySpace(src, prev.End(), tokens[first].Offset) {
			break
		}
		first--
	}

	var modifiers []string
	for _, t := range tokens[first:at] {
		modifiers = append(modifiers, tokenText(src, t))
	}
	introducer := ""
	if tok.Kind == syntaxmap.KindKeyword {
		introducer = tokenText(src, tok)
	} else {
		for i := len(modifiers) - 1; i >= 0; i-- {
			if tokens[first+i].Kind == syntaxmap.KindKeyword {
				introducer = modifiers[i]
				break
			}
		}
	}

	kind := declKind(introducer, modifiers, braceDepth(src, tokens[:first], tokens[first].Offset) > 0)
	if kind == KindUnknown {
		return Record{}, false
	}

	rec := Record{
		Kind:     kind,
		Offset:   tokens[first].Offset,
		FilePath: idx.Path(),
	}
	if body, ok := bodyOffset(src, tokens[at+1:], tok.End(), kind); ok {
		rec.BodyOffset = body
		rec.HasBody = true
	}
	switch kind.Category() {
	case CategoryType, CategoryExtension:
		if kind != KindTypeAlias && kind != KindAssociatedType {
			rec.TypeName = qualifiedName(src, tok.Offset) + metatypeSuffix
		}
	}
	return rec, true
}

func declKind(introducer string, modifiers []string, member bool) Kind {
	has := func(word string) bool {
		for _, m := range modifiers {
			if m == word {
				return true
			}
		}
		return false
	}

	switch introducer {
	case "func":
		switch {
		case !member:
			return KindFunctionFree
		case has("static"):
			return KindFunctionMethodStatic
		case has("class"):
			return KindFunctionMethodClass
		default:
			return KindFunctionMethodInstance
		}
	case "var", "let":
		switch {
		case !member:
			return KindVarGlobal
		case has("static"):
			return KindVarStatic
		case has("class"):
			return KindVarClass
		default:
			return KindVarInstance
		}
	default:
		return introducerKinds[introducer]
	}
}

func isModifierKind(k syntaxmap.Kind) bool {
	return k == syntaxmap.KindKeyword || k == syntaxmap.KindAttributeBuiltin
}

func isOpaqueKind(k syntaxmap.Kind) bool {
	return k == syntaxmap.KindString || k.IsComment()
}

func tokenText(src string, t syntaxmap.Token) string {
	if t.Offset < 0 || t.End() > text.ByteOffset(len(src)) || t.Length < 0 {
		return ""
	}
	return src[t.Offset:t.End()]
}

func onlySpace(src string, from, to text.ByteOffset) bool {
	if from > to || from < 0 || to > text.ByteOffset(len(src)) {
		return false
	}
	return strings.TrimFunc(src[from:to], unicode.IsSpace) == ""
}

// braceDepth counts unclosed braces before end, skipping string and comment tokens.
func braceDepth(src string, tokens []syntaxmap.Token, end text.ByteOffset) int {
	depth := 0
	next := 0
	for pos := text.ByteOffset(0); pos < end && pos < text.ByteOffset(len(src)); pos++ {
		for next < len(tokens) && tokens[next].End() <= pos {
			next++
		}
		if next < len(tokens) && isOpaqueKind(tokens[next].Kind) && tokens[next].Offset <= pos {
			pos = tokens[next].End() - 1
			continue
		}
		switch src[pos] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

// bodyOffset scans from pos for the top-level '{' opening the declaration body.
// Statement ends, closing braces and variable initializers stop the scan.
func bodyOffset(src string, tokens []syntaxmap.Token, pos text.ByteOffset, kind Kind) (text.ByteOffset, bool) {
	depth := 0
	next := 0
	size := text.ByteOffset(len(src))
	for ; pos < size; pos++ {
		for next < len(tokens) && tokens[next].End() <= pos {
			next++
		}
		if next < len(tokens) && isOpaqueKind(tokens[next].Kind) && tokens[next].Offset <= pos {
			pos = tokens[next].End() - 1
			continue
		}
		switch src[pos] {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		case '{':
			if depth == 0 {
				return pos + 1, true
			}
		case '}', ';':
			if depth == 0 {
				return 0, false
			}
		case '=':
			if depth == 0 && kind.Category() != CategoryFunction && !isComparison(src, pos) {
				return 0, false
			}
		case '\n':
			if depth == 0 && !continuesHeader(src[pos+1:]) {
				return 0, false
			}
		}
	}
	return 0, false
}

func isComparison(src string, pos text.ByteOffset) bool {
	prevEq := pos > 0 && strings.ContainsRune("=!<>", rune(src[pos-1]))
	nextEq := int(pos)+1 < len(src) && src[pos+1] == '='
	return prevEq || nextEq
}

// continuesHeader reports whether the line after a newline still belongs to a
// declaration header, as with a body brace or where clause on its own line.
func continuesHeader(rest string) bool {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	for _, prefix := range []string{"{", "->", ":", ",", "where ", "throws", "rethrows", "async"} {
		if strings.HasPrefix(rest, prefix) {
			return true
		}
	}
	return false
}

// qualifiedName reads a dotted type name such as "Swift.Array" starting at off.
func qualifiedName(src string, off text.ByteOffset) string {
	end := int(off)
	for end < len(src) {
		r, size := utf8.DecodeRuneInString(src[end:])
		if r != '.' && r != '_' && r != '`' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end += size
	}
	return src[off:end]
}
