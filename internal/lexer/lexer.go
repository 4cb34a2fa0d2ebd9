package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/kpumuk/swift-weaver/internal/text"
)

// DiagnosticCode identifies lexer diagnostic categories.
type DiagnosticCode string

// DiagnosticCode values emitted by the lexer.
const (
	DiagnosticInvalidByte              DiagnosticCode = "LEX_INVALID_BYTE"
	DiagnosticUnknownCharacter         DiagnosticCode = "LEX_UNKNOWN_CHARACTER"
	DiagnosticUnterminatedString       DiagnosticCode = "LEX_UNTERMINATED_STRING"
	DiagnosticUnterminatedBlockComment DiagnosticCode = "LEX_UNTERMINATED_BLOCK_COMMENT"
	DiagnosticUnterminatedIdentifier   DiagnosticCode = "LEX_UNTERMINATED_IDENTIFIER"
)

// Diagnostic is a lexer-level issue with source location.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
	Span    text.Span
}

// Result is the output of lexing source bytes.
type Result struct {
	Tokens      []Token
	Diagnostics []Diagnostic
}

// Lex tokenizes src into a lossless token stream with leading trivia.
func Lex(src []byte) Result {
	l := scanner{src: src}
	l.run()
	return Result{
		Tokens:      l.tokens,
		Diagnostics: l.diagnostics,
	}
}

type scanner struct {
	src         []byte
	i           int
	tokens      []Token
	diagnostics []Diagnostic
}

func (s *scanner) run() {
	for {
		leading, errTok := s.scanLeadingTrivia()
		if errTok != nil {
			errTok.Leading = leading
			s.tokens = append(s.tokens, *errTok)
			continue
		}

		if s.eof() {
			s.tokens = append(s.tokens, Token{
				Kind:    TokenEOF,
				Span:    span(len(s.src), len(s.src)),
				Leading: leading,
			})
			return
		}

		tok := s.scanToken()
		tok.Leading = leading
		if tok.Kind == TokenIdentifier && s.inTypePosition(leading) {
			tok.Kind = TokenTypeIdentifier
		}
		s.tokens = append(s.tokens, tok)
	}
}

// inTypePosition reports whether an identifier about to be appended names a type:
// it follows ':' on the same line, '->', 'as'/'is', or a '.' qualifying a type name.
func (s *scanner) inTypePosition(leading []Trivia) bool {
	if len(s.tokens) == 0 {
		return false
	}
	prev := s.tokens[len(s.tokens)-1]
	switch prev.Kind {
	case TokenColon:
		for _, tr := range leading {
			if tr.Kind == TriviaNewline {
				return false
			}
		}
		return true
	case TokenArrow:
		return true
	case TokenKeyword:
		word := string(prev.Bytes(s.src))
		return word == "as" || word == "is"
	case TokenDot:
		if len(s.tokens) < 2 || len(prev.Leading) > 0 {
			return false
		}
		return s.tokens[len(s.tokens)-2].Kind == TokenTypeIdentifier
	default:
		return false
	}
}

func (s *scanner) scanLeadingTrivia() ([]Trivia, *Token) {
	var out []Trivia

	for !s.eof() {
		start := s.i
		switch b := s.src[s.i]; b {
		case ' ', '\t', '\v', '\f':
			for !s.eof() && isHorizontalSpace(s.src[s.i]) {
				s.i++
			}
			out = append(out, Trivia{Kind: TriviaWhitespace, Span: span(start, s.i)})
		case '\n':
			s.i++
			out = append(out, Trivia{Kind: TriviaNewline, Span: span(start, s.i)})
		case '\r':
			s.i++
			if !s.eof() && s.src[s.i] == '\n' {
				s.i++
			}
			out = append(out, Trivia{Kind: TriviaNewline, Span: span(start, s.i)})
		case '/':
			if s.peekByte(1) == '/' {
				kind := TriviaLineComment
				if s.peekByte(2) == '/' && s.peekByte(3) != '/' {
					kind = TriviaDocLineComment
				}
				s.i += 2
				s.scanLineComment()
				out = append(out, Trivia{Kind: kind, Span: span(start, s.i)})
				continue
			}
			if s.peekByte(1) == '*' {
				t, errTok := s.scanBlockCommentOrError()
				if errTok != nil {
					return out, errTok
				}
				out = append(out, t)
				continue
			}
			return out, nil
		default:
			if b >= utf8.RuneSelf {
				r, size := utf8.DecodeRune(s.src[s.i:])
				if r == utf8.RuneError && size == 1 {
					s.i++
					return out, s.makeErrorToken(start, s.i, DiagnosticInvalidByte, "invalid UTF-8 byte")
				}
				if unicode.IsSpace(r) {
					s.i += size
					out = append(out, Trivia{Kind: TriviaWhitespace, Span: span(start, s.i)})
					continue
				}
			}
			return out, nil
		}
	}

	return out, nil
}

func (s *scanner) scanToken() Token {
	start := s.i
	b := s.src[s.i]

	switch {
	case isIdentStart(b):
		s.scanIdentifierTail()
		kind := TokenIdentifier
		if IsKeyword(string(s.src[start:s.i])) {
			kind = TokenKeyword
		}
		return Token{Kind: kind, Span: span(start, s.i)}
	case b >= utf8.RuneSelf:
		r, size := utf8.DecodeRune(s.src[s.i:])
		if r == utf8.RuneError && size == 1 {
			s.i++
			return *s.makeErrorToken(start, s.i, DiagnosticInvalidByte, "invalid UTF-8 byte")
		}
		if isUnicodeIdentRune(r) {
			s.i += size
			s.scanIdentifierTail()
			return Token{Kind: TokenIdentifier, Span: span(start, s.i)}
		}
		s.i += size
		return *s.makeErrorToken(start, s.i, DiagnosticUnknownCharacter, fmt.Sprintf("unknown character %q", r))
	case isDigit(b):
		return s.scanNumber()
	case b == '"':
		return s.scanString(0)
	case b == '`':
		return s.scanEscapedIdentifier()
	case b == '#':
		return s.scanPound()
	case b == '@':
		s.i++
		if !s.eof() && isIdentStart(s.src[s.i]) {
			s.scanIdentifierTail()
			return Token{Kind: TokenAttribute, Span: span(start, s.i)}
		}
		return Token{Kind: TokenOperator, Span: span(start, s.i)}
	case b == '.':
		if s.peekByte(1) == '.' {
			return s.scanOperator()
		}
		s.i++
		return Token{Kind: TokenDot, Span: span(start, s.i)}
	case isOperatorByte(b):
		return s.scanOperator()
	default:
		s.i++
		switch b {
		case '{':
			return Token{Kind: TokenLBrace, Span: span(start, s.i)}
		case '}':
			return Token{Kind: TokenRBrace, Span: span(start, s.i)}
		case '(':
			return Token{Kind: TokenLParen, Span: span(start, s.i)}
		case ')':
			return Token{Kind: TokenRParen, Span: span(start, s.i)}
		case '[':
			return Token{Kind: TokenLBracket, Span: span(start, s.i)}
		case ']':
			return Token{Kind: TokenRBracket, Span: span(start, s.i)}
		case ',':
			return Token{Kind: TokenComma, Span: span(start, s.i)}
		case ':':
			return Token{Kind: TokenColon, Span: span(start, s.i)}
		case ';':
			return Token{Kind: TokenSemi, Span: span(start, s.i)}
		case '\\':
			return Token{Kind: TokenOperator, Span: span(start, s.i)}
		default:
			return *s.makeErrorToken(start, s.i, DiagnosticUnknownCharacter, fmt.Sprintf("unknown character %q", b))
		}
	}
}

func (s *scanner) scanIdentifierTail() {
	for !s.eof() {
		b := s.src[s.i]
		if isIdentPart(b) {
			s.i++
			continue
		}
		if b < utf8.RuneSelf {
			return
		}
		r, size := utf8.DecodeRune(s.src[s.i:])
		if (r == utf8.RuneError && size == 1) || !isUnicodeIdentRune(r) {
			return
		}
		s.i += size
	}
}

func (s *scanner) scanEscapedIdentifier() Token {
	start := s.i
	s.i++ // '`'
	for !s.eof() {
		switch s.src[s.i] {
		case '`':
			s.i++
			return Token{Kind: TokenIdentifier, Span: span(start, s.i)}
		case '\n', '\r':
			return *s.makeErrorToken(start, s.i, DiagnosticUnterminatedIdentifier, "unterminated escaped identifier")
		}
		s.i++
	}
	return *s.makeErrorToken(start, s.i, DiagnosticUnterminatedIdentifier, "unterminated escaped identifier")
}

func (s *scanner) scanPound() Token {
	start := s.i
	hashes := 0
	for s.peekByte(hashes) == '#' {
		hashes++
	}
	if s.peekByte(hashes) == '"' {
		s.i += hashes
		tok := s.scanString(hashes)
		tok.Span.Start = text.ByteOffset(start)
		return tok
	}

	s.i++ // '#'
	if !s.eof() && isIdentStart(s.src[s.i]) {
		s.scanIdentifierTail()
		return Token{Kind: TokenPoundKeyword, Span: span(start, s.i)}
	}
	return Token{Kind: TokenOperator, Span: span(start, s.i)}
}

func (s *scanner) scanOperator() Token {
	start := s.i
	for !s.eof() {
		b := s.src[s.i]
		if b == '/' && (s.peekByte(1) == '/' || s.peekByte(1) == '*') && s.i > start {
			break
		}
		if !isOperatorByte(b) && b != '.' {
			break
		}
		s.i++
	}
	if s.i-start == 2 && s.src[start] == '-' && s.src[start+1] == '>' {
		return Token{Kind: TokenArrow, Span: span(start, s.i)}
	}
	return Token{Kind: TokenOperator, Span: span(start, s.i)}
}

func (s *scanner) scanNumber() Token {
	start := s.i
	if s.src[s.i] == '0' {
		switch s.peekByte(1) {
		case 'x', 'X':
			s.i += 2
			for !s.eof() && (isHexDigit(s.src[s.i]) || s.src[s.i] == '_') {
				s.i++
			}
			kind := TokenIntLiteral
			if s.peekByte(0) == '.' && isHexDigit(s.peekByte(1)) {
				kind = TokenFloatLiteral
				s.i++
				for !s.eof() && (isHexDigit(s.src[s.i]) || s.src[s.i] == '_') {
					s.i++
				}
			}
			if s.tryScanExponent('p', 'P') {
				kind = TokenFloatLiteral
			}
			return Token{Kind: kind, Span: span(start, s.i)}
		case 'o', 'O', 'b', 'B':
			s.i += 2
			for !s.eof() && (isDigit(s.src[s.i]) || s.src[s.i] == '_') {
				s.i++
			}
			return Token{Kind: TokenIntLiteral, Span: span(start, s.i)}
		}
	}

	for !s.eof() && (isDigit(s.src[s.i]) || s.src[s.i] == '_') {
		s.i++
	}

	kind := TokenIntLiteral
	if s.peekByte(0) == '.' && isDigit(s.peekByte(1)) {
		kind = TokenFloatLiteral
		s.i++ // '.'
		for !s.eof() && (isDigit(s.src[s.i]) || s.src[s.i] == '_') {
			s.i++
		}
	}

	if s.tryScanExponent('e', 'E') {
		kind = TokenFloatLiteral
	}

	return Token{Kind: kind, Span: span(start, s.i)}
}

func (s *scanner) tryScanExponent(lower, upper byte) bool {
	if s.eof() {
		return false
	}
	if s.src[s.i] != lower && s.src[s.i] != upper {
		return false
	}

	j := s.i + 1
	if j < len(s.src) && (s.src[j] == '+' || s.src[j] == '-') {
		j++
	}
	if j >= len(s.src) || !isDigit(s.src[j]) {
		return false
	}

	s.i = j + 1
	for !s.eof() && (isDigit(s.src[s.i]) || s.src[s.i] == '_') {
		s.i++
	}
	return true
}

// scanString scans a string literal at the opening quote. hashes is the number
// of '#' delimiters of a raw string, already consumed by the caller.
func (s *scanner) scanString(hashes int) Token {
	start := s.i
	if s.scanStringBody(hashes) {
		return Token{Kind: TokenStringLiteral, Span: span(start, s.i)}
	}
	return *s.makeErrorToken(start, s.i, DiagnosticUnterminatedString, "unterminated string literal")
}

func (s *scanner) scanStringBody(hashes int) bool {
	multiline := s.peekByte(1) == '"' && s.peekByte(2) == '"'
	if multiline {
		s.i += 3
	} else {
		s.i++
	}

	for !s.eof() {
		b := s.src[s.i]
		switch {
		case b == '"' && s.closesString(multiline, hashes):
			if multiline {
				s.i += 3
			} else {
				s.i++
			}
			s.i += hashes
			return true
		case b == '\\' && s.hashesFollow(s.i+1, hashes):
			s.i += 1 + hashes
			if s.peekByte(0) == '(' {
				s.i++
				if !s.scanInterpolation() {
					return false
				}
				continue
			}
			if !s.eof() {
				s.i++
			}
		case (b == '\n' || b == '\r') && !multiline:
			return false
		default:
			s.i++
		}
	}
	return false
}

func (s *scanner) closesString(multiline bool, hashes int) bool {
	quoteLen := 1
	if multiline {
		if s.peekByte(1) != '"' || s.peekByte(2) != '"' {
			return false
		}
		quoteLen = 3
	}
	return s.hashesFollow(s.i+quoteLen, hashes)
}

func (s *scanner) hashesFollow(at, hashes int) bool {
	for k := range hashes {
		if at+k >= len(s.src) || s.src[at+k] != '#' {
			return false
		}
	}
	return true
}

// scanInterpolation consumes an interpolated expression up to its closing paren.
func (s *scanner) scanInterpolation() bool {
	depth := 1
	for !s.eof() {
		switch s.src[s.i] {
		case '(':
			depth++
			s.i++
		case ')':
			depth--
			s.i++
			if depth == 0 {
				return true
			}
		case '"':
			if !s.scanStringBody(0) {
				return false
			}
		default:
			s.i++
		}
	}
	return false
}

func (s *scanner) scanLineComment() {
	// Caller handles the '//' prefix.
	for !s.eof() && s.src[s.i] != '\n' && s.src[s.i] != '\r' {
		s.i++
	}
}

func (s *scanner) scanBlockCommentOrError() (Trivia, *Token) {
	start := s.i
	isDoc := s.peekByte(2) == '*' && s.peekByte(3) != '*' && s.peekByte(3) != '/'
	s.i += 2 // consume /*

	depth := 1
	for !s.eof() {
		switch {
		case s.src[s.i] == '/' && s.peekByte(1) == '*':
			depth++
			s.i += 2
		case s.src[s.i] == '*' && s.peekByte(1) == '/':
			depth--
			s.i += 2
			if depth == 0 {
				kind := TriviaBlockComment
				if isDoc {
					kind = TriviaDocBlockComment
				}
				return Trivia{Kind: kind, Span: span(start, s.i)}, nil
			}
		default:
			s.i++
		}
	}

	return Trivia{}, s.makeErrorToken(start, s.i, DiagnosticUnterminatedBlockComment, "unterminated block comment")
}

func (s *scanner) makeErrorToken(start, end int, code DiagnosticCode, msg string) *Token {
	sp := span(start, end)
	s.diagnostics = append(s.diagnostics, Diagnostic{
		Code:    code,
		Message: msg,
		Span:    sp,
	})
	return &Token{
		Kind:  TokenError,
		Span:  sp,
		Flags: TokenFlagMalformed,
	}
}

func (s *scanner) eof() bool {
	return s.i >= len(s.src)
}

func (s *scanner) peekByte(delta int) byte {
	j := s.i + delta
	if j < 0 || j >= len(s.src) {
		return 0
	}
	return s.src[j]
}

func span(start, end int) text.Span {
	return text.Span{Start: text.ByteOffset(start), End: text.ByteOffset(end)}
}

func isHorizontalSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIdentStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b == '$'
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

// isUnicodeIdentRune approximates Swift's identifier character set for non-ASCII runes.
func isUnicodeIdentRune(r rune) bool {
	if unicode.IsSpace(r) || (unicode.IsPunct(r) && !unicode.Is(unicode.Pc, r)) {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) ||
		unicode.IsSymbol(r) || unicode.Is(unicode.Pc, r) || r == '\u200d'
}

func isOperatorByte(b byte) bool {
	switch b {
	case '/', '=', '-', '+', '!', '*', '%', '<', '>', '&', '|', '^', '~', '?':
		return true
	default:
		return false
	}
}
