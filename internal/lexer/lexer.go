// Package lexer turns a source buffer into an ordered token sequence.
//
// Scanning is greedy and single-pass: after skipping whitespace and
// comments, the next byte selects a sub-scanner (word, number, string,
// char, punctuation). The style is lifted from
// gmofishsauce/wut4's asm lexer (index into the buffer, per-character
// dispatch) generalized to the richer token set lang/ylex scans for.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gmofishsauce/tauc/internal/token"
)

// Error is a lex error: an observable kind plus location.
type Error struct {
	Kind string
	Loc  token.Location
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc.String(), e.Msg)
}

// Lexer scans one source buffer into a token stream.
type Lexer struct {
	file string
	src  []byte
	pos  int
	row  int
	col  int
}

// New creates a Lexer over a zero-terminated-equivalent source buffer
// Bounds-checked indexing stands in for an actual NUL sentinel at the
// end of the buffer.
func New(file string, src []byte) *Lexer {
	return &Lexer{file: file, src: src}
}

func (l *Lexer) loc() token.Location {
	return token.Location{File: l.file, Source: l.src, Offset: l.pos, Row: l.row, Col: l.col}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance() byte {
	ch := l.peek()
	if ch == 0 {
		return 0
	}
	l.pos++
	if ch == '\n' {
		l.row++
		l.col = 0
	} else {
		l.col++
	}
	return ch
}

// Lex tokenizes the whole buffer, terminated by an EOF token.
func (l *Lexer) Lex() ([]*token.Token, error) {
	var toks []*token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func isLetter(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		ch := l.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for l.peek() != '\n' && l.peek() != 0 {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			start := l.loc()
			l.advance()
			l.advance()
			closed := false
			for l.peek() != 0 {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return &Error{Kind: "unterminated-literal", Loc: start, Msg: "unterminated block comment"}
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) next() (*token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return nil, err
	}
	start := l.loc()
	ch := l.peek()

	switch {
	case ch == 0:
		start.Len = 0
		return &token.Token{Kind: token.EOF, Loc: start}, nil
	case isLetter(ch):
		return l.scanWord(start)
	case isDigit(ch):
		return l.scanNumber(start)
	case ch == '"':
		return l.scanString(start)
	case ch == '\'':
		return l.scanChar(start)
	default:
		return l.scanPunct(start)
	}
}

func (l *Lexer) finish(start token.Location, kind token.Kind) *token.Token {
	start.Len = l.pos - start.Offset
	return &token.Token{Kind: kind, Loc: start}
}

func (l *Lexer) scanWord(start token.Location) (*token.Token, error) {
	for isLetter(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	lexeme := start
	lexeme.Len = l.pos - start.Offset
	if lexeme.Len > 255 {
		return nil, &Error{Kind: "identifier-too-long", Loc: start, Msg: "identifier exceeds 255 bytes"}
	}
	text := lexeme.Text()

	switch text {
	case "true":
		tok := l.finish(start, token.LitBool)
		tok.IntVal = 1
		return tok, nil
	case "false":
		tok := l.finish(start, token.LitBool)
		tok.IntVal = 0
		return tok, nil
	case "null":
		return l.finish(start, token.LitNull), nil
	}
	if kw, ok := token.LookupKeyword(text); ok {
		return l.finish(start, kw), nil
	}
	return l.finish(start, token.IDENT), nil
}

func hasIntSuffix(s string) (string, bool) {
	for _, suf := range token.IntSuffixes {
		if strings.HasSuffix(s, suf) {
			return suf, true
		}
	}
	return "", false
}

func (l *Lexer) scanNumber(start token.Location) (*token.Token, error) {
	isFloat := false

	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
		return l.finishInt(start, 16, 2)
	}
	if l.peek() == '0' && (l.peekAt(1) == 'o' || l.peekAt(1) == 'O') {
		l.advance()
		l.advance()
		for l.peek() >= '0' && l.peek() <= '7' {
			l.advance()
		}
		return l.finishInt(start, 8, 2)
	}
	if l.peek() == '0' && (l.peekAt(1) == 'b' || l.peekAt(1) == 'B') {
		l.advance()
		l.advance()
		for l.peek() == '0' || l.peek() == '1' {
			l.advance()
		}
		return l.finishInt(start, 2, 2)
	}

	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.pos
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if isDigit(l.peek()) {
			isFloat = true
			for isDigit(l.peek()) {
				l.advance()
			}
		} else {
			l.pos = save
		}
	}

	if isFloat {
		if isLetter(l.peek()) {
			return nil, &Error{Kind: "invalid-integer-suffix", Loc: start, Msg: "unexpected character after float literal"}
		}
		lit := start
		lit.Len = l.pos - start.Offset
		v, err := strconv.ParseFloat(lit.Text(), 64)
		if err != nil {
			return nil, &Error{Kind: "ill-formed-numeric-literal", Loc: start, Msg: err.Error()}
		}
		tok := l.finish(start, token.LitFloat)
		tok.FltVal = v
		return tok, nil
	}
	return l.finishInt(start, 10, 0)
}

func (l *Lexer) finishInt(start token.Location, base int, prefixLen int) (*token.Token, error) {
	digitsStart := l.pos
	for {
		ch := l.peek()
		ok := false
		switch base {
		case 16:
			ok = isHexDigit(ch)
		case 8:
			ok = ch >= '0' && ch <= '7'
		case 2:
			ok = ch == '0' || ch == '1'
		default:
			ok = isDigit(ch)
		}
		if !ok {
			break
		}
		l.advance()
	}
	_ = digitsStart

	suffix := ""
	if isLetter(l.peek()) {
		sufStart := l.pos
		for isLetter(l.peek()) || isDigit(l.peek()) {
			l.advance()
		}
		cand := string(l.src[sufStart:l.pos])
		s, ok := hasIntSuffix(cand)
		if !ok || s != cand {
			return nil, &Error{Kind: "invalid-integer-suffix", Loc: start, Msg: "invalid integer suffix: " + cand}
		}
		suffix = s
	}

	lit := start
	lit.Len = l.pos - start.Offset
	digits := lit.Text()
	digits = strings.TrimSuffix(digits, suffix)
	switch base {
	case 16:
		digits = digits[2:]
	case 8, 2:
		digits = digits[2:]
	}
	if digits == "" {
		return nil, &Error{Kind: "ill-formed-numeric-literal", Loc: start, Msg: "missing digits"}
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return nil, &Error{Kind: "ill-formed-numeric-literal", Loc: start, Msg: err.Error()}
	}
	tok := l.finish(start, token.LitInt)
	tok.IntVal = int64(v)
	tok.Suffix = suffix
	return tok, nil
}

var simpleEscapes = map[byte]byte{
	'\\': '\\', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t',
	'\'': '\'', '"': '"',
}

func (l *Lexer) scanEscape(start token.Location) (byte, error) {
	l.advance() // consume backslash
	ch := l.peek()
	if ch == 'x' {
		l.advance()
		n := 0
		digits := 0
		for isHexDigit(l.peek()) {
			d := l.advance()
			n = n*16 + hexVal(d)
			digits++
		}
		if digits == 0 {
			return 0, &Error{Kind: "invalid-escape", Loc: start, Msg: `\x escape requires at least one hex digit`}
		}
		return byte(n), nil
	}
	if repl, ok := simpleEscapes[ch]; ok {
		l.advance()
		return repl, nil
	}
	return 0, &Error{Kind: "invalid-escape", Loc: start, Msg: "unknown escape sequence"}
}

func hexVal(d byte) int {
	switch {
	case d >= '0' && d <= '9':
		return int(d - '0')
	case d >= 'a' && d <= 'f':
		return int(d-'a') + 10
	default:
		return int(d-'A') + 10
	}
}

func (l *Lexer) scanString(start token.Location) (*token.Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		ch := l.peek()
		if ch == 0 {
			return nil, &Error{Kind: "unterminated-literal", Loc: start, Msg: "unterminated string literal"}
		}
		if ch == '"' {
			l.advance()
			break
		}
		if ch == '\\' {
			b, err := l.scanEscape(start)
			if err != nil {
				return nil, err
			}
			sb.WriteByte(b)
			continue
		}
		sb.WriteByte(l.advance())
	}
	tok := l.finish(start, token.LitString)
	tok.StrVal = sb.String()
	return tok, nil
}

func (l *Lexer) scanChar(start token.Location) (*token.Token, error) {
	l.advance() // opening quote
	if l.peek() == '\'' {
		return nil, &Error{Kind: "unterminated-literal", Loc: start, Msg: "empty character literal"}
	}
	var value byte
	var err error
	if l.peek() == '\\' {
		if l.peekAt(1) == 'x' {
			escStart := l.loc()
			l.advance()
			l.advance()
			n := 0
			digits := 0
			for isHexDigit(l.peek()) && digits < 4 {
				d := l.advance()
				n = n*16 + hexVal(d)
				digits++
			}
			if digits == 0 {
				return nil, &Error{Kind: "invalid-escape", Loc: escStart, Msg: `\x escape requires at least one hex digit`}
			}
			value = byte(n)
		} else {
			value, err = l.scanEscape(start)
			if err != nil {
				return nil, err
			}
		}
	} else {
		value = l.advance()
	}
	if l.peek() != '\'' {
		return nil, &Error{Kind: "unterminated-literal", Loc: start, Msg: "unterminated character literal"}
	}
	l.advance()
	tok := l.finish(start, token.LitChar)
	tok.IntVal = int64(value)
	return tok, nil
}

// punctTable is checked longest-match-first.
var punctTable = []struct {
	text string
	kind token.Kind
}{
	{"...", token.PunctDotDot}, // reserved spelling handled by parser for variadic prefix
	{"..", token.PunctDotDot},
	{"->", token.PunctArrow},
	{"?.", token.PunctQDot},
	{"*.", token.PunctStarDot},
	{"&&", token.PunctAndAnd},
	{"||", token.PunctOrOr},
	{"==", token.PunctEq},
	{"!=", token.PunctNe},
	{"<=", token.PunctLe},
	{">=", token.PunctGe},
	{"<<", token.PunctShl},
	{">>", token.PunctShr},
	{"++", token.PunctPlusPlus},
	{"--", token.PunctMinusMinus},
	{"(", token.PunctLParen}, {")", token.PunctRParen},
	{"[", token.PunctLBracket}, {"]", token.PunctRBracket},
	{"{", token.PunctLBrace}, {"}", token.PunctRBrace},
	{",", token.PunctComma}, {":", token.PunctColon}, {";", token.PunctSemi},
	{".", token.PunctDot},
	{"+", token.PunctPlus}, {"-", token.PunctMinus}, {"*", token.PunctStar},
	{"/", token.PunctSlash}, {"%", token.PunctPercent},
	{"&", token.PunctAmp}, {"|", token.PunctPipe}, {"^", token.PunctCaret},
	{"~", token.PunctTilde}, {"!", token.PunctBang},
	{"<", token.PunctLt}, {">", token.PunctGt}, {"=", token.PunctAssign},
}

func (l *Lexer) scanPunct(start token.Location) (*token.Token, error) {
	rest := l.src[l.pos:]
	for _, p := range punctTable {
		if strings.HasPrefix(string(rest), p.text) {
			for range p.text {
				l.advance()
			}
			return l.finish(start, p.kind), nil
		}
	}
	return nil, &Error{Kind: "unexpected-character", Loc: start, Msg: fmt.Sprintf("unexpected character %q", l.peek())}
}
