package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/tauc/internal/token"
)

func lexAll(t *testing.T, src string) []*token.Token {
	t.Helper()
	toks, err := New("test.tau", []byte(src)).Lex()
	require.NoError(t, err)
	return toks
}

func kinds(toks []*token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexIdentifiersAndKeywords(t *testing.T) {
	toks := lexAll(t, "fun add x y")
	require.Equal(t, []token.Kind{token.KwFun, token.IDENT, token.IDENT, token.IDENT, token.EOF}, kinds(toks))
	require.Equal(t, "add", toks[1].Lexeme())
}

func TestLexIntegerBases(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"0x2A", 42},
		{"0o52", 42},
		{"0b101010", 42},
		{"42u32", 42},
	}
	for _, c := range cases {
		toks := lexAll(t, c.src)
		require.Equal(t, token.LitInt, toks[0].Kind, c.src)
		require.Equal(t, c.want, toks[0].IntVal, c.src)
	}
}

func TestLexIntegerSuffix(t *testing.T) {
	toks := lexAll(t, "7i64")
	require.Equal(t, token.LitInt, toks[0].Kind)
	require.Equal(t, int64(7), toks[0].IntVal)
	require.Equal(t, "i64", toks[0].Suffix)
}

func TestLexInvalidIntegerSuffix(t *testing.T) {
	_, err := New("t.tau", []byte("7bogus")).Lex()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, "invalid-integer-suffix", lexErr.Kind)
}

func TestLexFloat(t *testing.T) {
	toks := lexAll(t, "3.14 2e10 1.5e-3")
	require.Equal(t, token.LitFloat, toks[0].Kind)
	require.InDelta(t, 3.14, toks[0].FltVal, 1e-9)
	require.Equal(t, token.LitFloat, toks[1].Kind)
	require.InDelta(t, 2e10, toks[1].FltVal, 1)
	require.Equal(t, token.LitFloat, toks[2].Kind)
	require.InDelta(t, 1.5e-3, toks[2].FltVal, 1e-9)
}

func TestLexString(t *testing.T) {
	toks := lexAll(t, `"hi\n\t\"there\""`)
	require.Equal(t, token.LitString, toks[0].Kind)
	require.Equal(t, "hi\n\t\"there\"", toks[0].StrVal)
}

func TestLexStringHexEscape(t *testing.T) {
	toks := lexAll(t, `"\x41\x42"`)
	require.Equal(t, "AB", toks[0].StrVal)
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := New("t.tau", []byte(`"oops`)).Lex()
	require.Error(t, err)
}

func TestLexChar(t *testing.T) {
	toks := lexAll(t, `'a' '\n' '\x41'`)
	require.Equal(t, int64('a'), toks[0].IntVal)
	require.Equal(t, int64('\n'), toks[1].IntVal)
	require.Equal(t, int64('A'), toks[2].IntVal)
}

func TestLexBoolAndNull(t *testing.T) {
	toks := lexAll(t, "true false null")
	require.Equal(t, token.LitBool, toks[0].Kind)
	require.Equal(t, int64(1), toks[0].IntVal)
	require.Equal(t, token.LitBool, toks[1].Kind)
	require.Equal(t, int64(0), toks[1].IntVal)
	require.Equal(t, token.LitNull, toks[2].Kind)
}

func TestLexPunctuationLongestMatch(t *testing.T) {
	toks := lexAll(t, "a..b -> == != <= >= << >> && || ++ --")
	want := []token.Kind{
		token.IDENT, token.PunctDotDot, token.IDENT,
		token.PunctArrow, token.PunctEq, token.PunctNe,
		token.PunctLe, token.PunctGe, token.PunctShl, token.PunctShr,
		token.PunctAndAnd, token.PunctOrOr, token.PunctPlusPlus, token.PunctMinusMinus,
		token.EOF,
	}
	require.Equal(t, want, kinds(toks))
}

func TestLexCommentsSkipped(t *testing.T) {
	toks := lexAll(t, "a // line comment\nb /* block\ncomment */ c")
	require.Equal(t, []token.Kind{token.IDENT, token.IDENT, token.IDENT, token.EOF}, kinds(toks))
}

func TestLexUnterminatedBlockComment(t *testing.T) {
	_, err := New("t.tau", []byte("a /* never closed")).Lex()
	require.Error(t, err)
}

func TestLexIdentifierTooLong(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	_, err := New("t.tau", long).Lex()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, "identifier-too-long", lexErr.Kind)
}

func TestLexRowColTracking(t *testing.T) {
	toks := lexAll(t, "a\nbb c")
	require.Equal(t, 0, toks[0].Loc.Row)
	require.Equal(t, 0, toks[0].Loc.Col)
	require.Equal(t, 1, toks[1].Loc.Row)
	require.Equal(t, 0, toks[1].Loc.Col)
	require.Equal(t, 1, toks[2].Loc.Row)
	require.Equal(t, 3, toks[2].Loc.Col)
}

func TestLexUnexpectedCharacter(t *testing.T) {
	_, err := New("t.tau", []byte("a $ b")).Lex()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, "unexpected-character", lexErr.Kind)
}
