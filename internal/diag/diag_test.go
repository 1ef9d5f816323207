package diag

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/tauc/internal/token"
)

func loc(src string, row, col, offset, length int) token.Location {
	return token.Location{File: "test.tau", Source: []byte(src), Offset: offset, Row: row, Col: col, Len: length}
}

func TestRenderErrorIncludesHeaderAndCaret(t *testing.T) {
	src := "fun f(): i32 { return y }"
	d := New(loc(src, 0, 22, 22, 1), "undefined symbol", `"y" is not declared`)
	out := d.Render()

	require.Contains(t, out, "test.tau:1:23")
	require.Contains(t, out, "undefined symbol")
	require.Contains(t, out, src)
	require.Contains(t, out, "^")
	require.Contains(t, out, `"y" is not declared`)
}

func TestRenderWarningUsesWarningSeverityString(t *testing.T) {
	src := "var x: i32 = 1;"
	d := Warning(loc(src, 0, 4, 4, 1), "shadowed declaration", "x shadows an outer declaration")
	require.Equal(t, "warning", d.Severity.String())

	out := d.Render()
	require.Contains(t, out, "shadowed declaration")
	require.Contains(t, out, "x shadows an outer declaration")
}

func TestErrorSeverityStringIsError(t *testing.T) {
	d := New(loc("x", 0, 0, 0, 1), "t", "m")
	require.Equal(t, "error", d.Severity.String())
}

func TestRenderCaretLengthMatchesTokenSpan(t *testing.T) {
	src := "foobar"
	d := New(loc(src, 0, 0, 0, 3), "title", "")
	out := d.Render()
	require.Contains(t, out, "^^^")
	require.NotContains(t, out, "^^^^")
}

func TestRenderZeroLengthCaretStillShowsOneCaret(t *testing.T) {
	src := "x"
	d := New(loc(src, 0, 0, 0, 0), "title", "")
	out := d.Render()
	require.Contains(t, out, "^")
}

func TestRenderMultilineSourceExtractsOffendingLineOnly(t *testing.T) {
	src := "var a: i32 = 1;\nvar b: i32 = undefined;\nvar c: i32 = 2;"
	offset := 29 // into the second line, at "undefined"
	d := New(loc(src, 1, 13, offset, 9), "undefined symbol", "")
	out := d.Render()
	require.Contains(t, out, "var b: i32 = undefined;")
	require.NotContains(t, out, "var a: i32 = 1;")
	require.NotContains(t, out, "var c: i32 = 2;")
}
