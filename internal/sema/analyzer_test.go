package sema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/lexer"
	"github.com/gmofishsauce/tauc/internal/parser"
	"github.com/gmofishsauce/tauc/internal/types"
)

func analyze(t *testing.T, src string) (*ast.Node, *Analyzer, error) {
	t.Helper()
	toks, err := lexer.New("test.tau", []byte(src)).Lex()
	require.NoError(t, err)
	prog, _, err := parser.ParseProgram(toks)
	require.NoError(t, err)
	a := New()
	err = a.Analyze(prog)
	return prog, a, err
}

func mustAnalyze(t *testing.T, src string) (*ast.Node, *Analyzer) {
	t.Helper()
	prog, a, err := analyze(t, src)
	require.NoError(t, err)
	return prog, a
}

func TestIdentifierRewrittenToDeclAndParamType(t *testing.T) {
	prog, a := mustAnalyze(t, "fun f(x: i32): i32 { return x }")
	fn := prog.List[0]
	ret := fn.B.List[0]
	ident := ret.A
	require.Equal(t, ast.NodeExprDecl, ident.Kind)
	require.Same(t, fn.List[0], ident.Decl)

	d := a.Descs()[ident]
	require.Equal(t, types.KindRef, d.Kind)
	require.Equal(t, types.KindI32, d.Elem.Kind)
	// mustAnalyze already asserts the whole program analyzed without error,
	// which is only possible if rvalue(d) (i32) converts to the declared
	// return type i32 - the check analyzeReturn performs.
}

func TestRedeclarationInSameScopeIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f() { var x: i32 = 1; var x: i32 = 2; }")
	require.Error(t, err)
}

func TestShadowingOuterScopeWarns(t *testing.T) {
	_, a, err := analyze(t, "fun f(x: i32) { { var x: i32 = 2; } }")
	require.NoError(t, err)
	require.NotEmpty(t, a.Warnings())
}

func TestUndefinedSymbolIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f(): i32 { return y }")
	require.Error(t, err)
}

func TestForwardReferenceResolves(t *testing.T) {
	_, _, err := analyze(t, "fun f(): i32 { return g() } fun g(): i32 { return 0 }")
	require.NoError(t, err)
}

func TestCallArityTooFewArgsIsError(t *testing.T) {
	_, _, err := analyze(t, "fun add(x: i32, y: i32): i32 { return x + y } fun f(): i32 { return add(1) }")
	require.Error(t, err)
}

func TestCallWithDefaultParamOmitted(t *testing.T) {
	_, _, err := analyze(t, "fun add(x: i32, y: i32 = 1): i32 { return x + y } fun f(): i32 { return add(1) }")
	require.NoError(t, err)
}

func TestCdeclVariadicAcceptsExtraArgs(t *testing.T) {
	_, _, err := analyze(t, `extern "cdecl" fun printf(fmt: i32, ...): i32;
fun f() { printf(0, 1, 2, 3); }`)
	require.NoError(t, err)
}

func TestNonCdeclTooManyArgsIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f(x: i32): i32 { return x } fun g(): i32 { return f(1, 2) }")
	require.Error(t, err)
}

func TestArithmeticPromotionWidensToLargerRank(t *testing.T) {
	prog, a := mustAnalyze(t, "fun f() { var x: i64 = 1i64; var y: i32 = 2; var z: i64 = x + y; }")
	binExpr := prog.List[0].B.List[2].B
	d := a.Descs()[binExpr]
	require.Equal(t, types.KindI64, d.Kind)
}

func TestMixedSignednessWarns(t *testing.T) {
	_, a, err := analyze(t, "fun f() { var x: i32 = 1; var y: u32 = 2u32; var z: i32 = x + y; }")
	require.NoError(t, err)
	require.NotEmpty(t, a.Warnings())
}

func TestAssignmentToConstIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f() { const x: i32 = 1; x = 2; }")
	require.Error(t, err)
}

func TestAssignmentToPlainVarIsError(t *testing.T) {
	// var x: i32 declares a read-only binding; mutability must be spelled
	// out in the type itself (var x: mut i32).
	_, _, err := analyze(t, "fun f() { var x: i32 = 1; x = 2; }")
	require.Error(t, err)
}

func TestAssignmentToMutVarSucceeds(t *testing.T) {
	_, _, err := analyze(t, "fun f() { var x: mut i32 = 1; x = 2; }")
	require.NoError(t, err)
}

func TestAddressOfConstIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f() { const x: i32 = 1; var p: ptr i32 = &x; }")
	require.Error(t, err)
}

func TestAddressOfAndDerefRoundTrip(t *testing.T) {
	_, _, err := analyze(t, "fun f() { var x: i32 = 1; var p: ptr i32 = &x; var y: i32 = *p; }")
	require.NoError(t, err)
}

func TestStructFieldAccess(t *testing.T) {
	_, _, err := analyze(t, `struct Point { x: i32; y: i32; }
fun f() { var p: Point; var x: i32 = p.x; }`)
	require.NoError(t, err)
}

func TestMemberAccessOnNonCompositeIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f() { var x: i32 = 1; var y: i32 = x.field; }")
	require.Error(t, err)
}

func TestStarDotOnPointerToStruct(t *testing.T) {
	_, _, err := analyze(t, `struct Point { x: i32; y: i32; }
fun f() { var p: ptr Point; var x: i32 = p*.x; }`)
	require.NoError(t, err)
}

func TestSubscriptOnArray(t *testing.T) {
	_, _, err := analyze(t, "fun f() { var a: i32[4]; var x: i32 = a[0]; }")
	require.NoError(t, err)
}

func TestSubscriptOnNonSubscriptableIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f() { var x: i32 = 1; var y: i32 = x[0]; }")
	require.Error(t, err)
}

func TestSizeofYieldsConstUsize(t *testing.T) {
	prog, a := mustAnalyze(t, "fun f(): usize { return sizeof i32 }")
	ret := prog.List[0].B.List[0]
	d := a.Descs()[ret.A]
	require.Equal(t, types.KindConst, d.Kind)
	require.Equal(t, types.KindUSize, d.Elem.Kind)
}

func TestForRangeBindsPromotedIntegerLoopVar(t *testing.T) {
	_, _, err := analyze(t, "fun f() { for i in 0..10 { var x: i32 = i; } }")
	require.NoError(t, err)
}

func TestBreakOutsideLoopIsError(t *testing.T) {
	_, _, err := analyze(t, "fun f() { break; }")
	require.Error(t, err)
}

func TestReturnTypeMismatchIsError(t *testing.T) {
	_, _, err := analyze(t, `struct Point { x: i32; y: i32; }
fun f(): i32 { var p: Point; return p; }`)
	require.Error(t, err)
}
