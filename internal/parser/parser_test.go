package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/lexer"
)

func lexString(t *testing.T, src string) []*ast.Node {
	t.Helper()
	toks, err := lexer.New("test.tau", []byte(src)).Lex()
	require.NoError(t, err)
	prog, _, err := ParseProgram(toks)
	require.NoError(t, err)
	return prog.List
}

func TestParseMainFunctionScenario(t *testing.T) {
	decls := lexString(t, "fun main(): i32 { return 0 }")
	require.Len(t, decls, 1)

	fn := decls[0]
	require.Equal(t, ast.NodeFunDecl, fn.Kind)
	require.Equal(t, "main", fn.Name)
	require.Empty(t, fn.List)
	require.False(t, fn.IsGen)
	require.Equal(t, ast.NodeTypeName, fn.A.Kind)
	require.Equal(t, "i32", fn.A.Name)

	body := fn.B
	require.Equal(t, ast.NodeBlock, body.Kind)
	require.Len(t, body.List, 1)

	ret := body.List[0]
	require.Equal(t, ast.NodeReturn, ret.Kind)
	require.Equal(t, ast.NodeLiteral, ret.A.Kind)
	require.Equal(t, int64(0), ret.A.IntVal)
}

func TestParseFunctionWithParamAndDefault(t *testing.T) {
	decls := lexString(t, "fun add(x: i32, y: i32 = 1): i32 { return x + y }")
	fn := decls[0]
	require.Len(t, fn.List, 2)
	require.Equal(t, "x", fn.List[0].Name)
	require.Nil(t, fn.List[0].B)
	require.Equal(t, "y", fn.List[1].Name)
	require.NotNil(t, fn.List[1].B)
}

func TestParamWithoutDefaultAfterDefaultIsError(t *testing.T) {
	toks, err := lexer.New("t.tau", []byte("fun f(x: i32 = 1, y: i32) { }")).Lex()
	require.NoError(t, err)
	_, _, err = ParseProgram(toks)
	require.Error(t, err)
}

func TestParseExternCdeclVariadic(t *testing.T) {
	decls := lexString(t, `extern "cdecl" fun printf(fmt: ptr i8, ...): i32;`)
	fn := decls[0]
	require.Equal(t, ast.NodeFunDecl, fn.Kind)
	require.Equal(t, "cdecl", fn.ABI)
	require.True(t, fn.Variadic)
	require.Nil(t, fn.B)
}

func TestParseVisibilityModifier(t *testing.T) {
	decls := lexString(t, "pub fun f(): i32 { return 0 }")
	require.Equal(t, "pub", decls[0].StrVal)
}

func TestParseStructDecl(t *testing.T) {
	decls := lexString(t, "struct Point { x: i32; y: i32; }")
	s := decls[0]
	require.Equal(t, ast.NodeStructDecl, s.Kind)
	require.Equal(t, "Point", s.Name)
	require.Len(t, s.List, 2)
	require.Equal(t, "x", s.List[0].Name)
	require.Equal(t, "y", s.List[1].Name)
}

func TestParseEnumDecl(t *testing.T) {
	decls := lexString(t, "enum Color { Red, Green, Blue }")
	e := decls[0]
	require.Equal(t, ast.NodeEnumDecl, e.Kind)
	require.Len(t, e.List, 3)
	require.Equal(t, "Blue", e.List[2].Name)
}

func TestParseModDecl(t *testing.T) {
	decls := lexString(t, "mod util { const x: i32 = 1; }")
	m := decls[0]
	require.Equal(t, ast.NodeModDecl, m.Kind)
	require.Equal(t, "util", m.Name)
	require.Len(t, m.List, 1)
	require.Equal(t, ast.NodeConstDecl, m.List[0].Kind)
}

func TestParseForRangeLoop(t *testing.T) {
	decls := lexString(t, "fun f() { for i in 0..10 { } }")
	body := decls[0].B
	forStmt := body.List[0]
	require.Equal(t, ast.NodeFor, forStmt.Kind)
	require.Equal(t, "i", forStmt.Name)
	require.Equal(t, ast.NodeRange, forStmt.A.Kind)
}

func TestParseTypeModifiersAndArray(t *testing.T) {
	// Postfix `[N]` binds to the innermost base type name; prefix
	// modifiers wrap around the result, so "mut ptr i32[4]" reads as
	// "a mutable pointer to an array of 4 i32", not an array of pointers.
	decls := lexString(t, "var v: mut ptr i32[4]; ")
	v := decls[0]
	require.Equal(t, ast.NodeTypeMod, v.A.Kind)
	require.Equal(t, ast.ModMut, v.A.Modifier)

	ptrNode := v.A.A
	require.Equal(t, ast.NodeTypeMod, ptrNode.Kind)
	require.Equal(t, ast.ModPtr, ptrNode.Modifier)

	arrayNode := ptrNode.A
	require.Equal(t, ast.NodeTypeArray, arrayNode.Kind)
	require.Equal(t, int64(4), arrayNode.IntVal)
	require.Equal(t, "i32", arrayNode.A.Name)
}

func TestParseFunType(t *testing.T) {
	decls := lexString(t, "var cb: fun(i32, i32) -> i32;")
	typ := decls[0].A
	require.Equal(t, ast.NodeTypeFun, typ.Kind)
	require.Len(t, typ.List, 2)
	require.Equal(t, "i32", typ.A.Name)
}

func TestParseBreakContinueDefer(t *testing.T) {
	decls := lexString(t, "fun f() { while 1 { break; continue; } defer f(); }")
	body := decls[0].B
	whileStmt := body.List[0]
	require.Equal(t, ast.NodeBreak, whileStmt.B.List[0].Kind)
	require.Equal(t, ast.NodeContinue, whileStmt.B.List[1].Kind)
	require.Equal(t, ast.NodeDefer, body.List[1].Kind)
}

func TestParseIfElseIf(t *testing.T) {
	decls := lexString(t, "fun f() { if 1 { } else if 0 { } else { } }")
	ifStmt := decls[0].B.List[0]
	require.Equal(t, ast.NodeIf, ifStmt.Kind)
	require.Equal(t, ast.NodeIf, ifStmt.C.Kind)
	require.NotNil(t, ifStmt.C.C)
}

func TestShuntingYardAdditionBindsLooserThanMultiplication(t *testing.T) {
	decls := lexString(t, "fun f() { a + b * c; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.NodeBinary, expr.Kind)
	require.Equal(t, ast.BinAdd, expr.BinaryOp)
	require.Equal(t, ast.NodeExprIdent, expr.A.Kind)
	require.Equal(t, "a", expr.A.Name)
	require.Equal(t, ast.BinMul, expr.B.BinaryOp)
}

func TestShuntingYardMultiplicationBindsTighterOnTheLeft(t *testing.T) {
	decls := lexString(t, "fun f() { a * b + c; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.BinAdd, expr.BinaryOp)
	require.Equal(t, ast.BinMul, expr.A.BinaryOp)
	require.Equal(t, "c", expr.B.Name)
}

func TestShuntingYardAssignmentIsRightAssociative(t *testing.T) {
	decls := lexString(t, "fun f() { a = b = c; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.NodeAssign, expr.Kind)
	require.Equal(t, "a", expr.A.Name)
	require.Equal(t, ast.NodeAssign, expr.B.Kind)
	require.Equal(t, "b", expr.B.A.Name)
	require.Equal(t, "c", expr.B.B.Name)
}

func TestShuntingYardSubtractionIsLeftAssociative(t *testing.T) {
	decls := lexString(t, "fun f() { a - b - c; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.BinSub, expr.BinaryOp)
	require.Equal(t, "c", expr.B.Name)
	require.Equal(t, ast.BinSub, expr.A.BinaryOp)
	require.Equal(t, "a", expr.A.A.Name)
	require.Equal(t, "b", expr.A.B.Name)
}

func TestShuntingYardCallAndMember(t *testing.T) {
	decls := lexString(t, "fun f() { obj.method(1, 2).field; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.NodeMember, expr.Kind)
	require.Equal(t, "field", expr.Name)
	call := expr.A
	require.Equal(t, ast.NodeCall, call.Kind)
	require.Len(t, call.List, 2)
	method := call.A
	require.Equal(t, ast.NodeMember, method.Kind)
	require.Equal(t, "method", method.Name)
	require.Equal(t, "obj", method.A.Name)
}

func TestShuntingYardSubscript(t *testing.T) {
	decls := lexString(t, "fun f() { a[i + 1]; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.NodeIndex, expr.Kind)
	require.Equal(t, "a", expr.A.Name)
	require.Equal(t, ast.BinAdd, expr.B.BinaryOp)
}

func TestShuntingYardSizeofAndIs(t *testing.T) {
	decls := lexString(t, "fun f() { sizeof i32; x is i32; x as i32; }")
	stmts := decls[0].B.List
	require.Equal(t, ast.TypeOpSizeof, stmts[0].A.TypeOp)
	require.Equal(t, "i32", stmts[0].A.A.Name)

	require.Equal(t, ast.TypeOpIs, stmts[1].A.TypeOp)
	require.Equal(t, "x", stmts[1].A.A.Name)
	require.Equal(t, "i32", stmts[1].A.B.Name)

	require.Equal(t, ast.TypeOpAs, stmts[2].A.TypeOp)
}

func TestShuntingYardGroupingParens(t *testing.T) {
	decls := lexString(t, "fun f() { (a + b) * c; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.BinMul, expr.BinaryOp)
	require.Equal(t, ast.BinAdd, expr.A.BinaryOp)
}

func TestShuntingYardUnaryPrefixVsBinary(t *testing.T) {
	decls := lexString(t, "fun f() { -a + b; }")
	expr := decls[0].B.List[0].A
	require.Equal(t, ast.BinAdd, expr.BinaryOp)
	require.Equal(t, ast.NodeUnary, expr.A.Kind)
	require.Equal(t, ast.UnaryMinus, expr.A.UnaryOp)
}

func TestParseErrorOnMissingSemicolon(t *testing.T) {
	toks, err := lexer.New("t.tau", []byte("fun f(): i32 { return 0 }\nvar x: i32")).Lex()
	require.NoError(t, err)
	_, _, err = ParseProgram(toks)
	require.Error(t, err)
}
