package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/tauc/internal/bytecode"
	"github.com/gmofishsauce/tauc/internal/lexer"
	"github.com/gmofishsauce/tauc/internal/parser"
	"github.com/gmofishsauce/tauc/internal/sema"
	"github.com/gmofishsauce/tauc/internal/vm"
)

func compile(t *testing.T, src string) []byte {
	t.Helper()
	toks, err := lexer.New("test.tau", []byte(src)).Lex()
	require.NoError(t, err)
	prog, _, err := parser.ParseProgram(toks)
	require.NoError(t, err)
	a := sema.New()
	require.NoError(t, a.Analyze(prog))
	code, err := bytecode.Emit(prog, a.Descs(), a.Builder())
	require.NoError(t, err)
	return code
}

// TestReturnAddImmediates is this toolchain's end-to-end smoke test: compile
// a trivial program and run it to completion, then inspect the stack top,
// the shape of scenario 6's "return 1 + 2" check.
func TestReturnAddImmediates(t *testing.T) {
	code := compile(t, "fun main(): i32 { return 1 + 2 }")
	m := vm.New(code)
	require.NoError(t, m.Run())
	top, err := m.StackTop(bytecode.Width32)
	require.NoError(t, err)
	require.Equal(t, uint64(3), top)
}

func TestArithmeticAndComparison(t *testing.T) {
	code := compile(t, `
fun main(): i32 {
	var x: i32 = 2;
	var y: i32 = 3;
	if x < y {
		return x * y
	}
	return 0
}`)
	m := vm.New(code)
	require.NoError(t, m.Run())
	top, err := m.StackTop(bytecode.Width32)
	require.NoError(t, err)
	require.Equal(t, uint64(6), top)
}

func TestWhileLoopAccumulates(t *testing.T) {
	code := compile(t, `
fun main(): i32 {
	var total: mut i32 = 0;
	var i: mut i32 = 0;
	while i < 5 {
		total = total + i;
		i = i + 1;
	}
	return total
}`)
	m := vm.New(code)
	require.NoError(t, m.Run())
	top, err := m.StackTop(bytecode.Width32)
	require.NoError(t, err)
	require.Equal(t, uint64(10), top)
}

func TestFunctionCallWithParams(t *testing.T) {
	code := compile(t, `
fun add(a: i32, b: i32): i32 {
	return a + b
}
fun main(): i32 {
	return add(4, 5)
}`)
	m := vm.New(code)
	require.NoError(t, m.Run())
	top, err := m.StackTop(bytecode.Width32)
	require.NoError(t, err)
	require.Equal(t, uint64(9), top)
}

func TestIncrementAndAssignment(t *testing.T) {
	code := compile(t, `
fun main(): i32 {
	var x: mut i32 = 0;
	x = x + 1;
	x++;
	return x
}`)
	m := vm.New(code)
	require.NoError(t, m.Run())
	top, err := m.StackTop(bytecode.Width32)
	require.NoError(t, err)
	require.Equal(t, uint64(2), top)
}

func TestDivisionByZeroErrors(t *testing.T) {
	code := compile(t, `
fun main(): i32 {
	var z: i32 = 0;
	return 1 / z
}`)
	m := vm.New(code)
	require.Error(t, m.Run())
}
