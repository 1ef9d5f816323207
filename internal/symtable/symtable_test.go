package symtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gmofishsauce/tauc/internal/ast"
)

func TestInsertAndLookupLocal(t *testing.T) {
	root := NewRoot()
	arena := ast.NewArena()
	decl := arena.New(ast.NodeVarDecl, nil)

	shadowed, isRedecl := root.Insert("x", decl)
	require.Nil(t, shadowed)
	require.False(t, isRedecl)

	sym, ok := root.LookupLocal("x")
	require.True(t, ok)
	require.Same(t, decl, sym.Decl)
}

func TestRedeclarationKeepsFirstBinding(t *testing.T) {
	root := NewRoot()
	arena := ast.NewArena()
	first := arena.New(ast.NodeVarDecl, nil)
	second := arena.New(ast.NodeVarDecl, nil)

	root.Insert("x", first)
	shadowed, isRedecl := root.Insert("x", second)
	require.True(t, isRedecl)
	require.Same(t, first, shadowed.Decl)

	sym, _ := root.LookupLocal("x")
	require.Same(t, first, sym.Decl)
}

func TestLookupFallsThroughToParent(t *testing.T) {
	root := NewRoot()
	arena := ast.NewArena()
	decl := arena.New(ast.NodeVarDecl, nil)
	root.Insert("outer", decl)

	child := root.NewChild()
	_, ok := child.LookupLocal("outer")
	require.False(t, ok)

	sym, owner, ok := child.Lookup("outer")
	require.True(t, ok)
	require.Same(t, decl, sym.Decl)
	require.Same(t, root, owner)
}

func TestShadowingDetection(t *testing.T) {
	root := NewRoot()
	arena := ast.NewArena()
	outer := arena.New(ast.NodeVarDecl, nil)
	root.Insert("x", outer)

	child := root.NewChild()
	require.True(t, child.IsShadowing("x"))
	require.False(t, root.IsShadowing("x"))

	inner := arena.New(ast.NodeVarDecl, nil)
	child.Insert("x", inner)
	require.False(t, child.IsShadowing("y"))
}

func TestChildTablesAreRecorded(t *testing.T) {
	root := NewRoot()
	c1 := root.NewChild()
	c2 := root.NewChild()
	require.NotSame(t, c1, c2)
	require.Same(t, root, c1.Parent())
}
