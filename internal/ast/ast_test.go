package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaOwnsAllocatedNodes(t *testing.T) {
	a := NewArena()
	ident := a.New(NodeIdent, nil)
	ident.Name = "x"
	lit := a.New(NodeLiteral, nil)
	lit.IntVal = 42

	require.Equal(t, 2, a.Len())
	require.Equal(t, "x", ident.Ident())
	require.Equal(t, int64(42), lit.IntVal)
}

func TestKindCategoryRoundTrip(t *testing.T) {
	require.Equal(t, CatExpr, NodeBinary.Category())
	require.Equal(t, CatStmt, NodeIf.Category())
	require.Equal(t, CatDecl, NodeFunDecl.Category())
	require.Equal(t, CatParam, NodeParam.Category())
	require.Equal(t, CatProgram, NodeProgram.Category())
}

func TestIdentEmptyWithoutNameOrToken(t *testing.T) {
	a := NewArena()
	n := a.New(NodeExprIdent, nil)
	require.Equal(t, "", n.Ident())
}

func TestExprDeclRewriteShape(t *testing.T) {
	a := NewArena()
	decl := a.New(NodeVarDecl, nil)
	decl.Name = "count"

	ref := a.New(NodeExprIdent, nil)
	ref.Name = "count"
	ref.Kind = NodeExprDecl
	ref.Decl = decl

	require.Equal(t, NodeExprDecl, ref.Kind)
	require.Same(t, decl, ref.Decl)
}
