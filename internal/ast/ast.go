// Package ast defines the abstract syntax tree produced by internal/parser
// and consumed by internal/sema and internal/bytecode.
//
// Every node is one concrete type (Node) carrying a Kind discriminant and a
// payload wide enough to cover every variant — a tagged sum over fixed
// variants, the way the teacher's Instruction/InstrDef pair carries a kind
// tag plus kind-specific fields in one struct rather than a type per
// instruction. Nodes are never individually freed: an Arena owns every node
// allocated during a parse and nothing outside the arena frees them.
package ast

import "github.com/gmofishsauce/tauc/internal/token"

// Category groups Kind values the way token.Category groups token.Kind.
type Category uint8

const (
	CatIdent Category = iota
	CatType
	CatExpr
	CatStmt
	CatDecl
	CatParam
	CatEnumerator
	CatProgram
)

// Kind identifies a node variant. The high bits encode Category.
type Kind uint16

const kindShift = 8

func category(c Category) Kind { return Kind(c) << kindShift }

const (
	NodeIdent Kind = Kind(CatIdent)<<kindShift + iota
)

const (
	// Type nodes describe a type as written in source, before the type
	// builder resolves it to a hash-consed descriptor.
	NodeTypeName Kind = Kind(CatType)<<kindShift + iota // a bare identifier naming a declared type or primitive
	NodeTypeMod                                  // mut/const/ptr/ref/opt wrapping Base
	NodeTypeArray                                // array(Size) wrapping Base
	NodeTypeFun                                  // fun/gen type: Params, Base = return type
)

const (
	NodeLiteral Kind = Kind(CatExpr)<<kindShift + iota
	NodeExprIdent
	NodeExprDecl // rewritten in place by the analyzer from NodeExprIdent
	NodeUnary
	NodeBinary
	NodeAssign
	NodeCall
	NodeIndex
	NodeMember
	NodeTypeOp // is / as / sizeof / alignof
	NodeRange
)

const (
	NodeBlock Kind = Kind(CatStmt)<<kindShift + iota
	NodeIf
	NodeWhile
	NodeFor
	NodeBreak
	NodeContinue
	NodeDefer
	NodeReturn
	NodeYield
	NodeExprStmt
)

const (
	NodeVarDecl Kind = Kind(CatDecl)<<kindShift + iota
	NodeConstDecl
	NodeFunDecl
	NodeStructDecl
	NodeUnionDecl
	NodeEnumDecl
	NodeModDecl
)

const (
	NodeParam Kind = Kind(CatParam)<<kindShift + iota
)

const (
	NodeEnumerator Kind = Kind(CatEnumerator)<<kindShift + iota
)

const (
	NodeProgram Kind = Kind(CatProgram)<<kindShift + iota
)

func (k Kind) Category() Category { return Category(k >> kindShift) }

// Modifier is the wrapping kind for a NodeTypeMod node.
type Modifier uint8

const (
	ModMut Modifier = iota
	ModConst
	ModPtr
	ModRef
	ModOpt
)

// UnaryOp enumerates prefix and postfix unary operators.
type UnaryOp uint8

const (
	UnaryInvalid UnaryOp = iota
	UnaryPlus           // prefix +
	UnaryMinus          // prefix -
	UnaryBitNot         // ~
	UnaryLogNot         // !
	UnaryDeref          // *
	UnaryAddr           // &
	UnaryPreInc         // prefix ++
	UnaryPreDec         // prefix --
	UnaryPostInc        // postfix ++
	UnaryPostDec        // postfix --
)

// BinaryOp enumerates binary operators, named by what they compute.
type BinaryOp uint8

const (
	BinInvalid BinaryOp = iota
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinMod
	BinBitAnd
	BinBitOr
	BinBitXor
	BinShl
	BinShr
	BinLogAnd
	BinLogOr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

// MemberOp distinguishes the three member-access spellings.
type MemberOp uint8

const (
	MemberDot      MemberOp = iota // .
	MemberStarDot                  // *.
	MemberQuestion                 // ?.
)

// TypeOp distinguishes the four type-operator keywords.
type TypeOp uint8

const (
	TypeOpIs TypeOp = iota
	TypeOpAs
	TypeOpSizeof
	TypeOpAlignof
)

// Node is the single concrete AST node type. Field meaning depends on Kind;
// see the comments on each Kind constant and the accessor helpers below.
type Node struct {
	Kind Kind
	Tok  *token.Token

	Name string // NodeIdent, NodeTypeName, NodeVarDecl/ConstDecl/FunDecl/.../Param/Enumerator

	// Generic child slots. Which of these are populated, and what they
	// mean, is determined entirely by Kind.
	A, B, C *Node   // e.g. If: A=Cond B=Then C=Else; Binary: A=Left B=Right
	List    []*Node // e.g. Block.Stmts, Call.Args, FunDecl.Params, Program.Decls

	UnaryOp  UnaryOp
	BinaryOp BinaryOp
	MemberOp MemberOp
	TypeOp   TypeOp
	Modifier Modifier

	IntVal  int64
	FltVal  float64
	StrVal  string // NodeLiteral: string value, or an integer literal's suffix; decl nodes: "pub"/"priv"/"" visibility
	IsBool  bool
	IsMut   bool // VarDecl: declared with var rather than const (assignable only if its type is mut T)
	IsGen   bool // FunDecl: declared with `gen` instead of `fun`
	Variadic bool
	ABI     string // extern ABI name, "" if none

	// Decl is set by the analyzer on a NodeExprDecl to the declaration
	// node (NodeVarDecl/ConstDecl/FunDecl/Param) it resolved to.
	Decl *Node
}

// Arena owns every node allocated while processing one source file. Nodes
// are never freed individually; the arena is dropped as a whole once the
// bytecode for its program has been emitted.
type Arena struct {
	nodes []*Node
}

// NewArena returns an empty node arena, sized for a typical source file.
func NewArena() *Arena {
	return &Arena{nodes: make([]*Node, 0, 256)}
}

// New allocates and returns a node of the given kind, owned by the arena.
func (a *Arena) New(kind Kind, tok *token.Token) *Node {
	n := &Node{Kind: kind, Tok: tok}
	a.nodes = append(a.nodes, n)
	return n
}

// Len reports how many nodes the arena has allocated.
func (a *Arena) Len() int { return len(a.nodes) }

// Ident returns the identifier text anchored at this node's token, for
// nodes whose Name field isn't already the authoritative spelling.
func (n *Node) Ident() string {
	if n.Name != "" {
		return n.Name
	}
	if n.Tok != nil {
		return n.Tok.Lexeme()
	}
	return ""
}
