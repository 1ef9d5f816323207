package bytecode

import (
	"fmt"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/types"
)

// operandShape reports the width and arithmetic family (signed/unsigned/
// float) of an expression node's value, used to pick the matching opcode
// family for a binary or unary operator.
func (e *Emitter) operandShape(n *ast.Node) (Width, bool, bool, error) {
	d, ok := e.descs[n]
	if !ok {
		return 0, false, false, fmt.Errorf("%s: expression has no resolved type", n.Tok.Loc)
	}
	base := d.RemoveRef().RemoveConst()
	return WidthOf(base), base.IsSigned() && !base.IsFloat(), base.IsFloat(), nil
}

func arithOpcode(signed, float bool, plain, signedOp, floatOp Opcode) Opcode {
	switch {
	case float:
		return floatOp
	case signed:
		return signedOp
	default:
		return plain
	}
}

// emitBoolFromFlag emits a branch-and-push pair that turns the flags set
// by a preceding CMP/ICMP into an 8-bit 0/1 value, since §6.2's opcode
// table has no set-on-condition instruction: jumpIfTrue decides whether
// the flags mean "true".
func (e *Emitter) emitBoolFromFlag(jumpIfTrue Opcode) Width {
	trueLabel := e.newSyntheticLabel()
	end := e.newSyntheticLabel()
	e.buf.Jump(jumpIfTrue, trueLabel)
	e.buf.PushImm(0, Width8)
	e.buf.Jump(JMP, end)
	e.buf.Label(trueLabel)
	e.buf.PushImm(1, Width8)
	e.buf.Label(end)
	return Width8
}

var compareJump = map[ast.BinaryOp]Opcode{
	ast.BinEq: JE, ast.BinNe: JNE,
	ast.BinLt: JL, ast.BinLe: JLE, ast.BinGt: JG, ast.BinGe: JGE,
}

func (e *Emitter) emitBinary(n *ast.Node) (Width, error) {
	switch n.BinaryOp {
	case ast.BinLogAnd, ast.BinLogOr:
		return e.emitLogical(n)
	}

	lw, signed, float, err := e.operandShape(n.A)
	if err != nil {
		return 0, err
	}
	if _, err := e.emitExpr(n.A); err != nil {
		return 0, err
	}
	if _, err := e.emitExpr(n.B); err != nil {
		return 0, err
	}

	if jumpOp, ok := compareJump[n.BinaryOp]; ok {
		if float {
			return 0, fmt.Errorf("%s: floating-point comparison is not supported by this emitter", n.Tok.Loc)
		}
		cmp := CMP
		if signed {
			cmp = ICMP
		}
		e.buf.BinOp(cmp, lw)
		return e.emitBoolFromFlag(jumpOp), nil
	}

	var op Opcode
	switch n.BinaryOp {
	case ast.BinAdd:
		op = arithOpcode(signed, float, ADD, IADD, FADD)
	case ast.BinSub:
		op = arithOpcode(signed, float, SUB, ISUB, FSUB)
	case ast.BinMul:
		op = arithOpcode(signed, float, MUL, IMUL, FMUL)
	case ast.BinDiv:
		op = arithOpcode(signed, float, DIV, IDIV, FDIV)
	case ast.BinMod:
		if float {
			return 0, fmt.Errorf("%s: floating-point %% is not supported by this emitter", n.Tok.Loc)
		}
		op = arithOpcode(signed, false, MOD, IMOD, MOD)
	case ast.BinBitAnd:
		op = AND
	case ast.BinBitOr:
		op = OR
	case ast.BinBitXor:
		op = XOR
	case ast.BinShl:
		op = SHL
	case ast.BinShr:
		op = SHR
	default:
		return 0, fmt.Errorf("%s: unsupported binary operator", n.Tok.Loc)
	}
	e.buf.BinOp(op, lw)
	return lw, nil
}

func (e *Emitter) emitLogical(n *ast.Node) (Width, error) {
	if _, err := e.emitExpr(n.A); err != nil {
		return 0, err
	}
	e.buf.PushImm(0, Width8)
	e.buf.BinOp(CMP, Width8)

	shortcut := e.newSyntheticLabel()
	end := e.newSyntheticLabel()
	shortcutOnTrue := n.BinaryOp == ast.BinLogOr
	jump := JE // lhs == 0 (false)
	if shortcutOnTrue {
		jump = JNE // lhs != 0 (true)
	}
	e.buf.Jump(jump, shortcut)

	if _, err := e.emitExpr(n.B); err != nil {
		return 0, err
	}
	e.buf.Jump(JMP, end)
	e.buf.Label(shortcut)
	result := uint64(0)
	if shortcutOnTrue {
		result = 1
	}
	e.buf.PushImm(result, Width8)
	e.buf.Label(end)
	return Width8, nil
}

func (e *Emitter) emitUnary(n *ast.Node) (Width, error) {
	switch n.UnaryOp {
	case ast.UnaryAddr:
		return e.emitAddrOf(n)
	case ast.UnaryDeref:
		return e.emitDeref(n)
	case ast.UnaryPreInc, ast.UnaryPreDec, ast.UnaryPostInc, ast.UnaryPostDec:
		return e.emitIncDec(n)
	}

	w, signed, float, err := e.operandShape(n.A)
	if err != nil {
		return 0, err
	}
	switch n.UnaryOp {
	case ast.UnaryPlus:
		return e.emitExpr(n.A)
	case ast.UnaryMinus:
		if float {
			// FSUB is the two-operand opcode §6.2 provides; there is no
			// unary float negate, so negation is 0.0 - operand, the same
			// trick the unsigned case below uses.
			e.buf.PushImm(0, w)
			if _, err := e.emitExpr(n.A); err != nil {
				return 0, err
			}
			e.buf.BinOp(FSUB, w)
			return w, nil
		}
		if signed {
			if _, err := e.emitExpr(n.A); err != nil {
				return 0, err
			}
			e.buf.UnaryOp(INEG, w)
			return w, nil
		}
		e.buf.PushImm(0, w)
		if _, err := e.emitExpr(n.A); err != nil {
			return 0, err
		}
		e.buf.BinOp(SUB, w)
		return w, nil
	case ast.UnaryBitNot:
		if _, err := e.emitExpr(n.A); err != nil {
			return 0, err
		}
		e.buf.UnaryOp(NOT, w)
		return w, nil
	case ast.UnaryLogNot:
		if _, err := e.emitExpr(n.A); err != nil {
			return 0, err
		}
		e.buf.PushImm(0, Width8)
		e.buf.BinOp(CMP, Width8)
		return e.emitBoolFromFlag(JE), nil
	default:
		return 0, fmt.Errorf("%s: unsupported unary operator", n.Tok.Loc)
	}
}

func (e *Emitter) operandDecl(n *ast.Node) (*ast.Node, error) {
	if n.Kind != ast.NodeExprDecl {
		return nil, fmt.Errorf("%s: this emitter only addresses plain variable/parameter operands", n.Tok.Loc)
	}
	return n.Decl, nil
}

func (e *Emitter) emitAddrOf(n *ast.Node) (Width, error) {
	decl, err := e.operandDecl(n.A)
	if err != nil {
		return 0, err
	}
	if err := e.buf.Lea(e.declAddr(decl), Width64); err != nil {
		return 0, err
	}
	return Width64, nil
}

func (e *Emitter) emitDeref(n *ast.Node) (Width, error) {
	if _, err := e.emitExpr(n.A); err != nil {
		return 0, err
	}
	ptrReg := Register{Family: RegA, Width: Width64}
	e.buf.PopReg(ptrReg)

	resDesc, ok := e.descs[n]
	if !ok {
		return 0, fmt.Errorf("%s: dereference has no resolved type", n.Tok.Loc)
	}
	w := WidthOf(resDesc.RemoveRef())
	addr := Addr{Mode: AddrBase, Base: ptrReg}
	if err := e.buf.PushMem(addr, w); err != nil {
		return 0, err
	}
	return w, nil
}

func (e *Emitter) emitIncDec(n *ast.Node) (Width, error) {
	decl, err := e.operandDecl(n.A)
	if err != nil {
		return 0, err
	}
	_, signed, _, err := e.operandShape(n.A)
	if err != nil {
		return 0, err
	}
	addr := e.declAddr(decl)
	d, ok := e.descs[n.A]
	if !ok {
		return 0, fmt.Errorf("%s: operand has no resolved type", n.Tok.Loc)
	}
	w := WidthOf(d.RemoveRef().RemoveConst())

	op := arithOpcode(signed, false, ADD, IADD, ADD)
	if n.UnaryOp == ast.UnaryPreDec || n.UnaryOp == ast.UnaryPostDec {
		op = arithOpcode(signed, false, SUB, ISUB, SUB)
	}

	isPost := n.UnaryOp == ast.UnaryPostInc || n.UnaryOp == ast.UnaryPostDec
	if isPost {
		if err := e.buf.PushMem(addr, w); err != nil { // old value: the expression's result
			return 0, err
		}
	}
	if err := e.buf.PushMem(addr, w); err != nil {
		return 0, err
	}
	e.buf.PushImm(1, w)
	e.buf.BinOp(op, w)
	if err := e.buf.PopMem(addr, w); err != nil {
		return 0, err
	}
	if !isPost {
		if err := e.buf.PushMem(addr, w); err != nil { // new value: the expression's result
			return 0, err
		}
	}
	return w, nil
}

func (e *Emitter) emitAssign(n *ast.Node) (Width, error) {
	decl, err := e.operandDecl(n.A)
	if err != nil {
		return 0, err
	}
	w, err := e.emitExpr(n.B)
	if err != nil {
		return 0, err
	}
	addr := e.declAddr(decl)
	if err := e.buf.PopMem(addr, w); err != nil {
		return 0, err
	}
	if err := e.buf.PushMem(addr, w); err != nil { // assignment's own value, for chaining (a = b = c)
		return 0, err
	}
	return w, nil
}

func (e *Emitter) emitCall(n *ast.Node) (Width, error) {
	if n.A.Kind != ast.NodeExprDecl || n.A.Decl.Kind != ast.NodeFunDecl {
		return 0, fmt.Errorf("%s: this emitter only lowers calls to a directly named function", n.Tok.Loc)
	}
	for _, arg := range n.List {
		if _, err := e.emitExpr(arg); err != nil {
			return 0, err
		}
	}
	e.buf.Call(n.A.Decl)

	d, ok := e.descs[n]
	if !ok {
		return 0, fmt.Errorf("%s: call has no resolved type", n.Tok.Loc)
	}
	if d.RemoveRef().RemoveConst().Kind == types.KindUnit {
		return 0, nil
	}
	return WidthOf(d.RemoveRef().RemoveConst()), nil
}

func (e *Emitter) emitTypeOp(n *ast.Node) (Width, error) {
	switch n.TypeOp {
	case ast.TypeOpSizeof, ast.TypeOpAlignof:
		if n.A.Kind != ast.NodeTypeName {
			return 0, fmt.Errorf("%s: this emitter only computes sizeof/alignof for a primitive type name", n.Tok.Loc)
		}
		prim, ok := e.builder.PrimitiveByName(n.A.Ident())
		if !ok {
			return 0, fmt.Errorf("%s: sizeof/alignof target is not a primitive type", n.Tok.Loc)
		}
		e.buf.PushImm(uint64(Sizeof(prim)), Width64)
		return Width64, nil
	default:
		return 0, fmt.Errorf("%s: is/as is not supported by this emitter", n.Tok.Loc)
	}
}
