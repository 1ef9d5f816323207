package bytecode

import (
	"fmt"
	"math"

	"github.com/gmofishsauce/tauc/internal/ast"
	"github.com/gmofishsauce/tauc/internal/types"
)

// loopLabels tracks a for/while loop's break/continue targets, the
// AST-node-keyed labels used to backpatch the jumps break/continue emit.
type loopLabels struct {
	breakTo    *ast.Node
	continueTo *ast.Node
}

// Emitter lowers one analyzed program into a Buffer. It is grounded on
// §4.5's per-construct emission rules; Descs supplies the type each
// expression node carries, exactly as internal/sema.Analyzer.Descs()
// returns it.
type Emitter struct {
	buf     *Buffer
	descs   map[*ast.Node]*types.Desc
	builder *types.Builder

	frame    map[*ast.Node]int64 // BP-relative offsets, valid within the function currently being emitted
	locals   int64               // running local-stack bump, reset per function
	loops    []loopLabels
	labelSeq int
}

// Emit lowers prog (as annotated by internal/sema) to a sealed bytecode
// blob. The blob's first instruction is an unconditional JMP to an entry
// trampoline appended after every function body, per §6.2 ("the blob
// starts with a JMP to the designated entry point"); the trampoline calls
// the program's `main` function and halts.
func Emit(prog *ast.Node, descs map[*ast.Node]*types.Desc, builder *types.Builder) ([]byte, error) {
	e := &Emitter{
		buf:     NewBuffer(),
		descs:   descs,
		builder: builder,
		frame:   make(map[*ast.Node]int64),
	}

	entry := &ast.Node{}
	var mainDecl *ast.Node
	e.buf.Jump(JMP, entry)

	for _, decl := range prog.List {
		if decl.Kind == ast.NodeFunDecl && decl.Name == "main" {
			mainDecl = decl
		}
		if err := e.emitTopDecl(decl); err != nil {
			return nil, err
		}
	}
	if mainDecl == nil {
		return nil, fmt.Errorf("bytecode: program has no 'main' function")
	}

	e.buf.Label(entry)
	e.buf.Call(mainDecl)
	e.buf.Halt()

	if err := e.buf.Patch(); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func (e *Emitter) newSyntheticLabel() *ast.Node {
	e.labelSeq++
	return &ast.Node{}
}

// emitTopDecl emits a single top-level declaration. Only function
// declarations carry runtime code; struct/union/enum/mod declarations are
// type-only and produce nothing. Top-level var/const declarations also
// produce nothing: they get no frame slot and are not runtime-initialized —
// this toolchain has no program-load phase distinct from calling `main`, so
// a global initializer would have nowhere to run before main starts.
func (e *Emitter) emitTopDecl(decl *ast.Node) error {
	switch decl.Kind {
	case ast.NodeFunDecl:
		return e.emitFunDecl(decl)
	case ast.NodeVarDecl, ast.NodeConstDecl:
		return nil
	case ast.NodeStructDecl, ast.NodeUnionDecl, ast.NodeEnumDecl, ast.NodeModDecl:
		return nil
	default:
		return fmt.Errorf("bytecode: unexpected top-level declaration kind %d", decl.Kind)
	}
}

// emitFunDecl registers decl's label at the current instruction offset,
// lays out its parameters BP-relative per §4.5 (first param deepest: CALL
// pushes an 8-byte return address and the prologue pushes an 8-byte saved
// BP, so params sit above those at offset 16 and up, last-pushed param
// closest to BP), resets the local-stack bump, and emits the body.
func (e *Emitter) emitFunDecl(decl *ast.Node) error {
	if decl.ABI != "" {
		return nil // extern declarations have no body to emit
	}
	e.buf.Label(decl)
	e.buf.Prologue()

	offset := int64(16)
	for i := len(decl.List) - 1; i >= 0; i-- {
		p := decl.List[i]
		pd, err := resolveType(e.builder, p.A)
		if err != nil {
			return err
		}
		e.frame[p] = offset
		offset += int64(Sizeof(pd))
	}

	e.locals = 0
	if err := e.emitBlock(decl.B); err != nil {
		return err
	}
	// Fallback epilogue for a function whose body falls through without an
	// explicit return; dead code when every path already returns.
	e.buf.Return(false, Width8)
	return nil
}

func (e *Emitter) emitBlock(block *ast.Node) error {
	for _, stmt := range block.List {
		if err := e.emitStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitStmt(n *ast.Node) error {
	switch n.Kind {
	case ast.NodeBlock:
		return e.emitBlock(n)
	case ast.NodeVarDecl, ast.NodeConstDecl:
		return e.emitLocalDecl(n)
	case ast.NodeIf:
		return e.emitIf(n)
	case ast.NodeWhile:
		return e.emitWhile(n)
	case ast.NodeFor:
		return e.emitFor(n)
	case ast.NodeBreak:
		return e.emitBreak(n)
	case ast.NodeContinue:
		return e.emitContinue(n)
	case ast.NodeReturn:
		return e.emitReturn(n)
	case ast.NodeExprStmt:
		w, err := e.emitExpr(n.A)
		if err != nil {
			return err
		}
		if d, ok := e.descs[n.A]; !ok || d.RemoveRef().RemoveConst().Kind != types.KindUnit {
			e.buf.Pop(w) // statement value is discarded
		}
		return nil
	case ast.NodeDefer, ast.NodeYield:
		return fmt.Errorf("%s: defer/yield lowering is not implemented by this emitter", n.Tok.Loc)
	default:
		return fmt.Errorf("%s: unexpected statement kind %d", n.Tok.Loc, n.Kind)
	}
}

// emitLocalDecl registers decl's frame slot at the current local-stack
// bump, advances the bump by sizeof(type), moves SP down to the new bump so
// later pushes land below the slot, and emits the initializer if present,
// per §4.5.
func (e *Emitter) emitLocalDecl(decl *ast.Node) error {
	base, err := resolveType(e.builder, decl.A)
	if err != nil {
		return err
	}
	size := Sizeof(base)
	e.locals += int64(size)
	e.frame[decl] = -e.locals
	if err := e.buf.Lea(e.declAddr(decl), Width64); err != nil {
		return err
	}
	e.buf.PopReg(Register{Family: RegSP, Width: Width64})

	if decl.B == nil {
		return nil
	}
	w, err := e.emitExpr(decl.B)
	if err != nil {
		return err
	}
	return e.buf.PopMem(e.declAddr(decl), w)
}

func (e *Emitter) declAddr(decl *ast.Node) Addr {
	off, ok := e.frame[decl]
	if !ok {
		off = 0
	}
	return Addr{
		Mode:   AddrBaseOffset,
		Base:   Register{Family: RegBP, Width: Width64},
		Offset: off,
	}
}

func (e *Emitter) emitIf(n *ast.Node) error {
	w, err := e.emitExpr(n.A)
	if err != nil {
		return err
	}
	e.buf.PushImm(0, w)
	e.buf.BinOp(CMP, w)

	elseLabel := e.newSyntheticLabel()
	endLabel := e.newSyntheticLabel()
	e.buf.Jump(JE, elseLabel)

	if err := e.emitStmt(n.B); err != nil {
		return err
	}
	if n.C != nil {
		e.buf.Jump(JMP, endLabel)
	}
	e.buf.Label(elseLabel)
	if n.C != nil {
		if err := e.emitStmt(n.C); err != nil {
			return err
		}
		e.buf.Label(endLabel)
	}
	return nil
}

func (e *Emitter) emitWhile(n *ast.Node) error {
	top := e.newSyntheticLabel()
	end := e.newSyntheticLabel()
	e.buf.Label(top)

	w, err := e.emitExpr(n.A)
	if err != nil {
		return err
	}
	e.buf.PushImm(0, w)
	e.buf.BinOp(CMP, w)
	e.buf.Jump(JE, end)

	e.loops = append(e.loops, loopLabels{breakTo: end, continueTo: top})
	err = e.emitBlock(n.B)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return err
	}
	e.buf.Jump(JMP, top)
	e.buf.Label(end)
	return nil
}

// emitFor lowers the resolved-open-question `for i in lo..hi` form: an
// explicit-bounds counting loop, since generator-typed iteration was
// deliberately not adopted (see DESIGN.md's Open Question decision).
func (e *Emitter) emitFor(n *ast.Node) error {
	rng := n.A
	elemDesc, ok := e.descs[rng]
	if !ok {
		return fmt.Errorf("%s: for-loop has no resolved element type", n.Tok.Loc)
	}
	w := WidthOf(elemDesc)

	e.locals += int64(Sizeof(elemDesc))
	e.frame[n] = -e.locals
	loWidth, err := e.emitExpr(rng.A)
	if err != nil {
		return err
	}
	if err := e.buf.PopMem(e.declAddr(n), loWidth); err != nil {
		return err
	}

	top := e.newSyntheticLabel()
	end := e.newSyntheticLabel()
	e.buf.Label(top)

	if err := e.buf.PushMem(e.declAddr(n), w); err != nil {
		return err
	}
	if _, err := e.emitExpr(rng.B); err != nil {
		return err
	}
	e.buf.BinOp(ICMP, w)
	e.buf.Jump(JGE, end)

	e.loops = append(e.loops, loopLabels{breakTo: end, continueTo: top})
	err = e.emitBlock(n.B)
	e.loops = e.loops[:len(e.loops)-1]
	if err != nil {
		return err
	}

	if err := e.buf.PushMem(e.declAddr(n), w); err != nil {
		return err
	}
	e.buf.PushImm(1, w)
	e.buf.BinOp(IADD, w)
	if err := e.buf.PopMem(e.declAddr(n), w); err != nil {
		return err
	}
	e.buf.Jump(JMP, top)
	e.buf.Label(end)
	return nil
}

func (e *Emitter) emitBreak(n *ast.Node) error {
	if len(e.loops) == 0 {
		return fmt.Errorf("%s: break outside loop", n.Tok.Loc)
	}
	e.buf.Jump(JMP, e.loops[len(e.loops)-1].breakTo)
	return nil
}

func (e *Emitter) emitContinue(n *ast.Node) error {
	if len(e.loops) == 0 {
		return fmt.Errorf("%s: continue outside loop", n.Tok.Loc)
	}
	e.buf.Jump(JMP, e.loops[len(e.loops)-1].continueTo)
	return nil
}

func (e *Emitter) emitReturn(n *ast.Node) error {
	if n.A == nil {
		e.buf.Return(false, Width8)
		return nil
	}
	w, err := e.emitExpr(n.A)
	if err != nil {
		return err
	}
	e.buf.Return(true, w)
	return nil
}

// emitExpr emits n's value-producing code, leaving exactly one value of
// the returned width on top of the stack.
func (e *Emitter) emitExpr(n *ast.Node) (Width, error) {
	switch n.Kind {
	case ast.NodeLiteral:
		return e.emitLiteral(n)
	case ast.NodeExprDecl:
		return e.emitIdentRead(n)
	case ast.NodeUnary:
		return e.emitUnary(n)
	case ast.NodeBinary:
		return e.emitBinary(n)
	case ast.NodeAssign:
		return e.emitAssign(n)
	case ast.NodeCall:
		return e.emitCall(n)
	case ast.NodeTypeOp:
		return e.emitTypeOp(n)
	default:
		return 0, fmt.Errorf("%s: this emitter does not yet lower expression kind %d", n.Tok.Loc, n.Kind)
	}
}

func (e *Emitter) emitLiteral(n *ast.Node) (Width, error) {
	d, ok := e.descs[n]
	if !ok {
		return 0, fmt.Errorf("%s: literal has no resolved type", n.Tok.Loc)
	}
	base := d.RemoveConst()
	w := WidthOf(base)
	switch {
	case base.Kind == types.KindBool:
		v := uint64(0)
		if n.IsBool && n.IntVal != 0 {
			v = 1
		}
		e.buf.PushImm(v, w)
	case base.IsFloat():
		bits := uint64(0)
		if base.Kind == types.KindF32 {
			bits = uint64(math.Float32bits(float32(n.FltVal)))
		} else {
			bits = math.Float64bits(n.FltVal)
		}
		e.buf.PushImm(bits, w)
	case base.IsInteger():
		e.buf.PushImm(uint64(n.IntVal), w)
	default:
		return 0, fmt.Errorf("%s: literal of type %s is not supported by this emitter", n.Tok.Loc, base.String())
	}
	return w, nil
}

func (e *Emitter) emitIdentRead(n *ast.Node) (Width, error) {
	decl := n.Decl
	d, ok := e.descs[n]
	if !ok {
		return 0, fmt.Errorf("%s: identifier has no resolved type", n.Tok.Loc)
	}
	base := d.RemoveRef().RemoveConst()
	w := WidthOf(base)
	if decl.Kind == ast.NodeFunDecl {
		// A bare function reference used as a value; callers that invoke it
		// go through emitCall instead, which never routes through here.
		return 0, fmt.Errorf("%s: function values are not supported by this emitter", n.Tok.Loc)
	}
	if err := e.buf.PushMem(e.declAddr(decl), w); err != nil {
		return 0, err
	}
	return w, nil
}

