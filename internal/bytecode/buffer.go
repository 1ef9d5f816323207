package bytecode

import (
	"fmt"

	"github.com/gmofishsauce/tauc/internal/ast"
)

// fixup is a pending forward reference: an 8-byte little-endian slot at pos
// in the code stream that must be patched with target's resolved offset
// once the whole program has been emitted. Grounded on asm/assembler.go's
// Fixup{addr, label, line} struct, adapted from the teacher's
// accumulate-then-report-all-errors style to this toolchain's
// abort-on-first-error discipline: the first unresolved fixup fails the
// whole emission.
type fixup struct {
	pos    int
	target *ast.Node
}

// Buffer is the growable byte vector described in §3.5: code bytes, a
// label list (AST node -> resolved byte offset, used for both function
// entry points and internal branch targets), and a pending-fixup list.
type Buffer struct {
	code   []byte
	labels map[*ast.Node]int
	fixups []fixup
}

// NewBuffer returns an empty bytecode buffer.
func NewBuffer() *Buffer {
	return &Buffer{labels: make(map[*ast.Node]int)}
}

// Bytes returns the buffer's sealed code, valid only after Patch succeeds.
func (b *Buffer) Bytes() []byte { return b.code }

// Offset reports the current end-of-buffer byte offset, the position the
// next emitted instruction will occupy.
func (b *Buffer) Offset() int { return len(b.code) }

// Label records n's resolved offset as the buffer's current end — used for
// a function's entry point or an internal branch target.
func (b *Buffer) Label(n *ast.Node) {
	b.labels[n] = len(b.code)
}

func (b *Buffer) emitWord(op Opcode, param uint8, w Width) {
	word := EncodeWord(op, param, w)
	b.code = append(b.code, byte(word), byte(word>>8))
}

// emitFixup reserves 8 bytes for target's offset, patched by Patch once
// every label in the program is known.
func (b *Buffer) emitFixup(target *ast.Node) {
	b.fixups = append(b.fixups, fixup{pos: len(b.code), target: target})
	b.code = append(b.code, make([]byte, 8)...)
}

// PushImm emits PSH<w> carrying an immediate operand.
func (b *Buffer) PushImm(v uint64, w Width) {
	b.emitWord(PSH, 0, w)
	b.code = append(b.code, encodeImm(v, w)...)
}

// PushMem emits PSH<w> carrying a memory operand (the "LOAD<width>BP"
// construct from §4.5, expressed with this opcode table's actual PSH plus
// a BP-relative addressing-mode operand rather than inventing a LOAD
// opcode absent from §6.2's closed table).
func (b *Buffer) PushMem(a Addr, w Width) error {
	b.emitWord(PSH, 1, w)
	enc, err := EncodeAddr(a)
	if err != nil {
		return err
	}
	b.code = append(b.code, enc...)
	return nil
}

// PopMem emits POP<w> carrying a memory operand: pop the stack top and
// store it at a, the lowering used for assignment targets.
func (b *Buffer) PopMem(a Addr, w Width) error {
	b.emitWord(POP, 1, w)
	enc, err := EncodeAddr(a)
	if err != nil {
		return err
	}
	b.code = append(b.code, enc...)
	return nil
}

// Pop emits POP<w> with no operand, discarding the stack top.
func (b *Buffer) Pop(w Width) {
	b.emitWord(POP, 0, w)
}

// PopReg emits POP<w> carrying a single-register operand, popping the
// stack top into r.
func (b *Buffer) PopReg(r Register) {
	b.emitWord(POP, 2, r.Width)
	b.code = append(b.code, PackRegPair(EncodeReg(r), 0))
}

// Lea emits LEA<w>, computing a memory operand's address (rather than its
// value) and pushing it.
func (b *Buffer) Lea(a Addr, w Width) error {
	b.emitWord(LEA, 1, w)
	enc, err := EncodeAddr(a)
	if err != nil {
		return err
	}
	b.code = append(b.code, enc...)
	return nil
}

// BinOp emits a stack-implicit two-operand opcode: pop the right operand,
// pop the left operand, push the result, per §4.5 ("emit LHS, emit RHS,
// emit the arithmetic opcode").
func (b *Buffer) BinOp(op Opcode, w Width) {
	b.emitWord(op, 0, w)
}

// UnaryOp emits a stack-implicit one-operand opcode: pop, push the result.
func (b *Buffer) UnaryOp(op Opcode, w Width) {
	b.emitWord(op, 0, w)
}

// Jump emits an unconditional or conditional jump to target, backpatched
// once target's label is known.
func (b *Buffer) Jump(op Opcode, target *ast.Node) {
	b.emitWord(op, 0, Width64)
	b.emitFixup(target)
}

// Call emits CALL to target (a function declaration node), backpatched
// once target's label offset is known. CALL pushes the return address and
// transfers control, per §4.7; the callee's own prologue saves BP.
func (b *Buffer) Call(target *ast.Node) {
	b.emitWord(CALL, 0, Width64)
	b.emitFixup(target)
}

// Return emits RET. param=1 signals a return value sits on top of the
// stack above the caller's frame and must be preserved across the
// epilogue; param=0 means no value. w is the return value's width (only
// meaningful when param=1).
func (b *Buffer) Return(hasValue bool, w Width) {
	param := uint8(0)
	if hasValue {
		param = 1
	}
	b.emitWord(RET, param, w)
}

// Halt emits HLT, ending the run loop.
func (b *Buffer) Halt() {
	b.emitWord(HLT, 0, Width8)
}

// Clf emits CLF, zeroing the flags register.
func (b *Buffer) Clf() {
	b.emitWord(CLF, 0, Width8)
}

// Prologue emits the callee-side frame setup: push the caller's BP, then
// set BP to the current SP. MOV's param=2 selects the register-to-register
// form (see internal/vm's decode of MOV).
func (b *Buffer) Prologue() {
	b.emitWord(PSH, 2, Width64)
	b.code = append(b.code, PackRegPair(EncodeReg(Register{Family: RegBP, Width: Width64}), 0))
	b.emitWord(MOV, 2, Width64)
	b.code = append(b.code, PackRegPair(
		EncodeReg(Register{Family: RegBP, Width: Width64}),
		EncodeReg(Register{Family: RegSP, Width: Width64}),
	))
}

// Patch sweeps the pending fixup list and writes each target's resolved
// label offset into its reserved 8 bytes, per §4.5's forward-reference
// sweep. It is an error for any fixup's target to remain unlabeled.
func (b *Buffer) Patch() error {
	for _, fx := range b.fixups {
		off, ok := b.labels[fx.target]
		if !ok {
			return fmt.Errorf("bytecode: unresolved forward reference at offset %d", fx.pos)
		}
		v := uint64(int64(off))
		for i := 0; i < 8; i++ {
			b.code[fx.pos+i] = byte(v >> (8 * i))
		}
	}
	return nil
}
