// Package vm implements the register virtual machine: fetch-decode-execute
// over the 16-bit opcode encoding internal/bytecode defines, six
// general-purpose 64-bit registers with sub-register views, a flags
// register, and a single flat byte array that serves as both the call
// stack and the addressable data memory for BP/SP/LEA-relative operands.
// Grounded on emul/cpu.go's CPU{pc, gen, spr, ...} struct shape and its
// getFlags/setFlags/updateFlags helpers (flags as a bitfield word) and
// emul/cpu.go's Run() fetch-decode-execute loop; emul/decode.go's
// Instruction/decode() pair and emul/execute.go's opcode-family dispatch
// shape (isBase/isXOP/... there, op-category switch here). The actual
// opcode values, register layout, and addressing modes follow this
// toolchain's own §3.5/§3.6/§6.2/§6.3 encoding, not wut4's.
package vm

import (
	"fmt"

	"github.com/gmofishsauce/tauc/internal/bytecode"
)

const (
	flagZero = 1 << iota
	flagNegative
	flagOverflow
	flagCarry
	flagParity
)

// DefaultStackSize is the byte size of a freshly constructed VM's memory,
// generous enough for the toy programs this toolchain compiles.
const DefaultStackSize = 64 * 1024

// VM is one machine instance: six general-purpose registers, SP/BP/IP,
// flags, and its memory. Code is borrowed for the run; memory is owned.
type VM struct {
	gpr [6]uint64 // A..F
	sp  int64
	bp  int64
	ip  int64
	flg uint16

	mem     []byte // unified stack + data memory, SP/BP/LEA addresses index into it
	code    []byte // borrowed, read-only
	running bool

	Trace func(ip int64, op bytecode.Opcode) // optional instruction tracer
}

// New returns a VM with a fresh zeroed memory block of DefaultStackSize
// bytes and SP/BP initialized to its top, per §3.6 ("SP starts at its top
// and grows downward").
func New(code []byte) *VM {
	return NewSized(code, DefaultStackSize)
}

// NewSized is New with an explicit memory size, mainly for tests that want
// a small, easy-to-inspect memory block.
func NewSized(code []byte, memSize int) *VM {
	return &VM{
		mem:  make([]byte, memSize),
		code: code,
		sp:   int64(memSize),
		bp:   int64(memSize),
	}
}

// StackTop returns the w bytes currently at the top of the stack (SP),
// little-endian, the shape scenario 6 inspects after a run completes.
func (v *VM) StackTop(w bytecode.Width) (uint64, error) {
	return v.readMem(v.sp, w)
}

// SP, BP, IP expose the machine's control registers for tests and tooling.
func (v *VM) SP() int64 { return v.sp }
func (v *VM) BP() int64 { return v.bp }
func (v *VM) IP() int64 { return v.ip }

func (v *VM) regVal(r bytecode.Register) uint64 {
	switch r.Family {
	case bytecode.RegSP:
		return uint64(v.sp)
	case bytecode.RegBP:
		return uint64(v.bp)
	case bytecode.RegIP:
		return uint64(v.ip)
	}
	full := v.gpr[r.Family]
	shift := uint(0)
	if r.Half == bytecode.RegHigh {
		shift = uint(r.Width.Bytes()) * 8
	}
	mask := uint64(1)<<(uint(r.Width.Bytes())*8) - 1
	if r.Width == bytecode.Width64 {
		return full
	}
	return (full >> shift) & mask
}

func (v *VM) setReg(r bytecode.Register, val uint64) {
	switch r.Family {
	case bytecode.RegSP:
		v.sp = int64(val)
		return
	case bytecode.RegBP:
		v.bp = int64(val)
		return
	case bytecode.RegIP:
		v.ip = int64(val)
		return
	}
	if r.Width == bytecode.Width64 {
		v.gpr[r.Family] = val
		return
	}
	shift := uint(0)
	if r.Half == bytecode.RegHigh {
		shift = uint(r.Width.Bytes()) * 8
	}
	bits := uint(r.Width.Bytes()) * 8
	mask := (uint64(1)<<bits - 1) << shift
	v.gpr[r.Family] = (v.gpr[r.Family] &^ mask) | ((val << shift) & mask)
}

func (v *VM) effectiveAddr(a bytecode.Addr) int64 {
	var addr int64
	if a.Mode == bytecode.AddrBase || a.Mode == bytecode.AddrBaseOffset ||
		a.Mode == bytecode.AddrBaseIndex || a.Mode == bytecode.AddrBaseIndexOffset ||
		a.Mode == bytecode.AddrBaseIndexScale || a.Mode == bytecode.AddrBaseIndexScaleOffset {
		addr += int64(v.regVal(a.Base))
	}
	switch a.Mode {
	case bytecode.AddrBaseIndex, bytecode.AddrBaseIndexOffset:
		addr += int64(v.regVal(a.Index))
	case bytecode.AddrBaseIndexScale, bytecode.AddrIndexScaleOffset, bytecode.AddrBaseIndexScaleOffset:
		addr += int64(v.regVal(a.Index)) * int64(a.Scale)
	}
	switch a.Mode {
	case bytecode.AddrOffset, bytecode.AddrBaseOffset, bytecode.AddrBaseIndexOffset,
		bytecode.AddrIndexScaleOffset, bytecode.AddrBaseIndexScaleOffset:
		addr += a.Offset
	}
	return addr
}

func (v *VM) readMem(addr int64, w bytecode.Width) (uint64, error) {
	n := int64(w.Bytes())
	if addr < 0 || addr+n > int64(len(v.mem)) {
		return 0, fmt.Errorf("vm: memory read out of range at %d (width %d)", addr, n)
	}
	var val uint64
	for i := int64(0); i < n; i++ {
		val |= uint64(v.mem[addr+i]) << (8 * uint(i))
	}
	return val, nil
}

func (v *VM) writeMem(addr int64, w bytecode.Width, val uint64) error {
	n := int64(w.Bytes())
	if addr < 0 || addr+n > int64(len(v.mem)) {
		return fmt.Errorf("vm: memory write out of range at %d (width %d)", addr, n)
	}
	for i := int64(0); i < n; i++ {
		v.mem[addr+i] = byte(val >> (8 * uint(i)))
	}
	return nil
}

func (v *VM) push(w bytecode.Width, val uint64) error {
	v.sp -= int64(w.Bytes())
	return v.writeMem(v.sp, w, val)
}

func (v *VM) pop(w bytecode.Width) (uint64, error) {
	val, err := v.readMem(v.sp, w)
	if err != nil {
		return 0, err
	}
	v.sp += int64(w.Bytes())
	return val, nil
}
