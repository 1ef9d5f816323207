// Package bytecode lowers an analyzed AST to a variable-width instruction
// stream and packs that stream's opcodes, registers, and addressing modes
// into bytes. Grounded on the teacher's asm/types.go InstrDef{name, opcode,
// format, numOps, hasImm, immBits} table shape and asm/assembler.go's
// Fixup{addr, label, line} backpatch pattern, generalized from wut4's own
// instruction set to the opcode/register/addressing-mode scheme this
// toolchain targets.
package bytecode

import "fmt"

// Width is the 2-bit operand-width field of an instruction word.
type Width uint8

const (
	Width8 Width = iota
	Width16
	Width32
	Width64
)

// Bytes reports how many bytes a value of this width occupies.
func (w Width) Bytes() int {
	switch w {
	case Width8:
		return 1
	case Width16:
		return 2
	case Width32:
		return 4
	case Width64:
		return 8
	}
	panic(fmt.Sprintf("bytecode: invalid width %d", w))
}

// Opcode is the 10-bit operation field of an instruction word.
type Opcode uint16

const (
	NOP Opcode = iota
	MOV
	PSH
	POP
	LEA

	ADD
	SUB
	MUL
	DIV
	MOD
	INC
	DEC

	IADD
	ISUB
	IMUL
	IDIV
	IMOD
	INEG

	FADD
	FSUB
	FMUL
	FDIV

	AND
	OR
	XOR
	NOT
	SHL
	SHR

	JMP
	JE
	JNE
	JL
	JLE
	JG
	JGE
	JZ
	JNZ
	JN
	JNN
	JO
	JNO
	JC
	JNC
	JP
	JNP
	CMP
	ICMP
	CLF
	CALL
	RET
	HLT
)

var opcodeNames = map[Opcode]string{
	NOP: "NOP", MOV: "MOV", PSH: "PSH", POP: "POP", LEA: "LEA",
	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD", INC: "INC", DEC: "DEC",
	IADD: "IADD", ISUB: "ISUB", IMUL: "IMUL", IDIV: "IDIV", IMOD: "IMOD", INEG: "INEG",
	FADD: "FADD", FSUB: "FSUB", FMUL: "FMUL", FDIV: "FDIV",
	AND: "AND", OR: "OR", XOR: "XOR", NOT: "NOT", SHL: "SHL", SHR: "SHR",
	JMP: "JMP", JE: "JE", JNE: "JNE", JL: "JL", JLE: "JLE", JG: "JG", JGE: "JGE",
	JZ: "JZ", JNZ: "JNZ", JN: "JN", JNN: "JNN", JO: "JO", JNO: "JNO",
	JC: "JC", JNC: "JNC", JP: "JP", JNP: "JNP",
	CMP: "CMP", ICMP: "ICMP", CLF: "CLF", CALL: "CALL", RET: "RET", HLT: "HLT",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", uint16(op))
}

// Arity reports how many register/memory operands an opcode's param field
// addresses, per §3.5: decoding remaps the 3-bit param field according to
// whether the opcode is a one- or two-operand pattern.
func (op Opcode) Arity() int {
	switch op {
	case NOP, CLF, RET, HLT:
		return 0
	case POP, INC, DEC, NOT, INEG, JMP,
		JE, JNE, JL, JLE, JG, JGE, JZ, JNZ, JN, JNN, JO, JNO, JC, JNC, JP, JNP,
		CALL:
		return 1
	default:
		return 2
	}
}

// EncodeWord packs opcode, param, and width into the 16-bit instruction
// header: [opcode:10][param:3][width:2][reserved:1].
func EncodeWord(op Opcode, param uint8, w Width) uint16 {
	if op > 0x3FF {
		panic(fmt.Sprintf("bytecode: opcode %d does not fit in 10 bits", op))
	}
	if param > 0x7 {
		panic(fmt.Sprintf("bytecode: param %d does not fit in 3 bits", param))
	}
	return uint16(op)<<6 | uint16(param&0x7)<<3 | uint16(w&0x3)<<1
}

// DecodeWord splits a 16-bit instruction header back into opcode, param,
// and width.
func DecodeWord(word uint16) (Opcode, uint8, Width) {
	op := Opcode(word >> 6)
	param := uint8(word>>3) & 0x7
	w := Width(word>>1) & 0x3
	return op, param, w
}

// RegFamily names one of the six 64-bit general-purpose registers.
type RegFamily uint8

const (
	RegA RegFamily = iota
	RegB
	RegC
	RegD
	RegE
	RegF
	RegSP
	RegBP
	RegIP
)

func (f RegFamily) String() string {
	switch f {
	case RegA:
		return "A"
	case RegB:
		return "B"
	case RegC:
		return "C"
	case RegD:
		return "D"
	case RegE:
		return "E"
	case RegF:
		return "F"
	case RegSP:
		return "SP"
	case RegBP:
		return "BP"
	case RegIP:
		return "IP"
	}
	return "?"
}

// RegHalf selects the low or high sub-register view within a family; it is
// meaningless for SP/BP/IP, which are always whole 64-bit registers.
type RegHalf uint8

const (
	RegLow RegHalf = iota
	RegHigh
)

// Register is one operand register reference: which family, which half
// (for A..F), and at what width the instruction reads it — the width
// together with the half select the specific sub-register view (ALB, AHB,
// ALW, AHW, ALD, AHD, or the full 64-bit register).
type Register struct {
	Family RegFamily
	Half   RegHalf
	Width  Width
}

// View names the sub-register this Register denotes, per §3.6.
func (r Register) View() string {
	if r.Family >= RegSP {
		return r.Family.String()
	}
	half := "L"
	if r.Half == RegHigh {
		half = "H"
	}
	switch r.Width {
	case Width8:
		return r.Family.String() + half + "B"
	case Width16:
		return r.Family.String() + half + "W"
	case Width32:
		return r.Family.String() + half + "D"
	default:
		return r.Family.String() // full 64-bit register, no half/width suffix
	}
}

// EncodeReg packs a register's family+half into the 4-bit operand field
// described in §4.6 and §6.2: 0..11 index the low/high halves of A..F,
// 12=SP, 13=BP, 14=IP.
func EncodeReg(r Register) byte {
	if r.Family >= RegSP {
		return byte(12 + (r.Family - RegSP))
	}
	nibble := byte(r.Family)*2 + byte(r.Half)
	return nibble
}

// DecodeReg reconstructs a Register from its encoded nibble and the
// instruction's operand width, per §4.6: "decoding requires the operand
// width to disambiguate sub-register views."
func DecodeReg(nibble byte, w Width) (Register, error) {
	nibble &= 0xF
	switch {
	case nibble <= 11:
		return Register{Family: RegFamily(nibble / 2), Half: RegHalf(nibble % 2), Width: w}, nil
	case nibble == 12:
		return Register{Family: RegSP, Width: Width64}, nil
	case nibble == 13:
		return Register{Family: RegBP, Width: Width64}, nil
	case nibble == 14:
		return Register{Family: RegIP, Width: Width64}, nil
	default:
		return Register{}, fmt.Errorf("bytecode: register nibble %d is reserved", nibble)
	}
}

// PackRegPair packs two register nibbles into one byte, upper nibble
// first, per §4.6 ("two registers may share a byte, upper nibble first,
// lower nibble second").
func PackRegPair(upper, lower byte) byte {
	return (upper&0xF)<<4 | (lower & 0xF)
}

// UnpackRegPair splits a packed register-pair byte back into its two
// nibbles, upper first.
func UnpackRegPair(b byte) (upper, lower byte) {
	return (b >> 4) & 0xF, b & 0xF
}

// AddrMode is one of the eight addressing-mode encodings in §6.3.
type AddrMode uint8

const (
	AddrOffset AddrMode = iota
	AddrBase
	AddrBaseOffset
	AddrBaseIndex
	AddrBaseIndexOffset
	AddrBaseIndexScale
	AddrIndexScaleOffset
	AddrBaseIndexScaleOffset
)

// Addr is a memory operand. Which fields are meaningful is determined by
// Mode; Base/Index are always full 64-bit registers per §8's round-trip
// property.
type Addr struct {
	Mode   AddrMode
	Base   Register
	Index  Register
	Scale  int8 // one of ±{1,2,4,8,16,32,64,128}; meaningful only when Mode uses a scale
	Offset int64
}

func (m AddrMode) hasBase() bool {
	switch m {
	case AddrBase, AddrBaseOffset, AddrBaseIndex, AddrBaseIndexOffset, AddrBaseIndexScale, AddrBaseIndexScaleOffset:
		return true
	}
	return false
}

func (m AddrMode) hasIndex() bool {
	switch m {
	case AddrBaseIndex, AddrBaseIndexOffset, AddrBaseIndexScale, AddrIndexScaleOffset, AddrBaseIndexScaleOffset:
		return true
	}
	return false
}

func (m AddrMode) hasScale() bool {
	switch m {
	case AddrBaseIndexScale, AddrIndexScaleOffset, AddrBaseIndexScaleOffset:
		return true
	}
	return false
}

func (m AddrMode) hasOffset() bool {
	switch m {
	case AddrOffset, AddrBaseOffset, AddrBaseIndexOffset, AddrIndexScaleOffset, AddrBaseIndexScaleOffset:
		return true
	}
	return false
}

// scaleCode encodes a scale's magnitude (a power of two from 1 to 128) as
// a 3-bit log2 code, with the sign carried in the top bit of the byte.
func scaleCode(scale int8) (byte, error) {
	mag := scale
	sign := byte(0)
	if mag < 0 {
		sign = 0x80
		mag = -mag
	}
	for log2 := byte(0); log2 < 8; log2++ {
		if int8(1<<log2) == mag {
			return sign | log2, nil
		}
	}
	return 0, fmt.Errorf("bytecode: scale %d is not a signed power of two up to 128", scale)
}

func scaleFromCode(b byte) int8 {
	mag := int8(1 << (b & 0x7))
	if b&0x80 != 0 {
		return -mag
	}
	return mag
}

// EncodeAddr packs a memory operand into its variable-length byte
// encoding: a leading mode nibble, optional packed base/index nibbles,
// optional scale byte, optional 8-byte little-endian signed offset.
func EncodeAddr(a Addr) ([]byte, error) {
	out := []byte{byte(a.Mode) << 4}
	switch {
	case a.Mode.hasBase() && a.Mode.hasIndex():
		out = append(out, PackRegPair(EncodeReg(a.Base), EncodeReg(a.Index)))
	case a.Mode.hasBase():
		out = append(out, PackRegPair(EncodeReg(a.Base), 0))
	case a.Mode.hasIndex():
		out = append(out, PackRegPair(EncodeReg(a.Index), 0))
	}
	if a.Mode.hasScale() {
		sc, err := scaleCode(a.Scale)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if a.Mode.hasOffset() {
		out = append(out, encodeI64(a.Offset)...)
	}
	return out, nil
}

// DecodeAddr reverses EncodeAddr, returning the decoded operand and the
// number of bytes consumed from buf.
func DecodeAddr(buf []byte) (Addr, int, error) {
	if len(buf) == 0 {
		return Addr{}, 0, fmt.Errorf("bytecode: empty addressing-mode operand")
	}
	mode := AddrMode(buf[0] >> 4)
	a := Addr{Mode: mode}
	pos := 1

	if mode.hasBase() || mode.hasIndex() {
		if pos >= len(buf) {
			return Addr{}, 0, fmt.Errorf("bytecode: truncated addressing-mode register byte")
		}
		upper, lower := UnpackRegPair(buf[pos])
		pos++
		switch {
		case mode.hasBase() && mode.hasIndex():
			base, err := DecodeReg(upper, Width64)
			if err != nil {
				return Addr{}, 0, err
			}
			idx, err := DecodeReg(lower, Width64)
			if err != nil {
				return Addr{}, 0, err
			}
			a.Base, a.Index = base, idx
		case mode.hasBase():
			base, err := DecodeReg(upper, Width64)
			if err != nil {
				return Addr{}, 0, err
			}
			a.Base = base
		case mode.hasIndex():
			idx, err := DecodeReg(upper, Width64)
			if err != nil {
				return Addr{}, 0, err
			}
			a.Index = idx
		}
	}

	if mode.hasScale() {
		if pos >= len(buf) {
			return Addr{}, 0, fmt.Errorf("bytecode: truncated addressing-mode scale byte")
		}
		a.Scale = scaleFromCode(buf[pos])
		pos++
	}

	if mode.hasOffset() {
		if pos+8 > len(buf) {
			return Addr{}, 0, fmt.Errorf("bytecode: truncated addressing-mode offset")
		}
		a.Offset = decodeI64(buf[pos : pos+8])
		pos += 8
	}

	return a, pos, nil
}

func encodeI64(v int64) []byte {
	u := uint64(v)
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	return b
}

func decodeI64(b []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u |= uint64(b[i]) << (8 * i)
	}
	return int64(u)
}

// encodeImm writes v's low w.Bytes() bytes, little-endian, per §4.6's
// "immediate operand: raw little-endian bytes at the operand's declared
// width."
func encodeImm(v uint64, w Width) []byte {
	n := w.Bytes()
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func decodeImm(b []byte, w Width) (uint64, error) {
	n := w.Bytes()
	if len(b) < n {
		return 0, fmt.Errorf("bytecode: immediate operand truncated, need %d bytes, have %d", n, len(b))
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v, nil
}
