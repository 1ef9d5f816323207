package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOpcodeRoundTrip covers §8's "for all (opcode, param, width) triples
// valid per the opcode's arity, decode(encode(op, p, w)) == (op, p, w)".
func TestOpcodeRoundTrip(t *testing.T) {
	widths := []Width{Width8, Width16, Width32, Width64}
	opcodes := []Opcode{NOP, MOV, PSH, POP, LEA, ADD, IADD, FADD, AND, SHL, JMP, JE, CMP, ICMP, CLF, CALL, RET, HLT}
	for _, op := range opcodes {
		maxParam := uint8(1)
		if op.Arity() == 2 {
			maxParam = 3
		}
		for param := uint8(0); param <= maxParam; param++ {
			for _, w := range widths {
				word := EncodeWord(op, param, w)
				gotOp, gotParam, gotWidth := DecodeWord(word)
				require.Equal(t, op, gotOp)
				require.Equal(t, param, gotParam)
				require.Equal(t, w, gotWidth)
			}
		}
	}
}

// TestRegisterRoundTrip covers §8's "for all reg, decode(encode(reg),
// bit-width-of(reg)) == reg".
func TestRegisterRoundTrip(t *testing.T) {
	families := []RegFamily{RegA, RegB, RegC, RegD, RegE, RegF}
	halves := []RegHalf{RegLow, RegHigh}
	widths := []Width{Width8, Width16, Width32, Width64}
	for _, f := range families {
		for _, h := range halves {
			for _, w := range widths {
				reg := Register{Family: f, Half: h, Width: w}
				got, err := DecodeReg(EncodeReg(reg), w)
				require.NoError(t, err)
				require.Equal(t, reg, got)
			}
		}
	}
	for _, f := range []RegFamily{RegSP, RegBP, RegIP} {
		reg := Register{Family: f, Width: Width64}
		got, err := DecodeReg(EncodeReg(reg), Width64)
		require.NoError(t, err)
		require.Equal(t, reg, got)
	}
}

// TestAddressingModeRoundTrip covers §8's "for all eight modes with valid
// operand combinations ... encode then decode reproduces every component."
func TestAddressingModeRoundTrip(t *testing.T) {
	base := Register{Family: RegA, Width: Width64}
	index := Register{Family: RegB, Width: Width64}
	scales := []int8{1, -2, 4, -8, 16, -32, 64, -128}

	cases := []Addr{
		{Mode: AddrOffset, Offset: -42},
		{Mode: AddrBase, Base: base},
		{Mode: AddrBaseOffset, Base: base, Offset: 16},
		{Mode: AddrBaseIndex, Base: base, Index: index},
		{Mode: AddrBaseIndexOffset, Base: base, Index: index, Offset: -8},
	}
	for _, sc := range scales {
		cases = append(cases,
			Addr{Mode: AddrBaseIndexScale, Base: base, Index: index, Scale: sc},
			Addr{Mode: AddrIndexScaleOffset, Index: index, Scale: sc, Offset: 100},
			Addr{Mode: AddrBaseIndexScaleOffset, Base: base, Index: index, Scale: sc, Offset: -100},
		)
	}

	for _, want := range cases {
		enc, err := EncodeAddr(want)
		require.NoError(t, err)
		got, n, err := DecodeAddr(enc)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, want, got)
	}
}

func TestEncodeImmRoundTrip(t *testing.T) {
	for _, w := range []Width{Width8, Width16, Width32, Width64} {
		bits := uint(8 * w.Bytes())
		var mask uint64 = ^uint64(0)
		if bits < 64 {
			mask = (uint64(1) << bits) - 1
		}
		v := uint64(0xDEADBEEFCAFEBABE) & mask
		enc := encodeImm(v, w)
		require.Len(t, enc, w.Bytes())
		got, err := decodeImm(enc, w)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}
