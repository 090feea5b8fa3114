package vm

import (
	"testing"

	"github.com/colorfulnotion/cellvm/vmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBase(t *testing.T) {
	cases := []struct {
		word uint32
		want Instruction
	}{
		{addi(A0, Zero, -1), Instruction{Op: OpADDI, Rd: A0, Rs1: Zero, Imm: -1}},
		{ecallWord, Instruction{Op: OpECALL}},
		{0x00100073, Instruction{Op: OpEBREAK}},
		{0x000125b7, Instruction{Op: OpLUI, Rd: A1, Imm: 0x12000}},     // lui a1, 0x12
		{0x0085b503, Instruction{Op: OpLD, Rd: A0, Rs1: A1, Imm: 8}},   // ld a0, 8(a1)
		{0x00a5b423, Instruction{Op: OpSD, Rs1: A1, Rs2: A0, Imm: 8}},   // sd a0, 8(a1)
		{0xfe050ee3, Instruction{Op: OpBEQ, Rs1: A0, Imm: -4}},         // beq a0, zero, -4
		{0xff9ff06f, Instruction{Op: OpJAL, Rd: Zero, Imm: -8}}, // jal zero, -8
		{0x03f51513, Instruction{Op: OpSLLI, Rd: A0, Rs1: A0, Imm: 63}}, // slli a0, a0, 63
		{0x43f55513, Instruction{Op: OpSRAI, Rd: A0, Rs1: A0, Imm: 63}}, // srai a0, a0, 63
		{encR(0b0110011, A0, 3, A1, A2, 1), Instruction{Op: OpMULHU, Rd: A0, Rs1: A1, Rs2: A2}},
		{encR(0b0111011, A0, 7, A1, A2, 1), Instruction{Op: OpREMUW, Rd: A0, Rs1: A1, Rs2: A2}},
	}
	for _, tc := range cases {
		got, err := Decode(tc.word)
		require.NoError(t, err, "0x%08x", tc.word)
		tc.want.Length = 4
		assert.Equal(t, tc.want, got, "0x%08x", tc.word)
	}
}

func TestDecodeCompressed(t *testing.T) {
	cases := []struct {
		half uint16
		want Instruction
	}{
		{0x4515, Instruction{Op: OpADDI, Rd: A0, Rs1: Zero, Imm: 5}},    // c.li a0, 5
		{0x4512, Instruction{Op: OpLW, Rd: A0, Rs1: SP, Imm: 4}},        // c.lwsp a0, 4(sp)
		{0x6588, Instruction{Op: OpLD, Rd: A0, Rs1: A1, Imm: 8}},        // c.ld a0, 8(a1)
		{0x6522, Instruction{Op: OpLD, Rd: A0, Rs1: SP, Imm: 8}},        // c.ldsp a0, 8(sp)
		{0x41c8, Instruction{Op: OpLW, Rd: A0, Rs1: A1, Imm: 4}},        // c.lw a0, 4(a1)
		{0x852e, Instruction{Op: OpADD, Rd: A0, Rs1: Zero, Rs2: A1}},    // c.mv a0, a1
		{0x8082, Instruction{Op: OpJALR, Rd: Zero, Rs1: RA}},            // c.jr ra
		{0x9002, Instruction{Op: OpEBREAK}},                             // c.ebreak
		{0x0001, Instruction{Op: OpADDI}},                               // c.nop
		{0xa001, Instruction{Op: OpJAL, Rd: Zero, Imm: 0}},              // c.j 0
		{0x1141, Instruction{Op: OpADDI, Rd: SP, Rs1: SP, Imm: -16}},    // c.addi sp, -16
		{0x8d0d, Instruction{Op: OpSUB, Rd: A0, Rs1: A0, Rs2: A1}},      // c.sub a0, a1
	}
	for _, tc := range cases {
		got, err := Decode(uint32(tc.half))
		require.NoError(t, err, "0x%04x", tc.half)
		tc.want.Length = 2
		assert.Equal(t, tc.want, got, "0x%04x", tc.half)
	}
}

func TestDecodeRejects(t *testing.T) {
	for _, w := range []uint32{0x0000, 0xffffffff, 0x2000, encI(0b0000011, A0, 7, A1, 0)} {
		_, err := Decode(w)
		assert.ErrorIs(t, err, vmerrors.ErrFInvalidInstruction, "0x%08x", w)
	}
}

func TestOpNames(t *testing.T) {
	for _, op := range AllOps() {
		assert.NotEmpty(t, op.String())
		assert.NotEqual(t, "invalid", op.String())
	}
}
