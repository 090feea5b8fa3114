package costmodel

import (
	"testing"

	"github.com/colorfulnotion/cellvm/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpCycles(t *testing.T) {
	want := map[vm.Op]uint64{
		vm.OpLD:  2,
		vm.OpLW:  3, vm.OpLH: 3, vm.OpLB: 3, vm.OpLWU: 3, vm.OpLHU: 3, vm.OpLBU: 3,
		vm.OpMUL: 5, vm.OpMULW: 5, vm.OpMULH: 5, vm.OpMULHU: 5, vm.OpMULHSU: 5,
		vm.OpDIV: 16, vm.OpDIVW: 16, vm.OpDIVU: 16, vm.OpDIVUW: 16,
		vm.OpREM: 16, vm.OpREMW: 16, vm.OpREMU: 16, vm.OpREMUW: 16,
	}
	for _, op := range vm.AllOps() {
		expected, ok := want[op]
		if !ok {
			expected = 1
		}
		assert.Equal(t, expected, OpCycles(op), op.String())
	}
}

func TestCompressedLoadsCostLikeBase(t *testing.T) {
	cases := []struct {
		half uint16
		base uint32
	}{
		{0x41c8, 0x0045a503}, // c.lw a0, 4(a1) / lw a0, 4(a1)
		{0x4512, 0x00412503}, // c.lwsp a0, 4(sp) / lw a0, 4(sp)
		{0x6588, 0x0085b503}, // c.ld a0, 8(a1) / ld a0, 8(a1)
		{0x6522, 0x00813503}, // c.ldsp a0, 8(sp) / ld a0, 8(sp)
	}
	for _, tc := range cases {
		c, err := vm.Decode(uint32(tc.half))
		require.NoError(t, err)
		b, err := vm.Decode(tc.base)
		require.NoError(t, err)
		assert.Equal(t, b.Op, c.Op)
		assert.Equal(t, InstructionCycles(b), InstructionCycles(c))
	}
}

func TestTotality(t *testing.T) {
	for op := vm.Op(0); op < 255; op++ {
		assert.NotPanics(t, func() { InstructionCycles(vm.Instruction{Op: op}) })
		assert.GreaterOrEqual(t, OpCycles(op), uint64(1))
	}
}
