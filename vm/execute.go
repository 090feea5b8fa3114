package vm

import (
	"fmt"

	"github.com/colorfulnotion/cellvm/vmerrors"
	"github.com/holiman/uint256"
)

var signExtension = uint256.Int{0, ^uint64(0), ^uint64(0), ^uint64(0)}

func toU256(v uint64, signed bool) *uint256.Int {
	z := new(uint256.Int).SetUint64(v)
	if signed && int64(v) < 0 {
		z.Or(z, &signExtension)
	}
	return z
}

// mulHigh returns bits 64..127 of the 128-bit product.
func mulHigh(a, b uint64, aSigned, bSigned bool) uint64 {
	p := new(uint256.Int).Mul(toU256(a, aSigned), toU256(b, bSigned))
	return p[1]
}

func sext32(v uint64) uint64 {
	return uint64(int64(int32(v)))
}

func loadSize(op Op) (size int, signed bool) {
	switch op {
	case OpLB:
		return 1, true
	case OpLH:
		return 2, true
	case OpLW:
		return 4, true
	case OpLD:
		return 8, false
	case OpLBU:
		return 1, false
	case OpLHU:
		return 2, false
	default: // OpLWU
		return 4, false
	}
}

func storeSize(op Op) int {
	switch op {
	case OpSB:
		return 1
	case OpSH:
		return 2
	case OpSW:
		return 4
	default: // OpSD
		return 8
	}
}

// execute retires in. The pc is advanced here; ECALL is handed to the
// syscall chain after the pc moves past it.
func (m *Machine) execute(in Instruction) error {
	regs := &m.Registers
	a, b := regs.Get(int(in.Rs1)), regs.Get(int(in.Rs2))
	imm := uint64(in.Imm)
	next := m.PC + uint64(in.Length)
	rd := int(in.Rd)

	switch in.Op {
	case OpLUI:
		regs.Set(rd, imm)
	case OpAUIPC:
		regs.Set(rd, m.PC+imm)
	case OpJAL:
		regs.Set(rd, next)
		next = m.PC + imm
	case OpJALR:
		target := (a + imm) &^ 1
		regs.Set(rd, next)
		next = target
	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		var taken bool
		switch in.Op {
		case OpBEQ:
			taken = a == b
		case OpBNE:
			taken = a != b
		case OpBLT:
			taken = int64(a) < int64(b)
		case OpBGE:
			taken = int64(a) >= int64(b)
		case OpBLTU:
			taken = a < b
		case OpBGEU:
			taken = a >= b
		}
		if taken {
			next = m.PC + imm
		}
	case OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU:
		size, signed := loadSize(in.Op)
		v, err := m.Memory.Load(a+imm, size)
		if err != nil {
			return err
		}
		if signed {
			v = uint64(signExtend(v, uint(size*8)))
		}
		regs.Set(rd, v)
	case OpSB, OpSH, OpSW, OpSD:
		if err := m.Memory.Store(a+imm, storeSize(in.Op), b); err != nil {
			return err
		}
	case OpADDI:
		regs.Set(rd, a+imm)
	case OpSLTI:
		regs.Set(rd, boolToU64(int64(a) < in.Imm))
	case OpSLTIU:
		regs.Set(rd, boolToU64(a < imm))
	case OpXORI:
		regs.Set(rd, a^imm)
	case OpORI:
		regs.Set(rd, a|imm)
	case OpANDI:
		regs.Set(rd, a&imm)
	case OpSLLI:
		regs.Set(rd, a<<(imm&0x3f))
	case OpSRLI:
		regs.Set(rd, a>>(imm&0x3f))
	case OpSRAI:
		regs.Set(rd, uint64(int64(a)>>(imm&0x3f)))
	case OpADD:
		regs.Set(rd, a+b)
	case OpSUB:
		regs.Set(rd, a-b)
	case OpSLL:
		regs.Set(rd, a<<(b&0x3f))
	case OpSLT:
		regs.Set(rd, boolToU64(int64(a) < int64(b)))
	case OpSLTU:
		regs.Set(rd, boolToU64(a < b))
	case OpXOR:
		regs.Set(rd, a^b)
	case OpSRL:
		regs.Set(rd, a>>(b&0x3f))
	case OpSRA:
		regs.Set(rd, uint64(int64(a)>>(b&0x3f)))
	case OpOR:
		regs.Set(rd, a|b)
	case OpAND:
		regs.Set(rd, a&b)
	case OpADDIW:
		regs.Set(rd, sext32(a+imm))
	case OpSLLIW:
		regs.Set(rd, sext32(a<<(imm&0x1f)))
	case OpSRLIW:
		regs.Set(rd, sext32(uint64(uint32(a)>>(imm&0x1f))))
	case OpSRAIW:
		regs.Set(rd, uint64(int64(int32(a)>>(imm&0x1f))))
	case OpADDW:
		regs.Set(rd, sext32(a+b))
	case OpSUBW:
		regs.Set(rd, sext32(a-b))
	case OpSLLW:
		regs.Set(rd, sext32(a<<(b&0x1f)))
	case OpSRLW:
		regs.Set(rd, sext32(uint64(uint32(a)>>(b&0x1f))))
	case OpSRAW:
		regs.Set(rd, uint64(int64(int32(a)>>(b&0x1f))))
	case OpFENCE, OpEBREAK:
	case OpECALL:
		m.PC = next
		return m.ecall()
	case OpMUL:
		regs.Set(rd, a*b)
	case OpMULH:
		regs.Set(rd, mulHigh(a, b, true, true))
	case OpMULHSU:
		regs.Set(rd, mulHigh(a, b, true, false))
	case OpMULHU:
		regs.Set(rd, mulHigh(a, b, false, false))
	case OpDIV:
		if b == 0 {
			regs.Set(rd, ^uint64(0))
		} else {
			regs.Set(rd, uint64(int64(a)/int64(b)))
		}
	case OpDIVU:
		if b == 0 {
			regs.Set(rd, ^uint64(0))
		} else {
			regs.Set(rd, a/b)
		}
	case OpREM:
		if b == 0 {
			regs.Set(rd, a)
		} else {
			regs.Set(rd, uint64(int64(a)%int64(b)))
		}
	case OpREMU:
		if b == 0 {
			regs.Set(rd, a)
		} else {
			regs.Set(rd, a%b)
		}
	case OpMULW:
		regs.Set(rd, sext32(a*b))
	case OpDIVW:
		if int32(b) == 0 {
			regs.Set(rd, ^uint64(0))
		} else {
			regs.Set(rd, uint64(int64(int32(a)/int32(b))))
		}
	case OpDIVUW:
		if uint32(b) == 0 {
			regs.Set(rd, ^uint64(0))
		} else {
			regs.Set(rd, sext32(uint64(uint32(a)/uint32(b))))
		}
	case OpREMW:
		if int32(b) == 0 {
			regs.Set(rd, sext32(a))
		} else {
			regs.Set(rd, uint64(int64(int32(a)%int32(b))))
		}
	case OpREMUW:
		if uint32(b) == 0 {
			regs.Set(rd, sext32(a))
		} else {
			regs.Set(rd, sext32(uint64(uint32(a)%uint32(b))))
		}
	default:
		return fmt.Errorf("%w: %s", vmerrors.ErrFInvalidInstruction, in.Op)
	}
	m.PC = next
	return nil
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
