package vm

import (
	"fmt"

	"github.com/colorfulnotion/cellvm/vmerrors"
)

func invalidInstruction(word uint32, length int) error {
	if length == 2 {
		return fmt.Errorf("%w: 0x%04x", vmerrors.ErrFInvalidInstruction, word)
	}
	return fmt.Errorf("%w: 0x%08x", vmerrors.ErrFInvalidInstruction, word)
}

// instruction word fields
func opcode(w uint32) uint32 { return w & 0x7f }
func rd(w uint32) uint8      { return uint8(w >> 7 & 0x1f) }
func funct3(w uint32) uint32 { return w >> 12 & 0x7 }
func rs1(w uint32) uint8     { return uint8(w >> 15 & 0x1f) }
func rs2(w uint32) uint8     { return uint8(w >> 20 & 0x1f) }
func funct7(w uint32) uint32 { return w >> 25 }

func immI(w uint32) int64 { return int64(int32(w) >> 20) }

func immS(w uint32) int64 {
	return int64(int32(w)>>25<<5) | int64(w>>7&0x1f)
}

func immB(w uint32) int64 {
	return int64(int32(w&0x80000000)>>19) | int64(w&0x80)<<4 | int64(w>>20&0x7e0) | int64(w>>7&0x1e)
}

func immU(w uint32) int64 { return int64(int32(w & 0xfffff000)) }

func immJ(w uint32) int64 {
	return int64(int32(w&0x80000000)>>11) | int64(w&0xff000) | int64(w>>9&0x800) | int64(w>>20&0x7fe)
}

// signExtend treats the low bits bits of v as a two's complement value.
func signExtend(v uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// Decode decodes the 32-bit instruction word w. Only the low 16 bits are
// consulted when they hold a compressed encoding.
func Decode(w uint32) (Instruction, error) {
	if w&0x3 != 0x3 {
		return decodeCompressed(uint16(w))
	}
	return decodeBase(w)
}

func decodeBase(w uint32) (Instruction, error) {
	in := Instruction{Rd: rd(w), Rs1: rs1(w), Rs2: rs2(w), Length: 4}
	f3, f7 := funct3(w), funct7(w)
	bad := func() (Instruction, error) { return Instruction{}, invalidInstruction(w, 4) }

	switch opcode(w) {
	case 0b0110111:
		in.Op, in.Imm = OpLUI, immU(w)
	case 0b0010111:
		in.Op, in.Imm = OpAUIPC, immU(w)
	case 0b1101111:
		in.Op, in.Imm = OpJAL, immJ(w)
	case 0b1100111:
		if f3 != 0 {
			return bad()
		}
		in.Op, in.Imm = OpJALR, immI(w)
	case 0b1100011:
		ops := [8]Op{OpBEQ, OpBNE, OpInvalid, OpInvalid, OpBLT, OpBGE, OpBLTU, OpBGEU}
		in.Op, in.Imm = ops[f3], immB(w)
	case 0b0000011:
		ops := [8]Op{OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU, OpInvalid}
		in.Op, in.Imm = ops[f3], immI(w)
	case 0b0100011:
		ops := [8]Op{OpSB, OpSH, OpSW, OpSD}
		in.Op, in.Imm = ops[f3], immS(w)
	case 0b0010011:
		in.Imm = immI(w)
		switch f3 {
		case 0:
			in.Op = OpADDI
		case 2:
			in.Op = OpSLTI
		case 3:
			in.Op = OpSLTIU
		case 4:
			in.Op = OpXORI
		case 6:
			in.Op = OpORI
		case 7:
			in.Op = OpANDI
		case 1, 5:
			// RV64 shifts take a 6-bit shamt, leaving funct6 above it.
			in.Imm = int64(w >> 20 & 0x3f)
			switch {
			case f3 == 1 && w>>26 == 0:
				in.Op = OpSLLI
			case f3 == 5 && w>>26 == 0:
				in.Op = OpSRLI
			case f3 == 5 && w>>26 == 0x10:
				in.Op = OpSRAI
			}
		}
	case 0b0011011:
		in.Imm = immI(w)
		switch {
		case f3 == 0:
			in.Op = OpADDIW
		case f3 == 1 && f7 == 0:
			in.Op, in.Imm = OpSLLIW, int64(w>>20&0x1f)
		case f3 == 5 && f7 == 0:
			in.Op, in.Imm = OpSRLIW, int64(w>>20&0x1f)
		case f3 == 5 && f7 == 0x20:
			in.Op, in.Imm = OpSRAIW, int64(w>>20&0x1f)
		}
	case 0b0110011:
		switch f7 {
		case 0x00:
			in.Op = [8]Op{OpADD, OpSLL, OpSLT, OpSLTU, OpXOR, OpSRL, OpOR, OpAND}[f3]
		case 0x20:
			in.Op = [8]Op{OpSUB, OpInvalid, OpInvalid, OpInvalid, OpInvalid, OpSRA}[f3]
		case 0x01:
			in.Op = [8]Op{OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU}[f3]
		}
	case 0b0111011:
		switch f7 {
		case 0x00:
			in.Op = [8]Op{OpADDW, OpSLLW, OpInvalid, OpInvalid, OpInvalid, OpSRLW}[f3]
		case 0x20:
			in.Op = [8]Op{OpSUBW, OpInvalid, OpInvalid, OpInvalid, OpInvalid, OpSRAW}[f3]
		case 0x01:
			in.Op = [8]Op{OpMULW, OpInvalid, OpInvalid, OpInvalid, OpDIVW, OpDIVUW, OpREMW, OpREMUW}[f3]
		}
	case 0b0001111:
		in.Op = OpFENCE
	case 0b1110011:
		switch w {
		case 0x00000073:
			in.Op = OpECALL
		case 0x00100073:
			in.Op = OpEBREAK
		}
	}
	if in.Op == OpInvalid {
		return bad()
	}
	// clear fields the format does not carry
	switch opcode(w) {
	case 0b0110111, 0b0010111, 0b1101111:
		in.Rs1, in.Rs2 = 0, 0
	case 0b1100111, 0b0000011, 0b0010011, 0b0011011:
		in.Rs2 = 0
	case 0b1100011, 0b0100011:
		in.Rd = 0
	case 0b0001111, 0b1110011:
		in.Rd, in.Rs1, in.Rs2 = 0, 0, 0
	}
	return in, nil
}

// compressed register fields
func cRd(h uint16) uint8     { return uint8(h >> 7 & 0x1f) }
func cRs2(h uint16) uint8    { return uint8(h >> 2 & 0x1f) }
func cRdPrime(h uint16) uint8 { return uint8(h>>2&0x7) + 8 }
func cRs1Prime(h uint16) uint8 { return uint8(h>>7&0x7) + 8 }

func bit(h uint16, i uint) uint64 { return uint64(h>>i) & 1 }

// cImm6 is the sign-extended imm[5] | imm[4:0] used by C.ADDI, C.LI, C.ANDI.
func cImm6(h uint16) int64 {
	return signExtend(bit(h, 12)<<5|uint64(h>>2&0x1f), 6)
}

func cShamt(h uint16) int64 {
	return int64(bit(h, 12)<<5 | uint64(h>>2&0x1f))
}

func decodeCompressed(h uint16) (Instruction, error) {
	in := Instruction{Length: 2}
	bad := func() (Instruction, error) { return Instruction{}, invalidInstruction(uint32(h), 2) }
	if h == 0 {
		return bad()
	}
	f3 := h >> 13

	switch h & 0x3 {
	case 0b00:
		switch f3 {
		case 0b000: // C.ADDI4SPN
			imm := bit(h, 6)<<2 | bit(h, 5)<<3 | uint64(h>>11&0x3)<<4 | uint64(h>>7&0xf)<<6
			if imm == 0 {
				return bad()
			}
			in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, cRdPrime(h), SP, int64(imm)
		case 0b010: // C.LW
			imm := bit(h, 6)<<2 | uint64(h>>10&0x7)<<3 | bit(h, 5)<<6
			in.Op, in.Rd, in.Rs1, in.Imm = OpLW, cRdPrime(h), cRs1Prime(h), int64(imm)
		case 0b011: // C.LD
			imm := uint64(h>>10&0x7)<<3 | uint64(h>>5&0x3)<<6
			in.Op, in.Rd, in.Rs1, in.Imm = OpLD, cRdPrime(h), cRs1Prime(h), int64(imm)
		case 0b110: // C.SW
			imm := bit(h, 6)<<2 | uint64(h>>10&0x7)<<3 | bit(h, 5)<<6
			in.Op, in.Rs1, in.Rs2, in.Imm = OpSW, cRs1Prime(h), cRdPrime(h), int64(imm)
		case 0b111: // C.SD
			imm := uint64(h>>10&0x7)<<3 | uint64(h>>5&0x3)<<6
			in.Op, in.Rs1, in.Rs2, in.Imm = OpSD, cRs1Prime(h), cRdPrime(h), int64(imm)
		default:
			return bad()
		}
	case 0b01:
		r := cRd(h)
		switch f3 {
		case 0b000: // C.ADDI, C.NOP
			in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, r, r, cImm6(h)
		case 0b001: // C.ADDIW
			if r == 0 {
				return bad()
			}
			in.Op, in.Rd, in.Rs1, in.Imm = OpADDIW, r, r, cImm6(h)
		case 0b010: // C.LI
			in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, r, Zero, cImm6(h)
		case 0b011:
			if r == SP { // C.ADDI16SP
				imm := bit(h, 6)<<4 | bit(h, 2)<<5 | bit(h, 5)<<6 | uint64(h>>3&0x3)<<7 | bit(h, 12)<<9
				if imm == 0 {
					return bad()
				}
				in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, SP, SP, signExtend(imm, 10)
			} else { // C.LUI
				imm := bit(h, 12)<<17 | uint64(h>>2&0x1f)<<12
				if imm == 0 {
					return bad()
				}
				in.Op, in.Rd, in.Imm = OpLUI, r, signExtend(imm, 18)
			}
		case 0b100:
			r := cRs1Prime(h)
			in.Rd, in.Rs1 = r, r
			switch h >> 10 & 0x3 {
			case 0b00:
				in.Op, in.Imm = OpSRLI, cShamt(h)
			case 0b01:
				in.Op, in.Imm = OpSRAI, cShamt(h)
			case 0b10:
				in.Op, in.Imm = OpANDI, cImm6(h)
			case 0b11:
				in.Rs2 = cRdPrime(h)
				sel := h >> 5 & 0x3
				if bit(h, 12) == 0 {
					in.Op = [4]Op{OpSUB, OpXOR, OpOR, OpAND}[sel]
				} else {
					in.Op = [4]Op{OpSUBW, OpADDW, OpInvalid, OpInvalid}[sel]
				}
			}
		case 0b101: // C.J
			imm := uint64(h>>3&0x7)<<1 | bit(h, 11)<<4 | bit(h, 2)<<5 | bit(h, 7)<<6 |
				bit(h, 6)<<7 | uint64(h>>9&0x3)<<8 | bit(h, 8)<<10 | bit(h, 12)<<11
			in.Op, in.Rd, in.Imm = OpJAL, Zero, signExtend(imm, 12)
		case 0b110, 0b111: // C.BEQZ, C.BNEZ
			imm := uint64(h>>3&0x3)<<1 | uint64(h>>10&0x3)<<3 | bit(h, 2)<<5 |
				uint64(h>>5&0x3)<<6 | bit(h, 12)<<8
			in.Op = OpBEQ
			if f3 == 0b111 {
				in.Op = OpBNE
			}
			in.Rs1, in.Rs2, in.Imm = cRs1Prime(h), Zero, signExtend(imm, 9)
		}
	case 0b10:
		r := cRd(h)
		switch f3 {
		case 0b000: // C.SLLI
			in.Op, in.Rd, in.Rs1, in.Imm = OpSLLI, r, r, cShamt(h)
		case 0b010: // C.LWSP
			if r == 0 {
				return bad()
			}
			imm := uint64(h>>4&0x7)<<2 | bit(h, 12)<<5 | uint64(h>>2&0x3)<<6
			in.Op, in.Rd, in.Rs1, in.Imm = OpLW, r, SP, int64(imm)
		case 0b011: // C.LDSP
			if r == 0 {
				return bad()
			}
			imm := uint64(h>>5&0x3)<<3 | bit(h, 12)<<5 | uint64(h>>2&0x7)<<6
			in.Op, in.Rd, in.Rs1, in.Imm = OpLD, r, SP, int64(imm)
		case 0b100:
			src := cRs2(h)
			switch {
			case bit(h, 12) == 0 && src == 0: // C.JR
				if r == 0 {
					return bad()
				}
				in.Op, in.Rd, in.Rs1 = OpJALR, Zero, r
			case bit(h, 12) == 0: // C.MV
				in.Op, in.Rd, in.Rs1, in.Rs2 = OpADD, r, Zero, src
			case r == 0 && src == 0: // C.EBREAK
				in.Op = OpEBREAK
			case src == 0: // C.JALR
				in.Op, in.Rd, in.Rs1 = OpJALR, RA, r
			default: // C.ADD
				in.Op, in.Rd, in.Rs1, in.Rs2 = OpADD, r, r, src
			}
		case 0b110: // C.SWSP
			imm := uint64(h>>9&0xf)<<2 | uint64(h>>7&0x3)<<6
			in.Op, in.Rs1, in.Rs2, in.Imm = OpSW, SP, cRs2(h), int64(imm)
		case 0b111: // C.SDSP
			imm := uint64(h>>10&0x7)<<3 | uint64(h>>7&0x7)<<6
			in.Op, in.Rs1, in.Rs2, in.Imm = OpSD, SP, cRs2(h), int64(imm)
		default:
			return bad()
		}
	}
	if in.Op == OpInvalid {
		return bad()
	}
	return in, nil
}
