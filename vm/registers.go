package vm

import "fmt"

// ABI register indexes.
const (
	Zero = 0
	RA   = 1
	SP   = 2
	GP   = 3
	TP   = 4
	T0   = 5
	T1   = 6
	T2   = 7
	S0   = 8
	S1   = 9
	A0   = 10
	A1   = 11
	A2   = 12
	A3   = 13
	A4   = 14
	A5   = 15
	A6   = 16
	A7   = 17
)

const RegisterCount = 32

var registerNames = [RegisterCount]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// Registers is the integer register file. x0 always reads zero.
type Registers [RegisterCount]uint64

func (r *Registers) Get(idx int) uint64 {
	if idx <= Zero || idx >= RegisterCount {
		return 0
	}
	return r[idx]
}

func (r *Registers) Set(idx int, v uint64) {
	if idx <= Zero || idx >= RegisterCount {
		return
	}
	r[idx] = v
}

func RegisterName(idx int) string {
	if idx < 0 || idx >= RegisterCount {
		return fmt.Sprintf("x%d", idx)
	}
	return registerNames[idx]
}

func (r *Registers) String() string {
	s := ""
	for i := 0; i < RegisterCount; i++ {
		s += fmt.Sprintf("%-4s=0x%016x", registerNames[i], r[i])
		if i%4 == 3 {
			s += "\n"
		} else {
			s += " "
		}
	}
	return s
}
