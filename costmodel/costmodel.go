// Package costmodel prices retired instructions in cycles.
package costmodel

import "github.com/colorfulnotion/cellvm/vm"

const (
	CyclesLoad64  = 2
	CyclesLoad    = 3
	CyclesMul     = 5
	CyclesDiv     = 16
	CyclesDefault = 1
)

// InstructionCycles returns the cycle cost of in. Compressed loads decode to
// the same Op as their base form and cost the same.
func InstructionCycles(in vm.Instruction) uint64 {
	return OpCycles(in.Op)
}

func OpCycles(op vm.Op) uint64 {
	switch op {
	case vm.OpLD:
		return CyclesLoad64
	case vm.OpLW, vm.OpLH, vm.OpLB, vm.OpLWU, vm.OpLHU, vm.OpLBU:
		return CyclesLoad
	case vm.OpMUL, vm.OpMULW, vm.OpMULH, vm.OpMULHU, vm.OpMULHSU:
		return CyclesMul
	case vm.OpDIV, vm.OpDIVW, vm.OpDIVU, vm.OpDIVUW,
		vm.OpREM, vm.OpREMW, vm.OpREMU, vm.OpREMUW:
		return CyclesDiv
	default:
		return CyclesDefault
	}
}

var _ vm.CostFunc = InstructionCycles
