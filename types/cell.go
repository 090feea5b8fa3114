package types

import (
	"fmt"
)

// CellSource selects which cell list of the current transaction a cell
// syscall targets.
type CellSource uint8

const (
	SourceInput  CellSource = 0
	SourceOutput CellSource = 1
)

// String doubles as the directory name in the local data layout.
func (s CellSource) String() string {
	switch s {
	case SourceInput:
		return "input"
	case SourceOutput:
		return "output"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

type cellStatusKind uint8

const (
	cellUnknown cellStatusKind = iota
	cellCurrent
)

// CellStatus is the result of resolving an OutPoint: either the live cell
// (Current) or Unknown. A cell that was spent elsewhere is not
// distinguishable from one that never existed; both are Unknown.
type CellStatus struct {
	kind   cellStatusKind
	output CellOutput
}

func Current(output CellOutput) CellStatus {
	return CellStatus{kind: cellCurrent, output: output}
}

func Unknown() CellStatus {
	return CellStatus{kind: cellUnknown}
}

func (s CellStatus) IsCurrent() bool {
	return s.kind == cellCurrent
}

func (s CellStatus) IsUnknown() bool {
	return s.kind == cellUnknown
}

// Output returns the cell when the status is Current.
func (s CellStatus) Output() (CellOutput, bool) {
	if s.kind != cellCurrent {
		return CellOutput{}, false
	}
	return s.output, true
}

func (s CellStatus) String() string {
	if s.kind == cellCurrent {
		return fmt.Sprintf("Current(capacity=%d, lock=%x)", s.output.Capacity, []byte(s.output.Lock))
	}
	return "Unknown"
}
