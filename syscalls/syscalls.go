// Package syscalls services the data and diagnostic ecalls a script issues:
// mapping the current transaction or one of its cells read-only into the
// machine's memory, and printing debug text.
package syscalls

import (
	"fmt"

	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

// Syscall numbers, read from A7.
const (
	MmapTx     = 2049
	MmapCell   = 2050
	DebugPrint = 2051
)

// Status codes returned in A0 by the mmap syscalls.
const (
	Success     = 0
	OverrideLen = 1
)

// Mode selects how much of a dataset an mmap request wants.
type Mode uint8

const (
	// ModeAll maps the whole dataset, or publishes its length when the
	// caller's buffer is too small.
	ModeAll Mode = 0
	// ModePartial maps a window starting at a caller-chosen offset.
	ModePartial Mode = 1
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModePartial:
		return "partial"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func ParseMode(flag uint64) (Mode, error) {
	switch flag {
	case 0:
		return ModeAll, nil
	case 1:
		return ModePartial, nil
	default:
		return 0, fmt.Errorf("%w: mode %d", vmerrors.ErrFParse, flag)
	}
}

func ParseSource(flag uint64) (types.CellSource, error) {
	switch flag {
	case 0:
		return types.SourceInput, nil
	case 1:
		return types.SourceOutput, nil
	default:
		return 0, fmt.Errorf("%w: source %d", vmerrors.ErrFParse, flag)
	}
}

func syscallName(num uint64) string {
	switch num {
	case MmapTx:
		return "mmap_tx"
	case MmapCell:
		return "mmap_cell"
	case DebugPrint:
		return "debug_print"
	default:
		return fmt.Sprintf("%d", num)
	}
}
