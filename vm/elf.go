package vm

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"

	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

func invalidElf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", vmerrors.ErrFInvalidElf, fmt.Sprintf(format, args...))
}

// LoadELF copies the loadable segments of a 64-bit little-endian RISC-V ELF
// image into memory, points pc at its entry and sp at the top of memory.
func (m *Machine) LoadELF(program []byte) error {
	f, err := elf.NewFile(bytes.NewReader(program))
	if err != nil {
		return invalidElf("%v", err)
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Data != elf.ELFDATA2LSB || f.Machine != elf.EM_RISCV {
		return invalidElf("want ELF64 little-endian RISC-V, got %s %s %s", f.Class, f.Data, f.Machine)
	}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return invalidElf("segment at 0x%x: file size %d exceeds memory size %d", prog.Vaddr, prog.Filesz, prog.Memsz)
		}
		if err := checkRange(prog.Vaddr, prog.Memsz); err != nil {
			return invalidElf("segment at 0x%x+%d does not fit in memory", prog.Vaddr, prog.Memsz)
		}
		data := make([]byte, prog.Memsz)
		if _, err := io.ReadFull(prog.Open(), data[:prog.Filesz]); err != nil {
			return invalidElf("segment at 0x%x: %v", prog.Vaddr, err)
		}
		if err := m.Memory.WriteBytes(prog.Vaddr, data); err != nil {
			return err
		}
		log.Trace(log.VMMonitoring, "loaded segment", "vaddr", fmt.Sprintf("0x%x", prog.Vaddr), "memsz", prog.Memsz, "flags", prog.Flags)
	}
	m.PC = f.Entry
	m.Registers.Set(SP, MaxMemory)
	return nil
}

// LoadProgram places raw code at addr and starts execution there. Used for
// flat images without an ELF header.
func (m *Machine) LoadProgram(addr uint64, code []byte) error {
	if err := m.Memory.WriteBytes(addr, code); err != nil {
		return err
	}
	m.PC = addr
	m.Registers.Set(SP, MaxMemory)
	return nil
}
