package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vm"
	"github.com/colorfulnotion/cellvm/vmerrors"
	"github.com/spf13/cobra"
	"golang.org/x/arch/riscv64/riscv64asm"
)

const debugHelp = `commands:
  s, step [n]      retire n instructions (default 1)
  c, continue      run until exit or fault
  r, regs          print registers
  x <addr> <n>     dump n bytes of memory at addr
  i, info          pc, next instruction, cycles and mapping count
  q, quit          leave the debugger`

func newDebugCmd(cfg *types.RunConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug <script.elf>",
		Short: "Step through a script interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Script = args[0]
			program, err := os.ReadFile(cfg.Script)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			m, err := newScriptMachine(cfg, program, store, out)
			if err != nil {
				return err
			}
			if err := m.Initialize(); err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "(cellvm) ",
				HistoryFile:     filepath.Join(os.TempDir(), "cellvm_debug_history.txt"),
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
				Stdout:          out,
			})
			if err != nil {
				return fmt.Errorf("failed to start readline: %w", err)
			}
			defer rl.Close()

			fmt.Fprintln(out, debugHelp)
			return debugLoop(m, rl.Readline, out)
		},
	}
	addMachineFlags(cmd, cfg)
	return cmd
}

// debugLoop reads commands until quit or end of input. A fault ends stepping
// but leaves the machine state inspectable.
func debugLoop(m *vm.Machine, next func() (string, error), out io.Writer) error {
	for {
		line, err := next()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "q", "quit", "exit":
			return nil
		case "h", "help":
			fmt.Fprintln(out, debugHelp)
		case "r", "regs":
			fmt.Fprintln(out, m.Registers.String())
		case "i", "info":
			printInfo(m, out)
		case "x":
			if len(fields) != 3 {
				fmt.Fprintln(out, "usage: x <addr> <n>")
				continue
			}
			dumpMemory(m, fields[1], fields[2], out)
		case "s", "step":
			n := uint64(1)
			if len(fields) > 1 {
				v, err := strconv.ParseUint(fields[1], 0, 64)
				if err != nil {
					fmt.Fprintf(out, "bad count %q\n", fields[1])
					continue
				}
				n = v
			}
			for i := uint64(0); i < n && m.Running(); i++ {
				if err := m.Step(); err != nil {
					fmt.Fprintf(out, "Fault: %s (%v)\n", vmerrors.FaultName(err), err)
					break
				}
			}
			report(m, out)
		case "c", "continue":
			for m.Running() {
				if err := m.Step(); err != nil {
					fmt.Fprintf(out, "Fault: %s (%v)\n", vmerrors.FaultName(err), err)
					break
				}
			}
			report(m, out)
		default:
			fmt.Fprintf(out, "unknown command %q, try help\n", fields[0])
		}
	}
}

func report(m *vm.Machine, out io.Writer) {
	if m.Running() {
		printInfo(m, out)
		return
	}
	fmt.Fprintf(out, "Result: %d\nCycles: %d\n", m.ExitCode(), m.Cycles())
}

func printInfo(m *vm.Machine, out io.Writer) {
	next := "?"
	if in, err := m.Fetch(); err == nil {
		next = in.String()
	}
	fmt.Fprintf(out, "pc=0x%x next=%s asm=%q cycles=%d mappings=%d running=%v\n", m.PC, next, disassemble(m, m.PC), m.Cycles(), m.Memory.Mappings(), m.Running())
}

// disassemble renders the instruction at addr in GNU syntax, or "?" when the
// bytes cannot be read or decoded.
func disassemble(m *vm.Machine, addr uint64) string {
	src, err := m.Memory.ReadBytes(addr, 4)
	if err != nil {
		if src, err = m.Memory.ReadBytes(addr, 2); err != nil {
			return "?"
		}
	}
	inst, err := riscv64asm.Decode(src)
	if err != nil {
		return "?"
	}
	return riscv64asm.GNUSyntax(inst)
}

func dumpMemory(m *vm.Machine, addrStr, nStr string, out io.Writer) {
	addr, err := strconv.ParseUint(addrStr, 0, 64)
	if err != nil {
		fmt.Fprintf(out, "bad address %q\n", addrStr)
		return
	}
	n, err := strconv.ParseUint(nStr, 0, 64)
	if err != nil {
		fmt.Fprintf(out, "bad length %q\n", nStr)
		return
	}
	data, err := m.Memory.ReadBytes(addr, n)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
		return
	}
	fmt.Fprint(out, hex.Dump(data))
}
