package vm

import (
	"context"
	"fmt"

	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

// SyscallExit terminates the run with exit code A0.
const SyscallExit = 93

// Syscalls is a provider in the machine's syscall chain. Ecall reports
// whether it handled the number in A7; a non-nil error aborts the run.
type Syscalls interface {
	Initialize(m *Machine) error
	Ecall(m *Machine) (bool, error)
}

// CostFunc prices one retired instruction in cycles.
type CostFunc func(Instruction) uint64

func unitCost(Instruction) uint64 { return 1 }

type Machine struct {
	Registers Registers
	PC        uint64
	Memory    *Memory

	// MaxCycles of zero disables the limit.
	MaxCycles uint64
	cost      CostFunc
	cycles    uint64

	syscalls []Syscalls
	running  bool
	exitCode int8
}

type Option func(*Machine)

func WithCostFunc(f CostFunc) Option {
	return func(m *Machine) {
		if f != nil {
			m.cost = f
		}
	}
}

func WithMaxCycles(limit uint64) Option {
	return func(m *Machine) { m.MaxCycles = limit }
}

// WithSyscalls appends providers to the chain in the given order.
func WithSyscalls(s ...Syscalls) Option {
	return func(m *Machine) { m.syscalls = append(m.syscalls, s...) }
}

func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		Memory: NewMemory(),
		cost:   unitCost,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddSyscalls appends a provider to the chain.
func (m *Machine) AddSyscalls(s Syscalls) {
	m.syscalls = append(m.syscalls, s)
}

func (m *Machine) Cycles() uint64 { return m.cycles }

func (m *Machine) Running() bool { return m.running }

func (m *Machine) ExitCode() int8 { return m.exitCode }

// Initialize runs each provider's Initialize hook and marks the machine
// runnable.
func (m *Machine) Initialize() error {
	for _, s := range m.syscalls {
		if err := s.Initialize(m); err != nil {
			return err
		}
	}
	m.running = true
	return nil
}

// AddCycles charges extra cycles, faulting when the limit is crossed.
func (m *Machine) AddCycles(n uint64) error {
	m.cycles += n
	if m.MaxCycles > 0 && m.cycles > m.MaxCycles {
		return fmt.Errorf("%w: %d > %d", vmerrors.ErrFCyclesExceeded, m.cycles, m.MaxCycles)
	}
	return nil
}

// Fetch decodes the instruction at the current pc without executing it.
func (m *Machine) Fetch() (Instruction, error) {
	if err := checkRange(m.PC, 2); err != nil {
		return Instruction{}, err
	}
	lo, err := m.Memory.fetch16(m.PC)
	if err != nil {
		return Instruction{}, err
	}
	if lo&0x3 != 0x3 {
		return decodeCompressed(lo)
	}
	if err := checkRange(m.PC, 4); err != nil {
		return Instruction{}, err
	}
	hi, err := m.Memory.fetch16(m.PC + 2)
	if err != nil {
		return Instruction{}, err
	}
	return decodeBase(uint32(lo) | uint32(hi)<<16)
}

// Step retires one instruction.
func (m *Machine) Step() error {
	in, err := m.Fetch()
	if err != nil {
		m.running = false
		return fmt.Errorf("pc 0x%x: %w", m.PC, err)
	}
	pc := m.PC
	if err := m.execute(in); err != nil {
		m.running = false
		return fmt.Errorf("pc 0x%x %s: %w", pc, in, err)
	}
	if err := m.AddCycles(m.cost(in)); err != nil {
		m.running = false
		return err
	}
	return nil
}

// Run steps until the script exits or faults, checking ctx between
// instructions.
func (m *Machine) Run(ctx context.Context) (int8, error) {
	if !m.running {
		if err := m.Initialize(); err != nil {
			return 0, err
		}
	}
	for m.running {
		if err := ctx.Err(); err != nil {
			m.running = false
			return 0, err
		}
		if err := m.Step(); err != nil {
			log.Debug(log.VMMonitoring, "run faulted", "pc", fmt.Sprintf("0x%x", m.PC), "cycles", m.cycles, "fault", vmerrors.FaultName(err))
			return 0, err
		}
	}
	log.Debug(log.VMMonitoring, "run exited", "code", m.exitCode, "cycles", m.cycles)
	return m.exitCode, nil
}

func (m *Machine) ecall() error {
	num := m.Registers.Get(A7)
	log.Trace(log.VMMonitoring, "ecall", "num", num, "pc", fmt.Sprintf("0x%x", m.PC))
	if num == SyscallExit {
		m.exitCode = int8(m.Registers.Get(A0))
		m.running = false
		return nil
	}
	for _, s := range m.syscalls {
		handled, err := s.Ecall(m)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	return fmt.Errorf("%w: %d", vmerrors.ErrFInvalidEcall, num)
}
