package syscalls

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/vm"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

// Sink receives debug text, without its terminator.
type Sink func(text string)

// WriterSink prints each message as "DEBUG: <text>".
func WriterSink(w io.Writer) Sink {
	return func(text string) {
		fmt.Fprintf(w, "DEBUG: %s\n", text)
	}
}

// DebugSyscalls services DebugPrint.
type DebugSyscalls struct {
	sink Sink
	// Strict turns text that is not valid UTF-8 into an InvalidText fault
	// instead of forwarding it with replacement characters.
	Strict bool
}

type DebugOption func(*DebugSyscalls)

func WithSink(sink Sink) DebugOption {
	return func(d *DebugSyscalls) { d.sink = sink }
}

func WithStrict(strict bool) DebugOption {
	return func(d *DebugSyscalls) { d.Strict = strict }
}

func NewDebugSyscalls(opts ...DebugOption) *DebugSyscalls {
	initPrometheusMetrics()
	d := &DebugSyscalls{sink: WriterSink(os.Stdout)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DebugSyscalls) Initialize(*vm.Machine) error {
	return nil
}

func (d *DebugSyscalls) Ecall(m *vm.Machine) (bool, error) {
	if m.Registers.Get(vm.A7) != DebugPrint {
		return false, nil
	}
	text, err := d.readText(m, m.Registers.Get(vm.A0))
	if err != nil {
		observeSyscall(DebugPrint, "fault")
		return false, err
	}
	observeSyscall(DebugPrint, "success")
	log.Debug(log.ScriptDebug, "debug print", "text", text)
	if d.sink != nil {
		d.sink(text)
	}
	return true, nil
}

func (d *DebugSyscalls) readText(m *vm.Machine, addr uint64) (string, error) {
	var buf []byte
	for {
		b, err := m.Memory.LoadU8(addr)
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
		addr++
	}
	if utf8.Valid(buf) {
		return string(buf), nil
	}
	if d.Strict {
		return "", fmt.Errorf("%w: %q", vmerrors.ErrFInvalidText, buf)
	}
	return strings.ToValidUTF8(string(buf), string(utf8.RuneError)), nil
}
