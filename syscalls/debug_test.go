package syscalls

import (
	"bytes"
	"testing"

	"github.com/colorfulnotion/cellvm/vm"
	"github.com/colorfulnotion/cellvm/vmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debugMachine(t *testing.T, text []byte) *vm.Machine {
	t.Helper()
	m := vm.NewMachine()
	require.NoError(t, m.Memory.WriteBytes(0x2000, text))
	m.Registers.Set(vm.A0, 0x2000)
	m.Registers.Set(vm.A7, DebugPrint)
	return m
}

func TestDebugPrintHello(t *testing.T) {
	var got []string
	d := NewDebugSyscalls(WithSink(func(text string) { got = append(got, text) }))
	m := debugMachine(t, []byte("hello\x00world"))

	handled, err := d.Ecall(m)
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0])
	assert.Len(t, got[0], 5)
}

func TestDebugPrintEmpty(t *testing.T) {
	var got []string
	d := NewDebugSyscalls(WithSink(func(text string) { got = append(got, text) }))
	handled, err := d.Ecall(debugMachine(t, []byte{0}))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []string{""}, got)
}

func TestDebugWriterSink(t *testing.T) {
	var out bytes.Buffer
	d := NewDebugSyscalls(WithSink(WriterSink(&out)))
	_, err := d.Ecall(debugMachine(t, []byte("ok\x00")))
	require.NoError(t, err)
	assert.Equal(t, "DEBUG: ok\n", out.String())
}

func TestDebugInvalidUTF8(t *testing.T) {
	var got string
	lenient := NewDebugSyscalls(WithSink(func(text string) { got = text }))
	handled, err := lenient.Ecall(debugMachine(t, []byte{'a', 0xff, 'b', 0}))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "a�b", got)

	called := false
	strict := NewDebugSyscalls(WithStrict(true), WithSink(func(string) { called = true }))
	handled, err = strict.Ecall(debugMachine(t, []byte{'a', 0xff, 'b', 0}))
	assert.False(t, handled)
	assert.ErrorIs(t, err, vmerrors.ErrFInvalidText)
	assert.False(t, called)
}

func TestDebugPropagatesMemoryFault(t *testing.T) {
	d := NewDebugSyscalls(WithSink(func(string) {}))
	m := vm.NewMachine()
	require.NoError(t, m.Memory.MmapReadOnly(0x10000, 3, vm.NewBuffer([]byte("abc")), 0))
	m.Registers.Set(vm.A0, 0x10000)
	m.Registers.Set(vm.A7, DebugPrint)

	_, err := d.Ecall(m)
	assert.ErrorIs(t, err, vmerrors.ErrFMemory)
}
