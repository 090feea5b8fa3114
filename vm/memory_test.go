package vm

import (
	"testing"

	"github.com/colorfulnotion/cellvm/vmerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapReadOnlyWindow(t *testing.T) {
	mem := NewMemory()
	buf := NewBuffer([]byte("0123456789"))
	require.NoError(t, mem.MmapReadOnly(0x10000, 4, buf, 3))

	got, err := mem.ReadBytes(0x10000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("3456"), got)

	// inside the page but past the mapped length
	_, err = mem.LoadU8(0x10004)
	assert.ErrorIs(t, err, vmerrors.ErrFMemory)

	err = mem.Store(0x10000, 1, 0xff)
	assert.ErrorIs(t, err, vmerrors.ErrFMemory)
	err = mem.Store(0x10ff0, 8, 0)
	assert.ErrorIs(t, err, vmerrors.ErrFMemory)

	assert.Equal(t, 1, mem.Mappings())
}

func TestMmapSharesBuffer(t *testing.T) {
	mem := NewMemory()
	buf := NewBuffer([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, mem.MmapReadOnly(0x20000, 8, buf, 0))
	require.NoError(t, mem.MmapReadOnly(0x21000, 4, buf, 4))

	v, err := mem.LoadU64(0x20000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), v)
	w, err := mem.Load(0x21000, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x08070605), w)
}

func TestMmapRejections(t *testing.T) {
	buf := NewBuffer(make([]byte, 2*PageSize))
	cases := []struct {
		name   string
		setup  func(*Memory)
		addr   uint64
		length uint64
		offset uint64
	}{
		{name: "unaligned", addr: 0x10001, length: 1},
		{name: "beyond buffer", addr: 0x10000, length: 2*PageSize + 1},
		{name: "offset beyond buffer", addr: 0x10000, length: 1, offset: 2*PageSize + 1},
		{name: "window crosses buffer end", addr: 0x10000, length: 8, offset: 2*PageSize - 4},
		{name: "outside address space", addr: MaxMemory, length: 1},
		{name: "overlaps mapping", addr: 0x10000, length: 1, setup: func(m *Memory) {
			require.NoError(t, m.MmapReadOnly(0x10000, 2, buf, 0))
		}},
		{name: "overlaps tail page of mapping", addr: 0x11000, length: 1, setup: func(m *Memory) {
			require.NoError(t, m.MmapReadOnly(0x10000, PageSize+1, buf, 0))
		}},
		{name: "overlaps written page", addr: 0x10000, length: 1, setup: func(m *Memory) {
			require.NoError(t, m.Store(0x10800, 1, 1))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mem := NewMemory()
			if tc.setup != nil {
				tc.setup(mem)
			}
			before := mem.Mappings()
			err := mem.MmapReadOnly(tc.addr, tc.length, buf, tc.offset)
			assert.ErrorIs(t, err, vmerrors.ErrFMemory)
			assert.Equal(t, before, mem.Mappings())
		})
	}
}

func TestMmapZeroLengthIsNoop(t *testing.T) {
	mem := NewMemory()
	require.NoError(t, mem.MmapReadOnly(0x10001, 0, NewBuffer(nil), 0))
	assert.Equal(t, 0, mem.Mappings())
	require.NoError(t, mem.Store(0x10000, 1, 7))
}

func TestMemoryBounds(t *testing.T) {
	mem := NewMemory()
	_, err := mem.LoadU64(MaxMemory - 4)
	assert.ErrorIs(t, err, vmerrors.ErrFMemory)
	require.NoError(t, mem.StoreU64(MaxMemory-8, 42))
	v, err := mem.LoadU64(MaxMemory - 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)

	v, err = mem.LoadU64(0x3000)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestBufferSlice(t *testing.T) {
	buf := NewBuffer([]byte{1, 2, 3})
	s, ok := buf.Slice(1, 2)
	require.True(t, ok)
	assert.Equal(t, []byte{2, 3}, s)
	_, ok = buf.Slice(2, 2)
	assert.False(t, ok)
	_, ok = buf.Slice(4, 0)
	assert.False(t, ok)
	var nilBuf *Buffer
	assert.Zero(t, nilBuf.Len())
}
