package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/cellvm/vmerrors"
)

const (
	PageShift = 12
	PageSize  = 1 << PageShift
	// MaxMemory bounds the address space; every access must fall below it.
	MaxMemory = 4 << 20
)

// mapping exposes buf[offset:offset+length] read-only at addr.
type mapping struct {
	addr   uint64
	length uint64
	buf    *Buffer
	offset uint64
}

func (mp *mapping) end() uint64 {
	return mp.addr + mp.length
}

// Memory is sparse, page-allocated RAM plus read-only windows over shared
// Buffers. Each page is either anonymous (read/write) or owned by exactly one
// mapping.
type Memory struct {
	pages    map[uint64][]byte
	owners   map[uint64]*mapping
	mappings []*mapping
}

func NewMemory() *Memory {
	return &Memory{
		pages:  make(map[uint64][]byte),
		owners: make(map[uint64]*mapping),
	}
}

func memoryFault(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", vmerrors.ErrFMemory, fmt.Sprintf(format, args...))
}

func checkRange(addr, size uint64) error {
	if addr >= MaxMemory || size > MaxMemory-addr {
		return memoryFault("access [0x%x, +%d) outside address space", addr, size)
	}
	return nil
}

// MmapReadOnly exposes length bytes of buf starting at offset at addr. addr
// must be page aligned, the window must lie inside buf, and the pages it
// spans must not already be in use. A zero length maps nothing.
func (m *Memory) MmapReadOnly(addr, length uint64, buf *Buffer, offset uint64) error {
	if length == 0 {
		return nil
	}
	if addr%PageSize != 0 {
		return memoryFault("mapping address 0x%x is not page aligned", addr)
	}
	if err := checkRange(addr, length); err != nil {
		return err
	}
	if offset > buf.Len() || length > buf.Len()-offset {
		return memoryFault("window [%d, +%d) exceeds buffer of %d bytes", offset, length, buf.Len())
	}
	first, last := addr>>PageShift, (addr+length-1)>>PageShift
	for p := first; p <= last; p++ {
		if _, ok := m.owners[p]; ok {
			return memoryFault("page 0x%x already mapped", p<<PageShift)
		}
		if _, ok := m.pages[p]; ok {
			return memoryFault("page 0x%x already in use", p<<PageShift)
		}
	}
	mp := &mapping{addr: addr, length: length, buf: buf, offset: offset}
	for p := first; p <= last; p++ {
		m.owners[p] = mp
	}
	m.mappings = append(m.mappings, mp)
	return nil
}

// Mappings returns the number of live read-only mappings.
func (m *Memory) Mappings() int {
	return len(m.mappings)
}

func (m *Memory) readByte(addr uint64) (byte, error) {
	p := addr >> PageShift
	if mp, ok := m.owners[p]; ok {
		if addr < mp.addr || addr >= mp.end() {
			return 0, memoryFault("read 0x%x beyond mapping [0x%x, 0x%x)", addr, mp.addr, mp.end())
		}
		return mp.buf.byteAt(mp.offset + addr - mp.addr), nil
	}
	page, ok := m.pages[p]
	if !ok {
		return 0, nil
	}
	return page[addr&(PageSize-1)], nil
}

func (m *Memory) writeByte(addr uint64, v byte) error {
	p := addr >> PageShift
	if _, ok := m.owners[p]; ok {
		return memoryFault("write 0x%x into read-only mapping", addr)
	}
	page, ok := m.pages[p]
	if !ok {
		page = make([]byte, PageSize)
		m.pages[p] = page
	}
	page[addr&(PageSize-1)] = v
	return nil
}

// Load reads size (1, 2, 4 or 8) bytes little endian, zero extended.
func (m *Memory) Load(addr uint64, size int) (uint64, error) {
	if err := checkRange(addr, uint64(size)); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < size; i++ {
		b, err := m.readByte(addr + uint64(i))
		if err != nil {
			return 0, err
		}
		v |= uint64(b) << (8 * i)
	}
	return v, nil
}

// Store writes the low size bytes of v little endian.
func (m *Memory) Store(addr uint64, size int, v uint64) error {
	if err := checkRange(addr, uint64(size)); err != nil {
		return err
	}
	for i := 0; i < size; i++ {
		if err := m.writeByte(addr+uint64(i), byte(v>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) LoadU8(addr uint64) (uint8, error) {
	v, err := m.Load(addr, 1)
	return uint8(v), err
}

func (m *Memory) LoadU64(addr uint64) (uint64, error) {
	return m.Load(addr, 8)
}

func (m *Memory) StoreU64(addr uint64, v uint64) error {
	return m.Store(addr, 8, v)
}

// ReadBytes copies n bytes starting at addr.
func (m *Memory) ReadBytes(addr, n uint64) ([]byte, error) {
	if err := checkRange(addr, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		b, err := m.readByte(addr + i)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// WriteBytes stores data at addr.
func (m *Memory) WriteBytes(addr uint64, data []byte) error {
	if err := checkRange(addr, uint64(len(data))); err != nil {
		return err
	}
	for i, b := range data {
		if err := m.writeByte(addr+uint64(i), b); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) fetch16(addr uint64) (uint16, error) {
	var b [2]byte
	for i := range b {
		v, err := m.readByte(addr + uint64(i))
		if err != nil {
			return 0, err
		}
		b[i] = v
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}
