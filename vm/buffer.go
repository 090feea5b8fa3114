package vm

// Buffer is an immutable host byte buffer that read-only mappings share.
// Mappings keep a pointer and a base offset; the bytes are never copied or
// modified once the buffer is created.
type Buffer struct {
	data []byte
}

// NewBuffer takes ownership of data; callers must not modify it afterwards.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) Len() uint64 {
	if b == nil {
		return 0
	}
	return uint64(len(b.data))
}

// Slice returns the window [offset, offset+length) without copying. The
// returned slice must be treated as read-only.
func (b *Buffer) Slice(offset, length uint64) ([]byte, bool) {
	if offset > b.Len() || length > b.Len()-offset {
		return nil, false
	}
	return b.data[offset : offset+length], true
}

func (b *Buffer) byteAt(i uint64) byte {
	return b.data[i]
}
