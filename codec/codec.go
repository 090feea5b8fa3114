// Package codec implements the deterministic binary layout shared by the
// host and the scripts running inside the VM.
//
// Rules: fixed-width integers are little endian; int and uint use the compact
// length encoding; byte slices, strings and slices carry a compact length
// prefix; arrays are written element by element with no prefix; structs are
// the concatenation of their exported fields in declaration order; pointers
// are options (0 = nil, 1 = value follows). Fields tagged `codec:"-"` are
// skipped.
package codec

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedType        = errors.New("unsupported type")
	ErrUnsupportedDestination = errors.New("must be a non-nil pointer to a destination")
	ErrLengthTooLarge         = errors.New("length prefix exceeds limit")
	ErrTrailingBytes          = errors.New("trailing bytes after value")
	ErrInvalidOption          = errors.New("invalid option byte")
	ErrInvalidBool            = errors.New("invalid bool byte")
)

// MaxLength bounds any decoded length prefix.
const MaxLength = 1 << 24

// Encode serializes the given object using the codec rules.
func Encode(obj interface{}) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	encoder := NewEncoder(buffer)

	err := encoder.Encode(obj)
	if err != nil {
		return nil, fmt.Errorf("encoding failed: %w", err)
	}

	return buffer.Bytes(), nil
}

// Decode deserializes inp into typ, which must be a pointer. The whole input
// must be consumed.
func Decode(inp []byte, typ interface{}) error {
	if err := Unmarshal(inp, typ); err != nil {
		return fmt.Errorf("decoding failed: %w", err)
	}
	return nil
}
