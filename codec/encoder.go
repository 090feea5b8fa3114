package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// Encoder encodes to a given io.Writer.
type Encoder struct {
	encodeState
}

// NewEncoder creates a new encoder with the given writer.
func NewEncoder(writer io.Writer) (encoder *Encoder) {
	return &Encoder{
		encodeState: encodeState{Writer: writer},
	}
}

// Encode encodes value to the encoder writer.
func (e *Encoder) Encode(value interface{}) (err error) {
	return e.marshal(reflect.ValueOf(value))
}

// Marshal takes in an interface{} and attempts to marshal into []byte
func Marshal(v interface{}) (b []byte, err error) {
	buffer := bytes.NewBuffer(nil)
	es := encodeState{Writer: buffer}
	err = es.marshal(reflect.ValueOf(v))
	if err != nil {
		return
	}
	b = buffer.Bytes()
	return
}

// MustMarshal runs Marshal and panics on error.
func MustMarshal(v interface{}) (b []byte) {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

type encodeState struct {
	io.Writer
}

func (es *encodeState) marshal(v reflect.Value) (err error) {
	if !v.IsValid() {
		return fmt.Errorf("%w: invalid value", ErrUnsupportedType)
	}
	switch v.Kind() {
	case reflect.Int:
		err = es.encodeUint(uint64(v.Int()))
	case reflect.Uint:
		err = es.encodeUint(v.Uint())
	case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64:
		err = es.encodeFixedWidthInt(v)
	case reflect.Bool:
		err = es.encodeBool(v.Bool())
	case reflect.String:
		err = es.encodeBytes([]byte(v.String()))
	case reflect.Ptr:
		// Anything that is a pointer is an Option to capture {nil, T}
		if v.IsNil() {
			_, err = es.Write([]byte{0})
			return
		}
		if _, err = es.Write([]byte{1}); err != nil {
			return
		}
		err = es.marshal(v.Elem())
	case reflect.Struct:
		err = es.encodeStruct(v)
	case reflect.Array:
		err = es.encodeArray(v)
	case reflect.Slice:
		err = es.encodeSlice(v)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, v.Type())
	}
	return
}

// encodeSlice encodes a slice with length prefix
func (es *encodeState) encodeSlice(v reflect.Value) (err error) {
	if v.Type().Elem().Kind() == reflect.Uint8 {
		return es.encodeBytes(v.Bytes())
	}
	err = es.encodeLength(v.Len())
	if err != nil {
		return
	}
	for i := 0; i < v.Len(); i++ {
		err = es.marshal(v.Index(i))
		if err != nil {
			return
		}
	}
	return
}

// encodeArray encodes an array without length prefix
func (es *encodeState) encodeArray(v reflect.Value) (err error) {
	for i := 0; i < v.Len(); i++ {
		err = es.marshal(v.Index(i))
		if err != nil {
			return
		}
	}
	return
}

// encodeBool encodes a boolean value
func (es *encodeState) encodeBool(l bool) (err error) {
	switch l {
	case true:
		_, err = es.Write([]byte{0x01})
	case false:
		_, err = es.Write([]byte{0x00})
	}
	return
}

// encodeBytes encodes a byte slice with length prefix
func (es *encodeState) encodeBytes(b []byte) (err error) {
	err = es.encodeLength(len(b))
	if err != nil {
		return
	}

	_, err = es.Write(b)
	return
}

// encodeFixedWidthInt encodes fixed width integers
func (es *encodeState) encodeFixedWidthInt(v reflect.Value) (err error) {
	switch v.Kind() {
	case reflect.Int8:
		err = binary.Write(es, binary.LittleEndian, uint8(v.Int()))
	case reflect.Uint8:
		err = binary.Write(es, binary.LittleEndian, uint8(v.Uint()))
	case reflect.Int16:
		err = binary.Write(es, binary.LittleEndian, uint16(v.Int()))
	case reflect.Uint16:
		err = binary.Write(es, binary.LittleEndian, uint16(v.Uint()))
	case reflect.Int32:
		err = binary.Write(es, binary.LittleEndian, uint32(v.Int()))
	case reflect.Uint32:
		err = binary.Write(es, binary.LittleEndian, uint32(v.Uint()))
	case reflect.Int64:
		err = binary.Write(es, binary.LittleEndian, uint64(v.Int()))
	case reflect.Uint64:
		err = binary.Write(es, binary.LittleEndian, v.Uint())
	default:
		err = fmt.Errorf("invalid type: %s", v.Type())
	}
	return
}

// encodeStruct encodes struct fields in declaration order
func (es *encodeState) encodeStruct(v reflect.Value) (err error) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if skipField(t.Field(i)) {
			continue
		}
		err = es.marshal(v.Field(i))
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), t.Field(i).Name, err)
		}
	}
	return
}

func skipField(f reflect.StructField) bool {
	return !f.IsExported() || f.Tag.Get("codec") == "-"
}

// encodeLength encodes the length of a collection
func (es *encodeState) encodeLength(l int) (err error) {
	return es.encodeUint(uint64(l))
}

// encodeUint encodes unsigned integers with the compact encoding
func (es *encodeState) encodeUint(i uint64) (err error) {
	switch {
	case i < 1<<6:
		err = binary.Write(es, binary.LittleEndian, byte(i)<<2)
	case i < 1<<14:
		err = binary.Write(es, binary.LittleEndian, uint16(i<<2)+1)
	case i < 1<<30:
		err = binary.Write(es, binary.LittleEndian, uint32(i<<2)+2)
	default:
		o := make([]byte, 8)
		m := i
		var numBytes int
		for numBytes = 0; numBytes < 8 && m != 0; numBytes++ {
			m = m >> 8
		}

		topSixBits := uint8(numBytes - 4)
		lengthByte := topSixBits<<2 + 3

		err = binary.Write(es, binary.LittleEndian, lengthByte)
		if err == nil {
			binary.LittleEndian.PutUint64(o, i)
			err = binary.Write(es, binary.LittleEndian, o[0:numBytes])
		}
	}
	return
}
