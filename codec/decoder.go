package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

// Unmarshal takes data and a destination pointer to unmarshal the data to.
// Bytes left over after the value are an error.
func Unmarshal(data []byte, dst interface{}) (err error) {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		err = fmt.Errorf("%w: %T", ErrUnsupportedDestination, dst)
		return
	}

	reader := bytes.NewReader(data)
	ds := decodeState{Reader: reader}
	err = ds.unmarshal(dstv.Elem())
	if err != nil {
		return
	}
	if reader.Len() != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, reader.Len())
	}
	return
}

// Decoder is used to decode from an io.Reader
type Decoder struct {
	decodeState
}

// Decode accepts a pointer to a destination and decodes into the supplied destination
func (d *Decoder) Decode(dst interface{}) (err error) {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		err = fmt.Errorf("%w: %T", ErrUnsupportedDestination, dst)
		return
	}
	return d.unmarshal(dstv.Elem())
}

// NewDecoder is constructor for Decoder
func NewDecoder(r io.Reader) (d *Decoder) {
	d = &Decoder{
		decodeState{r},
	}
	return
}

type decodeState struct {
	io.Reader
}

func (ds *decodeState) unmarshal(dstv reflect.Value) (err error) {
	switch dstv.Kind() {
	case reflect.Int:
		var u uint64
		u, err = ds.decodeUint()
		dstv.SetInt(int64(u))
	case reflect.Uint:
		var u uint64
		u, err = ds.decodeUint()
		dstv.SetUint(u)
	case reflect.Int8, reflect.Uint8, reflect.Int16, reflect.Uint16,
		reflect.Int32, reflect.Uint32, reflect.Int64, reflect.Uint64:
		err = ds.decodeFixedWidthInt(dstv)
	case reflect.Bool:
		err = ds.decodeBool(dstv)
	case reflect.String:
		var b []byte
		b, err = ds.decodeBytes()
		dstv.SetString(string(b))
	case reflect.Ptr:
		err = ds.decodePointer(dstv)
	case reflect.Struct:
		err = ds.decodeStruct(dstv)
	case reflect.Array:
		err = ds.decodeArray(dstv)
	case reflect.Slice:
		err = ds.decodeSlice(dstv)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, dstv.Type())
	}
	return
}

// ReadByte reads one byte from the underlying reader
func (ds *decodeState) ReadByte() (byte, error) {
	b := make([]byte, 1)
	_, err := io.ReadFull(ds.Reader, b)
	return b[0], err
}

func (ds *decodeState) decodePointer(dstv reflect.Value) (err error) {
	rb, err := ds.ReadByte()
	if err != nil {
		return
	}
	switch rb {
	case 0x00:
		dstv.Set(reflect.Zero(dstv.Type()))
	case 0x01:
		elem := reflect.New(dstv.Type().Elem())
		if err = ds.unmarshal(elem.Elem()); err != nil {
			return
		}
		dstv.Set(elem)
	default:
		err = fmt.Errorf("%w: %d", ErrInvalidOption, rb)
	}
	return
}

func (ds *decodeState) decodeSlice(dstv reflect.Value) (err error) {
	if dstv.Type().Elem().Kind() == reflect.Uint8 {
		var b []byte
		if b, err = ds.decodeBytes(); err != nil {
			return
		}
		if len(b) == 0 {
			dstv.Set(reflect.Zero(dstv.Type()))
			return
		}
		dstv.SetBytes(b)
		return
	}
	l, err := ds.decodeLength()
	if err != nil {
		return
	}
	if l == 0 {
		dstv.Set(reflect.Zero(dstv.Type()))
		return
	}
	out := reflect.MakeSlice(dstv.Type(), int(l), int(l))
	for i := 0; i < int(l); i++ {
		if err = ds.unmarshal(out.Index(i)); err != nil {
			return
		}
	}
	dstv.Set(out)
	return
}

func (ds *decodeState) decodeArray(dstv reflect.Value) (err error) {
	if dstv.Type().Elem().Kind() == reflect.Uint8 {
		buf := make([]byte, dstv.Len())
		if _, err = io.ReadFull(ds.Reader, buf); err != nil {
			return
		}
		for i, b := range buf {
			dstv.Index(i).SetUint(uint64(b))
		}
		return
	}
	for i := 0; i < dstv.Len(); i++ {
		if err = ds.unmarshal(dstv.Index(i)); err != nil {
			return
		}
	}
	return
}

func (ds *decodeState) decodeStruct(dstv reflect.Value) (err error) {
	t := dstv.Type()
	for i := 0; i < dstv.NumField(); i++ {
		if skipField(t.Field(i)) {
			continue
		}
		if err = ds.unmarshal(dstv.Field(i)); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), t.Field(i).Name, err)
		}
	}
	return
}

func (ds *decodeState) decodeBool(dstv reflect.Value) (err error) {
	rb, err := ds.ReadByte()
	if err != nil {
		return
	}
	switch rb {
	case 0x00:
		dstv.SetBool(false)
	case 0x01:
		dstv.SetBool(true)
	default:
		err = fmt.Errorf("%w: %d", ErrInvalidBool, rb)
	}
	return
}

// decodeUint reads the compact encoding written by encodeUint.
func (ds *decodeState) decodeUint() (uint64, error) {
	first, err := ds.ReadByte()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0:
		return uint64(first >> 2), nil
	case 1:
		buf := []byte{first, 0}
		if _, err = io.ReadFull(ds.Reader, buf[1:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(buf) >> 2), nil
	case 2:
		buf := []byte{first, 0, 0, 0}
		if _, err = io.ReadFull(ds.Reader, buf[1:]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(buf) >> 2), nil
	default:
		numBytes := int(first>>2) + 4
		if numBytes > 8 {
			return 0, fmt.Errorf("%w: %d byte integer", ErrUnsupportedType, numBytes)
		}
		buf := make([]byte, 8)
		if _, err = io.ReadFull(ds.Reader, buf[:numBytes]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(buf), nil
	}
}

func (ds *decodeState) decodeLength() (uint64, error) {
	l, err := ds.decodeUint()
	if err != nil {
		return 0, err
	}
	if l > MaxLength {
		return 0, fmt.Errorf("%w: %d", ErrLengthTooLarge, l)
	}
	return l, nil
}

func (ds *decodeState) decodeBytes() ([]byte, error) {
	l, err := ds.decodeLength()
	if err != nil {
		return nil, err
	}
	b := make([]byte, l)
	if _, err = io.ReadFull(ds.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (ds *decodeState) decodeFixedWidthInt(dstv reflect.Value) (err error) {
	switch dstv.Kind() {
	case reflect.Int8, reflect.Uint8:
		var b uint8
		err = binary.Read(ds.Reader, binary.LittleEndian, &b)
		setInt(dstv, uint64(b))
	case reflect.Int16, reflect.Uint16:
		var b uint16
		err = binary.Read(ds.Reader, binary.LittleEndian, &b)
		setInt(dstv, uint64(b))
	case reflect.Int32, reflect.Uint32:
		var b uint32
		err = binary.Read(ds.Reader, binary.LittleEndian, &b)
		setInt(dstv, uint64(b))
	case reflect.Int64, reflect.Uint64:
		var b uint64
		err = binary.Read(ds.Reader, binary.LittleEndian, &b)
		setInt(dstv, b)
	}
	return
}

func setInt(dstv reflect.Value, u uint64) {
	switch dstv.Kind() {
	case reflect.Int8:
		dstv.SetInt(int64(int8(u)))
	case reflect.Int16:
		dstv.SetInt(int64(int16(u)))
	case reflect.Int32:
		dstv.SetInt(int64(int32(u)))
	case reflect.Int64:
		dstv.SetInt(int64(u))
	default:
		dstv.SetUint(u)
	}
}
