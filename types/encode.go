package types

import (
	"fmt"

	"github.com/colorfulnotion/cellvm/codec"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func codecEncode(v interface{}) ([]byte, error) {
	return codec.Encode(v)
}

// EncodeTransaction produces the layout scripts read through the mmap tx
// syscall: version, deps, inputs, outputs, each list length-prefixed.
func EncodeTransaction(tx *Transaction) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("encode transaction: nil")
	}
	return codec.Encode(*tx)
}

// EncodeCellOutput produces the layout of one cell: capacity, then the lock
// script as a length-prefixed byte vector.
func EncodeCellOutput(cell *CellOutput) ([]byte, error) {
	if cell == nil {
		return nil, fmt.Errorf("encode cell: nil")
	}
	return codec.Encode(*cell)
}

func DecodeTransaction(b []byte) (*Transaction, error) {
	var tx Transaction
	if err := codec.Decode(b, &tx); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &tx, nil
}

func DecodeCellOutput(b []byte) (*CellOutput, error) {
	var cell CellOutput
	if err := codec.Decode(b, &cell); err != nil {
		return nil, fmt.Errorf("decode cell: %w", err)
	}
	return &cell, nil
}

// ParseTransaction reads a JSON transaction document. Unknown fields such as
// an input's unlock script are ignored.
func ParseTransaction(b []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return nil, fmt.Errorf("parse transaction: %w", err)
	}
	return &tx, nil
}

// ConvertTransaction turns a JSON transaction document into its binary
// encoding.
func ConvertTransaction(jsonBytes []byte) ([]byte, error) {
	tx, err := ParseTransaction(jsonBytes)
	if err != nil {
		return nil, err
	}
	return EncodeTransaction(tx)
}

func MarshalJSONIndent(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
