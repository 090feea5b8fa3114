package types

import (
	"fmt"

	"github.com/nsf/jsondiff"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// CheckRoundTrip re-encodes the parsed form of a JSON transaction and decodes
// it again, then compares the two documents. It returns an empty report when
// the binary form kept every field the input carried.
func CheckRoundTrip(input []byte) (string, error) {
	tx, err := ParseTransaction(input)
	if err != nil {
		return "", err
	}
	encoded, err := EncodeTransaction(tx)
	if err != nil {
		return "", err
	}
	decoded, err := DecodeTransaction(encoded)
	if err != nil {
		return "", err
	}
	normalizeLists(tx)
	normalizeLists(decoded)
	want, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}
	got, err := json.Marshal(decoded)
	if err != nil {
		return "", err
	}
	return DiffJSON(want, got)
}

// DiffJSON reports the differences between two JSON documents as an ascii
// diff. Equal documents give an empty report.
func DiffJSON(want, got []byte) (string, error) {
	opts := jsondiff.DefaultConsoleOptions()
	switch d, _ := jsondiff.Compare(want, got, &opts); d {
	case jsondiff.FullMatch:
		return "", nil
	case jsondiff.FirstArgIsInvalidJson, jsondiff.BothArgsAreInvalidJson:
		return "", fmt.Errorf("diff: invalid json on the left")
	case jsondiff.SecondArgIsInvalidJson:
		return "", fmt.Errorf("diff: invalid json on the right")
	}

	delta, err := gojsondiff.New().Compare(want, got)
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	var left interface{}
	if err := json.Unmarshal(want, &left); err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	asciiFmt := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{ShowArrayIndex: true})
	return asciiFmt.Format(delta)
}

// normalizeLists makes empty lists marshal as [] whichever side of the codec
// they came from.
func normalizeLists(tx *Transaction) {
	if tx.Deps == nil {
		tx.Deps = []OutPoint{}
	}
	if tx.Inputs == nil {
		tx.Inputs = []CellInput{}
	}
	if tx.Outputs == nil {
		tx.Outputs = []CellOutput{}
	}
	for i := range tx.Outputs {
		if tx.Outputs[i].Lock == nil {
			tx.Outputs[i].Lock = Bytes{}
		}
	}
}
