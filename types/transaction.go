package types

import (
	"fmt"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OutPoint identifies output Index of the transaction with hash Hash.
type OutPoint struct {
	Hash  common.Hash `json:"hash"`
	Index uint32      `json:"index"`
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.Hash.String_short(), o.Index)
}

// CellInput consumes the cell at PreviousOutput.
type CellInput struct {
	PreviousOutput OutPoint `json:"previous_output"`
}

type CellOutput struct {
	Capacity uint64 `json:"capacity"`
	Lock     Bytes  `json:"lock"`
}

type Transaction struct {
	Version uint32       `json:"version"`
	Deps    []OutPoint   `json:"deps"`
	Inputs  []CellInput  `json:"inputs"`
	Outputs []CellOutput `json:"outputs"`
}

// TransactionWithHash is what the chain returns for a hash lookup.
type TransactionWithHash struct {
	Hash        common.Hash `json:"hash"`
	Transaction Transaction `json:"transaction"`
}

// Hash is the blake2b digest of the binary encoding.
func (tx *Transaction) Hash() (common.Hash, error) {
	b, err := EncodeTransaction(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Blake2Hash(b), nil
}

// Output returns the output at index, if any.
func (tx *Transaction) Output(index uint32) (CellOutput, bool) {
	if uint64(index) >= uint64(len(tx.Outputs)) {
		return CellOutput{}, false
	}
	return tx.Outputs[index], true
}

// Bytes is a byte vector that reads either 0x-hex or a JSON array of
// numbers, and always writes 0x-hex.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Encode(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*b = nil
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" || s == "0x" {
			*b = nil
			return nil
		}
		decoded, err := hexutil.Decode(s)
		if err != nil {
			return fmt.Errorf("bytes %q: %w", s, err)
		}
		*b = decoded
	case '[':
		var nums []uint16
		if err := json.Unmarshal(data, &nums); err != nil {
			return err
		}
		out := make([]byte, 0, len(nums))
		for i, n := range nums {
			if n > 0xff {
				return fmt.Errorf("bytes[%d] = %d is not a byte", i, n)
			}
			out = append(out, byte(n))
		}
		if len(out) == 0 {
			out = nil
		}
		*b = out
	default:
		return fmt.Errorf("bytes: unexpected JSON %s", string(data))
	}
	return nil
}
