// Package loader supplies the encoded transaction and cell data that the mmap
// syscalls expose to scripts.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

// Store reads encoded datasets for one transaction.
type Store interface {
	// Transaction returns the binary encoding of the current transaction.
	Transaction() ([]byte, error)
	// Cell returns the binary encoding of cell index in source.
	Cell(source types.CellSource, index uint64) ([]byte, error)
}

func ioError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", vmerrors.ErrFIO, fmt.Sprintf(format, args...))
}

const txFile = "tx.json"

// DirStore reads the directory layout:
//
//	<root>/tx.json
//	<root>/input/<n>.bin
//	<root>/output/<n>.bin
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (d *DirStore) TransactionPath() string {
	return filepath.Join(d.root, txFile)
}

func (d *DirStore) CellPath(source types.CellSource, index uint64) string {
	return filepath.Join(d.root, source.String(), strconv.FormatUint(index, 10)+".bin")
}

func (d *DirStore) Transaction() ([]byte, error) {
	raw, err := os.ReadFile(d.TransactionPath())
	if err != nil {
		return nil, ioError("%v", err)
	}
	encoded, err := types.ConvertTransaction(raw)
	if err != nil {
		return nil, ioError("%s: %v", d.TransactionPath(), err)
	}
	return encoded, nil
}

func (d *DirStore) Cell(source types.CellSource, index uint64) ([]byte, error) {
	data, err := os.ReadFile(d.CellPath(source, index))
	if err != nil {
		return nil, ioError("%v", err)
	}
	return data, nil
}

// WriteDir materialises tx and its cells in the directory layout. inputs[i]
// is the resolved cell behind input i; nil entries are skipped.
func WriteDir(root string, tx *types.Transaction, inputs []*types.CellOutput) error {
	d := NewDirStore(root)
	for _, source := range []types.CellSource{types.SourceInput, types.SourceOutput} {
		if err := os.MkdirAll(filepath.Join(root, source.String()), 0o755); err != nil {
			return err
		}
	}
	doc, err := types.MarshalJSONIndent(tx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(d.TransactionPath(), doc, 0o644); err != nil {
		return err
	}
	return forEachCell(tx, inputs, func(source types.CellSource, index uint64, encoded []byte) error {
		return os.WriteFile(d.CellPath(source, index), encoded, 0o644)
	})
}

func forEachCell(tx *types.Transaction, inputs []*types.CellOutput, fn func(types.CellSource, uint64, []byte) error) error {
	for i, cell := range inputs {
		if cell == nil {
			continue
		}
		encoded, err := types.EncodeCellOutput(cell)
		if err != nil {
			return err
		}
		if err := fn(types.SourceInput, uint64(i), encoded); err != nil {
			return err
		}
	}
	for i := range tx.Outputs {
		encoded, err := types.EncodeCellOutput(&tx.Outputs[i])
		if err != nil {
			return err
		}
		if err := fn(types.SourceOutput, uint64(i), encoded); err != nil {
			return err
		}
	}
	return nil
}
