package loader

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/cellvm/types"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var txKey = []byte("tx")

func cellKey(source types.CellSource, index uint64) []byte {
	return []byte(fmt.Sprintf("cell/%s/%d", source, index))
}

// LevelDBStore keeps a transaction snapshot in LevelDB under the keys "tx"
// and "cell/<source>/<index>".
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens or creates a database at path. An empty path uses
// in-memory storage.
func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) get(key []byte) ([]byte, error) {
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ioError("%s not found", key)
	}
	if err != nil {
		return nil, ioError("get %s: %v", key, err)
	}
	return data, nil
}

func (s *LevelDBStore) Transaction() ([]byte, error) {
	return s.get(txKey)
}

func (s *LevelDBStore) Cell(source types.CellSource, index uint64) ([]byte, error) {
	return s.get(cellKey(source, index))
}

// WriteSnapshot replaces any previous snapshot with tx and its cells in one
// batch. inputs[i] is the resolved cell behind input i; nil entries are
// skipped.
func (s *LevelDBStore) WriteSnapshot(tx *types.Transaction, inputs []*types.CellOutput) error {
	encoded, err := types.EncodeTransaction(tx)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix([]byte("cell/")), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scan snapshot: %w", err)
	}
	batch.Put(txKey, encoded)
	err = forEachCell(tx, inputs, func(source types.CellSource, index uint64, b []byte) error {
		batch.Put(cellKey(source, index), b)
		return nil
	})
	if err != nil {
		return err
	}
	return s.db.Write(batch, nil)
}

// Keys lists every key of the snapshot in order.
func (s *LevelDBStore) Keys() ([]string, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
