package loader

import (
	"errors"

	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vm"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

func asIOError(err error) error {
	if errors.Is(err, vmerrors.ErrFIO) {
		return err
	}
	return ioError("%v", err)
}

type cellID struct {
	source types.CellSource
	index  uint64
}

// Loader fetches each dataset from its Store once per run and hands out the
// same immutable Buffer on every later request.
type Loader struct {
	store Store
	tx    *vm.Buffer
	cells map[cellID]*vm.Buffer
	loads int
}

func New(store Store) *Loader {
	return &Loader{
		store: store,
		cells: make(map[cellID]*vm.Buffer),
	}
}

func (l *Loader) Transaction() (*vm.Buffer, error) {
	if l.tx != nil {
		return l.tx, nil
	}
	data, err := l.store.Transaction()
	if err != nil {
		log.Debug(log.LoaderMonitoring, "transaction load failed", "err", err)
		return nil, asIOError(err)
	}
	l.loads++
	l.tx = vm.NewBuffer(data)
	log.Trace(log.LoaderMonitoring, "transaction loaded", "len", len(data))
	return l.tx, nil
}

func (l *Loader) Cell(source types.CellSource, index uint64) (*vm.Buffer, error) {
	id := cellID{source: source, index: index}
	if buf, ok := l.cells[id]; ok {
		return buf, nil
	}
	data, err := l.store.Cell(source, index)
	if err != nil {
		log.Debug(log.LoaderMonitoring, "cell load failed", "source", source, "index", index, "err", err)
		return nil, asIOError(err)
	}
	l.loads++
	buf := vm.NewBuffer(data)
	l.cells[id] = buf
	log.Trace(log.LoaderMonitoring, "cell loaded", "source", source, "index", index, "len", len(data))
	return buf, nil
}

// Loads reports how many datasets were read from the store.
func (l *Loader) Loads() int {
	return l.loads
}
