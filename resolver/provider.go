package resolver

import (
	"context"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/types"
)

// MemoryProvider serves the outputs of transactions known locally, such as
// ones not yet committed to the chain.
type MemoryProvider struct {
	cells map[types.OutPoint]types.CellOutput
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{cells: make(map[types.OutPoint]types.CellOutput)}
}

// AddTransaction indexes every output of tx under its hash.
func (p *MemoryProvider) AddTransaction(tx *types.Transaction) (common.Hash, error) {
	h, err := tx.Hash()
	if err != nil {
		return common.Hash{}, err
	}
	for i, out := range tx.Outputs {
		p.cells[types.OutPoint{Hash: h, Index: uint32(i)}] = out
	}
	return h, nil
}

func (p *MemoryProvider) Cell(ctx context.Context, op types.OutPoint) types.CellStatus {
	return p.CellAt(ctx, op, common.Hash{})
}

func (p *MemoryProvider) CellAt(_ context.Context, op types.OutPoint, _ common.Hash) types.CellStatus {
	if out, ok := p.cells[op]; ok {
		return types.Current(out)
	}
	return types.Unknown()
}

type chain []CellProvider

// Chain asks each provider in turn and returns the first answer that is not
// Unknown.
func Chain(providers ...CellProvider) CellProvider {
	return chain(providers)
}

func (c chain) Cell(ctx context.Context, op types.OutPoint) types.CellStatus {
	for _, p := range c {
		if s := p.Cell(ctx, op); !s.IsUnknown() {
			return s
		}
	}
	return types.Unknown()
}

func (c chain) CellAt(ctx context.Context, op types.OutPoint, parent common.Hash) types.CellStatus {
	for _, p := range c {
		if s := p.CellAt(ctx, op, parent); !s.IsUnknown() {
			return s
		}
	}
	return types.Unknown()
}

// ResolvedTransaction pairs a transaction with the status of every cell it
// references.
type ResolvedTransaction struct {
	Transaction *types.Transaction
	Deps        []types.CellStatus
	Inputs      []types.CellStatus
}

// ResolveTransaction looks up every dep and input outpoint of tx, in order.
func ResolveTransaction(ctx context.Context, p CellProvider, tx *types.Transaction) *ResolvedTransaction {
	rt := &ResolvedTransaction{
		Transaction: tx,
		Deps:        make([]types.CellStatus, len(tx.Deps)),
		Inputs:      make([]types.CellStatus, len(tx.Inputs)),
	}
	for i, op := range tx.Deps {
		rt.Deps[i] = p.Cell(ctx, op)
	}
	for i, in := range tx.Inputs {
		rt.Inputs[i] = p.Cell(ctx, in.PreviousOutput)
	}
	return rt
}

// InputCells returns the resolved input cells, nil where Unknown.
func (rt *ResolvedTransaction) InputCells() []*types.CellOutput {
	cells := make([]*types.CellOutput, len(rt.Inputs))
	for i, s := range rt.Inputs {
		if out, ok := s.Output(); ok {
			cells[i] = &out
		}
	}
	return cells
}

// Unknown counts the referenced cells that could not be resolved.
func (rt *ResolvedTransaction) Unknown() int {
	n := 0
	for _, s := range rt.Deps {
		if s.IsUnknown() {
			n++
		}
	}
	for _, s := range rt.Inputs {
		if s.IsUnknown() {
			n++
		}
	}
	return n
}
