// Package resolver answers cell lookups against a node, pinned to the chain
// tip observed when the resolver was created.
package resolver

import (
	"context"
	"fmt"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/colorfulnotion/cellvm/vmerrors"
)

// Client is the remote surface the resolver consumes.
type Client interface {
	GetTipHeader(ctx context.Context) (*types.Header, error)
	GetTransaction(ctx context.Context, hash common.Hash) (*types.TransactionWithHash, error)
}

// CellProvider reports the status of the cell behind an OutPoint.
type CellProvider interface {
	Cell(ctx context.Context, op types.OutPoint) types.CellStatus
	CellAt(ctx context.Context, op types.OutPoint, parent common.Hash) types.CellStatus
}

// RPCCellProvider resolves cells through a Client. It cannot tell a spent
// cell from one that never existed; both are Unknown.
type RPCCellProvider struct {
	client    Client
	tip       common.Hash
	tipNumber uint64
}

// New fetches the tip header exactly once and pins its hash for every later
// lookup.
func New(ctx context.Context, client Client) (*RPCCellProvider, error) {
	header, err := client.GetTipHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("tip header: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("tip header: %w", vmerrors.ErrLLookupFailure)
	}
	tip, err := header.Hash()
	if err != nil {
		return nil, fmt.Errorf("tip header: %w", err)
	}
	log.Debug(log.ResolverMonitoring, "pinned tip", "hash", tip.String_short(), "number", header.Number)
	return &RPCCellProvider{client: client, tip: tip, tipNumber: header.Number}, nil
}

func (r *RPCCellProvider) Tip() common.Hash {
	return r.tip
}

func (r *RPCCellProvider) TipNumber() uint64 {
	return r.tipNumber
}

func (r *RPCCellProvider) Cell(ctx context.Context, op types.OutPoint) types.CellStatus {
	return r.CellAt(ctx, op, r.tip)
}

// CellAt looks up op. The node offers no historical query, so parent does
// not narrow the lookup.
func (r *RPCCellProvider) CellAt(ctx context.Context, op types.OutPoint, parent common.Hash) types.CellStatus {
	output, err := r.lookup(ctx, op)
	if err != nil {
		log.Debug(log.ResolverMonitoring, "cell unknown", "outpoint", op.String(), "parent", parent.String_short(), "err", err)
		return types.Unknown()
	}
	return types.Current(output)
}

func (r *RPCCellProvider) lookup(ctx context.Context, op types.OutPoint) (types.CellOutput, error) {
	tx, err := r.client.GetTransaction(ctx, op.Hash)
	if err != nil {
		return types.CellOutput{}, fmt.Errorf("%w: %v", vmerrors.ErrLLookupFailure, err)
	}
	if tx == nil {
		return types.CellOutput{}, fmt.Errorf("%w: transaction %s not found", vmerrors.ErrLLookupFailure, op.Hash.String_short())
	}
	output, ok := tx.Transaction.Output(op.Index)
	if !ok {
		return types.CellOutput{}, fmt.Errorf("%w: index %d of %d outputs", vmerrors.ErrLLookupFailure, op.Index, len(tx.Transaction.Outputs))
	}
	return output, nil
}
