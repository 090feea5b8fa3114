package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a node whose chain can advance between calls.
type fakeClient struct {
	height    uint64
	txs       map[common.Hash]*types.TransactionWithHash
	tipCalls  int
	txCalls   int
	tipErr    error
	txErr     error
}

func newFakeClient() *fakeClient {
	return &fakeClient{height: 100, txs: make(map[common.Hash]*types.TransactionWithHash)}
}

func (f *fakeClient) GetTipHeader(context.Context) (*types.Header, error) {
	f.tipCalls++
	if f.tipErr != nil {
		return nil, f.tipErr
	}
	return &types.Header{Number: f.height}, nil
}

func (f *fakeClient) GetTransaction(_ context.Context, h common.Hash) (*types.TransactionWithHash, error) {
	f.txCalls++
	if f.txErr != nil {
		return nil, f.txErr
	}
	return f.txs[h], nil
}

func (f *fakeClient) add(outputs ...types.CellOutput) common.Hash {
	tx := types.Transaction{Outputs: outputs}
	h, err := tx.Hash()
	if err != nil {
		panic(err)
	}
	f.txs[h] = &types.TransactionWithHash{Hash: h, Transaction: tx}
	return h
}

func TestNewPinsTipOnce(t *testing.T) {
	client := newFakeClient()
	r, err := New(context.Background(), client)
	require.NoError(t, err)

	want, err := (&types.Header{Number: 100}).Hash()
	require.NoError(t, err)
	assert.Equal(t, want, r.Tip())
	assert.Equal(t, uint64(100), r.TipNumber())

	h := client.add(types.CellOutput{Capacity: 1})
	op := types.OutPoint{Hash: h}

	first := r.Cell(context.Background(), op)
	client.height = 101 // chain advances between lookups
	second := r.Cell(context.Background(), op)

	assert.Equal(t, first, second)
	assert.Equal(t, want, r.Tip())
	assert.Equal(t, 1, client.tipCalls)
	assert.Equal(t, 2, client.txCalls)
}

func TestNewFailsWithoutTip(t *testing.T) {
	client := newFakeClient()
	client.tipErr = errors.New("connection refused")
	_, err := New(context.Background(), client)
	assert.Error(t, err)
	assert.Equal(t, 1, client.tipCalls)
}

func TestCellStatuses(t *testing.T) {
	client := newFakeClient()
	h := client.add(types.CellOutput{Capacity: 10}, types.CellOutput{Capacity: 20, Lock: types.Bytes{0xAA}})
	r, err := New(context.Background(), client)
	require.NoError(t, err)
	ctx := context.Background()

	s := r.Cell(ctx, types.OutPoint{Hash: h, Index: 1})
	require.True(t, s.IsCurrent())
	out, _ := s.Output()
	assert.Equal(t, uint64(20), out.Capacity)
	assert.Equal(t, types.Bytes{0xAA}, out.Lock)

	assert.True(t, r.Cell(ctx, types.OutPoint{Hash: h, Index: 2}).IsUnknown())
	assert.True(t, r.Cell(ctx, types.OutPoint{Hash: common.Blake2Hash([]byte("nope"))}).IsUnknown())

	// parent is ignored
	assert.Equal(t, s, r.CellAt(ctx, types.OutPoint{Hash: h, Index: 1}, common.Hash{}))

	client.txErr = errors.New("timeout")
	assert.True(t, r.Cell(ctx, types.OutPoint{Hash: h, Index: 1}).IsUnknown())
}

func TestResolveTransaction(t *testing.T) {
	client := newFakeClient()
	dep := client.add(types.CellOutput{Capacity: 1, Lock: types.Bytes("code")})
	in := client.add(types.CellOutput{Capacity: 500})
	r, err := New(context.Background(), client)
	require.NoError(t, err)

	tx := &types.Transaction{
		Deps: []types.OutPoint{{Hash: dep}},
		Inputs: []types.CellInput{
			{PreviousOutput: types.OutPoint{Hash: in}},
			{PreviousOutput: types.OutPoint{Hash: in, Index: 5}},
		},
	}
	rt := ResolveTransaction(context.Background(), r, tx)
	require.Len(t, rt.Deps, 1)
	assert.True(t, rt.Deps[0].IsCurrent())
	require.Len(t, rt.Inputs, 2)
	assert.True(t, rt.Inputs[0].IsCurrent())
	assert.True(t, rt.Inputs[1].IsUnknown())
	assert.Equal(t, 1, rt.Unknown())

	cells := rt.InputCells()
	require.Len(t, cells, 2)
	assert.Equal(t, uint64(500), cells[0].Capacity)
	assert.Nil(t, cells[1])
	assert.Equal(t, 1, client.tipCalls)
}

func TestChainPrefersFirstKnown(t *testing.T) {
	client := newFakeClient()
	remote := client.add(types.CellOutput{Capacity: 7})
	r, err := New(context.Background(), client)
	require.NoError(t, err)

	local := NewMemoryProvider()
	pending := &types.Transaction{Outputs: []types.CellOutput{{Capacity: 3}}}
	pendingHash, err := local.AddTransaction(pending)
	require.NoError(t, err)

	p := Chain(local, r)
	ctx := context.Background()

	s := p.Cell(ctx, types.OutPoint{Hash: pendingHash})
	out, ok := s.Output()
	require.True(t, ok)
	assert.Equal(t, uint64(3), out.Capacity)
	assert.Zero(t, client.txCalls)

	s = p.CellAt(ctx, types.OutPoint{Hash: remote}, r.Tip())
	out, ok = s.Output()
	require.True(t, ok)
	assert.Equal(t, uint64(7), out.Capacity)

	assert.True(t, p.Cell(ctx, types.OutPoint{Hash: common.Blake2Hash([]byte("x"))}).IsUnknown())
}
