package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/holiman/uint256"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endpoint = "http://node.test/rpc"

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type mockNode struct {
	tip   types.Header
	txs   map[common.Hash]types.TransactionWithHash
	fail  bool
	calls map[string]int
}

func (n *mockNode) respond(req *http.Request) (*http.Response, error) {
	var msg rpcRequest
	if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
		return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
	}
	n.calls[msg.Method]++
	reply := map[string]interface{}{"jsonrpc": "2.0", "id": msg.ID}
	switch {
	case n.fail:
		reply["error"] = map[string]interface{}{"code": -32000, "message": "node unavailable"}
	case msg.Method == methodGetTipHeader:
		reply["result"] = n.tip
	case msg.Method == methodGetTransaction:
		var h common.Hash
		if err := json.Unmarshal(msg.Params[0], &h); err != nil {
			return nil, err
		}
		if tx, ok := n.txs[h]; ok {
			reply["result"] = tx
		} else {
			reply["result"] = nil
		}
	default:
		reply["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
	}
	return httpmock.NewJsonResponse(http.StatusOK, reply)
}

func newMockNode(t *testing.T) (*mockNode, *NodeClient) {
	t.Helper()
	node := &mockNode{
		tip:   types.Header{Number: 1200, Timestamp: 1557310745, Difficulty: uint256.NewInt(0x100)},
		txs:   make(map[common.Hash]types.TransactionWithHash),
		calls: make(map[string]int),
	}
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, endpoint, node.respond)

	client, err := Dial(context.Background(), endpoint, WithHTTPClient(&http.Client{Transport: mt}))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return node, client
}

func TestGetTipHeader(t *testing.T) {
	node, client := newMockNode(t)
	header, err := client.GetTipHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), header.Number)
	assert.Equal(t, uint64(0x100), header.Difficulty.Uint64())

	want, err := node.tip.Hash()
	require.NoError(t, err)
	got, err := header.Hash()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, node.calls[methodGetTipHeader])
}

func TestGetTransaction(t *testing.T) {
	node, client := newMockNode(t)
	h := common.Blake2Hash([]byte("tx"))
	node.txs[h] = types.TransactionWithHash{
		Hash: h,
		Transaction: types.Transaction{
			Outputs: []types.CellOutput{{Capacity: 42, Lock: types.Bytes{1, 2}}},
		},
	}

	tx, err := client.GetTransaction(context.Background(), h)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, h, tx.Hash)
	require.Len(t, tx.Transaction.Outputs, 1)
	assert.Equal(t, uint64(42), tx.Transaction.Outputs[0].Capacity)
	assert.Equal(t, types.Bytes{1, 2}, tx.Transaction.Outputs[0].Lock)

	missing, err := client.GetTransaction(context.Background(), common.Blake2Hash([]byte("other")))
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, 2, node.calls[methodGetTransaction])
}

func TestCallErrors(t *testing.T) {
	node, client := newMockNode(t)
	node.fail = true

	_, err := client.GetTipHeader(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node unavailable")

	_, err = client.GetTransaction(context.Background(), common.Hash{})
	assert.Error(t, err)
}

func TestHTTPFailure(t *testing.T) {
	mt := httpmock.NewMockTransport()
	mt.RegisterResponder(http.MethodPost, endpoint, httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	client, err := Dial(context.Background(), endpoint, WithHTTPClient(&http.Client{Transport: mt}))
	require.NoError(t, err)
	defer client.Close()

	_, err = client.GetTipHeader(context.Background())
	assert.Error(t, err)
	assert.Equal(t, endpoint, client.Endpoint())
}
