// Package rpcclient talks to a node's JSON-RPC endpoint for the chain data
// the cell resolver needs.
package rpcclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/colorfulnotion/cellvm/common"
	"github.com/colorfulnotion/cellvm/log"
	"github.com/colorfulnotion/cellvm/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultEndpoint = "http://localhost:8114"

	methodGetTipHeader   = "get_tip_header"
	methodGetTransaction = "get_transaction"
)

var tracer = otel.Tracer("github.com/colorfulnotion/cellvm/rpc_client")

type NodeClient struct {
	endpoint string
	client   *rpc.Client
}

type Option func(*[]rpc.ClientOption)

// WithHTTPClient sends requests through c instead of http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *[]rpc.ClientOption) {
		*opts = append(*opts, rpc.WithHTTPClient(c))
	}
}

// Dial connects to endpoint. For HTTP endpoints no request is made until the
// first call.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*NodeClient, error) {
	var rpcOpts []rpc.ClientOption
	for _, opt := range opts {
		opt(&rpcOpts)
	}
	client, err := rpc.DialOptions(ctx, endpoint, rpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &NodeClient{endpoint: endpoint, client: client}, nil
}

func (c *NodeClient) Endpoint() string {
	return c.endpoint
}

func (c *NodeClient) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	ctx, span := tracer.Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("server.address", c.endpoint),
		))
	defer span.End()

	err := c.client.CallContext(ctx, result, method, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Trace(log.RPCMonitoring, "rpc call failed", "method", method, "err", err)
		return fmt.Errorf("%s: %w", method, err)
	}
	log.Trace(log.RPCMonitoring, "rpc call", "method", method)
	return nil
}

// GetTipHeader returns the header of the node's current best block.
func (c *NodeClient) GetTipHeader(ctx context.Context) (*types.Header, error) {
	var header types.Header
	if err := c.call(ctx, &header, methodGetTipHeader); err != nil {
		return nil, err
	}
	return &header, nil
}

// GetTransaction returns the transaction with the given hash, or nil when
// the node does not know it.
func (c *NodeClient) GetTransaction(ctx context.Context, hash common.Hash) (*types.TransactionWithHash, error) {
	var tx *types.TransactionWithHash
	if err := c.call(ctx, &tx, methodGetTransaction, hash); err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *NodeClient) Close() {
	c.client.Close()
}
