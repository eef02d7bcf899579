package chain

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// NewRPCClient dials the EVM JSON-RPC endpoint at addr. Every HTTP request is bounded by timeout.
func NewRPCClient(ctx context.Context, addr string, timeout time.Duration) (*ethclient.Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	rpcClient, err := rpc.DialOptions(ctx, addr, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	return ethclient.NewClient(rpcClient), nil
}
