package relay

import (
	"context"
	"math/big"
)

//go:generate mockgen -destination=../../testutil/mocks/relay/mocks.go -package=mock_relay github.com/oracle-relayer/oracle-relayer/internal/relay ChainReader,DecisionClient,Submitter

// ChainReader provides read access to the oracle contract.
type ChainReader interface {
	// PollEvents returns TransactionQueued events in the block range starting at from, ordered by
	// block height and log index. to is the last block the returned slice covers; it is less than
	// from if there is nothing new to read. On error the caller must not advance its cursor.
	PollEvents(ctx context.Context, from uint64) (events []QueueEvent, to uint64, err error)
	// FetchRecord returns the pending transaction stored under txID, or ErrNotFound.
	FetchRecord(ctx context.Context, txID *big.Int) (TransactionRecord, error)
}
