package relay

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Submitter knows how to settle a queued transaction on the contract.
type Submitter interface {
	// Submit calls approveTransaction or rejectTransaction for txID depending on approved and blocks
	// until the receipt is observed. Errors the caller may retry are *ErrSubmitRetryable.
	Submit(ctx context.Context, txID *big.Int, approved bool) (Receipt, error)
	// Receipt returns the receipt of a previously broadcast settlement, or ErrNotFound if it is
	// not mined yet.
	Receipt(ctx context.Context, txHash common.Hash) (Receipt, error)
}
