package relay

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotFound is returned when the txId is no longer pending on the contract.
	ErrNotFound = errors.New("transaction not found in pending storage")
	// ErrMalformedInput is returned for data no retry can fix, e.g. an unknown reason code.
	ErrMalformedInput = errors.New("malformed input")
	// ErrExhausted is returned when a call kept failing past its retry bound.
	ErrExhausted = errors.New("retries exhausted")
	// ErrReverted is returned when the settlement transaction was mined with a failed status.
	ErrReverted = errors.New("settlement transaction reverted")
)

// ErrSubmitRetryable is returned by a Submitter when the settlement may be attempted again with
// a fresh nonce. TxHash is set if the failed attempt had already been broadcast (and its nonce spent).
type ErrSubmitRetryable struct {
	TxHash common.Hash
	Err    error
}

func NewErrSubmitRetryable(txHash common.Hash, err error) *ErrSubmitRetryable {
	return &ErrSubmitRetryable{TxHash: txHash, Err: err}
}

func (e *ErrSubmitRetryable) Error() string {
	if e.TxHash == (common.Hash{}) {
		return fmt.Sprintf("retryable submission error: %s", e.Err)
	}
	return fmt.Sprintf("retryable submission error (tx %s): %s", e.TxHash.Hex(), e.Err)
}

func (e *ErrSubmitRetryable) Unwrap() error {
	return e.Err
}

// IsSubmitRetryable returns true if err (or anything it wraps) is an *ErrSubmitRetryable.
func IsSubmitRetryable(err error) bool {
	var target *ErrSubmitRetryable
	return errors.As(err, &target)
}
