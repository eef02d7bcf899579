package relay

import "context"

// DecisionClient requests an approve/reject decision for a transaction from the scoring service.
// Implementations own the retry policy for the call and return an error wrapping ErrExhausted when
// it runs out of attempts, or ErrMalformedInput when the record cannot be encoded.
type DecisionClient interface {
	Classify(ctx context.Context, record TransactionRecord) (Decision, error)
}
