package relay

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// QueueEvent is a TransactionQueued log observed on the oracle contract.
type QueueEvent struct {
	// TxID is the contract-side identifier of the queued transaction.
	TxID *big.Int
	// BlockHeight is the height of the block the event was emitted in.
	BlockHeight uint64
	// LogIndex is the index of the log in the block, used to order events within a block.
	LogIndex uint
	// TxHash is the hash of the transaction that emitted the event.
	TxHash common.Hash

	// retried is set for events re-enqueued by an operator; they bypass the Watermark.
	retried bool
}

// Key returns the identity of the event used for deduplication.
func (e QueueEvent) Key() string {
	return TxKey(e.TxID)
}

// TxKey returns the canonical string form of a txId.
func TxKey(txID *big.Int) string {
	if txID == nil {
		return ""
	}
	return txID.String()
}

// TransactionRecord is a read-only snapshot of a pending transaction fetched from the contract.
type TransactionRecord struct {
	TxID      *big.Int
	Sender    common.Address
	Recipient common.Address
	Amount    *big.Int
	GasPrice  *big.Int
	// Timestamp is the unix time (seconds) the transaction was queued at.
	Timestamp uint64
	// Reason is the categorical reason code the contract queued the transaction with.
	Reason string
}

// Decision is the scorer verdict for a single transaction.
type Decision struct {
	TxID     *big.Int
	Approved bool
}

// ReceiptStatusSuccessful is the status of a receipt whose transaction executed without a revert.
const ReceiptStatusSuccessful uint64 = 1

// Receipt describes a mined settlement transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      uint64
}

// State is a step of the per-txId settlement pipeline.
type State string

const (
	Seen       State = "seen"
	Fetching   State = "fetching"
	Scoring    State = "scoring"
	Submitting State = "submitting"
	Confirmed  State = "confirmed"
	Skipped    State = "skipped"
	Failed     State = "failed"
)

// IsTerminal returns true if no further transition is possible from the state.
func (s State) IsTerminal() bool {
	return s == Confirmed || s == Skipped || s == Failed
}

// Outcome is the terminal result of a settlement pipeline. Outcomes are kept in the storage
// for the dedup window; failed ones additionally stay in the failed queue until retried.
type Outcome struct {
	TxID           string    `json:"tx_id"`
	State          State     `json:"state"`
	Reason         string    `json:"reason,omitempty"`
	Approved       bool      `json:"approved"`
	SettlementHash string    `json:"settlement_hash,omitempty"`
	BlockHeight    uint64    `json:"block_height"`
	UpdatedAt      time.Time `json:"updated_at"`
}
