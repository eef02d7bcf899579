package relay

import "time"

// Storage is local storage we use to keep the poll checkpoint and terminal outcomes between restarts.
type Storage interface {
	// GetCheckpoint returns the first block height the poll loop has not fully resolved yet.
	GetCheckpoint() (height uint64, found bool, err error)
	SetCheckpoint(height uint64) error

	// SetOutcome stores a terminal outcome. Failed outcomes are also put into the failed queue,
	// other outcomes remove the txId from it.
	SetOutcome(outcome Outcome) error
	// GetOutcomesSince returns the outcomes updated at or after since.
	GetOutcomesSince(since time.Time) ([]Outcome, error)
	// PruneOutcomes removes outcomes updated before the given time. Failed queue entries are kept.
	PruneOutcomes(before time.Time) (int, error)

	GetAllFailedTxs() ([]Outcome, error)
	GetFailedTx(txID string) (Outcome, bool, error)
	RemoveFailedTx(txID string) error

	Close() error
}
