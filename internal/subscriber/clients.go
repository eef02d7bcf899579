package subscriber

import (
	"context"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

//go:generate mockgen -source=clients.go -destination=../../testutil/mocks/subscriber/mocks.go -package=mock_subscriber

// EventPoller reads queue events from the chain.
type EventPoller interface {
	PollEvents(ctx context.Context, from uint64) ([]relay.QueueEvent, uint64, error)
	LatestHeight(ctx context.Context) (uint64, error)
}

// CheckpointStorage persists the height polling resumes from.
type CheckpointStorage interface {
	GetCheckpoint() (uint64, bool, error)
	SetCheckpoint(height uint64) error
}
