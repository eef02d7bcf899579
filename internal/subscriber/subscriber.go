package subscriber

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/metrics"
	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

type Config struct {
	PollInterval time.Duration
	// StartBlock is used when no checkpoint is stored. Zero means the current head.
	StartBlock uint64
}

// Subscriber is the single poll loop over the oracle contract. It feeds observed TransactionQueued
// events into the task queue in (height, log index) order and persists the poll checkpoint.
type Subscriber struct {
	cfg       Config
	poller    EventPoller
	storage   CheckpointStorage
	watermark *relay.Watermark
	logger    *zap.Logger

	cursor atomic.Uint64
}

// NewSubscriber creates a new Subscriber instance ready to poll the contract.
func NewSubscriber(
	cfg Config,
	poller EventPoller,
	storage CheckpointStorage,
	watermark *relay.Watermark,
	logger *zap.Logger,
) (*Subscriber, error) {
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}

	return &Subscriber{
		cfg:       cfg,
		poller:    poller,
		storage:   storage,
		watermark: watermark,
		logger:    logger,
	}, nil
}

// Subscribe implements relay.Subscriber. It returns nil once ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, tasks chan<- relay.QueueEvent) error {
	if err := s.initCursor(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to init poll cursor: %w", err)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.poll(ctx, tasks); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("failed to poll queue events", zap.Uint64("from", s.cursor.Load()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, subscriber stopped", zap.Uint64("cursor", s.cursor.Load()))
			return nil
		case <-ticker.C:
		}
	}
}

// Cursor returns the next height to poll from.
func (s *Subscriber) Cursor() uint64 {
	return s.cursor.Load()
}

func (s *Subscriber) initCursor(ctx context.Context) error {
	checkpoint, found, err := s.storage.GetCheckpoint()
	if err != nil {
		return fmt.Errorf("failed to get checkpoint: %w", err)
	}

	switch {
	case found:
		s.cursor.Store(checkpoint)
		s.logger.Info("resuming from checkpoint", zap.Uint64("height", checkpoint))
	case s.cfg.StartBlock > 0:
		s.cursor.Store(s.cfg.StartBlock)
		s.logger.Info("no checkpoint found, starting from the configured block", zap.Uint64("height", s.cfg.StartBlock))
	default:
		var head uint64
		err := retry.Do(func() error {
			var err error
			head, err = s.poller.LatestHeight(ctx)
			return err
		},
			retry.Context(ctx),
			retry.Attempts(0),
			retry.Delay(s.cfg.PollInterval),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				s.logger.Warn("failed to get latest height", zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
		if err != nil {
			return err
		}
		s.cursor.Store(head)
		s.logger.Info("no checkpoint found, starting from the latest block", zap.Uint64("height", head))
	}

	return nil
}

// poll reads events from the cursor up to the confirmed head. The cursor only moves after every
// event of the range has been handed over.
func (s *Subscriber) poll(ctx context.Context, tasks chan<- relay.QueueEvent) error {
	cursor := s.cursor.Load()
	events, to, err := s.poller.PollEvents(ctx, cursor)
	if err != nil {
		return err
	}

	for _, event := range events {
		s.watermark.Observe(event.BlockHeight)
		metrics.IncObservedEvents()

		select {
		case tasks <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
		metrics.SetTaskQueueNumElements(len(tasks))

		s.logger.Debug("queue event observed",
			zap.String("tx_id", event.Key()),
			zap.Uint64("height", event.BlockHeight),
			zap.Uint("log_index", event.LogIndex))
	}

	if to >= cursor {
		cursor = to + 1
		s.cursor.Store(cursor)
		metrics.SetPollHeight(to)
	}

	if err := s.storage.SetCheckpoint(s.watermark.Checkpoint(cursor)); err != nil {
		s.logger.Error("failed to store checkpoint", zap.Uint64("cursor", cursor), zap.Error(err))
	}

	return nil
}
