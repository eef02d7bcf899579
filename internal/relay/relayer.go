package relay

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/config"
	"github.com/oracle-relayer/oracle-relayer/internal/metrics"
)

// Relayer is controller for the whole app:
// 1. takes queue events from the subscriber and deduplicates them;
// 2. fetches the pending transaction and asks the scorer for a decision;
// 3. settles the transaction on the contract and records the outcome.
type Relayer struct {
	cfg       config.RelayerConfig
	reader    ChainReader
	scorer    DecisionClient
	submitter Submitter
	storage   Storage
	tracker   *Tracker
	watermark *Watermark
	logger    *zap.Logger

	retries chan QueueEvent
}

func NewRelayer(
	cfg config.RelayerConfig,
	reader ChainReader,
	scorer DecisionClient,
	submitter Submitter,
	storage Storage,
	watermark *Watermark,
	logger *zap.Logger,
) *Relayer {
	return &Relayer{
		cfg:       cfg,
		reader:    reader,
		scorer:    scorer,
		submitter: submitter,
		storage:   storage,
		tracker:   NewTracker(cfg.DedupWindow),
		watermark: watermark,
		logger:    logger,
		retries:   make(chan QueueEvent),
	}
}

// Run reads queue events from tasks and settles them with a pool of cfg.Workers workers. It
// returns once ctx is cancelled and all in-flight pipelines have stopped.
func (r *Relayer) Run(ctx context.Context, tasks <-chan QueueEvent) error {
	if err := r.restore(); err != nil {
		return fmt.Errorf("failed to restore outcomes: %w", err)
	}

	var (
		work = make(chan QueueEvent)
		wg   sync.WaitGroup
	)
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range work {
				r.process(ctx, event)
			}
		}()
	}

	evictInterval := r.cfg.EvictInterval
	if evictInterval <= 0 {
		evictInterval = time.Minute
	}
	evictTicker := time.NewTicker(evictInterval)
	defer evictTicker.Stop()

loop:
	for {
		select {
		case event := <-tasks:
			metrics.SetTaskQueueNumElements(len(tasks))
			r.admit(ctx, event, work)
		case event := <-r.retries:
			// removed only after the handoff; an abandoned Retry keeps the entry
			if err := r.storage.RemoveFailedTx(event.Key()); err != nil {
				r.logger.Error("failed to remove tx from the failed queue", zap.String("tx_id", event.Key()), zap.Error(err))
			}
			r.admit(ctx, event, work)
		case <-evictTicker.C:
			r.evict()
		case <-ctx.Done():
			break loop
		}
	}

	close(work)
	wg.Wait()
	r.logger.Info("context cancelled, relayer stopped")

	return nil
}

// Retry re-enqueues a failed transaction. It blocks until the relayer has accepted the event; the
// transaction stays in the failed queue if ctx is done first.
func (r *Relayer) Retry(ctx context.Context, txID string) error {
	outcome, found, err := r.storage.GetFailedTx(txID)
	if err != nil {
		return fmt.Errorf("failed to get failed tx %s: %w", txID, err)
	}
	if !found {
		return fmt.Errorf("tx %s is not in the failed queue: %w", txID, ErrNotFound)
	}

	id, ok := new(big.Int).SetString(txID, 10)
	if !ok {
		return fmt.Errorf("invalid tx id %q: %w", txID, ErrMalformedInput)
	}

	if state, ok := r.tracker.State(txID); ok && !state.IsTerminal() {
		return fmt.Errorf("tx %s is already in flight (state %s)", txID, state)
	}

	select {
	case r.retries <- QueueEvent{TxID: id, BlockHeight: outcome.BlockHeight, retried: true}:
		r.logger.Info("failed tx re-enqueued", zap.String("tx_id", txID))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relayer) admit(ctx context.Context, event QueueEvent, work chan<- QueueEvent) {
	if !r.tracker.Admit(event) {
		r.resolve(event)
		metrics.IncDuplicateEvents()
		r.logger.Debug("duplicate queue event discarded",
			zap.String("tx_id", event.Key()),
			zap.Uint64("height", event.BlockHeight))
		return
	}

	select {
	case work <- event:
	case <-ctx.Done():
		r.tracker.Forget(event.Key())
	}
}

func (r *Relayer) process(ctx context.Context, event QueueEvent) {
	start := time.Now()
	key := event.Key()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("settlement pipeline panicked", zap.String("tx_id", key), zap.Any("panic", p))
			r.finish(event, Outcome{State: Failed, Reason: fmt.Sprintf("panic: %v", p)}, start)
		}
	}()

	outcome := r.settle(ctx, event)
	if ctx.Err() != nil && outcome.State == Failed {
		// Interrupted by shutdown: the event is re-observed on the next start.
		r.tracker.Forget(key)
		r.logger.Info("settlement pipeline interrupted", zap.String("tx_id", key), zap.String("reason", outcome.Reason))
		return
	}

	r.finish(event, outcome, start)
}

// settle drives a single txId through Fetching -> Scoring -> Submitting.
func (r *Relayer) settle(ctx context.Context, event QueueEvent) Outcome {
	key := event.Key()

	r.tracker.Transition(key, Fetching)
	record, err := r.fetchRecord(ctx, event.TxID)
	if errors.Is(err, ErrNotFound) {
		return Outcome{State: Skipped, Reason: "transaction is not pending"}
	}
	if err != nil {
		return Outcome{State: Failed, Reason: fmt.Sprintf("failed to fetch record: %s", err)}
	}

	r.tracker.Transition(key, Scoring)
	start := time.Now()
	decision, err := r.scorer.Classify(ctx, record)
	if err != nil {
		metrics.AddFailedRequest("classify", time.Since(start).Seconds())
		return Outcome{State: Failed, Reason: fmt.Sprintf("failed to classify: %s", err)}
	}
	metrics.AddSuccessRequest("classify", time.Since(start).Seconds())
	r.logger.Info("decision received", zap.String("tx_id", key), zap.Bool("approved", decision.Approved))

	r.tracker.Transition(key, Submitting)
	receipt, err := r.submit(ctx, event.TxID, decision.Approved)
	if errors.Is(err, ErrReverted) {
		// A revert is expected when an earlier submission of ours (or another oracle) already
		// settled the transaction.
		if _, ferr := r.reader.FetchRecord(ctx, event.TxID); errors.Is(ferr, ErrNotFound) {
			return Outcome{State: Skipped, Approved: decision.Approved, Reason: "already settled"}
		}
	}
	if err != nil {
		return Outcome{State: Failed, Approved: decision.Approved, Reason: fmt.Sprintf("failed to submit: %s", err)}
	}

	return Outcome{State: Confirmed, Approved: decision.Approved, SettlementHash: receipt.TxHash.Hex()}
}

func (r *Relayer) fetchRecord(ctx context.Context, txID *big.Int) (TransactionRecord, error) {
	var record TransactionRecord
	err := retry.Do(func() error {
		start := time.Now()
		var err error
		record, err = r.reader.FetchRecord(ctx, txID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			metrics.AddFailedRequest("fetch_record", time.Since(start).Seconds())
			return err
		}
		metrics.AddSuccessRequest("fetch_record", time.Since(start).Seconds())
		return err
	}, r.retryOptions(ctx, r.cfg.Fetch, "failed to fetch record", func(err error) bool {
		return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMalformedInput)
	})...)
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformedInput) || ctx.Err() != nil {
		return record, err
	}

	return record, fmt.Errorf("%w: %w", ErrExhausted, err)
}

func (r *Relayer) submit(ctx context.Context, txID *big.Int, approved bool) (Receipt, error) {
	var (
		receipt Receipt
		// hashes of settlements broadcast by earlier attempts that were not confirmed in time
		spent []common.Hash
	)
	err := retry.Do(func() error {
		if mined, ok := r.minedSettlement(ctx, spent); ok {
			receipt = mined
			return nil
		}

		start := time.Now()
		var err error
		receipt, err = r.submitter.Submit(ctx, txID, approved)
		if err != nil {
			metrics.AddFailedRequest("submit", time.Since(start).Seconds())
			var retryable *ErrSubmitRetryable
			if errors.As(err, &retryable) && retryable.TxHash != (common.Hash{}) {
				spent = append(spent, retryable.TxHash)
			}
			return err
		}
		metrics.AddSuccessRequest("submit", time.Since(start).Seconds())
		return nil
	}, r.retryOptions(ctx, r.cfg.Submit, "failed to submit settlement", IsSubmitRetryable)...)
	if err != nil {
		// A later attempt may revert because an earlier broadcast got mined meanwhile.
		if mined, ok := r.minedSettlement(ctx, spent); ok {
			return mined, nil
		}
	}
	if err == nil || !IsSubmitRetryable(err) || ctx.Err() != nil {
		return receipt, err
	}

	return receipt, fmt.Errorf("%w: %w", ErrExhausted, err)
}

// minedSettlement returns the receipt of the first of hashes mined with a successful status.
func (r *Relayer) minedSettlement(ctx context.Context, hashes []common.Hash) (Receipt, bool) {
	for _, hash := range hashes {
		receipt, err := r.submitter.Receipt(ctx, hash)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.logger.Warn("failed to get settlement receipt", zap.String("tx_hash", hash.Hex()), zap.Error(err))
			}
			continue
		}
		if receipt.Status == ReceiptStatusSuccessful {
			r.logger.Info("earlier settlement mined", zap.String("tx_hash", hash.Hex()))
			return receipt, true
		}
	}

	return Receipt{}, false
}

func (r *Relayer) retryOptions(ctx context.Context, cfg config.RetryConfig, msg string, retryIf retry.RetryIfFunc) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.Delay(cfg.Delay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryIf),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn(msg, zap.Uint("attempt", n+1), zap.Error(err))
		}),
	}
}

func (r *Relayer) finish(event QueueEvent, outcome Outcome, start time.Time) {
	key := event.Key()
	outcome.TxID = key
	outcome.BlockHeight = event.BlockHeight
	outcome.UpdatedAt = time.Now()

	r.tracker.Transition(key, outcome.State)
	r.resolve(event)
	metrics.AddOutcome(string(outcome.State), time.Since(start).Seconds())

	if err := r.storage.SetOutcome(outcome); err != nil {
		r.logger.Error("failed to store outcome", zap.String("tx_id", key), zap.Error(err))
	}

	switch outcome.State {
	case Confirmed:
		r.logger.Info("transaction settled",
			zap.String("tx_id", key),
			zap.Bool("approved", outcome.Approved),
			zap.String("settlement_hash", outcome.SettlementHash))
	case Skipped:
		r.logger.Info("transaction skipped", zap.String("tx_id", key), zap.String("reason", outcome.Reason))
	default:
		r.logger.Error("transaction failed, manual intervention required",
			zap.String("tx_id", key),
			zap.Uint64("height", event.BlockHeight),
			zap.String("reason", outcome.Reason))
	}
}

func (r *Relayer) resolve(event QueueEvent) {
	if !event.retried {
		r.watermark.Resolve(event.BlockHeight)
	}
}

func (r *Relayer) restore() error {
	outcomes, err := r.storage.GetOutcomesSince(time.Now().Add(-r.cfg.DedupWindow))
	if err != nil {
		return err
	}

	r.tracker.Restore(outcomes)
	r.logger.Info("restored outcomes within the dedup window", zap.Int("count", len(outcomes)))
	metrics.SetTrackedTxs(r.tracker.Len())

	return nil
}

func (r *Relayer) evict() {
	evicted := r.tracker.Evict()
	pruned, err := r.storage.PruneOutcomes(time.Now().Add(-r.cfg.DedupWindow))
	if err != nil {
		r.logger.Error("failed to prune outcomes", zap.Error(err))
	}

	metrics.SetTrackedTxs(r.tracker.Len())
	if evicted > 0 || pruned > 0 {
		r.logger.Debug("evicted outcomes older than the dedup window",
			zap.Int("tracker", evicted), zap.Int("storage", pruned))
	}
}
