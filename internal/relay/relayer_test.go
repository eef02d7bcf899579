package relay_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/config"
	"github.com/oracle-relayer/oracle-relayer/internal/relay"
	"github.com/oracle-relayer/oracle-relayer/internal/storage"
	mock_relay "github.com/oracle-relayer/oracle-relayer/testutil/mocks/relay"
)

var settlementHash = common.HexToHash("0xabc1")

type harness struct {
	reader    *mock_relay.MockChainReader
	scorer    *mock_relay.MockDecisionClient
	submitter *mock_relay.MockSubmitter
	store     *storage.MemoryStorage
	watermark *relay.Watermark
	relayer   *relay.Relayer
	tasks     chan relay.QueueEvent
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithWorkers(t, 4)
}

func newHarnessWithWorkers(t *testing.T, workers int) *harness {
	ctrl := gomock.NewController(t)
	h := &harness{
		reader:    mock_relay.NewMockChainReader(ctrl),
		scorer:    mock_relay.NewMockDecisionClient(ctrl),
		submitter: mock_relay.NewMockSubmitter(ctrl),
		store:     storage.NewMemoryStorage(),
		watermark: relay.NewWatermark(),
		tasks:     make(chan relay.QueueEvent, 10),
	}

	retryCfg := config.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	h.relayer = relay.NewRelayer(config.RelayerConfig{
		Workers:       workers,
		DedupWindow:   time.Hour,
		EvictInterval: time.Minute,
		Fetch:         retryCfg,
		Submit:        retryCfg,
	}, h.reader, h.scorer, h.submitter, h.store, h.watermark, zap.NewNop())

	return h
}

// run starts the relayer and returns a function stopping it.
func (h *harness) run(t *testing.T) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.relayer.Run(ctx, h.tasks)
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func (h *harness) send(txID int64, height uint64) {
	h.watermark.Observe(height)
	h.tasks <- relay.QueueEvent{TxID: big.NewInt(txID), BlockHeight: height}
}

func (h *harness) waitOutcome(t *testing.T, txID string) relay.Outcome {
	var outcome relay.Outcome
	require.Eventually(t, func() bool {
		outcomes, err := h.store.GetOutcomesSince(time.Time{})
		require.NoError(t, err)
		for _, o := range outcomes {
			if o.TxID == txID {
				outcome = o
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	return outcome
}

func (h *harness) waitResolved(t *testing.T) {
	require.Eventually(t, func() bool { return h.watermark.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func record(txID int64, reason string) relay.TransactionRecord {
	return relay.TransactionRecord{
		TxID:      big.NewInt(txID),
		Sender:    common.HexToAddress("0xaa"),
		Recipient: common.HexToAddress("0xbb"),
		Amount:    big.NewInt(1000),
		GasPrice:  big.NewInt(1),
		Timestamp: 1_700_000_000,
		Reason:    reason,
	}
}

func TestApprovedTransactionIsConfirmed(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(1, "Gas fee"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(1), Approved: true}, nil)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{TxHash: settlementHash, Status: 1}, nil)

	h.send(1, 10)

	outcome := h.waitOutcome(t, "1")
	assert.Equal(t, relay.Confirmed, outcome.State)
	assert.True(t, outcome.Approved)
	assert.Equal(t, settlementHash.Hex(), outcome.SettlementHash)
	assert.Equal(t, uint64(10), outcome.BlockHeight)
	h.waitResolved(t)
}

func TestRejectedTransactionIsConfirmed(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(2, "Amount exceeds limit"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(2), Approved: false}, nil)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), false).Return(relay.Receipt{TxHash: settlementHash, Status: 1}, nil)

	h.send(2, 10)

	outcome := h.waitOutcome(t, "2")
	assert.Equal(t, relay.Confirmed, outcome.State)
	assert.False(t, outcome.Approved)
}

func TestNotFoundIsSkippedWithoutScoring(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(relay.TransactionRecord{}, relay.ErrNotFound)

	h.send(3, 10)

	outcome := h.waitOutcome(t, "3")
	assert.Equal(t, relay.Skipped, outcome.State)
	h.waitResolved(t)

	failed, err := h.store.GetAllFailedTxs()
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestDuplicateEventsRunOnePipeline(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	started := make(chan struct{})
	release := make(chan struct{})
	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(4, "Time limit"), nil).Times(1)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, relay.TransactionRecord) (relay.Decision, error) {
			close(started)
			<-release
			return relay.Decision{TxID: big.NewInt(4), Approved: true}, nil
		}).Times(1)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{TxHash: settlementHash, Status: 1}, nil).Times(1)

	h.send(4, 10)
	<-started

	// duplicates while the pipeline is in flight
	h.send(4, 10)
	h.send(4, 11)
	require.Eventually(t, func() bool { return h.watermark.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	close(release)
	assert.Equal(t, relay.Confirmed, h.waitOutcome(t, "4").State)
	h.waitResolved(t)

	// duplicate of a confirmed transaction within the dedup window
	h.send(4, 12)
	h.waitResolved(t)
}

func TestScorerExhaustionFails(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(5, "Gas fee"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{}, fmt.Errorf("%w: timeout", relay.ErrExhausted))

	h.send(5, 10)

	outcome := h.waitOutcome(t, "5")
	assert.Equal(t, relay.Failed, outcome.State)
	assert.Contains(t, outcome.Reason, "failed to classify")
	h.waitResolved(t)

	failed, err := h.store.GetAllFailedTxs()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "5", failed[0].TxID)
}

func TestFetchIsRetried(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	gomock.InOrder(
		h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(relay.TransactionRecord{}, errors.New("502 bad gateway")).Times(2),
		h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(6, "Gas fee"), nil),
	)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(6), Approved: true}, nil)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{TxHash: settlementHash, Status: 1}, nil)

	h.send(6, 10)
	assert.Equal(t, relay.Confirmed, h.waitOutcome(t, "6").State)
}

func TestFetchExhaustionFails(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(relay.TransactionRecord{}, errors.New("502 bad gateway")).Times(3)

	h.send(7, 10)

	outcome := h.waitOutcome(t, "7")
	assert.Equal(t, relay.Failed, outcome.State)
	assert.Contains(t, outcome.Reason, relay.ErrExhausted.Error())
}

func TestMalformedRecordFailsWithoutRetry(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(relay.TransactionRecord{}, relay.ErrMalformedInput).Times(1)

	h.send(8, 10)
	assert.Equal(t, relay.Failed, h.waitOutcome(t, "8").State)
}

func TestRetryableSubmitIsRetried(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(9, "Gas fee"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(9), Approved: true}, nil)
	gomock.InOrder(
		h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{}, relay.NewErrSubmitRetryable(common.Hash{}, errors.New("connection reset"))),
		h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{TxHash: settlementHash, Status: 1}, nil),
	)

	h.send(9, 10)
	assert.Equal(t, relay.Confirmed, h.waitOutcome(t, "9").State)
}

func TestRevertedAfterSettlementIsSkipped(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	gomock.InOrder(
		h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(10, "Gas fee"), nil),
		h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(relay.TransactionRecord{}, relay.ErrNotFound),
	)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(10), Approved: true}, nil)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{Status: 0}, fmt.Errorf("%w: 0x01", relay.ErrReverted))

	h.send(10, 10)

	outcome := h.waitOutcome(t, "10")
	assert.Equal(t, relay.Skipped, outcome.State)
	assert.Equal(t, "already settled", outcome.Reason)
}

func TestTimedOutSettlementMinedBeforeResubmit(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	spent := common.HexToHash("0x1111")
	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(16, "Gas fee"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(16), Approved: true}, nil)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{}, relay.NewErrSubmitRetryable(spent, errors.New("not mined within 2m")))
	h.submitter.EXPECT().Receipt(gomock.Any(), spent).Return(relay.Receipt{TxHash: spent, Status: relay.ReceiptStatusSuccessful}, nil)

	h.send(16, 10)

	outcome := h.waitOutcome(t, "16")
	assert.Equal(t, relay.Confirmed, outcome.State)
	assert.Equal(t, spent.Hex(), outcome.SettlementHash)
}

func TestRevertAfterTimedOutSettlementIsConfirmed(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	spent := common.HexToHash("0x1111")
	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(17, "Gas fee"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(17), Approved: true}, nil)
	gomock.InOrder(
		h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{}, relay.NewErrSubmitRetryable(spent, errors.New("not mined within 2m"))),
		h.submitter.EXPECT().Receipt(gomock.Any(), spent).Return(relay.Receipt{}, relay.ErrNotFound),
		h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{Status: 0}, fmt.Errorf("%w: 0x2222", relay.ErrReverted)),
		h.submitter.EXPECT().Receipt(gomock.Any(), spent).Return(relay.Receipt{TxHash: spent, Status: relay.ReceiptStatusSuccessful}, nil),
	)

	h.send(17, 10)

	outcome := h.waitOutcome(t, "17")
	assert.Equal(t, relay.Confirmed, outcome.State)
	assert.True(t, outcome.Approved)
	assert.Equal(t, spent.Hex(), outcome.SettlementHash)
}

func TestRevertedWhilePendingFails(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(11, "Gas fee"), nil).Times(2)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(11), Approved: false}, nil)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), false).Return(relay.Receipt{Status: 0}, fmt.Errorf("%w: 0x02", relay.ErrReverted))

	h.send(11, 10)
	assert.Equal(t, relay.Failed, h.waitOutcome(t, "11").State)
}

func TestPanicInPipelineFails(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(12, "Gas fee"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, relay.TransactionRecord) (relay.Decision, error) {
			panic("nil map")
		})

	h.send(12, 10)

	outcome := h.waitOutcome(t, "12")
	assert.Equal(t, relay.Failed, outcome.State)
	assert.Contains(t, outcome.Reason, "nil map")
	h.waitResolved(t)
}

func TestRetryFailedTransaction(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(13, "Gas fee"), nil).Times(2)
	gomock.InOrder(
		h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{}, relay.ErrExhausted),
		h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(relay.Decision{TxID: big.NewInt(13), Approved: true}, nil),
	)
	h.submitter.EXPECT().Submit(gomock.Any(), gomock.Any(), true).Return(relay.Receipt{TxHash: settlementHash, Status: 1}, nil)

	h.send(13, 10)
	require.Equal(t, relay.Failed, h.waitOutcome(t, "13").State)

	require.NoError(t, h.relayer.Retry(context.Background(), "13"))

	require.Eventually(t, func() bool {
		outcome, _, err := h.store.GetFailedTx("13")
		require.NoError(t, err)
		return outcome.State == ""
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		outcomes, err := h.store.GetOutcomesSince(time.Time{})
		require.NoError(t, err)
		return len(outcomes) == 1 && outcomes[0].State == relay.Confirmed
	}, 2*time.Second, 5*time.Millisecond)
	h.waitResolved(t)
}

func TestAbandonedRetryKeepsFailedTransaction(t *testing.T) {
	h := newHarnessWithWorkers(t, 1)
	require.NoError(t, h.store.SetOutcome(relay.Outcome{
		TxID:        "99",
		State:       relay.Failed,
		Reason:      "failed to classify",
		BlockHeight: 5,
		UpdatedAt:   time.Now(),
	}))
	stop := h.run(t)
	defer stop()

	started := make(chan struct{})
	release := make(chan struct{})
	h.reader.EXPECT().FetchRecord(gomock.Any(), big.NewInt(20)).DoAndReturn(
		func(context.Context, *big.Int) (relay.TransactionRecord, error) {
			close(started)
			<-release
			return relay.TransactionRecord{}, relay.ErrNotFound
		})
	h.reader.EXPECT().FetchRecord(gomock.Any(), big.NewInt(21)).Return(relay.TransactionRecord{}, relay.ErrNotFound)

	// the only worker is busy and the admission loop is stuck handing over the next event
	h.send(20, 10)
	<-started
	h.send(21, 11)
	require.Eventually(t, func() bool { return len(h.tasks) == 0 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := h.relayer.Retry(ctx, "99")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	outcome, found, err := h.store.GetFailedTx("99")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, relay.Failed, outcome.State)

	close(release)
	h.waitOutcome(t, "21")
	h.waitResolved(t)
}

func TestRetryUnknownTransaction(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)
	defer stop()

	err := h.relayer.Retry(context.Background(), "404")
	assert.ErrorIs(t, err, relay.ErrNotFound)
}

func TestRestoredOutcomesAreNotReprocessed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.SetOutcome(relay.Outcome{
		TxID:      "14",
		State:     relay.Confirmed,
		UpdatedAt: time.Now().Add(-time.Minute),
	}))

	stop := h.run(t)
	defer stop()

	h.send(14, 10)
	h.waitResolved(t)
}

func TestShutdownInterruptsPipelineWithoutOutcome(t *testing.T) {
	h := newHarness(t)
	stop := h.run(t)

	started := make(chan struct{})
	h.reader.EXPECT().FetchRecord(gomock.Any(), gomock.Any()).Return(record(15, "Gas fee"), nil)
	h.scorer.EXPECT().Classify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ relay.TransactionRecord) (relay.Decision, error) {
			close(started)
			<-ctx.Done()
			return relay.Decision{}, ctx.Err()
		})

	h.send(15, 10)
	<-started
	stop()

	outcomes, err := h.store.GetOutcomesSince(time.Time{})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Equal(t, 1, h.watermark.Len(), "interrupted event stays below the checkpoint")
}
