package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

// Client is the subset of ethclient.Client the Reader needs.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type ReaderConfig struct {
	Contract      common.Address
	Confirmations uint64
	MaxBlockRange uint64
	Timeout       time.Duration
}

// Reader reads TransactionQueued events and pending transactions from the oracle contract.
type Reader struct {
	client Client
	cfg    ReaderConfig
	logger *zap.Logger
}

func NewReader(client Client, cfg ReaderConfig, logger *zap.Logger) *Reader {
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = 2000
	}

	return &Reader{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// LatestHeight returns the latest block height with enough confirmations.
func (r *Reader) LatestHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	head, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}

	if head < r.cfg.Confirmations {
		return 0, nil
	}
	return head - r.cfg.Confirmations, nil
}

// PollEvents implements relay.ChainReader. The range [from, latest] is read in chunks of
// MaxBlockRange blocks; an error in any chunk fails the whole poll.
func (r *Reader) PollEvents(ctx context.Context, from uint64) ([]relay.QueueEvent, uint64, error) {
	to, err := r.LatestHeight(ctx)
	if err != nil {
		return nil, 0, err
	}
	if to < from {
		return nil, to, nil
	}

	var events []relay.QueueEvent
	for start := from; start <= to; {
		end := start + r.cfg.MaxBlockRange - 1
		if end > to || end < start {
			end = to
		}

		logs, err := r.filterLogs(ctx, start, end)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to filter logs in [%d, %d]: %w", start, end, err)
		}

		for _, l := range logs {
			if l.Removed {
				continue
			}

			event, err := decodeQueueEvent(l)
			if err != nil {
				r.logger.Warn("failed to decode TransactionQueued log",
					zap.String("tx_hash", l.TxHash.Hex()),
					zap.Uint64("height", l.BlockNumber),
					zap.Error(err))
				continue
			}
			events = append(events, event)
		}

		if end == to {
			break
		}
		start = end + 1
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockHeight != events[j].BlockHeight {
			return events[i].BlockHeight < events[j].BlockHeight
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	return events, to, nil
}

// FetchRecord implements relay.ChainReader.
func (r *Reader) FetchRecord(ctx context.Context, txID *big.Int) (relay.TransactionRecord, error) {
	data, err := oracleABI.Pack(PendingTransactionsMethod, txID)
	if err != nil {
		return relay.TransactionRecord{}, fmt.Errorf("failed to pack %s: %w", PendingTransactionsMethod, err)
	}

	callCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	contract := r.cfg.Contract
	out, err := r.client.CallContract(callCtx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return relay.TransactionRecord{}, fmt.Errorf("failed to call %s for tx %s: %w", PendingTransactionsMethod, txID, err)
	}

	var pending pendingTransaction
	if err := oracleABI.UnpackIntoInterface(&pending, PendingTransactionsMethod, out); err != nil {
		return relay.TransactionRecord{}, fmt.Errorf("%w: failed to unpack %s for tx %s: %s",
			relay.ErrMalformedInput, PendingTransactionsMethod, txID, err)
	}

	if pending.Sender == (common.Address{}) {
		return relay.TransactionRecord{}, relay.ErrNotFound
	}

	if pending.Timestamp == nil || !pending.Timestamp.IsUint64() {
		return relay.TransactionRecord{}, fmt.Errorf("%w: timestamp %v of tx %s is out of range",
			relay.ErrMalformedInput, pending.Timestamp, txID)
	}

	return relay.TransactionRecord{
		TxID:      new(big.Int).Set(txID),
		Sender:    pending.Sender,
		Recipient: pending.Recipient,
		Amount:    pending.Amount,
		GasPrice:  pending.GasPrice,
		Timestamp: pending.Timestamp.Uint64(),
		Reason:    pending.Reason,
	}, nil
}

func (r *Reader) filterLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{r.cfg.Contract},
		Topics:    [][]common.Hash{{TransactionQueuedTopic}},
	})
}

func (r *Reader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.cfg.Timeout)
}

// decodeQueueEvent reads the txId from topic[1] (indexed) or from the log data (non-indexed).
func decodeQueueEvent(l types.Log) (relay.QueueEvent, error) {
	if len(l.Topics) == 0 || l.Topics[0] != TransactionQueuedTopic {
		return relay.QueueEvent{}, errors.New("not a TransactionQueued log")
	}

	var txID *big.Int
	switch {
	case len(l.Topics) >= 2:
		txID = new(big.Int).SetBytes(l.Topics[1].Bytes())
	case len(l.Data) == common.HashLength:
		txID = new(big.Int).SetBytes(l.Data)
	default:
		return relay.QueueEvent{}, fmt.Errorf("unexpected log layout: %d topics, %d data bytes", len(l.Topics), len(l.Data))
	}

	return relay.QueueEvent{
		TxID:        txID,
		BlockHeight: l.BlockNumber,
		LogIndex:    l.Index,
		TxHash:      l.TxHash,
	}, nil
}
