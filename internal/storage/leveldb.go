package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

const (
	CheckpointKey  = "checkpoint"
	OutcomePrefix  = "outcomes/"
	FailedTxPrefix = "failed_txs/"
)

// LevelDBStorage basically has a simple structure inside:
// checkpoint -> first block the poll loop has not resolved yet
// outcomes/<txId> -> terminal outcome of the txId, pruned after the dedup window
// failed_txs/<txId> -> failed outcome waiting for an operator
type LevelDBStorage struct {
	sync.Mutex
	db *leveldb.DB
}

func NewLevelDBStorage(path string) (*LevelDBStorage, error) {
	database, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	return &LevelDBStorage{db: database}, nil
}

// GetCheckpoint returns the stored poll checkpoint
func (s *LevelDBStorage) GetCheckpoint() (uint64, bool, error) {
	s.Lock()
	defer s.Unlock()

	data, err := s.db.Get([]byte(CheckpointKey), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed getting data from db: %w", err)
	}

	res, err := bytesToUint(data)
	if err != nil {
		return 0, false, fmt.Errorf("failed converting bytes to uint: %w", err)
	}

	return res, true, nil
}

// SetCheckpoint sets the poll checkpoint
func (s *LevelDBStorage) SetCheckpoint(height uint64) error {
	s.Lock()
	defer s.Unlock()

	return s.db.Put([]byte(CheckpointKey), uintToBytes(height), nil)
}

// SetOutcome saves the outcome and keeps the failed queue in sync with it in a single transaction:
// a Failed outcome is put into the queue, any other outcome removes the txId from it.
func (s *LevelDBStorage) SetOutcome(outcome relay.Outcome) error {
	s.Lock()
	defer s.Unlock()

	t, err := s.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("failed to open leveldb transaction: %w", err)
	}
	defer t.Discard()

	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal Outcome: %w", err)
	}

	if err := t.Put([]byte(OutcomePrefix+outcome.TxID), data, nil); err != nil {
		return fmt.Errorf("failed to set outcome: %w", err)
	}

	if outcome.State == relay.Failed {
		err = t.Put([]byte(FailedTxPrefix+outcome.TxID), data, nil)
	} else {
		err = t.Delete([]byte(FailedTxPrefix+outcome.TxID), nil)
	}
	if err != nil {
		return fmt.Errorf("failed to update failed txs queue: %w", err)
	}

	return t.Commit()
}

func (s *LevelDBStorage) GetOutcomesSince(since time.Time) ([]relay.Outcome, error) {
	s.Lock()
	defer s.Unlock()

	all, err := s.getAllByPrefix(OutcomePrefix)
	if err != nil {
		return nil, err
	}

	var res []relay.Outcome
	for _, o := range all {
		if !o.UpdatedAt.Before(since) {
			res = append(res, o)
		}
	}

	return res, nil
}

func (s *LevelDBStorage) PruneOutcomes(before time.Time) (int, error) {
	s.Lock()
	defer s.Unlock()

	all, err := s.getAllByPrefix(OutcomePrefix)
	if err != nil {
		return 0, err
	}

	batch := new(leveldb.Batch)
	for _, o := range all {
		if o.UpdatedAt.Before(before) {
			batch.Delete([]byte(OutcomePrefix + o.TxID))
		}
	}

	if batch.Len() == 0 {
		return 0, nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("failed to prune outcomes: %w", err)
	}

	return batch.Len(), nil
}

func (s *LevelDBStorage) GetAllFailedTxs() ([]relay.Outcome, error) {
	s.Lock()
	defer s.Unlock()

	return s.getAllByPrefix(FailedTxPrefix)
}

func (s *LevelDBStorage) GetFailedTx(txID string) (relay.Outcome, bool, error) {
	s.Lock()
	defer s.Unlock()

	var outcome relay.Outcome
	data, err := s.db.Get([]byte(FailedTxPrefix+txID), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return outcome, false, nil
		}
		return outcome, false, fmt.Errorf("failed getting data from db: %w", err)
	}

	if err := json.Unmarshal(data, &outcome); err != nil {
		return outcome, false, fmt.Errorf("failed to unmarshal data into Outcome: %w", err)
	}

	return outcome, true, nil
}

func (s *LevelDBStorage) RemoveFailedTx(txID string) error {
	s.Lock()
	defer s.Unlock()

	if err := s.db.Delete([]byte(FailedTxPrefix+txID), nil); err != nil {
		return fmt.Errorf("failed to remove failed tx under the key %s: %w", txID, err)
	}

	return nil
}

func (s *LevelDBStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

func (s *LevelDBStorage) getAllByPrefix(prefix string) ([]relay.Outcome, error) {
	iterator := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iterator.Release()

	var outcomes []relay.Outcome
	for iterator.Next() {
		var outcome relay.Outcome
		if err := json.Unmarshal(iterator.Value(), &outcome); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data into Outcome: %w", err)
		}

		outcomes = append(outcomes, outcome)
	}

	if err := iterator.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate over %s: %w", prefix, err)
	}

	return outcomes, nil
}

func uintToBytes(num uint64) []byte {
	return []byte(strconv.FormatUint(num, 10))
}

func bytesToUint(bytes []byte) (uint64, error) {
	num, err := strconv.ParseUint(string(bytes), 10, 64)
	if err != nil {
		return 0, err
	}

	return num, nil
}
