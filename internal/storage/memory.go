package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/oracle-relayer/oracle-relayer/internal/relay"
)

// MemoryStorage keeps everything in memory. It is used when no storage path is configured and
// in tests; nothing survives a restart.
type MemoryStorage struct {
	mu         sync.Mutex
	checkpoint *uint64
	outcomes   map[string]relay.Outcome
	failed     map[string]relay.Outcome
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		outcomes: make(map[string]relay.Outcome),
		failed:   make(map[string]relay.Outcome),
	}
}

func (s *MemoryStorage) GetCheckpoint() (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checkpoint == nil {
		return 0, false, nil
	}
	return *s.checkpoint, true, nil
}

func (s *MemoryStorage) SetCheckpoint(height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoint = &height
	return nil
}

func (s *MemoryStorage) SetOutcome(outcome relay.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes[outcome.TxID] = outcome
	if outcome.State == relay.Failed {
		s.failed[outcome.TxID] = outcome
	} else {
		delete(s.failed, outcome.TxID)
	}
	return nil
}

func (s *MemoryStorage) GetOutcomesSince(since time.Time) ([]relay.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []relay.Outcome
	for _, o := range s.outcomes {
		if !o.UpdatedAt.Before(since) {
			res = append(res, o)
		}
	}
	return sorted(res), nil
}

func (s *MemoryStorage) PruneOutcomes(before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int
	for key, o := range s.outcomes {
		if o.UpdatedAt.Before(before) {
			delete(s.outcomes, key)
			pruned++
		}
	}
	return pruned, nil
}

func (s *MemoryStorage) GetAllFailedTxs() ([]relay.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]relay.Outcome, 0, len(s.failed))
	for _, o := range s.failed {
		res = append(res, o)
	}
	return sorted(res), nil
}

func (s *MemoryStorage) GetFailedTx(txID string) (relay.Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.failed[txID]
	return o, ok, nil
}

func (s *MemoryStorage) RemoveFailedTx(txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failed, txID)
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func sorted(outcomes []relay.Outcome) []relay.Outcome {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].TxID < outcomes[j].TxID
	})
	return outcomes
}
