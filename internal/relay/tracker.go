package relay

import (
	"sync"
	"time"
)

type trackedTx struct {
	state     State
	height    uint64
	updatedAt time.Time
}

// Tracker holds the SubmissionState of every txId the relayer has seen within the dedup window.
// It is the admission gate: at most one pipeline may be in flight for a txId.
type Tracker struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*trackedTx
	now     func() time.Time
}

func NewTracker(window time.Duration) *Tracker {
	return &Tracker{
		window:  window,
		entries: make(map[string]*trackedTx),
		now:     time.Now,
	}
}

// Admit moves the event's txId into Seen and returns true, unless a pipeline for it is in flight
// or it was confirmed within the dedup window.
func (t *Tracker) Admit(event QueueEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := event.Key()
	now := t.now()
	if e, ok := t.entries[key]; ok {
		switch {
		case !e.state.IsTerminal():
			return false
		case e.state == Confirmed && now.Sub(e.updatedAt) < t.window:
			return false
		}
	}

	t.entries[key] = &trackedTx{state: Seen, height: event.BlockHeight, updatedAt: now}
	return true
}

// Transition sets the state of an admitted txId. Unknown keys are ignored.
func (t *Tracker) Transition(key string, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		e.state = state
		e.updatedAt = t.now()
	}
}

// State returns the current state of the txId.
func (t *Tracker) State(key string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return "", false
	}
	return e.state, true
}

// Forget drops the txId, e.g. when its pipeline was interrupted by shutdown.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, key)
}

// Restore seeds the tracker with outcomes loaded from the storage.
func (t *Tracker) Restore(outcomes []Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, o := range outcomes {
		if !o.State.IsTerminal() {
			continue
		}
		if e, ok := t.entries[o.TxID]; ok && e.updatedAt.After(o.UpdatedAt) {
			continue
		}
		t.entries[o.TxID] = &trackedTx{state: o.State, height: o.BlockHeight, updatedAt: o.UpdatedAt}
	}
}

// Evict removes terminal entries older than the dedup window and returns how many were removed.
func (t *Tracker) Evict() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var evicted int
	for key, e := range t.entries {
		if e.state.IsTerminal() && now.Sub(e.updatedAt) >= t.window {
			delete(t.entries, key)
			evicted++
		}
	}

	return evicted
}

// Len returns the number of tracked txIds.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
