package relay

import "sync"

// Watermark tracks the block heights of queue events from the moment the subscriber observes them
// until the relayer resolves them (terminal state or discarded duplicate). The persisted poll
// checkpoint must never pass an unresolved height, so a restart re-observes it.
type Watermark struct {
	mu      sync.Mutex
	pending map[uint64]int
}

func NewWatermark() *Watermark {
	return &Watermark{pending: make(map[uint64]int)}
}

// Observe registers an event at height as unresolved.
func (w *Watermark) Observe(height uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[height]++
}

// Resolve marks one event at height as resolved.
func (w *Watermark) Resolve(height uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch n := w.pending[height]; {
	case n > 1:
		w.pending[height] = n - 1
	case n == 1:
		delete(w.pending, height)
	}
}

// Checkpoint returns the height polling must resume from after a restart: cursor, or the lowest
// unresolved height if that is lower.
func (w *Watermark) Checkpoint(cursor uint64) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	checkpoint := cursor
	for height := range w.pending {
		if height < checkpoint {
			checkpoint = height
		}
	}

	return checkpoint
}

// Len returns the number of unresolved events.
func (w *Watermark) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var n int
	for _, c := range w.pending {
		n += c
	}
	return n
}
