package window

import (
	"fmt"
	"sync"
	"time"

	"depthview/internal/types"

	"github.com/shopspring/decimal"
)

// DefaultRetention is how long mid price samples are kept
const DefaultRetention = 3 * time.Minute

// Window is a time-bounded FIFO of mid price samples, oldest first
type Window struct {
	mu        sync.RWMutex
	retention time.Duration
	samples   []types.MidPriceSample
	head      int // index of the oldest live sample
}

// New creates a Window that keeps samples no older than retention
func New(retention time.Duration) (*Window, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention %s must be positive: %w", retention, types.ErrConfiguration)
	}
	return &Window{retention: retention}, nil
}

// Retention returns the configured retention horizon
func (w *Window) Retention() time.Duration {
	return w.retention
}

// Push appends a sample. A timestamp earlier than the newest sample is
// clamped to it so the buffer stays ascending after a backward clock jump.
// It returns the timestamp actually stored.
func (w *Window) Push(ts time.Time, price decimal.Decimal) time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n := len(w.samples); n > w.head {
		if newest := w.samples[n-1].Timestamp; ts.Before(newest) {
			ts = newest
		}
	}
	w.samples = append(w.samples, types.MidPriceSample{Timestamp: ts, Price: price})
	return ts
}

// Prune drops samples from the front while they are older than
// now - retention and returns how many were removed.
func (w *Window) Prune(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.retention)
	removed := 0
	for w.head < len(w.samples) && w.samples[w.head].Timestamp.Before(cutoff) {
		w.samples[w.head] = types.MidPriceSample{}
		w.head++
		removed++
	}

	// compact once the dead prefix dominates
	if w.head > 0 && w.head*2 >= len(w.samples) {
		live := copy(w.samples, w.samples[w.head:])
		w.samples = w.samples[:live]
		w.head = 0
	}
	return removed
}

// Snapshot returns a copy of the retained samples, oldest first
func (w *Window) Snapshot() []types.MidPriceSample {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]types.MidPriceSample, len(w.samples)-w.head)
	copy(out, w.samples[w.head:])
	return out
}

// Prices returns the retained prices, oldest first
func (w *Window) Prices() []decimal.Decimal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]decimal.Decimal, 0, len(w.samples)-w.head)
	for _, s := range w.samples[w.head:] {
		out = append(out, s.Price)
	}
	return out
}

// Len returns the number of retained samples
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.samples) - w.head
}

// Reset discards every sample
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = nil
	w.head = 0
}
