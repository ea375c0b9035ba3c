// internal/debounce/debounce.go
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid repeated triggers per key into a single callback
// after a quiet period. A new trigger for the same key resets the timer and
// replaces the pending callback.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*time.Timer),
	}
}

// Trigger schedules fn to run after the quiet period unless another trigger
// for key arrives first.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.pending[key]; ok {
		timer.Stop()
	}
	d.pending[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel discards any pending callback for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.pending[key]; ok {
		timer.Stop()
		delete(d.pending, key)
	}
}

// Flush cancels every pending callback. Used during shutdown.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, timer := range d.pending {
		timer.Stop()
		delete(d.pending, key)
	}
}
