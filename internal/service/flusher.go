package service

import (
	"sync"
	"time"
)

// Flusher coalesces bursts of mutations into a single flush after a
// quiet period: every MarkDirty resets the timer, and the flush fires
// only once no further mutation has arrived for the configured delay.
type Flusher struct {
	delay time.Duration
	flush func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

func NewFlusher(delay time.Duration, flush func()) *Flusher {
	return &Flusher{delay: delay, flush: flush}
}

// MarkDirty records a mutation and restarts the quiet-period timer.
func (f *Flusher) MarkDirty() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.pending = true
	f.timer = time.AfterFunc(f.delay, f.fire)
}

func (f *Flusher) fire() {
	f.mu.Lock()
	if f.stopped || !f.pending {
		f.mu.Unlock()
		return
	}
	f.pending = false
	f.mu.Unlock()

	f.flush()
}

// Stop cancels the timer and, if a flush was still pending, runs it
// synchronously so a clean shutdown never loses the last mutations.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	if f.timer != nil {
		f.timer.Stop()
	}
	pending := f.pending
	f.pending = false
	f.mu.Unlock()

	if pending {
		f.flush()
	}
}
