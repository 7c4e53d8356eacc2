// Package pipeline drives concurrent per-layer processing: a bounded
// worker pool with cooperative pause, cancellation sampled between
// dispatches, and atomic progress tracking.
package pipeline

import (
	"log"
	"sync"
	"sync/atomic"
)

// ProgressSink receives progress from a running operation and carries
// the pause/cancel controls back into it. Implementations must be safe
// for concurrent use by the worker goroutines.
type ProgressSink interface {
	// Reset starts a new progress phase of totalUnits units.
	Reset(label string, totalUnits int)
	// PauseIfRequested blocks while the operation is paused.
	PauseIfRequested()
	// LockAndIncrement bumps the completed-unit counter by one.
	LockAndIncrement()
	// Cancelled reports whether the operation should stop dispatching
	// new work.
	Cancelled() bool
}

// ControlSink is the standard ProgressSink: it tracks progress with an
// atomic counter and supports pausing and cancelling from another
// goroutine.
type ControlSink struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool

	cancelled atomic.Bool
	done      atomic.Int64
	total     atomic.Int64

	labelMu sync.Mutex
	label   string
}

// NewControlSink creates a ready-to-use ControlSink.
func NewControlSink() *ControlSink {
	s := &ControlSink{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *ControlSink) Reset(label string, totalUnits int) {
	s.labelMu.Lock()
	s.label = label
	s.labelMu.Unlock()
	s.done.Store(0)
	s.total.Store(int64(totalUnits))
}

func (s *ControlSink) PauseIfRequested() {
	s.mu.Lock()
	for s.paused && !s.cancelled.Load() {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

func (s *ControlSink) LockAndIncrement() {
	s.done.Add(1)
}

func (s *ControlSink) Cancelled() bool {
	return s.cancelled.Load()
}

// Pause makes workers block at their next pause check.
func (s *ControlSink) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume releases paused workers.
func (s *ControlSink) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Cancel requests a graceful stop. Paused workers are released so they
// can observe the cancellation. The flag is set under mu so a worker
// between its condition check and its Wait cannot miss the broadcast.
func (s *ControlSink) Cancel() {
	s.mu.Lock()
	s.cancelled.Store(true)
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Progress returns the completed and total unit counts.
func (s *ControlSink) Progress() (done, total int) {
	return int(s.done.Load()), int(s.total.Load())
}

// Label returns the current phase label.
func (s *ControlSink) Label() string {
	s.labelMu.Lock()
	defer s.labelMu.Unlock()
	return s.label
}

// ConsoleSink wraps a ControlSink and logs progress every 10%.
type ConsoleSink struct {
	ControlSink
	lastDecile atomic.Int64
}

// NewConsoleSink creates a ConsoleSink.
func NewConsoleSink() *ConsoleSink {
	s := &ConsoleSink{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *ConsoleSink) Reset(label string, totalUnits int) {
	s.ControlSink.Reset(label, totalUnits)
	s.lastDecile.Store(-1)
	log.Printf("%s: 0/%d layers", label, totalUnits)
}

func (s *ConsoleSink) LockAndIncrement() {
	s.ControlSink.LockAndIncrement()
	done, total := s.Progress()
	if total <= 0 {
		return
	}
	decile := int64(done * 10 / total)
	if decile > s.lastDecile.Load() {
		s.lastDecile.Store(decile)
		log.Printf("%s: %d/%d layers (%d%%)", s.Label(), done, total, done*100/total)
	}
}
