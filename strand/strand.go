// File: strand/strand.go
// Package strand implements the serialized execution lane shared by all
// iobridge callbacks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Strand gives logically single-threaded semantics on top of a
// multi-goroutine completion source: functions submitted via Dispatch run
// one at a time, in FIFO order, but on whichever goroutine happens to drain
// the queue. No dedicated worker goroutine is required.

package strand

import (
	"sync"

	"github.com/eapache/queue"
)

// Strand serializes submitted functions. The zero value is not usable;
// construct with New.
type Strand struct {
	mu      sync.Mutex
	tasks   *queue.Queue // of func()
	running bool
}

// New returns an empty, idle Strand.
func New() *Strand {
	return &Strand{tasks: queue.New()}
}

// Dispatch submits fn for serialized execution. If the lane is idle the
// calling goroutine becomes the drainer and runs fn (and anything queued
// behind it) before returning; otherwise fn is queued and runs later on the
// goroutine currently draining. fn must not be nil.
func (s *Strand) Dispatch(fn func()) {
	s.mu.Lock()
	s.tasks.Add(fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.drain()
}

// Pending returns the number of queued, not yet started functions.
func (s *Strand) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Length()
}

// drain runs queued tasks until the queue empties. Exactly one goroutine
// drains at a time; the running flag hands the role over atomically.
func (s *Strand) drain() {
	for {
		s.mu.Lock()
		if s.tasks.Length() == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		task := s.tasks.Remove().(func())
		s.mu.Unlock()

		invoke(task)
	}
}

// invoke runs one task, recovering panics so the lane stays usable.
func invoke(task func()) {
	defer func() { _ = recover() }()
	task()
}
