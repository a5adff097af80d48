// File: fake/runtime.go
// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// Deterministic in-memory implementation of api.Runtime for tests: probes
// complete only when the test says so, and time only moves when the test
// advances the clock.

package fake

import (
	"sync"
	"time"

	"github.com/momentics/iobridge/api"
)

// Runtime is a hand-driven completion runtime. All state is guarded by one
// mutex; completion callbacks are always invoked with the mutex released.
type Runtime struct {
	mu     sync.Mutex
	now    time.Time
	socks  map[api.FD]*Socket
	timers []*Timer
}

var _ api.Runtime = (*Runtime)(nil)

// NewRuntime returns a runtime whose clock starts at the Unix epoch.
func NewRuntime() *Runtime {
	return &Runtime{
		now:   time.Unix(0, 0),
		socks: make(map[api.FD]*Socket),
	}
}

// OpenSocket hands out a recording socket for fd. Each call returns a fresh
// socket; the most recent one is retrievable via Socket.
func (r *Runtime) OpenSocket(fd api.FD) (api.Socket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Socket{rt: r, fd: fd}
	r.socks[fd] = s
	return s, nil
}

// NewTimer returns an unarmed clock-driven timer.
func (r *Runtime) NewTimer() api.Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &Timer{rt: r}
	r.timers = append(r.timers, t)
	return t
}

// Now returns the manual clock reading.
func (r *Runtime) Now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

// Socket returns the most recently opened socket for fd, or nil.
func (r *Runtime) Socket(fd api.FD) *Socket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.socks[fd]
}

// CompleteRead delivers the outstanding read probe on fd with the given
// status. Returns false if no probe was armed. The callback runs on the
// calling goroutine.
func (r *Runtime) CompleteRead(fd api.FD, st api.Status) bool {
	return r.complete(fd, st, false)
}

// CompleteWrite delivers the outstanding write probe on fd.
func (r *Runtime) CompleteWrite(fd api.FD, st api.Status) bool {
	return r.complete(fd, st, true)
}

func (r *Runtime) complete(fd api.FD, st api.Status, write bool) bool {
	r.mu.Lock()
	s := r.socks[fd]
	if s == nil {
		r.mu.Unlock()
		return false
	}
	var fn api.CompletionFunc
	if write {
		fn, s.writeFn = s.writeFn, nil
	} else {
		fn, s.readFn = s.readFn, nil
	}
	r.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(st)
	return true
}

// Advance moves the clock forward by d, firing armed timers in deadline
// order as the clock passes them. A timer callback that re-arms within the
// advanced window fires again in the same call.
func (r *Runtime) Advance(d time.Duration) {
	r.mu.Lock()
	target := r.now.Add(d)
	for {
		var next *Timer
		for _, t := range r.timers {
			if t.fn == nil || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			break
		}
		if next.deadline.After(r.now) {
			r.now = next.deadline
		}
		fn := next.fn
		next.fn = nil
		r.mu.Unlock()
		fn(api.StatusOK)
		r.mu.Lock()
	}
	r.now = target
	r.mu.Unlock()
}

// ArmedTimers returns how many timers currently have a wait outstanding.
func (r *Runtime) ArmedTimers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.timers {
		if t.fn != nil {
			n++
		}
	}
	return n
}

// Socket records probe arming on one descriptor.
type Socket struct {
	rt *Runtime
	fd api.FD

	readFn  api.CompletionFunc
	writeFn api.CompletionFunc

	readArms  int
	writeArms int
	released  bool
}

var _ api.Socket = (*Socket)(nil)

// AwaitReadable arms a read probe and bumps the cumulative arm counter.
func (s *Socket) AwaitReadable(fn api.CompletionFunc) {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	s.readFn = fn
	s.readArms++
}

// AwaitWritable arms a write probe.
func (s *Socket) AwaitWritable(fn api.CompletionFunc) {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	s.writeFn = fn
	s.writeArms++
}

// Release detaches the socket and completes outstanding probes with
// StatusCanceled, synchronously.
func (s *Socket) Release() {
	s.rt.mu.Lock()
	rfn, wfn := s.readFn, s.writeFn
	s.readFn, s.writeFn = nil, nil
	s.released = true
	s.rt.mu.Unlock()

	if rfn != nil {
		rfn(api.StatusCanceled)
	}
	if wfn != nil {
		wfn(api.StatusCanceled)
	}
}

// ReadArms returns how many read probes were ever armed on this socket.
func (s *Socket) ReadArms() int {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	return s.readArms
}

// WriteArms returns how many write probes were ever armed on this socket.
func (s *Socket) WriteArms() int {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	return s.writeArms
}

// ReadArmed reports whether a read probe is currently outstanding.
func (s *Socket) ReadArmed() bool {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	return s.readFn != nil
}

// WriteArmed reports whether a write probe is currently outstanding.
func (s *Socket) WriteArmed() bool {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	return s.writeFn != nil
}

// Released reports whether the socket was detached.
func (s *Socket) Released() bool {
	s.rt.mu.Lock()
	defer s.rt.mu.Unlock()
	return s.released
}

// Timer is a clock-driven timer fired by Runtime.Advance.
type Timer struct {
	rt       *Runtime
	deadline time.Time
	fn       api.CompletionFunc
}

var _ api.Timer = (*Timer)(nil)

// ExpiresAt sets the deadline, cancelling any outstanding wait.
func (t *Timer) ExpiresAt(at time.Time) {
	t.rt.mu.Lock()
	fn := t.fn
	t.fn = nil
	t.deadline = at
	t.rt.mu.Unlock()

	if fn != nil {
		fn(api.StatusCanceled)
	}
}

// ExpiresAfter sets the deadline relative to the manual clock.
func (t *Timer) ExpiresAfter(d time.Duration) {
	t.rt.mu.Lock()
	fn := t.fn
	t.fn = nil
	t.deadline = t.rt.now.Add(d)
	t.rt.mu.Unlock()

	if fn != nil {
		fn(api.StatusCanceled)
	}
}

// Deadline returns the configured expiry.
func (t *Timer) Deadline() time.Time {
	t.rt.mu.Lock()
	defer t.rt.mu.Unlock()
	return t.deadline
}

// AsyncWait arms the wait; it completes when the clock is advanced past the
// deadline, or with StatusCanceled on Cancel/ExpiresAt/ExpiresAfter.
func (t *Timer) AsyncWait(fn api.CompletionFunc) {
	t.rt.mu.Lock()
	defer t.rt.mu.Unlock()
	t.fn = fn
}

// Cancel aborts an outstanding wait. Safe when nothing is armed.
func (t *Timer) Cancel() {
	t.rt.mu.Lock()
	fn := t.fn
	t.fn = nil
	t.rt.mu.Unlock()

	if fn != nil {
		fn(api.StatusCanceled)
	}
}
