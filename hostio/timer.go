// File: hostio/timer.go
// Author: momentics <momentics@gmail.com>
//
// Monotonic deadline timer with Asio steady_timer semantics: moving the
// expiry or cancelling completes an outstanding wait with StatusCanceled.
// A generation counter keeps a stale expiry from firing after the deadline
// was moved underneath it.

package hostio

import (
	"sync"
	"time"

	"github.com/momentics/iobridge/api"
)

type timer struct {
	mu       sync.Mutex
	deadline time.Time
	gen      uint64
	fn       api.CompletionFunc
	pending  *time.Timer
}

var _ api.Timer = (*timer)(nil)

// ExpiresAt moves the deadline, aborting an outstanding wait.
func (t *timer) ExpiresAt(at time.Time) {
	t.mu.Lock()
	t.deadline = at
	fn := t.abortLocked()
	t.mu.Unlock()

	if fn != nil {
		fn(api.StatusCanceled)
	}
}

// ExpiresAfter moves the deadline relative to now, aborting an outstanding
// wait.
func (t *timer) ExpiresAfter(d time.Duration) {
	t.ExpiresAt(time.Now().Add(d))
}

// Deadline returns the configured expiry.
func (t *timer) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}

// AsyncWait arms a wait completing with StatusOK at the deadline. A deadline
// already in the past fires as soon as the runtime gets to it.
func (t *timer) AsyncWait(fn api.CompletionFunc) {
	t.mu.Lock()
	t.fn = fn
	gen := t.gen
	t.pending = time.AfterFunc(time.Until(t.deadline), func() {
		t.fire(gen)
	})
	t.mu.Unlock()
}

// Cancel aborts an outstanding wait. Safe when nothing is armed.
func (t *timer) Cancel() {
	t.mu.Lock()
	fn := t.abortLocked()
	t.mu.Unlock()

	if fn != nil {
		fn(api.StatusCanceled)
	}
}

// abortLocked invalidates the armed wait and returns its callback, if any.
func (t *timer) abortLocked() api.CompletionFunc {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	fn := t.fn
	t.fn = nil
	return fn
}

// fire completes the wait unless the deadline moved since it was armed.
func (t *timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.fn == nil {
		t.mu.Unlock()
		return
	}
	fn := t.fn
	t.fn = nil
	t.pending = nil
	t.mu.Unlock()

	fn(api.StatusOK)
}
