// File: api/interfaces.go
// Package api defines the completion-based host runtime contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// Runtime abstracts the host asynchronous I/O runtime. It deals purely in
// completions: an armed operation calls back exactly once, possibly from an
// arbitrary goroutine, when it finishes or is aborted.
type Runtime interface {
	// OpenSocket attaches an existing descriptor for readiness probing.
	// The runtime does not take ownership of the descriptor.
	OpenSocket(fd FD) (Socket, error)

	// NewTimer creates an unarmed monotonic timer.
	NewTimer() Timer

	// Now returns the runtime's monotonic clock reading.
	Now() time.Time
}

// Socket issues zero-length readiness probes on one descriptor. At most one
// probe per direction may be outstanding; arming a second one while the
// first is pending is a caller error with unspecified behavior.
type Socket interface {
	// AwaitReadable arms a zero-length read that completes when the
	// descriptor becomes readable.
	AwaitReadable(fn CompletionFunc)

	// AwaitWritable arms a zero-length write that completes when the
	// descriptor becomes writable.
	AwaitWritable(fn CompletionFunc)

	// Release detaches the descriptor from the runtime without closing it
	// and completes any outstanding probe with StatusCanceled.
	Release()
}

// Timer is a monotonic deadline timer. Changing the expiry or cancelling
// completes an outstanding wait with StatusCanceled.
type Timer interface {
	// ExpiresAt sets the deadline to an absolute monotonic time.
	ExpiresAt(t time.Time)

	// ExpiresAfter sets the deadline relative to the runtime clock.
	ExpiresAfter(d time.Duration)

	// Deadline returns the currently configured expiry.
	Deadline() time.Time

	// AsyncWait arms a wait that completes with StatusOK at the deadline.
	AsyncWait(fn CompletionFunc)

	// Cancel aborts an outstanding wait. Safe to call when nothing is armed.
	Cancel()
}
