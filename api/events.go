// File: api/events.go
// Package api defines descriptor, direction and completion-status types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// FD identifies one network endpoint to be monitored for readiness.
// The descriptor is owned by the protocol engine; iobridge never closes it.
type FD int

// Flags is a bitmask of readiness directions.
type Flags int

const (
	// Readable requests notification when the descriptor can be read.
	Readable Flags = 1 << iota
	// Writable requests notification when the descriptor can be written.
	Writable
)

// Has reports whether all directions in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Status is the outcome of an asynchronous operation.
type Status int

const (
	// StatusOK means the operation completed: the descriptor is ready or
	// the timer expired.
	StatusOK Status = iota
	// StatusWouldBlock means the probe completed without readiness. It is
	// treated exactly like StatusOK by completion handlers.
	StatusWouldBlock
	// StatusCanceled means the operation was aborted before completion.
	StatusCanceled
	// StatusError covers every other failure.
	StatusError
)

// String returns a human-readable status name for logs and tests.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWouldBlock:
		return "would-block"
	case StatusCanceled:
		return "canceled"
	default:
		return "error"
	}
}

// CompletionFunc receives the outcome of an asynchronous operation. The
// runtime may invoke it from any goroutine; callers that need serialized
// execution must marshal into a strand themselves.
type CompletionFunc func(Status)
