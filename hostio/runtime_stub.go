//go:build !linux
// +build !linux

// File: hostio/runtime_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub constructor for unsupported platforms.

package hostio

import (
	"errors"
	"time"

	"github.com/momentics/iobridge/api"
)

// Runtime is unavailable on this platform.
type Runtime struct{}

var _ api.Runtime = (*Runtime)(nil)

// New returns an error for unsupported platforms.
func New() (*Runtime, error) {
	return nil, errors.New("hostio: this platform is not supported")
}

// OpenSocket is unreachable on this platform.
func (r *Runtime) OpenSocket(fd api.FD) (api.Socket, error) {
	return nil, errors.New("hostio: this platform is not supported")
}

// NewTimer is unreachable on this platform.
func (r *Runtime) NewTimer() api.Timer { return &timer{} }

// Now returns the wall clock; kept so the type satisfies api.Runtime.
func (r *Runtime) Now() time.Time { return time.Now() }
