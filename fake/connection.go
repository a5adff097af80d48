// File: fake/connection.go
// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/iobridge/api"
)

// ProcessCall records one readiness delivery to the connection.
type ProcessCall struct {
	FD    api.FD
	Flags api.Flags
}

// Connection is a recording protocol-engine double. The optional hooks run
// inside Process/Heartbeat after recording, which lets tests exercise
// re-entrant Monitor calls the way a real engine would make them.
type Connection struct {
	mu         sync.Mutex
	calls      []ProcessCall
	heartbeats int

	OnProcess   func(fd api.FD, flags api.Flags)
	OnHeartbeat func()
}

var _ api.Connection = (*Connection)(nil)

// Process records the readiness event and runs the OnProcess hook.
func (c *Connection) Process(fd api.FD, flags api.Flags) {
	c.mu.Lock()
	c.calls = append(c.calls, ProcessCall{FD: fd, Flags: flags})
	hook := c.OnProcess
	c.mu.Unlock()

	if hook != nil {
		hook(fd, flags)
	}
}

// Heartbeat records the heartbeat and runs the OnHeartbeat hook.
func (c *Connection) Heartbeat() {
	c.mu.Lock()
	c.heartbeats++
	hook := c.OnHeartbeat
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Calls returns a copy of the recorded readiness deliveries.
func (c *Connection) Calls() []ProcessCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ProcessCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// Heartbeats returns how many heartbeats were delivered.
func (c *Connection) Heartbeats() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heartbeats
}
