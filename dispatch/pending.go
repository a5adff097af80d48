// File: dispatch/pending.go
// Package dispatch: per-direction outstanding-probe guard.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import "sync/atomic"

// pendingOp gates one outstanding asynchronous probe per (descriptor,
// direction). begin must win the CAS before arming; completions call end
// before deciding whether to re-arm.
type pendingOp struct {
	v atomic.Bool
}

// begin marks the operation pending. Returns false if one is already
// outstanding, in which case the caller must not arm another.
func (p *pendingOp) begin() bool {
	return p.v.CompareAndSwap(false, true)
}

// end clears the pending mark.
func (p *pendingOp) end() {
	p.v.Store(false)
}

// active reports whether a probe is currently outstanding.
func (p *pendingOp) active() bool {
	return p.v.Load()
}
