// File: strand/handle.go
// Package strand: droppable strand references for callback closures.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package strand

import "sync/atomic"

// Handle is a non-owning reference to a Strand that the owner can revoke.
// Completion closures hold a Handle instead of the Strand itself, so tearing
// down the owner immediately degrades every in-flight completion into its
// cancellation path: Get fails and the closure must not touch the lane.
type Handle struct {
	p atomic.Pointer[Strand]
}

// NewHandle returns a live reference to s.
func NewHandle(s *Strand) *Handle {
	h := &Handle{}
	h.p.Store(s)
	return h
}

// Get resolves the handle. ok is false once the owner has dropped it.
func (h *Handle) Get() (s *Strand, ok bool) {
	s = h.p.Load()
	return s, s != nil
}

// Drop revokes the handle. Idempotent.
func (h *Handle) Drop() {
	h.p.Store(nil)
}
