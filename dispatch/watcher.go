// File: dispatch/watcher.go
// Package dispatch: per-descriptor readiness watcher.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"sync/atomic"

	"github.com/momentics/iobridge/api"
	"github.com/momentics/iobridge/strand"
)

// watcher owns the readiness-monitoring state for one descriptor. It issues
// zero-length probes through the runtime socket, receives their completions
// and forwards readiness to the connection, re-arming while interest lasts.
//
// The interest flags are lane-confined. The alive flag and the pendingOp
// guards are atomic because completion closures consult them before entering
// the lane.
type watcher struct {
	sock api.Socket
	lane *strand.Handle

	// alive is the watcher's resolvable self-reference: a completion that
	// observes alive == false treats the watcher as destroyed and becomes
	// a pure no-op.
	alive atomic.Bool

	read  bool
	write bool

	readPending  pendingOp
	writePending pendingOp
}

func newWatcher(sock api.Socket, lane *strand.Handle) *watcher {
	w := &watcher{sock: sock, lane: lane}
	w.alive.Store(true)
	return w
}

// events updates the directions the descriptor is monitored for and arms a
// probe for each newly interested direction that has none outstanding.
// Ceasing interest issues no cancel: the next completion for that direction
// simply will not re-arm.
func (w *watcher) events(conn api.Connection, fd api.FD, flags api.Flags) {
	w.read = flags.Has(api.Readable)
	if w.read && w.readPending.begin() {
		w.sock.AwaitReadable(w.completion(conn, fd, api.Readable))
	}

	w.write = flags.Has(api.Writable)
	if w.write && w.writePending.begin() {
		w.sock.AwaitWritable(w.completion(conn, fd, api.Writable))
	}
}

// completion builds the callback handed to the runtime for one probe. It
// runs on an arbitrary runtime goroutine: it first resolves the watcher's
// liveness, then marshals the body into the lane. A torn-down lane turns the
// completion into a cancellation handled in place.
func (w *watcher) completion(conn api.Connection, fd api.FD, dir api.Flags) api.CompletionFunc {
	return func(st api.Status) {
		if !w.alive.Load() {
			return
		}
		lane, ok := w.lane.Get()
		if !ok {
			w.handle(api.StatusCanceled, conn, fd, dir)
			return
		}
		lane.Dispatch(func() {
			if w.alive.Load() {
				w.handle(st, conn, fd, dir)
			}
		})
	}
}

// handle processes one completed probe inside the lane. Symmetric for both
// directions: clear the pending guard, and on success or would-block while
// the direction is still interested, forward readiness and re-arm. Any other
// status (cancellation included) only clears the guard.
func (w *watcher) handle(st api.Status, conn api.Connection, fd api.FD, dir api.Flags) {
	interested, pending := &w.read, &w.readPending
	if dir == api.Writable {
		interested, pending = &w.write, &w.writePending
	}

	pending.end()

	if st != api.StatusOK && st != api.StatusWouldBlock {
		return
	}
	if !*interested {
		return
	}

	conn.Process(fd, dir)

	// Process may have changed interest re-entrantly via Monitor.
	if *interested && pending.begin() {
		if dir == api.Readable {
			w.sock.AwaitReadable(w.completion(conn, fd, dir))
		} else {
			w.sock.AwaitWritable(w.completion(conn, fd, dir))
		}
	}
}

// destroy clears interest, marks the watcher dead for in-flight completions
// and detaches the descriptor from the runtime. The descriptor itself stays
// open: it is owned by the protocol engine.
func (w *watcher) destroy() {
	w.alive.Store(false)
	w.read = false
	w.write = false
	w.sock.Release()
}
