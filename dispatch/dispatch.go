// File: dispatch/dispatch.go
// Package dispatch: public façade routing monitor requests to watchers and
// owning the heartbeat timer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"log"
	"time"

	"github.com/momentics/iobridge/api"
	"github.com/momentics/iobridge/strand"
)

// Dispatcher is the adapter the protocol engine talks to. It maintains the
// descriptor-to-watcher mapping, arms and disarms readiness probes on the
// host runtime, and drives the negotiated heartbeat cadence.
//
// All methods must run on the dispatcher's serialization lane; see the
// package documentation for the full contract.
type Dispatcher struct {
	rt      api.Runtime
	lane    *strand.Strand
	laneRef *strand.Handle

	// watchers holds one entry per descriptor with non-zero interest.
	watchers map[api.FD]*watcher

	heartbeat *heartbeatTimer
	closed    bool
}

// New constructs a Dispatcher on top of the given host runtime, with a fresh
// serialization lane shared by every callback the dispatcher schedules.
func New(rt api.Runtime) *Dispatcher {
	lane := strand.New()
	ref := strand.NewHandle(lane)
	return &Dispatcher{
		rt:        rt,
		lane:      lane,
		laneRef:   ref,
		watchers:  make(map[api.FD]*watcher),
		heartbeat: newHeartbeatTimer(rt.NewTimer(), ref),
	}
}

// Monitor sets the directions fd is watched for. flags == 0 stops watching:
// the watcher is removed and any in-flight completion for it degrades to a
// no-op. Re-monitoring a stopped descriptor behaves like a first-time
// registration. Idempotent, no error conditions.
func (d *Dispatcher) Monitor(conn api.Connection, fd api.FD, flags api.Flags) {
	if d.closed {
		return
	}

	w, ok := d.watchers[fd]
	switch {
	case !ok:
		if flags == 0 {
			return
		}
		sock, err := d.rt.OpenSocket(fd)
		if err != nil {
			log.Printf("[dispatch] open socket fd=%d: %v", fd, err)
			return
		}
		w = newWatcher(sock, d.laneRef)
		d.watchers[fd] = w
		w.events(conn, fd, flags)
	case flags == 0:
		delete(d.watchers, fd)
		w.destroy()
	default:
		w.events(conn, fd, flags)
	}
}

// OnNegotiate answers the heartbeat negotiation. A zero interval disables
// heartbeats; any other proposal is accepted unchanged and arms the timer.
func (d *Dispatcher) OnNegotiate(conn api.Connection, interval time.Duration) time.Duration {
	if interval == 0 || d.closed {
		return 0
	}
	// A connection re-negotiating after OnClosed gets a fresh timer.
	if d.heartbeat == nil {
		d.heartbeat = newHeartbeatTimer(d.rt.NewTimer(), d.laneRef)
	}
	d.heartbeat.set(conn, interval)
	return interval
}

// OnClosed releases the heartbeat timer so no heartbeat fires after the
// connection is torn down. Idempotent.
func (d *Dispatcher) OnClosed(conn api.Connection) {
	if d.heartbeat != nil {
		d.heartbeat.destroy()
		d.heartbeat = nil
	}
}

// Close tears the dispatcher down: every watcher is destroyed, the heartbeat
// timer stops and the serialization lane is revoked, turning any still
// in-flight completion into a no-op. Idempotent.
func (d *Dispatcher) Close() {
	if d.closed {
		return
	}
	d.closed = true
	for fd, w := range d.watchers {
		delete(d.watchers, fd)
		w.destroy()
	}
	if d.heartbeat != nil {
		d.heartbeat.destroy()
		d.heartbeat = nil
	}
	d.laneRef.Drop()
}

// Post marshals fn onto the dispatcher's serialization lane. Callers not
// already running on the lane use it to make Monitor, OnNegotiate, OnClosed
// and Close calls safely.
func (d *Dispatcher) Post(fn func()) {
	d.lane.Dispatch(fn)
}

// Runtime returns the host runtime the dispatcher was built on.
func (d *Dispatcher) Runtime() api.Runtime {
	return d.rt
}

// Watching reports whether fd currently has non-zero interest.
func (d *Dispatcher) Watching(fd api.FD) bool {
	_, ok := d.watchers[fd]
	return ok
}
