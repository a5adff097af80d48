// File: dispatch/heartbeat.go
// Package dispatch: drift-free heartbeat timer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"sync/atomic"
	"time"

	"github.com/momentics/iobridge/api"
	"github.com/momentics/iobridge/strand"
)

// heartbeatTimer fires Connection.Heartbeat at a fixed cadence. Each
// rescheduled deadline is the previous deadline plus exactly the interval,
// never "now" plus the interval, so callback latency cannot accumulate into
// schedule drift.
type heartbeatTimer struct {
	timer api.Timer
	lane  *strand.Handle

	// alive mirrors the watcher liveness pattern: completions that observe
	// a dead timer are pure no-ops.
	alive atomic.Bool
}

func newHeartbeatTimer(timer api.Timer, lane *strand.Handle) *heartbeatTimer {
	t := &heartbeatTimer{timer: timer, lane: lane}
	t.alive.Store(true)
	return t
}

// set cancels any armed wait and arms a new one at now + interval.
func (t *heartbeatTimer) set(conn api.Connection, interval time.Duration) {
	t.stop()
	t.timer.ExpiresAfter(interval)
	t.timer.AsyncWait(t.completion(conn, interval))
}

// completion wraps timeout with the liveness and lane checks shared with the
// watcher path. A torn-down lane is handled as a cancellation.
func (t *heartbeatTimer) completion(conn api.Connection, interval time.Duration) api.CompletionFunc {
	return func(st api.Status) {
		if !t.alive.Load() {
			return
		}
		lane, ok := t.lane.Get()
		if !ok {
			t.timeout(api.StatusCanceled, conn, interval)
			return
		}
		lane.Dispatch(func() {
			if t.alive.Load() {
				t.timeout(st, conn, interval)
			}
		})
	}
}

// timeout handles one timer expiry. On success it sends the heartbeat,
// advances the deadline from the previous one and re-arms. Cancellation and
// errors leave the timer disarmed.
func (t *heartbeatTimer) timeout(st api.Status, conn api.Connection, interval time.Duration) {
	if st != api.StatusOK {
		return
	}
	if conn != nil {
		conn.Heartbeat()
	}
	t.timer.ExpiresAt(t.timer.Deadline().Add(interval))
	t.timer.AsyncWait(t.completion(conn, interval))
}

// stop cancels the outstanding wait. Safe when nothing is armed.
func (t *heartbeatTimer) stop() {
	t.timer.Cancel()
}

// destroy marks the timer dead and cancels any armed wait.
func (t *heartbeatTimer) destroy() {
	t.alive.Store(false)
	t.stop()
}
