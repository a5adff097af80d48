// Copyright 2026 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// dispatch_test.go — Dispatcher behavior against the fake completion
// runtime: readiness forwarding, re-arm discipline, cooperative
// cancellation, heartbeat negotiation and drift-free cadence.
package dispatch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/iobridge/api"
	"github.com/momentics/iobridge/dispatch"
	"github.com/momentics/iobridge/fake"
)

func newBridge() (*fake.Runtime, *dispatch.Dispatcher, *fake.Connection) {
	rt := fake.NewRuntime()
	return rt, dispatch.New(rt), &fake.Connection{}
}

func TestMonitor_ZeroFlagsForUnknownFDIsNoop(t *testing.T) {
	rt, d, conn := newBridge()

	d.Monitor(conn, 3, 0)

	assert.False(t, d.Watching(3))
	assert.Nil(t, rt.Socket(3))
}

func TestMonitor_ReadableArmsExactlyOneReadProbe(t *testing.T) {
	rt, d, conn := newBridge()

	d.Monitor(conn, 7, api.Readable)

	require.True(t, d.Watching(7))
	sock := rt.Socket(7)
	require.NotNil(t, sock)
	assert.Equal(t, 1, sock.ReadArms())
	assert.Equal(t, 0, sock.WriteArms())
}

func TestMonitor_RepeatedFlagsDoNotDuplicateProbes(t *testing.T) {
	rt, d, conn := newBridge()

	d.Monitor(conn, 7, api.Readable|api.Writable)
	d.Monitor(conn, 7, api.Readable|api.Writable)
	d.Monitor(conn, 7, api.Readable|api.Writable)

	sock := rt.Socket(7)
	assert.Equal(t, 1, sock.ReadArms())
	assert.Equal(t, 1, sock.WriteArms())
}

func TestCompletion_ForwardsReadinessAndRearms(t *testing.T) {
	rt, d, conn := newBridge()
	d.Monitor(conn, 7, api.Readable)

	require.True(t, rt.CompleteRead(7, api.StatusOK))

	calls := conn.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fake.ProcessCall{FD: 7, Flags: api.Readable}, calls[0])

	sock := rt.Socket(7)
	assert.Equal(t, 2, sock.ReadArms(), "exactly one new probe after delivery")
	assert.Equal(t, 0, sock.WriteArms(), "write direction never armed")
}

func TestCompletion_WouldBlockTreatedAsSuccess(t *testing.T) {
	rt, d, conn := newBridge()
	d.Monitor(conn, 7, api.Readable)

	require.True(t, rt.CompleteRead(7, api.StatusWouldBlock))

	assert.Len(t, conn.Calls(), 1)
	assert.Equal(t, 2, rt.Socket(7).ReadArms())
}

func TestCompletion_ErrorClearsPendingWithoutRearm(t *testing.T) {
	rt, d, conn := newBridge()
	d.Monitor(conn, 7, api.Readable)

	require.True(t, rt.CompleteRead(7, api.StatusError))

	assert.Empty(t, conn.Calls())
	sock := rt.Socket(7)
	assert.Equal(t, 1, sock.ReadArms())
	assert.False(t, sock.ReadArmed())

	// Interest is still on record, so the next Monitor re-arms.
	d.Monitor(conn, 7, api.Readable)
	assert.Equal(t, 2, sock.ReadArms())
}

func TestCompletion_WriteDirectionSymmetric(t *testing.T) {
	rt, d, conn := newBridge()
	d.Monitor(conn, 9, api.Writable)

	require.True(t, rt.CompleteWrite(9, api.StatusOK))

	calls := conn.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fake.ProcessCall{FD: 9, Flags: api.Writable}, calls[0])
	assert.Equal(t, 2, rt.Socket(9).WriteArms())
	assert.Equal(t, 0, rt.Socket(9).ReadArms())
}

func TestMonitor_DroppedDirectionSilencesItsNextCompletion(t *testing.T) {
	rt, d, conn := newBridge()
	d.Monitor(conn, 7, api.Readable|api.Writable)

	// Narrow interest to read only. The armed write probe stays in flight
	// (no explicit cancel exists); its completion must neither forward
	// writability nor re-arm, while the read side keeps working.
	d.Monitor(conn, 7, api.Readable)

	require.True(t, rt.CompleteWrite(7, api.StatusOK))

	assert.Empty(t, conn.Calls())
	sock := rt.Socket(7)
	assert.Equal(t, 1, sock.WriteArms())
	assert.False(t, sock.WriteArmed())
	assert.True(t, d.Watching(7))

	require.True(t, rt.CompleteRead(7, api.StatusOK))
	assert.Equal(t, []fake.ProcessCall{{FD: 7, Flags: api.Readable}}, conn.Calls())
	assert.Equal(t, 2, sock.ReadArms())
}

func TestMonitor_ZeroFlagsRemovesWatcherAndSilencesInFlight(t *testing.T) {
	rt, d, conn := newBridge()
	d.Monitor(conn, 7, api.Readable)

	// Removal releases the socket; the armed probe completes as canceled
	// against an already-dead watcher and must stay silent.
	d.Monitor(conn, 7, 0)

	assert.False(t, d.Watching(7))
	assert.True(t, rt.Socket(7).Released())
	assert.Empty(t, conn.Calls())
	assert.False(t, rt.CompleteRead(7, api.StatusOK), "no probe should remain armed")
}

func TestMonitor_ReRegistrationBehavesLikeFresh(t *testing.T) {
	rt, d, conn := newBridge()

	d.Monitor(conn, 7, api.Readable|api.Writable)
	d.Monitor(conn, 7, 0)
	d.Monitor(conn, 7, api.Readable)

	require.True(t, d.Watching(7))
	sock := rt.Socket(7)
	require.NotNil(t, sock)
	assert.False(t, sock.Released())
	assert.Equal(t, 1, sock.ReadArms())
	assert.Equal(t, 0, sock.WriteArms())

	require.True(t, rt.CompleteRead(7, api.StatusOK))
	assert.Len(t, conn.Calls(), 1)
}

func TestCompletion_ReentrantStopDuringProcessPreventsRearm(t *testing.T) {
	rt := fake.NewRuntime()
	d := dispatch.New(rt)
	conn := &fake.Connection{}
	conn.OnProcess = func(fd api.FD, flags api.Flags) {
		d.Monitor(conn, fd, 0)
	}
	d.Monitor(conn, 7, api.Readable)

	require.True(t, rt.CompleteRead(7, api.StatusOK))

	assert.Len(t, conn.Calls(), 1)
	assert.False(t, d.Watching(7))
	assert.Equal(t, 1, rt.Socket(7).ReadArms(), "no re-arm after re-entrant stop")
}

func TestClose_SilencesEverything(t *testing.T) {
	rt, d, conn := newBridge()
	d.Monitor(conn, 7, api.Readable)
	d.OnNegotiate(conn, 30*time.Second)

	d.Close()
	d.Close() // idempotent

	assert.False(t, d.Watching(7))
	assert.True(t, rt.Socket(7).Released())
	assert.Equal(t, 0, rt.ArmedTimers())

	rt.Advance(10 * time.Minute)
	assert.Zero(t, conn.Heartbeats())
	assert.Empty(t, conn.Calls())

	// Monitoring after Close is ignored.
	d.Monitor(conn, 8, api.Readable)
	assert.False(t, d.Watching(8))
}

func TestOnNegotiate_ZeroDisablesHeartbeats(t *testing.T) {
	rt, d, conn := newBridge()

	got := d.OnNegotiate(conn, 0)

	assert.Equal(t, time.Duration(0), got)
	assert.Equal(t, 0, rt.ArmedTimers())
}

func TestOnNegotiate_AcceptsProposedIntervalUnchanged(t *testing.T) {
	rt, d, conn := newBridge()

	got := d.OnNegotiate(conn, 60*time.Second)

	assert.Equal(t, 60*time.Second, got)
	assert.Equal(t, 1, rt.ArmedTimers())
}

func TestHeartbeat_FiresAtNegotiatedCadence(t *testing.T) {
	rt, d, conn := newBridge()
	d.OnNegotiate(conn, 60*time.Second)

	rt.Advance(180 * time.Second)

	assert.Equal(t, 3, conn.Heartbeats())
}

func TestHeartbeat_ScheduleDoesNotDrift(t *testing.T) {
	rt, d, conn := newBridge()
	d.OnNegotiate(conn, 60*time.Second)

	// Advancing in uneven chunks must not shift the deadline grid: fires
	// land at 60, 120, 180 regardless of when the clock moves past them.
	rt.Advance(150 * time.Second)
	assert.Equal(t, 2, conn.Heartbeats())

	rt.Advance(29 * time.Second)
	assert.Equal(t, 2, conn.Heartbeats())

	rt.Advance(1 * time.Second)
	assert.Equal(t, 3, conn.Heartbeats())
}

func TestOnClosed_IdempotentAndFinal(t *testing.T) {
	rt, d, conn := newBridge()
	d.OnNegotiate(conn, 60*time.Second)
	rt.Advance(60 * time.Second)
	require.Equal(t, 1, conn.Heartbeats())

	d.OnClosed(conn)
	d.OnClosed(conn)

	assert.Equal(t, 0, rt.ArmedTimers())
	rt.Advance(10 * time.Minute)
	assert.Equal(t, 1, conn.Heartbeats(), "no heartbeat after teardown")
}

func TestOnNegotiate_AfterOnClosedArmsFreshTimer(t *testing.T) {
	rt, d, conn := newBridge()
	d.OnNegotiate(conn, 60*time.Second)
	d.OnClosed(conn)

	got := d.OnNegotiate(conn, 45*time.Second)

	assert.Equal(t, 45*time.Second, got)
	assert.Equal(t, 1, rt.ArmedTimers())
	rt.Advance(45 * time.Second)
	assert.Equal(t, 1, conn.Heartbeats())
}

func TestPost_MarshalsOntoLane(t *testing.T) {
	_, d, conn := newBridge()

	d.Post(func() {
		d.Monitor(conn, 7, api.Readable)
	})

	assert.True(t, d.Watching(7))
}

func TestRuntimeAccessor(t *testing.T) {
	rt, d, _ := newBridge()
	assert.Same(t, rt, d.Runtime())
}
