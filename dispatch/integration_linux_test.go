//go:build linux
// +build linux

// Copyright 2026 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// integration_linux_test.go — Dispatcher wired to the real epoll runtime:
// readiness events flow from the kernel through the strand into the engine.
package dispatch_test

import (
	"bytes"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/iobridge/api"
	"github.com/momentics/iobridge/dispatch"
	"github.com/momentics/iobridge/hostio"
)

// sinkEngine drains the descriptor on every readiness event and stops
// monitoring once it has seen want bytes.
type sinkEngine struct {
	d    *dispatch.Dispatcher
	want int
	got  []byte
	done chan struct{}
}

func (e *sinkEngine) Process(fd api.FD, flags api.Flags) {
	if !flags.Has(api.Readable) {
		return
	}
	buf := make([]byte, 64)
	for {
		n, _ := unix.Read(int(fd), buf)
		if n <= 0 {
			break
		}
		e.got = append(e.got, buf[:n]...)
	}
	if len(e.got) >= e.want {
		e.d.Monitor(e, fd, 0)
		close(e.done)
	}
}

func (e *sinkEngine) Heartbeat() {}

func TestDispatcher_OverEpollRuntime(t *testing.T) {
	rt, err := hostio.New()
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	d := dispatch.New(rt)
	defer d.Close()

	payload := []byte("hello")
	eng := &sinkEngine{d: d, want: len(payload), done: make(chan struct{})}
	d.Monitor(eng, api.FD(fds[0]), api.Readable)

	if _, err := unix.Write(fds[1], payload); err != nil {
		t.Fatal(err)
	}

	select {
	case <-eng.done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never received the payload")
	}
	if !bytes.Equal(eng.got, payload) {
		t.Fatalf("received %q, want %q", eng.got, payload)
	}
}
