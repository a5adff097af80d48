//go:build linux
// +build linux

// File: hostio/runtime_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based completion runtime. Each armed probe is one-shot:
// the epoll mask is rebuilt from the currently armed directions on every
// arm/deliver transition, so a descriptor never spins on readiness nobody
// asked about.

package hostio

import (
	"encoding/binary"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/iobridge/api"
)

// Runtime is the epoll-backed host runtime. Completions run on fresh
// goroutines; callers needing serialization marshal through a strand.
type Runtime struct {
	epfd   int
	wakefd int

	mu     sync.Mutex
	socks  map[int]*socket
	closed bool

	done chan struct{}
}

var _ api.Runtime = (*Runtime)(nil)

// New creates the epoll instance plus an eventfd wakeup channel and starts
// the poll loop.
func New() (*Runtime, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, err
	}

	r := &Runtime{
		epfd:   epfd,
		wakefd: wakefd,
		socks:  make(map[int]*socket),
		done:   make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

// OpenSocket attaches fd for readiness probing. The descriptor is switched
// to non-blocking mode and registered disarmed (one-shot, empty mask).
func (r *Runtime) OpenSocket(fd api.FD) (api.Socket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.New("hostio: runtime closed")
	}
	if _, dup := r.socks[int(fd)]; dup {
		return nil, errors.New("hostio: descriptor already attached")
	}
	if err := unix.SetNonblock(int(fd), true); err != nil {
		return nil, err
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLONESHOT, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), ev); err != nil {
		return nil, err
	}
	s := &socket{rt: r, fd: int(fd)}
	r.socks[int(fd)] = s
	return s, nil
}

// NewTimer returns an unarmed monotonic timer.
func (r *Runtime) NewTimer() api.Timer {
	return &timer{deadline: time.Now()}
}

// Now returns the monotonic clock reading.
func (r *Runtime) Now() time.Time {
	return time.Now()
}

// Close stops the poll loop and cancels every outstanding probe. Attached
// descriptors are left open.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	socks := make([]*socket, 0, len(r.socks))
	for _, s := range r.socks {
		socks = append(socks, s)
	}
	r.mu.Unlock()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	unix.Write(r.wakefd, buf[:])
	<-r.done

	for _, s := range socks {
		s.Release()
	}

	unix.Close(r.wakefd)
	return unix.Close(r.epfd)
}

// loop waits for epoll events and hands readiness to the owning sockets.
func (r *Runtime) loop() {
	defer close(r.done)
	events := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			log.Printf("[hostio] epoll wait: %v", err)
			return
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			if int(ev.Fd) == r.wakefd {
				r.mu.Lock()
				closed := r.closed
				r.mu.Unlock()
				if closed {
					return
				}
				var buf [8]byte
				unix.Read(r.wakefd, buf[:])
				continue
			}
			r.deliver(int(ev.Fd), ev.Events)
		}
	}
}

// deliver pops the callbacks matched by the event mask, re-arms the one-shot
// registration for whatever stays armed, and fires the callbacks on their
// own goroutines.
func (r *Runtime) deliver(fd int, events uint32) {
	r.mu.Lock()
	s := r.socks[fd]
	if s == nil {
		r.mu.Unlock()
		return
	}
	var rfn, wfn api.CompletionFunc
	if events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		rfn, s.readFn = s.readFn, nil
	}
	if events&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		wfn, s.writeFn = s.writeFn, nil
	}
	s.rearmLocked()
	r.mu.Unlock()

	if rfn != nil {
		go rfn(api.StatusOK)
	}
	if wfn != nil {
		go wfn(api.StatusOK)
	}
}

// socket is one attached descriptor. Guarded by the runtime mutex.
type socket struct {
	rt *Runtime
	fd int

	readFn   api.CompletionFunc
	writeFn  api.CompletionFunc
	released bool
}

var _ api.Socket = (*socket)(nil)

// AwaitReadable arms a one-shot readability probe.
func (s *socket) AwaitReadable(fn api.CompletionFunc) {
	s.await(fn, false)
}

// AwaitWritable arms a one-shot writability probe.
func (s *socket) AwaitWritable(fn api.CompletionFunc) {
	s.await(fn, true)
}

func (s *socket) await(fn api.CompletionFunc, write bool) {
	s.rt.mu.Lock()
	if s.released {
		s.rt.mu.Unlock()
		go fn(api.StatusCanceled)
		return
	}
	if write {
		s.writeFn = fn
	} else {
		s.readFn = fn
	}
	s.rearmLocked()
	s.rt.mu.Unlock()
}

// rearmLocked rebuilds the one-shot epoll mask from the armed directions.
func (s *socket) rearmLocked() {
	var mask uint32 = unix.EPOLLONESHOT
	if s.readFn != nil {
		mask |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if s.writeFn != nil {
		mask |= unix.EPOLLOUT
	}
	ev := &unix.EpollEvent{Events: mask, Fd: int32(s.fd)}
	if err := unix.EpollCtl(s.rt.epfd, unix.EPOLL_CTL_MOD, s.fd, ev); err != nil {
		log.Printf("[hostio] epoll mod fd=%d: %v", s.fd, err)
	}
}

// Release detaches the descriptor without closing it and cancels any
// outstanding probe.
func (s *socket) Release() {
	s.rt.mu.Lock()
	if s.released {
		s.rt.mu.Unlock()
		return
	}
	s.released = true
	delete(s.rt.socks, s.fd)
	rfn, wfn := s.readFn, s.writeFn
	s.readFn, s.writeFn = nil, nil
	unix.EpollCtl(s.rt.epfd, unix.EPOLL_CTL_DEL, s.fd, nil)
	s.rt.mu.Unlock()

	if rfn != nil {
		go rfn(api.StatusCanceled)
	}
	if wfn != nil {
		go wfn(api.StatusCanceled)
	}
}
