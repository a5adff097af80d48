// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package dispatch bridges a readiness-driven protocol engine onto a
// completion-based host runtime.
//
// The protocol engine understands level-triggered readiness ("tell me when
// fd F is readable/writable") and periodic heartbeats. The host runtime only
// offers one-shot completions. The Dispatcher emulates the former on top of
// the latter with a state-checked re-arm loop: every watcher keeps explicit
// per-direction interest flags, consults them on each completion before
// forwarding readiness to the engine, and re-arms the next zero-length probe
// only while interest persists.
//
// Concurrency contract: Monitor, OnNegotiate, OnClosed and Close must run on
// (or be marshaled into) the same serialized execution lane that completion
// bodies use. Completions arriving from arbitrary runtime goroutines marshal
// themselves through the lane; a torn-down lane degrades them into their
// cancellation path. Cancellation is cooperative throughout: an in-flight
// probe cannot be retracted, only stripped of effect and kept from re-arming.
package dispatch
