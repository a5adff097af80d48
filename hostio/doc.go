// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package hostio provides the production api.Runtime backend: readiness
// probes multiplexed through epoll(7) on Linux, delivered as one-shot
// completions on dedicated goroutines, plus monotonic deadline timers.
// Other platforms get a constructor that reports lack of support.
package hostio
