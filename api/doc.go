// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package api defines the interface surface of iobridge: the completion-based
// host runtime contract (Runtime, Socket, Timer), the protocol-engine
// connection contract (Connection), and the event/status types shared by all
// concrete packages.
package api
