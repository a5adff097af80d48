// File: api/connection.go
// Package api defines the protocol-engine connection contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Connection is the surface iobridge consumes from the protocol engine.
// The engine performs all actual byte I/O itself; iobridge only reports
// readiness and heartbeat cadence to it.
type Connection interface {
	// Process tells the engine the descriptor is ready in the given
	// direction. The engine reads or writes as much as it wants and calls
	// Dispatcher.Monitor again if its interest changes.
	Process(fd FD, flags Flags)

	// Heartbeat is invoked once per negotiated heartbeat interval.
	Heartbeat()
}
