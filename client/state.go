// File: client/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package client

import "github.com/momentics/wsio/status"

// Connection states, mirroring §4.8 with directions reversed from the
// server's §4.4 machine.
const (
	StateCreated status.Value = iota
	StateAwaitingInit
	StateAwaitingReady
	StateReady
	StateClosing
	StateClosed
)

// Runtime states, per §4.8's "Stopped -> Running -> Stopping -> Stopped".
const (
	RuntimeStopped status.Value = iota
	RuntimeRunning
	RuntimeStopping
)
