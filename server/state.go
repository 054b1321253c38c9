// File: server/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package server

import "github.com/momentics/wsio/status"

// Connection states. The wire protocol's combined peer diagram also names
// AwaitingInit/Initiating, but those describe the client's wait for the
// server's Init packet (§4.8); the server never waits on one, it sends it
// synchronously from init(), so those two labels have no server-side
// transition and are intentionally absent here.
const (
	StateCreated status.Value = iota
	StateAwaitingAuth
	StateAuthenticating
	StateActivating
	StateReady
	StateClosing
	StateClosed
)

func stateName(v status.Value) string {
	switch v {
	case StateCreated:
		return "Created"
	case StateAwaitingAuth:
		return "AwaitingAuth"
	case StateAuthenticating:
		return "Authenticating"
	case StateActivating:
		return "Activating"
	case StateReady:
		return "Ready"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Namespace lifecycle states.
const (
	NamespaceRunning status.Value = iota
	NamespaceStopping
	NamespaceStopped
)

// Runtime lifecycle states.
const (
	RuntimeRunning status.Value = iota
	RuntimeStopping
	RuntimeStopped
)
