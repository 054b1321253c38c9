// File: protocol/packet.go
// Package protocol defines the wire envelope shared by the server and client
// halves of wsio: a tagged Packet plus the Codec contract used to serialize
// it and arbitrary user payloads.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package protocol

import "fmt"

// Type tags a Packet's role in the connection state machine.
type Type uint8

const (
	// TypeAuth carries client->server authentication bytes.
	TypeAuth Type = iota
	// TypeDisconnect requests or announces session teardown.
	TypeDisconnect
	// TypeEvent carries an application event; Key names it, Data is its
	// codec-encoded payload.
	TypeEvent
	// TypeInit is the first server->client packet; Data is the
	// codec-encoded "requires_auth" boolean.
	TypeInit
	// TypeReady announces that a connection has reached its Ready state.
	TypeReady
)

func (t Type) String() string {
	switch t {
	case TypeAuth:
		return "auth"
	case TypeDisconnect:
		return "disconnect"
	case TypeEvent:
		return "event"
	case TypeInit:
		return "init"
	case TypeReady:
		return "ready"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Packet is the three-field envelope carried by every WebSocket frame:
//
//	t: Type    -- small-int tag
//	k: Key     -- optional string, event name on TypeEvent, session id on
//	              server TypeInit
//	d: Data    -- optional already-encoded payload bytes
//
// Invariant: Event packets must carry Key; server Init packets must carry
// Data (an encoded bool); Ready and Disconnect packets carry neither.
// Validate enforces this; a decoder that sees a violating packet on the
// wire must fail the connection.
type Packet struct {
	T Type    `msgpack:"t" json:"t"`
	K *string `msgpack:"k,omitempty" json:"k,omitempty"`
	D []byte  `msgpack:"d,omitempty" json:"d,omitempty"`
}

// ErrInvalidPacket reports a Packet that violates the envelope invariant.
type ErrInvalidPacket struct {
	Reason string
	Packet Packet
}

func (e *ErrInvalidPacket) Error() string {
	return fmt.Sprintf("protocol: invalid packet (%s): %+v", e.Reason, e.Packet)
}

// Validate enforces the per-type shape invariant described on Packet.
// isServerInit distinguishes a server-authored Init (which must carry the
// requires-auth payload) from a client-authored one (there is none).
func (p Packet) Validate(isServerInit bool) error {
	switch p.T {
	case TypeEvent:
		if p.K == nil {
			return &ErrInvalidPacket{Reason: "event packet missing key", Packet: p}
		}
	case TypeInit:
		if isServerInit && p.D == nil {
			return &ErrInvalidPacket{Reason: "server init packet missing data", Packet: p}
		}
	case TypeReady, TypeDisconnect:
		if p.K != nil || p.D != nil {
			return &ErrInvalidPacket{Reason: "ready/disconnect packet must carry neither key nor data", Packet: p}
		}
	case TypeAuth:
		// Auth carries arbitrary data and no key; no further constraint.
	default:
		return &ErrInvalidPacket{Reason: "unknown packet type", Packet: p}
	}
	return nil
}

// EventPacket builds a well-formed TypeEvent packet.
func EventPacket(event string, data []byte) Packet {
	return Packet{T: TypeEvent, K: &event, D: data}
}

// ServerInitPacket builds the server's handshake-opening packet. sessionID
// becomes the packet's Key (the wire-visible session identifier); data is
// the codec-encoded requires-auth boolean.
func ServerInitPacket(sessionID string, requiresAuthEncoded []byte) Packet {
	return Packet{T: TypeInit, K: &sessionID, D: requiresAuthEncoded}
}

// ReadyPacket builds the terminal handshake packet.
func ReadyPacket() Packet { return Packet{T: TypeReady} }

// DisconnectPacket builds a teardown announcement packet.
func DisconnectPacket() Packet { return Packet{T: TypeDisconnect} }

// AuthPacket builds a client auth-response packet.
func AuthPacket(data []byte) Packet { return Packet{T: TypeAuth, D: data} }

// Event returns the event name of a TypeEvent packet, or "" if absent.
func (p Packet) Event() string {
	if p.K == nil {
		return ""
	}
	return *p.K
}

// SessionID returns the Key of a server TypeInit packet, or "" if absent.
func (p Packet) SessionID() string {
	if p.K == nil {
		return ""
	}
	return *p.K
}
