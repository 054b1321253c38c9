// File: protocol/codec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package protocol

// Codec is the pluggable envelope-and-payload serialization strategy for one
// namespace (server) or one connection (client). Implementations are
// expected to be stateless and safe for concurrent use; the on-wire
// representation of a given codec identifier must stay stable across
// releases so that a server and client configured with the same codec
// interoperate.
//
// EncodePayload/DecodePayload round-trip an arbitrary user value
// independent of Packet framing; EncodePacket/DecodePacket round-trip the
// three-field envelope itself. IsTextFraming selects Text vs Binary framing
// for every outgoing WebSocket frame carrying a packet from this codec.
type Codec interface {
	Name() string
	IsTextFraming() bool

	EncodePacket(p Packet) ([]byte, error)
	DecodePacket(raw []byte) (Packet, error)

	EncodePayload(v any) ([]byte, error)
	DecodePayload(raw []byte, out any) error
}
