// File: codec/msgpack.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/momentics/wsio/protocol"
)

// MsgPack is a binary-framed codec backed by vmihailenco/msgpack. It is the
// preferred low-overhead codec for namespaces exchanging many small events.
type MsgPack struct{}

var _ protocol.Codec = MsgPack{}

func (MsgPack) Name() string        { return "msgpack" }
func (MsgPack) IsTextFraming() bool { return false }

func (MsgPack) EncodePacket(p protocol.Packet) ([]byte, error) { return msgpack.Marshal(p) }

func (MsgPack) DecodePacket(raw []byte) (protocol.Packet, error) {
	var p protocol.Packet
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return protocol.Packet{}, err
	}
	return p, nil
}

func (MsgPack) EncodePayload(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgPack) DecodePayload(raw []byte, out any) error { return msgpack.Unmarshal(raw, out) }
