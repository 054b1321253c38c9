// Package codec provides default Codec implementations for the packet
// envelope contract defined in package protocol. These are the concrete
// wire formats; the contract itself (package protocol) stays agnostic of
// any one of them.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package codec

import (
	"encoding/json"

	"github.com/momentics/wsio/protocol"
)

// JSON is the text-framed default codec: packets and payloads are
// marshaled with encoding/json.
type JSON struct{}

var _ protocol.Codec = JSON{}

func (JSON) Name() string         { return "json" }
func (JSON) IsTextFraming() bool  { return true }

func (JSON) EncodePacket(p protocol.Packet) ([]byte, error) { return json.Marshal(p) }

func (JSON) DecodePacket(raw []byte) (protocol.Packet, error) {
	var p protocol.Packet
	if err := json.Unmarshal(raw, &p); err != nil {
		return protocol.Packet{}, err
	}
	return p, nil
}

func (JSON) EncodePayload(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) DecodePayload(raw []byte, out any) error { return json.Unmarshal(raw, out) }
