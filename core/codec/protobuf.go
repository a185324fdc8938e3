package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// ProtobufCodec implements Protocol Buffers encoding/decoding
type ProtobufCodec struct{}

func (c *ProtobufCodec) Encode(v any) ([]byte, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("value must implement proto.Message interface, got %T", v)
	}
	return proto.Marshal(msg)
}

func (c *ProtobufCodec) Decode(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("value must implement proto.Message interface, got %T", v)
	}
	return proto.Unmarshal(data, msg)
}

func (c *ProtobufCodec) ContentType() string {
	return "application/x-protobuf"
}

func (c *ProtobufCodec) Name() string {
	return "protobuf"
}

// Encodable reports whether v can be serialized by this codec. The server
// falls back to JSON for handler payloads that are not proto messages even
// when the client negotiated protobuf.
func (c *ProtobufCodec) Encodable(v any) bool {
	_, ok := v.(proto.Message)
	return ok
}
