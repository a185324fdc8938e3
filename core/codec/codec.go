package codec

import (
	"encoding/json"
	"strings"
)

// Codec defines the interface for encoding/decoding response bodies
type Codec interface {
	// Encode encodes a value to bytes
	Encode(v any) ([]byte, error)

	// Decode decodes bytes to a value
	Decode(data []byte, v any) error

	// ContentType returns the wire content type this codec produces
	ContentType() string

	// Name returns the codec name
	Name() string
}

var (
	jsonCodec     = &JSONCodec{}
	protobufCodec = &ProtobufCodec{}
)

// Negotiate picks the response codec from the request's Accept header.
// JSON is the wire default; protobuf is used only when the client asks
// for it explicitly.
func Negotiate(accept string) Codec {
	if strings.Contains(accept, "application/x-protobuf") {
		return protobufCodec
	}
	return jsonCodec
}

// JSON returns the default JSON codec.
func JSON() Codec {
	return jsonCodec
}

// JSONCodec implements JSON encoding/decoding
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) ContentType() string {
	return "application/json"
}

func (c *JSONCodec) Name() string {
	return "json"
}
