package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtobufCodec implements Protocol Buffers encoding/decoding.
//
// proto.Message values are marshaled directly. Anything else is first mapped
// to its JSON shape and sent as a google.protobuf.Value, so plain structs and
// slices can be served without generated code.
type ProtobufCodec struct{}

func (c *ProtobufCodec) Encode(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return proto.Marshal(msg)
	}
	val, err := ToValue(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(val)
}

func (c *ProtobufCodec) Decode(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("value must implement proto.Message interface, got %T", v)
	}
	return proto.Unmarshal(data, msg)
}

func (c *ProtobufCodec) Name() string {
	return "protobuf"
}

func (c *ProtobufCodec) ContentType() string {
	return MIMEProtobuf
}

// ToValue converts v to a structpb.Value through its JSON representation
func ToValue(v any) (*structpb.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
