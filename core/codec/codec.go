package codec

import (
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var ErrUnsupportedCodec = errors.New("unsupported codec")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Codec encodes response payloads for one media type
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
	ContentType() string
}

// Media types understood by Negotiate
const (
	MIMEJSON     = "application/json"
	MIMEProtobuf = "application/x-protobuf"
	MIMEMsgPack  = "application/msgpack"
)

var (
	jsonCodec     = &JSONCodec{}
	protobufCodec = &ProtobufCodec{}
	msgpackCodec  = &MsgPackCodec{}
)

// ByName returns a codec by its Name
func ByName(name string) (Codec, error) {
	switch name {
	case "json":
		return jsonCodec, nil
	case "protobuf":
		return protobufCodec, nil
	case "msgpack":
		return msgpackCodec, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}

// Negotiate picks a codec for an Accept header value. The first listed media
// type with a codec wins; ok is false when none matches, in which case
// callers fall back to plain text.
func Negotiate(accept string) (c Codec, ok bool) {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		switch strings.ToLower(strings.TrimSpace(mediaType)) {
		case MIMEJSON:
			return jsonCodec, true
		case MIMEProtobuf, "application/protobuf":
			return protobufCodec, true
		case MIMEMsgPack, "application/x-msgpack":
			return msgpackCodec, true
		}
	}
	return nil, false
}

// JSONCodec implements JSON encoding/decoding
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Name() string {
	return "json"
}

func (c *JSONCodec) ContentType() string {
	return MIMEJSON
}
