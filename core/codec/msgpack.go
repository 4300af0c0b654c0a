package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgPackCodec implements MessagePack encoding/decoding. Struct fields use
// their json tags so payloads match the JSON codec's field names.
type MsgPackCodec struct{}

func (c *MsgPackCodec) Encode(v any) ([]byte, error) {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)

	var buf sliceWriter
	enc.Reset(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *MsgPackCodec) Decode(data []byte, v any) error {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)

	dec.Reset(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (c *MsgPackCodec) Name() string {
	return "msgpack"
}

func (c *MsgPackCodec) ContentType() string {
	return MIMEMsgPack
}

type sliceWriter []byte

func (w *sliceWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
