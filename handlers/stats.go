package handlers

import (
	"github.com/searchktools/minihttp/core/codec"
	"github.com/searchktools/minihttp/core/http"
)

// StatsFunc returns a JSON-encodable snapshot of server statistics
type StatsFunc func() any

// Stats serves the snapshot returned by source. JSON is the default; other
// encodings follow the Accept header.
func Stats(source StatsFunc) http.Handler {
	return http.HandlerFunc(func(req *http.Request) *http.Response {
		c, ok := codec.Negotiate(req.Header(http.HeaderAccept))
		if !ok {
			c, _ = codec.ByName("json")
		}
		return encode(c, 200, source())
	})
}
