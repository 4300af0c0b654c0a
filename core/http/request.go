package http

// BodyKind tags the decoded form of a request body
type BodyKind uint8

const (
	// BodyText is an opaque text payload
	BodyText BodyKind = iota
	// BodyJSON is a payload decoded from application/json
	BodyJSON
)

// Body is the typed request payload. Exactly one of Text or JSON is meaningful,
// selected by Kind.
type Body struct {
	Kind BodyKind
	Text string
	JSON any
}

// String returns the text payload, or an empty string for JSON bodies
func (b *Body) String() string {
	if b == nil || b.Kind != BodyText {
		return ""
	}
	return b.Text
}

// Field returns a string member of a JSON object body.
// The second result reports whether the member exists; a member that is not a
// string yields "".
func (b *Body) Field(name string) (string, bool) {
	if b == nil || b.Kind != BodyJSON {
		return "", false
	}
	obj, ok := b.JSON.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := obj[name]
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, true
}

// Request is a parsed HTTP request. It is owned by the connection that read it
// and must not be modified once handed to a handler.
type Request struct {
	Method string
	Path   string
	Proto  string

	// Headers as received, names are case-sensitive
	Headers map[string]string

	// Body is nil when the payload is absent or blank
	Body *Body

	Query   map[string]string
	Cookies map[string]string

	// Params holds named path segments captured by the router
	Params map[string]string
}

// Header returns a request header by its exact name
func (r *Request) Header(key string) string {
	return r.Headers[key]
}

// QueryValue returns a query parameter
func (r *Request) QueryValue(key string) string {
	return r.Query[key]
}

// Cookie returns a cookie value and whether it was sent
func (r *Request) Cookie(key string) (string, bool) {
	v, ok := r.Cookies[key]
	return v, ok
}

// Param returns a named path segment
func (r *Request) Param(key string) string {
	return r.Params[key]
}
