package http

// Handler turns a request into a response. Implementations may carry state;
// they are called concurrently from pool workers.
type Handler interface {
	Serve(req *Request) *Response
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(req *Request) *Response

// Serve calls f(req)
func (f HandlerFunc) Serve(req *Request) *Response {
	return f(req)
}
