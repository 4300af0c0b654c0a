package http

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Field is one ordered name/value pair
type Field struct {
	Name  string
	Value string
}

// Response is built by a handler and serialized exactly once.
// Headers and Cookies keep insertion order on the wire.
type Response struct {
	Status  int
	Headers []Field
	Body    *string
	Cookies []Field
}

// NewResponse creates a response with a body
func NewResponse(status int, body string) *Response {
	return &Response{Status: status, Body: &body}
}

// Empty creates a response without a body
func Empty(status int) *Response {
	return &Response{Status: status}
}

// Text creates a text/plain response
func Text(status int, body string) *Response {
	return NewResponse(status, body).SetHeader(HeaderContentType, "text/plain; charset=utf-8")
}

// Data creates a response with an explicit content type
func Data(status int, contentType string, data []byte) *Response {
	return NewResponse(status, string(data)).SetHeader(HeaderContentType, contentType)
}

// SetHeader sets a header, replacing an existing value in place
func (r *Response) SetHeader(name, value string) *Response {
	r.Headers = setField(r.Headers, name, value)
	return r
}

// Header returns a header value
func (r *Response) Header(name string) string {
	for _, f := range r.Headers {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// SetCookie adds a cookie emitted as a Set-Cookie line
func (r *Response) SetCookie(name, value string) *Response {
	r.Cookies = setField(r.Cookies, name, value)
	return r
}

// BodyString returns the body, or "" when absent
func (r *Response) BodyString() string {
	if r.Body == nil {
		return ""
	}
	return *r.Body
}

// AppendTo serializes the response onto b.
//
// Layout: status line, Content-Length, handler headers, Set-Cookie lines,
// blank line, body. Content-Length always reflects the body actually written.
func (r *Response) AppendTo(b []byte) []byte {
	body := r.BodyString()

	b = append(b, "HTTP/1.1 "...)
	b = strconv.AppendInt(b, int64(r.Status), 10)
	b = append(b, ' ')
	b = append(b, StatusText(r.Status)...)
	b = append(b, "\r\n"...)

	b = append(b, HeaderContentLength+": "...)
	b = strconv.AppendInt(b, int64(len(body)), 10)
	b = append(b, "\r\n"...)

	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, HeaderContentLength) {
			continue
		}
		if !httpguts.ValidHeaderFieldName(h.Name) || !httpguts.ValidHeaderFieldValue(h.Value) {
			continue
		}
		b = appendField(b, h.Name, h.Value)
	}

	for _, c := range r.Cookies {
		v := c.Name + "=" + c.Value
		if !httpguts.ValidHeaderFieldValue(v) {
			continue
		}
		b = appendField(b, HeaderSetCookie, v)
	}

	b = append(b, "\r\n"...)
	return append(b, body...)
}

// Serialize returns the wire form of the response
func (r *Response) Serialize() []byte {
	return r.AppendTo(make([]byte, 0, 128+len(r.BodyString())))
}

// WriteTo writes the wire form to w and flushes it when w is buffered
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Serialize())
	if err != nil {
		return int64(n), err
	}
	if bw, ok := w.(*bufio.Writer); ok {
		err = bw.Flush()
	}
	return int64(n), err
}

func appendField(b []byte, name, value string) []byte {
	b = append(b, name...)
	b = append(b, ": "...)
	b = append(b, value...)
	return append(b, "\r\n"...)
}

func setField(fields []Field, name, value string) []Field {
	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = value
			return fields
		}
	}
	return append(fields, Field{Name: name, Value: value})
}

// StatusText returns the reason phrase for code. Unknown codes get the
// generic server error phrase.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "Internal Server Error"
	}
}
