package http

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Header names the parser interprets
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
	HeaderHost          = "Host"
	HeaderCookie        = "Cookie"
	HeaderSetCookie     = "Set-Cookie"
	HeaderAccept        = "Accept"

	MIMEApplicationJSON = "application/json"
)

// ParseRequest parses a complete request: the header block, a blank line and
// the body bytes. The body is cut to Content-Length; anything past it is
// ignored.
func ParseRequest(data []byte) (*Request, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, parseError(ErrEmptyRequest, nil)
	}

	line, rest := nextLine(data)
	fields := strings.Fields(string(line))
	if len(fields) < 3 {
		return nil, parseError(ErrMalformedStartLine, fmt.Errorf("%q", line))
	}

	req := &Request{
		Method:  fields[0],
		Path:    fields[1],
		Proto:   fields[2],
		Headers: make(map[string]string),
		Query:   make(map[string]string),
		Cookies: make(map[string]string),
	}

	for len(rest) > 0 {
		line, rest = nextLine(rest)
		if len(line) == 0 {
			break
		}
		// Lines without ": " are not headers
		if k, v, ok := strings.Cut(string(line), ": "); ok {
			req.Headers[k] = v
		}
	}

	body, err := parseBody(req.Headers, rest)
	if err != nil {
		return nil, err
	}
	req.Body = body

	req.Path = stripHost(req.Path, req.Headers[HeaderHost])
	req.Path = parseQuery(req, req.Path)
	if req.Path == "" {
		req.Path = "/"
	}
	parseCookies(req, req.Headers[HeaderCookie])

	return req, nil
}

// ContentLength reads the declared body length; absent or invalid means 0
func ContentLength(headers map[string]string) int {
	v, ok := headers[HeaderContentLength]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseBody(headers map[string]string, raw []byte) (*Body, error) {
	n := ContentLength(headers)
	if len(raw) < n {
		return nil, parseError(ErrShortBody, fmt.Errorf("declared %d, got %d", n, len(raw)))
	}
	raw = raw[:n]

	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	if strings.Contains(headers[HeaderContentType], MIMEApplicationJSON) {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, parseError(ErrInvalidJSONBody, err)
		}
		return &Body{Kind: BodyJSON, JSON: v}, nil
	}

	return &Body{Kind: BodyText, Text: string(raw)}, nil
}

// stripHost drops everything up to and including the Host value, which turns
// absolute-form targets (http://host:port/path) into origin-form paths.
func stripHost(path, host string) string {
	if host == "" {
		return path
	}
	if i := strings.Index(path, host); i >= 0 {
		return path[i+len(host):]
	}
	return path
}

// parseQuery fills req.Query and returns the path without the query string
func parseQuery(req *Request, path string) string {
	path, rawQuery, ok := strings.Cut(path, "?")
	if !ok || rawQuery == "" {
		return path
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			req.Query[k] = v
		}
	}
	return path
}

func parseCookies(req *Request, header string) {
	if header == "" {
		return
	}
	for _, c := range strings.Split(header, ";") {
		if k, v, ok := strings.Cut(strings.TrimSpace(c), "="); ok {
			req.Cookies[k] = v
		}
	}
}

// nextLine splits off one line, dropping the LF and an optional CR
func nextLine(data []byte) (line, rest []byte) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return bytes.TrimSuffix(data, []byte{'\r'}), nil
	}
	return bytes.TrimSuffix(data[:i], []byte{'\r'}), data[i+1:]
}
