package http

import "errors"

// Parse failures, reported to clients as 400
var (
	ErrEmptyRequest       = errors.New("empty request")
	ErrMalformedStartLine = errors.New("malformed start line")
	ErrInvalidJSONBody    = errors.New("invalid JSON body")
	ErrShortBody          = errors.New("body shorter than Content-Length")
	ErrBodyTooLarge       = errors.New("body exceeds size limit")
)

// ParseError describes why a request could not be parsed.
// errors.Is matches both Kind and the underlying cause.
type ParseError struct {
	Kind  error
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func parseError(kind, cause error) error {
	return &ParseError{Kind: kind, Cause: cause}
}
