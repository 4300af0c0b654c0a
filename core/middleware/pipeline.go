package middleware

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/searchktools/minihttp/core/http"
	"github.com/searchktools/minihttp/core/observability"
)

// HeaderRequestID carries the id assigned by RequestID
const HeaderRequestID = "X-Request-ID"

// Middleware wraps the handler registered for route
type Middleware func(route string, next http.Handler) http.Handler

// Pipeline is an ordered middleware chain applied at registration time
type Pipeline struct {
	handlers []Middleware
}

// NewPipeline creates a new middleware pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		handlers: make([]Middleware, 0, 8),
	}
}

// Use adds a middleware to the pipeline
func (p *Pipeline) Use(m ...Middleware) *Pipeline {
	p.handlers = append(p.handlers, m...)
	return p
}

// Len returns the number of middlewares
func (p *Pipeline) Len() int {
	return len(p.handlers)
}

// Wrap applies the chain to h. The first middleware added is the outermost.
func (p *Pipeline) Wrap(route string, h http.Handler) http.Handler {
	for i := len(p.handlers) - 1; i >= 0; i-- {
		h = p.handlers[i](route, h)
	}
	return h
}

// Recovery turns a handler panic into a 500 response
func Recovery(logger *zap.Logger) Middleware {
	return func(route string, next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) (resp *http.Response) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.String("route", route),
						zap.Any("panic", err),
						zap.Stack("stack"))
					resp = http.Text(500, "Internal Server Error")
				}
			}()
			return next.Serve(req)
		})
	}
}

// Metrics records latency and outcome of every request on monitor.
// Responses with status >= 500 count as errors.
func Metrics(monitor *observability.Monitor) Middleware {
	return func(route string, next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			start := time.Now()
			resp := next.Serve(req)
			monitor.RecordRequest(route, time.Since(start), resp == nil || resp.Status >= 500)
			return resp
		})
	}
}

// RequestID echoes the client's X-Request-ID or assigns a new one
func RequestID() Middleware {
	return func(_ string, next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			id := req.Header(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			resp := next.Serve(req)
			if resp != nil {
				resp.SetHeader(HeaderRequestID, id)
			}
			return resp
		})
	}
}

// CORS adds permissive CORS headers
func CORS() Middleware {
	return func(_ string, next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			resp := next.Serve(req)
			if resp != nil {
				resp.SetHeader("Access-Control-Allow-Origin", "*")
				resp.SetHeader("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")
				resp.SetHeader("Access-Control-Allow-Headers", "Content-Type, Cookie")
			}
			return resp
		})
	}
}
