package core

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/searchktools/minihttp/core/http"
	"github.com/searchktools/minihttp/core/middleware"
	"github.com/searchktools/minihttp/core/observability"
	"github.com/searchktools/minihttp/core/pools"
	"github.com/searchktools/minihttp/core/router"
)

// Engine accepts TCP connections and serves one request per connection.
//
// A single dispatcher goroutine accepts connections and hands each one to the
// worker pool. A worker reads the request, routes it, runs the handler,
// writes the response and closes the connection. Routes must be registered
// before Serve; the router is frozen when serving starts.
type Engine struct {
	router   *router.Router
	pipeline *middleware.Pipeline
	pool     *pools.WorkerPool
	buffers  *pools.BufferPool
	monitor  *observability.Monitor
	logger   *zap.Logger

	workers      int
	queue        pools.Queue
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxBodyBytes int
	reusePort    bool

	mu     sync.Mutex
	ln     net.Listener
	closed atomic.Bool

	stats struct {
		accepted    atomic.Uint64
		rejected    atomic.Uint64
		served      atomic.Uint64
		parseErrors atomic.Uint64
		notFound    atomic.Uint64
		panics      atomic.Uint64
		active      atomic.Int64
	}
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithWorkers sets the worker count; n <= 0 means one per CPU
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithQueue replaces the default unbounded connection queue
func WithQueue(q pools.Queue) Option {
	return func(e *Engine) {
		e.queue = q
	}
}

// WithReadTimeout sets a per-connection read deadline; 0 disables it
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.readTimeout = d
	}
}

// WithWriteTimeout sets a per-connection write deadline; 0 disables it
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.writeTimeout = d
	}
}

// WithMaxBodyBytes caps the declared Content-Length; 0 means no cap
func WithMaxBodyBytes(n int) Option {
	return func(e *Engine) {
		e.maxBodyBytes = n
	}
}

// WithReusePort sets SO_REUSEPORT on listeners opened by Listen
func WithReusePort(on bool) Option {
	return func(e *Engine) {
		e.reusePort = on
	}
}

// WithMonitor replaces the engine's request monitor
func WithMonitor(m *observability.Monitor) Option {
	return func(e *Engine) {
		e.monitor = m
	}
}

// NewEngine creates an engine and starts its worker pool
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		router:   router.New(),
		pipeline: middleware.NewPipeline(),
		buffers:  pools.NewBufferPool(),
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.monitor == nil {
		e.monitor = observability.NewMonitor()
	}

	poolOpts := []pools.PoolOption{pools.WithLogger(e.logger.Named("pool"))}
	if e.queue != nil {
		poolOpts = append(poolOpts, pools.WithQueue(e.queue))
	}
	e.pool = pools.NewWorkerPool(e.workers, poolOpts...)

	return e
}

// Use appends middleware. It applies to routes registered after the call.
func (e *Engine) Use(m ...middleware.Middleware) {
	e.pipeline.Use(m...)
}

// Handle registers h for method and path
func (e *Engine) Handle(method, path string, h http.Handler) {
	route := router.Key{Path: path, Method: method}.String()
	e.router.Add(method, path, e.pipeline.Wrap(route, h))
}

// GET registers a GET route
func (e *Engine) GET(path string, h http.HandlerFunc) {
	e.Handle("GET", path, h)
}

// POST registers a POST route
func (e *Engine) POST(path string, h http.HandlerFunc) {
	e.Handle("POST", path, h)
}

// PUT registers a PUT route
func (e *Engine) PUT(path string, h http.HandlerFunc) {
	e.Handle("PUT", path, h)
}

// PATCH registers a PATCH route
func (e *Engine) PATCH(path string, h http.HandlerFunc) {
	e.Handle("PATCH", path, h)
}

// DELETE registers a DELETE route
func (e *Engine) DELETE(path string, h http.HandlerFunc) {
	e.Handle("DELETE", path, h)
}

// Router returns the route table
func (e *Engine) Router() *router.Router {
	return e.router
}

// Monitor returns the request monitor
func (e *Engine) Monitor() *observability.Monitor {
	return e.monitor
}

// Addr returns the listener address, or nil before serving
func (e *Engine) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ln == nil {
		return nil
	}
	return e.ln.Addr()
}

// Listen binds 0.0.0.0:port, calls onReady once the socket is bound and then
// serves until Shutdown.
func (e *Engine) Listen(port int, onReady func()) error {
	lc := net.ListenConfig{Control: listenControl(e.reusePort)}
	ln, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort("0.0.0.0", strconv.Itoa(port)))
	if err != nil {
		return errors.Wrapf(err, "listen on port %d", port)
	}
	if !e.setListener(ln) {
		ln.Close()
		return ErrServerClosed
	}

	e.logger.Info("server listening", zap.Stringer("addr", ln.Addr()), zap.Int("workers", e.pool.Workers()))
	if onReady != nil {
		onReady()
	}
	return e.Serve(ln)
}

func (e *Engine) setListener(ln net.Listener) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return false
	}
	e.ln = ln
	return true
}

// Serve freezes the router and accepts connections on ln until it is closed.
// Accept errors other than a closed listener are retried with backoff.
func (e *Engine) Serve(ln net.Listener) error {
	if !e.setListener(ln) {
		ln.Close()
		return ErrServerClosed
	}
	e.router.Freeze()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if e.closed.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return errors.Wrap(err, "accept")
			}

			if delay == 0 {
				delay = acceptBackoffMin
			} else {
				delay *= 2
			}
			if delay > acceptBackoffMax {
				delay = acceptBackoffMax
			}
			e.logger.Warn("accept failed, retrying", zap.Error(err), zap.Duration("retry_in", delay))
			time.Sleep(delay)
			continue
		}
		delay = 0

		e.stats.accepted.Add(1)
		e.dispatch(conn)
	}
}

// dispatch queues conn on the pool; a refused connection gets a 503
func (e *Engine) dispatch(conn net.Conn) {
	err := e.pool.Submit(func() {
		e.handleConn(conn)
	})
	if err == nil {
		return
	}

	e.stats.rejected.Add(1)
	e.logger.Warn("connection rejected", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
	go func() {
		conn.SetWriteDeadline(time.Now().Add(rejectWriteTimeout))
		if _, err := http.Text(503, bodyServerBusy).WriteTo(conn); err != nil {
			conn.Close()
			return
		}
		lingerClose(conn)
	}()
}

// handleConn runs one connection's lifecycle on a worker
func (e *Engine) handleConn(conn net.Conn) {
	start := time.Now()
	e.stats.active.Add(1)
	defer e.stats.active.Add(-1)

	unread := false
	defer func() {
		if unread {
			lingerClose(conn)
			return
		}
		conn.Close()
	}()

	log := e.logger.With(
		zap.String("conn_id", uuid.NewString()),
		zap.Stringer("remote", conn.RemoteAddr()),
	)

	if e.readTimeout > 0 {
		conn.SetReadDeadline(start.Add(e.readTimeout))
	}

	raw, bodyLen, err := e.readRequest(bufio.NewReader(conn))
	if err != nil && !isParseError(err) {
		log.Warn("read request", zap.Error(err))
		return
	}
	unread = errors.Is(err, http.ErrBodyTooLarge)

	var req *http.Request
	if err == nil {
		req, err = http.ParseRequest(raw)
		if err == nil && bodyLen != http.ContentLength(req.Headers) {
			log.Debug("body ignored by parser",
				zap.Int("read", bodyLen),
				zap.Int("content_length", http.ContentLength(req.Headers)))
		}
	}
	resp := e.respond(req, err, log)

	if e.writeTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(e.writeTimeout))
	}

	buf := e.buffers.Get(len(resp.BodyString()) + 256)
	*buf = resp.AppendTo(*buf)
	_, werr := conn.Write(*buf)
	e.buffers.Put(buf)
	if werr != nil {
		log.Warn("write response", zap.Error(werr))
		return
	}

	e.stats.served.Add(1)
	fields := []zap.Field{
		zap.Int("status", resp.Status),
		zap.Duration("duration", time.Since(start)),
	}
	if req != nil {
		fields = append(fields, zap.String("method", req.Method), zap.String("path", req.Path))
	}
	log.Info("request", fields...)
}

// respond maps a parse outcome to a response
func (e *Engine) respond(req *http.Request, err error, log *zap.Logger) *http.Response {
	if err != nil {
		e.stats.parseErrors.Add(1)
		log.Debug("parse request", zap.Error(err))
		return http.Text(400, bodyParseError+err.Error())
	}

	h, params, ok := e.router.Find(req.Method, req.Path)
	if !ok {
		e.stats.notFound.Add(1)
		return http.Text(404, bodyRouteNotFound)
	}
	req.Params = params

	resp := e.serve(h, req, log)
	if resp == nil {
		log.Error("handler returned no response", zap.String("method", req.Method), zap.String("path", req.Path))
		return http.Text(500, bodyInternalError)
	}
	return resp
}

func (e *Engine) serve(h http.Handler, req *http.Request, log *zap.Logger) (resp *http.Response) {
	defer func() {
		if r := recover(); r != nil {
			e.stats.panics.Add(1)
			log.Error("handler panicked",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Any("panic", r),
				zap.Stack("stack"))
			resp = http.Text(500, bodyInternalError)
		}
	}()
	return h.Serve(req)
}

// readRequest reads header lines up to the blank line, then exactly
// Content-Length body bytes, and returns head and body joined for the parser
// along with the body length it read. The body buffer grows with the bytes
// received, never with the declared length.
func (e *Engine) readRequest(r *bufio.Reader) ([]byte, int, error) {
	var head bytes.Buffer
	contentLength := 0
	lines := 0

	for {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, 0, errors.Wrap(err, "read request head")
		}

		text := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(text) == "" {
			if lines == 0 {
				return nil, 0, &http.ParseError{Kind: http.ErrEmptyRequest}
			}
			break
		}

		lines++
		head.WriteString(text)
		head.WriteString("\r\n")

		if name, value, ok := strings.Cut(text, ":"); ok && strings.EqualFold(strings.TrimSpace(name), http.HeaderContentLength) {
			if n, perr := strconv.Atoi(strings.TrimSpace(value)); perr == nil && n > 0 {
				contentLength = n
			}
		}

		if err == io.EOF {
			break
		}
	}

	if e.maxBodyBytes > 0 && contentLength > e.maxBodyBytes {
		return nil, 0, &http.ParseError{
			Kind:  http.ErrBodyTooLarge,
			Cause: errors.Errorf("%d > %d bytes", contentLength, e.maxBodyBytes),
		}
	}

	head.WriteString("\r\n")
	headLen := head.Len()
	if _, err := io.CopyN(&head, r, int64(contentLength)); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, &http.ParseError{Kind: http.ErrShortBody, Cause: err}
		}
		return nil, 0, errors.Wrap(err, "read request body")
	}

	return head.Bytes(), head.Len() - headLen, nil
}

// lingerClose half-closes conn and discards what the client is still sending
// so the kernel does not reset the connection before the response is read.
func lingerClose(conn net.Conn) {
	defer conn.Close()
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if err := tc.CloseWrite(); err != nil {
		return
	}
	tc.SetReadDeadline(time.Now().Add(lingerTimeout))
	io.CopyN(io.Discard, tc, lingerMaxBytes)
}

func isParseError(err error) bool {
	var pe *http.ParseError
	return errors.As(err, &pe)
}

// Shutdown closes the listener, lets queued connections finish and waits
// for the workers or ctx, whichever comes first.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed.CompareAndSwap(false, true) {
		e.mu.Unlock()
		return nil
	}
	ln := e.ln
	e.mu.Unlock()

	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		e.pool.Close()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("server stopped", zap.Uint64("served", e.stats.served.Load()))
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "shutdown")
	}
}

// Stats returns engine, pool and buffer counters
func (e *Engine) Stats() Stats {
	return Stats{
		Accepted:    e.stats.accepted.Load(),
		Rejected:    e.stats.rejected.Load(),
		Served:      e.stats.served.Load(),
		ParseErrors: e.stats.parseErrors.Load(),
		NotFound:    e.stats.notFound.Load(),
		Panics:      e.stats.panics.Load(),
		Active:      e.stats.active.Load(),
		Pool:        e.pool.Stats(),
		Buffers:     e.buffers.Stats(),
	}
}

// Stats is a point-in-time copy of the engine counters
type Stats struct {
	Accepted    uint64                `json:"accepted"`
	Rejected    uint64                `json:"rejected"`
	Served      uint64                `json:"served"`
	ParseErrors uint64                `json:"parse_errors"`
	NotFound    uint64                `json:"not_found"`
	Panics      uint64                `json:"panics"`
	Active      int64                 `json:"active"`
	Pool        pools.WorkerPoolStats `json:"pool"`
	Buffers     pools.BufferStats     `json:"buffers"`
}
