package router

import (
	"errors"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/searchktools/minihttp/core/http"
)

var (
	ErrRouterFrozen = errors.New("router: routes cannot be added after Freeze")
	ErrInvalidPath  = errors.New("router: path must begin with '/'")
)

// Key identifies a route. Both fields must match verbatim: no case folding and
// no trailing slash normalization.
type Key struct {
	Path   string
	Method string
}

func (k Key) String() string {
	return k.Method + " " + k.Path
}

// Params holds values captured by :name segments
type Params map[string]string

// Router maps (method, path) to handlers.
//
// Static paths are resolved with a single map lookup. Paths with :name
// segments are kept in registration order and matched segment by segment,
// only after the static lookup misses. A Router is built once and frozen
// before serving; a frozen Router is safe for concurrent Find calls.
type Router struct {
	static      map[Key]http.Handler
	paramRoutes []paramRoute
	frozen      atomic.Bool
}

type paramRoute struct {
	key      Key
	segments []segment
	handler  http.Handler
}

type segment struct {
	literal string
	param   string // set for :name segments
}

// New creates an empty router
func New() *Router {
	return &Router{
		static:      make(map[Key]http.Handler, 16),
		paramRoutes: make([]paramRoute, 0, 8),
	}
}

// Add registers a handler. Registering the same method and path twice
// replaces the earlier handler.
func (r *Router) Add(method, path string, handler http.Handler) {
	if r.frozen.Load() {
		panic(ErrRouterFrozen)
	}
	if path == "" || path[0] != '/' {
		panic(ErrInvalidPath)
	}

	key := Key{Path: path, Method: method}
	if !strings.Contains(path, "/:") {
		r.static[key] = handler
		return
	}

	route := paramRoute{key: key, segments: compile(path), handler: handler}
	for i := range r.paramRoutes {
		if r.paramRoutes[i].key == key {
			r.paramRoutes[i] = route
			return
		}
	}
	r.paramRoutes = append(r.paramRoutes, route)
}

// Freeze makes the router read-only and returns it
func (r *Router) Freeze() *Router {
	r.frozen.Store(true)
	return r
}

// Frozen reports whether Freeze was called
func (r *Router) Frozen() bool {
	return r.frozen.Load()
}

// Find looks up the handler for method and path.
// ok is false when nothing matches; callers decide how to answer.
func (r *Router) Find(method, path string) (h http.Handler, params Params, ok bool) {
	if h, ok := r.static[Key{Path: path, Method: method}]; ok {
		return h, nil, true
	}

	var parts []string
	for i := range r.paramRoutes {
		route := &r.paramRoutes[i]
		if route.key.Method != method {
			continue
		}
		if parts == nil {
			parts = strings.Split(path, "/")
		}
		if params, ok := route.match(parts); ok {
			return route.handler, params, true
		}
	}

	return nil, nil, false
}

// Routes returns every registered key sorted by path, then method
func (r *Router) Routes() []Key {
	keys := make([]Key, 0, len(r.static)+len(r.paramRoutes))
	for k := range r.static {
		keys = append(keys, k)
	}
	for _, route := range r.paramRoutes {
		keys = append(keys, route.key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Path != keys[j].Path {
			return keys[i].Path < keys[j].Path
		}
		return keys[i].Method < keys[j].Method
	})
	return keys
}

func (p *paramRoute) match(parts []string) (Params, bool) {
	if len(parts) != len(p.segments) {
		return nil, false
	}
	var params Params
	for i, seg := range p.segments {
		if seg.param == "" {
			if parts[i] != seg.literal {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(Params, 2)
		}
		params[seg.param] = parts[i]
	}
	return params, true
}

func compile(path string) []segment {
	parts := strings.Split(path, "/")
	segments := make([]segment, len(parts))
	for i, part := range parts {
		if len(part) > 1 && part[0] == ':' {
			segments[i] = segment{param: part[1:]}
		} else {
			segments[i] = segment{literal: part}
		}
	}
	return segments
}
