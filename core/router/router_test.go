package router

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/minihttp/core/http"
)

func named(name string) http.Handler {
	return http.HandlerFunc(func(req *http.Request) *http.Response {
		return http.NewResponse(200, name)
	})
}

func serve(t *testing.T, h http.Handler) string {
	t.Helper()
	require.NotNil(t, h)
	return h.Serve(&http.Request{}).BodyString()
}

// TestRouterStatic tests exact matching
func TestRouterStatic(t *testing.T) {
	r := New()
	r.Add("GET", "/", named("root"))
	r.Add("GET", "/msg", named("list"))
	r.Add("POST", "/msg", named("create"))

	tests := []struct {
		method, path string
		want         string
		ok           bool
	}{
		{"GET", "/", "root", true},
		{"GET", "/msg", "list", true},
		{"POST", "/msg", "create", true},
		{"GET", "/msg/", "", false},
		{"GET", "/MSG", "", false},
		{"get", "/msg", "", false},
		{"DELETE", "/msg", "", false},
	}

	for _, tt := range tests {
		h, params, ok := r.Find(tt.method, tt.path)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.method, tt.path)
		assert.Nil(t, params)
		if tt.ok {
			assert.Equal(t, tt.want, serve(t, h))
		}
	}
}

func TestRouterMethodMismatchIsMiss(t *testing.T) {
	r := New()
	called := false
	r.Add("POST", "/msg", http.HandlerFunc(func(*http.Request) *http.Response {
		called = true
		return http.Empty(201)
	}))

	h, _, ok := r.Find("GET", "/msg")
	assert.False(t, ok)
	assert.Nil(t, h)
	assert.False(t, called)
}

func TestRouterParams(t *testing.T) {
	r := New()
	r.Add("GET", "/msg/:id", named("get"))
	r.Add("DELETE", "/msg/:id", named("delete"))
	r.Add("GET", "/users/:user/msg/:id", named("nested"))

	h, params, ok := r.Find("GET", "/msg/42")
	require.True(t, ok)
	assert.Equal(t, "get", serve(t, h))
	assert.Equal(t, Params{"id": "42"}, params)

	h, params, ok = r.Find("GET", "/users/bob/msg/7")
	require.True(t, ok)
	assert.Equal(t, "nested", serve(t, h))
	assert.Equal(t, Params{"user": "bob", "id": "7"}, params)

	for _, path := range []string{"/msg", "/msg/", "/msg/1/2", "/users/bob/msg"} {
		_, _, ok := r.Find("GET", path)
		assert.False(t, ok, path)
	}

	_, _, ok = r.Find("PUT", "/msg/1")
	assert.False(t, ok)
}

// TestRouterPriority tests that static routes win over parameter routes
func TestRouterPriority(t *testing.T) {
	r := New()
	r.Add("GET", "/msg/:id", named("param"))
	r.Add("GET", "/msg/latest", named("static"))

	h, params, ok := r.Find("GET", "/msg/latest")
	require.True(t, ok)
	assert.Equal(t, "static", serve(t, h))
	assert.Nil(t, params)

	h, params, ok = r.Find("GET", "/msg/9")
	require.True(t, ok)
	assert.Equal(t, "param", serve(t, h))
	assert.Equal(t, "9", params["id"])
}

func TestRouterReplace(t *testing.T) {
	r := New()
	r.Add("GET", "/a", named("first"))
	r.Add("GET", "/a", named("second"))
	r.Add("GET", "/b/:id", named("first"))
	r.Add("GET", "/b/:id", named("second"))

	h, _, _ := r.Find("GET", "/a")
	assert.Equal(t, "second", serve(t, h))
	h, _, _ = r.Find("GET", "/b/1")
	assert.Equal(t, "second", serve(t, h))
	assert.Len(t, r.Routes(), 2)
}

func TestRouterFreeze(t *testing.T) {
	r := New()
	r.Add("GET", "/a", named("a"))
	assert.False(t, r.Frozen())
	assert.Same(t, r, r.Freeze())
	assert.True(t, r.Frozen())

	assert.PanicsWithValue(t, ErrRouterFrozen, func() {
		r.Add("GET", "/b", named("b"))
	})
}

func TestRouterInvalidPath(t *testing.T) {
	r := New()
	assert.PanicsWithValue(t, ErrInvalidPath, func() { r.Add("GET", "msg", named("x")) })
	assert.PanicsWithValue(t, ErrInvalidPath, func() { r.Add("GET", "", named("x")) })
}

func TestRouterRoutesSorted(t *testing.T) {
	r := New()
	r.Add("POST", "/msg", named("x"))
	r.Add("GET", "/msg/:id", named("x"))
	r.Add("GET", "/msg", named("x"))
	r.Add("POST", "/login", named("x"))

	assert.Equal(t, []Key{
		{Path: "/login", Method: "POST"},
		{Path: "/msg", Method: "GET"},
		{Path: "/msg", Method: "POST"},
		{Path: "/msg/:id", Method: "GET"},
	}, r.Routes())
	assert.Equal(t, "GET /msg/:id", r.Routes()[3].String())
}

func TestRouterConcurrentFind(t *testing.T) {
	r := New()
	r.Add("GET", "/msg", named("list"))
	r.Add("GET", "/msg/:id", named("get"))
	r.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if _, _, ok := r.Find("GET", "/msg/1"); !ok {
					t.Error("expected match")
					return
				}
				if _, _, ok := r.Find("GET", "/msg"); !ok {
					t.Error("expected match")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkRouterStatic(b *testing.B) {
	r := New()
	r.Add("GET", "/hello/world", named("x"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/hello/world")
	}
}

func BenchmarkRouterParam(b *testing.B) {
	r := New()
	r.Add("GET", "/user/:id", named("x"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/user/123")
	}
}
