// Package handlers implements the message board resource served by the
// engine: a cookie login and CRUD over the in-memory message store.
package handlers

import (
	"go.uber.org/zap"

	"github.com/searchktools/minihttp/core/http"
	"github.com/searchktools/minihttp/core/store"
)

// Router is the registration surface the handlers need
type Router interface {
	Handle(method, path string, h http.Handler)
}

// Register wires every endpoint onto r. stats may be nil, in which case
// GET /stats is not exposed.
func Register(r Router, s *store.Store, stats StatsFunc, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := NewMessages(s, logger)

	r.Handle("POST", "/login", Login(logger))

	r.Handle("GET", "/msg", http.HandlerFunc(m.List))
	r.Handle("POST", "/msg", http.HandlerFunc(m.Create))
	r.Handle("GET", "/msg/:id", http.HandlerFunc(m.Get))
	r.Handle("PATCH", "/msg/:id", http.HandlerFunc(m.Update))
	r.Handle("PUT", "/msg/:id", http.HandlerFunc(m.Upsert))
	r.Handle("DELETE", "/msg/:id", http.HandlerFunc(m.Delete))

	if stats != nil {
		r.Handle("GET", "/stats", Stats(stats))
	}
}
