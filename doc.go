/*
Package minihttp is a small HTTP/1.1 server built directly on TCP, together
with an in-memory message board served on top of it.

Requests are parsed and responses serialized by hand; no net/http types are
involved. Each connection carries exactly one request: a dispatcher goroutine
accepts connections and queues them on a fixed-size worker pool, a worker reads
the request, routes it, runs the handler, writes the response and closes the
connection.

Quick Start

	package main

	import (
	    "context"
	    "log"

	    "github.com/searchktools/minihttp/app"
	    "github.com/searchktools/minihttp/config"
	    "github.com/searchktools/minihttp/core/http"
	)

	func main() {
	    cfg, err := config.New()
	    if err != nil {
	        log.Fatal(err)
	    }
	    application, err := app.New(cfg)
	    if err != nil {
	        log.Fatal(err)
	    }

	    application.Engine().GET("/hello", func(*http.Request) *http.Response {
	        return http.Text(200, "Hello, World!")
	    })

	    log.Fatal(application.Run(context.Background()))
	}

Endpoints

	POST   /login       set the username cookie
	GET    /msg         list messages (text, JSON, protobuf or msgpack by Accept)
	GET    /msg/:id     one message; GET /msg?id=N is equivalent
	POST   /msg         create a message owned by the username cookie
	PATCH  /msg/:id     update an existing message
	PUT    /msg/:id     update, or create under a fresh id
	DELETE /msg/:id     delete a message
	GET    /stats       engine, pool and per-route metrics

Modules

  - app: wiring and graceful shutdown
  - config: cleanenv + flag configuration
  - core: listener, dispatcher and connection handling
  - core/http: request parser and response serializer
  - core/router: exact and :name segment routing
  - core/pools: worker pool, connection queues and serialization buffers
  - core/store: concurrent message store
  - core/codec: JSON, protobuf and msgpack payload codecs
  - core/middleware: handler middleware chain
  - core/observability: per-route request metrics
  - core/logging: zap logger construction
  - handlers: the message board endpoints
*/
package minihttp
