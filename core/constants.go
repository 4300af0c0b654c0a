package core

import (
	"errors"
	"time"
)

// Accept retry backoff bounds
const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

// Fixed response bodies written by the engine itself
const (
	bodyRouteNotFound = "Route not found"
	bodyParseError    = "Error parsing request: "
	bodyInternalError = "Internal Server Error"
	bodyServerBusy    = "Server busy"
)

// rejectWriteTimeout bounds the 503 written to a connection the pool refused
const rejectWriteTimeout = time.Second

// Limits for draining unread request bytes before close
const (
	lingerTimeout  = 500 * time.Millisecond
	lingerMaxBytes = 256 << 10
)

// ErrServerClosed is returned by Serve and Listen after Shutdown
var ErrServerClosed = errors.New("core: server closed")
