package server

import "time"

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// shutdownTimeout bounds the whole graceful shutdown, including the wait for
// an in-flight polling cycle. A var so tests can shorten it.
var shutdownTimeout = 30 * time.Second
