package httpserver

import (
	"net/http"
	"time"
)

// Registration traffic comes from field devices on unreliable links: header
// and body reads get generous but bounded windows, and responses must flush
// well inside the 30s handler timeout so a stalled client cannot pin a
// connection.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds the API server with the project's connection timeouts applied.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
