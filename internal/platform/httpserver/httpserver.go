// Package httpserver builds the process's HTTP listener with conservative
// timeouts so slow clients cannot pin connections open.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the given address and handler. The caller owns the
// ListenAndServe / Shutdown lifecycle.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
