package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// listenLoopback binds an ephemeral IPv4 loopback port. Sandboxed CI often
// has no IPv6 loopback, which is what httptest picks first.
func listenLoopback() (net.Listener, error) {
	return net.Listen("tcp4", "127.0.0.1:0")
}

func serveOn(ln net.Listener, handler http.Handler) *httptest.Server {
	srv := &httptest.Server{
		Listener: ln,
		Config:   &http.Server{Handler: handler},
	}
	srv.Start()
	return srv
}

// NewHTTPServer serves handler on 127.0.0.1, falling back to the httptest
// default listener when IPv4 loopback is unavailable. Used by MockDaemon.
func NewHTTPServer(handler http.Handler) *httptest.Server {
	ln, err := listenLoopback()
	if err != nil {
		return httptest.NewServer(handler)
	}
	return serveOn(ln, handler)
}

// NewHTTPServerT is NewHTTPServer for tests: it skips t when no loopback
// port can be bound and closes the server when t finishes.
func NewHTTPServerT(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ln, err := listenLoopback()
	if err != nil {
		t.Skipf("tcp4 listener unavailable: %v", err)
		return nil
	}
	srv := serveOn(ln, handler)
	t.Cleanup(srv.Close)
	return srv
}
