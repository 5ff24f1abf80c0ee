package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/cory-johannsen/azdice/internal/config"
)

// HTTPService serves a handler on a listener bound at construction time.
type HTTPService struct {
	srv *http.Server
	ln  net.Listener
}

// ListenHTTP binds cfg.Addr and returns a Service that serves h on it.
//
// Postcondition: on success Addr reports the bound address, including the
// port the kernel picked when cfg.Addr ends in ":0".
func ListenHTTP(cfg config.HTTPConfig, h http.Handler) (*HTTPService, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	return &HTTPService{
		srv: &http.Server{
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
		},
		ln: ln,
	}, nil
}

// Addr returns the listener's address.
func (s *HTTPService) Addr() net.Addr { return s.ln.Addr() }

// Start serves until Stop is called.
func (s *HTTPService) Start() error {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests until ctx is done.
func (s *HTTPService) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
