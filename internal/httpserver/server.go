package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"food-dispatch/internal/mylogger"
)

const WaitTime = 10 * time.Second

type Server struct {
	srv   *http.Server
	mylog mylogger.Logger
}

func NewServer(port string, handler http.Handler, mylog mylogger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		mylog: mylog,
	}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run listens until ctx is done or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	log := s.mylog.Action("server_started").With("addr", s.srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	log.Info("server is running")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime)
	defer cancel()

	s.mylog.Info("shutting down HTTP server")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.mylog.Error("failed to shut down HTTP server gracefully", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
