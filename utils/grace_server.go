package utils

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	DEFAULT_READ_TIMEOUT     = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT    = DEFAULT_READ_TIMEOUT
	DEFAULT_SHUTDOWN_TIMEOUT = 30 * time.Second
)

// Server wraps http.Server and shuts it down gracefully on SIGTERM or SIGINT.
type Server struct {
	*http.Server

	signalChan chan os.Signal
	done       chan struct{}
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		signalChan: make(chan os.Signal, 1),
		done:       make(chan struct{}),
	}
}

// ListenAndServe serves until a shutdown signal arrives and in-flight requests finish.
func (srv *Server) ListenAndServe() error {
	signal.Notify(srv.signalChan, syscall.SIGTERM, syscall.SIGINT)
	go srv.handleSignals()

	err := srv.Server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-srv.done
		return nil
	}
	signal.Stop(srv.signalChan)
	return err
}

func (srv *Server) handleSignals() {
	sig, ok := <-srv.signalChan
	if !ok {
		return
	}
	Sugar.Infof("received %s, graceful shutting down HTTP server", sig)
	ctx, cancel := context.WithTimeout(context.Background(), DEFAULT_SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown success")
	}
	close(srv.done)
}

// GraceServer starts an HTTP server with graceful shutdown.
func GraceServer(addr string, handler http.Handler) error {
	return NewServer(addr, handler, DEFAULT_READ_TIMEOUT, DEFAULT_WRITE_TIMEOUT).ListenAndServe()
}
