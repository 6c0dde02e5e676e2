package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalHandler manages graceful shutdown of the HTTP server
type SignalHandler struct {
	server          *http.Server
	shutdownTimeout time.Duration
	cleanup         func()
}

// NewSignalHandler creates a new signal handler. cleanup, if non-nil, runs
// after the HTTP server has drained (closing the cache manager, database).
func NewSignalHandler(server *http.Server, shutdownTimeout time.Duration, cleanup func()) *SignalHandler {
	return &SignalHandler{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		cleanup:         cleanup,
	}
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then drains the server.
func (sh *SignalHandler) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("INFO: Received signal %v, initiating graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), sh.shutdownTimeout)
	defer cancel()

	if err := sh.server.Shutdown(ctx); err != nil {
		log.Printf("WARN: Server forced to shutdown: %v", err)
	} else {
		log.Printf("INFO: Server gracefully shut down")
	}

	if sh.cleanup != nil {
		sh.cleanup()
	}
}

// HandleSignals starts the server and blocks until it is shut down.
func HandleSignals(server *http.Server, shutdownTimeout time.Duration, cleanup func()) error {
	go func() {
		log.Printf("INFO: Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	handler := NewSignalHandler(server, shutdownTimeout, cleanup)
	handler.WaitForShutdown()

	return nil
}
