package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"notebrief/internal/logging"
)

// listener owns one HTTP server bound to a single address.
type listener struct {
	name     string
	bind     string
	handler  http.Handler
	logger   *slog.Logger
	listener net.Listener
	server   *http.Server
}

func newListener(name, bind string, handler http.Handler, logger *slog.Logger) *listener {
	bind = strings.TrimSpace(bind)
	if bind == "" || handler == nil {
		return nil
	}
	return &listener{
		name:    name,
		bind:    bind,
		handler: handler,
		logger:  logger,
		// Analysis requests run for minutes, so only header reads are bounded.
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func (l *listener) listen() error {
	ln, err := net.Listen("tcp", l.bind)
	if err != nil {
		return fmt.Errorf("%s listen %s: %w", l.name, l.bind, err)
	}
	l.listener = ln
	l.logger.Info(l.name+" listening",
		logging.String("address", ln.Addr().String()),
		logging.String(logging.FieldEventType, "listener_start"),
	)
	return nil
}

func (l *listener) addr() string {
	if l == nil || l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

func (l *listener) serve() error {
	if err := l.server.Serve(l.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s serve: %w", l.name, err)
	}
	return nil
}

func (l *listener) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		logging.WarnWithContext(l.logger, l.name+" shutdown incomplete", "listener_shutdown",
			logging.Error(err),
			logging.String(logging.FieldImpact, "in-flight requests were cut off"),
			logging.String(logging.FieldErrorHint, "raise server.shutdown_timeout_seconds"),
		)
		_ = l.server.Close()
	}
}
