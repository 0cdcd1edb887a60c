package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"notebrief/internal/config"
	"notebrief/internal/logging"
	"notebrief/internal/staging"
)

// ErrAlreadyRunning means another server instance holds the lock file.
var ErrAlreadyRunning = errors.New("another notebrief server instance is already running")

const defaultShutdownTimeout = 10 * time.Second

// Handlers are the HTTP handlers served by the daemon. A nil handler disables
// its listener.
type Handlers struct {
	API http.Handler
	MCP http.Handler
}

// Daemon runs the HTTP API and MCP listeners together and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock

	api *listener
	mcp *listener

	running atomic.Bool
	ready   chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	APIAddress   string
	MCPAddress   string
	LockFilePath string
}

// New constructs a daemon serving handlers on the configured bind addresses.
func New(cfg *config.Config, handlers Handlers, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		lockPath: cfg.ServerLockPath(),
		lock:     flock.New(cfg.ServerLockPath()),
		api:      newListener("http api", cfg.Server.APIBind, handlers.API, logger),
		mcp:      newListener("mcp server", cfg.Server.MCPBind, handlers.MCP, logger),
		ready:    make(chan struct{}),
	}
	if d.api == nil && d.mcp == nil {
		return nil, errors.New("daemon requires at least one listener")
	}
	return d, nil
}

// Ready is closed once every listener is bound.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Run acquires the instance lock, sweeps stale staged files and serves until
// ctx is cancelled or a listener fails. Cancellation is a clean shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, d.lockPath)
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	d.sweepStaging(ctx)

	listeners := d.listeners()
	for i, l := range listeners {
		if err := l.listen(); err != nil {
			for _, opened := range listeners[:i] {
				_ = opened.listener.Close()
			}
			return err
		}
	}
	close(d.ready)
	d.logger.Info("notebrief server started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_start"),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		group.Go(l.serve)
	}
	group.Go(func() error {
		<-groupCtx.Done()
		timeout := d.shutdownTimeout()
		for _, l := range listeners {
			l.shutdown(timeout)
		}
		return nil
	})

	err = group.Wait()
	d.logger.Info("notebrief server stopped", logging.String(logging.FieldEventType, "daemon_stop"))
	return err
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		APIAddress:   d.api.addr(),
		MCPAddress:   d.mcp.addr(),
		LockFilePath: d.lockPath,
	}
}

func (d *Daemon) listeners() []*listener {
	var out []*listener
	for _, l := range []*listener{d.api, d.mcp} {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

func (d *Daemon) shutdownTimeout() time.Duration {
	if d.cfg.Server.ShutdownTimeoutSeconds <= 0 {
		return defaultShutdownTimeout
	}
	return time.Duration(d.cfg.Server.ShutdownTimeoutSeconds) * time.Second
}

func (d *Daemon) sweepStaging(ctx context.Context) {
	if d.cfg.Server.StagingMaxAgeHours <= 0 {
		return
	}
	maxAge := time.Duration(d.cfg.Server.StagingMaxAgeHours) * time.Hour
	result := staging.CleanStale(ctx, d.cfg.Paths.StagingDir, maxAge, d.logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		d.logger.Info("staging sweep complete",
			logging.Int("removed", len(result.Removed)),
			logging.Int("errors", len(result.Errors)),
			logging.String(logging.FieldEventType, "staging_sweep"),
		)
	}
}
