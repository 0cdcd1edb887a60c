package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"notebrief/internal/backend"
	"notebrief/internal/backend/provider"
	"notebrief/internal/config"
	"notebrief/internal/ingest"
	"notebrief/internal/logging"
	"notebrief/internal/mirror"
	"notebrief/internal/notifications"
	"notebrief/internal/query"
	"notebrief/internal/queue"
	"notebrief/internal/report"
	"notebrief/internal/scraper"
	"notebrief/internal/session"
	"notebrief/internal/staging"
	"notebrief/internal/workflow"
)

type (
	backendFactory func(*config.Config, *slog.Logger) (backend.Backend, error)
	scraperFactory func(config.Scraper, *slog.Logger) (scraper.Scraper, error)
	sleeper        func(context.Context, time.Duration) error
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	newBackend backendFactory
	newScraper scraperFactory
	// sleep replaces readiness and pacing waits when set.
	sleep sleeper
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		newBackend:   provider.New,
		newScraper: func(cfg config.Scraper, logger *slog.Logger) (scraper.Scraper, error) {
			return scraper.New(cfg, logger)
		},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		if c.logger != nil {
			return
		}
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// app is the wired pipeline shared by the analysis and server commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  backend.Backend
	stager   *staging.Stager
	budgets  ingest.Budgets
	reports  *report.Writer
	pipeline *workflow.Pipeline
	ledger   *queue.Store
	notifier notifications.Service
}

type appOptions struct {
	ledger bool
}

func (c *commandContext) buildApp(opts appOptions) (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	b, err := c.newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	reportOpts := []report.Option{
		report.WithEncoding(cfg.Report.Encoding),
		report.WithDigestName(cfg.Batch.DigestReport),
	}
	if cfg.Mirror.Enabled {
		store, err := mirror.New(cfg.Mirror, logger)
		if err != nil {
			return nil, err
		}
		reportOpts = append(reportOpts, report.WithMirror(store))
	}

	var ingestOpts []ingest.Option
	if c.sleep != nil {
		ingestOpts = append(ingestOpts, ingest.WithSleeper(c.sleep))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		backend:  b,
		stager:   staging.New(cfg.Paths.StagingDir, nil, logger),
		budgets:  ingest.NewBudgets(cfg.ReadinessBudgets()),
		reports:  report.NewWriter(cfg.Paths.OutputDir, logger, reportOpts...),
		notifier: notifications.NewService(cfg),
	}
	a.pipeline = workflow.NewPipeline(
		session.NewManager(b, logger),
		ingest.New(b, a.stager, logger, ingestOpts...),
		query.NewRunner(b, logger),
		a.reports,
		logger,
	)

	if opts.ledger {
		store, err := queue.Open(cfg.LedgerPath())
		if err != nil {
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
		a.ledger = store
	}
	return a, nil
}

func (a *app) Close() {
	if a == nil || a.ledger == nil {
		return
	}
	if err := a.ledger.Close(); err != nil {
		a.logger.Warn("failed to close run ledger", logging.Error(err))
	}
}

// ledgerWarning logs a history write failure without failing the command.
func (a *app) ledgerWarning(err error) {
	logging.WarnWithContext(a.logger, "run ledger update failed", "ledger_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "history for this run is incomplete"),
		logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
	)
}

// notify publishes event and logs delivery failures. Commands never fail on
// a notification error.
func (a *app) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if a == nil || a.notifier == nil {
		return
	}
	if err := a.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(a.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run completed but no notification was delivered"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// notifyFailure publishes an error event for a failed run. Interrupted runs
// stay quiet.
func (a *app) notifyFailure(ctx context.Context, label string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	a.notify(ctx, notifications.EventError, notifications.Payload{"context": label, "error": err.Error()})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
