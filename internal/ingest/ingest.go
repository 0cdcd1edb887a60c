package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notebrief/internal/backend"
	"notebrief/internal/logging"
	"notebrief/internal/services"
	"notebrief/internal/session"
	"notebrief/internal/staging"
)

// Prepared is an origin resolved to something attachable. Local files are
// checked and remote files downloaded before any workspace exists.
type Prepared struct {
	Origin Origin
	// Name is the display name: the file name for files, the URL for web pages.
	Name   string
	path   string
	staged *staging.File
}

// Path returns the local file to upload; empty for web URLs.
func (p *Prepared) Path() string { return p.path }

// Cleanup removes any staged download. Safe to call more than once.
func (p *Prepared) Cleanup() error {
	if p == nil || p.staged == nil {
		return nil
	}
	return p.staged.Remove()
}

// Attachment describes a source attached to a workspace.
type Attachment struct {
	Source backend.Source
	Ready  bool
}

// Ingestor attaches prepared origins to workspaces.
type Ingestor struct {
	backend backend.Backend
	stager  *staging.Stager
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option customizes the ingestor.
type Option func(*Ingestor)

// WithSleeper overrides how fixed readiness delays are waited out.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(i *Ingestor) {
		if sleep != nil {
			i.sleep = sleep
		}
	}
}

// New constructs an ingestor. stager may be nil when remote files are never used.
func New(b backend.Backend, stager *staging.Stager, logger *slog.Logger, opts ...Option) *Ingestor {
	ing := &Ingestor{
		backend: b,
		stager:  stager,
		logger:  logging.NewComponentLogger(logger, "ingest"),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Prepare resolves origin without touching the backend.
func (i *Ingestor) Prepare(ctx context.Context, origin Origin) (*Prepared, error) {
	switch origin.Kind {
	case KindLocalFile:
		info, err := os.Stat(origin.Location)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, services.Wrap(services.ErrSourceNotFound, "ingest", "prepare", origin.Location, nil)
			}
			return nil, services.Wrap(services.ErrSourceNotFound, "ingest", "prepare", origin.Location, err)
		}
		if !info.Mode().IsRegular() {
			return nil, services.Wrap(services.ErrSourceNotFound, "ingest", "prepare",
				fmt.Sprintf("%s is not a regular file", origin.Location), nil)
		}
		return &Prepared{Origin: origin, Name: filepath.Base(origin.Location), path: origin.Location}, nil
	case KindRemoteFile:
		if err := validateURL(origin.Location); err != nil {
			return nil, services.Wrap(services.ErrDownloadFailure, "ingest", "prepare", "invalid file url", err)
		}
		if i.stager == nil {
			return nil, services.Wrap(services.ErrConfiguration, "ingest", "prepare", "no staging directory configured", nil)
		}
		staged, err := i.stager.Fetch(ctx, origin.Location)
		if err != nil {
			return nil, err
		}
		return &Prepared{Origin: origin, Name: staged.Name, path: staged.Path, staged: staged}, nil
	case KindWebURL:
		if err := validateURL(origin.Location); err != nil {
			return nil, services.Wrap(services.ErrValidation, "ingest", "prepare", "invalid url", err)
		}
		return &Prepared{Origin: origin, Name: origin.Location}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "ingest", "prepare", fmt.Sprintf("unknown origin kind %q", origin.Kind), nil)
	}
}

// Attach adds prepared content to ws and applies the readiness policy. An
// ingestion timeout is logged and reported through Attachment.Ready; it is
// not an error.
func (i *Ingestor) Attach(ctx context.Context, ws *session.Workspace, p *Prepared, policy Policy) (Attachment, error) {
	logger := logging.WithContext(ctx, i.logger).With(logging.String(logging.FieldWorkspaceID, string(ws.ID)))

	var (
		source backend.Source
		err    error
	)
	if p.Origin.Kind == KindWebURL {
		source, err = i.backend.AttachURL(ctx, ws.ID, p.Origin.Location)
	} else {
		source, err = i.backend.AttachFile(ctx, ws.ID, p.path, backend.FileOptions{
			WaitForReady: policy.Polling(),
			ReadyTimeout: policy.Wait(),
		})
	}
	if err != nil {
		if services.Classified(err) {
			return Attachment{}, err
		}
		return Attachment{}, services.Wrap(services.ErrBackendUnavailable, "ingest", "attach", p.Name, err)
	}
	logger.Info("source attached",
		logging.String(logging.FieldEventType, "source_attached"),
		logging.String("source", p.Name),
		logging.String("source_id", source.ID),
		logging.String("readiness", source.Readiness.String()),
	)

	switch source.Readiness {
	case backend.ReadinessReady:
		return Attachment{Source: source, Ready: true}, nil
	case backend.ReadinessFailed:
		return Attachment{Source: source}, services.Wrap(services.ErrValidation, "ingest", "attach",
			fmt.Sprintf("backend could not process %s", p.Name), nil)
	case backend.ReadinessTimedOut:
		timeoutErr := services.Wrap(services.ErrIngestionTimeout, "ingest", "await readiness", p.Name, nil)
		logging.WarnWithContext(logger, "source not ready before timeout", "ingestion_timeout",
			logging.String("source", p.Name),
			logging.Duration("budget", policy.Wait()),
			logging.Error(timeoutErr),
			logging.String(logging.FieldErrorHint, "raise readiness.upload_timeout_seconds for large files"),
			logging.String(logging.FieldImpact, "querying a source that may still be processing"),
		)
		return Attachment{Source: source, Ready: false}, nil
	}

	// Pending: the backend never confirmed readiness, so the attachment stays
	// not ready even after a fixed wait.
	if !policy.Polling() && policy.Wait() > 0 {
		if err := i.sleep(ctx, policy.Wait()); err != nil {
			return Attachment{Source: source}, err
		}
		logger.Debug("fixed readiness wait elapsed",
			logging.String("source", p.Name),
			logging.Duration("wait", policy.Wait()),
		)
	}
	return Attachment{Source: source, Ready: false}, nil
}

// AttachAll attaches every prepared source, logging and skipping the ones that
// fail, then applies policy once. It returns the attachments that succeeded.
func (i *Ingestor) AttachAll(ctx context.Context, ws *session.Workspace, items []*Prepared, policy Policy) ([]Attachment, error) {
	logger := logging.WithContext(ctx, i.logger)
	attached := make([]Attachment, 0, len(items))
	for _, p := range items {
		if err := ctx.Err(); err != nil {
			return attached, err
		}
		att, err := i.Attach(ctx, ws, p, Fixed(0))
		if err != nil {
			logging.WarnWithContext(logger, "skipping source that failed to attach", "source_attach_skipped",
				logging.String("source", p.Name),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "source missing from the combined analysis"),
			)
			continue
		}
		attached = append(attached, att)
	}
	if len(attached) > 0 && policy.Wait() > 0 {
		if err := i.sleep(ctx, policy.Wait()); err != nil {
			return attached, err
		}
	}
	return attached, nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
