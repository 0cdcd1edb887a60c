package session

import (
	"context"
	"log/slog"
	"time"

	"notebrief/internal/backend"
	"notebrief/internal/logging"
	"notebrief/internal/services"
)

const defaultReleaseTimeout = 30 * time.Second

// Workspace is one backend container owned by a single pipeline run.
type Workspace struct {
	ID    backend.WorkspaceID
	Title string
}

// Manager acquires and releases workspaces on a backend.
type Manager struct {
	backend        backend.Backend
	logger         *slog.Logger
	releaseTimeout time.Duration
}

// NewManager constructs a session manager.
func NewManager(b backend.Backend, logger *slog.Logger) *Manager {
	return &Manager{
		backend:        b,
		logger:         logging.NewComponentLogger(logger, "session"),
		releaseTimeout: defaultReleaseTimeout,
	}
}

// Acquire creates a fresh workspace titled title.
func (m *Manager) Acquire(ctx context.Context, title string) (*Workspace, error) {
	id, err := m.backend.CreateWorkspace(ctx, title)
	if err != nil {
		return nil, services.Wrap(services.ErrBackendUnavailable, "session", "acquire", "create workspace", err)
	}
	logging.WithContext(ctx, m.logger).Info("workspace acquired",
		logging.String(logging.FieldEventType, "workspace_acquired"),
		logging.String(logging.FieldWorkspaceID, string(id)),
		logging.String("title", title),
	)
	return &Workspace{ID: id, Title: title}, nil
}

// Release deletes the workspace. Failures are logged as warnings and returned
// for diagnostics only; callers never let them replace a primary result.
func (m *Manager) Release(ctx context.Context, ws *Workspace) error {
	if ws == nil {
		return nil
	}
	if err := m.backend.DeleteWorkspace(ctx, ws.ID); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "workspace release failed", "workspace_release_failed",
			logging.String(logging.FieldWorkspaceID, string(ws.ID)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the workspace manually on the backend"),
			logging.String(logging.FieldImpact, "workspace left behind on the backend"),
		)
		return err
	}
	logging.WithContext(ctx, m.logger).Info("workspace released",
		logging.String(logging.FieldEventType, "workspace_released"),
		logging.String(logging.FieldWorkspaceID, string(ws.ID)),
	)
	return nil
}

// With acquires a workspace, runs fn, and always releases it. Release runs on
// a context detached from ctx's cancellation so cancelled runs still clean up.
// fn's error is returned unchanged; a release error is only logged.
func (m *Manager) With(ctx context.Context, title string, fn func(ctx context.Context, ws *Workspace) error) error {
	ws, err := m.Acquire(ctx, title)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.releaseTimeout)
		defer cancel()
		_ = m.Release(releaseCtx, ws)
	}()

	return fn(ctx, ws)
}
