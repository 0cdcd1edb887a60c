package backend

import (
	"context"
	"time"
)

// WorkspaceID identifies one isolated container on the analysis backend.
type WorkspaceID string

// Readiness reports how far the backend got processing an attached source.
type Readiness int

const (
	ReadinessPending Readiness = iota
	ReadinessReady
	ReadinessFailed
	ReadinessTimedOut
)

func (r Readiness) String() string {
	switch r {
	case ReadinessReady:
		return "ready"
	case ReadinessFailed:
		return "failed"
	case ReadinessTimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// ParseReadiness maps a backend status string onto Readiness.
func ParseReadiness(status string) Readiness {
	switch status {
	case "ready", "complete", "completed", "done":
		return ReadinessReady
	case "failed", "error":
		return ReadinessFailed
	default:
		return ReadinessPending
	}
}

// SourceKind distinguishes uploaded files from linked web pages.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceURL  SourceKind = "url"
)

// Source is the handle returned when content is attached to a workspace.
type Source struct {
	ID        string
	Kind      SourceKind
	Readiness Readiness
}

// FileOptions controls how AttachFile treats processing on the backend side.
type FileOptions struct {
	// WaitForReady makes AttachFile poll the source until it is ready, failed,
	// or ReadyTimeout elapses. A timeout is reported through Source.Readiness.
	WaitForReady bool
	ReadyTimeout time.Duration
}

// Backend is the capability contract every analysis service implements.
type Backend interface {
	CreateWorkspace(ctx context.Context, title string) (WorkspaceID, error)
	DeleteWorkspace(ctx context.Context, id WorkspaceID) error
	AttachFile(ctx context.Context, id WorkspaceID, localPath string, opts FileOptions) (Source, error)
	AttachURL(ctx context.Context, id WorkspaceID, url string) (Source, error)
	Query(ctx context.Context, id WorkspaceID, prompt string) (string, error)
}

// WorkspaceInfo summarizes a workspace for inventory listings.
type WorkspaceInfo struct {
	ID    WorkspaceID
	Title string
}

// SourceRecord describes an attached source in inventory listings. Title and
// URL are nil when the backend does not report them.
type SourceRecord struct {
	ID    string
	Title *string
	Type  string
	URL   *string
}

// Note is a saved note inside a workspace.
type Note struct {
	ID      string
	Title   string
	Content string
}

// Inventory is implemented by backends that can enumerate their contents.
type Inventory interface {
	ListWorkspaces(ctx context.Context) ([]WorkspaceInfo, error)
	ListSources(ctx context.Context, id WorkspaceID) ([]SourceRecord, error)
	ListNotes(ctx context.Context, id WorkspaceID) ([]Note, error)
}

// HealthChecker is implemented by backends that expose a cheap liveness probe.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
