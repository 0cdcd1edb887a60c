package queue

import "time"

// Status is the lifecycle state of a run item.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSkipped Status = "skipped"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSkipped, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// RunStatus is the lifecycle state of a whole run.
type RunStatus string

const (
	RunActive      RunStatus = "active"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
)

// Kinds of run.
const (
	KindBatch  = "batch"
	KindDigest = "digest"
	KindFile   = "file"
)

// Run is one invocation of a batch, digest, or single-file command.
type Run struct {
	ID         string
	Kind       string
	Source     string
	OutputDir  string
	Status     RunStatus
	Total      int
	Done       int
	Skipped    int
	Failed     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns how long the run took, or has taken so far.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// RunItem records one item within a run.
type RunItem struct {
	ID           int64
	RunID        string
	Position     int
	Identity     string
	Origin       string
	Status       Status
	ErrorKind    string
	ErrorMessage string
	ReportPath   string
	WorkspaceID  string
	// SourceReady is nil until the item attaches a source.
	SourceReady *bool
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// MarkRunning moves the item to running.
func (i *RunItem) MarkRunning(now time.Time) {
	i.Status = StatusRunning
	i.StartedAt = &now
	i.ErrorKind = ""
	i.ErrorMessage = ""
}

// MarkSkipped records that the item already had a report.
func (i *RunItem) MarkSkipped(reportPath string, now time.Time) {
	i.Status = StatusSkipped
	i.ReportPath = reportPath
	i.FinishedAt = &now
}

// MarkDone records a successful run.
func (i *RunItem) MarkDone(reportPath string, now time.Time) {
	i.Status = StatusDone
	i.ReportPath = reportPath
	i.FinishedAt = &now
}

// MarkFailed records a failure with its classification.
func (i *RunItem) MarkFailed(kind, message string, now time.Time) {
	i.Status = StatusFailed
	i.ErrorKind = kind
	i.ErrorMessage = message
	i.FinishedAt = &now
}
