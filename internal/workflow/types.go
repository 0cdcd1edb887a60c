package workflow

import (
	"time"

	"notebrief/internal/backend"
	"notebrief/internal/ingest"
	"notebrief/internal/query"
	"notebrief/internal/report"
)

// Item is one unit of work.
type Item struct {
	// Identity is the title for URL items and the file name for files. Empty
	// identities are filled from the prepared source name.
	Identity string
	Origin   ingest.Origin
	// Prompt overrides the plan's default prompt when not blank.
	Prompt string
}

// Plan describes how an entry point runs an item.
type Plan struct {
	// TitlePrefix is prepended to the identity to form the workspace title.
	TitlePrefix string
	// DefaultPrompt builds the prompt used when the item has no override.
	DefaultPrompt func(identity string) string
	Policy        ingest.Policy
	// Persist writes a report with Layout after a successful query.
	Persist bool
	Layout  report.Layout
}

// Outcome summarises one pipeline run.
type Outcome struct {
	Identity    string
	Title       string
	WorkspaceID backend.WorkspaceID
	// Ready is false when the source was still processing when its readiness
	// budget ran out.
	Ready    bool
	Sources  int
	Results  []query.Result
	Report   *report.Report
	Duration time.Duration
}

// Answer returns the last answer, which is the whole answer for single-prompt runs.
func (o *Outcome) Answer() string {
	if o == nil || len(o.Results) == 0 {
		return ""
	}
	return o.Results[len(o.Results)-1].Answer
}
