package ingest

import (
	"path/filepath"
	"strings"
	"time"

	"notebrief/internal/config"
)

// Kind identifies where an item's content comes from.
type Kind string

const (
	KindLocalFile  Kind = "local-file"
	KindRemoteFile Kind = "remote-file"
	KindWebURL     Kind = "web-url"
)

// Origin locates an item's content: a filesystem path or a URL.
type Origin struct {
	Kind     Kind
	Location string
}

func LocalFile(path string) Origin { return Origin{Kind: KindLocalFile, Location: path} }

func RemoteFile(url string) Origin { return Origin{Kind: KindRemoteFile, Location: url} }

func WebURL(url string) Origin { return Origin{Kind: KindWebURL, Location: url} }

type waitMode int

const (
	waitFixed waitMode = iota
	waitPoll
)

// Policy decides how the pipeline waits for a source to become usable.
type Policy struct {
	mode waitMode
	wait time.Duration
}

// Fixed waits a flat delay after attaching. Used when the backend cannot be
// asked about readiness, or for URL sources.
func Fixed(d time.Duration) Policy { return Policy{mode: waitFixed, wait: d} }

// Poll asks the backend to poll the source until it is ready or timeout elapses.
func Poll(timeout time.Duration) Policy { return Policy{mode: waitPoll, wait: timeout} }

// Wait returns the delay or poll budget.
func (p Policy) Wait() time.Duration { return p.wait }

// Polling reports whether the policy polls rather than sleeps.
func (p Policy) Polling() bool { return p.mode == waitPoll }

func (p Policy) String() string {
	if p.mode == waitPoll {
		return "poll " + p.wait.String()
	}
	return "fixed " + p.wait.String()
}

var documentExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".txt": {}, ".md": {}, ".markdown": {},
	".ppt": {}, ".pptx": {}, ".csv": {}, ".rtf": {}, ".html": {}, ".htm": {},
}

// IsDocument reports whether name looks like a text document rather than media.
func IsDocument(name string) bool {
	_, ok := documentExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Budgets maps item kinds to readiness waits.
type Budgets struct {
	config.ReadinessBudgets
}

// NewBudgets wraps the configured readiness durations.
func NewBudgets(b config.ReadinessBudgets) Budgets {
	return Budgets{ReadinessBudgets: b}
}

// ForFile returns a fixed wait sized for the file type: documents settle faster
// than audio or video.
func (b Budgets) ForFile(name string) Policy {
	if IsDocument(name) {
		return Fixed(b.Document)
	}
	return Fixed(b.Media)
}

// ForURL returns the fixed wait for web sources.
func (b Budgets) ForURL() Policy { return Fixed(b.URL) }

// ForDigest returns the wait applied once after all digest sources are attached.
func (b Budgets) ForDigest() Policy { return Fixed(b.Digest) }

// ForSubmitted returns the flat wait for files handed in through MCP or the
// HTTP API, whatever their type.
func (b Budgets) ForSubmitted() Policy { return Fixed(b.Media) }

// ForUpload returns the polling policy for HTTP uploads.
func (b Budgets) ForUpload() Policy { return Poll(b.Upload) }
