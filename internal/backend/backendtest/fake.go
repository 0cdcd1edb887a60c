// Package backendtest provides a scripted in-memory backend for tests.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"notebrief/internal/backend"
)

// Call records one invocation against the fake.
type Call struct {
	Method    string
	Workspace backend.WorkspaceID
	Arg       string
	Options   backend.FileOptions
}

// Fake implements backend.Backend and backend.Inventory. Error fields inject
// failures; AnswerFunc scripts query replies.
type Fake struct {
	mu sync.Mutex

	CreateErr error
	DeleteErr error
	AttachErr error
	QueryErr  error
	// AttachErrFor fails AttachFile/AttachURL only for matching base names or URLs.
	AttachErrFor map[string]error
	// Readiness is reported by AttachFile and AttachURL. New sets it to ready.
	Readiness backend.Readiness
	// AnswerFunc builds query answers; nil echoes "answer: <prompt>".
	AnswerFunc func(title, prompt string) (string, error)
	// OnQuery runs before each query (e.g. to cancel a context).
	OnQuery func()

	Notes map[backend.WorkspaceID][]backend.Note

	calls   []Call
	live    map[backend.WorkspaceID]string
	created int
	deleted int
	sources map[backend.WorkspaceID][]backend.SourceRecord
	seq     int
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{Readiness: backend.ReadinessReady}
}

func (f *Fake) record(call Call) {
	f.calls = append(f.calls, call)
}

func (f *Fake) CreateWorkspace(_ context.Context, title string) (backend.WorkspaceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "CreateWorkspace", Arg: title})
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.seq++
	id := backend.WorkspaceID(fmt.Sprintf("ws-%d", f.seq))
	if f.live == nil {
		f.live = make(map[backend.WorkspaceID]string)
	}
	f.live[id] = title
	f.created++
	return id, nil
}

func (f *Fake) DeleteWorkspace(_ context.Context, id backend.WorkspaceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "DeleteWorkspace", Workspace: id})
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.live[id]; ok {
		delete(f.live, id)
		f.deleted++
	}
	return nil
}

func (f *Fake) AttachFile(_ context.Context, id backend.WorkspaceID, localPath string, opts backend.FileOptions) (backend.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(localPath)
	f.record(Call{Method: "AttachFile", Workspace: id, Arg: localPath, Options: opts})
	if err := f.attachError(name); err != nil {
		return backend.Source{}, err
	}
	title := name
	return f.addSource(id, backend.SourceRecord{Title: &title, Type: string(backend.SourceFile)}, backend.SourceFile, f.Readiness)
}

func (f *Fake) AttachURL(_ context.Context, id backend.WorkspaceID, url string) (backend.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "AttachURL", Workspace: id, Arg: url})
	if err := f.attachError(url); err != nil {
		return backend.Source{}, err
	}
	link := url
	return f.addSource(id, backend.SourceRecord{URL: &link, Type: string(backend.SourceURL)}, backend.SourceURL, f.Readiness)
}

func (f *Fake) Query(_ context.Context, id backend.WorkspaceID, prompt string) (string, error) {
	f.mu.Lock()
	f.record(Call{Method: "Query", Workspace: id, Arg: prompt})
	title := f.live[id]
	hook := f.OnQuery
	answerFn := f.AnswerFunc
	queryErr := f.QueryErr
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if queryErr != nil {
		return "", queryErr
	}
	if answerFn != nil {
		return answerFn(title, prompt)
	}
	return "answer: " + prompt, nil
}

func (f *Fake) ListWorkspaces(_ context.Context) ([]backend.WorkspaceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.WorkspaceInfo, 0, len(f.live))
	for i := 1; i <= f.seq; i++ {
		id := backend.WorkspaceID(fmt.Sprintf("ws-%d", i))
		if title, ok := f.live[id]; ok {
			out = append(out, backend.WorkspaceInfo{ID: id, Title: title})
		}
	}
	return out, nil
}

func (f *Fake) ListSources(_ context.Context, id backend.WorkspaceID) ([]backend.SourceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[id]; !ok {
		return nil, errors.New("workspace not found")
	}
	return append([]backend.SourceRecord(nil), f.sources[id]...), nil
}

func (f *Fake) ListNotes(_ context.Context, id backend.WorkspaceID) ([]backend.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[id]; !ok {
		return nil, errors.New("workspace not found")
	}
	return append([]backend.Note(nil), f.Notes[id]...), nil
}

// Calls returns a copy of every recorded call.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Methods returns the recorded method names in order.
func (f *Fake) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		out = append(out, call.Method)
	}
	return out
}

// Created reports how many workspaces were successfully created.
func (f *Fake) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// Deleted reports how many live workspaces were deleted.
func (f *Fake) Deleted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted
}

// Live reports how many workspaces exist right now.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// Titles returns the titles passed to CreateWorkspace in order.
func (f *Fake) Titles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, call := range f.calls {
		if call.Method == "CreateWorkspace" {
			out = append(out, call.Arg)
		}
	}
	return out
}

func (f *Fake) attachError(key string) error {
	if err, ok := f.AttachErrFor[key]; ok {
		return err
	}
	return f.AttachErr
}

func (f *Fake) addSource(id backend.WorkspaceID, record backend.SourceRecord, kind backend.SourceKind, readiness backend.Readiness) (backend.Source, error) {
	if _, ok := f.live[id]; !ok {
		return backend.Source{}, fmt.Errorf("workspace %s not found", id)
	}
	if f.sources == nil {
		f.sources = make(map[backend.WorkspaceID][]backend.SourceRecord)
	}
	record.ID = fmt.Sprintf("src-%d", len(f.sources[id])+1)
	f.sources[id] = append(f.sources[id], record)
	return backend.Source{ID: record.ID, Kind: kind, Readiness: readiness}, nil
}

var (
	_ backend.Backend   = (*Fake)(nil)
	_ backend.Inventory = (*Fake)(nil)
)
