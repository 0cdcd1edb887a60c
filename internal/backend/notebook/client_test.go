package notebook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"notebrief/internal/backend"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	base := []Option{WithSleeper(func(time.Duration) {}), WithPollInterval(time.Second)}
	return NewClient(Config{BaseURL: server.URL, APIKey: "secret"}, append(base, opts...)...)
}

func TestCreateWorkspaceSendsTitleAndBearer(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/notebooks" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["title"] != "Analysis: demo" {
			t.Fatalf("unexpected title %q", body["title"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "nb-1", "title": body["title"]})
	}))

	id, err := client.CreateWorkspace(context.Background(), "Analysis: demo")
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	if id != "nb-1" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestDeleteWorkspaceIgnoresNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/notebooks/nb-9" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	if err := client.DeleteWorkspace(context.Background(), "nb-9"); err != nil {
		t.Fatalf("expected nil for missing notebook, got %v", err)
	}
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	var slept []time.Duration
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "ok"})
	}), WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	answer, err := client.Query(context.Background(), "nb-1", "hello")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if answer != "ok" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(slept) != 2 || slept[0] != 2*time.Second {
		t.Fatalf("expected Retry-After delays, got %v", slept)
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	_, err := client.CreateWorkspace(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "http 401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestAttachFileUploadsAndPollsUntilReady(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 demo"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notebooks/nb-1/sources/file", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "notes.pdf" || string(data) != "%PDF-1.4 demo" {
			t.Fatalf("unexpected upload %q %q", header.Filename, data)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "src-1", "status": "pending"})
	})
	mux.HandleFunc("GET /notebooks/nb-1/sources/src-1", func(w http.ResponseWriter, r *http.Request) {
		status := "pending"
		if polls.Add(1) >= 2 {
			status = "ready"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "src-1", "status": status})
	})
	client := newTestClient(t, mux)

	source, err := client.AttachFile(context.Background(), "nb-1", path, backend.FileOptions{WaitForReady: true, ReadyTimeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
	if source.Readiness != backend.ReadinessReady || source.Kind != backend.SourceFile {
		t.Fatalf("unexpected source %+v", source)
	}
	if polls.Load() != 2 {
		t.Fatalf("expected 2 polls, got %d", polls.Load())
	}
}

func TestAttachFileStreamsEveryRetryAttempt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lecture.mp4")
	content := strings.Repeat("frame", 4096)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if calls.Add(1) == 1 {
			_, _ = io.Copy(io.Discard, r.Body)
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != content {
			t.Errorf("upload truncated: got %d bytes, want %d", len(data), len(content))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "src-2", "status": "ready"})
	}))

	source, err := client.AttachFile(context.Background(), "nb-1", path, backend.FileOptions{})
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
	if source.ID != "src-2" || calls.Load() != 2 {
		t.Fatalf("unexpected source %+v after %d calls", source, calls.Load())
	}
}

func TestAttachFileMissingPathFails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for a missing file")
	}))
	_, err := client.AttachFile(context.Background(), "nb-1", filepath.Join(t.TempDir(), "ghost.pdf"), backend.FileOptions{})
	if err == nil || !strings.Contains(err.Error(), "open ghost.pdf") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestAttachFileReportsTimeoutWithoutError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /notebooks/nb-1/sources/file", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "src-2", "status": "processing"})
	})
	mux.HandleFunc("GET /notebooks/nb-1/sources/src-2", func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "src-2", "status": "processing"})
	})
	client := newTestClient(t, mux)

	source, err := client.AttachFile(context.Background(), "nb-1", path, backend.FileOptions{WaitForReady: true, ReadyTimeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
	if source.Readiness != backend.ReadinessTimedOut {
		t.Fatalf("expected timed out readiness, got %v", source.Readiness)
	}
	if polls.Load() != 3 {
		t.Fatalf("expected 3 polls for a 3s budget at 1s interval, got %d", polls.Load())
	}
}

func TestInventoryListings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /notebooks", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"notebooks":[{"id":"nb-1","title":"Research"}]}`)
	})
	mux.HandleFunc("GET /notebooks/nb-1/sources", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"sources":[{"id":"s1","title":"Intro","type":"url","url":"https://example.com"},{"id":"s2","type":"file"}]}`)
	})
	mux.HandleFunc("GET /notebooks/nb-1/notes", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"notes":[{"id":"n1","title":"摘要","content":"內容"}]}`)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	workspaces, err := client.ListWorkspaces(ctx)
	if err != nil || len(workspaces) != 1 || workspaces[0].Title != "Research" {
		t.Fatalf("unexpected workspaces %+v err=%v", workspaces, err)
	}
	sources, err := client.ListSources(ctx, "nb-1")
	if err != nil || len(sources) != 2 {
		t.Fatalf("unexpected sources %+v err=%v", sources, err)
	}
	if sources[0].URL == nil || *sources[0].URL != "https://example.com" {
		t.Fatalf("expected url on first source, got %+v", sources[0])
	}
	if sources[1].URL != nil || sources[1].Title != nil {
		t.Fatalf("expected absent optional fields on second source, got %+v", sources[1])
	}
	notes, err := client.ListNotes(ctx, "nb-1")
	if err != nil || len(notes) != 1 || notes[0].Content != "內容" {
		t.Fatalf("unexpected notes %+v err=%v", notes, err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("5"); !ok || d != 5*time.Second {
		t.Fatalf("unexpected seconds parse: %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative retry-after should be rejected")
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("garbage retry-after should be rejected")
	}
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused"}, WithRetryBackoff(time.Second, 3*time.Second))
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, expected := range want {
		if got := client.backoffDelay(i + 1); got != expected {
			t.Fatalf("attempt %d: got %v want %v", i+1, got, expected)
		}
	}
}
