package staging

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"notebrief/internal/services"
)

func TestRemoteName(t *testing.T) {
	cases := map[string]string{
		"https://example.com/files/report.pdf":       "report.pdf",
		"https://example.com/files/report.pdf?x=1":   "report.pdf",
		"https://example.com/files/my%20notes.txt":   "my notes.txt",
		"https://example.com/download":               "downloaded_file.pdf",
		"https://example.com/":                       "downloaded_file.pdf",
		"https://example.com":                        "downloaded_file.pdf",
		"https://example.com/a/b/talk.final.mp3#top": "talk.final.mp3",
	}
	for input, want := range cases {
		if got := RemoteName(input); got != want {
			t.Errorf("RemoteName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestUploadName(t *testing.T) {
	cases := map[string]string{
		"":                       "uploaded_file.pdf",
		"slides.pptx":            "slides.pptx",
		"C:\\Users\\me\\doc.pdf": "doc.pdf",
		"../../etc/notes.txt":    "notes.txt",
		"README":                 "uploaded_file.pdf",
	}
	for input, want := range cases {
		if got := UploadName(input); got != want {
			t.Errorf("UploadName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFetchStagesContentWithOriginalSuffix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pdf bytes")
	}))
	defer server.Close()

	dir := t.TempDir()
	stager := New(dir, server.Client(), nil)
	file, err := stager.Fetch(context.Background(), server.URL+"/docs/paper.pdf")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if file.Name != "paper.pdf" {
		t.Fatalf("unexpected name %q", file.Name)
	}
	base := filepath.Base(file.Path)
	if !strings.HasPrefix(base, "notebrief-") || !strings.HasSuffix(base, "-paper.pdf") {
		t.Fatalf("unexpected staged name %q", base)
	}
	data, err := os.ReadFile(file.Path)
	if err != nil || string(data) != "pdf bytes" {
		t.Fatalf("unexpected staged content %q err=%v", data, err)
	}
	if err := file.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := file.Remove(); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
	if _, err := os.Stat(file.Path); !os.IsNotExist(err) {
		t.Fatal("staged file should be gone")
	}
}

func TestFetchFailureIsDownloadFailureAndLeavesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	stager := New(dir, server.Client(), nil)
	_, err := stager.Fetch(context.Background(), server.URL+"/missing.pdf")
	if !errors.Is(err, services.ErrDownloadFailure) {
		t.Fatalf("expected download failure, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty staging dir, found %d entries", len(entries))
	}

	_, err = stager.Fetch(context.Background(), "http://127.0.0.1:1/unreachable.pdf")
	if !errors.Is(err, services.ErrDownloadFailure) {
		t.Fatalf("expected download failure for unreachable host, got %v", err)
	}
}

func TestConcurrentSavesDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	stager := New(dir, nil, nil)

	const workers = 8
	paths := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			file, err := stager.Save("same.pdf", strings.NewReader(strings.Repeat("x", i+1)))
			if err != nil {
				t.Errorf("Save: %v", err)
				return
			}
			paths[i] = file.Path
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, path := range paths {
		if seen[path] {
			t.Fatalf("duplicate staged path %s", path)
		}
		seen[path] = true
		data, err := os.ReadFile(path)
		if err != nil || len(data) != i+1 {
			t.Fatalf("worker %d content mismatch: %q err=%v", i, data, err)
		}
	}
}
