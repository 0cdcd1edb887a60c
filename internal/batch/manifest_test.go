package batch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"notebrief/internal/ingest"
	"notebrief/internal/services"
)

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_urls.json")
	entries := []Entry{
		{Title: "深度學習 <入門>", URL: "https://www.youtube.com/watch?v=abc&t=1"},
		{Title: "Talk B", URL: "https://youtu.be/b"},
	}
	if err := WriteManifest(path, entries); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "深度學習 <入門>") || !strings.Contains(string(raw), "&t=1") {
		t.Fatalf("expected unescaped text, got %s", raw)
	}
	got, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Fatalf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAMLManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.yaml")
	content := "- title: Talk A\n  url: https://youtu.be/a\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Talk A" {
		t.Fatalf("unexpected entries %+v", got)
	}
	item := got[0].Item()
	if item.Origin.Kind != ingest.KindWebURL || item.Identity != "Talk A" {
		t.Fatalf("unexpected item %+v", item)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadManifest(filepath.Join(dir, "missing.json")); !errors.Is(err, services.ErrSourceNotFound) {
		t.Fatalf("expected source not found, got %v", err)
	}

	tests := map[string]string{
		"bad.json":   "{not json",
		"blank.json": `[{"title":"  ","url":"https://x"}]`,
		"nourl.json": `[{"title":"A"}]`,
	}
	for name, content := range tests {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadManifest(path); !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}
