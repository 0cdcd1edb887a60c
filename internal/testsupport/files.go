package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// ManifestEntry mirrors one manifest record.
type ManifestEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// WriteManifest writes a JSON manifest to path.
func WriteManifest(t testing.TB, path string, entries ...ManifestEntry) string {
	t.Helper()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	return WriteFile(t, path, string(data))
}
