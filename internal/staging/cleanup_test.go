package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"notebrief/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOnlyOldStagedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	oldStaged := filepath.Join(tmpDir, "notebrief-123-report.pdf")
	recentStaged := filepath.Join(tmpDir, "notebrief-456-talk.mp3")
	oldForeign := filepath.Join(tmpDir, "other-tool.tmp")
	for _, path := range []string{oldStaged, recentStaged, oldForeign} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	for _, path := range []string{oldStaged, oldForeign} {
		if err := os.Chtimes(path, oldTime, oldTime); err != nil {
			t.Fatalf("set old time: %v", err)
		}
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldStaged {
		t.Fatalf("expected only %s removed, got %v", oldStaged, result.Removed)
	}
	if _, err := os.Stat(oldStaged); !os.IsNotExist(err) {
		t.Error("old staged file should have been removed")
	}
	if _, err := os.Stat(recentStaged); err != nil {
		t.Error("recent staged file should still exist")
	}
	if _, err := os.Stat(oldForeign); err != nil {
		t.Error("files without the staging prefix must be left alone")
	}
}

func TestListFilesReportsStagedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "notebrief-1-a.pdf"), []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := ListFiles(tmpDir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0].Name != "notebrief-1-a.pdf" || files[0].Size != 3 {
		t.Fatalf("unexpected listing %+v", files)
	}

	missing, err := ListFiles(filepath.Join(tmpDir, "missing"))
	if err != nil || missing != nil {
		t.Fatalf("expected nil listing for missing dir, got %v %v", missing, err)
	}
}
