package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notebrief/internal/query"
	"notebrief/internal/services"
	"notebrief/internal/testsupport"
)

func TestAnalyzeFileWritesReportAndRecordsRun(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "memo.txt"), "quarterly memo")

	out, _, err := env.run(t, "analyze", "file", path)
	if err != nil {
		t.Fatalf("analyze file: %v", err)
	}
	requireContains(t, out, "answer: "+query.DocumentPrompt())
	reportPath := filepath.Join(env.cfg.Paths.OutputDir, "memo_analysis.md")
	requireContains(t, out, "Report: "+reportPath)
	if _, err := os.Stat(reportPath); err != nil {
		t.Fatalf("expected report at %s: %v", reportPath, err)
	}
	if env.fake.Created() != 1 || env.fake.Deleted() != 1 {
		t.Fatalf("expected one workspace created and released, got %d/%d", env.fake.Created(), env.fake.Deleted())
	}
	if titles := env.fake.Titles(); len(titles) != 1 || titles[0] != "Analysis: memo.txt" {
		t.Fatalf("unexpected titles %v", titles)
	}

	out, _, err = env.run(t, "history", "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []runView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Kind != "file" || runs[0].Status != "completed" || runs[0].Done != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestAnalyzeFilePromptOverride(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "talk.mp3"), "audio")

	out, _, err := env.run(t, "analyze", "file", path, "--prompt", "列出重點")
	if err != nil {
		t.Fatalf("analyze file: %v", err)
	}
	requireContains(t, out, "answer: 列出重點")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, "talk_analysis.md")); err != nil {
		t.Fatalf("expected report: %v", err)
	}
}

func TestAnalyzeFileMissingRecordsFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "ghost.pdf")

	_, _, err := env.run(t, "analyze", "file", missing)
	if !errors.Is(err, services.ErrSourceNotFound) {
		t.Fatalf("expected source not found, got %v", err)
	}
	if env.fake.Created() != 0 {
		t.Fatal("no workspace expected for a missing file")
	}

	out, _, err := env.run(t, "history", "--item", "ghost.pdf")
	if err != nil {
		t.Fatalf("history --item: %v", err)
	}
	requireContains(t, out, "source_not_found")
}

func TestAnalyzeURLsRunsManifestAndSkipsOnRerun(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteManifest(t, env.cfg.Paths.Manifest,
		testsupport.ManifestEntry{Title: "第一集", URL: "https://www.youtube.com/watch?v=a"},
		testsupport.ManifestEntry{Title: "Episode 2", URL: "https://www.youtube.com/watch?v=b"},
	)

	out, _, err := env.run(t, "analyze", "urls")
	if err != nil {
		t.Fatalf("analyze urls: %v", err)
	}
	requireContains(t, out, "[1/2] 第一集  RUNNING")
	requireContains(t, out, "[2/2] Episode 2  DONE")
	requireContains(t, out, "Done: 2  Skipped: 0  Failed: 0  Total: 2")
	for _, name := range []string{"第一集_analysis_result.md", "Episode_2_analysis_result.md"} {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, name)); err != nil {
			t.Fatalf("expected report %s: %v", name, err)
		}
	}

	out, _, err = env.run(t, "analyze", "urls")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, out, "Done: 0  Skipped: 2  Failed: 0  Total: 2")
	if env.fake.Created() != 2 {
		t.Fatalf("re-run must not create workspaces, created=%d", env.fake.Created())
	}
}

func TestAnalyzeURLsReportsFailedItems(t *testing.T) {
	env := setupCLITestEnv(t)
	manifest := testsupport.WriteManifest(t, filepath.Join(t.TempDir(), "list.json"),
		testsupport.ManifestEntry{Title: "ok", URL: "https://example.com/ok"},
		testsupport.ManifestEntry{Title: "broken", URL: "https://example.com/broken"},
	)
	env.fake.AttachErrFor = map[string]error{"https://example.com/broken": errors.New("rejected")}

	out, _, err := env.run(t, "analyze", "urls", "--manifest", manifest)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 items failed") {
		t.Fatalf("expected failure summary error, got %v", err)
	}
	requireContains(t, out, "[2/2] broken  FAILED")
	requireContains(t, out, "Done: 1  Skipped: 0  Failed: 1  Total: 2")
	if env.fake.Created() != env.fake.Deleted() {
		t.Fatalf("every workspace must be released, created=%d deleted=%d", env.fake.Created(), env.fake.Deleted())
	}
}

func TestAnalyzeURLsMissingManifest(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "analyze", "urls"); !errors.Is(err, services.ErrSourceNotFound) {
		t.Fatalf("expected source not found, got %v", err)
	}
}

func TestAnalyzeDownloadsBuildsDigest(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := env.cfg.Paths.DownloadDir
	testsupport.WriteFile(t, filepath.Join(dir, "20240101_one.mp3"), "a")
	testsupport.WriteFile(t, filepath.Join(dir, "20240102_two.m4a"), "b")
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	out, _, err := env.run(t, "analyze", "downloads")
	if err != nil {
		t.Fatalf("analyze downloads: %v", err)
	}
	requireContains(t, out, "Analyzed 2 of 2 audio files")
	reportPath := filepath.Join(env.cfg.Paths.OutputDir, env.cfg.Batch.DigestReport)
	requireContains(t, out, reportPath)

	var queries []string
	for _, call := range env.fake.Calls() {
		if call.Method == "Query" {
			queries = append(queries, call.Arg)
		}
	}
	if want := query.DigestQueries(); len(queries) != len(want) || queries[0] != want[0] {
		t.Fatalf("unexpected digest queries %v", queries)
	}
	if titles := env.fake.Titles(); len(titles) != 1 || titles[0] != env.cfg.Batch.DigestTitle {
		t.Fatalf("unexpected titles %v", titles)
	}
}

func TestAnalyzeDownloadsWithoutAudio(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := env.run(t, "analyze", "downloads", "--dir", t.TempDir())
	if !errors.Is(err, services.ErrSourceNotFound) {
		t.Fatalf("expected source not found, got %v", err)
	}
	requireContains(t, err.Error(), "notebrief download")
}
