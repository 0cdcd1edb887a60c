package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"notebrief/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckFFmpegLocation(t *testing.T) {
	dir := t.TempDir()
	ffmpegPath := filepath.Join(dir, "bin", executableName("ffmpeg"))
	writeStub(t, ffmpegPath)
	t.Setenv("PATH", "")

	cases := []struct {
		name      string
		location  string
		available bool
		command   string
	}{
		{"binary path", ffmpegPath, true, ffmpegPath},
		{"directory", filepath.Join(dir, "bin"), true, ffmpegPath},
		{"missing directory entry", dir, false, filepath.Join(dir, executableName("ffmpeg"))},
		{"missing path", filepath.Join(dir, "nope", "ffmpeg"), false, filepath.Join(dir, "nope", "ffmpeg")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := CheckFFmpeg(tc.location)
			if status.Available != tc.available || status.Command != tc.command {
				t.Fatalf("CheckFFmpeg(%q) = available %v command %q, want %v %q (detail %q)",
					tc.location, status.Available, status.Command, tc.available, tc.command, status.Detail)
			}
			if !tc.available && !strings.Contains(status.Detail, "ffmpeg_location") {
				t.Fatalf("expected detail naming the setting, got %q", status.Detail)
			}
		})
	}
}

func TestCheckFFmpegUsesPATHWithoutLocation(t *testing.T) {
	binDir := t.TempDir()
	ffmpegPath := filepath.Join(binDir, executableName("ffmpeg"))
	writeStub(t, ffmpegPath)
	t.Setenv("PATH", binDir)

	status := CheckFFmpeg("")
	if !status.Available || status.Command != ffmpegPath {
		t.Fatalf("expected PATH ffmpeg %q, got %#v", ffmpegPath, status)
	}
}

func TestCheckFFmpegNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	status := CheckFFmpeg("")
	if status.Available {
		t.Fatal("expected ffmpeg resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when ffmpeg is unavailable")
	}
}

func TestRequirementsUseConfiguredBinary(t *testing.T) {
	cfg := config.Default()
	cfg.Scraper.Binary = "/opt/tools/yt-dlp"
	reqs := Requirements(&cfg)
	if len(reqs) != 1 || reqs[0].Command != "/opt/tools/yt-dlp" || !reqs[0].Optional {
		t.Fatalf("unexpected requirements %#v", reqs)
	}
	if got := Requirements(nil)[0].Command; got != "yt-dlp" {
		t.Fatalf("expected default binary, got %q", got)
	}
}

func TestCheckIncludesFFmpeg(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := config.Default()
	cfg.Scraper.FFmpegLocation = filepath.Join(t.TempDir(), "ffmpeg")
	statuses := Check(&cfg)
	if len(statuses) != 2 || statuses[1].Name != "FFmpeg" {
		t.Fatalf("unexpected statuses %#v", statuses)
	}
	for _, status := range statuses {
		if status.Available {
			t.Fatalf("nothing should resolve with an empty PATH: %#v", status)
		}
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
