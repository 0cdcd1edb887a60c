package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"notebrief/internal/config"
	"notebrief/internal/services"
)

type stubExecutor struct {
	lines  []string
	err    error
	create []string
	calls  int
	args   [][]string
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string, onStdout func(string)) error {
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
	for _, line := range s.lines {
		onStdout(line)
	}
	for _, path := range s.create {
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			return err
		}
	}
	return s.err
}

func newClient(t *testing.T, exec Executor) *Client {
	t.Helper()
	client, err := New(config.Default().Scraper, nil, WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := New(config.Scraper{}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestListPlaylistItemsParsesFlatEntries(t *testing.T) {
	stub := &stubExecutor{lines: []string{
		`[youtube:tab] Downloading playlist`,
		`{"id":"abc","title":"First talk","url":"https://www.youtube.com/watch?v=abc"}`,
		`{"id":"def","title":"Second talk"}`,
		`{"id":"ghi","title":""}`,
		`not json`,
	}}
	client := newClient(t, stub)

	entries, err := client.ListPlaylistItems(context.Background(), "https://www.youtube.com/playlist?list=PL1", 240)
	if err != nil {
		t.Fatalf("ListPlaylistItems: %v", err)
	}
	want := []Entry{
		{ID: "abc", Title: "First talk", URL: "https://www.youtube.com/watch?v=abc"},
		{ID: "def", Title: "Second talk", URL: "https://www.youtube.com/watch?v=def"},
		{ID: "ghi", Title: "ghi", URL: "https://www.youtube.com/watch?v=ghi"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	wantArgs := []string{"--flat-playlist", "--dump-json", "--ignore-errors", "--no-warnings",
		"--playlist-items", "1-240", "https://www.youtube.com/playlist?list=PL1"}
	if diff := cmp.Diff(wantArgs, stub.args[0]); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestListPlaylistItemsFailureWithoutEntries(t *testing.T) {
	client := newClient(t, &stubExecutor{err: errors.New("exit status 1")})
	_, err := client.ListPlaylistItems(context.Background(), "https://example.com/list", 10)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestListPlaylistItemsKeepsPartialResults(t *testing.T) {
	client := newClient(t, &stubExecutor{
		lines: []string{`{"id":"a","title":"A"}`},
		err:   errors.New("exit status 1"),
	})
	entries, err := client.ListPlaylistItems(context.Background(), "https://example.com/list", 10)
	if err != nil {
		t.Fatalf("partial listing should succeed, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestListPlaylistItemsRequiresURL(t *testing.T) {
	stub := &stubExecutor{}
	client := newClient(t, stub)
	if _, err := client.ListPlaylistItems(context.Background(), "  ", 10); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatal("yt-dlp must not run without a url")
	}
}

func TestDownloadAudioArgsAndNewFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	existing := filepath.Join(dir, "20240101_old.mp3")
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	stub := &stubExecutor{create: []string{
		filepath.Join(dir, "20240102_new.mp3"),
		filepath.Join(dir, "20240103_other.m4a"),
		filepath.Join(dir, "cover.jpg"),
	}}
	client := newClient(t, stub)

	files, err := client.DownloadAudio(context.Background(), "https://example.com/list", 10, dir)
	if err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}
	want := []string{filepath.Join(dir, "20240102_new.mp3"), filepath.Join(dir, "20240103_other.m4a")}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	wantArgs := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--output", filepath.Join(dir, "%(upload_date)s_%(title)s.%(ext)s"),
		"--ignore-errors",
		"--playlist-items", "1-10",
		"--sleep-interval", "1",
		"https://example.com/list",
	}
	if diff := cmp.Diff(wantArgs, stub.args[0]); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestDownloadAudioPassesFFmpegLocation(t *testing.T) {
	cfg := config.Default().Scraper
	cfg.FFmpegLocation = "/opt/ffmpeg/bin"
	cfg.SleepInterval = 0
	stub := &stubExecutor{}
	client, err := New(cfg, nil, WithExecutor(stub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dir := t.TempDir()
	stub.create = []string{filepath.Join(dir, "20240105_talk.mp3")}
	if _, err := client.DownloadAudio(context.Background(), "https://example.com/list", 0, dir); err != nil {
		t.Fatalf("DownloadAudio: %v", err)
	}
	args := stub.args[0]
	if n := len(args); n < 3 || args[n-3] != "--ffmpeg-location" || args[n-2] != "/opt/ffmpeg/bin" {
		t.Fatalf("expected --ffmpeg-location before the url, got %v", args)
	}
}

func TestDownloadAudioFailureWithoutFiles(t *testing.T) {
	client := newClient(t, &stubExecutor{err: errors.New("ffmpeg not found")})
	_, err := client.DownloadAudio(context.Background(), "https://example.com/list", 3, t.TempDir())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestAudioQuality(t *testing.T) {
	for in, want := range map[string]string{"192": "192K", "5": "5", "0": "0", "128K": "128K"} {
		if got := audioQuality(in); got != want {
			t.Fatalf("audioQuality(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListAudioFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.webm", "a.MP3", "notes.txt", "c.m4a"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}
	files, err := ListAudio(dir)
	if err != nil {
		t.Fatalf("ListAudio: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if diff := cmp.Diff([]string{"a.MP3", "b.webm", "c.m4a"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	missing, err := ListAudio(filepath.Join(dir, "absent"))
	if err != nil || len(missing) != 0 {
		t.Fatalf("missing dir should yield nothing, got %v %v", missing, err)
	}
}

func TestCommandExecutorStreamsOutput(t *testing.T) {
	setHelperCommand(t, "playlist")
	var lines []string
	err := commandExecutor{}.Run(context.Background(), "yt-dlp", []string{"--flat-playlist"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, `"id":"x1"`) || !strings.Contains(joined, "WARNING: skipped") {
		t.Fatalf("expected stdout and stderr lines, got %q", joined)
	}
}

func TestCommandExecutorReportsExitFailure(t *testing.T) {
	setHelperCommand(t, "failure")
	err := commandExecutor{}.Run(context.Background(), "yt-dlp", nil, nil)
	if err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestClientWithRealExecutorListsPlaylist(t *testing.T) {
	setHelperCommand(t, "playlist")
	client, err := New(config.Default().Scraper, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries, err := client.ListPlaylistItems(context.Background(), "https://example.com/list", 5)
	if err != nil {
		t.Fatalf("ListPlaylistItems: %v", err)
	}
	if len(entries) != 2 || entries[1].URL != "https://www.youtube.com/watch?v=x2" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("YTDLP_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("YTDLP_HELPER_MODE") {
	case "playlist":
		fmt.Println(`{"id":"x1","title":"One","url":"https://www.youtube.com/watch?v=x1"}`)
		fmt.Fprintln(os.Stderr, "WARNING: skipped private video")
		fmt.Println(`{"id":"x2","title":"Two"}`)
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "ERROR: unable to download")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
