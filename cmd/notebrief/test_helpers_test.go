package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"notebrief/internal/backend"
	"notebrief/internal/backend/backendtest"
	"notebrief/internal/config"
	"notebrief/internal/logging"
	"notebrief/internal/scraper"
	"notebrief/internal/testsupport"
)

type stubScraper struct {
	entries []scraper.Entry
	files   []string
	err     error

	gotURL   string
	gotLimit int
	gotDir   string
}

func (s *stubScraper) ListPlaylistItems(_ context.Context, url string, limit int) ([]scraper.Entry, error) {
	s.gotURL, s.gotLimit = url, limit
	return s.entries, s.err
}

func (s *stubScraper) DownloadAudio(_ context.Context, url string, limit int, dir string) ([]string, error) {
	s.gotURL, s.gotLimit, s.gotDir = url, limit, dir
	return s.files, s.err
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	fake       *backendtest.Fake
	scraper    *stubScraper
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		fake:       backendtest.New(),
		scraper:    &stubScraper{},
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) newContext() *commandContext {
	var configFlag, logLevelFlag string
	ctx := newCommandContext(&configFlag, &logLevelFlag)
	ctx.newBackend = func(*config.Config, *slog.Logger) (backend.Backend, error) {
		return e.fake, nil
	}
	ctx.newScraper = func(config.Scraper, *slog.Logger) (scraper.Scraper, error) {
		return e.scraper, nil
	}
	ctx.sleep = func(context.Context, time.Duration) error { return nil }
	ctx.logger = logging.NewNop()
	return ctx
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return e.runContext(t, context.Background(), &bytes.Buffer{}, args...)
}

func (e *cliTestEnv) runContext(t *testing.T, ctx context.Context, stdout syncWriter, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWithContext(e.newContext())
	var stderr bytes.Buffer
	cmd.SetOut(stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

type syncWriter interface {
	Write(p []byte) (int, error)
	String() string
}

// lockedBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
