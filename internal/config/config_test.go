package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"notebrief/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("NOTEBRIEF_API_KEY", "gateway-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "notebrief")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	for name, value := range map[string]string{
		"output_dir":   cfg.Paths.OutputDir,
		"download_dir": cfg.Paths.DownloadDir,
		"staging_dir":  cfg.Paths.StagingDir,
		"manifest":     cfg.Paths.Manifest,
	} {
		if !filepath.IsAbs(value) {
			t.Fatalf("expected %s to be absolute, got %q", name, value)
		}
	}
	if filepath.Base(cfg.Paths.OutputDir) != "analysis_reports2" {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Backend.Kind != "notebook" {
		t.Fatalf("unexpected backend kind: %q", cfg.Backend.Kind)
	}
	if cfg.Backend.APIKey != "gateway-key" {
		t.Fatalf("expected backend key from env, got %q", cfg.Backend.APIKey)
	}
	if cfg.LLM.APIKey != "openai-key" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Server.APIBind != "0.0.0.0:52501" || cfg.Server.MCPBind != "0.0.0.0:52500" {
		t.Fatalf("unexpected binds: %q %q", cfg.Server.APIBind, cfg.Server.MCPBind)
	}
	if cfg.Pacing() != 2*time.Second {
		t.Fatalf("unexpected pacing: %v", cfg.Pacing())
	}
	budgets := cfg.ReadinessBudgets()
	if budgets.URL != 5*time.Second || budgets.Document != 10*time.Second || budgets.Media != 15*time.Second {
		t.Fatalf("unexpected readiness budgets: %+v", budgets)
	}
	if budgets.Upload != 120*time.Second {
		t.Fatalf("unexpected upload timeout: %v", budgets.Upload)
	}
	if cfg.Report.Encoding != "utf-8" {
		t.Fatalf("unexpected encoding: %q", cfg.Report.Encoding)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[paths]
output_dir = "~/reports"

[backend]
kind = "LLM"

[batch]
pacing_seconds = 0

[report]
encoding = "UTF16LE"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "reports") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Backend.Kind != "llm" {
		t.Fatalf("expected backend kind normalized to llm, got %q", cfg.Backend.Kind)
	}
	if cfg.Pacing() != 0 {
		t.Fatalf("expected zero pacing, got %v", cfg.Pacing())
	}
	if cfg.Report.Encoding != "utf-16le" {
		t.Fatalf("unexpected encoding: %q", cfg.Report.Encoding)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Batch.PlaylistLimit != 240 {
		t.Fatalf("unexpected playlist limit: %d", cfg.Batch.PlaylistLimit)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown backend", func(c *config.Config) { c.Backend.Kind = "gemini" }, "backend.kind"},
		{"zero retries", func(c *config.Config) { c.Backend.RetryAttempts = 0 }, "backend.retry_attempts must be positive"},
		{"negative wait", func(c *config.Config) { c.Readiness.MediaWaitSeconds = -1 }, "readiness.media_wait_seconds"},
		{"zero upload timeout", func(c *config.Config) { c.Readiness.UploadTimeoutSeconds = 0 }, "readiness.upload_timeout_seconds"},
		{"negative pacing", func(c *config.Config) { c.Batch.PacingSeconds = -2 }, "batch.pacing_seconds"},
		{"bad bind", func(c *config.Config) { c.Server.APIBind = "52501" }, "server.api_bind"},
		{"same binds", func(c *config.Config) { c.Server.MCPBind = c.Server.APIBind }, "must differ"},
		{"bad encoding", func(c *config.Config) { c.Report.Encoding = "latin1" }, "report.encoding"},
		{"mirror without bucket", func(c *config.Config) {
			c.Mirror.Enabled = true
			c.Mirror.Endpoint = "localhost:9000"
		}, "mirror.bucket"},
		{"mirror with scheme", func(c *config.Config) {
			c.Mirror.Enabled = true
			c.Mirror.Endpoint = "http://localhost:9000"
			c.Mirror.Bucket = "reports"
		}, "without a scheme"},
		{"bare ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }, "notifications.ntfy_topic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateAllowsEphemeralBindsAndNoPlaylist(t *testing.T) {
	cfg := config.Default()
	cfg.Server.APIBind = "127.0.0.1:0"
	cfg.Server.MCPBind = "127.0.0.1:0"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("two port-0 binds should validate: %v", err)
	}
	if cfg.Batch.PlaylistURL != "" {
		t.Fatalf("expected no built-in playlist URL, got %q", cfg.Batch.PlaylistURL)
	}
}

func TestDefaultReadinessBudgets(t *testing.T) {
	budgets := config.DefaultReadinessBudgets()
	if budgets.URL != 5*time.Second || budgets.Document != 10*time.Second ||
		budgets.Media != 15*time.Second || budgets.Upload != 120*time.Second {
		t.Fatalf("unexpected default budgets %+v", budgets)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "reports")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.StateDir = filepath.Join(base, "state")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StagingDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
	if filepath.Dir(cfg.LedgerPath()) != cfg.Paths.StateDir {
		t.Fatalf("ledger should live in state dir, got %q", cfg.LedgerPath())
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed map[string]any
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if _, ok := parsed["backend"]; !ok {
		t.Fatal("sample config missing backend section")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/notes")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "notes") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	empty, err := config.ExpandPath("")
	if err != nil || empty != "" {
		t.Fatalf("expected empty passthrough, got %q %v", empty, err)
	}
}
