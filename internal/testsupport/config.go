package testsupport

import (
	"path/filepath"
	"testing"

	"notebrief/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Readiness waits and pacing are zeroed so pipelines run without sleeping.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "reports")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.Manifest = filepath.Join(base, "video_urls.json")
	cfgVal.Paths.ExportFile = filepath.Join(base, "all_notebook_data.json")
	cfgVal.Backend.BaseURL = "http://127.0.0.1:0"
	cfgVal.Readiness.URLWaitSeconds = 0
	cfgVal.Readiness.DocumentWaitSeconds = 0
	cfgVal.Readiness.MediaWaitSeconds = 0
	cfgVal.Readiness.DigestWaitSeconds = 0
	cfgVal.Batch.PacingSeconds = 0
	cfgVal.Server.APIBind = "127.0.0.1:0"
	cfgVal.Server.MCPBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPacing sets the delay between batch items in seconds.
func WithPacing(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.PacingSeconds = seconds
	}
}

// WithEncoding sets the report encoding.
func WithEncoding(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Report.Encoding = name
	}
}

// WithBackendURL points the notebook backend at url.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.Kind = "notebook"
		b.cfg.Backend.BaseURL = url
	}
}

// BaseDir returns the temp root used for the config's paths.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
