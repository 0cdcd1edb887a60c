package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	DownloadDir string `toml:"download_dir"`
	StagingDir  string `toml:"staging_dir"`
	StateDir    string `toml:"state_dir"`
	Manifest    string `toml:"manifest"`
	ExportFile  string `toml:"export_file"`
}

// Backend selects and configures the analysis service.
type Backend struct {
	Kind                string `toml:"kind"`
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	RetryAttempts       int    `toml:"retry_attempts"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// LLM configures the OpenAI-compatible backend used when backend.kind is "llm".
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxSourceBytes int    `toml:"max_source_bytes"`
}

// Readiness holds the ingestion wait budgets, in seconds.
type Readiness struct {
	URLWaitSeconds       int `toml:"url_wait_seconds"`
	DocumentWaitSeconds  int `toml:"document_wait_seconds"`
	MediaWaitSeconds     int `toml:"media_wait_seconds"`
	DigestWaitSeconds    int `toml:"digest_wait_seconds"`
	UploadTimeoutSeconds int `toml:"upload_timeout_seconds"`
}

// Batch configures manifest-driven runs and the playlist helpers.
type Batch struct {
	PacingSeconds int    `toml:"pacing_seconds"`
	PlaylistURL   string `toml:"playlist_url"`
	PlaylistLimit int    `toml:"playlist_limit"`
	DownloadLimit int    `toml:"download_limit"`
	DigestTitle   string `toml:"digest_title"`
	DigestReport  string `toml:"digest_report"`
}

// Server configures the HTTP API and MCP listeners.
type Server struct {
	APIBind                string   `toml:"api_bind"`
	MCPBind                string   `toml:"mcp_bind"`
	CORSOrigins            []string `toml:"cors_origins"`
	APIToken               string   `toml:"api_token"`
	StagingMaxAgeHours     int      `toml:"staging_max_age_hours"`
	ShutdownTimeoutSeconds int      `toml:"shutdown_timeout_seconds"`
}

// Report controls how report files are written.
type Report struct {
	Encoding string `toml:"encoding"`
}

// Mirror configures optional upload of finished reports to S3-compatible storage.
type Mirror struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Scraper configures the yt-dlp collaborator.
type Scraper struct {
	Binary        string `toml:"binary"`
	AudioFormat   string `toml:"audio_format"`
	AudioQuality  string `toml:"audio_quality"`
	SleepInterval int    `toml:"sleep_interval"`

	// FFmpegLocation is passed to yt-dlp as --ffmpeg-location: the ffmpeg
	// binary or the directory holding it. Empty leaves yt-dlp on PATH.
	FFmpegLocation string `toml:"ffmpeg_location"`
}

// Notifications configures ntfy delivery of run summaries and failures.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for notebrief.
//
// Configuration sections by subsystem:
//   - Paths: report, download, staging, and state locations
//   - Backend: which analysis service to talk to and how
//   - LLM: settings for the OpenAI-compatible backend
//   - Readiness: ingestion wait budgets per source kind
//   - Batch: manifest pacing and playlist helpers
//   - Server: HTTP API and MCP listener settings
//   - Report: report file encoding
//   - Mirror: optional object storage copy of reports
//   - Scraper: yt-dlp binary and audio options
//   - Notifications: ntfy topic for run summaries
//   - Logging: log format, level, and file
type Config struct {
	Paths     Paths     `toml:"paths"`
	Backend   Backend   `toml:"backend"`
	LLM       LLM       `toml:"llm"`
	Readiness Readiness `toml:"readiness"`
	Batch     Batch     `toml:"batch"`
	Server    Server    `toml:"server"`
	Report    Report    `toml:"report"`
	Mirror    Mirror    `toml:"mirror"`
	Scraper   Scraper   `toml:"scraper"`
	Logging   Logging   `toml:"logging"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/notebrief/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("notebrief.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories commands write into. The download
// directory is created lazily by the commands that need it.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StagingDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite database holding batch run history.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// ServerLockPath returns the lock file that keeps a single server instance running.
func (c *Config) ServerLockPath() string {
	return filepath.Join(c.Paths.StateDir, "notebrief-server.lock")
}

// Pacing returns the delay inserted between batch items.
func (c *Config) Pacing() time.Duration {
	return seconds(c.Batch.PacingSeconds)
}

// ReadinessBudgets converts the readiness section to durations.
func (c *Config) ReadinessBudgets() ReadinessBudgets {
	return ReadinessBudgets{
		URL:      seconds(c.Readiness.URLWaitSeconds),
		Document: seconds(c.Readiness.DocumentWaitSeconds),
		Media:    seconds(c.Readiness.MediaWaitSeconds),
		Digest:   seconds(c.Readiness.DigestWaitSeconds),
		Upload:   seconds(c.Readiness.UploadTimeoutSeconds),
	}
}

// DefaultReadinessBudgets returns the readiness waits of an unmodified
// configuration.
func DefaultReadinessBudgets() ReadinessBudgets {
	cfg := Default()
	return cfg.ReadinessBudgets()
}

// ReadinessBudgets carries the ingestion waits used by the pipeline.
type ReadinessBudgets struct {
	URL      time.Duration
	Document time.Duration
	Media    time.Duration
	Digest   time.Duration
	Upload   time.Duration
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
