package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBackend()
	c.normalizeLLM()
	c.normalizeBatch()
	c.normalizeServer()
	c.normalizeReport()
	c.normalizeMirror()
	c.normalizeScraper()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = filepath.Join(os.TempDir(), "notebrief-staging")
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.Manifest) == "" {
		c.Paths.Manifest = defaultManifest
	}
	if c.Paths.Manifest, err = expandPath(c.Paths.Manifest); err != nil {
		return fmt.Errorf("paths.manifest: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportFile) == "" {
		c.Paths.ExportFile = defaultExportFile
	}
	if c.Paths.ExportFile, err = expandPath(c.Paths.ExportFile); err != nil {
		return fmt.Errorf("paths.export_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackend() {
	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	if c.Backend.Kind == "" {
		c.Backend.Kind = defaultBackendKind
	}
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.APIKey == "" {
		if value, ok := os.LookupEnv("NOTEBRIEF_API_KEY"); ok {
			c.Backend.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
}

func (c *Config) normalizeBatch() {
	c.Batch.PlaylistURL = strings.TrimSpace(c.Batch.PlaylistURL)
	c.Batch.DigestTitle = strings.TrimSpace(c.Batch.DigestTitle)
	if c.Batch.DigestTitle == "" {
		c.Batch.DigestTitle = defaultDigestTitle
	}
	c.Batch.DigestReport = strings.TrimSpace(c.Batch.DigestReport)
	if c.Batch.DigestReport == "" {
		c.Batch.DigestReport = defaultDigestReport
	}
}

func (c *Config) normalizeServer() {
	c.Server.APIBind = strings.TrimSpace(c.Server.APIBind)
	if c.Server.APIBind == "" {
		c.Server.APIBind = defaultAPIBind
	}
	c.Server.MCPBind = strings.TrimSpace(c.Server.MCPBind)
	if c.Server.MCPBind == "" {
		c.Server.MCPBind = defaultMCPBind
	}
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.Server.CORSOrigins = origins
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("NOTEBRIEF_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeReport() {
	c.Report.Encoding = strings.ToLower(strings.TrimSpace(c.Report.Encoding))
	switch c.Report.Encoding {
	case "", "utf8":
		c.Report.Encoding = defaultReportEncoding
	case "utf8-bom":
		c.Report.Encoding = "utf-8-bom"
	case "utf16le":
		c.Report.Encoding = "utf-16le"
	}
}

func (c *Config) normalizeMirror() {
	if c.Mirror.AccessKey == "" {
		if value, ok := os.LookupEnv("MINIO_ACCESS_KEY"); ok {
			c.Mirror.AccessKey = strings.TrimSpace(value)
		}
	}
	if c.Mirror.SecretKey == "" {
		if value, ok := os.LookupEnv("MINIO_SECRET_KEY"); ok {
			c.Mirror.SecretKey = strings.TrimSpace(value)
		}
	}
	c.Mirror.Endpoint = strings.TrimSpace(c.Mirror.Endpoint)
	c.Mirror.Bucket = strings.TrimSpace(c.Mirror.Bucket)
	c.Mirror.Prefix = strings.Trim(strings.TrimSpace(c.Mirror.Prefix), "/")
}

func (c *Config) normalizeScraper() {
	c.Scraper.Binary = strings.TrimSpace(c.Scraper.Binary)
	if c.Scraper.Binary == "" {
		c.Scraper.Binary = defaultScraperBinary
	}
	c.Scraper.AudioFormat = strings.ToLower(strings.TrimSpace(c.Scraper.AudioFormat))
	if c.Scraper.AudioFormat == "" {
		c.Scraper.AudioFormat = defaultAudioFormat
	}
	c.Scraper.AudioQuality = strings.TrimSpace(c.Scraper.AudioQuality)
	if c.Scraper.AudioQuality == "" {
		c.Scraper.AudioQuality = defaultAudioQuality
	}
	c.Scraper.FFmpegLocation = strings.TrimSpace(c.Scraper.FFmpegLocation)
	if c.Scraper.FFmpegLocation != "" {
		if expanded, err := expandPath(c.Scraper.FFmpegLocation); err == nil {
			c.Scraper.FFmpegLocation = expanded
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		if expanded, err := expandPath(file); err == nil {
			c.Logging.File = expanded
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(os.Getenv("NOTEBRIEF_NTFY_TOPIC"))
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}
