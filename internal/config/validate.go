package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable. Backend credentials are not
// checked here because several commands never talk to a backend; the backend
// factory reports those.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateReadiness(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateReport(); err != nil {
		return err
	}
	if err := c.validateMirror(); err != nil {
		return err
	}
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackend() error {
	switch c.Backend.Kind {
	case "notebook", "llm":
	default:
		return fmt.Errorf("backend.kind %q is not supported (use notebook or llm)", c.Backend.Kind)
	}
	if err := ensurePositiveMap(map[string]int{
		"backend.timeout_seconds":       c.Backend.TimeoutSeconds,
		"backend.retry_attempts":        c.Backend.RetryAttempts,
		"backend.poll_interval_seconds": c.Backend.PollIntervalSeconds,
	}); err != nil {
		return err
	}
	if c.LLM.MaxSourceBytes <= 0 {
		return errors.New("llm.max_source_bytes must be positive")
	}
	return nil
}

func (c *Config) validateReadiness() error {
	if err := ensureNonNegativeMap(map[string]int{
		"readiness.url_wait_seconds":      c.Readiness.URLWaitSeconds,
		"readiness.document_wait_seconds": c.Readiness.DocumentWaitSeconds,
		"readiness.media_wait_seconds":    c.Readiness.MediaWaitSeconds,
		"readiness.digest_wait_seconds":   c.Readiness.DigestWaitSeconds,
	}); err != nil {
		return err
	}
	if c.Readiness.UploadTimeoutSeconds <= 0 {
		return errors.New("readiness.upload_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.PacingSeconds < 0 {
		return errors.New("batch.pacing_seconds must not be negative")
	}
	if err := ensurePositiveMap(map[string]int{
		"batch.playlist_limit": c.Batch.PlaylistLimit,
		"batch.download_limit": c.Batch.DownloadLimit,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	for key, bind := range map[string]string{
		"server.api_bind": c.Server.APIBind,
		"server.mcp_bind": c.Server.MCPBind,
	} {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("%s %q must be host:port: %w", key, bind, err)
		}
	}
	if c.Server.APIBind == c.Server.MCPBind && !ephemeralBind(c.Server.APIBind) {
		return errors.New("server.api_bind and server.mcp_bind must differ")
	}
	if err := ensurePositiveMap(map[string]int{
		"server.staging_max_age_hours":    c.Server.StagingMaxAgeHours,
		"server.shutdown_timeout_seconds": c.Server.ShutdownTimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

// ephemeralBind reports whether bind asks the kernel for a free port. Two
// such binds never collide.
func ephemeralBind(bind string) bool {
	_, port, err := net.SplitHostPort(bind)
	return err == nil && port == "0"
}

func (c *Config) validateReport() error {
	switch c.Report.Encoding {
	case "utf-8", "utf-8-bom", "utf-16le":
		return nil
	default:
		return fmt.Errorf("report.encoding %q is not supported (use utf-8, utf-8-bom, or utf-16le)", c.Report.Encoding)
	}
}

func (c *Config) validateMirror() error {
	if !c.Mirror.Enabled {
		return nil
	}
	if c.Mirror.Endpoint == "" {
		return errors.New("mirror.endpoint must be set when mirror.enabled is true")
	}
	if c.Mirror.Bucket == "" {
		return errors.New("mirror.bucket must be set when mirror.enabled is true")
	}
	if strings.Contains(c.Mirror.Endpoint, "://") {
		return errors.New("mirror.endpoint must be host[:port] without a scheme")
	}
	return nil
}

func (c *Config) validateScraper() error {
	if c.Scraper.SleepInterval < 0 {
		return errors.New("scraper.sleep_interval must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return errors.New("notifications.ntfy_topic must be a full http(s) URL such as https://ntfy.sh/my-topic")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
