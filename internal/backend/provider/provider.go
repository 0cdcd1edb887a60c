// Package provider builds the configured analysis backend.
package provider

import (
	"fmt"
	"log/slog"
	"time"

	"notebrief/internal/backend"
	"notebrief/internal/backend/llm"
	"notebrief/internal/backend/notebook"
	"notebrief/internal/config"
	"notebrief/internal/services"
)

// New returns the backend selected by backend.kind. Missing credentials are
// reported here as services.ErrConfiguration.
func New(cfg *config.Config, logger *slog.Logger) (backend.Backend, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "provider", "config is required", nil)
	}
	switch cfg.Backend.Kind {
	case "notebook":
		if cfg.Backend.BaseURL == "" {
			return nil, services.Wrap(services.ErrConfiguration, "backend", "provider",
				"backend.base_url must be set for the notebook backend", nil)
		}
		return notebook.NewClient(
			notebook.Config{
				BaseURL:        cfg.Backend.BaseURL,
				APIKey:         cfg.Backend.APIKey,
				TimeoutSeconds: cfg.Backend.TimeoutSeconds,
			},
			notebook.WithRetryMaxAttempts(cfg.Backend.RetryAttempts),
			notebook.WithPollInterval(time.Duration(cfg.Backend.PollIntervalSeconds)*time.Second),
			notebook.WithLogger(logger),
		), nil
	case "llm":
		return llm.New(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			MaxSourceBytes: cfg.LLM.MaxSourceBytes,
			TimeoutSeconds: cfg.Backend.TimeoutSeconds,
		}, llm.WithLogger(logger))
	default:
		return nil, services.Wrap(services.ErrConfiguration, "backend", "provider",
			fmt.Sprintf("unsupported backend kind %q", cfg.Backend.Kind), nil)
	}
}
