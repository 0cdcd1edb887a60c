package preflight

import (
	"context"
	"log/slog"
	"strings"

	"notebrief/internal/backend"
	"notebrief/internal/backend/provider"
	"notebrief/internal/config"
)

// BackendBuilder constructs the configured backend.
type BackendBuilder func(*config.Config, *slog.Logger) (backend.Backend, error)

// CheckBackendFromConfig builds the configured backend and probes it. A nil
// build uses provider.New. Configuration problems are reported instead of
// returned.
func CheckBackendFromConfig(ctx context.Context, cfg *config.Config, build BackendBuilder, logger *slog.Logger) Result {
	const name = "Backend"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	kind := strings.TrimSpace(cfg.Backend.Kind)
	if build == nil {
		build = provider.New
	}
	b, err := build(cfg, logger)
	if err != nil {
		return Result{Name: name + " (" + kind + ")", Detail: err.Error()}
	}
	return CheckBackend(ctx, kind, b)
}

// CheckMirrorFromConfig summarizes the report mirror settings. The bucket is
// not contacted here; uploads create it on first use.
func CheckMirrorFromConfig(cfg *config.Config) Result {
	const name = "Report mirror"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Mirror.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.Mirror.Endpoint) == "" || strings.TrimSpace(cfg.Mirror.Bucket) == "" {
		return Result{Name: name, Detail: "Missing endpoint or bucket"}
	}
	if strings.TrimSpace(cfg.Mirror.AccessKey) == "" || strings.TrimSpace(cfg.Mirror.SecretKey) == "" {
		return Result{Name: name, Detail: "Missing credentials"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Mirror.Endpoint + "/" + cfg.Mirror.Bucket}
}
