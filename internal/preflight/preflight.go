package preflight

import (
	"context"

	"notebrief/internal/backend"
	"notebrief/internal/config"
)

// MinFreeBytes is the free space below which a working directory fails its
// check. Staged uploads and downloaded audio land there.
const MinFreeBytes = 512 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all filesystem checks and, when b is non-nil, the backend
// reachability check.
func RunAll(ctx context.Context, cfg *config.Config, b backend.Backend) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, MinFreeBytes),
	}

	if b != nil {
		results = append(results, CheckBackend(ctx, cfg.Backend.Kind, b))
	}
	return results
}
