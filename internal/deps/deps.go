// Package deps reports whether the external binaries notebrief shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"notebrief/internal/config"
)

// Requirement defines an external dependency notebrief relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries used by the configured features. Only the
// playlist and download commands need them, so both are optional.
func Requirements(cfg *config.Config) []Requirement {
	binary := "yt-dlp"
	if cfg != nil && strings.TrimSpace(cfg.Scraper.Binary) != "" {
		binary = cfg.Scraper.Binary
	}
	return []Requirement{
		{
			Name:        "yt-dlp",
			Command:     binary,
			Description: "Lists playlists and downloads audio",
			Optional:    true,
		},
	}
}

// Check evaluates Requirements and the ffmpeg binary yt-dlp will use for audio
// extraction.
func Check(cfg *config.Config) []Status {
	var location string
	if cfg != nil {
		location = cfg.Scraper.FFmpegLocation
	}
	return append(CheckBinaries(Requirements(cfg)), CheckFFmpeg(location))
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
