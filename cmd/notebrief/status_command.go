package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notebrief/internal/deps"
	"notebrief/internal/preflight"
	"notebrief/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, dependencies, and backend reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string
			failed := 0

			lines = append(lines, renderSectionHeader("Paths", colorize)...)
			lines = append(lines,
				renderStatusLine("Reports", statusInfo, cfg.Paths.OutputDir, colorize),
				renderStatusLine("Downloads", statusInfo, cfg.Paths.DownloadDir, colorize),
				renderStatusLine("Manifest", statusInfo, cfg.Paths.Manifest, colorize),
				renderStatusLine("Run ledger", statusInfo, cfg.LedgerPath(), colorize),
				notificationStatusLine(cfg.Notifications.NtfyTopic, colorize),
			)

			checks := preflight.RunAll(cmd.Context(), cfg, nil)
			checks = append(checks,
				preflight.CheckBackendFromConfig(cmd.Context(), cfg, preflight.BackendBuilder(ctx.newBackend), logger),
				preflight.CheckMirrorFromConfig(cfg),
			)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			for _, check := range checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
					failed++
				}
				lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			for _, dep := range deps.Check(cfg) {
				lines = append(lines, renderStatusLine(dep.Name, dependencyKind(dep), dependencyDetail(dep), colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Staging", colorize)...)
			lines = append(lines, stagingStatusLine(cfg.Paths.StagingDir, colorize))

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			return nil
		},
	}
}

func dependencyKind(dep deps.Status) statusKind {
	switch {
	case dep.Available:
		return statusOK
	case dep.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func dependencyDetail(dep deps.Status) string {
	if dep.Available {
		return dep.Command
	}
	detail := dep.Detail
	if detail == "" {
		detail = "not found"
	}
	if dep.Optional {
		detail += " (optional: " + dep.Description + ")"
	}
	return detail
}

func stagingStatusLine(dir string, colorize bool) string {
	files, err := staging.ListFiles(dir)
	if err != nil {
		return renderStatusLine("Staged files", statusWarn, err.Error(), colorize)
	}
	if len(files) == 0 {
		return renderStatusLine("Staged files", statusOK, "none", colorize)
	}
	var size int64
	for _, file := range files {
		size += file.Size
	}
	msg := fmt.Sprintf("%d files, %d bytes; removed by the server sweep once stale", len(files), size)
	return renderStatusLine("Staged files", statusWarn, msg, colorize)
}

func notificationStatusLine(topic string, colorize bool) string {
	if strings.TrimSpace(topic) == "" {
		return renderStatusLine("Notifications", statusInfo, "disabled", colorize)
	}
	return renderStatusLine("Notifications", statusInfo, topic, colorize)
}
