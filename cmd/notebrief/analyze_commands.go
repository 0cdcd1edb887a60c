package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notebrief/internal/batch"
	"notebrief/internal/ingest"
	"notebrief/internal/notifications"
	"notebrief/internal/query"
	"notebrief/internal/queue"
	"notebrief/internal/scraper"
	"notebrief/internal/services"
	"notebrief/internal/workflow"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run sources through the analysis pipeline",
	}
	cmd.AddCommand(newAnalyzeFileCommand(ctx))
	cmd.AddCommand(newAnalyzeURLsCommand(ctx))
	cmd.AddCommand(newAnalyzeDownloadsCommand(ctx))
	return cmd
}

func newAnalyzeFileCommand(ctx *commandContext) *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Analyze one local file and write its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.buildApp(appOptions{ledger: true})
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			name := filepath.Base(path)
			item := workflow.Item{Identity: name, Origin: ingest.LocalFile(path), Prompt: prompt}

			rec := a.beginRecord(cmd.Context(), queue.KindFile, path, name, path)
			outcome, err := a.pipeline.Run(cmd.Context(), item, workflow.LocalFilePlan(name, a.budgets))
			rec.finish(outcome, err)
			if err != nil {
				a.notifyFailure(cmd.Context(), name, err)
				return err
			}
			payload := notifications.Payload{"file": name}
			if outcome.Report != nil {
				payload["report"] = outcome.Report.Path
			}
			a.notify(cmd.Context(), notifications.EventFileCompleted, payload)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, outcome.Answer())
			if outcome.Report != nil {
				fmt.Fprintf(out, "\nReport: %s\n", outcome.Report.Path)
			}
			if !outcome.Ready {
				fmt.Fprintln(out, "Note: the source was still processing when the query ran.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Custom prompt instead of the default analysis prompt")
	return cmd
}

func newAnalyzeURLsCommand(ctx *commandContext) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "urls",
		Short: "Analyze every URL in the manifest, skipping those with reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.buildApp(appOptions{ledger: true})
			if err != nil {
				return err
			}
			defer a.Close()

			path := strings.TrimSpace(manifest)
			if path == "" {
				path = a.cfg.Paths.Manifest
			}
			entries, err := batch.LoadManifest(path)
			if err != nil {
				return err
			}
			items := make([]workflow.Item, 0, len(entries))
			for _, entry := range entries {
				items = append(items, entry.Item())
			}

			out := cmd.OutOrStdout()
			runner := batch.NewRunner(a.pipeline, workflow.BatchURLPlan(a.budgets), a.logger,
				batch.WithLedger(a.ledger),
				batch.WithPacing(a.cfg.Pacing()),
				batch.WithProgress(progressPrinter(out)),
				batch.WithSleeper(ctx.sleep),
			)
			started := time.Now()
			summary, runErr := runner.Run(cmd.Context(), path, items)
			if summary != nil {
				fmt.Fprintln(out)
				fmt.Fprint(out, renderBatchSummary(summary))
			}
			if runErr != nil {
				a.notifyFailure(cmd.Context(), "batch "+filepath.Base(path), runErr)
				return runErr
			}
			a.notify(cmd.Context(), notifications.EventBatchCompleted, notifications.Payload{
				"done":     summary.Done,
				"skipped":  summary.Skipped,
				"failed":   summary.Failed,
				"total":    summary.Total,
				"duration": time.Since(started),
			})
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d items failed; re-run to retry them", summary.Failed, summary.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Manifest file (defaults to paths.manifest)")
	return cmd
}

func renderBatchSummary(summary *batch.Summary) string {
	rows := make([][]string, 0, len(summary.Items))
	for _, item := range summary.Items {
		detail := item.ReportPath
		if item.State == queue.StatusFailed {
			detail = item.ErrorKind + ": " + item.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Position),
			item.Identity,
			stateLabel(item.State),
			detail,
		})
	}
	var b strings.Builder
	b.WriteString(renderTable([]string{"#", "Title", "State", "Report / Error"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Done: %d  Skipped: %d  Failed: %d  Total: %d\n",
		summary.Done, summary.Skipped, summary.Failed, summary.Total)
	if summary.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", summary.RunID)
	}
	return b.String()
}

func newAnalyzeDownloadsCommand(ctx *commandContext) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "downloads",
		Short: "Analyze every downloaded audio file together in one digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.buildApp(appOptions{ledger: true})
			if err != nil {
				return err
			}
			defer a.Close()

			source := strings.TrimSpace(dir)
			if source == "" {
				source = a.cfg.Paths.DownloadDir
			}
			files, err := scraper.ListAudio(source)
			if err != nil {
				return services.Wrap(services.ErrSourceNotFound, "cli", "list downloads", source, err)
			}
			if len(files) == 0 {
				return services.Wrap(services.ErrSourceNotFound, "cli", "list downloads",
					fmt.Sprintf("no audio files in %s; run `notebrief download` first", source), nil)
			}
			origins := make([]ingest.Origin, 0, len(files))
			for _, file := range files {
				origins = append(origins, ingest.LocalFile(file))
			}

			title := a.cfg.Batch.DigestTitle
			rec := a.beginRecord(cmd.Context(), queue.KindDigest, source, title, source)
			outcome, err := a.pipeline.RunDigest(cmd.Context(), workflow.Digest{
				Title:   title,
				Origins: origins,
				Queries: query.DigestQueries(),
				Policy:  a.budgets.ForDigest(),
				Persist: true,
			})
			rec.finish(outcome, err)
			if err != nil {
				a.notifyFailure(cmd.Context(), "digest", err)
				return err
			}
			payload := notifications.Payload{"title": title, "sources": outcome.Sources}
			if outcome.Report != nil {
				payload["report"] = outcome.Report.Path
			}
			a.notify(cmd.Context(), notifications.EventDigestCompleted, payload)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Analyzed %d of %d audio files\n", outcome.Sources, len(files))
			if outcome.Report != nil {
				fmt.Fprintf(out, "Report: %s\n", outcome.Report.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Audio directory (defaults to paths.download_dir)")
	return cmd
}
