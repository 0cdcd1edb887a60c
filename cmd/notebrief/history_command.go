package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notebrief/internal/queue"
)

type runView struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Source     string     `json:"source"`
	OutputDir  string     `json:"output_dir"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Done       int        `json:"done"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Items      []itemView `json:"items,omitempty"`
}

type itemView struct {
	Position    int    `json:"position"`
	Identity    string `json:"identity"`
	Origin      string `json:"origin"`
	Status      string `json:"status"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Error       string `json:"error,omitempty"`
	ReportPath  string `json:"report_path,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	SourceReady *bool  `json:"source_ready,omitempty"`
}

func newRunView(run *queue.Run) runView {
	return runView{
		ID:         run.ID,
		Kind:       run.Kind,
		Source:     run.Source,
		OutputDir:  run.OutputDir,
		Status:     string(run.Status),
		Total:      run.Total,
		Done:       run.Done,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func newItemView(item *queue.RunItem) itemView {
	return itemView{
		Position:    item.Position,
		Identity:    item.Identity,
		Origin:      item.Origin,
		Status:      string(item.Status),
		ErrorKind:   item.ErrorKind,
		Error:       item.ErrorMessage,
		ReportPath:  item.ReportPath,
		WorkspaceID: item.WorkspaceID,
		SourceReady: item.SourceReady,
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit           int
		runID           string
		identity        string
		jsonOutput      bool
		markInterrupted bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batch, digest, and file runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if markInterrupted {
				n, err := store.MarkInterrupted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Marked %d active runs as interrupted\n", n)
				return nil
			}

			if identity = strings.TrimSpace(identity); identity != "" {
				item, err := store.LastFailure(cmd.Context(), identity)
				if err != nil {
					return err
				}
				if item == nil {
					fmt.Fprintf(out, "No recorded failure for %q\n", identity)
					return nil
				}
				if jsonOutput {
					return writeJSON(cmd, newItemView(item))
				}
				fmt.Fprintf(out, "Run:    %s\nItem:   %s\nOrigin: %s\nError:  %s: %s\n",
					item.RunID, item.Identity, item.Origin, item.ErrorKind, item.ErrorMessage)
				return nil
			}

			if runID = strings.TrimSpace(runID); runID != "" {
				run, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", runID)
				}
				items, err := store.RunItems(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				view := newRunView(run)
				for _, item := range items {
					view.Items = append(view.Items, newItemView(item))
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}
				fmt.Fprint(out, renderRunDetail(run, items))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				views := make([]runView, 0, len(runs))
				for _, run := range runs {
					views = append(views, newRunView(run))
				}
				return writeJSON(cmd, views)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRunTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the items of one run (id or unique prefix)")
	cmd.Flags().StringVar(&identity, "item", "", "Show the most recent failure recorded for a title or file name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&markInterrupted, "mark-interrupted", false, "Close runs left active by a crash (only while nothing is running)")
	return cmd
}

func renderRunTable(runs []*queue.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Kind,
			string(run.Status),
			fmt.Sprintf("%d/%d/%d/%d", run.Done, run.Skipped, run.Failed, run.Total),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			formatDuration(run.Duration()),
			run.Source,
		})
	}
	return renderTable(
		[]string{"Run", "Kind", "Status", "Done/Skip/Fail/Total", "Started", "Took", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}

func renderRunDetail(run *queue.Run, items []*queue.RunItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s, %s)\n", run.ID, run.Kind, run.Status)
	fmt.Fprintf(&b, "Source: %s\nOutput: %s\n", run.Source, run.OutputDir)
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := item.ReportPath
		if item.Status == queue.StatusFailed {
			detail = item.ErrorKind + ": " + item.ErrorMessage
		}
		ready := ""
		if item.SourceReady != nil {
			ready = yesNo(*item.SourceReady)
		}
		rows = append(rows, []string{
			strconv.Itoa(item.Position),
			item.Identity,
			string(item.Status),
			ready,
			detail,
		})
	}
	b.WriteString(renderTable([]string{"#", "Item", "Status", "Ready", "Report / Error"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
	b.WriteString("\n")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	return d.Round(time.Second).String()
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
