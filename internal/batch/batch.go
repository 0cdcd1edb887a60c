package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"notebrief/internal/logging"
	"notebrief/internal/queue"
	"notebrief/internal/services"
	"notebrief/internal/workflow"
)

// LockFileName is created in the output directory while a batch runs.
const LockFileName = ".notebrief.lock"

// ErrLocked means another batch is writing to the same output directory.
var ErrLocked = errors.New("output directory locked by another batch")

// Event reports a state change of one item.
type Event struct {
	Index    int
	Total    int
	Identity string
	State    queue.Status
	Report   string
	Err      error
}

// Progress receives item events in order.
type Progress func(Event)

// ItemResult is the terminal record of one item.
type ItemResult struct {
	Position    int
	Identity    string
	State       queue.Status
	ReportPath  string
	ErrorKind   string
	Error       string
	SourceReady bool
	Duration    time.Duration
}

// Summary describes a finished batch.
type Summary struct {
	RunID   string
	Total   int
	Done    int
	Skipped int
	Failed  int
	Items   []ItemResult
}

// Runner executes manifest items one at a time through the pipeline.
type Runner struct {
	pipeline *workflow.Pipeline
	plan     workflow.Plan
	store    *queue.Store
	pacing   time.Duration
	progress Progress
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLedger records runs and items in store.
func WithLedger(store *queue.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithPacing sets the delay between items.
func WithPacing(d time.Duration) Option {
	return func(r *Runner) { r.pacing = d }
}

// WithProgress registers a progress callback.
func WithProgress(fn Progress) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithSleeper overrides how pacing delays are waited out.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRunner builds a batch runner applying plan to every item.
func NewRunner(pipeline *workflow.Pipeline, plan workflow.Plan, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		pipeline: pipeline,
		plan:     plan,
		sleep:    sleepContext,
		logger:   logging.NewComponentLogger(logger, "batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes items in order. Items with an existing report are skipped;
// failures are recorded and the batch continues. The returned error is non-nil
// only when the batch could not run at all or was cancelled.
func (r *Runner) Run(ctx context.Context, source string, items []workflow.Item) (*Summary, error) {
	reports := r.pipeline.Reports()
	if reports == nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "run", "no report writer configured", nil)
	}
	outputDir := reports.Dir()
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "run", "create output directory", err)
	}

	lock := flock.New(filepath.Join(outputDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, outputDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release batch lock", logging.Error(err))
		}
	}()

	summary := &Summary{Total: len(items)}
	run, records := r.beginLedger(ctx, source, outputDir, items)
	if run != nil {
		summary.RunID = run.ID
	}
	logger := r.logger.With(logging.String("run_id", summary.RunID))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("source", source),
		logging.Int("items", len(items)),
		logging.String("output_dir", outputDir),
	)

	var runErr error
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		var record *queue.RunItem
		if records != nil {
			record = records[i]
		}
		result, ran := r.runItem(ctx, i, len(items), item, record)
		summary.Items = append(summary.Items, result)
		switch result.State {
		case queue.StatusDone:
			summary.Done++
		case queue.StatusSkipped:
			summary.Skipped++
		case queue.StatusFailed:
			summary.Failed++
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			runErr = ctx.Err()
			break
		}
		// Skipped items never reached the backend, so they need no cooldown.
		if ran && i < len(items)-1 && r.pacing > 0 {
			if err := r.sleep(ctx, r.pacing); err != nil {
				runErr = err
				break
			}
		}
	}

	r.finishLedger(run, summary, runErr)
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("done", summary.Done),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, runErr
}

// runItem processes a single item. ran reports whether the backend was used.
func (r *Runner) runItem(ctx context.Context, index, total int, item workflow.Item, record *queue.RunItem) (ItemResult, bool) {
	result := ItemResult{Position: index + 1, Identity: item.Identity}
	event := Event{Index: index + 1, Total: total, Identity: item.Identity}
	reports := r.pipeline.Reports()
	subject := workflow.ReportSubject(item, r.plan.Layout)

	if reports.Exists(subject) {
		result.State = queue.StatusSkipped
		result.ReportPath = reports.Path(subject)
		r.logger.Info("item skipped, report exists",
			logging.String(logging.FieldItem, item.Identity),
			logging.String(logging.FieldEventType, "item_skipped"),
			logging.String("report", result.ReportPath),
		)
		if record != nil {
			record.MarkSkipped(result.ReportPath, time.Now())
			r.updateRecord(record)
		}
		event.State, event.Report = result.State, result.ReportPath
		r.emit(event)
		return result, false
	}

	event.State = queue.StatusRunning
	r.emit(event)
	if record != nil {
		record.MarkRunning(time.Now())
		r.updateRecord(record)
	}

	outcome, err := r.pipeline.Run(ctx, item, r.plan)
	if outcome != nil {
		result.Duration = outcome.Duration
		result.SourceReady = outcome.Ready
		if record != nil && outcome.WorkspaceID != "" {
			record.WorkspaceID = string(outcome.WorkspaceID)
			ready := outcome.Ready
			record.SourceReady = &ready
		}
	}
	if err != nil {
		result.State = queue.StatusFailed
		result.ErrorKind = services.Kind(err)
		result.Error = err.Error()
		if record != nil {
			record.MarkFailed(result.ErrorKind, result.Error, time.Now())
			r.updateRecord(record)
		}
		event.State, event.Err = result.State, err
		r.emit(event)
		return result, true
	}

	result.State = queue.StatusDone
	if outcome.Report != nil {
		result.ReportPath = outcome.Report.Path
	}
	if record != nil {
		record.MarkDone(result.ReportPath, time.Now())
		r.updateRecord(record)
	}
	event.State, event.Report = result.State, result.ReportPath
	r.emit(event)
	return result, true
}

func (r *Runner) emit(event Event) {
	if r.progress != nil {
		r.progress(event)
	}
}

func (r *Runner) beginLedger(ctx context.Context, source, outputDir string, items []workflow.Item) (*queue.Run, []*queue.RunItem) {
	if r.store == nil {
		return nil, nil
	}
	run, err := r.store.BeginRun(ctx, queue.KindBatch, source, outputDir, len(items))
	if err != nil {
		r.ledgerWarning(err)
		return nil, nil
	}
	records := make([]*queue.RunItem, len(items))
	for i, item := range items {
		record, err := r.store.AddItem(ctx, run.ID, i+1, item.Identity, item.Origin.Location)
		if err != nil {
			r.ledgerWarning(err)
			return run, nil
		}
		records[i] = record
	}
	return run, records
}

func (r *Runner) updateRecord(record *queue.RunItem) {
	if err := r.store.UpdateItem(context.Background(), record); err != nil {
		r.ledgerWarning(err)
	}
}

func (r *Runner) finishLedger(run *queue.Run, summary *Summary, runErr error) {
	if r.store == nil || run == nil {
		return
	}
	run.Done, run.Skipped, run.Failed = summary.Done, summary.Skipped, summary.Failed
	if runErr != nil {
		run.Status = queue.RunInterrupted
	}
	if err := r.store.FinishRun(context.Background(), run); err != nil {
		r.ledgerWarning(err)
	}
}

func (r *Runner) ledgerWarning(err error) {
	logging.WarnWithContext(r.logger, "run ledger update failed", "ledger_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "history for this run is incomplete"),
		logging.String(logging.FieldErrorHint, "check state_dir permissions and free space"),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
