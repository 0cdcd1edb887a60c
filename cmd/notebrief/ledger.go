package main

import (
	"context"
	"errors"
	"time"

	"notebrief/internal/queue"
	"notebrief/internal/services"
	"notebrief/internal/workflow"
)

// runRecord tracks a single-item run (one file or one digest) in the ledger.
type runRecord struct {
	app  *app
	run  *queue.Run
	item *queue.RunItem
}

func (a *app) beginRecord(ctx context.Context, kind, source, identity, origin string) *runRecord {
	rec := &runRecord{app: a}
	if a.ledger == nil {
		return rec
	}
	run, err := a.ledger.BeginRun(ctx, kind, source, a.reports.Dir(), 1)
	if err != nil {
		a.ledgerWarning(err)
		return rec
	}
	rec.run = run
	item, err := a.ledger.AddItem(ctx, run.ID, 1, identity, origin)
	if err != nil {
		a.ledgerWarning(err)
		return rec
	}
	item.MarkRunning(time.Now())
	if err := a.ledger.UpdateItem(ctx, item); err != nil {
		a.ledgerWarning(err)
	}
	rec.item = item
	return rec
}

// finish stores the terminal state. It writes with a fresh context so an
// interrupted run is still recorded.
func (r *runRecord) finish(outcome *workflow.Outcome, runErr error) {
	if r == nil || r.run == nil {
		return
	}
	ctx := context.Background()
	now := time.Now()
	if r.item != nil {
		if outcome != nil && outcome.WorkspaceID != "" {
			r.item.WorkspaceID = string(outcome.WorkspaceID)
			ready := outcome.Ready
			r.item.SourceReady = &ready
		}
		switch {
		case runErr != nil:
			r.item.MarkFailed(services.Kind(runErr), runErr.Error(), now)
		default:
			reportPath := ""
			if outcome != nil && outcome.Report != nil {
				reportPath = outcome.Report.Path
			}
			r.item.MarkDone(reportPath, now)
		}
		if err := r.app.ledger.UpdateItem(ctx, r.item); err != nil {
			r.app.ledgerWarning(err)
		}
	}

	if runErr != nil {
		r.run.Failed = 1
	} else {
		r.run.Done = 1
	}
	if errors.Is(runErr, context.Canceled) {
		r.run.Status = queue.RunInterrupted
	}
	if err := r.app.ledger.FinishRun(ctx, r.run); err != nil {
		r.app.ledgerWarning(err)
	}
}
