package main

import (
	"fmt"
	"io"

	"notebrief/internal/batch"
	"notebrief/internal/queue"
	"notebrief/internal/services"
)

// progressPrinter writes one `[i/n]` line per batch event.
func progressPrinter(out io.Writer) batch.Progress {
	colorize := shouldColorize(out)
	return func(event batch.Event) {
		fmt.Fprintln(out, renderProgressLine(event, colorize))
	}
}

func renderProgressLine(event batch.Event, colorize bool) string {
	var detail string
	switch event.State {
	case queue.StatusRunning:
		detail = "analyzing"
	case queue.StatusSkipped:
		detail = "skipped, report exists"
	case queue.StatusDone:
		detail = event.Report
	case queue.StatusFailed:
		detail = fmt.Sprintf("%s: %v", services.Kind(event.Err), event.Err)
	default:
		detail = string(event.State)
	}
	line := fmt.Sprintf("[%d/%d] %s  %s %s", event.Index, event.Total, event.Identity, stateLabel(event.State), detail)
	return paint(line, stateKind(event.State), colorize)
}

func stateLabel(state queue.Status) string {
	switch state {
	case queue.StatusRunning:
		return "RUNNING"
	case queue.StatusSkipped:
		return "SKIPPED"
	case queue.StatusDone:
		return "DONE"
	case queue.StatusFailed:
		return "FAILED"
	default:
		return "PENDING"
	}
}
