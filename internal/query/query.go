package query

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"notebrief/internal/backend"
	"notebrief/internal/logging"
	"notebrief/internal/services"
	"notebrief/internal/session"
)

// Result is one answered prompt.
type Result struct {
	Prompt  string
	Answer  string
	AskedAt time.Time
}

// Runner issues prompts against a workspace.
type Runner struct {
	backend backend.Backend
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner constructs a query runner.
func NewRunner(b backend.Backend, logger *slog.Logger) *Runner {
	return &Runner{
		backend: b,
		logger:  logging.NewComponentLogger(logger, "query"),
		now:     time.Now,
	}
}

// Ask sends prompt to ws and returns the answer.
func (r *Runner) Ask(ctx context.Context, ws *session.Workspace, prompt string) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "query", "ask", "empty prompt", nil)
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldWorkspaceID, string(ws.ID)))
	asked := r.now()
	answer, err := r.backend.Query(ctx, ws.ID, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, services.Wrap(services.ErrQueryFailure, "query", "ask", ws.Title, err)
	}
	logger.Info("query answered",
		logging.String(logging.FieldEventType, "query_answered"),
		logging.Int("prompt_chars", len([]rune(prompt))),
		logging.Int("answer_chars", len([]rune(answer))),
		logging.Duration("elapsed", r.now().Sub(asked)),
	)
	return Result{Prompt: prompt, Answer: answer, AskedAt: asked}, nil
}

// AskAll issues prompts one after another against the same workspace. The
// first failure stops the sequence; results gathered so far are returned with
// the error.
func (r *Runner) AskAll(ctx context.Context, ws *session.Workspace, prompts []string) ([]Result, error) {
	results := make([]Result, 0, len(prompts))
	for _, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := r.Ask(ctx, ws, prompt)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
