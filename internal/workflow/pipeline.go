package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"notebrief/internal/ingest"
	"notebrief/internal/logging"
	"notebrief/internal/query"
	"notebrief/internal/report"
	"notebrief/internal/services"
	"notebrief/internal/session"
)

// Pipeline runs items through acquire, attach, await, query, persist and release.
type Pipeline struct {
	sessions *session.Manager
	ingestor *ingest.Ingestor
	queries  *query.Runner
	reports  *report.Writer
	logger   *slog.Logger
}

// NewPipeline wires the pipeline components. reports may be nil when no plan
// persists.
func NewPipeline(sessions *session.Manager, ingestor *ingest.Ingestor, queries *query.Runner, reports *report.Writer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		sessions: sessions,
		ingestor: ingestor,
		queries:  queries,
		reports:  reports,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// Reports returns the report writer.
func (p *Pipeline) Reports() *report.Writer { return p.reports }

// ReportSubject returns the report subject an item would be written under.
func ReportSubject(item Item, layout report.Layout) report.Subject {
	return report.Subject{Layout: layout, Identity: item.Identity, Source: item.Origin.Location}
}

// Run executes one item according to plan.
func (p *Pipeline) Run(ctx context.Context, item Item, plan Plan) (*Outcome, error) {
	start := time.Now()
	ctx = withItemContext(ctx, item.Identity)
	logger := logging.WithContext(ctx, p.logger)

	prepared, err := p.ingestor.Prepare(ctx, item.Origin)
	if err != nil {
		p.logFailure(logger, "prepare", err)
		return nil, err
	}
	defer func() {
		if cleanupErr := prepared.Cleanup(); cleanupErr != nil {
			logger.Warn("staged file cleanup failed",
				logging.Error(cleanupErr),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldImpact, "orphaned file stays until the next staging sweep"),
			)
		}
	}()

	identity := strings.TrimSpace(item.Identity)
	if identity == "" {
		identity = prepared.Name
	}
	if plan.Persist && p.reports == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "run", "no report writer configured", nil)
	}
	prompt := query.Resolve(item.Prompt, defaultPrompt(plan, identity))
	outcome := &Outcome{Identity: identity, Title: plan.TitlePrefix + identity}

	logger.Info("item started",
		logging.String(logging.FieldEventType, "item_start"),
		logging.String("title", outcome.Title),
		logging.String("origin", string(item.Origin.Kind)),
		logging.String("policy", plan.Policy.String()),
	)

	err = p.sessions.With(ctx, outcome.Title, func(ctx context.Context, ws *session.Workspace) error {
		outcome.WorkspaceID = ws.ID
		att, err := p.ingestor.Attach(ctx, ws, prepared, plan.Policy)
		if err != nil {
			return err
		}
		outcome.Ready = att.Ready
		outcome.Sources = 1

		result, err := p.queries.Ask(ctx, ws, prompt)
		if err != nil {
			return err
		}
		outcome.Results = []query.Result{result}

		if plan.Persist {
			subject := report.Subject{Layout: plan.Layout, Identity: identity, Source: item.Origin.Location}
			rep, err := p.reports.Persist(ctx, subject, outcome.Results)
			if err != nil {
				return err
			}
			outcome.Report = &rep
		}
		return nil
	})
	outcome.Duration = time.Since(start)
	if err != nil {
		p.logFailure(logger, "run", err)
		return outcome, err
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "item_complete"),
		logging.String(logging.FieldWorkspaceID, string(outcome.WorkspaceID)),
		logging.Bool("source_ready", outcome.Ready),
		logging.Duration("item_duration", outcome.Duration),
	}
	if outcome.Report != nil {
		attrs = append(attrs, logging.String("report", outcome.Report.Path))
	}
	logger.Info("item completed", logging.Args(attrs...)...)
	return outcome, nil
}

// Digest describes a multi-source run: every origin goes into one workspace
// which is then asked each query in order.
type Digest struct {
	Title   string
	Origins []ingest.Origin
	Queries []string
	Policy  ingest.Policy
	Persist bool
}

// RunDigest executes a multi-source digest. Origins that cannot be prepared or
// attached are logged and skipped; the run fails only when none attach.
func (p *Pipeline) RunDigest(ctx context.Context, digest Digest) (*Outcome, error) {
	start := time.Now()
	ctx = withItemContext(ctx, digest.Title)
	logger := logging.WithContext(ctx, p.logger)

	if len(digest.Origins) == 0 {
		return nil, services.Wrap(services.ErrSourceNotFound, "workflow", "digest", "no sources to analyze", nil)
	}
	if len(digest.Queries) == 0 {
		return nil, services.Wrap(services.ErrValidation, "workflow", "digest", "no queries", nil)
	}
	if digest.Persist && p.reports == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "digest", "no report writer configured", nil)
	}

	prepared := make([]*ingest.Prepared, 0, len(digest.Origins))
	defer func() {
		for _, item := range prepared {
			_ = item.Cleanup()
		}
	}()
	for _, origin := range digest.Origins {
		item, err := p.ingestor.Prepare(ctx, origin)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.WarnWithContext(logger, "skipping source that could not be prepared", "source_prepare_skipped",
				logging.String("source", origin.Location),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "source missing from the combined analysis"),
			)
			continue
		}
		prepared = append(prepared, item)
	}
	if len(prepared) == 0 {
		err := services.Wrap(services.ErrSourceNotFound, "workflow", "digest", "no usable sources", nil)
		p.logFailure(logger, "prepare", err)
		return nil, err
	}

	outcome := &Outcome{Identity: digest.Title, Title: digest.Title}
	logger.Info("digest started",
		logging.String(logging.FieldEventType, "digest_start"),
		logging.Int("sources", len(prepared)),
		logging.Int("queries", len(digest.Queries)),
	)
	err := p.sessions.With(ctx, digest.Title, func(ctx context.Context, ws *session.Workspace) error {
		outcome.WorkspaceID = ws.ID
		attached, err := p.ingestor.AttachAll(ctx, ws, prepared, digest.Policy)
		if err != nil {
			return err
		}
		if len(attached) == 0 {
			return services.Wrap(services.ErrValidation, "workflow", "digest", "no source could be attached", nil)
		}
		outcome.Sources = len(attached)
		outcome.Ready = true

		results, err := p.queries.AskAll(ctx, ws, digest.Queries)
		outcome.Results = results
		if err != nil {
			return err
		}
		if digest.Persist {
			rep, err := p.reports.Persist(ctx, report.Subject{Layout: report.LayoutDigest, Identity: digest.Title}, results)
			if err != nil {
				return err
			}
			outcome.Report = &rep
		}
		return nil
	})
	outcome.Duration = time.Since(start)
	if err != nil {
		p.logFailure(logger, "digest", err)
		return outcome, err
	}
	logger.Info("digest completed",
		logging.String(logging.FieldEventType, "digest_complete"),
		logging.Int("sources", outcome.Sources),
		logging.Duration("item_duration", outcome.Duration),
	)
	return outcome, nil
}

func (p *Pipeline) logFailure(logger *slog.Logger, phase string, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Debug("item interrupted", logging.String("phase", phase))
		return
	}
	logging.ErrorWithContext(logger, "item failed", "item_failure",
		logging.String("phase", phase),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
}

func defaultPrompt(plan Plan, identity string) string {
	if plan.DefaultPrompt == nil {
		return query.FilePrompt(identity)
	}
	return plan.DefaultPrompt(identity)
}

func withItemContext(ctx context.Context, identity string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if identity != "" {
		ctx = services.WithItem(ctx, identity)
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	return ctx
}
