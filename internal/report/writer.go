package report

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"notebrief/internal/fileutil"
	"notebrief/internal/logging"
	"notebrief/internal/query"
	"notebrief/internal/services"
)

// Mirror receives a copy of every persisted report.
type Mirror interface {
	Upload(ctx context.Context, key, localPath string) error
}

// Writer persists reports into one output directory.
type Writer struct {
	dir        string
	digestName string
	encoding   string
	mirror     Mirror
	logger     *slog.Logger
}

// Option customizes a Writer.
type Option func(*Writer)

// WithEncoding selects the on-disk encoding.
func WithEncoding(name string) Option {
	return func(w *Writer) { w.encoding = strings.ToLower(strings.TrimSpace(name)) }
}

// WithDigestName overrides the digest report file name.
func WithDigestName(name string) Option {
	return func(w *Writer) {
		if strings.TrimSpace(name) != "" {
			w.digestName = name
		}
	}
}

// WithMirror uploads each persisted report to m.
func WithMirror(m Mirror) Option {
	return func(w *Writer) { w.mirror = m }
}

// NewWriter returns a writer rooted at dir.
func NewWriter(dir string, logger *slog.Logger, opts ...Option) *Writer {
	w := &Writer{
		dir:        dir,
		digestName: "analysis_results.md",
		encoding:   EncodingUTF8,
		logger:     logging.NewComponentLogger(logger, "report"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Path returns where the report for subject is written.
func (w *Writer) Path(subject Subject) string {
	return filepath.Join(w.dir, subject.fileName(w.digestName))
}

// Exists reports whether subject already has a report. Batch runs use it as
// the completion marker.
func (w *Writer) Exists(subject Subject) bool {
	return fileutil.Exists(w.Path(subject))
}

// Persist renders results for subject and writes them, replacing any existing
// report. Mirror failures are logged and do not fail the call.
func (w *Writer) Persist(ctx context.Context, subject Subject, results []query.Result) (Report, error) {
	enc, err := encoderFor(w.encoding)
	if err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "report", "persist", "", err)
	}
	rep := Build(subject, results)
	rep.Path = w.Path(subject)

	data, err := encode(enc, rep.Markdown())
	if err != nil {
		return Report{}, services.Wrap(services.ErrValidation, "report", "persist", rep.Path, err)
	}
	if err := fileutil.WriteFileAtomic(rep.Path, data, 0o644); err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "report", "persist", rep.Path, err)
	}

	logger := logging.WithContext(ctx, w.logger)
	logger.Info("report written",
		logging.String(logging.FieldEventType, "report_written"),
		logging.String("path", rep.Path),
		logging.String("layout", subject.Layout.String()),
		logging.Int("sections", len(rep.Sections)),
	)

	if w.mirror != nil {
		key := filepath.Base(rep.Path)
		if err := w.mirror.Upload(ctx, key, rep.Path); err != nil {
			logging.WarnWithContext(logger, "report mirror upload failed", "report_mirror_failed",
				logging.String("path", rep.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "report exists locally only"),
				logging.String(logging.FieldErrorHint, "check mirror endpoint, bucket and credentials"),
			)
		}
	}
	return rep, nil
}
