package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"notebrief/internal/backend"
	"notebrief/internal/fileutil"
	"notebrief/internal/logging"
	"notebrief/internal/services"
)

// Source is one attached source in the export file.
type Source struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
	Type  string  `json:"type"`
	URL   *string `json:"url"`
}

// Note is one saved note in the export file.
type Note struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Notebook is one workspace with everything attached to it.
type Notebook struct {
	Title   string   `json:"notebook_title"`
	ID      string   `json:"notebook_id"`
	Sources []Source `json:"sources"`
	Notes   []Note   `json:"notes"`
}

// Inventory returns b as a backend.Inventory, or ErrUnsupported when the
// backend cannot enumerate its workspaces.
func Inventory(b backend.Backend) (backend.Inventory, error) {
	inv, ok := b.(backend.Inventory)
	if !ok {
		return nil, services.Wrap(services.ErrUnsupported, "export", "inventory",
			"the configured backend cannot list workspaces", nil)
	}
	return inv, nil
}

// Exporter walks every workspace of an inventory.
type Exporter struct {
	inventory backend.Inventory
	logger    *slog.Logger
}

// NewExporter constructs an exporter.
func NewExporter(inv backend.Inventory, logger *slog.Logger) *Exporter {
	return &Exporter{inventory: inv, logger: logging.NewComponentLogger(logger, "export")}
}

// Collect lists every workspace with its sources and notes. Failing to list
// the workspaces is fatal; failing to list one workspace's sources or notes is
// logged and leaves that list empty.
func (e *Exporter) Collect(ctx context.Context) ([]Notebook, error) {
	logger := logging.WithContext(ctx, e.logger)
	workspaces, err := e.inventory.ListWorkspaces(ctx)
	if err != nil {
		if services.Classified(err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrBackendUnavailable, "export", "list workspaces", "", err)
	}
	logger.Info("workspaces listed",
		logging.String(logging.FieldEventType, "export_workspaces"),
		logging.Int("count", len(workspaces)),
	)

	out := make([]Notebook, 0, len(workspaces))
	for i, ws := range workspaces {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		nb := Notebook{Title: ws.Title, ID: string(ws.ID), Sources: []Source{}, Notes: []Note{}}

		sources, err := e.inventory.ListSources(ctx, ws.ID)
		if err != nil {
			e.warnPartial(logger, ws, "sources", err)
		}
		for _, s := range sources {
			nb.Sources = append(nb.Sources, Source{ID: s.ID, Title: s.Title, Type: sourceType(s.Type), URL: s.URL})
		}

		notes, err := e.inventory.ListNotes(ctx, ws.ID)
		if err != nil {
			e.warnPartial(logger, ws, "notes", err)
		}
		for _, n := range notes {
			title := n.Title
			if title == "" {
				title = "Untitled"
			}
			nb.Notes = append(nb.Notes, Note{ID: n.ID, Title: title, Content: n.Content})
		}

		logger.Debug("workspace exported",
			logging.String("workspace", ws.Title),
			logging.Int("position", i+1),
			logging.Int("sources", len(nb.Sources)),
			logging.Int("notes", len(nb.Notes)),
		)
		out = append(out, nb)
	}
	return out, nil
}

func (e *Exporter) warnPartial(logger *slog.Logger, ws backend.WorkspaceInfo, what string, err error) {
	logging.WarnWithContext(logger, fmt.Sprintf("failed to list %s", what), "export_partial",
		logging.String(logging.FieldWorkspaceID, string(ws.ID)),
		logging.String("workspace", ws.Title),
		logging.Error(err),
		logging.String(logging.FieldImpact, fmt.Sprintf("%s missing from the export for this workspace", what)),
	)
}

func sourceType(kind string) string {
	if kind == "" {
		return "unknown"
	}
	return kind
}

// Encode renders notebooks as indented UTF-8 JSON with non-ASCII text kept as is.
func Encode(notebooks []Notebook) ([]byte, error) {
	if notebooks == nil {
		notebooks = []Notebook{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(notebooks); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes the export atomically to path.
func WriteFile(path string, notebooks []Notebook) error {
	data, err := Encode(notebooks)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
