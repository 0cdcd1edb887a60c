package export

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

const previewRunes = 50

// Totals counts notes and sources across an export.
func Totals(notebooks []Notebook) (notes, sources int) {
	for _, nb := range notebooks {
		notes += len(nb.Notes)
		sources += len(nb.Sources)
	}
	return notes, sources
}

// RenderNotes renders every note with a short content preview. It returns an
// empty string when no workspace has notes.
func RenderNotes(notebooks []Notebook) string {
	tw := newTable("Workspace", "Note ID", "Title", "Preview")
	rows := 0
	for _, nb := range notebooks {
		for _, note := range nb.Notes {
			tw.AppendRow(table.Row{nb.Title, note.ID, note.Title, Preview(note.Content)})
			rows++
		}
	}
	if rows == 0 {
		return ""
	}
	return tw.Render()
}

// RenderSources renders every source id. Used when there are no notes.
func RenderSources(notebooks []Notebook) string {
	tw := newTable("Workspace", "Source ID", "Title", "Type")
	rows := 0
	for _, nb := range notebooks {
		for _, src := range nb.Sources {
			title := ""
			if src.Title != nil {
				title = *src.Title
			} else if src.URL != nil {
				title = *src.URL
			}
			tw.AppendRow(table.Row{nb.Title, src.ID, title, src.Type})
			rows++
		}
	}
	if rows == 0 {
		return ""
	}
	return tw.Render()
}

// Preview returns the first characters of content on a single line.
func Preview(content string) string {
	content = strings.ReplaceAll(content, "\r\n", " ")
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) <= previewRunes {
		return content
	}
	return string(runes[:previewRunes]) + "..."
}

func newTable(headers ...string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	return tw
}
