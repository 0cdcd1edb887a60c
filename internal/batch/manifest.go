package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"notebrief/internal/fileutil"
	"notebrief/internal/ingest"
	"notebrief/internal/services"
	"notebrief/internal/workflow"
)

// Entry is one manifest record.
type Entry struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// Item converts the entry into a pipeline item for a web URL.
func (e Entry) Item() workflow.Item {
	return workflow.Item{Identity: e.Title, Origin: ingest.WebURL(e.URL)}
}

// LoadManifest reads a JSON array of entries, or YAML when path ends in
// .yaml or .yml. Entries missing a title or URL are rejected.
func LoadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrSourceNotFound, "batch", "load manifest", path, nil)
		}
		return nil, services.Wrap(services.ErrValidation, "batch", "load manifest", path, err)
	}

	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "batch", "parse manifest", path, err)
	}

	for i := range entries {
		entries[i].Title = strings.TrimSpace(entries[i].Title)
		entries[i].URL = strings.TrimSpace(entries[i].URL)
		if entries[i].Title == "" || entries[i].URL == "" {
			return nil, services.Wrap(services.ErrValidation, "batch", "parse manifest",
				fmt.Sprintf("%s: entry %d needs both title and url", path, i+1), nil)
		}
	}
	return entries, nil
}

// WriteManifest writes entries as indented JSON, keeping non-ASCII titles readable.
func WriteManifest(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
