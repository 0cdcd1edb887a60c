package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"notebrief/internal/logging"
	"notebrief/internal/services"
)

const (
	filePrefix          = "notebrief-"
	defaultRemoteName   = "downloaded_file.pdf"
	defaultUploadName   = "uploaded_file.pdf"
	defaultFetchTimeout = 10 * time.Minute
)

// File is a staged copy of remote or uploaded content. Name is the logical
// file name the content arrived with; Path is the collision-free location on disk.
type File struct {
	Name string
	Path string
}

// Remove deletes the staged file. Missing files are not an error.
func (f *File) Remove() error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Stager writes remote downloads and uploads into the staging directory.
type Stager struct {
	dir    string
	client *http.Client
	logger *slog.Logger
}

// New constructs a Stager rooted at dir. A nil client uses a default with a
// generous timeout.
func New(dir string, client *http.Client, logger *slog.Logger) *Stager {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Stager{
		dir:    dir,
		client: client,
		logger: logging.NewComponentLogger(logger, "staging"),
	}
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// RemoteName derives the file name for a remote URL: the last path segment,
// or downloaded_file.pdf when that segment has no extension.
func RemoteName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return defaultRemoteName
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." || !strings.Contains(name, ".") {
		return defaultRemoteName
	}
	return name
}

// UploadName returns the base name of an uploaded file, or uploaded_file.pdf
// when the client sent none or it has no extension.
func UploadName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == ".." || name == "/" || !strings.Contains(name, ".") {
		return defaultUploadName
	}
	return name
}

// Fetch streams rawURL into a new staged file. Failures carry
// services.ErrDownloadFailure and leave nothing behind.
func (s *Stager) Fetch(ctx context.Context, rawURL string) (*File, error) {
	name := RemoteName(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrDownloadFailure, "staging", "fetch", "build request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrDownloadFailure, "staging", "fetch", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.Wrap(services.ErrDownloadFailure, "staging", "fetch",
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, rawURL), nil)
	}

	file, err := s.write(name, resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrDownloadFailure, "staging", "fetch", "write staged file", err)
	}
	s.logger.Debug("remote file staged",
		logging.String(logging.FieldEventType, "staging_fetch"),
		logging.String("url", rawURL),
		logging.String("path", file.Path),
	)
	return file, nil
}

// Save copies an uploaded stream into a new staged file.
func (s *Stager) Save(name string, r io.Reader) (*File, error) {
	file, err := s.write(UploadName(name), r)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "staging", "save upload", "write staged file", err)
	}
	return file, nil
}

func (s *Stager) write(name string, r io.Reader) (*File, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure staging dir: %w", err)
	}
	out, err := os.CreateTemp(s.dir, filePrefix+"*-"+patternSafe(name))
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	staged := &File{Name: name, Path: out.Name()}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = staged.Remove()
		return nil, fmt.Errorf("copy content: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = staged.Remove()
		return nil, fmt.Errorf("close staged file: %w", err)
	}
	return staged, nil
}

func patternSafe(name string) string {
	return strings.NewReplacer("*", "_", "/", "_", "\\", "_").Replace(name)
}
