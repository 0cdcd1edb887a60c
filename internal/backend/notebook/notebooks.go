package notebook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notebrief/internal/backend"
	"notebrief/internal/logging"
)

type notebookPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type sourcePayload struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Title  *string `json:"title,omitempty"`
	Type   string  `json:"type,omitempty"`
	URL    *string `json:"url,omitempty"`
}

type chatPayload struct {
	Answer string `json:"answer"`
}

type notePayload struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateWorkspace creates a notebook with the supplied title.
func (c *Client) CreateWorkspace(ctx context.Context, title string) (backend.WorkspaceID, error) {
	var created notebookPayload
	if err := c.doWithRetry(ctx, "create notebook", http.MethodPost, "/notebooks", jsonBody(map[string]string{"title": title}), &created); err != nil {
		return "", err
	}
	if strings.TrimSpace(created.ID) == "" {
		return "", errors.New("create notebook: response missing id")
	}
	return backend.WorkspaceID(created.ID), nil
}

// DeleteWorkspace removes a notebook. Deleting a notebook that no longer
// exists is not an error.
func (c *Client) DeleteWorkspace(ctx context.Context, id backend.WorkspaceID) error {
	err := c.doWithRetry(ctx, "delete notebook", http.MethodDelete, notebookPath(id), nil, nil)
	if err != nil && isStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

// AttachFile uploads a local file as a notebook source.
func (c *Client) AttachFile(ctx context.Context, id backend.WorkspaceID, localPath string, opts backend.FileOptions) (backend.Source, error) {
	name := filepath.Base(localPath)
	body := func() (io.Reader, string, error) {
		file, err := os.Open(localPath)
		if err != nil {
			return nil, "", fmt.Errorf("open %s: %w", name, err)
		}
		pr, pw := io.Pipe()
		writer := multipart.NewWriter(pw)
		go streamMultipart(pw, writer, file, name)
		return pr, writer.FormDataContentType(), nil
	}

	var created sourcePayload
	if err := c.doWithRetry(ctx, "attach file", http.MethodPost, notebookPath(id)+"/sources/file", body, &created); err != nil {
		return backend.Source{}, err
	}
	source := backend.Source{ID: created.ID, Kind: backend.SourceFile, Readiness: backend.ParseReadiness(created.Status)}
	if !opts.WaitForReady || source.Readiness != backend.ReadinessPending {
		return source, nil
	}
	return c.waitForReady(ctx, id, source, opts.ReadyTimeout)
}

// streamMultipart writes file as the "file" form field into pw and closes
// both. The transport closes the read side when a request fails early, which
// unblocks the copy.
func streamMultipart(pw *io.PipeWriter, writer *multipart.Writer, file *os.File, name string) {
	defer file.Close()
	part, err := writer.CreateFormFile("file", name)
	if err == nil {
		if _, err = io.Copy(part, file); err != nil {
			err = fmt.Errorf("copy %s: %w", name, err)
		}
	}
	if err == nil {
		err = writer.Close()
	}
	pw.CloseWithError(err)
}

// AttachURL links a web page as a notebook source.
func (c *Client) AttachURL(ctx context.Context, id backend.WorkspaceID, target string) (backend.Source, error) {
	var created sourcePayload
	if err := c.doWithRetry(ctx, "attach url", http.MethodPost, notebookPath(id)+"/sources/url", jsonBody(map[string]string{"url": target}), &created); err != nil {
		return backend.Source{}, err
	}
	return backend.Source{ID: created.ID, Kind: backend.SourceURL, Readiness: backend.ParseReadiness(created.Status)}, nil
}

// Query asks a question against every source in the notebook.
func (c *Client) Query(ctx context.Context, id backend.WorkspaceID, prompt string) (string, error) {
	var reply chatPayload
	if err := c.doWithRetry(ctx, "chat", http.MethodPost, notebookPath(id)+"/chat", jsonBody(map[string]string{"message": prompt}), &reply); err != nil {
		return "", err
	}
	return reply.Answer, nil
}

// ListWorkspaces returns every notebook visible to the API key.
func (c *Client) ListWorkspaces(ctx context.Context) ([]backend.WorkspaceInfo, error) {
	var listing struct {
		Notebooks []notebookPayload `json:"notebooks"`
	}
	if err := c.doWithRetry(ctx, "list notebooks", http.MethodGet, "/notebooks", nil, &listing); err != nil {
		return nil, err
	}
	out := make([]backend.WorkspaceInfo, 0, len(listing.Notebooks))
	for _, nb := range listing.Notebooks {
		out = append(out, backend.WorkspaceInfo{ID: backend.WorkspaceID(nb.ID), Title: nb.Title})
	}
	return out, nil
}

// ListSources returns the sources attached to a notebook.
func (c *Client) ListSources(ctx context.Context, id backend.WorkspaceID) ([]backend.SourceRecord, error) {
	var listing struct {
		Sources []sourcePayload `json:"sources"`
	}
	if err := c.doWithRetry(ctx, "list sources", http.MethodGet, notebookPath(id)+"/sources", nil, &listing); err != nil {
		return nil, err
	}
	out := make([]backend.SourceRecord, 0, len(listing.Sources))
	for _, src := range listing.Sources {
		out = append(out, backend.SourceRecord{ID: src.ID, Title: src.Title, Type: src.Type, URL: src.URL})
	}
	return out, nil
}

// ListNotes returns the notes saved in a notebook.
func (c *Client) ListNotes(ctx context.Context, id backend.WorkspaceID) ([]backend.Note, error) {
	var listing struct {
		Notes []notePayload `json:"notes"`
	}
	if err := c.doWithRetry(ctx, "list notes", http.MethodGet, notebookPath(id)+"/notes", nil, &listing); err != nil {
		return nil, err
	}
	out := make([]backend.Note, 0, len(listing.Notes))
	for _, note := range listing.Notes {
		out = append(out, backend.Note{ID: note.ID, Title: note.Title, Content: note.Content})
	}
	return out, nil
}

// HealthCheck verifies the service is reachable and the key is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doWithRetry(ctx, "notebook health", http.MethodGet, "/health", nil, nil)
}

func (c *Client) waitForReady(ctx context.Context, id backend.WorkspaceID, source backend.Source, timeout time.Duration) (backend.Source, error) {
	interval := c.pollInterval
	polls := 1
	if timeout > 0 && interval > 0 {
		polls = int((timeout + interval - 1) / interval)
	}
	path := notebookPath(id) + "/sources/" + url.PathEscape(source.ID)

	for i := 0; i < polls; i++ {
		if err := c.sleep(ctx, interval); err != nil {
			return source, err
		}
		var status sourcePayload
		if err := c.doWithRetry(ctx, "source status", http.MethodGet, path, nil, &status); err != nil {
			return source, err
		}
		source.Readiness = backend.ParseReadiness(status.Status)
		if source.Readiness != backend.ReadinessPending {
			return source, nil
		}
	}

	c.logger.Debug("source readiness poll exhausted",
		logging.String(logging.FieldEventType, "source_poll_timeout"),
		logging.String(logging.FieldWorkspaceID, string(id)),
		logging.String("source_id", source.ID),
		logging.Duration("timeout", timeout),
	)
	source.Readiness = backend.ReadinessTimedOut
	return source, nil
}

func notebookPath(id backend.WorkspaceID) string {
	return "/notebooks/" + url.PathEscape(string(id))
}

var (
	_ backend.Backend       = (*Client)(nil)
	_ backend.Inventory     = (*Client)(nil)
	_ backend.HealthChecker = (*Client)(nil)
)
