package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notebrief/internal/httpapi"
)

// Analysis requests block until the backend answers, which can take minutes.
const defaultAPITimeout = 15 * time.Minute

// APIError is a non-2xx response from the HTTP API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Detail)
}

// API is a client for the notebrief HTTP API.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes an API client.
type Option func(*API)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *API) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sends token as a bearer token on analysis requests.
func WithToken(token string) Option {
	return func(c *API) { c.token = strings.TrimSpace(token) }
}

// NewAPI returns a client for the server at baseURL.
func NewAPI(baseURL string, opts ...Option) *API {
	c := &API{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultAPITimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURLFromBind turns a listen address into a URL a local client can dial.
// Wildcard hosts are replaced with the loopback address.
func BaseURLFromBind(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return strings.TrimRight(bind, "/")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Health reports whether the server answers GET /health.
func (c *API) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	return nil
}

// Upload sends the local file at path to POST /analyze/upload. The file is
// streamed, never buffered whole.
func (c *API) Upload(ctx context.Context, path, prompt string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, filepath.Base(path), file, prompt))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze/upload", pr)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("upload: new request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func writeUploadForm(mw *multipart.Writer, name string, content io.Reader, prompt string) error {
	if prompt != "" {
		if err := mw.WriteField("custom_prompt", prompt); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return mw.Close()
}

// RemoteFile asks the server to download and analyze fileURL.
func (c *API) RemoteFile(ctx context.Context, fileURL, prompt string) (string, error) {
	return c.postJSON(ctx, "/analyze/remote-file", httpapi.RemoteFileRequest{FileURL: fileURL, CustomPrompt: prompt})
}

// URL asks the server to analyze a web page or video URL.
func (c *API) URL(ctx context.Context, url, title, prompt string) (string, error) {
	return c.postJSON(ctx, "/analyze/url", httpapi.URLRequest{URL: url, Title: title, CustomPrompt: prompt})
}

func (c *API) postJSON(ctx context.Context, path string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *API) do(req *http.Request) (string, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure httpapi.ErrorResponse
		if err := json.Unmarshal(body, &failure); err != nil || failure.Detail == "" {
			failure.Detail = strings.TrimSpace(string(body))
		}
		return "", &APIError{StatusCode: resp.StatusCode, Detail: failure.Detail}
	}
	var result httpapi.AnalysisResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Status != "success" {
		return "", errors.New("unexpected response status " + result.Status)
	}
	return result.Result, nil
}
