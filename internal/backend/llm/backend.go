package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"notebrief/internal/backend"
	"notebrief/internal/logging"
	"notebrief/internal/services"
)

const (
	defaultModel          = "gpt-4o-mini"
	defaultMaxSourceBytes = 400_000
	defaultFetchTimeout   = 30 * time.Second
)

const systemPrompt = "You are a research assistant. Answer strictly from the sources provided below. " +
	"When the sources do not cover the question, say so."

// Config captures the runtime settings for the OpenAI-compatible backend.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxSourceBytes int
	TimeoutSeconds int
}

type source struct {
	id      string
	title   string
	kind    backend.SourceKind
	url     string
	content string
}

type workspace struct {
	title   string
	sources []source
}

// Backend answers queries with a chat completion over in-memory workspaces.
// Sources are read locally (text files) or fetched and converted to Markdown
// (web pages), so they are ready as soon as they are attached.
type Backend struct {
	cfg       Config
	chat      *openai.Client
	fetcher   *http.Client
	converter *md.Converter
	logger    *slog.Logger

	mu         sync.Mutex
	workspaces map[backend.WorkspaceID]*workspace
	order      []backend.WorkspaceID
}

// Option customizes the backend.
type Option func(*Backend)

// WithFetchClient overrides the HTTP client used to download web sources.
func WithFetchClient(client *http.Client) Option {
	return func(b *Backend) {
		if client != nil {
			b.fetcher = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New constructs the backend. An API key is required.
func New(cfg Config, opts ...Option) (*Backend, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "llm", "llm.api_key is required (set OPENAI_API_KEY)", nil)
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = defaultMaxSourceBytes
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	if cfg.TimeoutSeconds > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}

	b := &Backend{
		cfg:        cfg,
		chat:       openai.NewClientWithConfig(clientCfg),
		fetcher:    &http.Client{Timeout: defaultFetchTimeout},
		converter:  md.NewConverter("", true, nil),
		workspaces: make(map[backend.WorkspaceID]*workspace),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "llm-backend")
	return b, nil
}

func (b *Backend) CreateWorkspace(_ context.Context, title string) (backend.WorkspaceID, error) {
	id := backend.WorkspaceID(uuid.NewString())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.workspaces[id] = &workspace{title: title}
	b.order = append(b.order, id)
	return id, nil
}

// DeleteWorkspace drops the workspace. Unknown ids are ignored.
func (b *Backend) DeleteWorkspace(_ context.Context, id backend.WorkspaceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.workspaces, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

func (b *Backend) AttachFile(_ context.Context, id backend.WorkspaceID, localPath string, _ backend.FileOptions) (backend.Source, error) {
	name := filepath.Base(localPath)
	ext := strings.ToLower(filepath.Ext(name))
	if !isTextExtension(ext) {
		return backend.Source{}, services.Wrap(services.ErrValidation, "backend", "attach file",
			fmt.Sprintf("%s: the llm backend only reads text sources (%s)", name, strings.Join(SupportedExtensions(), " ")), nil)
	}
	data, err := readLimited(localPath, b.cfg.MaxSourceBytes)
	if err != nil {
		return backend.Source{}, fmt.Errorf("read %s: %w", name, err)
	}
	content := string(data)
	if ext == ".html" || ext == ".htm" {
		content, err = b.converter.ConvertString(content)
		if err != nil {
			return backend.Source{}, fmt.Errorf("convert %s: %w", name, err)
		}
	}
	return b.addSource(id, source{title: name, kind: backend.SourceFile, content: content})
}

func (b *Backend) AttachURL(ctx context.Context, id backend.WorkspaceID, target string) (backend.Source, error) {
	if _, err := b.lookup(id); err != nil {
		return backend.Source{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backend.Source{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	resp, err := b.fetcher.Do(req)
	if err != nil {
		return backend.Source{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return backend.Source{}, fmt.Errorf("fetch %s: http %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(b.cfg.MaxSourceBytes)))
	if err != nil {
		return backend.Source{}, fmt.Errorf("read %s: %w", target, err)
	}
	content := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		content, err = b.converter.ConvertString(content)
		if err != nil {
			return backend.Source{}, fmt.Errorf("convert %s: %w", target, err)
		}
	}
	return b.addSource(id, source{title: target, kind: backend.SourceURL, url: target, content: content})
}

func (b *Backend) Query(ctx context.Context, id backend.WorkspaceID, prompt string) (string, error) {
	ws, err := b.lookup(id)
	if err != nil {
		return "", err
	}
	if len(ws.sources) == 0 {
		return "", errors.New("llm query: workspace has no sources")
	}

	resp, err := b.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt + "\n\n" + renderSources(ws.sources)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm query: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm query: empty choices")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("llm query: empty content (finish_reason=%q)", resp.Choices[0].FinishReason)
	}
	return answer, nil
}

func (b *Backend) ListWorkspaces(_ context.Context) ([]backend.WorkspaceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.WorkspaceInfo, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, backend.WorkspaceInfo{ID: id, Title: b.workspaces[id].title})
	}
	return out, nil
}

func (b *Backend) ListSources(_ context.Context, id backend.WorkspaceID) ([]backend.SourceRecord, error) {
	ws, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	out := make([]backend.SourceRecord, 0, len(ws.sources))
	for _, src := range ws.sources {
		title := src.title
		record := backend.SourceRecord{ID: src.id, Title: &title, Type: string(src.kind)}
		if src.url != "" {
			link := src.url
			record.URL = &link
		}
		out = append(out, record)
	}
	return out, nil
}

// ListNotes always returns an empty list; chat completions keep no notes.
func (b *Backend) ListNotes(_ context.Context, id backend.WorkspaceID) ([]backend.Note, error) {
	if _, err := b.lookup(id); err != nil {
		return nil, err
	}
	return []backend.Note{}, nil
}

func (b *Backend) lookup(id backend.WorkspaceID) (workspace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws, ok := b.workspaces[id]
	if !ok {
		return workspace{}, fmt.Errorf("workspace %s not found", id)
	}
	return workspace{title: ws.title, sources: append([]source(nil), ws.sources...)}, nil
}

func (b *Backend) addSource(id backend.WorkspaceID, src source) (backend.Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ws, ok := b.workspaces[id]
	if !ok {
		return backend.Source{}, fmt.Errorf("workspace %s not found", id)
	}
	src.id = uuid.NewString()
	ws.sources = append(ws.sources, src)
	b.logger.Debug("source attached",
		logging.String(logging.FieldWorkspaceID, string(id)),
		logging.String("source", src.title),
		logging.Int("bytes", len(src.content)),
	)
	return backend.Source{ID: src.id, Kind: src.kind, Readiness: backend.ReadinessReady}, nil
}

func renderSources(sources []source) string {
	var sb strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&sb, "### Source %d: %s\n\n%s\n\n", i+1, src.title, strings.TrimSpace(src.content))
	}
	return strings.TrimSpace(sb.String())
}

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".csv": {}, ".json": {},
	".html": {}, ".htm": {}, ".srt": {}, ".vtt": {}, ".xml": {},
}

func isTextExtension(ext string) bool {
	_, ok := textExtensions[ext]
	return ok
}

// SupportedExtensions lists the file extensions AttachFile accepts.
func SupportedExtensions() []string {
	out := make([]string, 0, len(textExtensions))
	for ext := range textExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func readLimited(path string, limit int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, int64(limit)))
}

var (
	_ backend.Backend   = (*Backend)(nil)
	_ backend.Inventory = (*Backend)(nil)
)
