package scraper

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"notebrief/internal/config"
	"notebrief/internal/logging"
	"notebrief/internal/services"
)

// watchURLPrefix builds a link for flat entries that carry only an id.
const watchURLPrefix = "https://www.youtube.com/watch?v="

// outputTemplate names downloaded audio by upload date and title.
const outputTemplate = "%(upload_date)s_%(title)s.%(ext)s"

// Entry is one playlist item.
type Entry struct {
	ID    string
	Title string
	URL   string
}

// Scraper lists playlists and downloads audio.
type Scraper interface {
	ListPlaylistItems(ctx context.Context, url string, limit int) ([]Entry, error)
	DownloadAudio(ctx context.Context, url string, limit int, dir string) ([]string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives yt-dlp.
type Client struct {
	binary        string
	audioFormat   string
	audioQuality  string
	sleepInterval int
	ffmpeg        string
	exec          Executor
	logger        *slog.Logger
}

// New constructs a yt-dlp client from the scraper settings.
func New(cfg config.Scraper, logger *slog.Logger, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "scraper", "init", "yt-dlp binary required", nil)
	}
	client := &Client{
		binary:        binary,
		audioFormat:   strings.TrimSpace(cfg.AudioFormat),
		audioQuality:  strings.TrimSpace(cfg.AudioQuality),
		sleepInterval: cfg.SleepInterval,
		ffmpeg:        strings.TrimSpace(cfg.FFmpegLocation),
		exec:          commandExecutor{},
		logger:        logging.NewComponentLogger(logger, "scraper"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured yt-dlp executable.
func (c *Client) Binary() string { return c.binary }

// ListPlaylistItems returns up to limit entries of the playlist at url without
// downloading anything. Unavailable entries are skipped by yt-dlp; an error is
// returned only when nothing could be listed.
func (c *Client) ListPlaylistItems(ctx context.Context, url string, limit int) ([]Entry, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "scraper", "list playlist", "playlist url required", nil)
	}
	args := []string{"--flat-playlist", "--dump-json", "--ignore-errors", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-items", fmt.Sprintf("1-%d", limit))
	}
	args = append(args, url)

	logger := logging.WithContext(ctx, c.logger)
	var entries []Entry
	runErr := c.exec.Run(ctx, c.binary, args, func(line string) {
		entry, ok := parseEntry(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				logger.Debug("yt-dlp output", logging.String("line", line))
			}
			return
		}
		entries = append(entries, entry)
	})
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if len(entries) == 0 {
			return nil, services.Wrap(services.ErrExternalTool, "scraper", "list playlist", url, runErr)
		}
		logging.WarnWithContext(logger, "yt-dlp reported errors while listing", "playlist_partial",
			logging.String("playlist", url),
			logging.Int("entries", len(entries)),
			logging.Error(runErr),
			logging.String(logging.FieldImpact, "unavailable playlist entries were left out"),
			logging.String(logging.FieldErrorHint, "rerun with a smaller limit or check the entries on the site"),
		)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	logger.Info("playlist listed",
		logging.String(logging.FieldEventType, "playlist_listed"),
		logging.String("playlist", url),
		logging.Int("entries", len(entries)),
	)
	return entries, nil
}

// DownloadAudio extracts the audio of the first limit playlist entries into
// dir and returns the audio files that did not exist before the call.
func (c *Client) DownloadAudio(ctx context.Context, url string, limit int, dir string) ([]string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "scraper", "download audio", "playlist url required", nil)
	}
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrValidation, "scraper", "download audio", "download directory required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	before, err := ListAudio(dir)
	if err != nil {
		return nil, err
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("downloading audio",
		logging.String(logging.FieldEventType, "download_start"),
		logging.String("playlist", url),
		logging.Int("limit", limit),
		logging.String("dir", dir),
	)
	runErr := c.exec.Run(ctx, c.binary, c.downloadArgs(url, limit, dir), func(line string) {
		logger.Debug("yt-dlp output", logging.String("line", line))
	})

	after, err := ListAudio(dir)
	if err != nil {
		return nil, err
	}
	added := difference(after, before)

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return added, ctxErr
		}
		if len(added) == 0 {
			return nil, services.Wrap(services.ErrExternalTool, "scraper", "download audio", url, runErr)
		}
		logging.WarnWithContext(logger, "yt-dlp reported errors while downloading", "download_partial",
			logging.Int("downloaded", len(added)),
			logging.Error(runErr),
			logging.String(logging.FieldImpact, "some playlist entries were not downloaded"),
			logging.String(logging.FieldErrorHint, "check that ffmpeg is installed and the entries are available"),
		)
	}
	logger.Info("audio downloaded",
		logging.String(logging.FieldEventType, "download_complete"),
		logging.Int("downloaded", len(added)),
	)
	return added, nil
}

func (c *Client) downloadArgs(url string, limit int, dir string) []string {
	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", c.audioFormat,
		"--audio-quality", audioQuality(c.audioQuality),
		"--output", filepath.Join(dir, outputTemplate),
		"--ignore-errors",
	}
	if limit > 0 {
		args = append(args, "--playlist-items", fmt.Sprintf("1-%d", limit))
	}
	if c.sleepInterval > 0 {
		args = append(args, "--sleep-interval", strconv.Itoa(c.sleepInterval))
	}
	if c.ffmpeg != "" {
		args = append(args, "--ffmpeg-location", c.ffmpeg)
	}
	return append(args, url)
}

// audioQuality turns a bare bitrate such as "192" into yt-dlp's "192K";
// values 0-10 are VBR levels and pass through.
func audioQuality(value string) string {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 10 {
		return value
	}
	return value + "K"
}

type flatEntry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
}

func parseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var raw flatEntry
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{ID: raw.ID, Title: strings.TrimSpace(raw.Title), URL: strings.TrimSpace(raw.URL)}
	if entry.URL == "" {
		entry.URL = strings.TrimSpace(raw.WebpageURL)
	}
	if entry.URL == "" && raw.ID != "" {
		entry.URL = watchURLPrefix + raw.ID
	}
	if entry.URL == "" {
		return Entry{}, false
	}
	if entry.Title == "" {
		entry.Title = entry.ID
	}
	return entry, true
}

var audioExtensions = map[string]struct{}{".mp3": {}, ".m4a": {}, ".webm": {}}

// IsAudio reports whether name has one of the audio extensions the digest picks up.
func IsAudio(name string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ListAudio returns the audio files directly inside dir, sorted by name. A
// missing directory yields no files.
func ListAudio(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read download directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsAudio(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func difference(after, before []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, path := range before {
		seen[path] = struct{}{}
	}
	var out []string
	for _, path := range after {
		if _, ok := seen[path]; !ok {
			out = append(out, path)
		}
	}
	return out
}

var commandContext = exec.CommandContext

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		scanErr error
		once    sync.Once
	)
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			if onStdout == nil {
				continue
			}
			mu.Lock()
			onStdout(scanner.Text())
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

var _ Scraper = (*Client)(nil)
