package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notebrief/internal/config"
)

const userAgent = "notebrief"

// Event identifies what happened.
type Event string

const (
	EventBatchCompleted  Event = "batch_completed"
	EventDigestCompleted Event = "digest_completed"
	EventFileCompleted   Event = "file_completed"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc actually delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchCompleted:
		done, skipped := intValue(payload, "done"), intValue(payload, "skipped")
		failed, total := intValue(payload, "failed"), intValue(payload, "total")
		msg := message{
			title: "notebrief - Batch Complete",
			body: fmt.Sprintf("%d analyzed, %d skipped, %d failed of %d in %s",
				done, skipped, failed, total, durationText(payload)),
			tags: []string{"notebrief", "batch", "completed"},
		}
		if failed > 0 {
			msg.title = "notebrief - Batch Complete (with errors)"
			msg.tags = []string{"notebrief", "batch", "warning"}
		}
		return msg, true
	case EventDigestCompleted:
		body := fmt.Sprintf("%s: %d sources analyzed", stringValue(payload, "title"), intValue(payload, "sources"))
		if report := stringValue(payload, "report"); report != "" {
			body += "\nReport: " + report
		}
		return message{
			title: "notebrief - Digest Complete",
			body:  body,
			tags:  []string{"notebrief", "digest", "completed"},
		}, true
	case EventFileCompleted:
		body := "Analyzed: " + stringValue(payload, "file")
		if report := stringValue(payload, "report"); report != "" {
			body += "\nReport: " + report
		}
		return message{
			title: "notebrief - File Analyzed",
			body:  body,
			tags:  []string{"notebrief", "file", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := stringValue(payload, "context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if text := stringValue(payload, "error"); text != "" {
			builder.WriteString(text)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "notebrief - Error",
			body:     builder.String(),
			tags:     []string{"notebrief", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "notebrief - Test",
			body:     "Notification system test",
			tags:     []string{"notebrief", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(payload Payload, key string) string {
	if v, ok := payload[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func intValue(payload Payload, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func durationText(payload Payload) string {
	d, _ := payload["duration"].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
