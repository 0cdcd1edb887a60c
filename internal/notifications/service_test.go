package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notebrief/internal/config"
	"notebrief/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service without a topic")
	}
	if err := svc.Publish(context.Background(), notifications.EventBatchCompleted, notifications.Payload{"done": 1}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "batch completed",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"done": 3, "skipped": 1, "failed": 0, "total": 4, "duration": 95 * time.Second,
			},
			expectTitle:   "notebrief - Batch Complete",
			expectMessage: "3 analyzed, 1 skipped, 0 failed of 4 in 1m35s",
			expectTags:    "notebrief,batch,completed",
		},
		{
			name:  "batch with failures",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"done": 1, "failed": 2, "total": 3,
			},
			expectTitle:   "notebrief - Batch Complete (with errors)",
			expectMessage: "1 analyzed, 0 skipped, 2 failed of 3 in 0s",
			expectTags:    "notebrief,batch,warning",
		},
		{
			name:  "digest completed",
			event: notifications.EventDigestCompleted,
			payload: notifications.Payload{
				"title": "YouTube Playlist Analysis", "sources": 4, "report": "/r/analysis_results.md",
			},
			expectTitle:   "notebrief - Digest Complete",
			expectMessage: "YouTube Playlist Analysis: 4 sources analyzed\nReport: /r/analysis_results.md",
			expectTags:    "notebrief,digest,completed",
		},
		{
			name:  "file completed",
			event: notifications.EventFileCompleted,
			payload: notifications.Payload{
				"file": "會議紀錄.pdf",
			},
			expectTitle:   "notebrief - File Analyzed",
			expectMessage: "Analyzed: 會議紀錄.pdf",
			expectTags:    "notebrief,file,completed",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "digest",
				"error":   "backend unavailable",
			},
			expectTitle:    "notebrief - Error",
			expectMessage:  "Error with digest: backend unavailable",
			expectTags:     "notebrief,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for unknown event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Event("queue_started"), nil); err != nil {
		t.Fatalf("expected no error for unknown event, got %v", err)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic is reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic is reserved") {
		t.Fatalf("expected 403 error with body, got %v", err)
	}
}
