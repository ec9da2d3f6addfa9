package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trimreview/internal/config"
	"trimreview/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventInstructionSubmitted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	click    string
	body     string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *captured) {
	t.Helper()
	var got captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.click = r.Header.Get("Click")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &got
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
		expectClick    string
	}{
		{
			name:  "submitted high priority",
			event: notifications.EventInstructionSubmitted,
			payload: notifications.Payload{
				"title":       "Trim intro",
				"priority":    "high",
				"requestedBy": "casey",
				"url":         "http://trim.local/instructions/i1",
			},
			expectTitle:    "Trimreview - New Instruction",
			expectMessage:  "📝 Awaiting review: Trim intro\nRequested by: casey",
			expectTags:     "trimreview,instruction,submitted",
			expectPriority: "high",
			expectClick:    "http://trim.local/instructions/i1",
		},
		{
			name:          "approved",
			event:         notifications.EventInstructionReviewed,
			payload:       notifications.Payload{"title": "Trim intro", "status": "approved", "reviewedBy": "morgan"},
			expectTitle:   "Trimreview - Approved",
			expectMessage: "✅ Approved: Trim intro (by morgan)",
			expectTags:    "trimreview,review,approved",
		},
		{
			name:          "rejected with reason",
			event:         notifications.EventInstructionReviewed,
			payload:       notifications.Payload{"title": "Trim intro", "status": "rejected", "reason": "too long"},
			expectTitle:   "Trimreview - Rejected",
			expectMessage: "🚫 Rejected: Trim intro\nReason: too long",
			expectTags:    "trimreview,review,rejected",
		},
		{
			name:          "clip ready",
			event:         notifications.EventOutcomeRecorded,
			payload:       notifications.Payload{"title": "Trim intro", "outcome": "success", "clipUrl": "https://cdn.example/c.mp4"},
			expectTitle:   "Trimreview - Clip Ready",
			expectMessage: "🎬 Clip ready: Trim intro\nhttps://cdn.example/c.mp4",
			expectTags:    "trimreview,outcome,success",
			expectClick:   "https://cdn.example/c.mp4",
		},
		{
			name:           "trim failed",
			event:          notifications.EventOutcomeRecorded,
			payload:        notifications.Payload{"title": "Trim intro", "outcome": "failure"},
			expectTitle:    "Trimreview - Trim Failed",
			expectMessage:  "❌ Trim failed: Trim intro",
			expectTags:     "trimreview,outcome,failure",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Trimreview - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "trimreview,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCaptureServer(t)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
			if got.click != tc.expectClick {
				t.Fatalf("expected click %q, got %q", tc.expectClick, got.click)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Submitted = false
	cfg.Notifications.Outcomes = false

	svc := notifications.NewService(&cfg)
	cases := []struct {
		event   notifications.Event
		payload notifications.Payload
	}{
		{notifications.EventInstructionSubmitted, notifications.Payload{"title": "off"}},
		{notifications.EventOutcomeRecorded, notifications.Payload{"title": "off", "outcome": "success"}},
		{notifications.EventInstructionReviewed, notifications.Payload{"title": "started", "status": "in_progress"}},
		{notifications.Event("unknown"), nil},
	}
	for _, tc := range cases {
		if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", tc.event, err)
		}
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic is read-only", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
