package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trimreview/internal/config"
)

const userAgent = "trimreview/0.1.0"

// Event names a notification type.
type Event string

const (
	EventInstructionSubmitted Event = "instruction_submitted"
	EventInstructionReviewed  Event = "instruction_reviewed"
	EventOutcomeRecorded      Event = "outcome_recorded"
	EventTest                 Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes notifications.
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

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventInstructionSubmitted: cfg.Notifications.Submitted,
			EventInstructionReviewed:  cfg.Notifications.Reviewed,
			EventOutcomeRecorded:      cfg.Notifications.Outcomes,
			EventTest:                 true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payload.text("title")
	click := payload.text("url")
	switch event {
	case EventInstructionSubmitted:
		body := fmt.Sprintf("📝 Awaiting review: %s", title)
		if by := payload.text("requestedBy"); by != "" {
			body += "\nRequested by: " + by
		}
		msg := message{
			title: "Trimreview - New Instruction",
			body:  body,
			tags:  []string{"trimreview", "instruction", "submitted"},
			click: click,
		}
		if payload.text("priority") == "high" {
			msg.priority = "high"
		}
		return msg, true

	case EventInstructionReviewed:
		reviewer := payload.text("reviewedBy")
		switch payload.text("status") {
		case "approved":
			body := fmt.Sprintf("✅ Approved: %s", title)
			if reviewer != "" {
				body += " (by " + reviewer + ")"
			}
			return message{
				title: "Trimreview - Approved",
				body:  body,
				tags:  []string{"trimreview", "review", "approved"},
				click: click,
			}, true
		case "rejected":
			body := fmt.Sprintf("🚫 Rejected: %s", title)
			if reason := payload.text("reason"); reason != "" {
				body += "\nReason: " + reason
			}
			return message{
				title: "Trimreview - Rejected",
				body:  body,
				tags:  []string{"trimreview", "review", "rejected"},
				click: click,
			}, true
		}
		return message{}, false

	case EventOutcomeRecorded:
		if payload.text("outcome") == "failure" {
			return message{
				title:    "Trimreview - Trim Failed",
				body:     fmt.Sprintf("❌ Trim failed: %s", title),
				tags:     []string{"trimreview", "outcome", "failure"},
				priority: "high",
				click:    click,
			}, true
		}
		body := fmt.Sprintf("🎬 Clip ready: %s", title)
		if clip := payload.text("clipUrl"); clip != "" {
			body += "\n" + clip
			click = clip
		}
		return message{
			title: "Trimreview - Clip Ready",
			body:  body,
			tags:  []string{"trimreview", "outcome", "success"},
			click: click,
		}, true

	case EventTest:
		return message{
			title:    "Trimreview - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"trimreview", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}

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
	if msg.click != "" {
		req.Header.Set("Click", msg.click)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
