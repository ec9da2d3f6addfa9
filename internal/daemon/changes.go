package daemon

import (
	"context"
	"net/url"

	"trimreview/internal/logging"
	"trimreview/internal/notifications"
	"trimreview/internal/store"
)

// handleChange pushes every committed record to websocket clients and
// forwards reviewer-visible events to the notifier.
func (d *Daemon) handleChange(change store.Change) {
	d.hub.Broadcast(change.Instruction)

	event, payload, ok := d.notificationFor(change)
	if !ok {
		return
	}
	d.notifyWG.Add(1)
	go func() {
		defer d.notifyWG.Done()
		ctx, cancel := context.WithTimeout(d.runContext(), notifyTimeout)
		defer cancel()
		if err := d.notifier.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
				logging.Error(err),
				logging.Instruction(change.Instruction.ID),
				logging.String("event", string(event)),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
				logging.String(logging.FieldImpact, "reviewers are not alerted; the queue is unaffected"),
			)
		}
	}()
}

func (d *Daemon) notificationFor(change store.Change) (notifications.Event, notifications.Payload, bool) {
	rec := change.Instruction
	payload := notifications.Payload{
		"id":    rec.ID,
		"title": rec.Title,
		"url":   d.instructionURL(rec.ID),
	}
	switch change.Kind {
	case store.ChangeSubmitted:
		payload["priority"] = string(rec.Priority)
		payload["requestedBy"] = rec.RequestedBy
		return notifications.EventInstructionSubmitted, payload, true
	case store.ChangeReviewed:
		payload["status"] = string(rec.Status)
		payload["reviewedBy"] = rec.ReviewedBy
		payload["reason"] = rec.RejectionReason
		return notifications.EventInstructionReviewed, payload, true
	case store.ChangeOutcome:
		if change.Outcome == nil {
			return "", nil, false
		}
		payload["outcome"] = string(change.Outcome.Outcome)
		payload["clipUrl"] = change.Outcome.ClipURL
		return notifications.EventOutcomeRecorded, payload, true
	}
	return "", nil, false
}

func (d *Daemon) instructionURL(id string) string {
	base, err := url.Parse(d.cfg.PublicURL())
	if err != nil || base.Host == "" {
		return ""
	}
	return base.JoinPath("api", "instructions", id).String()
}

