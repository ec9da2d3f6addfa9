package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"trimreview/internal/instruction"
	"trimreview/internal/livesync"
	"trimreview/internal/reconcile"
)

var titleCaser = cases.Title(language.English)

// statusHeading renders a status as a section title, e.g. "In Progress".
func statusHeading(status instruction.Status) string {
	return titleCaser.String(strings.ReplaceAll(string(status), "_", " "))
}

func instructionRows(recs []instruction.Instruction, now time.Time) [][]string {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []string{
			rec.ID,
			string(rec.Priority),
			truncate(rec.Title, 48),
			rec.Channel,
			rec.RequestedBy,
			formatAge(now.Sub(rec.UpdatedAt)),
			instructionNote(rec),
		})
	}
	return rows
}

func instructionNote(rec instruction.Instruction) string {
	switch rec.Status {
	case instruction.StatusRejected:
		if rec.RejectionReason != "" {
			return "reason: " + truncate(rec.RejectionReason, 40)
		}
		return "rejected by " + rec.ReviewedBy
	case instruction.StatusApproved, instruction.StatusInProgress:
		if rec.ReviewedBy != "" {
			return "approved by " + rec.ReviewedBy
		}
	}
	if len(rec.Tags) > 0 {
		return "#" + strings.Join(rec.Tags, " #")
	}
	return ""
}

var instructionColumns = []column{
	{title: "ID"},
	{title: "Priority"},
	{title: "Title", max: 48},
	{title: "Channel"},
	{title: "Requested By"},
	{title: "Updated", numeric: true},
	{title: "Note", max: 48},
}

// renderGroupedView renders one section per status bucket.
func renderGroupedView(view reconcile.Snapshot, colorize bool, now time.Time) string {
	var b strings.Builder
	for _, group := range view.Groups {
		heading := fmt.Sprintf("%s (%d)", statusHeading(group.Status), len(group.Instructions))
		for _, line := range renderSectionHeader(heading, colorize) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if len(group.Instructions) == 0 {
			b.WriteString("  nothing here\n\n")
			continue
		}
		b.WriteString(renderTable(instructionColumns, instructionRows(group.Instructions, now)))
		b.WriteString("\n\n")
	}
	return b.String()
}

// renderChannelLine summarizes live sync health for the watch footer.
func renderChannelLine(status livesync.Status, colorize bool, now time.Time) string {
	kind := statusOK
	var message string
	switch status.State {
	case livesync.StateLivePush:
		message = "live (push)"
	case livesync.StateLivePoll:
		kind = statusWarn
		message = "live (polling; push unavailable)"
	case livesync.StateConnecting:
		kind = statusInfo
		message = "connecting"
	default:
		kind = statusError
		message = "disconnected"
	}
	if status.Stale {
		kind = statusError
		message += ", stale"
	}
	if !status.LastHeartbeat.IsZero() {
		message += fmt.Sprintf(", last update %s ago", formatAge(now.Sub(status.LastHeartbeat)))
	}
	if status.LastError != nil && status.State != livesync.StateLivePush {
		message += fmt.Sprintf(" (%v)", status.LastError)
	}
	return renderStatusLine("Channel", kind, message, colorize)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

// viewFilter builds the reconcile filter for --status and --channel flags.
func viewFilter(statuses []string, channel string) (reconcile.Filter, error) {
	parsed := make([]instruction.Status, 0, len(statuses))
	for _, raw := range statuses {
		for _, part := range strings.Split(raw, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			status := instruction.Status(strings.ReplaceAll(part, "-", "_"))
			if !status.Valid() {
				return nil, fmt.Errorf("unknown status %q", part)
			}
			parsed = append(parsed, status)
		}
	}
	var filters []reconcile.Filter
	if f := reconcile.ByStatus(parsed...); f != nil {
		filters = append(filters, f)
	}
	if channel = strings.TrimSpace(channel); channel != "" {
		filters = append(filters, reconcile.ByChannel(channel))
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return reconcile.All(filters...), nil
}
