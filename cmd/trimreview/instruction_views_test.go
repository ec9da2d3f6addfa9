package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"trimreview/internal/instruction"
	"trimreview/internal/livesync"
	"trimreview/internal/reconcile"
)

func TestStatusHeading(t *testing.T) {
	cases := map[instruction.Status]string{
		instruction.StatusPending:    "Pending",
		instruction.StatusInProgress: "In Progress",
		instruction.StatusRejected:   "Rejected",
	}
	for status, want := range cases {
		if got := statusHeading(status); got != want {
			t.Fatalf("statusHeading(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{72 * time.Hour, "3d"},
	}
	for _, tc := range cases {
		if got := formatAge(tc.in); got != tc.want {
			t.Fatalf("formatAge(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestViewFilterCombinesFlags(t *testing.T) {
	filter, err := viewFilter([]string{"pending,in-progress"}, "Main")
	if err != nil {
		t.Fatalf("viewFilter: %v", err)
	}
	match := instruction.Instruction{Status: instruction.StatusInProgress, Channel: "main"}
	if !filter(match) {
		t.Fatal("expected in_progress record on main to match")
	}
	if filter(instruction.Instruction{Status: instruction.StatusApproved, Channel: "main"}) {
		t.Fatal("approved record should not match")
	}
	if filter(instruction.Instruction{Status: instruction.StatusPending, Channel: "shorts"}) {
		t.Fatal("other channel should not match")
	}

	if f, err := viewFilter(nil, " "); err != nil || f != nil {
		t.Fatalf("expected nil filter without flags, got %v", err)
	}
	if _, err := viewFilter([]string{"done"}, ""); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestRenderGroupedViewKeepsInProgressBucket(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	view := reconcile.Snapshot{Groups: []reconcile.Group{
		{Status: instruction.StatusPending},
		{Status: instruction.StatusInProgress, Instructions: []instruction.Instruction{{
			ID: "i1", Title: "Trim intro", Status: instruction.StatusInProgress,
			ReviewedBy: "morgan", UpdatedAt: now.Add(-2 * time.Minute),
		}}},
	}}
	out := renderGroupedView(view, false, now)
	for _, want := range []string{"== Pending (0) ==", "nothing here", "== In Progress (1) ==", "Trim intro", "approved by morgan", "2m"} {
		if !strings.Contains(out, want) {
			t.Fatalf("grouped view missing %q:\n%s", want, out)
		}
	}
}

func TestRenderChannelLine(t *testing.T) {
	now := time.Now()
	live := renderChannelLine(livesync.Status{State: livesync.StateLivePush, LastHeartbeat: now}, false, now)
	if !strings.Contains(live, "[OK] live (push)") {
		t.Fatalf("unexpected push line %q", live)
	}

	degraded := renderChannelLine(livesync.Status{
		State:     livesync.StateLivePoll,
		Stale:     true,
		LastError: errors.New("connection refused"),
	}, false, now)
	for _, want := range []string{"[ERROR]", "polling", "stale", "connection refused"} {
		if !strings.Contains(degraded, want) {
			t.Fatalf("degraded line missing %q: %q", want, degraded)
		}
	}
}

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Store", statusOK, "ready", false)
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("plain line carries escape codes: %q", line)
	}
	if !strings.Contains(line, "Store:") || !strings.Contains(line, "[OK] ready") {
		t.Fatalf("unexpected status line %q", line)
	}
}
