package instruction_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"trimreview/internal/instruction"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    instruction.Status
		action  instruction.Action
		role    instruction.Role
		want    instruction.Status
		wantErr error
	}{
		{"approver approves pending", instruction.StatusPending, instruction.ActionApprove, instruction.RoleApprover, instruction.StatusApproved, nil},
		{"admin approves pending", instruction.StatusPending, instruction.ActionApprove, instruction.RoleAdmin, instruction.StatusApproved, nil},
		{"approver rejects pending", instruction.StatusPending, instruction.ActionReject, instruction.RoleApprover, instruction.StatusRejected, nil},
		{"creator cannot approve", instruction.StatusPending, instruction.ActionApprove, instruction.RoleCreator, instruction.StatusPending, instruction.ErrForbidden},
		{"creator cannot reject", instruction.StatusPending, instruction.ActionReject, instruction.RoleCreator, instruction.StatusPending, instruction.ErrForbidden},
		{"approve twice is illegal", instruction.StatusApproved, instruction.ActionApprove, instruction.RoleApprover, instruction.StatusApproved, instruction.ErrIllegalTransition},
		{"reject after approve is illegal", instruction.StatusApproved, instruction.ActionReject, instruction.RoleAdmin, instruction.StatusApproved, instruction.ErrIllegalTransition},
		{"admin starts approved", instruction.StatusApproved, instruction.ActionStart, instruction.RoleAdmin, instruction.StatusInProgress, nil},
		{"approver cannot start", instruction.StatusApproved, instruction.ActionStart, instruction.RoleApprover, instruction.StatusApproved, instruction.ErrForbidden},
		{"start from pending is illegal", instruction.StatusPending, instruction.ActionStart, instruction.RoleAdmin, instruction.StatusPending, instruction.ErrIllegalTransition},
		{"rejected is terminal", instruction.StatusRejected, instruction.ActionApprove, instruction.RoleAdmin, instruction.StatusRejected, instruction.ErrIllegalTransition},
		{"in progress belongs to executor", instruction.StatusInProgress, instruction.ActionComplete, instruction.RoleAdmin, instruction.StatusInProgress, instruction.ErrIllegalTransition},
		{"fail from in progress is illegal", instruction.StatusInProgress, instruction.ActionFail, instruction.RoleAdmin, instruction.StatusInProgress, instruction.ErrIllegalTransition},
		{"unknown action is illegal", instruction.StatusPending, instruction.Action("archive"), instruction.RoleAdmin, instruction.StatusPending, instruction.ErrIllegalTransition},
		{"unknown role is forbidden", instruction.StatusPending, instruction.ActionApprove, instruction.Role("guest"), instruction.StatusPending, instruction.ErrForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := instruction.Transition(tc.from, tc.action, tc.role)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("status = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTransitionIsDeterministic(t *testing.T) {
	for range 3 {
		got, err := instruction.Transition(instruction.StatusPending, instruction.ActionReject, instruction.RoleAdmin)
		if err != nil {
			t.Fatalf("Transition: %v", err)
		}
		if got != instruction.StatusRejected {
			t.Fatalf("status = %s, want rejected", got)
		}
	}
}

func TestTransitionErrorKind(t *testing.T) {
	_, err := instruction.Transition(instruction.StatusPending, instruction.ActionApprove, instruction.RoleCreator)
	if kind := instruction.ErrorKind(err); kind != instruction.KindForbidden {
		t.Fatalf("kind = %q, want %q", kind, instruction.KindForbidden)
	}

	_, err = instruction.Transition(instruction.StatusApproved, instruction.ActionApprove, instruction.RoleApprover)
	if kind := instruction.ErrorKind(err); kind != instruction.KindIllegalTransition {
		t.Fatalf("kind = %q, want %q", kind, instruction.KindIllegalTransition)
	}

	var transitionErr *instruction.TransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if transitionErr.From != instruction.StatusApproved {
		t.Fatalf("from = %s, want approved", transitionErr.From)
	}
	if !strings.Contains(err.Error(), "cannot approve from approved") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if kind := instruction.ErrorKind(instruction.ErrNotFound); kind != instruction.KindNotFound {
		t.Fatalf("kind = %q, want %q", kind, instruction.KindNotFound)
	}
	if kind := instruction.ErrorKind(errors.New("boom")); kind != instruction.KindInternal {
		t.Fatalf("kind = %q, want %q", kind, instruction.KindInternal)
	}
	if kind := instruction.ErrorKind(nil); kind != "" {
		t.Fatalf("expected empty kind for nil, got %q", kind)
	}
}

func TestAllowedActions(t *testing.T) {
	got := instruction.AllowedActions(instruction.StatusPending, instruction.RoleApprover)
	if want := []instruction.Action{instruction.ActionApprove, instruction.ActionReject}; !slices.Equal(got, want) {
		t.Fatalf("approver on pending = %v, want %v", got, want)
	}
	if got := instruction.AllowedActions(instruction.StatusPending, instruction.RoleCreator); len(got) != 0 {
		t.Fatalf("creator on pending = %v, want none", got)
	}
	got = instruction.AllowedActions(instruction.StatusApproved, instruction.RoleAdmin)
	if want := []instruction.Action{instruction.ActionStart}; !slices.Equal(got, want) {
		t.Fatalf("admin on approved = %v, want %v", got, want)
	}
	if got := instruction.AllowedActions(instruction.StatusRejected, instruction.RoleAdmin); len(got) != 0 {
		t.Fatalf("admin on rejected = %v, want none", got)
	}
}

func TestApplyRecordsReviewer(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	current := instruction.Instruction{
		ID:        "i1",
		Status:    instruction.StatusPending,
		Tags:      []string{"highlights"},
		CreatedAt: created,
		UpdatedAt: created,
	}
	caller := instruction.Identity{Name: "riley", Role: instruction.RoleApprover}

	rejected, err := instruction.Apply(current, instruction.ActionReject, caller, "  wrong stream  ", created.Add(time.Minute))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rejected.Status != instruction.StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}
	if rejected.ReviewedBy != "riley" {
		t.Fatalf("reviewed by = %q, want riley", rejected.ReviewedBy)
	}
	if rejected.RejectionReason != "wrong stream" {
		t.Fatalf("reason = %q, want trimmed reason", rejected.RejectionReason)
	}
	if !rejected.UpdatedAt.Equal(created.Add(time.Minute)) {
		t.Fatalf("updated at = %s, want %s", rejected.UpdatedAt, created.Add(time.Minute))
	}

	rejected.Tags[0] = "mutated"
	if current.Tags[0] != "highlights" {
		t.Fatal("Apply shared tag storage with its input")
	}
}

func TestApplyLeavesRecordOnError(t *testing.T) {
	current := instruction.Instruction{ID: "i1", Status: instruction.StatusRejected, UpdatedAt: time.Now()}
	got, err := instruction.Apply(current, instruction.ActionApprove, instruction.Identity{Role: instruction.RoleAdmin}, "", time.Now())
	if !errors.Is(err, instruction.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if got.Status != current.Status {
		t.Fatalf("status = %s, want unchanged %s", got.Status, current.Status)
	}
}

func TestNextTimestampIsStrictlyIncreasing(t *testing.T) {
	prev := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		prev time.Time
		now  time.Time
		want time.Time
	}{
		{"clock ahead", prev, prev.Add(time.Second), prev.Add(time.Second)},
		{"same instant", prev, prev, prev.Add(time.Microsecond)},
		{"clock behind", prev, prev.Add(-time.Hour), prev.Add(time.Microsecond)},
		{"no previous", time.Time{}, prev, prev},
	}
	for _, tc := range tests {
		if got := instruction.NextTimestamp(tc.prev, tc.now); !got.Equal(tc.want) {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestParseAction(t *testing.T) {
	if got := instruction.ParseAction(" Approve "); got != instruction.ActionApprove {
		t.Fatalf("ParseAction(Approve) = %q", got)
	}
	if got := instruction.ParseAction("bogus"); got != instruction.Action("bogus") {
		t.Fatalf("ParseAction(bogus) = %q", got)
	}
}
