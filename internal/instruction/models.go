package instruction

import (
	"slices"
	"time"
)

// Status represents the review lifecycle of an instruction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in_progress"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusApproved,
	StatusRejected,
}

// Statuses returns every known status in display order.
func Statuses() []Status {
	return slices.Clone(allStatuses)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(allStatuses, s)
}

// Action is a requested workflow step.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionFail     Action = "fail"
)

// Role is the caller role supplied by the auth collaborator.
type Role string

const (
	RoleCreator  Role = "creator"
	RoleApprover Role = "approver"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCreator, RoleApprover, RoleAdmin:
		return true
	}
	return false
}

// Priority is an opaque hint carried with the instruction.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Identity describes the caller performing a request.
type Identity struct {
	Name string
	Role Role
}

// Instruction is a reviewable unit of trimming work.
type Instruction struct {
	ID              string
	Title           string
	Description     string
	Priority        Priority
	Channel         string
	Tags            []string
	Status          Status
	RequestedBy     string
	ReviewedBy      string
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy so callers cannot mutate shared tag slices.
func (i Instruction) Clone() Instruction {
	i.Tags = slices.Clone(i.Tags)
	return i
}

// NewerThan reports whether i carries a strictly later UpdatedAt than other.
func (i Instruction) NewerThan(other Instruction) bool {
	return i.UpdatedAt.After(other.UpdatedAt)
}

// Outcome is the terminal result reported by the execution system.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailed, OutcomeCancelled:
		return true
	}
	return false
}

// TaskHistoryEntry records the outcome of processing an approved instruction.
type TaskHistoryEntry struct {
	ID              string
	InstructionID   string
	ClipURL         string
	Outcome         Outcome
	DurationSeconds float64
	ProcessedAt     time.Time
}

// OutcomeReport is what the execution system reports when it finishes an instruction.
type OutcomeReport struct {
	Outcome         Outcome
	ClipURL         string
	DurationSeconds float64
}
