package instruction

import (
	"slices"
	"strings"
	"time"
)

type statusTransition struct {
	from   Status
	action Action
}

// legalTransitions enumerates every edge of the review workflow. Rejected and
// InProgress have no outgoing edges: rejection is final and in-progress work
// belongs to the execution system.
var legalTransitions = map[statusTransition]Status{
	{from: StatusPending, action: ActionApprove}: StatusApproved,
	{from: StatusPending, action: ActionReject}:  StatusRejected,
	{from: StatusApproved, action: ActionStart}:  StatusInProgress,
}

var actionRoles = map[Action][]Role{
	ActionApprove:  {RoleApprover, RoleAdmin},
	ActionReject:   {RoleApprover, RoleAdmin},
	ActionStart:    {RoleAdmin},
	ActionComplete: {RoleAdmin},
	ActionFail:     {RoleAdmin},
}

// Transition returns the status reached by applying action to current on
// behalf of role.
func Transition(current Status, action Action, role Role) (Status, error) {
	next, ok := legalTransitions[statusTransition{from: current, action: action}]
	if !ok {
		return current, &TransitionError{From: current, Action: action, Role: role, Err: ErrIllegalTransition}
	}
	if !RoleMay(role, action) {
		return current, &TransitionError{From: current, Action: action, Role: role, Err: ErrForbidden}
	}
	return next, nil
}

// RoleMay reports whether role is permitted to request action at all.
func RoleMay(role Role, action Action) bool {
	return slices.Contains(actionRoles[action], role)
}

// AllowedActions lists the actions role could legally take from current.
func AllowedActions(current Status, role Role) []Action {
	var actions []Action
	for _, action := range []Action{ActionApprove, ActionReject, ActionStart, ActionComplete, ActionFail} {
		if _, err := Transition(current, action, role); err == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

// ParseAction maps a user supplied action name to an Action. Unknown names
// are returned verbatim so Transition reports them as illegal.
func ParseAction(value string) Action {
	return Action(strings.ToLower(strings.TrimSpace(value)))
}

// Apply runs Transition and produces the mutated record. now is the store's
// clock; the returned UpdatedAt is strictly after the previous one even when
// the clock stalls or steps backwards.
func Apply(current Instruction, action Action, caller Identity, reason string, now time.Time) (Instruction, error) {
	next, err := Transition(current.Status, action, caller.Role)
	if err != nil {
		return current, err
	}
	updated := current.Clone()
	updated.Status = next
	switch action {
	case ActionApprove:
		updated.ReviewedBy = caller.Name
		updated.RejectionReason = ""
	case ActionReject:
		updated.ReviewedBy = caller.Name
		updated.RejectionReason = strings.TrimSpace(reason)
	}
	updated.UpdatedAt = NextTimestamp(current.UpdatedAt, now)
	return updated, nil
}

// timestampResolution is the smallest step the store persists.
const timestampResolution = time.Microsecond

// NextTimestamp returns a timestamp strictly after prev, preferring now.
func NextTimestamp(prev, now time.Time) time.Time {
	now = now.UTC().Truncate(timestampResolution)
	if prev.IsZero() || now.After(prev) {
		return now
	}
	return prev.UTC().Add(timestampResolution)
}
