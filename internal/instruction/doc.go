// Package instruction defines the reviewable Instruction record and the pure
// review-workflow state machine that governs its status.
//
// Transition is a pure function of (status, action, role): it performs no I/O
// and returns either the next status or a typed error wrapping
// ErrIllegalTransition or ErrForbidden. Because it is deterministic, callers
// can evaluate it repeatedly without coordinating with each other.
//
// The authoritative store is the only component that calls Transition when
// mutating records. Consumers that merely observe records (the reconciler)
// rely on Validate to reject malformed shapes and otherwise trust that the
// store already enforced legality.
package instruction
