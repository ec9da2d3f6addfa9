package instruction

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition indicates the action is not allowed from the current status.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrForbidden indicates the caller role may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrMalformedRecord indicates a received record failed shape validation.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrNotFound indicates the instruction does not exist.
	ErrNotFound = errors.New("instruction not found")
	// ErrInvalidInput indicates a submission or outcome request failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// Error kinds reported by ErrorKind.
const (
	KindIllegalTransition = "illegal_transition"
	KindForbidden         = "forbidden"
	KindMalformed         = "malformed"
	KindNotFound          = "not_found"
	KindInvalid           = "invalid"
	KindInternal          = "internal"
)

// ErrorClassifier lets errors declare their classification so transports can
// map them to status codes without string matching.
type ErrorClassifier interface {
	ErrorKind() string
}

// TransitionError describes a rejected state machine step.
type TransitionError struct {
	From   Status
	Action Action
	Role   Role
	Err    error
}

func (e *TransitionError) Error() string {
	if errors.Is(e.Err, ErrForbidden) {
		return fmt.Sprintf("%s: role %q may not %s", e.Err, e.Role, e.Action)
	}
	return fmt.Sprintf("%s: cannot %s from %s", e.Err, e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// ErrorKind implements ErrorClassifier.
func (e *TransitionError) ErrorKind() string {
	if errors.Is(e.Err, ErrForbidden) {
		return KindForbidden
	}
	return KindIllegalTransition
}

// ErrorKind classifies err. Errors implementing ErrorClassifier win; otherwise
// the sentinel errors of this package are matched with errors.Is.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrIllegalTransition):
		return KindIllegalTransition
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrMalformedRecord):
		return KindMalformed
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalid
	}
	return KindInternal
}
