package instruction

import (
	"fmt"
	"strings"
)

// Validate checks the shape of a record received from a delivery channel.
func Validate(rec Instruction) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: instruction %s has unknown status %q", ErrMalformedRecord, rec.ID, rec.Status)
	}
	if rec.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: instruction %s missing updatedAt", ErrMalformedRecord, rec.ID)
	}
	return nil
}

// Draft is the caller-supplied part of a new instruction.
type Draft struct {
	Title       string
	Description string
	Priority    Priority
	Channel     string
	Tags        []string
}

// Normalize trims fields, applies the default priority, and rejects drafts
// the store cannot accept.
func (d Draft) Normalize() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Channel = strings.TrimSpace(d.Channel)
	d.Priority = Priority(strings.ToLower(strings.TrimSpace(string(d.Priority))))
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Title == "" {
		return Draft{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if d.Description == "" {
		return Draft{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if !d.Priority.Valid() {
		return Draft{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, d.Priority)
	}
	tags := make([]string, 0, len(d.Tags))
	for _, tag := range d.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	d.Tags = tags
	return d, nil
}

// ParseOutcome maps a wire string to an Outcome.
func ParseOutcome(raw string) (Outcome, error) {
	outcome := Outcome(strings.ToLower(strings.TrimSpace(raw)))
	if !outcome.Valid() {
		return "", fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, raw)
	}
	return outcome, nil
}
