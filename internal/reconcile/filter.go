package reconcile

import (
	"slices"
	"strings"

	"trimreview/internal/instruction"
)

// Filter selects the records a caller wants to see. A nil Filter matches all.
type Filter func(instruction.Instruction) bool

func (f Filter) match(rec instruction.Instruction) bool {
	return f == nil || f(rec)
}

// All matches records accepted by every non-nil filter.
func All(filters ...Filter) Filter {
	return func(rec instruction.Instruction) bool {
		for _, f := range filters {
			if !f.match(rec) {
				return false
			}
		}
		return true
	}
}

// ByStatus matches records in any of the given statuses.
func ByStatus(statuses ...instruction.Status) Filter {
	if len(statuses) == 0 {
		return nil
	}
	return func(rec instruction.Instruction) bool {
		return slices.Contains(statuses, rec.Status)
	}
}

// ByChannel matches records for a channel, case-insensitively.
func ByChannel(channel string) Filter {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil
	}
	return func(rec instruction.Instruction) bool {
		return strings.EqualFold(rec.Channel, channel)
	}
}

// ByPriority matches records with the given priority.
func ByPriority(priority instruction.Priority) Filter {
	if priority == "" {
		return nil
	}
	return func(rec instruction.Instruction) bool {
		return rec.Priority == priority
	}
}

// ByTag matches records carrying tag.
func ByTag(tag string) Filter {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil
	}
	return func(rec instruction.Instruction) bool {
		return slices.ContainsFunc(rec.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
	}
}
