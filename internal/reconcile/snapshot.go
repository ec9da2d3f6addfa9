package reconcile

import (
	"cmp"
	"slices"

	"trimreview/internal/instruction"
)

// Group is one status bucket of a snapshot.
type Group struct {
	Status       instruction.Status
	Instructions []instruction.Instruction
}

// Snapshot is the grouped view handed to observers.
type Snapshot struct {
	// Version counts applied updates; it increases whenever the view changes.
	Version uint64
	Groups  []Group
}

// Group returns the bucket for status. Unknown statuses yield nil.
func (s Snapshot) Group(status instruction.Status) []instruction.Instruction {
	for _, g := range s.Groups {
		if g.Status == status {
			return g.Instructions
		}
	}
	return nil
}

// Total returns the number of records across all buckets.
func (s Snapshot) Total() int {
	total := 0
	for _, g := range s.Groups {
		total += len(g.Instructions)
	}
	return total
}

// Counts returns per-status totals.
func (s Snapshot) Counts() map[instruction.Status]int {
	counts := make(map[instruction.Status]int, len(s.Groups))
	for _, g := range s.Groups {
		counts[g.Status] = len(g.Instructions)
	}
	return counts
}

// project builds a snapshot from records. Every known status gets a bucket,
// even when empty, so renderers can show "nothing here" rows.
func project(version uint64, records map[string]instruction.Instruction, filter Filter) Snapshot {
	buckets := make(map[instruction.Status][]instruction.Instruction, 4)
	for _, rec := range records {
		if !filter.match(rec) {
			continue
		}
		buckets[rec.Status] = append(buckets[rec.Status], rec.Clone())
	}

	statuses := instruction.Statuses()
	groups := make([]Group, 0, len(statuses))
	for _, status := range statuses {
		items := buckets[status]
		slices.SortFunc(items, func(a, b instruction.Instruction) int {
			if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		groups = append(groups, Group{Status: status, Instructions: items})
	}
	return Snapshot{Version: version, Groups: groups}
}
