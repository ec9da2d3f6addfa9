package reconcile

import (
	"log/slog"
	"sync"

	"trimreview/internal/instruction"
	"trimreview/internal/logging"
)

// Result reports the outcome of merging one record.
type Result struct {
	Applied bool
	View    Snapshot
}

// Reconciler holds the latest known record per instruction id.
type Reconciler struct {
	mu      sync.RWMutex
	records map[string]instruction.Instruction
	version uint64
	dropped uint64
	logger  *slog.Logger
}

// New constructs an empty reconciler.
func New(logger *slog.Logger) *Reconciler {
	return &Reconciler{
		records: make(map[string]instruction.Instruction),
		logger:  logging.NewComponentLogger(logger, "reconcile"),
	}
}

// Apply merges rec into the view. Unknown ids are inserted; known ids are
// replaced only by a strictly newer UpdatedAt. Malformed records are dropped
// and reported with an error wrapping instruction.ErrMalformedRecord.
func (r *Reconciler) Apply(rec instruction.Instruction) (Result, error) {
	if err := instruction.Validate(rec); err != nil {
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		logging.WarnWithContext(r.logger, "dropping malformed instruction record", "record_malformed",
			logging.Error(err),
			logging.Instruction(rec.ID),
			logging.String(logging.FieldImpact, "record ignored; view unchanged"),
		)
		return Result{View: r.Snapshot(nil)}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[rec.ID]
	if ok && !rec.NewerThan(existing) {
		r.logger.Debug("ignoring stale instruction record",
			logging.Instruction(rec.ID),
			logging.Time("held_updated_at", existing.UpdatedAt),
			logging.Time("received_updated_at", rec.UpdatedAt),
		)
		return Result{Applied: false, View: project(r.version, r.records, nil)}, nil
	}

	r.records[rec.ID] = rec.Clone()
	r.version++
	r.logger.Debug("applied instruction record",
		logging.Instruction(rec.ID),
		logging.String("status", string(rec.Status)),
		logging.Uint64("version", r.version),
	)
	return Result{Applied: true, View: project(r.version, r.records, nil)}, nil
}

// Snapshot projects the current view through filter.
func (r *Reconciler) Snapshot(filter Filter) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return project(r.version, r.records, filter)
}

// Get returns the held record for id.
func (r *Reconciler) Get(id string) (instruction.Instruction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return instruction.Instruction{}, false
	}
	return rec.Clone(), true
}

// Len returns the number of held records.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Dropped returns how many malformed records were rejected.
func (r *Reconciler) Dropped() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dropped
}
