package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trimreview/internal/instruction"
	"trimreview/internal/logging"
)

// RecordOutcome stores the processing result for an in_progress instruction
// and archives it so it leaves the review queue. Only admins (the agent) may
// report outcomes.
func (s *Store) RecordOutcome(ctx context.Context, id string, report instruction.OutcomeReport, caller instruction.Identity) (instruction.TaskHistoryEntry, error) {
	ctx = ensureContext(ctx)
	if caller.Role != instruction.RoleAdmin {
		return instruction.TaskHistoryEntry{}, fmt.Errorf("%w: role %q may not report outcomes", instruction.ErrForbidden, caller.Role)
	}
	if !report.Outcome.Valid() {
		return instruction.TaskHistoryEntry{}, fmt.Errorf("%w: unknown outcome %q", instruction.ErrInvalidInput, report.Outcome)
	}
	if report.DurationSeconds < 0 {
		return instruction.TaskHistoryEntry{}, fmt.Errorf("%w: negative duration", instruction.ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		entry instruction.TaskHistoryEntry
		rec   instruction.Instruction
	)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		current, err := getInstruction(ctx, tx, id)
		if err != nil {
			return err
		}
		var archived int
		if err := tx.QueryRowContext(ctx, `SELECT archived FROM instructions WHERE id = ?`, id).Scan(&archived); err != nil {
			return err
		}
		if archived != 0 {
			return fmt.Errorf("%w: outcome already recorded for %s", instruction.ErrIllegalTransition, id)
		}
		if current.Status != instruction.StatusInProgress {
			return fmt.Errorf("%w: cannot record outcome for %s instruction", instruction.ErrIllegalTransition, current.Status)
		}

		processed := instruction.NextTimestamp(current.UpdatedAt, s.now())
		entry = instruction.TaskHistoryEntry{
			ID:              uuid.NewString(),
			InstructionID:   id,
			ClipURL:         report.ClipURL,
			Outcome:         report.Outcome,
			DurationSeconds: report.DurationSeconds,
			ProcessedAt:     processed,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_history (id, instruction_id, clip_url, outcome, duration_seconds, processed_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.InstructionID, entry.ClipURL, entry.Outcome, entry.DurationSeconds,
			formatTimestamp(entry.ProcessedAt),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE instructions SET archived = 1, updated_at = ? WHERE id = ?`,
			formatTimestamp(processed), id,
		); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		rec = current
		rec.UpdatedAt = processed
		return nil
	})
	if err != nil {
		if kind := instruction.ErrorKind(err); kind != instruction.KindInternal {
			return instruction.TaskHistoryEntry{}, err
		}
		return instruction.TaskHistoryEntry{}, fmt.Errorf("record outcome for %s: %w", id, err)
	}

	s.logger.Info("outcome recorded",
		logging.Instruction(id),
		logging.String("outcome", string(entry.Outcome)),
		logging.String("clip_url", entry.ClipURL),
	)
	out := entry
	s.emit(Change{Kind: ChangeOutcome, Instruction: rec, Outcome: &out})
	return entry, nil
}

// History returns recorded outcomes, most recent first. A limit of zero or
// less returns everything.
func (s *Store) History(ctx context.Context, limit int) ([]instruction.TaskHistoryEntry, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, instruction_id, clip_url, outcome, duration_seconds, processed_at
              FROM task_history ORDER BY processed_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []instruction.TaskHistoryEntry
	for rows.Next() {
		var (
			entry     instruction.TaskHistoryEntry
			outcome   string
			processed string
		)
		if err := rows.Scan(&entry.ID, &entry.InstructionID, &entry.ClipURL, &outcome, &entry.DurationSeconds, &processed); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Outcome = instruction.Outcome(outcome)
		if entry.ProcessedAt, err = parseTimestamp(processed); err != nil {
			return nil, fmt.Errorf("parse processed_at for %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
