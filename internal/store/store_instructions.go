package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trimreview/internal/instruction"
	"trimreview/internal/logging"
)

const instructionColumns = `id, title, description, priority, channel, tags_json, status,
    requested_by, reviewed_by, rejection_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstruction(row rowScanner) (instruction.Instruction, error) {
	var (
		rec                   instruction.Instruction
		priority, status      string
		tagsJSON              string
		reviewedBy, rejection sql.NullString
		createdAt, updatedAt  string
	)
	if err := row.Scan(
		&rec.ID, &rec.Title, &rec.Description, &priority, &rec.Channel, &tagsJSON, &status,
		&rec.RequestedBy, &reviewedBy, &rejection, &createdAt, &updatedAt,
	); err != nil {
		return instruction.Instruction{}, err
	}
	rec.Priority = instruction.Priority(priority)
	rec.Status = instruction.Status(status)
	rec.ReviewedBy = reviewedBy.String
	rec.RejectionReason = rejection.String
	if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
		return instruction.Instruction{}, fmt.Errorf("decode tags for %s: %w", rec.ID, err)
	}
	var err error
	if rec.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return instruction.Instruction{}, fmt.Errorf("parse created_at for %s: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return instruction.Instruction{}, fmt.Errorf("parse updated_at for %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Create inserts a new pending instruction submitted by caller. Any known role
// may submit.
func (s *Store) Create(ctx context.Context, draft instruction.Draft, caller instruction.Identity) (instruction.Instruction, error) {
	ctx = ensureContext(ctx)
	if !caller.Role.Valid() {
		return instruction.Instruction{}, fmt.Errorf("%w: unknown role %q", instruction.ErrForbidden, caller.Role)
	}
	draft, err := draft.Normalize()
	if err != nil {
		return instruction.Instruction{}, err
	}
	tagsJSON, err := json.Marshal(draft.Tags)
	if err != nil {
		return instruction.Instruction{}, fmt.Errorf("encode tags: %w", err)
	}

	now := instruction.NextTimestamp(time.Time{}, s.now())
	rec := instruction.Instruction{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		Channel:     draft.Channel,
		Tags:        draft.Tags,
		Status:      instruction.StatusPending,
		RequestedBy: caller.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO instructions (`+instructionColumns+`)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
			rec.ID, rec.Title, rec.Description, rec.Priority, rec.Channel, string(tagsJSON),
			rec.Status, rec.RequestedBy, formatTimestamp(rec.CreatedAt), formatTimestamp(rec.UpdatedAt),
		)
		return execErr
	})
	if err != nil {
		return instruction.Instruction{}, fmt.Errorf("insert instruction: %w", err)
	}

	s.logger.Info("instruction submitted",
		logging.Instruction(rec.ID),
		logging.String("requested_by", rec.RequestedBy),
		logging.String("priority", string(rec.Priority)),
	)
	s.emit(Change{Kind: ChangeSubmitted, Instruction: rec.Clone()})
	return rec, nil
}

// Get fetches an instruction by identifier. Missing ids return instruction.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (instruction.Instruction, error) {
	return getInstruction(ensureContext(ctx), s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getInstruction(ctx context.Context, q queryRower, id string) (instruction.Instruction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+instructionColumns+` FROM instructions WHERE id = ?`, id)
	rec, err := scanInstruction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return instruction.Instruction{}, fmt.Errorf("%w: %s", instruction.ErrNotFound, id)
	}
	if err != nil {
		return instruction.Instruction{}, fmt.Errorf("get instruction: %w", err)
	}
	return rec, nil
}

// ListPending returns every non-archived instruction, most recently updated
// first. Reviewed instructions stay in the list so rejections remain visible.
func (s *Store) ListPending(ctx context.Context) ([]instruction.Instruction, error) {
	ctx = ensureContext(ctx)
	var out []instruction.Instruction
	err := retryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+instructionColumns+` FROM instructions
             WHERE archived = 0
             ORDER BY updated_at DESC, id`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = out[:0]
		for rows.Next() {
			rec, err := scanInstruction(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	return out, nil
}

// Counts returns the number of non-archived instructions per status.
func (s *Store) Counts(ctx context.Context) (map[instruction.Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM instructions WHERE archived = 0 GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count instructions: %w", err)
	}
	defer rows.Close()

	counts := make(map[instruction.Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[instruction.Status(status)] = count
	}
	return counts, rows.Err()
}

// Transition applies action to the instruction on behalf of caller. The state
// machine runs inside the transaction so concurrent reviewers cannot both win:
// the second sees the committed status and fails with ErrIllegalTransition.
func (s *Store) Transition(ctx context.Context, id string, action instruction.Action, caller instruction.Identity, reason string) (instruction.Instruction, error) {
	ctx = ensureContext(ctx)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated instruction.Instruction
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
		next, err := instruction.Apply(current, action, caller, reason, s.now())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE instructions
             SET status = ?, reviewed_by = ?, rejection_reason = ?, updated_at = ?
             WHERE id = ?`,
			next.Status,
			nullableString(next.ReviewedBy),
			nullableString(next.RejectionReason),
			formatTimestamp(next.UpdatedAt),
			id,
		); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		if kind := instruction.ErrorKind(err); kind != instruction.KindInternal {
			return instruction.Instruction{}, err
		}
		return instruction.Instruction{}, fmt.Errorf("transition instruction %s: %w", id, err)
	}

	s.logger.Info("instruction transitioned",
		logging.Instruction(id),
		logging.String("action", string(action)),
		logging.String("status", string(updated.Status)),
		logging.String("caller", caller.Name),
	)
	kind := ChangeReviewed
	if action == instruction.ActionStart {
		kind = ChangeStarted
	}
	s.emit(Change{Kind: kind, Instruction: updated.Clone()})
	return updated, nil
}
