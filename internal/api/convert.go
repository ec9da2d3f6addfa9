package api

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"trimreview/internal/instruction"
)

// FromInstruction converts an instruction to its API representation.
func FromInstruction(rec instruction.Instruction) Instruction {
	tags := slices.Clone(rec.Tags)
	if tags == nil {
		tags = []string{}
	}
	return Instruction{
		ID:              rec.ID,
		Title:           rec.Title,
		Description:     rec.Description,
		Priority:        string(rec.Priority),
		Channel:         rec.Channel,
		Tags:            tags,
		Status:          string(rec.Status),
		CreatedAt:       formatTime(rec.CreatedAt),
		UpdatedAt:       formatTime(rec.UpdatedAt),
		RequestedBy:     rec.RequestedBy,
		ReviewedBy:      rec.ReviewedBy,
		RejectionReason: rec.RejectionReason,
	}
}

// FromInstructions converts a slice, never returning nil.
func FromInstructions(recs []instruction.Instruction) []Instruction {
	out := make([]Instruction, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromInstruction(rec))
	}
	return out
}

// ToInstruction converts a DTO back to the internal model. Timestamp parse
// failures wrap instruction.ErrMalformedRecord; shape checks are left to
// instruction.Validate.
func ToInstruction(dto Instruction) (instruction.Instruction, error) {
	updated, err := parseTime(dto.UpdatedAt)
	if err != nil {
		return instruction.Instruction{}, fmt.Errorf("%w: instruction %s updatedAt: %v", instruction.ErrMalformedRecord, dto.ID, err)
	}
	created, err := parseTime(dto.CreatedAt)
	if err != nil {
		return instruction.Instruction{}, fmt.Errorf("%w: instruction %s createdAt: %v", instruction.ErrMalformedRecord, dto.ID, err)
	}
	return instruction.Instruction{
		ID:              dto.ID,
		Title:           dto.Title,
		Description:     dto.Description,
		Priority:        instruction.Priority(dto.Priority),
		Channel:         dto.Channel,
		Tags:            slices.Clone(dto.Tags),
		Status:          instruction.Status(dto.Status),
		RequestedBy:     dto.RequestedBy,
		ReviewedBy:      dto.ReviewedBy,
		RejectionReason: dto.RejectionReason,
		CreatedAt:       created,
		UpdatedAt:       updated,
	}, nil
}

// DecodeInstruction parses a single JSON instruction record, as carried by one
// push frame.
func DecodeInstruction(data []byte) (instruction.Instruction, error) {
	var dto Instruction
	if err := json.Unmarshal(data, &dto); err != nil {
		return instruction.Instruction{}, fmt.Errorf("%w: %v", instruction.ErrMalformedRecord, err)
	}
	return ToInstruction(dto)
}

// FromHistoryEntry converts a history entry to its API representation.
func FromHistoryEntry(entry instruction.TaskHistoryEntry) TaskHistoryEntry {
	return TaskHistoryEntry{
		ID:              entry.ID,
		InstructionID:   entry.InstructionID,
		ClipURL:         entry.ClipURL,
		Outcome:         string(entry.Outcome),
		DurationSeconds: entry.DurationSeconds,
		ProcessedAt:     formatTime(entry.ProcessedAt),
	}
}

// FromHistoryEntries converts a slice, never returning nil.
func FromHistoryEntries(entries []instruction.TaskHistoryEntry) []TaskHistoryEntry {
	out := make([]TaskHistoryEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromHistoryEntry(entry))
	}
	return out
}

// ToHistoryEntry converts a DTO back to the internal model.
func ToHistoryEntry(dto TaskHistoryEntry) (instruction.TaskHistoryEntry, error) {
	processed, err := parseTime(dto.ProcessedAt)
	if err != nil {
		return instruction.TaskHistoryEntry{}, fmt.Errorf("%w: history %s processedAt: %v", instruction.ErrMalformedRecord, dto.ID, err)
	}
	return instruction.TaskHistoryEntry{
		ID:              dto.ID,
		InstructionID:   dto.InstructionID,
		ClipURL:         dto.ClipURL,
		Outcome:         instruction.Outcome(dto.Outcome),
		DurationSeconds: dto.DurationSeconds,
		ProcessedAt:     processed,
	}, nil
}

// FormatTime renders t the way API payloads carry timestamps.
func FormatTime(t time.Time) string {
	return formatTime(t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
