package api

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"trimreview/internal/instruction"
)

func TestFromInstructionPreservesSubMillisecondTimestamps(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 1500, time.UTC)
	rec := instruction.Instruction{
		ID:          "i1",
		Title:       "Trim intro",
		Description: "remove first 5s",
		Priority:    instruction.PriorityHigh,
		Status:      instruction.StatusApproved,
		RequestedBy: "casey",
		ReviewedBy:  "morgan",
		CreatedAt:   updated.Add(-time.Hour),
		UpdatedAt:   updated,
	}

	dto := FromInstruction(rec)
	if dto.Status != "approved" || dto.Priority != "high" {
		t.Fatalf("unexpected enums: %+v", dto)
	}
	if dto.Tags == nil {
		t.Fatal("expected empty tags slice, got nil")
	}

	back, err := ToInstruction(dto)
	if err != nil {
		t.Fatalf("ToInstruction: %v", err)
	}
	if !back.UpdatedAt.Equal(updated) {
		t.Fatalf("updatedAt lost precision: got %s want %s", back.UpdatedAt, updated)
	}
	if back.ReviewedBy != "morgan" {
		t.Fatalf("reviewedBy = %q", back.ReviewedBy)
	}
}

func TestInstructionJSONUsesCamelCase(t *testing.T) {
	dto := FromInstruction(instruction.Instruction{
		ID:              "i1",
		Status:          instruction.StatusRejected,
		RejectionReason: "too long",
		UpdatedAt:       time.Unix(10, 0),
	})
	data, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"updatedAt", "rejectionReason", "requestedBy"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected key %q in %s", key, data)
		}
	}
	if _, ok := fields["reviewedBy"]; ok {
		t.Fatalf("reviewedBy should be omitted before review: %s", data)
	}
}

func TestDecodeInstructionRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not json":      "{nope",
		"bad timestamp": `{"id":"i1","status":"pending","updatedAt":"yesterday"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeInstruction([]byte(payload))
			if !errors.Is(err, instruction.ErrMalformedRecord) {
				t.Fatalf("expected malformed record error, got %v", err)
			}
		})
	}
}

func TestDecodeInstructionLeavesShapeChecksToValidate(t *testing.T) {
	rec, err := DecodeInstruction([]byte(`{"id":"i1","status":"archived","updatedAt":"2026-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("DecodeInstruction: %v", err)
	}
	if err := instruction.Validate(rec); !errors.Is(err, instruction.ErrMalformedRecord) {
		t.Fatalf("expected Validate to reject unknown status, got %v", err)
	}
}

func TestHistoryEntryConversion(t *testing.T) {
	processed := time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC)
	dto := FromHistoryEntry(instruction.TaskHistoryEntry{
		ID:              "h1",
		InstructionID:   "i1",
		ClipURL:         "https://cdn.example/clip.mp4",
		Outcome:         instruction.OutcomeSuccess,
		DurationSeconds: 12.5,
		ProcessedAt:     processed,
	})
	if dto.ProcessedAt != "2026-02-02T08:30:00Z" {
		t.Fatalf("processedAt = %q", dto.ProcessedAt)
	}
	back, err := ToHistoryEntry(dto)
	if err != nil {
		t.Fatalf("ToHistoryEntry: %v", err)
	}
	if back.Outcome != instruction.OutcomeSuccess || !back.ProcessedAt.Equal(processed) {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}
