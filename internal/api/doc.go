// Package api defines wire-format types and converters for the HTTP and
// websocket layer. It translates internal instruction models into
// transport-friendly DTOs that the reviewer UI and CLI can render without
// coupling to internal types.
//
// # Key Types
//
// Instruction: transport representation of a reviewable instruction.
//
// TaskHistoryEntry: recorded processing outcome for an instruction.
//
// DaemonStatus: store daemon runtime information and per-status counts.
//
// ErrorResponse: error body carrying a machine-readable kind.
//
// # Converters
//
// FromInstruction/ToInstruction and FromHistoryEntry/ToHistoryEntry translate
// between the DTOs and internal models. DecodeInstruction parses a single push
// frame; conversion failures wrap instruction.ErrMalformedRecord.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Enums are
// exposed as lowercase strings. Timestamps use RFC3339 with nanoseconds so the
// reconciler can compare store-assigned updatedAt values without loss.
package api
