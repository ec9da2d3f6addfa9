package api

// Instruction describes an instruction in a transport-friendly format.
type Instruction struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Priority        string   `json:"priority"`
	Channel         string   `json:"channel"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	CreatedAt       string   `json:"createdAt,omitempty"`
	UpdatedAt       string   `json:"updatedAt"`
	RequestedBy     string   `json:"requestedBy"`
	ReviewedBy      string   `json:"reviewedBy,omitempty"`
	RejectionReason string   `json:"rejectionReason,omitempty"`
}

// TaskHistoryEntry describes a processing outcome.
type TaskHistoryEntry struct {
	ID              string  `json:"id"`
	InstructionID   string  `json:"instructionId"`
	ClipURL         string  `json:"clipUrl"`
	Outcome         string  `json:"outcome"`
	DurationSeconds float64 `json:"durationSeconds"`
	ProcessedAt     string  `json:"processedAt"`
}

// CreateInstructionRequest is the body of POST /api/instructions.
type CreateInstructionRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	Channel     string   `json:"channel,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// RejectRequest is the optional body of POST /api/instructions/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// OutcomeRequest is the body of POST /api/instructions/{id}/outcome.
type OutcomeRequest struct {
	Outcome         string  `json:"outcome"`
	ClipURL         string  `json:"clipUrl"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// ErrorResponse is returned for every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	StartedAt     string         `json:"startedAt"`
	DatabasePath  string         `json:"databasePath"`
	LockFilePath  string         `json:"lockFilePath"`
	Counts        map[string]int `json:"counts"`
	PushClients   int            `json:"pushClients"`
	Notifications bool           `json:"notifications"`
}
