// Package storeclient is the HTTP client for the instruction store API. It is
// the poll source and the transition path of the live sync session, and the
// transport behind the reviewer CLI.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trimreview/internal/api"
	"trimreview/internal/auth"
	"trimreview/internal/instruction"
)

var (
	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("instruction store unavailable")
	// ErrUnauthorized indicates the store rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError is returned for non-2xx replies that do not map to a known sentinel.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store returned status %d", e.Code)
	}
	return fmt.Sprintf("store returned status %d: %s", e.Code, e.Message)
}

// Client talks to the instruction store over HTTP.
type Client struct {
	base  *url.URL
	http  *http.Client
	creds auth.CredentialProvider
}

// New builds a client for baseURL. A zero timeout disables the per-request limit.
func New(baseURL string, creds auth.CredentialProvider, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("store url is required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		http:  &http.Client{Timeout: timeout},
		creds: creds,
	}, nil
}

// BaseURL returns the normalized store URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// FetchPending returns the review queue. Records that fail conversion are
// skipped and reported through an error wrapping instruction.ErrMalformedRecord
// alongside the records that did convert.
func (c *Client) FetchPending(ctx context.Context) ([]instruction.Instruction, error) {
	var payload []api.Instruction
	if err := c.do(ctx, http.MethodGet, "/api/instructions/pending", nil, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]instruction.Instruction, 0, len(payload))
	var errs []error
	for _, dto := range payload {
		rec, err := api.ToInstruction(dto)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rec)
	}
	return out, errors.Join(errs...)
}

// Get fetches one instruction.
func (c *Client) Get(ctx context.Context, id string) (instruction.Instruction, error) {
	var dto api.Instruction
	if err := c.do(ctx, http.MethodGet, "/api/instructions/"+url.PathEscape(id), nil, nil, &dto); err != nil {
		return instruction.Instruction{}, err
	}
	return api.ToInstruction(dto)
}

// Transition asks the store to apply action. The returned record is the
// store's authoritative, timestamped state.
func (c *Client) Transition(ctx context.Context, id string, action instruction.Action, reason string) (instruction.Instruction, error) {
	switch action {
	case instruction.ActionApprove, instruction.ActionReject, instruction.ActionStart:
	default:
		return instruction.Instruction{}, &instruction.TransitionError{Action: action, Err: instruction.ErrIllegalTransition}
	}
	var body any
	if action == instruction.ActionReject {
		body = api.RejectRequest{Reason: reason}
	}
	var dto api.Instruction
	path := "/api/instructions/" + url.PathEscape(id) + "/" + string(action)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &dto); err != nil {
		return instruction.Instruction{}, err
	}
	return api.ToInstruction(dto)
}

// Approve moves a pending instruction to approved.
func (c *Client) Approve(ctx context.Context, id string) (instruction.Instruction, error) {
	return c.Transition(ctx, id, instruction.ActionApprove, "")
}

// Reject moves a pending instruction to rejected with an optional reason.
func (c *Client) Reject(ctx context.Context, id, reason string) (instruction.Instruction, error) {
	return c.Transition(ctx, id, instruction.ActionReject, reason)
}

// Start moves an approved instruction to in_progress.
func (c *Client) Start(ctx context.Context, id string) (instruction.Instruction, error) {
	return c.Transition(ctx, id, instruction.ActionStart, "")
}

// Submit creates a new pending instruction.
func (c *Client) Submit(ctx context.Context, draft instruction.Draft) (instruction.Instruction, error) {
	req := api.CreateInstructionRequest{
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    string(draft.Priority),
		Channel:     draft.Channel,
		Tags:        draft.Tags,
	}
	var dto api.Instruction
	if err := c.do(ctx, http.MethodPost, "/api/instructions", nil, req, &dto); err != nil {
		return instruction.Instruction{}, err
	}
	return api.ToInstruction(dto)
}

// RecordOutcome reports the processing result of an in_progress instruction.
func (c *Client) RecordOutcome(ctx context.Context, id string, report instruction.OutcomeReport) (instruction.TaskHistoryEntry, error) {
	req := api.OutcomeRequest{
		Outcome:         string(report.Outcome),
		ClipURL:         report.ClipURL,
		DurationSeconds: report.DurationSeconds,
	}
	var dto api.TaskHistoryEntry
	if err := c.do(ctx, http.MethodPost, "/api/instructions/"+url.PathEscape(id)+"/outcome", nil, req, &dto); err != nil {
		return instruction.TaskHistoryEntry{}, err
	}
	return api.ToHistoryEntry(dto)
}

// History lists recorded outcomes, most recent first.
func (c *Client) History(ctx context.Context, limit int) ([]instruction.TaskHistoryEntry, error) {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var payload []api.TaskHistoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/tasks/history", values, nil, &payload); err != nil {
		return nil, err
	}
	out := make([]instruction.TaskHistoryEntry, 0, len(payload))
	for _, dto := range payload {
		entry, err := api.ToHistoryEntry(dto)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// Status returns daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &status)
	return status, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.base.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := auth.Apply(ctx, c.creds, req.Header); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", instruction.ErrMalformedRecord, method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if json.Unmarshal(data, &payload) != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(data))
	}
	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	case http.StatusForbidden:
		sentinel = instruction.ErrForbidden
	case http.StatusNotFound:
		sentinel = instruction.ErrNotFound
	case http.StatusConflict:
		sentinel = instruction.ErrIllegalTransition
	case http.StatusBadRequest:
		sentinel = instruction.ErrInvalidInput
	default:
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}
	detail := strings.TrimPrefix(strings.TrimPrefix(payload.Error, sentinel.Error()), ": ")
	if detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code >= 500 {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
