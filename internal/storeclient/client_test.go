package storeclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trimreview/internal/api"
	"trimreview/internal/auth"
	"trimreview/internal/instruction"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchPendingSendsBearerAndConverts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/instructions/pending" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, http.StatusOK, []api.Instruction{
			{ID: "i1", Status: "pending", UpdatedAt: "2026-01-01T00:00:00.000001Z"},
			{ID: "i2", Status: "approved", UpdatedAt: "garbage"},
		})
	}))
	defer srv.Close()

	client, err := New(srv.URL, auth.StaticToken("tok"), time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	recs, err := client.FetchPending(context.Background())
	if !errors.Is(err, instruction.ErrMalformedRecord) {
		t.Fatalf("expected malformed error for bad record, got %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "i1" {
		t.Fatalf("expected the good record to survive, got %+v", recs)
	}
	if recs[0].UpdatedAt.Nanosecond() != 1000 {
		t.Fatalf("lost microseconds: %s", recs[0].UpdatedAt)
	}
}

func TestTransitionMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusForbidden, instruction.ErrForbidden},
		{http.StatusConflict, instruction.ErrIllegalTransition},
		{http.StatusNotFound, instruction.ErrNotFound},
		{http.StatusBadRequest, instruction.ErrInvalidInput},
		{http.StatusUnauthorized, ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, api.ErrorResponse{Error: tc.want.Error() + ": detail", Kind: "x"})
			}))
			defer srv.Close()

			client, err := New(srv.URL, nil, time.Second)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			_, err = client.Approve(context.Background(), "i1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if got := err.Error(); got != tc.want.Error()+": detail" {
				t.Fatalf("message not deduplicated: %q", got)
			}
		})
	}
}

func TestRejectSendsReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/instructions/i1/reject" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body api.RejectRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, api.Instruction{
			ID: "i1", Status: "rejected", RejectionReason: body.Reason, UpdatedAt: "2026-01-01T00:00:01Z",
		})
	}))
	defer srv.Close()

	client, _ := New(srv.URL, nil, time.Second)
	rec, err := client.Reject(context.Background(), "i1", "too long")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rec.Status != instruction.StatusRejected || rec.RejectionReason != "too long" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestTransitionRefusesAgentOnlyActionsLocally(t *testing.T) {
	client, _ := New("http://127.0.0.1:1", nil, time.Second)
	_, err := client.Transition(context.Background(), "i1", instruction.ActionComplete, "")
	if !errors.Is(err, instruction.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestUnavailableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, _ := New(url, nil, time.Second)
	_, err := client.FetchPending(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if IsUnavailable(instruction.ErrForbidden) {
		t.Fatal("forbidden is not unavailability")
	}
	if !IsUnavailable(&StatusError{Code: http.StatusBadGateway}) {
		t.Fatal("5xx counts as unavailable")
	}
}

func TestNewAcceptsBareHostPort(t *testing.T) {
	client, err := New("127.0.0.1:7610/", nil, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.BaseURL() != "http://127.0.0.1:7610" {
		t.Fatalf("BaseURL = %q", client.BaseURL())
	}
}
