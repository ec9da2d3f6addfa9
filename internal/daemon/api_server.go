package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"trimreview/internal/api"
	"trimreview/internal/config"
	"trimreview/internal/instruction"
	"trimreview/internal/logging"
	"trimreview/internal/push"
)

const (
	maxBodyBytes        = 64 * 1024
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
	serveErr chan error
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Server.Bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/instructions/pending", srv.handlePending)
	mux.HandleFunc("POST /api/instructions", srv.handleCreate)
	mux.HandleFunc("GET /api/instructions/{id}", srv.handleGet)
	mux.HandleFunc("POST /api/instructions/{id}/outcome", srv.handleOutcome)
	mux.HandleFunc("POST /api/instructions/{id}/{action}", srv.handleTransition)
	mux.HandleFunc("GET /api/tasks/history", srv.handleHistory)
	mux.Handle("GET "+push.UpdatesPath, d.hub)
	srv.handler = authMiddleware(cfg, mux)
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	serveErr := make(chan error, 1)

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.serveErr = serveErr
	s.mu.Unlock()

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
			serveErr <- err
		}
		close(serveErr)
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// wait blocks until the server exits, returning its error if it failed.
func (s *apiServer) wait(ctx context.Context) error {
	s.mu.Lock()
	serveErr := s.serveErr
	s.mu.Unlock()
	if serveErr == nil {
		return nil
	}
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		StartedAt:     api.FormatTime(status.StartedAt),
		DatabasePath:  status.DatabasePath,
		LockFilePath:  status.LockFilePath,
		Counts:        status.Counts,
		PushClients:   status.PushClients,
		Notifications: status.Notifications,
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handlePending(w http.ResponseWriter, r *http.Request) {
	recs, err := s.daemon.store.ListPending(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromInstructions(recs))
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.daemon.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromInstruction(rec))
}

func (s *apiServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateInstructionRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	rec, err := s.daemon.store.Create(r.Context(), instruction.Draft{
		Title:       req.Title,
		Description: req.Description,
		Priority:    instruction.Priority(req.Priority),
		Channel:     req.Channel,
		Tags:        req.Tags,
	}, callerFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromInstruction(rec))
}

func (s *apiServer) handleTransition(w http.ResponseWriter, r *http.Request) {
	action := instruction.ParseAction(r.PathValue("action"))
	switch action {
	case instruction.ActionApprove, instruction.ActionReject, instruction.ActionStart:
	default:
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", action), instruction.KindNotFound)
		return
	}

	var req api.RejectRequest
	if action == instruction.ActionReject && !s.decode(w, r, &req, true) {
		return
	}
	rec, err := s.daemon.store.Transition(r.Context(), r.PathValue("id"), action, callerFrom(r.Context()), req.Reason)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromInstruction(rec))
}

func (s *apiServer) handleOutcome(w http.ResponseWriter, r *http.Request) {
	var req api.OutcomeRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	outcome, err := instruction.ParseOutcome(req.Outcome)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	entry, err := s.daemon.store.RecordOutcome(r.Context(), r.PathValue("id"), instruction.OutcomeReport{
		Outcome:         outcome,
		ClipURL:         req.ClipURL,
		DurationSeconds: req.DurationSeconds,
	}, callerFrom(r.Context()))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromHistoryEntry(entry))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer", instruction.KindInvalid)
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	entries, err := s.daemon.store.History(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromHistoryEntries(entries))
}

// decode reads a JSON body into dst. When optional is set an empty body is
// accepted.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), instruction.KindInvalid)
	return false
}

// writeFailure maps err to a status code by its kind.
func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := instruction.ErrorKind(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
		)
		s.writeError(w, status, "internal error", kind)
		return
	}
	logging.WithContext(r.Context(), s.logger).Debug("api request rejected",
		logging.String("path", r.URL.Path),
		logging.String("kind", kind),
		logging.Error(err),
	)
	s.writeError(w, status, err.Error(), kind)
}

func statusForKind(kind string) int {
	switch kind {
	case instruction.KindForbidden:
		return http.StatusForbidden
	case instruction.KindIllegalTransition:
		return http.StatusConflict
	case instruction.KindNotFound:
		return http.StatusNotFound
	case instruction.KindInvalid, instruction.KindMalformed:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSONError(w, status, message, kind, s.logger)
}

func writeJSONError(w http.ResponseWriter, status int, message, kind string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Error: message, Kind: kind}); err != nil && logger != nil {
		logger.Error("failed to encode error response", logging.Error(err))
	}
}
