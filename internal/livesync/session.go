package livesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"trimreview/internal/auth"
	"trimreview/internal/config"
	"trimreview/internal/instruction"
	"trimreview/internal/logging"
	"trimreview/internal/push"
	"trimreview/internal/reconcile"
	"trimreview/internal/storeclient"
)

// SnapshotFunc receives the recomputed view after an applied update.
type SnapshotFunc func(reconcile.Snapshot)

type subscription struct {
	filter reconcile.Filter
	fn     SnapshotFunc
}

// Session is the reviewer-facing handle on a live instruction view.
type Session struct {
	store      Store
	reconciler *reconcile.Reconciler
	supervisor *Supervisor
	logger     *slog.Logger

	subsMu sync.Mutex
	subs   map[uint64]subscription
	nextID uint64

	// notifying is set while one goroutine delivers snapshots; renotify asks
	// it for another round.
	notifyMu  sync.Mutex
	notifying bool
	renotify  bool
}

// SessionOptions configures NewSession.
type SessionOptions struct {
	Config Config
	Store  Store
	// Dialer may be nil to run poll-only.
	Dialer        PushDialer
	Logger        *slog.Logger
	OnWarning     func(error)
	OnStateChange func(ChannelState)
}

// NewSession builds a session. Call Start to begin syncing.
func NewSession(opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Session{
		store:      opts.Store,
		reconciler: reconcile.New(logger),
		logger:     logging.NewComponentLogger(logger, "session"),
		subs:       make(map[uint64]subscription),
	}
	s.supervisor = NewSupervisor(opts.Config, opts.Store, opts.Dialer, s.reconciler, Hooks{
		OnWarning:     opts.OnWarning,
		OnStateChange: opts.OnStateChange,
		OnApplied:     s.notify,
	}, logger)
	return s
}

// NewSessionFromConfig wires a session to the store described by cfg using
// creds for both the HTTP client and the push dialer.
func NewSessionFromConfig(cfg *config.Config, creds auth.CredentialProvider, logger *slog.Logger, onWarning func(error), onStateChange func(ChannelState)) (*Session, error) {
	client, err := storeclient.New(cfg.Client.APIURL, creds, cfg.RequestTimeout())
	if err != nil {
		return nil, err
	}
	pushURL, err := push.ResolveURL(cfg.Client.APIURL, cfg.Client.WSURL)
	if err != nil {
		return nil, fmt.Errorf("resolve push url: %w", err)
	}
	return NewSession(SessionOptions{
		Config: Config{
			PollInterval:   cfg.PollInterval(),
			ReconnectDelay: cfg.ReconnectDelay(),
			StaleAfter:     cfg.StaleAfter(),
		},
		Store:         client,
		Dialer:        WebsocketDialer(&push.Dialer{URL: pushURL, Credentials: creds}),
		Logger:        logger,
		OnWarning:     onWarning,
		OnStateChange: onStateChange,
	}), nil
}

// Start begins polling and dialing push.
func (s *Session) Start() {
	s.supervisor.Start()
}

// Close tears the session down. Safe to call repeatedly and concurrently.
func (s *Session) Close() error {
	err := s.supervisor.Close()
	s.subsMu.Lock()
	clear(s.subs)
	s.subsMu.Unlock()
	return err
}

// Subscribe registers fn to receive the view restricted to filter after every
// applied update. Callbacks never run concurrently. An update applied while
// callbacks are running is delivered as one more snapshot after they return,
// so a callback may call RequestTransition. The returned func removes the
// subscription and may be called more than once.
func (s *Session) Subscribe(filter reconcile.Filter, fn SnapshotFunc) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = subscription{filter: filter, fn: fn}
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// Snapshot returns the current view restricted to filter.
func (s *Session) Snapshot(filter reconcile.Filter) reconcile.Snapshot {
	return s.reconciler.Snapshot(filter)
}

// Get returns the held record for id.
func (s *Session) Get(id string) (instruction.Instruction, bool) {
	return s.reconciler.Get(id)
}

// RequestTransition asks the store to apply action to id. The store's reply
// is authoritative and timestamped, so it is merged into the local view before
// returning; a stale poll arriving later cannot undo it. Forbidden and
// illegal transitions come back as the store's typed errors.
func (s *Session) RequestTransition(ctx context.Context, id string, action instruction.Action, reason string) (instruction.Instruction, error) {
	if s.supervisor.isClosed() {
		return instruction.Instruction{}, ErrClosed
	}
	rec, err := s.store.Transition(ctx, id, action, reason)
	if err != nil {
		return instruction.Instruction{}, err
	}
	result, err := s.reconciler.Apply(rec)
	if err != nil {
		return rec, fmt.Errorf("apply transition result: %w", err)
	}
	if result.Applied {
		s.notify(rec, result)
	}
	s.logger.Info("transition applied",
		logging.Instruction(rec.ID),
		logging.String("action", string(action)),
		logging.String("status", string(rec.Status)),
	)
	return rec, nil
}

// Status reports channel liveness.
func (s *Session) Status() Status {
	return s.supervisor.Status()
}

func (s *Session) notify(_ instruction.Instruction, _ reconcile.Result) {
	s.notifyMu.Lock()
	if s.notifying {
		s.renotify = true
		s.notifyMu.Unlock()
		return
	}
	s.notifying = true
	s.notifyMu.Unlock()

	for {
		s.deliver()
		s.notifyMu.Lock()
		if !s.renotify {
			s.notifying = false
			s.notifyMu.Unlock()
			return
		}
		s.renotify = false
		s.notifyMu.Unlock()
	}
}

func (s *Session) deliver() {
	s.subsMu.Lock()
	subs := make([]subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(s.reconciler.Snapshot(sub.filter))
	}
}
