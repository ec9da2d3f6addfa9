package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"trimreview/internal/instruction"
	"trimreview/internal/logging"
	"trimreview/internal/reconcile"
)

const (
	DefaultPollInterval   = 10 * time.Second
	DefaultReconnectDelay = 5 * time.Second
	defaultInboundBuffer  = 256
)

// Source identifies the producer that delivered a record.
type Source string

const (
	SourcePush Source = "push"
	SourcePoll Source = "poll"
)

// Config tunes the supervisor. Zero values select defaults.
type Config struct {
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	// StaleAfter defaults to three poll intervals.
	StaleAfter    time.Duration
	InboundBuffer int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 3 * c.PollInterval
	}
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = defaultInboundBuffer
	}
	return c
}

// Hooks receive supervisor events. All hooks are optional.
type Hooks struct {
	// OnWarning receives transient failures. It is called from producer
	// goroutines and must not block.
	OnWarning func(error)
	// OnStateChange is called whenever the channel state changes.
	OnStateChange func(ChannelState)
	// OnApplied is called from the reconciliation goroutine after every
	// record that changed the view.
	OnApplied func(instruction.Instruction, reconcile.Result)
}

type inbound struct {
	rec    instruction.Instruction
	source Source
}

// Supervisor owns the push connection and poll loop lifecycle.
type Supervisor struct {
	cfg        Config
	poll       PollSource
	dialer     PushDialer
	reconciler *reconcile.Reconciler
	hooks      Hooks
	logger     *slog.Logger
	now        func() time.Time

	inbound chan inbound
	// wake tells the poll loop that push liveness changed. Signals coalesce;
	// the loop reads pushLive and detaches instead of counting signals.
	wake chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once

	mu            sync.Mutex
	state         ChannelState
	started       time.Time
	lastHeartbeat time.Time
	lastErr       error
	conn          PushConn
	pushLive      bool
	detaches      uint64
	dialing       bool
	pollHealthy   bool
	closed        bool
}

// NewSupervisor wires producers to reconciler. dialer may be nil to run poll-only.
func NewSupervisor(cfg Config, poll PollSource, dialer PushDialer, reconciler *reconcile.Reconciler, hooks Hooks, logger *slog.Logger) *Supervisor {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		cfg:        cfg,
		poll:       poll,
		dialer:     dialer,
		reconciler: reconciler,
		hooks:      hooks,
		logger:     logging.NewComponentLogger(logger, "livesync"),
		now:        time.Now,
		inbound:    make(chan inbound, cfg.InboundBuffer),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		state:      StateDisconnected,
	}
}

// Start launches the poll loop, the push loop, and the reconciliation loop.
// The first poll runs immediately and the first push dial starts concurrently.
// Calling Start more than once has no effect.
func (s *Supervisor) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.started = s.now()
		s.mu.Unlock()

		s.wg.Add(2)
		go s.reconcileLoop()
		go s.pollLoop()
		if s.dialer != nil {
			s.wg.Add(1)
			go s.pushLoop()
		}
		s.logger.Info("live sync started",
			logging.Duration("poll_interval", s.cfg.PollInterval),
			logging.Duration("reconnect_delay", s.cfg.ReconnectDelay),
			logging.Bool("push_enabled", s.dialer != nil),
		)
	})
}

// Close stops polling, closes the push connection, and cancels any pending
// reconnect. It is safe to call repeatedly and concurrently.
func (s *Supervisor) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		conn := s.conn
		s.conn = nil
		s.pushLive = false
		s.mu.Unlock()

		s.cancel()
		if conn != nil {
			_ = conn.Close()
		}
		s.wg.Wait()
		s.updateState()
		s.logger.Info("live sync stopped")
	})
	return nil
}

// Status reports channel liveness.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.lastHeartbeat
	if ref.IsZero() {
		ref = s.started
	}
	// An open push connection is its own liveness signal; idle streams are not stale.
	stale := !s.closed && !s.pushLive && !ref.IsZero() && s.now().Sub(ref) > s.cfg.StaleAfter
	return Status{
		State:         s.state,
		LastHeartbeat: s.lastHeartbeat,
		Stale:         stale,
		LastError:     s.lastErr,
		Records:       s.reconciler.Len(),
		Dropped:       s.reconciler.Dropped(),
	}
}

func (s *Supervisor) enqueue(item inbound) bool {
	select {
	case s.inbound <- item:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Supervisor) reconcileLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case item := <-s.inbound:
			s.apply(item)
		}
	}
}

func (s *Supervisor) apply(item inbound) {
	result, err := s.reconciler.Apply(item.rec)
	if err != nil {
		if item.source == SourcePoll {
			s.warn(fmt.Errorf("%w: poll record: %w", ErrTransientIO, err))
		}
		return
	}
	if result.Applied && s.hooks.OnApplied != nil {
		s.hooks.OnApplied(item.rec, result)
	}
}

func (s *Supervisor) pollLoop() {
	defer s.wg.Done()
	s.pollOnce()
	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()
	paused := false
	var seen uint64

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			if s.isPushLive() {
				paused = true
				continue
			}
			s.pollOnce()
			timer.Reset(s.cfg.PollInterval)
		case <-s.wake:
			live, detaches := s.pushState()
			if detaches != seen {
				// Each detach owes one poll, even when push is back by now.
				seen = detaches
				timer.Stop()
				s.logger.Debug("push down; polling resumed")
				s.pollOnce()
				paused = s.isPushLive()
				if !paused {
					timer.Reset(s.cfg.PollInterval)
				}
				continue
			}
			if live && !paused {
				timer.Stop()
				paused = true
				s.logger.Debug("push live; polling paused")
			}
		}
	}
}

func (s *Supervisor) pollOnce() {
	records, err := s.poll.FetchPending(s.ctx)
	if s.ctx.Err() != nil {
		return
	}
	if err != nil && len(records) == 0 {
		s.mu.Lock()
		s.pollHealthy = false
		s.mu.Unlock()
		s.warn(fmt.Errorf("%w: poll: %w", ErrTransientIO, err))
		s.updateState()
		return
	}

	// Partial responses still prove the store is reachable.
	s.mu.Lock()
	s.pollHealthy = true
	s.lastHeartbeat = s.now()
	if err == nil {
		s.lastErr = nil
	}
	s.mu.Unlock()
	s.updateState()
	if err != nil {
		s.warn(fmt.Errorf("%w: poll: %w", ErrTransientIO, err))
	}

	for _, rec := range records {
		if !s.enqueue(inbound{rec: rec, source: SourcePoll}) {
			return
		}
	}
	s.logger.Debug("poll complete", logging.Int("records", len(records)))
}

func (s *Supervisor) pushLoop() {
	defer s.wg.Done()
	schedule := backoff.WithContext(backoff.NewConstantBackOff(s.cfg.ReconnectDelay), s.ctx)

	for {
		s.mu.Lock()
		s.dialing = true
		s.mu.Unlock()
		s.updateState()

		conn, err := s.dialer.Dial(s.ctx)
		s.mu.Lock()
		s.dialing = false
		s.mu.Unlock()

		if err == nil {
			if !s.attach(conn) {
				_ = conn.Close()
				return
			}
			s.readPush(conn)
			s.detach(conn)
		} else if s.ctx.Err() == nil {
			s.warn(fmt.Errorf("%w: %w", ErrChannelUnavailable, err))
			s.updateState()
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return
		}
		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Supervisor) attach(conn PushConn) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.conn = conn
	s.pushLive = true
	s.lastHeartbeat = s.now()
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("push channel connected")
	s.signalWake()
	s.updateState()
	return true
}

func (s *Supervisor) detach(conn PushConn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.pushLive = false
	s.detaches++
	s.mu.Unlock()
	_ = conn.Close()

	if s.ctx.Err() != nil {
		return
	}
	logging.WarnWithContext(s.logger, "push channel lost; falling back to polling", "push_disconnected",
		logging.String(logging.FieldChannel, string(SourcePush)),
		logging.Duration("reconnect_in", s.cfg.ReconnectDelay),
		logging.String(logging.FieldImpact, "updates arrive at poll cadence until push reconnects"),
	)
	s.signalWake()
	s.updateState()
}

func (s *Supervisor) readPush(conn PushConn) {
	for {
		rec, err := conn.ReadRecord()
		if err != nil {
			if errors.Is(err, instruction.ErrMalformedRecord) {
				logging.WarnWithContext(s.logger, "dropping malformed push frame", "push_frame_malformed",
					logging.Error(err),
					logging.String(logging.FieldChannel, string(SourcePush)),
					logging.String(logging.FieldImpact, "frame ignored; connection kept"),
				)
				continue
			}
			if s.ctx.Err() == nil {
				s.setLastError(fmt.Errorf("%w: %w", ErrChannelUnavailable, err))
			}
			return
		}
		s.mu.Lock()
		s.lastHeartbeat = s.now()
		s.mu.Unlock()
		if !s.enqueue(inbound{rec: rec, source: SourcePush}) {
			return
		}
	}
}

func (s *Supervisor) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Supervisor) isPushLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushLive
}

func (s *Supervisor) pushState() (live bool, detaches uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushLive, s.detaches
}

func (s *Supervisor) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Supervisor) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Supervisor) warn(err error) {
	s.setLastError(err)
	if errors.Is(err, ErrChannelUnavailable) {
		s.logger.Debug("push dial failed", logging.Error(err))
	} else {
		logging.WarnWithContext(s.logger, "poll failed", "poll_failed",
			logging.Error(err),
			logging.String(logging.FieldChannel, string(SourcePoll)),
			logging.String(logging.FieldErrorHint, "check that the instruction store is reachable"),
			logging.String(logging.FieldImpact, "view may be stale until the next successful poll"),
		)
	}
	if s.hooks.OnWarning != nil {
		s.hooks.OnWarning(err)
	}
}

func (s *Supervisor) updateState() {
	s.mu.Lock()
	next := StateDisconnected
	switch {
	case s.closed:
	case s.pushLive:
		next = StateLivePush
	case s.pollHealthy:
		next = StateLivePoll
	case s.dialing:
		next = StateConnecting
	}
	changed := next != s.state
	s.state = next
	s.mu.Unlock()

	if !changed {
		return
	}
	s.logger.Info("channel state changed", logging.String("state", string(next)))
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(next)
	}
}
