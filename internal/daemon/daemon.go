package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"trimreview/internal/config"
	"trimreview/internal/logging"
	"trimreview/internal/notifications"
	"trimreview/internal/preflight"
	"trimreview/internal/push"
	"trimreview/internal/store"
)

const notifyTimeout = 15 * time.Second

// Daemon coordinates the store, API server, and push hub and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	notifier notifications.Service
	hub      *push.Hub
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	mu        sync.Mutex
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	notifyWG  sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	StartedAt     time.Time
	DatabasePath  string
	LockFilePath  string
	Counts        map[string]int
	PushClients   int
	Notifications bool
}

// New constructs a daemon around an open store. notifier may be nil.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		notifier: notifier,
		hub:      push.NewHub(logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	st.OnChange(d.handleChange)
	return d, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another trimreview daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.running.Store(true)

	if len(d.cfg.Users) == 0 {
		logging.WarnWithContext(d.logger, "no users configured; API accepts anonymous admin requests", "auth_disabled",
			logging.String(logging.FieldErrorHint, "add [[users]] entries to config.toml"),
			logging.String(logging.FieldImpact, "any local process can approve, reject, and start instructions"),
		)
	}
	d.logger.Info("trimreview daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop shuts the API down, disconnects push clients, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}

	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.api.stop()
	d.hub.Close()
	d.notifyWG.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("trimreview daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the bound API address, or "" before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Handler exposes the API routes.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	started := d.startedAt
	d.mu.Unlock()

	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StartedAt:     started,
		DatabasePath:  d.store.Path(),
		LockFilePath:  d.lockPath,
		PushClients:   d.hub.Clients(),
		Notifications: d.cfg.Notifications.NtfyTopic != "",
	}
	counts, err := d.store.Counts(ctx)
	if err != nil {
		d.logger.Warn("status counts unavailable", logging.Error(err))
		return status
	}
	status.Counts = make(map[string]int, len(counts))
	for s, n := range counts {
		status.Counts[string(s)] = n
	}
	return status
}

// Run opens the store, starts the daemon, and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	st, err := store.Open(cfg, store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d, err := New(cfg, st, logger, nil)
	if err != nil {
		_ = st.Close()
		return err
	}
	defer d.Close()

	for _, failed := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "daemon starts anyway; affected features may not work"),
		)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if err := d.Start(groupCtx); err != nil {
		return err
	}
	group.Go(func() error {
		<-groupCtx.Done()
		d.Stop()
		return nil
	})
	group.Go(func() error {
		return d.api.wait(groupCtx)
	})
	return group.Wait()
}

func (d *Daemon) runContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}
