package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"trimreview/internal/config"
	"trimreview/internal/livesync"
	"trimreview/internal/logging"
	"trimreview/internal/reconcile"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var channel string
	var debug bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live instruction view",
		Long: "Follow instructions as they change. Updates arrive over the push channel;\n" +
			"while it is down the view is kept current by polling.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filter, err := viewFilter(statuses, channel)
			if err != nil {
				return err
			}
			logger, err := watchLogger(cfg, debug)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := &watcher{
				out:      out,
				filter:   filter,
				tty:      isTerminal(out),
				changed:  make(chan struct{}, 1),
				warnings: make(chan error, 8),
			}
			session, err := livesync.NewSessionFromConfig(cfg, ctx.credentials(), logger, w.warn, func(livesync.ChannelState) { w.poke() })
			if err != nil {
				return err
			}
			defer session.Close()

			cancel := session.Subscribe(filter, func(reconcile.Snapshot) { w.poke() })
			defer cancel()

			session.Start()
			return w.run(cmd.Context(), session)
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show these statuses (pending, approved, rejected, in_progress)")
	cmd.Flags().StringVar(&channel, "channel", "", "Only show instructions for this channel")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log channel diagnostics to stderr")
	return cmd
}

// watchLogger keeps the terminal quiet unless --debug is set.
func watchLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, err
	}
	if debug {
		return logging.WithLevelOverride(logger, slog.LevelDebug), nil
	}
	return logging.WithLevelOverride(logger, slog.LevelWarn), nil
}

type watcher struct {
	out      io.Writer
	filter   reconcile.Filter
	tty      bool
	changed  chan struct{}
	warnings chan error

	lastVersion uint64
	lastState   livesync.ChannelState
	lastWarning error
	rendered    bool
}

func (w *watcher) poke() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func (w *watcher) warn(err error) {
	select {
	case w.warnings <- err:
	default:
	}
}

func (w *watcher) run(ctx context.Context, session *livesync.Session) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var tick <-chan time.Time
	if w.tty {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}
	w.render(session, true)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.changed:
			w.render(session, false)
		case err := <-w.warnings:
			w.lastWarning = err
			if !w.tty {
				fmt.Fprintf(w.out, "warning: %v\n", err)
			}
		case <-tick:
			w.render(session, true)
		}
	}
}

// render redraws the screen on a terminal. Piped output only receives a new
// frame when the view or the channel state changed.
func (w *watcher) render(session *livesync.Session, force bool) {
	view := session.Snapshot(w.filter)
	status := session.Status()
	if !w.tty && w.rendered && !force && view.Version == w.lastVersion && status.State == w.lastState {
		return
	}
	w.lastVersion = view.Version
	w.lastState = status.State
	w.rendered = true

	now := time.Now()
	if w.tty {
		fmt.Fprint(w.out, ansiClear)
	} else {
		fmt.Fprintf(w.out, "--- %s ---\n", now.Format(time.TimeOnly))
	}
	fmt.Fprint(w.out, renderGroupedView(view, w.tty, now))
	fmt.Fprintln(w.out, renderChannelLine(status, w.tty, now))
	if w.tty && w.lastWarning != nil && status.State != livesync.StateLivePush {
		fmt.Fprintln(w.out, renderStatusLine("Last warning", statusWarn, w.lastWarning.Error(), true))
	}
}
