package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"trimreview/internal/config"
	"trimreview/internal/daemon"
	"trimreview/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var bind string
	var logLevel string

	cmd := &cobra.Command{
		Use:           "trimreviewd",
		Short:         "Serve the trimming instruction store and live update channel",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			applyOverrides(cfg, bind, logLevel)

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := daemon.Run(ctx, cfg, logger); err != nil {
				return err
			}
			logger.Info("trimreviewd shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (overrides logging.level)")
	return cmd
}

func applyOverrides(cfg *config.Config, bind, logLevel string) {
	if cfg == nil {
		return
	}
	if value := strings.TrimSpace(bind); value != "" {
		cfg.Server.Bind = value
	}
	if value := strings.ToLower(strings.TrimSpace(logLevel)); value != "" {
		cfg.Logging.Level = value
	}
}
