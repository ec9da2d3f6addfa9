package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"trimreview/internal/api"
	"trimreview/internal/instruction"
	"trimreview/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show instruction store and notification health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.storeClient()
			if err != nil {
				return err
			}

			checkCtx, cancel := context.WithTimeout(cmdContext(cmd), cfg.RequestTimeout())
			defer cancel()

			storeCheck := preflight.CheckStore(checkCtx, cfg.Client.APIURL, ctx.credentials())
			var status api.DaemonStatus
			statusErr := errors.New(storeCheck.Detail)
			if storeCheck.Passed {
				status, statusErr = client.Status(checkCtx)
			}
			if jsonOutput {
				if statusErr != nil {
					return wrapStoreError(statusErr, client.BaseURL())
				}
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(out, line)
			}
			if storeCheck.Passed {
				fmt.Fprintln(out, renderStatusLine("Store", statusOK, storeCheck.Detail, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Store", statusError, storeCheck.Detail, colorize))
			}
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "Not configured", colorize))
			} else {
				result := preflight.CheckNtfy(checkCtx, cfg.Notifications.NtfyTopic)
				fmt.Fprintln(out, resultLine("Notifications", result, colorize))
			}
			if statusErr != nil {
				if storeCheck.Passed {
					fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, statusErr.Error(), colorize))
				}
				return nil
			}
			if status.PID > 0 {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("pid %d, started %s", status.PID, status.StartedAt), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Push clients", statusInfo, strconv.Itoa(status.PushClients), colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Instructions", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderCountsTable(status))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output daemon status as JSON")
	return cmd
}

func resultLine(label string, result preflight.Result, colorize bool) string {
	if result.Passed {
		return renderStatusLine(label, statusOK, result.Detail, colorize)
	}
	return renderStatusLine(label, statusWarn, result.Detail, colorize)
}

func renderCountsTable(status api.DaemonStatus) string {
	rows := make([][]string, 0, len(instruction.Statuses()))
	total := 0
	for _, s := range instruction.Statuses() {
		count := status.Counts[string(s)]
		total += count
		rows = append(rows, []string{statusHeading(s), strconv.Itoa(count)})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(total)})
	return renderTable([]column{{title: "Status"}, {title: "Count", numeric: true}}, rows)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
