package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trimreview/internal/api"
	"trimreview/internal/instruction"
	"trimreview/internal/logging"
	"trimreview/internal/reconcile"
	"trimreview/internal/storeclient"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var channel string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Print the current instruction view once",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := viewFilter(statuses, channel)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *storeclient.Client) error {
				recs, err := client.FetchPending(cmd.Context())
				if err != nil {
					return err
				}
				view := reconcile.New(logging.NewNop())
				for _, rec := range recs {
					if _, err := view.Apply(rec); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "skipping record: %v\n", err)
					}
				}
				snapshot := view.Snapshot(filter)
				if jsonOutput {
					out := make(map[string][]api.Instruction, len(snapshot.Groups))
					for _, group := range snapshot.Groups {
						out[string(group.Status)] = api.FromInstructions(group.Instructions)
					}
					return writeJSON(cmd, out)
				}
				if snapshot.Total() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No instructions")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderGroupedView(snapshot, isTerminal(cmd.OutOrStdout()), time.Now()))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show these statuses")
	cmd.Flags().StringVar(&channel, "channel", "", "Only show instructions for this channel")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *storeclient.Client) error {
				rec, err := client.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					if errors.Is(err, instruction.ErrNotFound) {
						return fmt.Errorf("instruction %s not found", args[0])
					}
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.FromInstruction(rec))
				}
				fmt.Fprint(cmd.OutOrStdout(), renderInstructionDetail(rec))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderInstructionDetail(rec instruction.Instruction) string {
	var b strings.Builder
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&b, "%-14s %s\n", label+":", value)
	}
	line("ID", rec.ID)
	line("Title", rec.Title)
	line("Status", statusHeading(rec.Status))
	line("Priority", string(rec.Priority))
	line("Channel", rec.Channel)
	if len(rec.Tags) > 0 {
		line("Tags", strings.Join(rec.Tags, ", "))
	}
	line("Requested by", rec.RequestedBy)
	line("Reviewed by", rec.ReviewedBy)
	line("Reason", rec.RejectionReason)
	line("Created", api.FormatTime(rec.CreatedAt))
	line("Updated", api.FormatTime(rec.UpdatedAt))
	if rec.Description != "" {
		b.WriteString("\n")
		b.WriteString(rec.Description)
		b.WriteString("\n")
	}
	return b.String()
}

func newReviewCommands(ctx *commandContext) []*cobra.Command {
	approve := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, ctx, args[0], instruction.ActionApprove, "")
		},
	}

	var reason string
	reject := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, ctx, args[0], instruction.ActionReject, reason)
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "Why the instruction was rejected")

	start := &cobra.Command{
		Use:   "start <id>",
		Short: "Mark an approved instruction as in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, ctx, args[0], instruction.ActionStart, "")
		},
	}

	return []*cobra.Command{approve, reject, start}
}

func runTransition(cmd *cobra.Command, ctx *commandContext, id string, action instruction.Action, reason string) error {
	id = strings.TrimSpace(id)
	return ctx.withClient(func(client *storeclient.Client) error {
		rec, err := client.Transition(cmd.Context(), id, action, reason)
		if err != nil {
			return describeTransitionError(id, action, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Instruction %s is now %s\n", rec.ID, statusHeading(rec.Status))
		return nil
	})
}

func describeTransitionError(id string, action instruction.Action, err error) error {
	switch {
	case errors.Is(err, instruction.ErrForbidden):
		return fmt.Errorf("not allowed to %s instruction %s: %w", action, id, err)
	case errors.Is(err, instruction.ErrIllegalTransition):
		return fmt.Errorf("cannot %s instruction %s: %w", action, id, err)
	case errors.Is(err, instruction.ErrNotFound):
		return fmt.Errorf("instruction %s not found", id)
	default:
		return err
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var draft struct {
		title       string
		description string
		priority    string
		channel     string
		tags        []string
	}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new trimming instruction for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := instruction.Draft{
				Title:       draft.title,
				Description: draft.description,
				Priority:    instruction.Priority(strings.ToLower(strings.TrimSpace(draft.priority))),
				Channel:     draft.channel,
				Tags:        draft.tags,
			}.Normalize()
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *storeclient.Client) error {
				rec, err := client.Submit(cmd.Context(), normalized)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.FromInstruction(rec))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted instruction %s (%s)\n", rec.ID, rec.Priority)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&draft.title, "title", "", "Short title")
	cmd.Flags().StringVar(&draft.description, "description", "", "Trimming instruction text")
	cmd.Flags().StringVar(&draft.priority, "priority", "", "low, medium, or high (default medium)")
	cmd.Flags().StringVar(&draft.channel, "channel", "", "Source channel")
	cmd.Flags().StringSliceVar(&draft.tags, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newOutcomeCommand(ctx *commandContext) *cobra.Command {
	var result string
	var clipURL string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "outcome <id>",
		Short: "Record the execution result of an in-progress instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := instruction.ParseOutcome(result)
			if err != nil {
				return err
			}
			report := instruction.OutcomeReport{
				Outcome:         outcome,
				ClipURL:         strings.TrimSpace(clipURL),
				DurationSeconds: duration.Seconds(),
			}
			id := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *storeclient.Client) error {
				entry, err := client.RecordOutcome(cmd.Context(), id, report)
				if err != nil {
					return describeTransitionError(id, instruction.ActionComplete, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for instruction %s (history %s)\n", entry.Outcome, entry.InstructionID, entry.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&result, "result", "", "success, failed, or cancelled")
	cmd.Flags().StringVar(&clipURL, "clip-url", "", "URL of the produced clip")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Clip duration (e.g. 42s)")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded task outcomes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *storeclient.Client) error {
				entries, err := client.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.FromHistoryEntries(entries))
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No task history")
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.InstructionID,
						string(entry.Outcome),
						formatClipDuration(entry.DurationSeconds),
						formatAge(now.Sub(entry.ProcessedAt)),
						entry.ClipURL,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(historyColumns, rows))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

var historyColumns = []column{
	{title: "Instruction"},
	{title: "Outcome"},
	{title: "Duration", numeric: true},
	{title: "Age", numeric: true},
	{title: "Clip", max: 60},
}

func formatClipDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(100 * time.Millisecond).String()
}
