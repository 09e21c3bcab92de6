package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show journaled fix runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal()
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()

		ctx := context.Background()
		w := cmd.OutOrStdout()
		if len(args) == 1 {
			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s %s scope=%s mode=%s applied=%d\n", run.ID, run.StartedAt.Local().Format(time.DateTime), run.Scope, run.Mode, run.Applied)
			for _, d := range run.Documents {
				fmt.Fprintf(w, "  %s applied=%d iterations=%d\n", fileStyle.Sprint(d.Path), d.Applied, d.Iterations)
			}
			for _, f := range run.Failures {
				fmt.Fprintf(w, "  %s%s %s: %s\n", warnStyle.Sprint("failed: "), ruleStyle.Sprint(f.RuleID), f.Path, f.Reason)
			}
			return nil
		}

		runs, err := store.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			flags := []string{}
			if r.DryRun {
				flags = append(flags, "dry-run")
			}
			if r.Cancelled {
				flags = append(flags, "cancelled")
			}
			fmt.Fprintf(w, "%s  %s  %-10s %-10s applied=%-4d %s\n", r.ID, r.StartedAt.Local().Format(time.DateTime), r.Scope, r.Mode, r.Applied, strings.Join(flags, ","))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
}
