package main

import (
	"fmt"
	"io"
	"sort"

	"avport/internal/batch"

	"github.com/fatih/color"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warnStyle    = color.New(color.FgYellow, color.Bold)
	successStyle = color.New(color.FgGreen, color.Bold)
	ruleStyle    = color.New(color.FgYellow)
	fileStyle    = color.New(color.FgCyan)
	noteStyle    = color.New(color.FgBlue)
)

func printOutcome(w io.Writer, out *batch.FixOutcome, dryRun bool) {
	for _, f := range out.Failures {
		rule := f.RuleID
		if rule == "" {
			rule = "-"
		}
		fmt.Fprintf(w, "%s%s %s: %s (%s)\n", warnStyle.Sprint("warning: "), ruleStyle.Sprint(rule), fileStyle.Sprint(f.Path), f.Reason, f.Code)
	}
	for _, n := range out.Notes {
		fmt.Fprintf(w, "%s%s %s: %s\n", noteStyle.Sprint("note: "), ruleStyle.Sprint(n.RuleID), fileStyle.Sprint(n.Path), n.Text)
	}

	ids := make([]string, 0, len(out.PerDiagnosticIDCounts))
	for id := range out.PerDiagnosticIDCounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %s %d\n", ruleStyle.Sprint(id), out.PerDiagnosticIDCounts[id])
	}

	verb := "Modified"
	if dryRun {
		verb = "Would modify"
	}
	for _, p := range out.ModifiedFiles {
		fmt.Fprintf(w, "%s %s\n", verb, fileStyle.Sprint(p))
	}

	fmt.Fprintln(w, successStyle.Sprintf("Fixed %d diagnostics", out.AppliedCount))
	if out.Cancelled {
		fmt.Fprintln(w, warnStyle.Sprint("Run cancelled; the outcome is partial"))
	}
}
