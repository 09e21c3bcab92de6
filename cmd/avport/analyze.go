package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"avport/internal/catalog"
	"avport/internal/git"
	"avport/internal/semantic"
	"avport/internal/syntax"
	"avport/internal/typemap"
	"avport/internal/workspace"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	analyzeDiagnostics  []string
	analyzeChangedSince string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Report legacy idioms without rewriting",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeDiagnostics, "diagnostics", nil, "Comma-separated diagnostic ids to report (default: all)")
	analyzeCmd.Flags().StringVar(&analyzeChangedSince, "changed-since", "", "Only report findings on lines changed since this git ref")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cat := catalog.Default()
	for _, id := range analyzeDiagnostics {
		if _, ok := cat.Rule(id); !ok {
			return fmt.Errorf("unknown diagnostic id %s", id)
		}
	}

	paths, err := analyzePaths(args)
	if err != nil {
		return err
	}

	var changed map[string]git.ChangedFile
	if analyzeChangedSince != "" {
		files, err := git.GetChangedFiles(ctx, cfg.Workspace.Root, analyzeChangedSince)
		if err != nil {
			return fmt.Errorf("failed to list changes since %s: %w", analyzeChangedSince, err)
		}
		changed = map[string]git.ChangedFile{}
		for _, f := range files {
			changed[f.Path] = f
		}
	}

	resolver := semantic.NewDefaultResolver(typemap.Default())
	store := workspace.NewDiskStore()
	filter := catalog.NewFilter(analyzeDiagnostics...)
	w := cmd.OutOrStdout()
	total := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		var diff *git.ChangedFile
		if changed != nil {
			f, ok := changed[path]
			if !ok {
				continue
			}
			diff = &f
		}

		src, err := store.Read(ctx, path)
		if err != nil {
			logger.Warn("skipping unreadable document", zap.String("path", path), zap.Error(err))
			continue
		}
		snap, err := syntax.Parse(ctx, path, src, 0)
		if err != nil {
			return err
		}
		findings := cat.Analyze(semantic.NewContext(snap, resolver), filter)
		if diff != nil {
			findings = onChangedLines(findings, *diff)
		}
		for _, f := range findings {
			rule, _ := cat.Rule(f.RuleID)
			fmt.Fprintf(w, "%s:%d: %s %s\n    %s\n", fileStyle.Sprint(path), f.Anchor.Line, ruleStyle.Sprint(f.RuleID), rule.Title(), f.Snippet)
			total++
		}
	}
	fmt.Fprintf(w, "%d findings in %d documents\n", total, len(paths))
	return nil
}

// onChangedLines keeps the findings whose anchor starts on a changed line.
func onChangedLines(findings []catalog.Finding, diff git.ChangedFile) []catalog.Finding {
	var out []catalog.Finding
	for _, f := range findings {
		if diff.Touches(int(f.Anchor.Line)) {
			out = append(out, f)
		}
	}
	return out
}

// analyzePaths returns the requested documents, or every solution
// document when none are given.
func analyzePaths(args []string) ([]string, error) {
	if len(args) > 0 {
		out := make([]string, 0, len(args))
		for _, a := range args {
			abs, err := filepath.Abs(a)
			if err != nil {
				return nil, err
			}
			out = append(out, abs)
		}
		return out, nil
	}
	sln, err := loadSolution()
	if err != nil {
		return nil, err
	}
	return sln.Documents(), nil
}
