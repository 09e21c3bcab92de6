package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"avport/internal/batch"
	"avport/internal/catalog"
	"avport/internal/git"
	"avport/internal/journal"
	"avport/internal/semantic"
	"avport/internal/typemap"
	"avport/internal/workspace"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fixScope        string
	fixTarget       string
	fixDiagnostics  []string
	fixMode         string
	fixJobs         int
	fixDryRun       bool
	fixChangedSince string
	fixRequestFile  string
	fixStrict       bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Rewrite legacy idioms in a document, project or the whole solution",
	Args:  cobra.NoArgs,
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixScope, "scope", "solution", "Fix scope: document, project or solution")
	fixCmd.Flags().StringVar(&fixTarget, "target", "", "Document path or project name for document and project scopes")
	fixCmd.Flags().StringSliceVar(&fixDiagnostics, "diagnostics", nil, "Comma-separated diagnostic ids to fix (default: all)")
	fixCmd.Flags().StringVar(&fixMode, "mode", "", "Execution mode: sequential, parallel or fixall (default from config)")
	fixCmd.Flags().IntVar(&fixJobs, "jobs", 0, "Documents processed concurrently (default from config)")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Compute fixes without writing files")
	fixCmd.Flags().StringVar(&fixChangedSince, "changed-since", "", "Only fix documents changed since this git ref")
	fixCmd.Flags().StringVar(&fixRequestFile, "request", "", "Read the fix request from a JSON file")
	fixCmd.Flags().BoolVar(&fixStrict, "strict", false, "Exit with status 1 when any diagnostic could not be fixed")
}

func buildRequest(cat *catalog.Catalog) (*batch.FixRequest, error) {
	if fixRequestFile != "" {
		return batch.LoadRequest(fixRequestFile, cat)
	}
	req := &batch.FixRequest{
		Scope:         workspace.Scope(fixScope),
		Target:        fixTarget,
		DiagnosticIDs: fixDiagnostics,
		Mode:          batch.Mode(fixMode),
		ChangedSince:  fixChangedSince,
	}
	if len(req.DiagnosticIDs) == 0 {
		req.DiagnosticIDs = cfg.Fix.Diagnostics
	}
	if req.Mode == "" {
		req.Mode = batch.Mode(cfg.Fix.Mode)
	}
	if err := req.Validate(cat); err != nil {
		return nil, err
	}
	return req, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cat := catalog.Default()
	req, err := buildRequest(cat)
	if err != nil {
		return err
	}
	sln, err := loadSolution()
	if err != nil {
		return err
	}
	var store workspace.Store = workspace.NewDiskStore()
	if fixDryRun {
		store = workspace.NewOverlayStore(store)
	}
	jobs := cfg.Fix.Jobs
	if fixJobs > 0 {
		jobs = fixJobs
	}

	var bar *progressbar.ProgressBar
	orch := batch.New(cat, semantic.NewDefaultResolver(typemap.Default()), sln, store,
		batch.WithLogger(logger),
		batch.WithJobs(jobs),
		batch.WithMaxIterations(cfg.Fix.MaxIterations),
		batch.WithChangedFiles(func(ctx context.Context, ref string) ([]string, error) {
			return git.ChangedPaths(ctx, sln.Root, ref)
		}),
		batch.WithStart(func(documents int) {
			bar = newProgressBar(documents)
		}),
		batch.WithProgress(func(batch.DocumentResult) {
			_ = bar.Add(1)
		}),
	)

	started := time.Now()
	out, err := orch.Run(ctx, *req)
	if err != nil {
		return err
	}
	_ = bar.Finish()

	printOutcome(cmd.OutOrStdout(), out, fixDryRun)
	recordRun(ctx, *req, out, started)

	if fixStrict && len(out.Failures) > 0 {
		return fmt.Errorf("%d diagnostics could not be fixed", len(out.Failures))
	}
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("fixing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func recordRun(ctx context.Context, req batch.FixRequest, out *batch.FixOutcome, started time.Time) {
	if !cfg.Journal.Enabled {
		return
	}
	store, err := openJournal()
	if err != nil {
		logger.Warn("journal unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	run := journal.NewRun(req, out, fixDryRun, started, time.Now())
	if err := store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record run", zap.Error(err))
		return
	}
	logger.Debug("run recorded", zap.String("id", run.ID))
}
