package batch

import (
	"context"
	"path/filepath"

	"avport/internal/catalog"
	"avport/internal/fixerr"
	"avport/internal/rewrite"
	"avport/internal/semantic"
	"avport/internal/syntax"
	"avport/internal/workspace"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultJobs          = 4
	defaultMaxIterations = 500
)

// ScopeResolver expands a request scope into document paths.
type ScopeResolver interface {
	Resolve(scope workspace.Scope, target string) ([]string, error)
}

// ChangedFilesFunc lists absolute paths changed since a git ref.
type ChangedFilesFunc func(ctx context.Context, ref string) ([]string, error)

// Orchestrator drives fix requests over a set of documents.
type Orchestrator struct {
	catalog       *catalog.Catalog
	engine        *rewrite.Engine
	resolver      *semantic.Resolver
	scopes        ScopeResolver
	store         workspace.Store
	logger        *zap.Logger
	jobs          int
	maxIterations int
	changedFiles  ChangedFilesFunc
	onStart       func(documents int)
	onDocument    func(DocumentResult)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithJobs bounds the number of documents processed concurrently.
func WithJobs(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.jobs = n
		}
	}
}

// WithMaxIterations sets the per-document rewrite ceiling.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

func WithChangedFiles(fn ChangedFilesFunc) Option {
	return func(o *Orchestrator) { o.changedFiles = fn }
}

// WithStart registers a callback invoked once the documents of a run are
// known, after scope resolution and change filtering.
func WithStart(fn func(documents int)) Option {
	return func(o *Orchestrator) { o.onStart = fn }
}

// WithProgress registers a callback invoked as each document finishes.
// It may be called from several goroutines.
func WithProgress(fn func(DocumentResult)) Option {
	return func(o *Orchestrator) { o.onDocument = fn }
}

// New creates an orchestrator.
func New(cat *catalog.Catalog, resolver *semantic.Resolver, scopes ScopeResolver, store workspace.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:       cat,
		engine:        rewrite.NewEngine(cat, resolver),
		resolver:      resolver,
		scopes:        scopes,
		store:         store,
		logger:        zap.NewNop(),
		jobs:          defaultJobs,
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes req. Partial failures are reported in the outcome; only an
// invalid request or an unresolvable scope is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, req FixRequest) (*FixOutcome, error) {
	if err := req.Validate(o.catalog); err != nil {
		return nil, err
	}
	paths, err := o.scopes.Resolve(req.Scope, req.Target)
	if err != nil {
		return nil, fixerr.New(fixerr.InvalidRequest, "failed to resolve scope", err)
	}
	if req.ChangedSince != "" {
		paths, err = o.filterChanged(ctx, paths, req.ChangedSince)
		if err != nil {
			return nil, err
		}
	}

	if o.onStart != nil {
		o.onStart(len(paths))
	}

	filter := catalog.NewFilter(req.DiagnosticIDs...)
	mode := req.mode()
	o.logger.Info("starting fix run",
		zap.String("scope", string(req.Scope)),
		zap.String("mode", string(mode)),
		zap.Int("documents", len(paths)),
		zap.Strings("diagnostics", req.DiagnosticIDs))

	results := make([]DocumentResult, len(paths))
	visited := make([]bool, len(paths))
	if mode == ModeSequential {
		o.runSequential(ctx, paths, filter, results, visited)
	} else {
		o.runConcurrent(ctx, paths, filter, results, visited)
	}

	out := assemble(results, visited, ctx.Err() != nil)
	o.logger.Info("fix run finished",
		zap.Int("applied", out.AppliedCount),
		zap.Int("modified", len(out.ModifiedFiles)),
		zap.Int("failures", len(out.Failures)),
		zap.Bool("cancelled", out.Cancelled))
	return out, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, paths []string, filter catalog.Filter, results []DocumentResult, visited []bool) {
	for i, path := range paths {
		if ctx.Err() != nil {
			return
		}
		results[i] = o.fixDocument(ctx, path, filter)
		visited[i] = true
		o.report(results[i])
	}
}

func (o *Orchestrator) runConcurrent(ctx context.Context, paths []string, filter catalog.Filter, results []DocumentResult, visited []bool) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = o.fixDocument(gctx, path, filter)
			visited[i] = true
			o.report(results[i])
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) report(r DocumentResult) {
	if o.onDocument != nil {
		o.onDocument(r)
	}
}

// fixDocument runs the analyze/apply loop on one document until no
// filtered rule matches. A finding whose rewrite fails is recorded and
// skipped for the rest of the loop; only a failed write ends it early.
func (o *Orchestrator) fixDocument(ctx context.Context, path string, filter catalog.Filter) DocumentResult {
	res := newDocumentResult(path)
	log := o.logger.With(zap.String("path", path))

	src, err := o.store.Read(ctx, path)
	if err != nil {
		res.fail(fixerr.New(fixerr.PersistenceFailure, "failed to read document", err).WithPath(path))
		return res
	}
	snap, err := syntax.Parse(ctx, path, src, 0)
	if err != nil {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res
		}
		res.fail(fixerr.New(fixerr.MalformedPattern, "failed to parse document", err).WithPath(path))
		return res
	}

	skipped := map[string]bool{}
	for {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		if res.Iterations >= o.maxIterations {
			res.fail(fixerr.Newf(fixerr.NotConverged, "no convergence after %d iterations", res.Iterations).WithPath(path))
			log.Warn("document did not converge", zap.Int("iterations", res.Iterations))
			break
		}

		sc := semantic.NewContext(snap, o.resolver)
		finding, ok := firstEligible(o.catalog.Analyze(sc, filter), skipped)
		if !ok {
			break
		}
		res.Iterations++

		applied, err := o.engine.Apply(ctx, snap, finding)
		if err != nil {
			code := fixerr.CodeOf(err)
			if code == fixerr.StaleAnchor {
				log.Debug("stale finding skipped", zap.String("rule", finding.RuleID), zap.Error(err))
				skipped[finding.Key] = true
				continue
			}
			if code == fixerr.Cancelled {
				res.Cancelled = true
				break
			}
			log.Warn("rewrite failed", zap.String("rule", finding.RuleID), zap.Error(err))
			res.fail(err)
			skipped[finding.Key] = true
			continue
		}

		if err := o.store.Write(ctx, path, applied.Snapshot.Source); err != nil {
			if ctx.Err() != nil {
				res.Cancelled = true
				break
			}
			res.fail(fixerr.New(fixerr.PersistenceFailure, "failed to write document", err).WithRule(finding.RuleID).WithPath(path))
			log.Warn("write failed", zap.Error(err))
			break
		}
		snap = applied.Snapshot
		res.Applied++
		res.Modified = true
		res.PerDiagnosticIDCounts[finding.RuleID]++
		for _, n := range applied.Notes {
			res.Notes = append(res.Notes, Note{RuleID: finding.RuleID, Path: path, Text: n})
		}
		log.Debug("rewrite applied",
			zap.String("rule", finding.RuleID),
			zap.Uint32("line", finding.Anchor.Line),
			zap.Uint64("generation", snap.Generation))
	}
	return res
}

func firstEligible(findings []catalog.Finding, skipped map[string]bool) (catalog.Finding, bool) {
	for _, f := range findings {
		if !skipped[f.Key] {
			return f, true
		}
	}
	return catalog.Finding{}, false
}

func (o *Orchestrator) filterChanged(ctx context.Context, paths []string, ref string) ([]string, error) {
	if o.changedFiles == nil {
		return nil, fixerr.Newf(fixerr.InvalidRequest, "changedSince %s given but no change source is configured", ref)
	}
	changed, err := o.changedFiles(ctx, ref)
	if err != nil {
		return nil, fixerr.New(fixerr.InvalidRequest, "failed to list changed files since "+ref, err)
	}
	set := make(map[string]bool, len(changed))
	for _, c := range changed {
		set[filepath.Clean(c)] = true
	}
	var out []string
	for _, p := range paths {
		if set[filepath.Clean(p)] {
			out = append(out, p)
		}
	}
	return out, nil
}
