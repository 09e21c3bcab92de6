package rewrite

import (
	"context"
	"errors"

	"avport/internal/catalog"
	"avport/internal/fixerr"
	"avport/internal/semantic"
	"avport/internal/syntax"
)

// Result is the outcome of applying one finding.
type Result struct {
	Snapshot *syntax.Snapshot
	Notes    []string
}

// Engine applies findings to snapshots. It never mutates its input.
type Engine struct {
	catalog  *catalog.Catalog
	resolver *semantic.Resolver
}

// NewEngine creates an engine over a catalog and resolver.
func NewEngine(cat *catalog.Catalog, resolver *semantic.Resolver) *Engine {
	return &Engine{catalog: cat, resolver: resolver}
}

// Apply rewrites snap according to f and returns the successor snapshot.
// Failures are *fixerr.Error values attributed to the finding's rule.
func (e *Engine) Apply(ctx context.Context, snap *syntax.Snapshot, f catalog.Finding) (*Result, error) {
	res, err := e.apply(ctx, snap, f)
	if err != nil {
		return nil, fixerr.As(err, fixerr.MalformedPattern).WithRule(f.RuleID).WithPath(snap.Path)
	}
	return res, nil
}

func (e *Engine) apply(ctx context.Context, snap *syntax.Snapshot, f catalog.Finding) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fixerr.New(fixerr.Cancelled, "rewrite cancelled", err)
	}
	if f.Path != snap.Path || f.Generation != snap.Generation {
		return nil, fixerr.Stale("finding from generation %d applied to generation %d", f.Generation, snap.Generation)
	}
	rule, ok := e.catalog.Rule(f.RuleID)
	if !ok {
		return nil, fixerr.Malformed("no rule owns %s", f.RuleID)
	}
	node := snap.Locate(f.Anchor)
	if node == nil {
		return nil, fixerr.Stale("no %s at %s", f.Anchor.Kind, f.Anchor.Range)
	}

	sc := semantic.NewContext(snap, e.resolver)
	if !rule.Match(node, sc) {
		return nil, fixerr.Stale("%s no longer matches at line %d", f.RuleID, f.Anchor.Line)
	}
	rw, err := rule.Rewrite(sc, node)
	if err != nil {
		return nil, err
	}
	if rw == nil || len(rw.Edits) == 0 {
		return nil, fixerr.Malformed("rewrite produced no edits")
	}

	out, err := syntax.ApplyEdits(snap.Source, rw.Edits)
	if err != nil {
		return nil, fixerr.New(fixerr.MalformedPattern, "invalid edits", err)
	}
	next, err := snap.Next(ctx, out)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, fixerr.New(fixerr.Cancelled, "reparse cancelled", err)
		}
		return nil, fixerr.New(fixerr.MalformedPattern, "reparse failed", err)
	}
	if !snap.HasErrors() && next.HasErrors() {
		return nil, fixerr.Malformed("rewrite introduced syntax errors")
	}
	return &Result{Snapshot: next, Notes: rw.Notes}, nil
}
