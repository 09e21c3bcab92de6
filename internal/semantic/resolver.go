package semantic

import (
	"strings"
	"sync/atomic"

	"avport/internal/typemap"
)

// Tier records which stage produced a resolution.
type Tier string

const (
	TierSymbol  Tier = "symbol"
	TierTextual Tier = "textual"
)

// Resolution is the fully qualified name a type reference denotes.
type Resolution struct {
	Name string
	Tier Tier
}

// Known reports whether the reference resolved.
func (r Resolution) Known() bool { return r.Name != "" }

// Unknown is returned when no stage could resolve a reference.
var Unknown = Resolution{}

// ResolveStats counts stage activity.
type ResolveStats struct {
	Attempted int64
	Resolved  int64
	Skipped   int64
}

// Stage is one tier of type resolution.
type Stage interface {
	Name() Tier
	Resolve(text string, m *Model) (string, bool)
}

// StageResult reports one stage's counters.
type StageResult struct {
	Stage Tier
	Stats ResolveStats
}

type stageCounters struct {
	attempted atomic.Int64
	resolved  atomic.Int64
}

// Resolver runs stages in order; the first stage to resolve a reference wins.
// It is safe for concurrent use.
type Resolver struct {
	table    *typemap.Table
	stages   []Stage
	counters []*stageCounters
}

// NewResolver builds a resolver over explicit stages.
func NewResolver(table *typemap.Table, stages ...Stage) *Resolver {
	r := &Resolver{table: table, stages: stages}
	for range stages {
		r.counters = append(r.counters, &stageCounters{})
	}
	return r
}

// NewDefaultResolver resolves symbolically first and textually second.
func NewDefaultResolver(table *typemap.Table) *Resolver {
	return NewResolver(table, NewSymbolStage(table), NewTextualStage(table))
}

// Table returns the mapping table the resolver consults.
func (r *Resolver) Table() *typemap.Table { return r.table }

// Resolve resolves a type reference's source text in the context of m.
func (r *Resolver) Resolve(text string, m *Model) Resolution {
	for i, s := range r.stages {
		r.counters[i].attempted.Add(1)
		if name, ok := s.Resolve(text, m); ok {
			r.counters[i].resolved.Add(1)
			return Resolution{Name: name, Tier: s.Name()}
		}
	}
	return Unknown
}

// Stats reports per-stage counters accumulated so far.
func (r *Resolver) Stats() []StageResult {
	var out []StageResult
	for i, s := range r.stages {
		attempted := r.counters[i].attempted.Load()
		resolved := r.counters[i].resolved.Load()
		out = append(out, StageResult{
			Stage: s.Name(),
			Stats: ResolveStats{Attempted: attempted, Resolved: resolved, Skipped: attempted - resolved},
		})
	}
	return out
}

// SymbolStage resolves references the way a compiler would: aliases, the
// document's own types, fully qualified names and imported namespaces.
type SymbolStage struct {
	table *typemap.Table
}

func NewSymbolStage(table *typemap.Table) *SymbolStage {
	return &SymbolStage{table: table}
}

func (s *SymbolStage) Name() Tier { return TierSymbol }

func (s *SymbolStage) Resolve(text string, m *Model) (string, bool) {
	name := normalize(text)
	if name == "" || strings.ContainsAny(name, "<>[]?*(),") {
		return "", false
	}
	if alias, ok := m.Alias(firstSegment(name)); ok {
		name = alias + strings.TrimPrefix(name, firstSegment(name))
		if s.table.Has(name) {
			return name, true
		}
	}
	if !strings.Contains(name, ".") {
		if m.Declares(name) {
			return m.Qualify(name), true
		}
	} else if s.table.Has(name) {
		return name, true
	}

	var hits []string
	for _, ns := range m.ImportedNamespaces() {
		if cand := ns + "." + name; s.table.Has(cand) {
			hits = append(hits, cand)
		}
	}
	if len(hits) == 1 {
		return hits[0], true
	}
	return "", false
}

// TextualStage matches raw reference text against the mapping table when
// symbolic resolution fails, e.g. in documents missing their references.
type TextualStage struct {
	table *typemap.Table
}

func NewTextualStage(table *typemap.Table) *TextualStage {
	return &TextualStage{table: table}
}

func (s *TextualStage) Name() Tier { return TierTextual }

func (s *TextualStage) Resolve(text string, m *Model) (string, bool) {
	for _, cand := range s.table.Candidates(text) {
		if s.table.Has(cand) {
			return cand, true
		}
	}
	return "", false
}

func normalize(text string) string {
	return typemap.StripGlobal(strings.Join(strings.Fields(text), ""))
}

func firstSegment(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
