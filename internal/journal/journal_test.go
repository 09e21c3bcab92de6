package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"avport/internal/batch"
	"avport/internal/fixerr"
	"avport/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleOutcome() *batch.FixOutcome {
	return &batch.FixOutcome{
		AppliedCount:          3,
		PerDiagnosticIDCounts: map[string]int{"AVP001": 2, "AVP007": 1},
		ModifiedFiles:         []string{"/src/Card.cs"},
		Failures: []batch.Failure{
			{RuleID: "AVP013", Path: "/src/Dial.cs", Code: fixerr.MalformedPattern, Reason: "constructor differs"},
		},
		Documents: []batch.DocumentResult{
			{Path: "/src/Card.cs", Applied: 3, Iterations: 3, Modified: true, PerDiagnosticIDCounts: map[string]int{"AVP001": 2, "AVP007": 1}},
			{Path: "/src/Dial.cs", Iterations: 1, PerDiagnosticIDCounts: map[string]int{},
				Failures: []batch.Failure{{RuleID: "AVP013", Path: "/src/Dial.cs", Code: fixerr.MalformedPattern}}},
			{Path: "/src/Empty.cs", PerDiagnosticIDCounts: map[string]int{}},
		},
	}
}

func TestNewRun(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	req := batch.FixRequest{Scope: workspace.ScopeProject, Target: "Controls", DiagnosticIDs: []string{"AVP007", "AVP001"}}

	run := NewRun(req, sampleOutcome(), true, started, started.Add(time.Second))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "sequential", run.Mode)
	assert.Equal(t, []string{"AVP001", "AVP007"}, run.DiagnosticIDs)
	assert.True(t, run.DryRun)
	assert.Equal(t, 3, run.Applied)
	require.Len(t, run.Documents, 2, "untouched documents are not journaled")
	assert.Equal(t, "/src/Card.cs", run.Documents[0].Path)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, "MALFORMED_PATTERN", run.Failures[0].Code)

	other := NewRun(req, nil, false, started, started)
	assert.NotEqual(t, run.ID, other.ID)
	assert.Zero(t, other.Applied)
}

func TestSQLiteStore_RecordAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := NewRun(batch.FixRequest{Scope: workspace.ScopeSolution, Mode: batch.ModeFixAll}, sampleOutcome(), false, started, started.Add(1500*time.Millisecond))
	require.NoError(t, store.RecordRun(ctx, run))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "fixall", got.Mode)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, 3, got.Applied)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, map[string]int{"AVP001": 2, "AVP007": 1}, got.Documents[0].Counts)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "AVP013", got.Failures[0].RuleID)
	assert.Equal(t, "constructor differs", got.Failures[0].Reason)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * 500 * time.Millisecond)
		run := NewRun(batch.FixRequest{Scope: workspace.ScopeSolution}, &batch.FixOutcome{AppliedCount: i}, false, started, started)
		require.NoError(t, store.RecordRun(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Empty(t, runs[0].Documents)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStore_DuplicateRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run := NewRun(batch.FixRequest{Scope: workspace.ScopeSolution}, sampleOutcome(), false, time.Now(), time.Now())
	require.NoError(t, store.RecordRun(ctx, run))
	assert.Error(t, store.RecordRun(ctx, run))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 2, "failed insert leaves the first record intact")
}
