package batch

import (
	"avport/internal/fixerr"
)

// Failure is a rewrite that could not be completed.
type Failure struct {
	RuleID string      `json:"ruleId,omitempty"`
	Path   string      `json:"path"`
	Code   fixerr.Code `json:"code"`
	Reason string      `json:"reason"`
}

// Note is a non-fatal remark attached to an applied rewrite.
type Note struct {
	RuleID string `json:"ruleId"`
	Path   string `json:"path"`
	Text   string `json:"text"`
}

// DocumentResult is the outcome of driving one document to convergence.
type DocumentResult struct {
	Path                  string         `json:"path"`
	Applied               int            `json:"applied"`
	PerDiagnosticIDCounts map[string]int `json:"perDiagnosticIdCounts"`
	Iterations            int            `json:"iterations"`
	Modified              bool           `json:"modified"`
	Cancelled             bool           `json:"cancelled,omitempty"`
	Failures              []Failure      `json:"failures,omitempty"`
	Notes                 []Note         `json:"notes,omitempty"`
}

func newDocumentResult(path string) DocumentResult {
	return DocumentResult{Path: path, PerDiagnosticIDCounts: map[string]int{}}
}

func (d *DocumentResult) fail(err error) {
	e := fixerr.As(err, fixerr.MalformedPattern)
	path := e.Path
	if path == "" {
		path = d.Path
	}
	d.Failures = append(d.Failures, Failure{
		RuleID: e.RuleID,
		Path:   path,
		Code:   e.Code,
		Reason: reason(e),
	})
}

func reason(e *fixerr.Error) string {
	if cause := e.Unwrap(); cause != nil {
		return e.Message + ": " + cause.Error()
	}
	return e.Message
}

// FixOutcome aggregates document results in scope order.
type FixOutcome struct {
	AppliedCount          int              `json:"appliedCount"`
	PerDiagnosticIDCounts map[string]int   `json:"perDiagnosticIdCounts"`
	ModifiedFiles         []string         `json:"modifiedFiles"`
	Failures              []Failure        `json:"failures,omitempty"`
	Notes                 []Note           `json:"notes,omitempty"`
	Documents             []DocumentResult `json:"documents"`
	Cancelled             bool             `json:"cancelled,omitempty"`
}

func assemble(results []DocumentResult, visited []bool, cancelled bool) *FixOutcome {
	out := &FixOutcome{
		PerDiagnosticIDCounts: map[string]int{},
		ModifiedFiles:         []string{},
		Documents:             []DocumentResult{},
		Cancelled:             cancelled,
	}
	for i, r := range results {
		if !visited[i] {
			continue
		}
		out.Documents = append(out.Documents, r)
		out.AppliedCount += r.Applied
		for id, n := range r.PerDiagnosticIDCounts {
			out.PerDiagnosticIDCounts[id] += n
		}
		if r.Modified {
			out.ModifiedFiles = append(out.ModifiedFiles, r.Path)
		}
		out.Failures = append(out.Failures, r.Failures...)
		out.Notes = append(out.Notes, r.Notes...)
		if r.Cancelled {
			out.Cancelled = true
		}
	}
	return out
}
