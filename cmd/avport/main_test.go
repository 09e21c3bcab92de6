package main

import (
	"bytes"
	"testing"

	"avport/internal/batch"
	"avport/internal/catalog"
	"avport/internal/fixerr"
	"avport/internal/git"
	"avport/internal/syntax"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestPrintOutcome(t *testing.T) {
	color.NoColor = true

	out := &batch.FixOutcome{
		AppliedCount:          3,
		PerDiagnosticIDCounts: map[string]int{"AVP002": 1, "AVP001": 2},
		ModifiedFiles:         []string{"/src/Gauge.cs"},
		Failures:              []batch.Failure{{RuleID: "AVP009", Path: "/src/Host.cs", Code: fixerr.MalformedPattern, Reason: "handler not found"}},
		Notes:                 []batch.Note{{RuleID: "AVP003", Path: "/src/Gauge.cs", Text: "flags dropped"}},
	}

	var buf bytes.Buffer
	printOutcome(&buf, out, true)
	got := buf.String()

	assert.Contains(t, got, "warning: AVP009 /src/Host.cs: handler not found")
	assert.Contains(t, got, "note: AVP003 /src/Gauge.cs: flags dropped")
	assert.Contains(t, got, "Would modify /src/Gauge.cs")
	assert.Contains(t, got, "Fixed 3 diagnostics")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("AVP001 2")), bytes.Index(buf.Bytes(), []byte("AVP002 1")))
	assert.NotContains(t, got, "cancelled")
}

func TestRulesCommand(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	rulesCmd.SetOut(&buf)
	rulesCmd.Run(rulesCmd, nil)

	assert.Contains(t, buf.String(), "AVP001")
	assert.Contains(t, buf.String(), "AVP019")
}

func TestOnChangedLines(t *testing.T) {
	findings := []catalog.Finding{
		{RuleID: "AVP001", Anchor: syntax.Anchor{Line: 4}},
		{RuleID: "AVP011", Anchor: syntax.Anchor{Line: 9}},
		{RuleID: "AVP016", Anchor: syntax.Anchor{Line: 12}},
	}
	diff := git.ChangedFile{Path: "/src/Host.cs", ChangedLines: []int{9, 10, 12}}

	got := onChangedLines(findings, diff)
	assert.Len(t, got, 2)
	assert.Equal(t, "AVP011", got[0].RuleID)
	assert.Equal(t, "AVP016", got[1].RuleID)

	assert.Empty(t, onChangedLines(findings, git.ChangedFile{Path: "/src/Host.cs"}))
}
