package batch

import (
	"os"
	"path/filepath"
	"testing"

	"avport/internal/catalog"
	"avport/internal/fixerr"
	"avport/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{
		"scope": "project",
		"target": "Controls",
		"diagnosticIds": ["AVP001", "AVP009"],
		"mode": "fixall"
	}`), catalog.Default())
	require.NoError(t, err)
	assert.Equal(t, workspace.ScopeProject, req.Scope)
	assert.Equal(t, "Controls", req.Target)
	assert.Equal(t, []string{"AVP001", "AVP009"}, req.DiagnosticIDs)
	assert.Equal(t, ModeFixAll, req.Mode)
}

func TestDecodeRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{scope`},
		{"unknown scope", `{"scope": "module"}`},
		{"unknown mode", `{"scope": "solution", "mode": "eager"}`},
		{"bad id shape", `{"scope": "solution", "diagnosticIds": ["CS0001"]}`},
		{"unknown id", `{"scope": "solution", "diagnosticIds": ["AVP999"]}`},
		{"missing target", `{"scope": "document"}`},
		{"extra field", `{"scope": "solution", "dryRun": true}`},
		{"missing scope", `{"mode": "parallel"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.body), catalog.Default())
			require.Error(t, err)
			assert.Equal(t, fixerr.InvalidRequest, fixerr.CodeOf(err))
		})
	}
}

func TestLoadRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scope": "solution", "changedSince": "origin/main"}`), 0o644))

	req, err := LoadRequest(path, catalog.Default())
	require.NoError(t, err)
	assert.Equal(t, workspace.ScopeSolution, req.Scope)
	assert.Equal(t, "origin/main", req.ChangedSince)
	assert.Equal(t, ModeSequential, req.mode())

	_, err = LoadRequest(filepath.Join(t.TempDir(), "missing.json"), catalog.Default())
	assert.Error(t, err)
}
