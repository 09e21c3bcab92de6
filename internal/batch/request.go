package batch

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"avport/internal/catalog"
	"avport/internal/fixerr"
	"avport/internal/workspace"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Mode controls how documents are scheduled and how failures propagate.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
	ModeFixAll     Mode = "fixall"
)

// FixRequest asks for the legacy idioms in a scope to be rewritten.
type FixRequest struct {
	Scope         workspace.Scope `json:"scope"`
	Target        string          `json:"target,omitempty"`
	DiagnosticIDs []string        `json:"diagnosticIds,omitempty"`
	Mode          Mode            `json:"mode,omitempty"`
	// ChangedSince restricts the scope to documents changed since a git ref.
	ChangedSince string `json:"changedSince,omitempty"`
}

// Validate checks the request against the catalog. Failures are
// InvalidRequest errors.
func (r FixRequest) Validate(cat *catalog.Catalog) error {
	switch r.Scope {
	case workspace.ScopeDocument, workspace.ScopeProject:
		if r.Target == "" {
			return fixerr.Newf(fixerr.InvalidRequest, "scope %s requires a target", r.Scope)
		}
	case workspace.ScopeSolution:
	default:
		return fixerr.Newf(fixerr.InvalidRequest, "unknown scope %q", r.Scope)
	}
	switch r.Mode {
	case "", ModeSequential, ModeParallel, ModeFixAll:
	default:
		return fixerr.Newf(fixerr.InvalidRequest, "unknown mode %q", r.Mode)
	}
	for _, id := range r.DiagnosticIDs {
		if _, ok := cat.Rule(id); !ok {
			return fixerr.Newf(fixerr.InvalidRequest, "unknown diagnostic id %s", id)
		}
	}
	return nil
}

func (r FixRequest) mode() Mode {
	if r.Mode == "" {
		return ModeSequential
	}
	return r.Mode
}

//go:embed fix_request.schema.json
var requestSchemaJSON []byte

var (
	requestSchemaOnce sync.Once
	requestSchema     *jsonschema.Schema
	requestSchemaErr  error
)

func compiledRequestSchema() (*jsonschema.Schema, error) {
	requestSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("fix_request.schema.json", bytes.NewReader(requestSchemaJSON)); err != nil {
			requestSchemaErr = err
			return
		}
		requestSchema, requestSchemaErr = compiler.Compile("fix_request.schema.json")
	})
	return requestSchema, requestSchemaErr
}

// DecodeRequest parses a JSON fix request, validating it against the
// request schema and the catalog.
func DecodeRequest(data []byte, cat *catalog.Catalog) (*FixRequest, error) {
	schema, err := compiledRequestSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fixerr.New(fixerr.InvalidRequest, "request is not valid JSON", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fixerr.New(fixerr.InvalidRequest, "request schema validation failed", err)
	}

	var req FixRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fixerr.New(fixerr.InvalidRequest, "failed to decode request", err)
	}
	if err := req.Validate(cat); err != nil {
		return nil, err
	}
	return &req, nil
}

// LoadRequest reads and decodes a JSON fix request file.
func LoadRequest(path string, cat *catalog.Catalog) (*FixRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read request %s: %w", path, err)
	}
	return DecodeRequest(data, cat)
}
