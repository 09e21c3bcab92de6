package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// Snapshot is an immutable parsed view of one document at one generation.
// Every applied rewrite produces a new Snapshot with Generation+1; findings
// computed against an older generation are rejected by the rewrite engine.
type Snapshot struct {
	Path       string
	Source     []byte
	Generation uint64

	tree *sitter.Tree
}

// Parse parses C# source into a snapshot at the given generation.
func Parse(ctx context.Context, path string, source []byte, generation uint64) (*Snapshot, error) {
	src := make([]byte, len(source))
	copy(src, source)

	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &Snapshot{Path: path, Source: src, Generation: generation, tree: tree}, nil
}

// Next parses rewritten source as the successor generation of s.
func (s *Snapshot) Next(ctx context.Context, source []byte) (*Snapshot, error) {
	return Parse(ctx, s.Path, source, s.Generation+1)
}

// Root returns the compilation unit node.
func (s *Snapshot) Root() *sitter.Node {
	return s.tree.RootNode()
}

// Text returns the source text covered by n.
func (s *Snapshot) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(s.Source)
}

// HasErrors reports whether the tree contains ERROR or MISSING nodes.
func (s *Snapshot) HasErrors() bool {
	return s.Root().HasError()
}

// Fingerprint identifies the current content of the document.
func (s *Snapshot) Fingerprint() string {
	return Fingerprint(s.Source)
}

// Locate finds the node an anchor was captured from. It returns nil when no
// node with the same kind spans exactly the anchor range.
func (s *Snapshot) Locate(a Anchor) *sitter.Node {
	if int(a.Range.End) > len(s.Source) || a.Range.Start > a.Range.End {
		return nil
	}
	return locate(s.Root(), a)
}

func locate(n *sitter.Node, a Anchor) *sitter.Node {
	if n == nil || n.StartByte() > a.Range.Start || n.EndByte() < a.Range.End {
		return nil
	}
	if n.StartByte() == a.Range.Start && n.EndByte() == a.Range.End && n.Type() == a.Kind {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := locate(n.Child(i), a); found != nil {
			return found
		}
	}
	return nil
}
