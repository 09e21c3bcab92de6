package semantic

import (
	"avport/internal/syntax"
	"avport/internal/typemap"

	sitter "github.com/smacker/go-tree-sitter"
)

// Context is everything a rule sees of one snapshot: the tree, its symbol
// model and type resolution. A Context belongs to a single goroutine.
type Context struct {
	Snapshot *syntax.Snapshot
	Model    *Model
	Table    *typemap.Table

	resolver *Resolver
	cache    map[string]Resolution
}

// NewContext builds the semantic view of snap.
func NewContext(snap *syntax.Snapshot, r *Resolver) *Context {
	return &Context{
		Snapshot: snap,
		Model:    Build(snap),
		Table:    r.Table(),
		resolver: r,
		cache:    map[string]Resolution{},
	}
}

// Source returns the snapshot's source bytes.
func (c *Context) Source() []byte { return c.Snapshot.Source }

// Text returns the source text of n.
func (c *Context) Text(n *sitter.Node) string { return c.Snapshot.Text(n) }

// Resolve resolves a type reference's text.
func (c *Context) Resolve(text string) Resolution {
	key := syntax.Compact(text)
	if r, ok := c.cache[key]; ok {
		return r
	}
	r := c.resolver.Resolve(key, c.Model)
	c.cache[key] = r
	return r
}

// ResolveNode resolves the type reference spanned by n.
func (c *Context) ResolveNode(n *sitter.Node) Resolution {
	if n == nil {
		return Unknown
	}
	return c.Resolve(c.Text(n))
}

// Is reports whether n resolves to fqn.
func (c *Context) Is(n *sitter.Node, fqn string) bool {
	return c.ResolveNode(n).Name == fqn
}

// IsAny reports whether n resolves to any of the given names.
func (c *Context) IsAny(n *sitter.Node, fqns ...string) bool {
	name := c.ResolveNode(n).Name
	for _, f := range fqns {
		if name == f {
			return true
		}
	}
	return false
}

// ResolveType implements typemap.TypeResolver.
func (c *Context) ResolveType(text string) (string, bool) {
	r := c.Resolve(text)
	return r.Name, r.Known()
}

// DelegateParams implements typemap.TypeResolver.
func (c *Context) DelegateParams(name string) ([]string, bool) {
	ps, ok := c.Model.Delegates[syntax.Compact(name)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Type
	}
	return out, true
}
