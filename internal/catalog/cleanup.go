package catalog

import (
	"strings"

	"avport/internal/fixerr"
	"avport/internal/semantic"
	"avport/internal/syntax"
	"avport/internal/typemap"

	sitter "github.com/smacker/go-tree-sitter"
)

// baseClass substitutes legacy base classes (AVP006).
type baseClass struct {
	base
}

func (b *baseClass) parse(n *sitter.Node, c *semantic.Context) (*sitter.Node, string, bool) {
	bases := syntax.Children(syntax.ChildOfType(n, "base_list"))
	if len(bases) == 0 {
		return nil, "", false
	}
	first := bases[0]
	target, ok := c.Table.BaseTarget(c.ResolveNode(first).Name)
	if !ok {
		return nil, "", false
	}
	return first, target, true
}

func (b *baseClass) Match(n *sitter.Node, c *semantic.Context) bool {
	_, _, ok := b.parse(n, c)
	return ok
}

func (b *baseClass) Anchor(n *sitter.Node, c *semantic.Context) AnchorSet {
	set := AnchorSet{Primary: syntax.AnchorOf(n)}
	if first, target, ok := b.parse(n, c); ok {
		set.Captures = map[string]syntax.Anchor{"base": syntax.AnchorOf(first)}
		set.Args = map[string]string{"target": target}
	}
	return set
}

func (b *baseClass) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	first, target, ok := b.parse(n, c)
	if !ok {
		return nil, fixerr.Malformed("base type changed")
	}
	return &Rewrite{Edits: []syntax.Edit{syntax.Replace(first, c.Source(), c.Table.TargetReference(target))}}, nil
}

// staleUsing replaces or removes legacy usings nothing depends on (AVP007).
type staleUsing struct {
	base
}

func (u *staleUsing) namespace(n *sitter.Node, c *semantic.Context) (string, bool) {
	src := c.Source()
	if syntax.HasToken(n, src, "static") || syntax.HasToken(n, src, "=") || syntax.ChildOfType(n, "name_equals") != nil {
		return "", false
	}
	cs := syntax.Children(n)
	if len(cs) == 0 {
		return "", false
	}
	ns := syntax.Compact(c.Text(cs[len(cs)-1]))
	return ns, c.Table.IsLegacyNamespace(ns)
}

func (u *staleUsing) Match(n *sitter.Node, c *semantic.Context) bool {
	ns, ok := u.namespace(n, c)
	return ok && !stillUsed(c, ns)
}

// stillUsed reports whether any leading identifier outside the usings is a
// name that only the legacy namespace ns provides.
func stillUsed(c *semantic.Context, ns string) bool {
	pending := c.Table.PendingNames(ns)
	used := false
	syntax.Walk(c.Snapshot.Root(), func(n *sitter.Node) bool {
		if used || n.Type() == "using_directive" {
			return false
		}
		if n.Type() == "identifier" && leadingIdentifier(n) && pending[c.Text(n)] {
			used = true
		}
		return true
	})
	return used
}

// leadingIdentifier reports whether n starts its name or member chain,
// i.e. is not the right-hand part of a qualified name or member access.
func leadingIdentifier(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return true
	}
	switch p.Type() {
	case "qualified_name", "member_access_expression", "alias_qualified_name":
		first := syntax.Children(p)
		return len(first) > 0 && first[0].StartByte() == n.StartByte() && first[0].EndByte() == n.EndByte()
	}
	return true
}

func (u *staleUsing) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	ns, ok := u.namespace(n, c)
	if !ok {
		return nil, fixerr.Malformed("using directive changed")
	}
	var missing []string
	for _, t := range c.Table.NamespaceTargets(ns) {
		if !c.Model.Imports(t) {
			missing = append(missing, t)
		}
	}
	src := c.Source()
	if len(missing) == 0 {
		return &Rewrite{Edits: []syntax.Edit{syntax.DeleteLines(n, src)}}, nil
	}
	indent := syntax.Indentation(src, n.StartByte())
	lines := make([]string, len(missing))
	for i, t := range missing {
		lines[i] = "using " + t + ";"
	}
	return &Rewrite{Edits: []syntax.Edit{syntax.Replace(n, src, strings.Join(lines, "\n"+indent))}}, nil
}

// markerAttribute removes legacy marker attributes (AVP008).
type markerAttribute struct {
	base
}

func (m *markerAttribute) Match(n *sitter.Node, c *semantic.Context) bool {
	name := syntax.Field(n, "name")
	if name == nil {
		cs := syntax.Children(n)
		if len(cs) == 0 {
			return false
		}
		name = cs[0]
	}
	text := c.Text(name)
	for _, cand := range []string{text, text + "Attribute"} {
		if c.Table.IsKind(c.Resolve(cand).Name, typemap.KindAttribute) {
			return true
		}
	}
	return false
}

func (m *markerAttribute) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	src := c.Source()
	list := n.Parent()
	if list == nil || list.Type() != "attribute_list" {
		return nil, fixerr.Malformed("attribute is not inside an attribute list")
	}
	attrs := syntax.ChildrenOfType(list, "attribute")
	if len(attrs) == 1 {
		r := syntax.LineSpan(src, syntax.RangeOf(list))
		if r.End == list.EndByte() && int(r.End) < len(src) && src[r.End] == ' ' {
			r.End++
		}
		return &Rewrite{Edits: []syntax.Edit{syntax.Delete(src, r)}}, nil
	}
	for i, a := range attrs {
		if a.StartByte() != n.StartByte() {
			continue
		}
		r := syntax.Range{Start: n.StartByte(), End: n.EndByte()}
		if i < len(attrs)-1 {
			r.End = attrs[i+1].StartByte()
		} else {
			r.Start = attrs[i-1].EndByte()
		}
		return &Rewrite{Edits: []syntax.Edit{syntax.Delete(src, r)}}, nil
	}
	return nil, fixerr.Malformed("attribute not found in its list")
}

// instrumentation removes telemetry and tracing statements (AVP016).
type instrumentation struct {
	base
}

func isInstrumentation(c *semantic.Context, id *sitter.Node) bool {
	return id != nil && c.Table.IsKind(c.ResolveNode(id).Name, typemap.KindInstrumentation)
}

func (i *instrumentation) Match(n *sitter.Node, c *semantic.Context) bool {
	if p := n.Parent(); p == nil || p.Type() != "block" {
		return false
	}
	switch n.Type() {
	case "expression_statement":
		cs := syntax.Children(n)
		if len(cs) == 0 || cs[0].Type() != "invocation_expression" {
			return false
		}
		return isInstrumentation(c, syntax.RootIdentifier(cs[0]))
	case "if_statement":
		if syntax.Field(n, "alternative") != nil || syntax.HasToken(n, c.Source(), "else") {
			return false
		}
		cond := syntax.Field(n, "condition")
		if cond == nil {
			return false
		}
		guarded := false
		syntax.Walk(cond, func(x *sitter.Node) bool {
			if !guarded && x.Type() == "identifier" && leadingIdentifier(x) && isInstrumentation(c, x) {
				guarded = true
			}
			return !guarded
		})
		return guarded
	}
	return false
}

func (i *instrumentation) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	src := c.Source()
	block := n.Parent()
	if block == nil || block.Type() != "block" {
		return nil, fixerr.Malformed("statement is not inside a block")
	}
	if len(syntax.Statements(block)) == 1 {
		if ctor := block.Parent(); ctor != nil && ctor.Type() == "constructor_declaration" && removableConstructor(c, ctor) {
			return &Rewrite{Edits: []syntax.Edit{syntax.DeleteLines(ctor, src)}}, nil
		}
	}
	return &Rewrite{Edits: []syntax.Edit{syntax.DeleteLines(n, src)}}, nil
}

// removableConstructor reports whether deleting an emptied constructor
// leaves the type's construction unchanged.
func removableConstructor(c *semantic.Context, ctor *sitter.Node) bool {
	src := c.Source()
	if syntax.HasModifier(ctor, src, "static") {
		return true
	}
	if len(syntax.Parameters(ctor)) != 0 {
		return false
	}
	if init := syntax.ChildOfType(ctor, "constructor_initializer"); init != nil && syntax.Compact(c.Text(init)) != ":base()" {
		return false
	}
	class := enclosingType(ctor)
	for _, m := range syntax.Children(syntax.Body(class)) {
		if m.Type() == "constructor_declaration" && m.StartByte() != ctor.StartByte() && !syntax.HasModifier(m, src, "static") {
			return false
		}
	}
	return true
}

// capacityHint removes the legacy property-store sizing override (AVP017).
type capacityHint struct {
	base
}

func (h *capacityHint) Match(n *sitter.Node, c *semantic.Context) bool {
	return syntax.Name(n, c.Source()) == "EffectiveValuesInitialSize" && syntax.HasModifier(n, c.Source(), "override")
}

func (h *capacityHint) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	return &Rewrite{Edits: []syntax.Edit{syntax.DeleteLines(n, c.Source())}}, nil
}
