package syntax

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Walk visits n and its named descendants in source order. Returning false
// from fn skips the node's children.
func Walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Walk(n.NamedChild(i), fn)
	}
}

// FindAll returns every named descendant of n (n included) whose type is one of types.
func FindAll(n *sitter.Node, types ...string) []*sitter.Node {
	var out []*sitter.Node
	Walk(n, func(c *sitter.Node) bool {
		if isType(c, types) {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Children returns the named children of n, comments excluded.
func Children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ChildOfType returns the first named child of n with one of the given types.
func ChildOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, c := range Children(n) {
		if isType(c, types) {
			return c
		}
	}
	return nil
}

// ChildrenOfType returns the named children of n with one of the given types.
func ChildrenOfType(n *sitter.Node, types ...string) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range Children(n) {
		if isType(c, types) {
			out = append(out, c)
		}
	}
	return out
}

// Ancestor returns the closest proper ancestor of n with one of the given types.
func Ancestor(n *sitter.Node, types ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if isType(p, types) {
			return p
		}
	}
	return nil
}

// Field returns the first present child among the given field names. Field
// names vary between grammar releases, so callers list every known spelling.
func Field(n *sitter.Node, names ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	for _, name := range names {
		if c := n.ChildByFieldName(name); c != nil {
			return c
		}
	}
	return nil
}

// HasToken reports whether n has a direct anonymous child with the given text.
func HasToken(n *sitter.Node, src []byte, token string) bool {
	if n == nil {
		return false
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Content(src) == token {
			return true
		}
	}
	return false
}

// Modifiers returns the declaration modifiers of n in source order.
func Modifiers(n *sitter.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	var mods []string
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "modifier" {
			mods = append(mods, strings.TrimSpace(c.Content(src)))
		}
	}
	return mods
}

// HasModifier reports whether declaration n carries the modifier keyword mod.
func HasModifier(n *sitter.Node, src []byte, mod string) bool {
	for _, m := range Modifiers(n, src) {
		if m == mod {
			return true
		}
	}
	return false
}

// Name returns the text of the declaration's name field.
func Name(n *sitter.Node, src []byte) string {
	if name := Field(n, "name"); name != nil {
		return name.Content(src)
	}
	if id := ChildOfType(n, "identifier"); id != nil {
		return id.Content(src)
	}
	return ""
}

// Body returns the declaration body (block, declaration_list or arrow clause).
func Body(n *sitter.Node) *sitter.Node {
	if b := Field(n, "body"); b != nil {
		return b
	}
	return ChildOfType(n, "block", "declaration_list", "arrow_expression_clause")
}

// VariableDeclaration returns the variable_declaration of a field or local declaration.
func VariableDeclaration(n *sitter.Node) *sitter.Node {
	if n != nil && n.Type() == "variable_declaration" {
		return n
	}
	return ChildOfType(n, "variable_declaration")
}

// DeclaredType returns the type node of a variable, property, event, method or parameter.
func DeclaredType(n *sitter.Node) *sitter.Node {
	if t := Field(n, "type", "returns"); t != nil {
		return t
	}
	if n != nil && n.Type() == "variable_declaration" {
		if cs := Children(n); len(cs) > 0 && cs[0].Type() != "variable_declarator" {
			return cs[0]
		}
	}
	return nil
}

// Declarators returns the variable declarators of a variable_declaration.
func Declarators(varDecl *sitter.Node) []*sitter.Node {
	return ChildrenOfType(varDecl, "variable_declarator")
}

// DeclaratorName returns the identifier declared by a variable declarator.
func DeclaratorName(decl *sitter.Node, src []byte) string {
	return Name(decl, src)
}

// Initializer returns the expression assigned by a declarator, if any.
// Older grammars wrap it in equals_value_clause; newer ones place the
// expression directly after the '=' token.
func Initializer(decl *sitter.Node) *sitter.Node {
	if decl == nil {
		return nil
	}
	if eq := ChildOfType(decl, "equals_value_clause"); eq != nil {
		cs := Children(eq)
		if len(cs) == 0 {
			return nil
		}
		return cs[len(cs)-1]
	}
	if v := Field(decl, "value"); v != nil {
		return v
	}
	seenEquals := false
	for i := 0; i < int(decl.ChildCount()); i++ {
		c := decl.Child(i)
		if !c.IsNamed() && c.Type() == "=" {
			seenEquals = true
			continue
		}
		if seenEquals && c.IsNamed() && c.Type() != "comment" {
			return c
		}
	}
	return nil
}

// Callee returns the function expression of an invocation.
func Callee(inv *sitter.Node) *sitter.Node {
	if f := Field(inv, "function"); f != nil {
		return f
	}
	if cs := Children(inv); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// ArgumentList returns the argument_list of an invocation or object creation.
func ArgumentList(n *sitter.Node) *sitter.Node {
	if a := Field(n, "arguments"); a != nil && a.Type() == "argument_list" {
		return a
	}
	return ChildOfType(n, "argument_list")
}

// Arguments returns the argument nodes of an invocation or object creation.
func Arguments(n *sitter.Node) []*sitter.Node {
	return ChildrenOfType(ArgumentList(n), "argument")
}

// ArgumentValue returns the expression of an argument node.
func ArgumentValue(arg *sitter.Node) *sitter.Node {
	if arg == nil || arg.Type() != "argument" {
		return arg
	}
	cs := Children(arg)
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

// ArgumentName returns the name of a named argument ("x: value"), or "".
func ArgumentName(arg *sitter.Node, src []byte) string {
	if name := Field(arg, "name"); name != nil {
		return name.Content(src)
	}
	nc := ChildOfType(arg, "name_colon")
	if nc == nil {
		return ""
	}
	if id := ChildOfType(nc, "identifier"); id != nil {
		return id.Content(src)
	}
	return strings.TrimSuffix(strings.TrimSpace(nc.Content(src)), ":")
}

// ArgumentValues returns the expressions of all arguments of n.
func ArgumentValues(n *sitter.Node) []*sitter.Node {
	args := Arguments(n)
	out := make([]*sitter.Node, 0, len(args))
	for _, a := range args {
		out = append(out, ArgumentValue(a))
	}
	return out
}

// MemberParts splits a member access into its receiver and member name.
// For a bare identifier or generic name the receiver is nil.
func MemberParts(n *sitter.Node, src []byte) (*sitter.Node, string) {
	if n == nil {
		return nil, ""
	}
	switch n.Type() {
	case "member_access_expression", "qualified_name":
		recv := Field(n, "expression", "qualifier")
		name := Field(n, "name")
		if recv == nil || name == nil {
			cs := Children(n)
			if len(cs) < 2 {
				return nil, ""
			}
			recv, name = cs[0], cs[len(cs)-1]
		}
		return recv, SimpleName(name, src)
	case "identifier", "generic_name":
		return nil, SimpleName(n, src)
	}
	return nil, ""
}

// InvocationTarget returns the receiver and method name of an invocation.
func InvocationTarget(inv *sitter.Node, src []byte) (*sitter.Node, string) {
	return MemberParts(Callee(inv), src)
}

// SimpleName returns the identifier of a simple or generic name.
func SimpleName(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	if n.Type() == "generic_name" {
		if id := ChildOfType(n, "identifier"); id != nil {
			return id.Content(src)
		}
	}
	return n.Content(src)
}

// RootIdentifier returns the leftmost identifier of a member-access chain.
func RootIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier":
			return n
		case "member_access_expression", "qualified_name":
			n = Field(n, "expression", "qualifier")
		case "invocation_expression":
			n = Callee(n)
		case "generic_name":
			n = ChildOfType(n, "identifier")
		default:
			return nil
		}
	}
	return nil
}

// TypeofOperand returns the type inside a typeof expression.
func TypeofOperand(n *sitter.Node) *sitter.Node {
	if n == nil || n.Type() != "typeof_expression" {
		return nil
	}
	if t := Field(n, "type"); t != nil {
		return t
	}
	if cs := Children(n); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// CreatedType returns the type node of an object creation expression.
func CreatedType(n *sitter.Node) *sitter.Node {
	if n == nil || n.Type() != "object_creation_expression" {
		return nil
	}
	if t := Field(n, "type"); t != nil {
		return t
	}
	if cs := Children(n); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// Parameters returns the parameter nodes of a method, constructor or delegate.
func Parameters(n *sitter.Node) []*sitter.Node {
	list := Field(n, "parameters")
	if list == nil {
		list = ChildOfType(n, "parameter_list")
	}
	if list == nil {
		return nil
	}
	params := ChildrenOfType(list, "parameter")
	if len(params) == 0 {
		for _, c := range Children(list) {
			params = append(params, ChildrenOfType(c, "parameter")...)
		}
	}
	return params
}

// Statements returns the statements of a block, comments excluded.
func Statements(block *sitter.Node) []*sitter.Node {
	return Children(block)
}

func isType(n *sitter.Node, types []string) bool {
	t := n.Type()
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}
