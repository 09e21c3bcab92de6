package catalog

import (
	"fmt"
	"sort"
	"strings"

	"avport/internal/fixerr"
	"avport/internal/semantic"
	"avport/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	legacyDependencyProperty = "System.Windows.DependencyProperty"
	legacyDependencyObject   = "System.Windows.DependencyObject"
	legacyChangedArgs        = "System.Windows.DependencyPropertyChangedEventArgs"
	legacyRoutedEvent        = "System.Windows.RoutedEvent"
	legacyRoutedEventArgs    = "System.Windows.RoutedEventArgs"
	legacyEventManager       = "System.Windows.EventManager"
	legacyPropertyMetadata   = "System.Windows.PropertyMetadata"
	legacyUIMetadata         = "System.Windows.UIPropertyMetadata"
	legacyFrameworkMetadata  = "System.Windows.FrameworkPropertyMetadata"
	targetRoutedEvent        = "Avalonia.Interactivity.RoutedEvent"
)

// fieldShape is a single-variable field declaration split into parts.
type fieldShape struct {
	decl     *sitter.Node
	typeNode *sitter.Node
	name     string
	value    *sitter.Node
}

func splitField(n *sitter.Node, src []byte) (*fieldShape, bool) {
	vd := syntax.VariableDeclaration(n)
	typeNode := syntax.DeclaredType(vd)
	decls := syntax.Declarators(vd)
	if typeNode == nil || len(decls) != 1 {
		return nil, false
	}
	return &fieldShape{
		decl:     n,
		typeNode: typeNode,
		name:     syntax.DeclaratorName(decls[0], src),
		value:    syntax.Initializer(decls[0]),
	}, true
}

func isStaticReadonly(n *sitter.Node, src []byte) bool {
	return syntax.HasModifier(n, src, "static") && syntax.HasModifier(n, src, "readonly")
}

// staticCall matches receiver.method(...) where receiver resolves to fqn.
func staticCall(c *semantic.Context, inv *sitter.Node, fqn string, methods ...string) bool {
	if inv == nil || inv.Type() != "invocation_expression" {
		return false
	}
	recv, method := syntax.InvocationTarget(inv, c.Source())
	if recv == nil || !contains(methods, method) {
		return false
	}
	return c.Is(recv, fqn)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// typeofText returns the operand of a typeof expression as source text.
func typeofText(c *semantic.Context, n *sitter.Node) (string, bool) {
	op := syntax.TypeofOperand(n)
	if op == nil {
		return "", false
	}
	return syntax.Compact(c.Text(op)), true
}

// unwrapDelegate turns "new Handler(x)" into x, leaving anything else alone.
func unwrapDelegate(c *semantic.Context, n *sitter.Node) *sitter.Node {
	if n == nil || n.Type() != "object_creation_expression" {
		return n
	}
	args := syntax.ArgumentValues(n)
	if len(args) != 1 || syntax.ChildOfType(n, "initializer_expression") != nil {
		return n
	}
	return args[0]
}

func isDelegateCreation(n *sitter.Node) bool {
	return n != nil && n.Type() == "object_creation_expression" &&
		len(syntax.Arguments(n)) == 1 &&
		syntax.ChildOfType(n, "initializer_expression") == nil
}

func isMethodGroup(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier", "member_access_expression", "generic_name":
		return true
	}
	return false
}

func isLambda(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "lambda_expression", "anonymous_method_expression":
		return true
	}
	return false
}

func enclosingType(n *sitter.Node) *sitter.Node {
	return syntax.Ancestor(n, "class_declaration", "struct_declaration", "record_declaration")
}

func staticConstructor(class *sitter.Node, src []byte) *sitter.Node {
	for _, m := range syntax.Children(syntax.Body(class)) {
		if m.Type() == "constructor_declaration" && syntax.HasModifier(m, src, "static") {
			return m
		}
	}
	return nil
}

// staticInit returns an edit that appends statements to the static
// constructor of the type declaring member, creating the constructor after
// the type's last field when it has none.
func staticInit(c *semantic.Context, member *sitter.Node, stmts []string) (syntax.Edit, error) {
	src := c.Source()
	class := enclosingType(member)
	if class == nil {
		return syntax.Edit{}, fixerr.Malformed("member is not declared inside a class")
	}

	if ctor := staticConstructor(class, src); ctor != nil {
		body := syntax.Body(ctor)
		if body == nil || body.Type() != "block" || body.ChildCount() < 2 {
			return syntax.Edit{}, fixerr.Malformed("static constructor has no block body")
		}
		closing := body.Child(int(body.ChildCount()) - 1)
		indent := syntax.Indentation(src, ctor.StartByte())
		inner := indent + syntax.IndentUnit(indent)
		var b strings.Builder
		start := syntax.LineStart(src, closing.StartByte())
		if strings.TrimSpace(string(src[start:closing.StartByte()])) == "" {
			for _, s := range stmts {
				b.WriteString(inner + s + "\n")
			}
			return syntax.Insert(start, b.String()), nil
		}
		for _, s := range stmts {
			b.WriteString("\n" + inner + s)
		}
		b.WriteString("\n" + indent)
		return syntax.Insert(closing.StartByte(), b.String()), nil
	}

	last := member
	for _, m := range syntax.Children(syntax.Body(class)) {
		if m.Type() == "field_declaration" && m.EndByte() > last.EndByte() {
			last = m
		}
	}
	indent := syntax.Indentation(src, member.StartByte())
	inner := indent + syntax.IndentUnit(indent)
	var b strings.Builder
	b.WriteString("\n\n" + indent + "static " + syntax.Name(class, src) + "()\n" + indent + "{")
	for _, s := range stmts {
		b.WriteString("\n" + inner + s)
	}
	b.WriteString("\n" + indent + "}")
	return syntax.Insert(last.EndByte(), b.String()), nil
}

// handlerText renders a handler argument for the target API: delegate
// creation is unwrapped, and with wrap set a method group becomes a lambda.
func handlerText(c *semantic.Context, n *sitter.Node, wrap bool) string {
	inner := unwrapDelegate(c, n)
	text := c.Text(inner)
	if wrap && isMethodGroup(inner) {
		return "(s, e) => " + text + "(s, e)"
	}
	return text
}

// argsSimpleName is the text emitted for a target event-args type.
func argsSimpleName(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

// isRoutedEventType reports whether a field type names the non-generic
// routed event type of either framework.
func isRoutedEventType(c *semantic.Context, typeNode *sitter.Node) bool {
	if typeNode == nil || typeNode.Type() == "generic_name" {
		return false
	}
	if c.IsAny(typeNode, legacyRoutedEvent, targetRoutedEvent) {
		return true
	}
	return syntax.Compact(c.Text(typeNode)) == "RoutedEvent"
}

// eventRef reports whether n refers to a routed event field: a member
// access or identifier whose name ends in "Event".
func eventRef(c *semantic.Context, n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier":
		if f, ok := c.Model.Field(c.Text(n)); ok {
			return strings.HasPrefix(f.Type, "RoutedEvent")
		}
		return strings.HasSuffix(c.Text(n), "Event")
	case "member_access_expression":
		_, name := syntax.MemberParts(n, c.Source())
		return strings.HasSuffix(name, "Event")
	}
	return false
}

// knownBoxes maps boxed constants of the legacy framework to literals.
var knownBoxes = map[string]string{
	"BooleanBoxes.TrueBox":  "true",
	"BooleanBoxes.FalseBox": "false",
}

func defaultValueText(c *semantic.Context, n *sitter.Node) string {
	text := syntax.Compact(c.Text(n))
	if lit, ok := knownBoxes[strings.TrimPrefix(text, "MS.Internal.KnownBoxes.")]; ok {
		return lit
	}
	return c.Text(n)
}

func sortNotes(notes []string) {
	sort.Strings(notes)
}

// unresolvedNote formats a note for a type that fell back to a default.
func unresolvedNote(format string, args ...any) string {
	return string(fixerr.UnresolvedType) + ": " + fmt.Sprintf(format, args...)
}
