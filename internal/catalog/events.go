package catalog

import (
	"fmt"
	"strings"

	"avport/internal/fixerr"
	"avport/internal/semantic"
	"avport/internal/syntax"
	"avport/internal/typemap"

	sitter "github.com/smacker/go-tree-sitter"
)

// eventArgs derives the target args type for a handler type and records a
// note when it had to fall back to the default.
func eventArgs(c *semantic.Context, handler string, rw *Rewrite) string {
	conv := c.Table.EventArgsForHandler(handler, c)
	name := argsSimpleName(conv.Target)
	if !conv.Exact {
		rw.Notes = append(rw.Notes, unresolvedNote("handler type %s did not resolve; using %s", handler, name))
	}
	return name
}

// routedEventField converts EventManager.RegisterRoutedEvent fields (AVP009).
type routedEventField struct {
	base
}

type routedEventShape struct {
	field   *fieldShape
	name    *sitter.Node
	routing *sitter.Node
	handler string
	owner   string
}

func parseRoutedEventField(n *sitter.Node, c *semantic.Context) (*routedEventShape, bool) {
	src := c.Source()
	if !isStaticReadonly(n, src) {
		return nil, false
	}
	f, ok := splitField(n, src)
	if !ok || f.value == nil || !isRoutedEventType(c, f.typeNode) {
		return nil, false
	}
	if !staticCall(c, f.value, legacyEventManager, "RegisterRoutedEvent") {
		return nil, false
	}
	args := syntax.ArgumentValues(f.value)
	if len(args) != 4 {
		return nil, false
	}
	handler, ok := typeofText(c, args[2])
	if !ok {
		return nil, false
	}
	owner, ok := typeofText(c, args[3])
	if !ok {
		return nil, false
	}
	return &routedEventShape{field: f, name: args[0], routing: args[1], handler: handler, owner: owner}, true
}

func (r *routedEventField) Match(n *sitter.Node, c *semantic.Context) bool {
	_, ok := parseRoutedEventField(n, c)
	return ok
}

func (r *routedEventField) Anchor(n *sitter.Node, c *semantic.Context) AnchorSet {
	set := AnchorSet{Primary: syntax.AnchorOf(n)}
	if s, ok := parseRoutedEventField(n, c); ok {
		set.Args = map[string]string{"owner": s.owner, "handler": s.handler, "routing": syntax.Compact(c.Text(s.routing))}
		set.Captures = map[string]syntax.Anchor{"routing": syntax.AnchorOf(s.routing)}
	}
	return set
}

func (r *routedEventField) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	s, ok := parseRoutedEventField(n, c)
	if !ok {
		return nil, fixerr.Malformed("routed event registration changed")
	}
	routing, err := typemap.ConvertRouting(c.Text(s.routing))
	if err != nil {
		return nil, fixerr.New(fixerr.MalformedPattern, "routing strategy", err)
	}
	rw := &Rewrite{}
	args := eventArgs(c, s.handler, rw)
	src := c.Source()
	rw.Edits = []syntax.Edit{
		syntax.Replace(s.field.typeNode, src, "RoutedEvent<"+args+">"),
		syntax.Replace(s.field.value, src, fmt.Sprintf("RoutedEvent.Register<%s, %s>(%s, %s)", s.owner, args, c.Text(s.name), routing)),
	}
	return rw, nil
}

// eventAccessor converts event declarations with AddHandler/RemoveHandler
// accessors (AVP010).
type eventAccessor struct {
	base
}

type accessorShape struct {
	typeNode  *sitter.Node
	accessors *sitter.Node
	field     string
	add       string
	remove    string
}

func (e *eventAccessor) parse(n *sitter.Node, c *semantic.Context) (*accessorShape, bool) {
	src := c.Source()
	typeNode := syntax.DeclaredType(n)
	if typeNode == nil || typeNode.Type() == "generic_name" {
		return nil, false
	}
	list := syntax.Field(n, "accessors")
	if list == nil {
		list = syntax.ChildOfType(n, "accessor_list")
	}
	if list == nil {
		return nil, false
	}
	s := &accessorShape{typeNode: typeNode, accessors: list}
	for _, acc := range syntax.ChildrenOfType(list, "accessor_declaration") {
		var want string
		switch {
		case syntax.HasToken(acc, src, "add"):
			want = "AddHandler"
		case syntax.HasToken(acc, src, "remove"):
			want = "RemoveHandler"
		default:
			continue
		}
		for _, inv := range syntax.FindAll(acc, "invocation_expression") {
			recv, method := syntax.InvocationTarget(inv, src)
			if method != want || (recv != nil && c.Text(recv) != "this") {
				continue
			}
			args := syntax.ArgumentValues(inv)
			if len(args) < 2 || !eventRef(c, args[0]) {
				continue
			}
			s.field = c.Text(args[0])
			if want == "AddHandler" {
				s.add = c.Text(args[1])
			} else {
				s.remove = c.Text(args[1])
			}
			break
		}
	}
	if s.add == "" || s.remove == "" {
		return nil, false
	}
	return s, true
}

func (e *eventAccessor) Match(n *sitter.Node, c *semantic.Context) bool {
	_, ok := e.parse(n, c)
	return ok
}

func (e *eventAccessor) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	s, ok := e.parse(n, c)
	if !ok {
		return nil, fixerr.Malformed("event accessors changed")
	}
	src := c.Source()
	rw := &Rewrite{}
	args := eventArgs(c, c.Text(s.typeNode), rw)

	indent := syntax.Indentation(src, n.StartByte())
	inner := indent + syntax.IndentUnit(indent)
	body := "{\n" +
		inner + fmt.Sprintf("add => AddHandler(%s, %s);\n", s.field, s.add) +
		inner + fmt.Sprintf("remove => RemoveHandler(%s, %s);\n", s.field, s.remove) +
		indent + "}"
	rw.Edits = []syntax.Edit{
		syntax.Replace(s.typeNode, src, "EventHandler<"+args+">"),
		syntax.Replace(s.accessors, src, body),
	}
	return rw, nil
}

// handlerCall normalizes imperative AddHandler and RemoveHandler calls
// (AVP011, AVP012).
type handlerCall struct {
	base
	method string
}

func (h *handlerCall) parse(n *sitter.Node, c *semantic.Context) ([]*sitter.Node, bool) {
	recv, method := syntax.InvocationTarget(n, c.Source())
	if method != h.method || (recv != nil && c.Text(recv) != "this") {
		return nil, false
	}
	args := syntax.Arguments(n)
	limit := 2
	if h.method == "AddHandler" {
		limit = 3
	}
	if len(args) < 2 || len(args) > limit || !eventRef(c, syntax.ArgumentValue(args[0])) {
		return nil, false
	}
	if isDelegateCreation(syntax.ArgumentValue(args[1])) {
		return args, true
	}
	if len(args) == 3 && syntax.ArgumentName(args[2], c.Source()) == "" {
		return args, true
	}
	return nil, false
}

func (h *handlerCall) Match(n *sitter.Node, c *semantic.Context) bool {
	_, ok := h.parse(n, c)
	return ok
}

func (h *handlerCall) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	args, ok := h.parse(n, c)
	if !ok {
		return nil, fixerr.Malformed("%s call changed", h.method)
	}
	src := c.Source()
	rw := &Rewrite{}
	if handler := syntax.ArgumentValue(args[1]); isDelegateCreation(handler) {
		rw.Edits = append(rw.Edits, syntax.Replace(handler, src, handlerText(c, handler, false)))
	}
	if len(args) == 3 && syntax.ArgumentName(args[2], src) == "" {
		rw.Edits = append(rw.Edits, syntax.Insert(syntax.ArgumentValue(args[2]).StartByte(), "handledEventsToo: "))
	}
	return rw, nil
}

// raiseEvent converts RaiseEvent argument construction (AVP013).
type raiseEvent struct {
	base
}

type raiseShape struct {
	creation *sitter.Node
	legacy   string
	target   string
	ctorArgs []*sitter.Node
	event    *sitter.Node
}

func (r *raiseEvent) parse(n *sitter.Node, c *semantic.Context) (*raiseShape, bool) {
	recv, method := syntax.InvocationTarget(n, c.Source())
	if method != "RaiseEvent" || (recv != nil && c.Text(recv) != "this") {
		return nil, false
	}
	args := syntax.ArgumentValues(n)
	if len(args) != 1 || args[0].Type() != "object_creation_expression" {
		return nil, false
	}
	fqn := c.ResolveNode(syntax.CreatedType(args[0])).Name
	if !c.Table.IsKind(fqn, typemap.KindEventArgs) {
		return nil, false
	}
	s := &raiseShape{
		creation: args[0],
		legacy:   fqn,
		target:   c.Table.MapEventArgs(fqn),
		ctorArgs: syntax.ArgumentValues(args[0]),
	}
	if typemap.SimpleName(s.target) == typemap.SimpleName(s.legacy) {
		return s, len(s.ctorArgs) == 1
	}
	s.event = raisedEvent(c, args[0])
	return s, s.event != nil
}

// raisedEvent finds the routed event a legacy args construction carries,
// as a constructor argument or a RoutedEvent initializer.
func raisedEvent(c *semantic.Context, creation *sitter.Node) *sitter.Node {
	for _, a := range syntax.ArgumentValues(creation) {
		if eventRef(c, a) {
			return a
		}
	}
	init := syntax.Field(creation, "initializer")
	if init == nil {
		init = syntax.ChildOfType(creation, "initializer_expression")
	}
	for _, asg := range syntax.ChildrenOfType(init, "assignment_expression") {
		left, right := syntax.Field(asg, "left"), syntax.Field(asg, "right")
		if left != nil && c.Text(left) == "RoutedEvent" && eventRef(c, right) {
			return right
		}
	}
	return nil
}

func (r *raiseEvent) Match(n *sitter.Node, c *semantic.Context) bool {
	_, ok := r.parse(n, c)
	return ok
}

func (r *raiseEvent) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	s, ok := r.parse(n, c)
	if !ok {
		return nil, fixerr.Malformed("RaiseEvent call changed")
	}
	src := c.Source()
	if s.event == nil {
		return &Rewrite{Edits: []syntax.Edit{syntax.Insert(s.ctorArgs[0].EndByte(), ", this")}}, nil
	}

	// The target args type is created by the input system; raise the
	// event with plain routed-event args instead.
	args := c.Table.DefaultEventArgs()
	text := "new " + c.Table.TargetReference(args) + "(" + c.Text(s.event) + ", this)"
	return &Rewrite{
		Edits: []syntax.Edit{syntax.Replace(s.creation, src, text)},
		Notes: []string{fmt.Sprintf("%s raised as %s; input data passed to its constructor is dropped",
			typemap.SimpleName(s.legacy), argsSimpleName(args))},
	}, nil
}

// classHandler converts EventManager.RegisterClassHandler (AVP014).
type classHandler struct {
	base
}

func (h *classHandler) parse(n *sitter.Node, c *semantic.Context) ([]*sitter.Node, string, bool) {
	if !staticCall(c, n, legacyEventManager, "RegisterClassHandler") {
		return nil, "", false
	}
	args := syntax.ArgumentValues(n)
	if len(args) < 3 || len(args) > 4 {
		return nil, "", false
	}
	owner, ok := typeofText(c, args[0])
	if !ok {
		return nil, "", false
	}
	return args, owner, true
}

func (h *classHandler) Match(n *sitter.Node, c *semantic.Context) bool {
	_, _, ok := h.parse(n, c)
	return ok
}

func (h *classHandler) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	args, owner, ok := h.parse(n, c)
	if !ok {
		return nil, fixerr.Malformed("class handler registration changed")
	}
	text := fmt.Sprintf("%s.AddClassHandler<%s>(%s", c.Text(args[1]), owner, handlerText(c, args[2], true))
	if len(args) == 4 {
		text += ", handledEventsToo: " + c.Text(args[3])
	}
	text += ")"
	return &Rewrite{Edits: []syntax.Edit{syntax.Replace(n, c.Source(), text)}}, nil
}

// addOwner converts RoutedEvent.AddOwner fields into registrations (AVP015).
type addOwner struct {
	base
}

type addOwnerShape struct {
	field  *fieldShape
	source *sitter.Node
	event  string
	owner  string
}

func (a *addOwner) parse(n *sitter.Node, c *semantic.Context) (*addOwnerShape, bool) {
	src := c.Source()
	if !syntax.HasModifier(n, src, "static") {
		return nil, false
	}
	f, ok := splitField(n, src)
	if !ok || f.value == nil || f.value.Type() != "invocation_expression" || !isRoutedEventType(c, f.typeNode) {
		return nil, false
	}
	recv, method := syntax.InvocationTarget(f.value, src)
	if method != "AddOwner" || recv == nil {
		return nil, false
	}
	_, sourceName := syntax.MemberParts(recv, src)
	if !strings.HasSuffix(sourceName, "Event") {
		return nil, false
	}
	args := syntax.ArgumentValues(f.value)
	if len(args) != 1 {
		return nil, false
	}
	owner, ok := typeofText(c, args[0])
	if !ok {
		return nil, false
	}
	return &addOwnerShape{field: f, source: recv, event: sourceName, owner: owner}, true
}

func (a *addOwner) Match(n *sitter.Node, c *semantic.Context) bool {
	_, ok := a.parse(n, c)
	return ok
}

func (a *addOwner) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	s, ok := a.parse(n, c)
	if !ok {
		return nil, fixerr.Malformed("AddOwner field changed")
	}
	rw := &Rewrite{}
	args, routing, err := a.sourceEvent(c, s, rw)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(s.event, "Event")
	src := c.Source()
	rw.Edits = []syntax.Edit{
		syntax.Replace(s.field.typeNode, src, "RoutedEvent<"+args+">"),
		syntax.Replace(s.field.value, src, fmt.Sprintf("RoutedEvent.Register<%s, %s>(%q, %s)", s.owner, args, name, routing)),
	}
	return rw, nil
}

// sourceEvent finds the args type and routing of the event being owned:
// from its declaration in the document, from the table of framework
// events, or from defaults.
func (a *addOwner) sourceEvent(c *semantic.Context, s *addOwnerShape, rw *Rewrite) (string, string, error) {
	f, ok := c.Model.Field(s.event)
	if owner, _ := syntax.MemberParts(s.source, c.Source()); owner != nil {
		_, ownerName := syntax.MemberParts(owner, c.Source())
		f, ok = c.Model.OwnedField(ownerName, s.event)
	}
	if ok && f.Initializer != nil && f.Initializer.StartByte() != s.field.value.StartByte() {
		init := f.Initializer
		args := syntax.ArgumentValues(init)
		if staticCall(c, init, legacyEventManager, "RegisterRoutedEvent") && len(args) == 4 {
			routing, err := typemap.ConvertRouting(c.Text(args[1]))
			if err != nil {
				return "", "", fixerr.New(fixerr.MalformedPattern, "routing strategy", err)
			}
			handler, _ := typeofText(c, args[2])
			return eventArgs(c, handler, rw), routing, nil
		}
		if argType, ok := typemap.GenericArgument(f.Type, "RoutedEvent"); ok && len(args) >= 2 {
			return argType, syntax.Canonical(c.Text(args[1])), nil
		}
	}

	ref := syntax.Compact(c.Text(s.source))
	parts := strings.Split(ref, ".")
	if len(parts) > 2 {
		ref = strings.Join(parts[len(parts)-2:], ".")
	}
	if ev, ok := c.Table.FrameworkEvent(ref); ok {
		return argsSimpleName(c.Table.MapEventArgs(ev.Args)), "RoutingStrategies." + ev.Routing, nil
	}

	routing := "RoutingStrategies.Bubble"
	if strings.HasPrefix(s.event, "Preview") {
		routing = "RoutingStrategies.Tunnel"
	}
	args := argsSimpleName(c.Table.DefaultEventArgs())
	rw.Notes = append(rw.Notes, unresolvedNote("source event %s is unknown; using %s with %s", ref, args, routing))
	return args, routing, nil
}
