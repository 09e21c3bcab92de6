package catalog

import (
	"fmt"
	"strings"

	"avport/internal/fixerr"
	"avport/internal/semantic"
	"avport/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

type metadataKind int

const (
	metadataNone metadataKind = iota
	metadataPlain
	metadataCallback
	metadataFramework
	metadataOpaque
)

// registration is a parsed DependencyProperty.Register[Attached] field.
type registration struct {
	field     *fieldShape
	attached  bool
	nameArg   *sitter.Node
	valueType string
	owner     string
	metadata  *sitter.Node
	kind      metadataKind
	validate  *sitter.Node
}

func parseRegistration(n *sitter.Node, c *semantic.Context) (*registration, bool) {
	src := c.Source()
	if !isStaticReadonly(n, src) {
		return nil, false
	}
	f, ok := splitField(n, src)
	if !ok || f.value == nil || !c.Is(f.typeNode, legacyDependencyProperty) {
		return nil, false
	}
	if !staticCall(c, f.value, legacyDependencyProperty, "Register", "RegisterAttached") {
		return nil, false
	}
	_, method := syntax.InvocationTarget(f.value, src)
	args := syntax.ArgumentValues(f.value)
	if len(args) < 3 || len(args) > 5 {
		return nil, false
	}
	valueType, ok := typeofText(c, args[1])
	if !ok {
		return nil, false
	}
	owner, ok := typeofText(c, args[2])
	if !ok {
		return nil, false
	}

	r := &registration{
		field:     f,
		attached:  method == "RegisterAttached",
		nameArg:   args[0],
		valueType: valueType,
		owner:     owner,
	}
	if len(args) >= 4 && c.Text(args[3]) != "null" {
		r.metadata = args[3]
		r.kind = classifyMetadata(c, args[3])
	}
	if len(args) == 5 {
		r.validate = args[4]
	}
	return r, true
}

func classifyMetadata(c *semantic.Context, n *sitter.Node) metadataKind {
	if n.Type() != "object_creation_expression" {
		return metadataOpaque
	}
	typ := syntax.CreatedType(n)
	switch {
	case c.IsAny(typ, legacyPropertyMetadata, legacyUIMetadata):
		for _, a := range syntax.ArgumentValues(n) {
			if isCallbackArg(c, a) {
				return metadataCallback
			}
		}
		return metadataPlain
	case c.Is(typ, legacyFrameworkMetadata):
		return metadataFramework
	}
	return metadataOpaque
}

// isCallbackArg reports whether a metadata argument is a callback: a
// delegate creation, a lambda, or a method declared in the document.
func isCallbackArg(c *semantic.Context, n *sitter.Node) bool {
	switch {
	case n == nil:
		return false
	case isLambda(n):
		return true
	case n.Type() == "object_creation_expression":
		name := syntax.SimpleName(syntax.CreatedType(n), c.Source())
		return strings.HasSuffix(name, "Callback")
	case isMethodGroup(n):
		_, name := syntax.MemberParts(n, c.Source())
		return c.Model.HasMethod(name)
	}
	return false
}

func isFlagsArg(c *semantic.Context, n *sitter.Node) bool {
	return strings.Contains(c.Text(n), "FrameworkPropertyMetadataOptions")
}

// metadataParts splits metadata constructor arguments by role.
type metadataParts struct {
	defaultValue *sitter.Node
	flags        *sitter.Node
	changed      *sitter.Node
	coerce       *sitter.Node
	ignored      []*sitter.Node
}

func splitMetadata(c *semantic.Context, n *sitter.Node) metadataParts {
	var p metadataParts
	for i, a := range syntax.ArgumentValues(n) {
		switch {
		case isFlagsArg(c, a) && p.flags == nil:
			p.flags = a
		case isCallbackArg(c, a) && p.changed == nil:
			p.changed = a
		case isCallbackArg(c, a) && p.coerce == nil:
			p.coerce = a
		case i == 0:
			p.defaultValue = a
		default:
			p.ignored = append(p.ignored, a)
		}
	}
	return p
}

func (r *registration) propertyType() string {
	if r.attached {
		return fmt.Sprintf("AttachedProperty<%s>", r.valueType)
	}
	return fmt.Sprintf("StyledProperty<%s>", r.valueType)
}

// classTarget is the type argument for class handlers on the property.
func (r *registration) classTarget() string {
	if r.attached {
		return "AvaloniaObject"
	}
	return r.owner
}

// edits replaces the field type and initializer with the target registration.
func (r *registration) edits(c *semantic.Context, defaultValue *sitter.Node, named []string) []syntax.Edit {
	src := c.Source()
	args := []string{c.Text(r.nameArg)}
	if defaultValue != nil {
		args = append(args, defaultValueText(c, defaultValue))
	}
	args = append(args, named...)
	if r.validate != nil {
		v := unwrapDelegate(c, r.validate)
		if isMethodGroup(v) {
			args = append(args, "validate: v => "+c.Text(v)+"(v)")
		} else {
			args = append(args, "validate: "+c.Text(v))
		}
	}

	var call string
	if r.attached {
		call = fmt.Sprintf("AvaloniaProperty.RegisterAttached<%s, AvaloniaObject, %s>(%s)", r.owner, r.valueType, strings.Join(args, ", "))
	} else {
		call = fmt.Sprintf("AvaloniaProperty.Register<%s, %s>(%s)", r.owner, r.valueType, strings.Join(args, ", "))
	}
	return []syntax.Edit{
		syntax.Replace(r.field.typeNode, src, r.propertyType()),
		syntax.Replace(r.field.value, src, call),
	}
}

func (r *registration) coerceArg(c *semantic.Context, coerce *sitter.Node) string {
	v := unwrapDelegate(c, coerce)
	if isMethodGroup(v) {
		return fmt.Sprintf("coerce: (o, v) => (%s)%s(o, v)", r.valueType, c.Text(v))
	}
	return "coerce: " + c.Text(v)
}

func (r *registration) changedHandler(c *semantic.Context, changed *sitter.Node) string {
	return fmt.Sprintf("%s.Changed.AddClassHandler<%s>(%s);", r.field.name, r.classTarget(), handlerText(c, changed, false))
}

// propertyRegistration converts registrations without callbacks (AVP001,
// AVP002).
type propertyRegistration struct {
	base
	attached bool
}

func (p *propertyRegistration) Match(n *sitter.Node, c *semantic.Context) bool {
	r, ok := parseRegistration(n, c)
	if !ok || r.attached != p.attached {
		return false
	}
	return r.kind == metadataNone || r.kind == metadataPlain || r.kind == metadataOpaque
}

func (p *propertyRegistration) Anchor(n *sitter.Node, c *semantic.Context) AnchorSet {
	set := AnchorSet{Primary: syntax.AnchorOf(n)}
	if r, ok := parseRegistration(n, c); ok {
		set.Args = map[string]string{"owner": r.owner, "type": r.valueType, "name": c.Text(r.nameArg)}
		set.Captures = map[string]syntax.Anchor{"initializer": syntax.AnchorOf(r.field.value)}
	}
	return set
}

func (p *propertyRegistration) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	r, ok := parseRegistration(n, c)
	if !ok {
		return nil, fixerr.Malformed("registration no longer parses")
	}
	var def *sitter.Node
	switch r.kind {
	case metadataOpaque:
		return nil, fixerr.Malformed("unsupported metadata expression %s", syntax.Canonical(c.Text(r.metadata)))
	case metadataPlain:
		parts := splitMetadata(c, r.metadata)
		def = parts.defaultValue
	}
	return &Rewrite{Edits: r.edits(c, def, nil)}, nil
}

// callbackRegistration converts registrations whose metadata carries a
// property-changed callback (AVP003).
type callbackRegistration struct {
	base
}

func (p *callbackRegistration) Match(n *sitter.Node, c *semantic.Context) bool {
	r, ok := parseRegistration(n, c)
	return ok && r.kind == metadataCallback
}

func (p *callbackRegistration) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	r, ok := parseRegistration(n, c)
	if !ok {
		return nil, fixerr.Malformed("registration no longer parses")
	}
	parts := splitMetadata(c, r.metadata)
	if parts.changed == nil {
		return nil, fixerr.Malformed("metadata callback not found")
	}

	rw := &Rewrite{}
	var named []string
	if parts.coerce != nil {
		named = append(named, r.coerceArg(c, parts.coerce))
		rw.Notes = append(rw.Notes, fmt.Sprintf("coerce callback %s keeps its legacy signature", c.Text(unwrapDelegate(c, parts.coerce))))
	}
	rw.Edits = r.edits(c, parts.defaultValue, named)

	init, err := staticInit(c, n, []string{r.changedHandler(c, parts.changed)})
	if err != nil {
		return nil, err
	}
	rw.Edits = append(rw.Edits, init)
	return rw, nil
}

// frameworkRegistration converts FrameworkPropertyMetadata options (AVP004).
type frameworkRegistration struct {
	base
}

func (p *frameworkRegistration) Match(n *sitter.Node, c *semantic.Context) bool {
	r, ok := parseRegistration(n, c)
	return ok && r.kind == metadataFramework
}

var affectsOptions = []string{"AffectsMeasure", "AffectsArrange", "AffectsRender"}

func (p *frameworkRegistration) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	r, ok := parseRegistration(n, c)
	if !ok {
		return nil, fixerr.Malformed("registration no longer parses")
	}
	parts := splitMetadata(c, r.metadata)
	rw := &Rewrite{}

	var named, stmts []string
	flags := map[string]bool{}
	if parts.flags != nil {
		for _, term := range strings.Split(c.Text(parts.flags), "|") {
			term = strings.Trim(syntax.Compact(term), "()")
			if i := strings.LastIndexByte(term, '.'); i >= 0 {
				term = term[i+1:]
			}
			flags[term] = true
		}
	}
	if flags["Inherits"] {
		named = append(named, "inherits: true")
	}
	if flags["BindsTwoWayByDefault"] {
		named = append(named, "defaultBindingMode: BindingMode.TwoWay")
	}
	if parts.coerce != nil {
		named = append(named, r.coerceArg(c, parts.coerce))
		rw.Notes = append(rw.Notes, fmt.Sprintf("coerce callback %s keeps its legacy signature", c.Text(unwrapDelegate(c, parts.coerce))))
	}
	for _, opt := range affectsOptions {
		if !flags[opt] {
			continue
		}
		if r.attached {
			rw.Notes = append(rw.Notes, fmt.Sprintf("%s on attached property %s must be registered by consumers", opt, r.field.name))
			continue
		}
		stmts = append(stmts, fmt.Sprintf("%s<%s>(%s);", opt, r.owner, r.field.name))
	}
	for flag := range flags {
		switch flag {
		case "Inherits", "BindsTwoWayByDefault", "AffectsMeasure", "AffectsArrange", "AffectsRender", "None":
		default:
			rw.Notes = append(rw.Notes, fmt.Sprintf("metadata option %s has no equivalent and was dropped", flag))
		}
	}
	for _, a := range parts.ignored {
		rw.Notes = append(rw.Notes, fmt.Sprintf("metadata argument %s was dropped", syntax.Canonical(c.Text(a))))
	}
	if parts.changed != nil {
		stmts = append(stmts, r.changedHandler(c, parts.changed))
	}

	rw.Edits = r.edits(c, parts.defaultValue, named)
	if len(stmts) > 0 {
		init, err := staticInit(c, n, stmts)
		if err != nil {
			return nil, err
		}
		rw.Edits = append(rw.Edits, init)
	}
	sortNotes(rw.Notes)
	return rw, nil
}

// callbackSignature converts property-changed callback parameters (AVP005).
type callbackSignature struct {
	base
}

func (p *callbackSignature) params(n *sitter.Node, c *semantic.Context) (*sitter.Node, *sitter.Node, bool) {
	params := syntax.Parameters(n)
	if len(params) != 2 {
		return nil, nil, false
	}
	t0, t1 := syntax.DeclaredType(params[0]), syntax.DeclaredType(params[1])
	if !c.Is(t0, legacyDependencyObject) || !c.Is(t1, legacyChangedArgs) {
		return nil, nil, false
	}
	return t0, t1, true
}

func (p *callbackSignature) Match(n *sitter.Node, c *semantic.Context) bool {
	_, _, ok := p.params(n, c)
	return ok
}

func (p *callbackSignature) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	t0, t1, ok := p.params(n, c)
	if !ok {
		return nil, fixerr.Malformed("callback parameters changed")
	}
	return &Rewrite{Edits: []syntax.Edit{
		syntax.Replace(t0, c.Source(), "AvaloniaObject"),
		syntax.Replace(t1, c.Source(), "AvaloniaPropertyChangedEventArgs"),
	}}, nil
}

// accessorCast drops casts around GetValue of already typed properties (AVP018).
type accessorCast struct {
	base
}

func (p *accessorCast) value(n *sitter.Node, c *semantic.Context) (*sitter.Node, bool) {
	typ := syntax.Field(n, "type")
	value := syntax.Field(n, "value")
	if typ == nil || value == nil {
		cs := syntax.Children(n)
		if len(cs) != 2 {
			return nil, false
		}
		typ, value = cs[0], cs[1]
	}
	if value.Type() != "invocation_expression" {
		return nil, false
	}
	recv, method := syntax.InvocationTarget(value, c.Source())
	if method != "GetValue" || (recv != nil && recv.Type() != "this_expression" && c.Text(recv) != "this") {
		return nil, false
	}
	args := syntax.ArgumentValues(value)
	if len(args) != 1 || !isMethodGroup(args[0]) {
		return nil, false
	}
	_, prop := syntax.MemberParts(args[0], c.Source())
	f, ok := c.Model.Field(prop)
	if !ok {
		return nil, false
	}
	valueType, ok := typedPropertyValue(f.Type)
	if !ok || valueType != syntax.Compact(c.Text(typ)) {
		return nil, false
	}
	return value, true
}

// typedPropertyValue returns T of StyledProperty<T>, AttachedProperty<T>
// or DirectProperty<TOwner, T>.
func typedPropertyValue(fieldType string) (string, bool) {
	open := strings.IndexByte(fieldType, '<')
	if open < 0 || !strings.HasSuffix(fieldType, ">") {
		return "", false
	}
	switch fieldType[:open] {
	case "StyledProperty", "AttachedProperty", "DirectProperty":
	default:
		return "", false
	}
	args := splitTopLevel(fieldType[open+1 : len(fieldType)-1])
	return args[len(args)-1], true
}

func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, ch := range s {
		switch ch {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func (p *accessorCast) Match(n *sitter.Node, c *semantic.Context) bool {
	_, ok := p.value(n, c)
	return ok
}

func (p *accessorCast) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	value, ok := p.value(n, c)
	if !ok {
		return nil, fixerr.Malformed("cast no longer wraps a typed GetValue")
	}
	return &Rewrite{Edits: []syntax.Edit{syntax.Replace(n, c.Source(), c.Text(value))}}, nil
}

// metadataOverride converts OverrideMetadata calls (AVP019).
type metadataOverride struct {
	base
}

type overrideShape struct {
	receiver *sitter.Node
	owner    string
	metadata *sitter.Node
}

func (p *metadataOverride) parse(n *sitter.Node, c *semantic.Context) (*overrideShape, bool) {
	recv, method := syntax.InvocationTarget(n, c.Source())
	if method != "OverrideMetadata" || recv == nil {
		return nil, false
	}
	_, prop := syntax.MemberParts(recv, c.Source())
	if !strings.HasSuffix(prop, "Property") || prop == "DefaultStyleKeyProperty" {
		return nil, false
	}
	args := syntax.ArgumentValues(n)
	if len(args) < 2 {
		return nil, false
	}
	owner, ok := typeofText(c, args[0])
	if !ok || args[1].Type() != "object_creation_expression" {
		return nil, false
	}
	if !c.IsAny(syntax.CreatedType(args[1]), legacyPropertyMetadata, legacyUIMetadata, legacyFrameworkMetadata) {
		return nil, false
	}
	return &overrideShape{receiver: recv, owner: owner, metadata: args[1]}, true
}

func (p *metadataOverride) Match(n *sitter.Node, c *semantic.Context) bool {
	_, ok := p.parse(n, c)
	return ok
}

func (p *metadataOverride) Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error) {
	s, ok := p.parse(n, c)
	if !ok {
		return nil, fixerr.Malformed("OverrideMetadata call changed")
	}
	parts := splitMetadata(c, s.metadata)
	if parts.defaultValue == nil {
		return nil, fixerr.Malformed("metadata override of %s carries no default value", c.Text(s.receiver))
	}
	rw := &Rewrite{}
	if parts.flags != nil || parts.changed != nil || parts.coerce != nil || len(parts.ignored) > 0 {
		rw.Notes = append(rw.Notes, fmt.Sprintf("only the default value of the %s override was kept", c.Text(s.receiver)))
	}
	text := fmt.Sprintf("%s.OverrideDefaultValue<%s>(%s)", c.Text(s.receiver), s.owner, defaultValueText(c, parts.defaultValue))
	rw.Edits = []syntax.Edit{syntax.Replace(n, c.Source(), text)}
	return rw, nil
}
