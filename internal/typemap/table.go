package typemap

import (
	"sort"
	"strings"
	"sync"
)

// Kind classifies a legacy type by how rewrites treat it.
type Kind int

const (
	KindFramework Kind = iota
	KindEventArgs
	KindHandler
	KindBase
	KindAttribute
	KindInstrumentation
)

// Entry maps one legacy type to its target, if it has one.
type Entry struct {
	Legacy string
	Target string
	Kind   Kind
	// Params holds the handler delegate's parameter types for KindHandler.
	Params []string
}

// Event describes a well-known framework routed event.
type Event struct {
	Args    string
	Routing string
}

// Table is the immutable legacy-to-target mapping. It is built once and
// shared by every analysis and rewrite.
type Table struct {
	entries          map[string]Entry
	targets          map[string]bool
	legacySimple     map[string]bool
	legacyNamespaces []string
	namespaceTargets map[string][]string
	events           map[string]Event
	defaultArgs      string
}

const (
	nsWindows     = "System.Windows"
	nsControls    = "System.Windows.Controls"
	nsPrimitives  = "System.Windows.Controls.Primitives"
	nsInput       = "System.Windows.Input"
	nsMedia       = "System.Windows.Media"
	nsTelemetry   = "MS.Internal.Telemetry.PresentationFramework"
	nsUtility     = "MS.Utility"
	nsWindowsBase = "MS.Internal.WindowsBase"
	nsKnownBoxes  = "MS.Internal.KnownBoxes"
)

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the process-wide mapping table.
func Default() *Table {
	defaultOnce.Do(func() {
		defaultTable = build()
	})
	return defaultTable
}

func build() *Table {
	t := &Table{
		entries:      map[string]Entry{},
		targets:      map[string]bool{},
		legacySimple: map[string]bool{},
		legacyNamespaces: []string{
			nsWindows, nsControls, nsPrimitives, nsInput, nsMedia,
			nsTelemetry, nsUtility, nsWindowsBase, nsKnownBoxes,
		},
		namespaceTargets: map[string][]string{
			nsWindows:     {"Avalonia", "Avalonia.Interactivity"},
			nsControls:    {"Avalonia.Controls"},
			nsPrimitives:  {"Avalonia.Controls.Primitives"},
			nsInput:       {"Avalonia.Input"},
			nsMedia:       {"Avalonia.Media"},
			nsTelemetry:   nil,
			nsUtility:     nil,
			nsWindowsBase: nil,
			nsKnownBoxes:  nil,
		},
		events:      map[string]Event{},
		defaultArgs: "Avalonia.Interactivity.RoutedEventArgs",
	}

	framework := [][2]string{
		{nsWindows + ".DependencyProperty", "Avalonia.AvaloniaProperty"},
		{nsWindows + ".DependencyPropertyKey", ""},
		{nsWindows + ".PropertyMetadata", ""},
		{nsWindows + ".UIPropertyMetadata", ""},
		{nsWindows + ".FrameworkPropertyMetadata", ""},
		{nsWindows + ".FrameworkPropertyMetadataOptions", ""},
		{nsWindows + ".PropertyChangedCallback", ""},
		{nsWindows + ".CoerceValueCallback", ""},
		{nsWindows + ".ValidateValueCallback", ""},
		{nsWindows + ".DependencyPropertyChangedEventArgs", "Avalonia.AvaloniaPropertyChangedEventArgs"},
		{nsWindows + ".RoutedEvent", "Avalonia.Interactivity.RoutedEvent"},
		{nsWindows + ".RoutingStrategy", "Avalonia.Interactivity.RoutingStrategies"},
		{nsWindows + ".EventManager", ""},
		{nsInput + ".Mouse", ""},
		{nsInput + ".Keyboard", ""},
		{nsKnownBoxes + ".BooleanBoxes", ""},
	}
	for _, f := range framework {
		t.add(Entry{Legacy: f[0], Target: f[1], Kind: KindFramework})
	}

	args := [][2]string{
		{nsWindows + ".RoutedEventArgs", "Avalonia.Interactivity.RoutedEventArgs"},
		{nsWindows + ".SizeChangedEventArgs", "Avalonia.Controls.SizeChangedEventArgs"},
		{nsWindows + ".DragEventArgs", "Avalonia.Input.DragEventArgs"},
		{nsControls + ".ScrollChangedEventArgs", "Avalonia.Controls.ScrollChangedEventArgs"},
		{nsControls + ".ContextMenuEventArgs", "Avalonia.Controls.ContextRequestedEventArgs"},
		{nsInput + ".MouseEventArgs", "Avalonia.Input.PointerEventArgs"},
		{nsInput + ".MouseButtonEventArgs", "Avalonia.Input.PointerPressedEventArgs"},
		{nsInput + ".MouseWheelEventArgs", "Avalonia.Input.PointerWheelEventArgs"},
		{nsInput + ".KeyEventArgs", "Avalonia.Input.KeyEventArgs"},
		{nsInput + ".TextCompositionEventArgs", "Avalonia.Input.TextInputEventArgs"},
		{nsInput + ".KeyboardFocusChangedEventArgs", "Avalonia.Input.GotFocusEventArgs"},
	}
	for _, a := range args {
		t.add(Entry{Legacy: a[0], Target: a[1], Kind: KindEventArgs})
	}

	handlers := []struct{ name, args string }{
		{nsWindows + ".RoutedEventHandler", nsWindows + ".RoutedEventArgs"},
		{nsWindows + ".SizeChangedEventHandler", nsWindows + ".SizeChangedEventArgs"},
		{nsWindows + ".DragEventHandler", nsWindows + ".DragEventArgs"},
		{nsControls + ".ScrollChangedEventHandler", nsControls + ".ScrollChangedEventArgs"},
		{nsControls + ".ContextMenuEventHandler", nsControls + ".ContextMenuEventArgs"},
		{nsInput + ".MouseEventHandler", nsInput + ".MouseEventArgs"},
		{nsInput + ".MouseButtonEventHandler", nsInput + ".MouseButtonEventArgs"},
		{nsInput + ".MouseWheelEventHandler", nsInput + ".MouseWheelEventArgs"},
		{nsInput + ".KeyEventHandler", nsInput + ".KeyEventArgs"},
		{nsInput + ".TextCompositionEventHandler", nsInput + ".TextCompositionEventArgs"},
		{nsInput + ".KeyboardFocusChangedEventHandler", nsInput + ".KeyboardFocusChangedEventArgs"},
	}
	for _, h := range handlers {
		t.add(Entry{Legacy: h.name, Kind: KindHandler, Params: []string{"object", h.args}})
	}

	bases := [][2]string{
		{nsWindows + ".DependencyObject", "Avalonia.AvaloniaObject"},
		{nsWindows + ".UIElement", "Avalonia.Controls.Control"},
		{nsWindows + ".FrameworkElement", "Avalonia.Controls.Control"},
		{nsWindows + ".Window", "Avalonia.Controls.Window"},
		{nsControls + ".Control", "Avalonia.Controls.Primitives.TemplatedControl"},
		{nsControls + ".ContentControl", "Avalonia.Controls.ContentControl"},
		{nsControls + ".ItemsControl", "Avalonia.Controls.ItemsControl"},
		{nsControls + ".UserControl", "Avalonia.Controls.UserControl"},
		{nsControls + ".Panel", "Avalonia.Controls.Panel"},
		{nsControls + ".Decorator", "Avalonia.Controls.Decorator"},
		{nsPrimitives + ".RangeBase", "Avalonia.Controls.Primitives.RangeBase"},
		{nsPrimitives + ".ButtonBase", "Avalonia.Controls.Button"},
		{nsMedia + ".Visual", "Avalonia.Visual"},
	}
	for _, b := range bases {
		t.add(Entry{Legacy: b[0], Target: b[1], Kind: KindBase})
	}

	for _, a := range []string{
		nsWindowsBase + ".FriendAccessAllowedAttribute",
		nsWindows + ".LocalizabilityAttribute",
	} {
		t.add(Entry{Legacy: a, Kind: KindAttribute})
	}

	for _, r := range []string{
		nsTelemetry + ".ControlsTraceLogger",
		nsUtility + ".EventTrace",
	} {
		t.add(Entry{Legacy: r, Kind: KindInstrumentation})
	}

	for _, extra := range []string{
		"Avalonia.AvaloniaObject", "Avalonia.AvaloniaProperty", "Avalonia.StyledProperty",
		"Avalonia.AttachedProperty", "Avalonia.DirectProperty", "Avalonia.AvaloniaPropertyChangedEventArgs",
		"Avalonia.Interactivity.RoutedEvent", "Avalonia.Interactivity.RoutingStrategies",
		"Avalonia.Interactivity.Interactive", "Avalonia.Data.BindingMode",
		"Avalonia.Controls.Control", "Avalonia.Layout.Layoutable",
	} {
		t.targets[extra] = true
	}

	for _, ev := range []struct{ ref, args, routing string }{
		{"ButtonBase.ClickEvent", nsWindows + ".RoutedEventArgs", "Bubble"},
		{"Button.ClickEvent", nsWindows + ".RoutedEventArgs", "Bubble"},
		{"MenuItem.ClickEvent", nsWindows + ".RoutedEventArgs", "Bubble"},
		{"UIElement.MouseDownEvent", nsInput + ".MouseButtonEventArgs", "Bubble"},
		{"UIElement.MouseUpEvent", nsInput + ".MouseButtonEventArgs", "Bubble"},
		{"UIElement.MouseMoveEvent", nsInput + ".MouseEventArgs", "Bubble"},
		{"UIElement.MouseWheelEvent", nsInput + ".MouseWheelEventArgs", "Bubble"},
		{"UIElement.PreviewMouseDownEvent", nsInput + ".MouseButtonEventArgs", "Tunnel"},
		{"UIElement.KeyDownEvent", nsInput + ".KeyEventArgs", "Bubble"},
		{"UIElement.KeyUpEvent", nsInput + ".KeyEventArgs", "Bubble"},
		{"UIElement.PreviewKeyDownEvent", nsInput + ".KeyEventArgs", "Tunnel"},
		{"UIElement.TextInputEvent", nsInput + ".TextCompositionEventArgs", "Bubble"},
		{"Mouse.MouseDownEvent", nsInput + ".MouseButtonEventArgs", "Bubble"},
		{"Mouse.MouseUpEvent", nsInput + ".MouseButtonEventArgs", "Bubble"},
		{"Mouse.MouseMoveEvent", nsInput + ".MouseEventArgs", "Bubble"},
		{"Keyboard.KeyDownEvent", nsInput + ".KeyEventArgs", "Bubble"},
		{"Keyboard.GotKeyboardFocusEvent", nsInput + ".KeyboardFocusChangedEventArgs", "Bubble"},
		{"FrameworkElement.SizeChangedEvent", nsWindows + ".SizeChangedEventArgs", "Direct"},
		{"FrameworkElement.LoadedEvent", nsWindows + ".RoutedEventArgs", "Direct"},
		{"FrameworkElement.UnloadedEvent", nsWindows + ".RoutedEventArgs", "Direct"},
		{"ScrollViewer.ScrollChangedEvent", nsControls + ".ScrollChangedEventArgs", "Bubble"},
		{"Selector.SelectionChangedEvent", nsWindows + ".RoutedEventArgs", "Bubble"},
		{"ToggleButton.CheckedEvent", nsWindows + ".RoutedEventArgs", "Bubble"},
		{"ToggleButton.UncheckedEvent", nsWindows + ".RoutedEventArgs", "Bubble"},
		{"ContextMenuService.ContextMenuOpeningEvent", nsControls + ".ContextMenuEventArgs", "Bubble"},
	} {
		t.events[ev.ref] = Event{Args: ev.args, Routing: ev.routing}
	}
	return t
}

func (t *Table) add(e Entry) {
	t.entries[e.Legacy] = e
	t.legacySimple[SimpleName(e.Legacy)] = true
	if e.Target != "" {
		t.targets[e.Target] = true
	}
}

// Has reports whether fqn names any type the table knows, legacy or target.
func (t *Table) Has(fqn string) bool {
	_, legacy := t.entries[fqn]
	return legacy || t.targets[fqn]
}

// Lookup returns the entry for a legacy fully qualified name.
func (t *Table) Lookup(fqn string) (Entry, bool) {
	e, ok := t.entries[fqn]
	return e, ok
}

// IsLegacy reports whether fqn is a legacy type.
func (t *Table) IsLegacy(fqn string) bool {
	_, ok := t.entries[fqn]
	return ok
}

// IsTarget reports whether fqn is a target-framework type.
func (t *Table) IsTarget(fqn string) bool {
	return t.targets[fqn]
}

// IsKind reports whether fqn is a legacy type of the given kind.
func (t *Table) IsKind(fqn string, k Kind) bool {
	e, ok := t.entries[fqn]
	return ok && e.Kind == k
}

// BaseTarget returns the target base class for a legacy base class.
func (t *Table) BaseTarget(fqn string) (string, bool) {
	e, ok := t.entries[fqn]
	if !ok || e.Kind != KindBase {
		return "", false
	}
	return e.Target, true
}

// HandlerParams returns the parameter types of a legacy handler delegate.
func (t *Table) HandlerParams(fqn string) ([]string, bool) {
	e, ok := t.entries[fqn]
	if !ok || e.Kind != KindHandler {
		return nil, false
	}
	return e.Params, true
}

// DefaultEventArgs is the target type used when no mapping applies.
func (t *Table) DefaultEventArgs() string {
	return t.defaultArgs
}

// LegacyNamespaces returns the known legacy namespaces in lookup order.
func (t *Table) LegacyNamespaces() []string {
	out := make([]string, len(t.legacyNamespaces))
	copy(out, t.legacyNamespaces)
	return out
}

// IsLegacyNamespace reports whether ns is one of the legacy namespaces.
func (t *Table) IsLegacyNamespace(ns string) bool {
	_, ok := t.namespaceTargets[ns]
	return ok
}

// NamespaceTargets returns the namespaces replacing a legacy namespace.
// An empty result means the namespace is simply dropped.
func (t *Table) NamespaceTargets(ns string) []string {
	return t.namespaceTargets[ns]
}

// PendingNames returns the simple names whose presence in a document still
// depends on the legacy namespace ns: names that exist only in the legacy
// framework and base classes awaiting conversion.
func (t *Table) PendingNames(ns string) map[string]bool {
	names := map[string]bool{}
	for fqn, e := range t.entries {
		if Namespace(fqn) != ns {
			continue
		}
		simple := SimpleName(fqn)
		shared := e.Target != "" && SimpleName(e.Target) == simple
		if shared && e.Kind != KindBase {
			continue
		}
		names[simple] = true
		if e.Kind == KindAttribute {
			names[strings.TrimSuffix(simple, "Attribute")] = true
		}
	}
	return names
}

// FrameworkEvent looks up a well-known event by "Owner.FieldName".
func (t *Table) FrameworkEvent(ref string) (Event, bool) {
	e, ok := t.events[ref]
	return e, ok
}

// Candidates enumerates the fully qualified names a raw type reference may
// denote, in the order they should be tried: the text itself, its bare
// identifier, then the identifier under each legacy namespace. Generic,
// array and nullable references have no candidates.
func (t *Table) Candidates(text string) []string {
	stripped := StripGlobal(strings.Join(strings.Fields(text), ""))
	if stripped == "" || strings.ContainsAny(stripped, "<>[]()?*") {
		return nil
	}
	bare := SimpleName(stripped)
	seen := map[string]bool{}
	var out []string
	push := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	push(stripped)
	push(bare)
	for _, ns := range t.legacyNamespaces {
		push(ns + "." + bare)
	}
	return out
}

// MapEventArgs maps a legacy event-args type to its target. It accepts a
// fully qualified name or raw source text; anything it cannot place maps
// to the default routed-event-args type.
func (t *Table) MapEventArgs(name string) string {
	target, _ := t.mapEventArgs(name)
	return target
}

func (t *Table) mapEventArgs(name string) (string, bool) {
	for _, cand := range t.Candidates(name) {
		if e, ok := t.entries[cand]; ok && e.Kind == KindEventArgs {
			return e.Target, true
		}
		if t.targets[cand] && strings.HasSuffix(cand, "EventArgs") {
			return cand, true
		}
	}
	return t.defaultArgs, false
}

// TargetReference returns the reference text to emit for a target
// type: its simple name, or the full name when the simple name is also a
// legacy type name and would otherwise keep resolving to the legacy type.
func (t *Table) TargetReference(fqn string) string {
	simple := SimpleName(fqn)
	if t.legacySimple[simple] {
		return fqn
	}
	return simple
}

// LegacyTypes returns all legacy fully qualified names, sorted.
func (t *Table) LegacyTypes() []string {
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SimpleName returns the last dotted segment of a name, without generic arguments.
func SimpleName(name string) string {
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	name = StripGlobal(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Namespace returns everything before the last dotted segment.
func Namespace(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[:i]
	}
	return ""
}

// StripGlobal removes a leading "global::" qualifier.
func StripGlobal(name string) string {
	return strings.TrimPrefix(name, "global::")
}
