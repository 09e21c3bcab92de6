package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"avport/internal/semantic"
	"avport/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

// Rule recognizes one legacy idiom and rewrites it. The set of rules is
// closed: only this package can implement Rule.
type Rule interface {
	ID() string
	Title() string
	// NodeTypes lists the syntax node kinds the rule inspects.
	NodeTypes() []string
	Match(n *sitter.Node, c *semantic.Context) bool
	Anchor(n *sitter.Node, c *semantic.Context) AnchorSet
	Rewrite(c *semantic.Context, n *sitter.Node) (*Rewrite, error)

	sealed()
}

// AnchorSet is what a rule records about a match.
type AnchorSet struct {
	Primary  syntax.Anchor
	Captures map[string]syntax.Anchor
	Args     map[string]string
}

// Rewrite is the set of edits one finding produces.
type Rewrite struct {
	Edits []syntax.Edit
	Notes []string
}

// Finding is one detected occurrence of a legacy idiom in one generation
// of one document.
type Finding struct {
	RuleID     string                   `json:"ruleId"`
	Path       string                   `json:"path"`
	Generation uint64                   `json:"generation"`
	Anchor     syntax.Anchor            `json:"anchor"`
	Captures   map[string]syntax.Anchor `json:"captures,omitempty"`
	Args       map[string]string        `json:"args,omitempty"`
	Snippet    string                   `json:"snippet"`
	Key        string                   `json:"key"`
}

type base struct {
	id    string
	title string
	kinds []string
}

func (b base) ID() string          { return b.id }
func (b base) Title() string       { return b.title }
func (b base) NodeTypes() []string { return b.kinds }

func (b base) Anchor(n *sitter.Node, c *semantic.Context) AnchorSet {
	return AnchorSet{Primary: syntax.AnchorOf(n)}
}

func (base) sealed() {}

// Filter restricts analysis to a set of rule ids. An empty filter admits all.
type Filter map[string]bool

// NewFilter builds a filter from rule ids.
func NewFilter(ids ...string) Filter {
	f := Filter{}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			f[id] = true
		}
	}
	return f
}

// Allows reports whether the filter admits id.
func (f Filter) Allows(id string) bool {
	return len(f) == 0 || f[id]
}

// Catalog is the immutable registry of rules.
type Catalog struct {
	rules  []Rule
	byID   map[string]Rule
	byKind map[string][]Rule
}

// New builds a catalog. Two rules claiming the same id is an error.
func New(rules ...Rule) (*Catalog, error) {
	c := &Catalog{byID: map[string]Rule{}, byKind: map[string][]Rule{}}
	for _, r := range rules {
		id := r.ID()
		if id == "" {
			return nil, fmt.Errorf("rule %q has no id", r.Title())
		}
		if prev, ok := c.byID[id]; ok {
			return nil, fmt.Errorf("diagnostic %s claimed by both %q and %q", id, prev.Title(), r.Title())
		}
		c.byID[id] = r
		c.rules = append(c.rules, r)
		for _, k := range r.NodeTypes() {
			c.byKind[k] = append(c.byKind[k], r)
		}
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog. A misconfigured catalog is a
// programming error and panics at first use.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(builtinRules()...)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func builtinRules() []Rule {
	return []Rule{
		&propertyRegistration{base: base{id: "AVP001", title: "Convert dependency property to styled property", kinds: fieldKinds}},
		&propertyRegistration{base: base{id: "AVP002", title: "Convert attached dependency property", kinds: fieldKinds}, attached: true},
		&callbackRegistration{base: base{id: "AVP003", title: "Convert property metadata callbacks", kinds: fieldKinds}},
		&frameworkRegistration{base: base{id: "AVP004", title: "Convert framework property metadata options", kinds: fieldKinds}},
		&callbackSignature{base: base{id: "AVP005", title: "Convert property-changed callback signature", kinds: []string{"method_declaration"}}},
		&baseClass{base: base{id: "AVP006", title: "Replace legacy base class", kinds: []string{"class_declaration"}}},
		&staleUsing{base: base{id: "AVP007", title: "Replace or remove stale legacy using", kinds: []string{"using_directive"}}},
		&markerAttribute{base: base{id: "AVP008", title: "Remove legacy marker attribute", kinds: []string{"attribute"}}},
		&routedEventField{base: base{id: "AVP009", title: "Convert routed event registration", kinds: fieldKinds}},
		&eventAccessor{base: base{id: "AVP010", title: "Convert routed event accessor", kinds: []string{"event_declaration"}}},
		&handlerCall{base: base{id: "AVP011", title: "Normalize AddHandler call", kinds: invocationKinds}, method: "AddHandler"},
		&handlerCall{base: base{id: "AVP012", title: "Normalize RemoveHandler call", kinds: invocationKinds}, method: "RemoveHandler"},
		&raiseEvent{base: base{id: "AVP013", title: "Convert RaiseEvent arguments", kinds: invocationKinds}},
		&classHandler{base: base{id: "AVP014", title: "Convert class handler registration", kinds: invocationKinds}},
		&addOwner{base: base{id: "AVP015", title: "Convert routed event AddOwner", kinds: fieldKinds}},
		&instrumentation{base: base{id: "AVP016", title: "Remove instrumentation call", kinds: []string{"expression_statement", "if_statement"}}},
		&capacityHint{base: base{id: "AVP017", title: "Remove capacity hint override", kinds: []string{"property_declaration"}}},
		&accessorCast{base: base{id: "AVP018", title: "Remove redundant property accessor cast", kinds: []string{"cast_expression"}}},
		&metadataOverride{base: base{id: "AVP019", title: "Convert OverrideMetadata to OverrideDefaultValue", kinds: invocationKinds}},
	}
}

var (
	fieldKinds      = []string{"field_declaration"}
	invocationKinds = []string{"invocation_expression"}
)

// Rule returns the rule owning id.
func (c *Catalog) Rule(id string) (Rule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Rules returns the rules in registration order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// IDs returns every diagnostic id in registration order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		ids = append(ids, r.ID())
	}
	return ids
}

// Analyze walks the snapshot once and returns the findings admitted by
// filter, ordered by anchor start byte and then rule id.
func (c *Catalog) Analyze(sc *semantic.Context, filter Filter) []Finding {
	snap := sc.Snapshot
	seen := map[string]bool{}
	var out []Finding

	syntax.Walk(snap.Root(), func(n *sitter.Node) bool {
		for _, r := range c.byKind[n.Type()] {
			if !filter.Allows(r.ID()) || !r.Match(n, sc) {
				continue
			}
			set := r.Anchor(n, sc)
			dedup := r.ID() + set.Primary.Range.String()
			if seen[dedup] {
				continue
			}
			seen[dedup] = true

			text := string(snap.Source[set.Primary.Range.Start:set.Primary.Range.End])
			out = append(out, Finding{
				RuleID:     r.ID(),
				Path:       snap.Path,
				Generation: snap.Generation,
				Anchor:     set.Primary,
				Captures:   set.Captures,
				Args:       set.Args,
				Snippet:    snippet(text),
				Key:        r.ID() + ":" + syntax.TextKey(text),
			})
		}
		return true
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Anchor.Range.Start != out[j].Anchor.Range.Start {
			return out[i].Anchor.Range.Start < out[j].Anchor.Range.Start
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}

func snippet(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return line
}
