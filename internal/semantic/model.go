package semantic

import (
	"strings"

	"avport/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

// Using is one using directive of a document.
type Using struct {
	Namespace string
	Alias     string
	Static    bool
	Node      *sitter.Node
}

// Field is a field declared in the document.
type Field struct {
	Name        string
	Type        string
	Owner       string
	Static      bool
	ReadOnly    bool
	Initializer *sitter.Node
}

// Method is a method declared in the document.
type Method struct {
	Name   string
	Owner  string
	Static bool
	Params []Param
}

// Param is a method or delegate parameter.
type Param struct {
	Name string
	Type string
}

// Model is the per-snapshot symbol view: usings, declared types and their
// members. It stands in for a compiler's semantic model for the purposes
// of recognizing legacy idioms.
type Model struct {
	Namespace string
	Usings    []Using
	Types     map[string][]string
	Fields    map[string]Field
	Methods   map[string][]Method
	Delegates map[string][]Param

	imports map[string]bool
	aliases map[string]string
	owned   map[string]Field
}

var typeDeclarations = []string{
	"class_declaration", "struct_declaration", "interface_declaration",
	"record_declaration", "enum_declaration",
}

// Build derives the model from a snapshot.
func Build(snap *syntax.Snapshot) *Model {
	m := &Model{
		Types:     map[string][]string{},
		Fields:    map[string]Field{},
		Methods:   map[string][]Method{},
		Delegates: map[string][]Param{},
		imports:   map[string]bool{},
		aliases:   map[string]string{},
		owned:     map[string]Field{},
	}
	src := snap.Source

	syntax.Walk(snap.Root(), func(n *sitter.Node) bool {
		switch n.Type() {
		case "using_directive":
			m.addUsing(n, src)
			return false
		case "namespace_declaration", "file_scoped_namespace_declaration":
			if m.Namespace == "" {
				if name := syntax.Field(n, "name"); name != nil {
					m.Namespace = syntax.Compact(name.Content(src))
				}
			}
		case "delegate_declaration":
			m.Delegates[syntax.Name(n, src)] = params(n, src)
			m.Types[syntax.Name(n, src)] = nil
			return false
		case "field_declaration":
			m.addFields(n, src)
			return false
		case "method_declaration":
			name := syntax.Name(n, src)
			m.Methods[name] = append(m.Methods[name], Method{
				Name:   name,
				Owner:  ownerName(n, src),
				Static: syntax.HasModifier(n, src, "static"),
				Params: params(n, src),
			})
			return false
		default:
			for _, t := range typeDeclarations {
				if n.Type() == t {
					m.addType(n, src)
				}
			}
		}
		return true
	})
	return m
}

func (m *Model) addUsing(n *sitter.Node, src []byte) {
	u := Using{Node: n, Static: syntax.HasToken(n, src, "static")}
	cs := syntax.Children(n)
	if len(cs) == 0 {
		return
	}
	if ne := syntax.ChildOfType(n, "name_equals"); ne != nil {
		if id := syntax.ChildOfType(ne, "identifier"); id != nil {
			u.Alias = id.Content(src)
		} else {
			u.Alias = strings.TrimSpace(strings.TrimSuffix(ne.Content(src), "="))
		}
	} else if alias := syntax.Field(n, "alias"); alias != nil {
		u.Alias = alias.Content(src)
	} else if len(cs) >= 2 && syntax.HasToken(n, src, "=") {
		u.Alias = cs[0].Content(src)
	}
	u.Namespace = syntax.Compact(cs[len(cs)-1].Content(src))
	m.Usings = append(m.Usings, u)

	switch {
	case u.Alias != "":
		m.aliases[u.Alias] = u.Namespace
	case !u.Static:
		m.imports[u.Namespace] = true
	}
}

func (m *Model) addType(n *sitter.Node, src []byte) {
	var bases []string
	if bl := syntax.ChildOfType(n, "base_list"); bl != nil {
		for _, b := range syntax.Children(bl) {
			bases = append(bases, syntax.Compact(b.Content(src)))
		}
	}
	m.Types[syntax.Name(n, src)] = bases
}

func (m *Model) addFields(n *sitter.Node, src []byte) {
	vd := syntax.VariableDeclaration(n)
	typeNode := syntax.DeclaredType(vd)
	if typeNode == nil {
		return
	}
	typ := syntax.Compact(typeNode.Content(src))
	for _, d := range syntax.Declarators(vd) {
		name := syntax.DeclaratorName(d, src)
		f := Field{
			Name:        name,
			Type:        typ,
			Owner:       ownerName(n, src),
			Static:      syntax.HasModifier(n, src, "static") || syntax.HasModifier(n, src, "const"),
			ReadOnly:    syntax.HasModifier(n, src, "readonly"),
			Initializer: syntax.Initializer(d),
		}
		m.Fields[name] = f
		m.owned[f.Owner+"."+name] = f
	}
}

func params(n *sitter.Node, src []byte) []Param {
	var out []Param
	for _, p := range syntax.Parameters(n) {
		param := Param{Name: syntax.Name(p, src)}
		if t := syntax.DeclaredType(p); t != nil {
			param.Type = syntax.Compact(t.Content(src))
		}
		out = append(out, param)
	}
	return out
}

func ownerName(n *sitter.Node, src []byte) string {
	return syntax.Name(syntax.Ancestor(n, typeDeclarations...), src)
}

// Imports reports whether the document imports namespace ns.
func (m *Model) Imports(ns string) bool {
	return m.imports[ns]
}

// ImportedNamespaces returns the non-alias, non-static usings in source order.
func (m *Model) ImportedNamespaces() []string {
	var out []string
	for _, u := range m.Usings {
		if u.Alias == "" && !u.Static {
			out = append(out, u.Namespace)
		}
	}
	return out
}

// Alias expands a using alias.
func (m *Model) Alias(name string) (string, bool) {
	ns, ok := m.aliases[name]
	return ns, ok
}

// Declares reports whether a type with the simple name is declared in the document.
func (m *Model) Declares(name string) bool {
	_, ok := m.Types[name]
	return ok
}

// Qualify returns the fully qualified name of a type declared in the document.
func (m *Model) Qualify(name string) string {
	if m.Namespace == "" {
		return name
	}
	return m.Namespace + "." + name
}

// Field returns a field declared in the document.
func (m *Model) Field(name string) (Field, bool) {
	f, ok := m.Fields[name]
	return f, ok
}

// OwnedField returns the field declared as name inside type owner.
func (m *Model) OwnedField(owner, name string) (Field, bool) {
	f, ok := m.owned[owner+"."+name]
	return f, ok
}

// HasMethod reports whether a method with the given name is declared.
func (m *Model) HasMethod(name string) bool {
	return len(m.Methods[name]) > 0
}
