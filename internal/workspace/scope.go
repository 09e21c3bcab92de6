package workspace

import (
	"fmt"
	"path/filepath"
)

// Scope selects which documents a fix request covers.
type Scope string

const (
	ScopeDocument Scope = "document"
	ScopeProject  Scope = "project"
	ScopeSolution Scope = "solution"
)

// Resolve expands a scope into document paths: dependency order across
// projects, path order within a project.
func (s *Solution) Resolve(scope Scope, target string) ([]string, error) {
	switch scope {
	case ScopeSolution:
		var out []string
		for _, p := range s.Projects {
			out = append(out, p.Documents...)
		}
		return out, nil
	case ScopeProject:
		p, err := s.findProject(target)
		if err != nil {
			return nil, err
		}
		return append([]string{}, p.Documents...), nil
	case ScopeDocument:
		path := s.abs(target)
		for _, p := range s.Projects {
			for _, d := range p.Documents {
				if d == path {
					return []string{d}, nil
				}
			}
		}
		return nil, fmt.Errorf("document %s is not part of the solution", target)
	}
	return nil, fmt.Errorf("unknown scope %q", scope)
}

func (s *Solution) findProject(target string) (*Project, error) {
	if p, ok := s.byName[target]; ok {
		return p, nil
	}
	path := s.abs(target)
	for _, p := range s.Projects {
		if p.Path == path || p.Dir == path {
			return p, nil
		}
	}
	return nil, fmt.Errorf("project %s not found", target)
}

func (s *Solution) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.Root, path)
}

// Documents returns every document of the solution in scope order.
func (s *Solution) Documents() []string {
	docs, _ := s.Resolve(ScopeSolution, "")
	return docs
}
