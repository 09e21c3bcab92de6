package workspace

import "sort"

// Project returns the project with the given name.
func (s *Solution) Project(name string) (*Project, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// GetDependencies returns the names of projects p references directly.
func (s *Solution) GetDependencies(name string) []string {
	p, ok := s.byName[name]
	if !ok {
		return nil
	}
	out := make([]string, len(p.References))
	copy(out, p.References)
	return out
}

// GetDependents returns the names of projects that reference p directly.
func (s *Solution) GetDependents(name string) []string {
	var out []string
	for _, p := range s.Projects {
		for _, ref := range p.References {
			if ref == name {
				out = append(out, p.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// dependencyOrder sorts projects so dependencies come first; independent
// projects are ordered by name. Projects caught in a reference cycle are
// appended by name.
func (s *Solution) dependencyOrder() []*Project {
	pending := map[string]int{}
	for _, p := range s.Projects {
		pending[p.Name] = 0
	}
	for _, p := range s.Projects {
		for _, ref := range p.References {
			if _, ok := pending[ref]; ok {
				pending[p.Name]++
			}
		}
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}

	var order []*Project
	done := map[string]bool{}
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]
		done[name] = true
		order = append(order, s.byName[name])
		for _, dep := range s.GetDependents(name) {
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	var cyclic []string
	for name := range pending {
		if !done[name] {
			cyclic = append(cyclic, name)
		}
	}
	sort.Strings(cyclic)
	for _, name := range cyclic {
		order = append(order, s.byName[name])
	}
	return order
}
