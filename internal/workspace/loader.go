package workspace

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// RootProject names the implicit project owning files outside every project.
const RootProject = "(root)"

// Project is one C# project and the documents it owns.
type Project struct {
	Name       string
	Path       string
	Dir        string
	References []string
	Documents  []string
}

// Solution is the set of projects under a workspace root.
type Solution struct {
	Root     string
	Path     string
	Projects []*Project

	byName map[string]*Project
}

// LoadOptions tunes workspace discovery.
type LoadOptions struct {
	// Exclude lists additional directory names to skip.
	Exclude []string
}

var ignoredDirs = []string{".git", "bin", "obj", "node_modules", ".vs"}

var slnProjectRe = regexp.MustCompile(`(?m)^Project\("\{[^}]*\}"\)\s*=\s*"([^"]*)",\s*"([^"]*)"`)

// LoadSolution discovers projects and documents under root. The first
// *.sln in root lists the projects when present; otherwise every *.csproj
// in the tree is a project.
func LoadSolution(root string, opts LoadOptions) (*Solution, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}

	ignored := append(append([]string{}, ignoredDirs...), opts.Exclude...)
	s := &Solution{Root: abs, byName: map[string]*Project{}}

	projectFiles, slnPath, err := findProjectFiles(abs, ignored)
	if err != nil {
		return nil, err
	}
	s.Path = slnPath

	byPath := map[string]*Project{}
	refs := map[*Project][]string{}
	for _, pf := range projectFiles {
		p := &Project{
			Name: strings.TrimSuffix(filepath.Base(pf), filepath.Ext(pf)),
			Path: pf,
			Dir:  filepath.Dir(pf),
		}
		includes, err := readProjectReferences(pf)
		if err != nil {
			return nil, err
		}
		refs[p] = includes
		byPath[pf] = p
		s.add(p)
	}
	for p, includes := range refs {
		for _, inc := range includes {
			target := filepath.Clean(filepath.Join(p.Dir, filepath.FromSlash(strings.ReplaceAll(inc, `\`, "/"))))
			if ref, ok := byPath[target]; ok {
				p.References = append(p.References, ref.Name)
			}
		}
		sort.Strings(p.References)
	}

	if err := s.assignDocuments(ignored); err != nil {
		return nil, err
	}
	s.Projects = s.dependencyOrder()
	return s, nil
}

func (s *Solution) add(p *Project) {
	if _, dup := s.byName[p.Name]; dup {
		p.Name = p.Name + "@" + filepath.Base(p.Dir)
	}
	s.byName[p.Name] = p
	s.Projects = append(s.Projects, p)
}

func findProjectFiles(root string, ignored []string) ([]string, string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sln" {
			continue
		}
		slnPath := filepath.Join(root, e.Name())
		data, err := os.ReadFile(slnPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read solution %s: %w", slnPath, err)
		}
		var files []string
		for _, m := range slnProjectRe.FindAllStringSubmatch(string(data), -1) {
			rel := strings.ReplaceAll(m[2], `\`, "/")
			if !strings.HasSuffix(rel, ".csproj") {
				continue
			}
			files = append(files, filepath.Join(root, filepath.FromSlash(rel)))
		}
		sort.Strings(files)
		return files, slnPath, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && isIgnored(d.Name(), ignored) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".csproj") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, "", nil
}

type msbuildProject struct {
	ItemGroups []struct {
		References []struct {
			Include string `xml:"Include,attr"`
		} `xml:"ProjectReference"`
	} `xml:"ItemGroup"`
}

func readProjectReferences(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", path, err)
	}
	var proj msbuildProject
	if err := xml.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}
	var out []string
	for _, g := range proj.ItemGroups {
		for _, r := range g.References {
			if r.Include != "" {
				out = append(out, r.Include)
			}
		}
	}
	return out, nil
}

// assignDocuments gives each *.cs file to the innermost project whose
// directory contains it.
func (s *Solution) assignDocuments(ignored []string) error {
	var orphans []string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.Root && isIgnored(d.Name(), ignored) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != ".cs" {
			return nil
		}
		if owner := s.owner(path); owner != nil {
			owner.Documents = append(owner.Documents, path)
		} else {
			orphans = append(orphans, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan documents under %s: %w", s.Root, err)
	}
	if len(orphans) > 0 {
		s.add(&Project{Name: RootProject, Dir: s.Root, Documents: orphans})
	}
	for _, p := range s.Projects {
		sort.Strings(p.Documents)
	}
	return nil
}

func (s *Solution) owner(path string) *Project {
	var best *Project
	for _, p := range s.Projects {
		if !within(p.Dir, path) {
			continue
		}
		if best == nil || len(p.Dir) > len(best.Dir) {
			best = p
		}
	}
	return best
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isIgnored(name string, ignored []string) bool {
	for _, ign := range ignored {
		if name == ign {
			return true
		}
	}
	return false
}
