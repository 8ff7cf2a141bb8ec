// Package workspace discovers releasable packages by walking the source
// tree for package manifests, and rewrites manifest versions when a plan is
// materialized.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/caravel/pkg/domain"
)

// ManifestName is the per-package manifest file.
const ManifestName = "package.yaml"

// Manifest is the on-disk shape of a package declaration.
type Manifest struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Dependencies []string `yaml:"dependencies,omitempty"`
	Include      []string `yaml:"include,omitempty"`
	Exclude      []string `yaml:"exclude,omitempty"`
	Publish      *bool    `yaml:"publish,omitempty"`
	Docs         string   `yaml:"docs,omitempty"`
}

// Discover walks root for package manifests and returns the declared
// packages, sorted by name. Dependency names must resolve to packages found
// in the same walk.
func Discover(root string) ([]domain.Package, error) {
	var pkgs []domain.Package
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories (".git", ".caravel") never hold packages.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ManifestName {
			return nil
		}
		pkg, err := loadManifest(root, path)
		if err != nil {
			return err
		}
		pkgs = append(pkgs, pkg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspace discovery: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no %s manifests found under %s", ManifestName, root)
	}

	byName := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		if byName[p.Name] {
			return nil, fmt.Errorf("duplicate package name %q in workspace", p.Name)
		}
		byName[p.Name] = true
	}
	for _, p := range pkgs {
		for _, dep := range p.Dependencies {
			if !byName[dep] {
				return nil, fmt.Errorf("package %q depends on %q, which is not in the workspace", p.Name, dep)
			}
		}
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}

func loadManifest(root, path string) (domain.Package, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Package{}, fmt.Errorf("read %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return domain.Package{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if m.Name == "" {
		return domain.Package{}, fmt.Errorf("%s: missing package name", path)
	}
	if m.Version == "" {
		return domain.Package{}, fmt.Errorf("%s: package %q has no version", path, m.Name)
	}
	v, err := semver.StrictNewVersion(m.Version)
	if err != nil {
		return domain.Package{}, fmt.Errorf("%s: package %q version %q: %w", path, m.Name, m.Version, err)
	}

	dir, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return domain.Package{}, err
	}
	publish := true
	if m.Publish != nil {
		publish = *m.Publish
	}
	return domain.Package{
		Name:         m.Name,
		Version:      v,
		Dir:          filepath.ToSlash(dir),
		Include:      m.Include,
		Exclude:      m.Exclude,
		Dependencies: m.Dependencies,
		Publish:      publish,
		DocsPath:     m.Docs,
	}, nil
}

// WriteVersion rewrites the version field of the package's manifest. The
// manifest is re-read immediately before writing so concurrent edits to
// other fields survive.
func WriteVersion(root string, pkg domain.Package, next *semver.Version) error {
	path := filepath.Join(root, filepath.FromSlash(pkg.Dir), ManifestName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	m.Version = next.String()
	out, err := yaml.Marshal(&m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
