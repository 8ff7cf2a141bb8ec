// Package detect decides, per package, whether anything releasable changed
// since the package's last release marker, and collects the commit subjects
// attributable to it.
package detect

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/ports"
)

// Detector computes ChangeSet entries from version-control history and the
// working tree.
type Detector struct {
	vcs    ports.VersionControl
	root   string
	single bool
	logger *slog.Logger
}

// New creates a detector rooted at the workspace checkout. single marks a
// single-package workspace, which changes release tag naming.
func New(vcs ports.VersionControl, root string, single bool, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{vcs: vcs, root: root, single: single, logger: logger}
}

// Detect determines whether pkg changed since its last release marker.
//
// A package with no marker has never been released and is always reported
// as changed, with its whole history attributed to it. Otherwise the files
// touched since the marker are filtered down to those belonging to the
// package, and the package is changed iff any survive.
func (d *Detector) Detect(ctx context.Context, pkg domain.Package) (domain.PackageChanges, error) {
	marker, released, err := d.vcs.LastReleaseMarker(ctx, pkg, d.single)
	if err != nil {
		return domain.PackageChanges{}, err
	}

	since := ""
	if released {
		since = marker
	}
	commits, err := d.vcs.CommitSubjects(ctx, since, pkg.Dir)
	if err != nil {
		return domain.PackageChanges{}, err
	}

	if !released {
		return domain.PackageChanges{Changed: true, Commits: commits}, nil
	}

	paths, err := d.vcs.ChangedPaths(ctx, marker)
	if err != nil {
		return domain.PackageChanges{}, err
	}

	changed := false
	for _, p := range paths {
		ok, err := d.belongsTo(pkg, p)
		if err != nil {
			// Unreadable metadata for one path never sinks the whole
			// detection pass.
			d.logger.Warn("skipping unreadable path", "package", pkg.Name, "path", p, "err", err)
			continue
		}
		if ok {
			changed = true
			break
		}
	}

	return domain.PackageChanges{Changed: changed, Commits: commits, Marker: marker}, nil
}

// belongsTo reports whether the repository-relative path p is part of the
// package: either its (symlink-resolved) target lies under the package root
// and survives the include/exclude globs, or it matches the declared docs
// path.
func (d *Detector) belongsTo(pkg domain.Package, p string) (bool, error) {
	resolved, err := d.resolve(p)
	if err != nil {
		return false, &domain.DetectionError{Package: pkg.Name, Path: p, Err: err}
	}

	if docs, ok := d.docsTarget(pkg); ok && (docs == resolved || docs == p) {
		return true, nil
	}

	rel, ok := underDir(pkg.Dir, resolved)
	if !ok {
		return false, nil
	}
	return matchGlobs(pkg, rel), nil
}

// resolve follows one level of symlink indirection. Paths that no longer
// exist in the working tree (deletions) are kept as-is: the deletion itself
// is the change.
func (d *Detector) resolve(p string) (string, error) {
	abs := filepath.Join(d.root, filepath.FromSlash(p))
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return p, nil
	}
	target, err := os.Readlink(abs)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(abs), target)
	}
	rel, err := filepath.Rel(d.root, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Symlink points outside the workspace; treat it as its own path.
		return p, nil
	}
	return filepath.ToSlash(rel), nil
}

// docsTarget resolves the declared auxiliary docs file to a
// repository-relative path. A docs path that cannot be resolved to anything
// real is logged and treated as a non-match.
func (d *Detector) docsTarget(pkg domain.Package) (string, bool) {
	if pkg.DocsPath == "" {
		return "", false
	}
	docs := filepath.Join(d.root, filepath.FromSlash(pkg.Dir), filepath.FromSlash(pkg.DocsPath))
	docs, err := filepath.EvalSymlinks(docs)
	if err != nil {
		d.logger.Warn("cannot resolve docs path, ignoring",
			"package", pkg.Name, "docs", pkg.DocsPath, "err", err)
		return "", false
	}
	rel, err := filepath.Rel(d.root, docs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// underDir returns p relative to dir when p lies under it.
func underDir(dir, p string) (string, bool) {
	if dir == "." || dir == "" {
		return p, true
	}
	prefix := dir + "/"
	if p == dir {
		return ".", true
	}
	if strings.HasPrefix(p, prefix) {
		return p[len(prefix):], true
	}
	return "", false
}

// matchGlobs applies the manifest's include/exclude rules to a path
// relative to the package root. No include patterns means everything is
// included.
func matchGlobs(pkg domain.Package, rel string) bool {
	included := len(pkg.Include) == 0
	for _, pat := range pkg.Include {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pat := range pkg.Exclude {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return false
		}
	}
	return true
}
