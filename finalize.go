package caravel

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aretw0/caravel/pkg/changelog"
	"github.com/aretw0/caravel/pkg/domain"
)

// Released describes one package finalized by a Finalize run.
type Released struct {
	Package string
	Version *semver.Version
	Tag     string
}

// Finalize runs after the release request is merged: it walks the packages
// in dependency order and, for every version that has no release tag yet,
// tags it, pushes the tag, publishes the package and creates the hosting
// platform's release record with that version's changelog section.
//
// Finalize is idempotent: versions that already carry their tag are
// skipped, so an interrupted run can simply be repeated.
func (e *Engine) Finalize(ctx context.Context) ([]Released, error) {
	g, err := e.loadWorkspace()
	if err != nil {
		return nil, err
	}
	single := g.Len() == 1

	var released []Released
	for _, pkg := range g.TopologicalOrder() {
		tag := domain.TagName(pkg.Name, pkg.Version, single)

		marker, ok, err := e.vcs.LastReleaseMarker(ctx, pkg, single)
		if err != nil {
			return released, err
		}
		if ok && marker == tag {
			e.logger.Debug("already released", "package", pkg.Name, "tag", tag)
			continue
		}

		if err := e.vcs.Tag(ctx, tag); err != nil {
			return released, err
		}
		if err := e.vcs.PushTag(ctx, tag); err != nil {
			return released, err
		}

		if pkg.Publish && e.registry != nil {
			if err := e.registry.Publish(ctx, pkg); err != nil {
				return released, fmt.Errorf("publishing %s v%s: %w", pkg.Name, pkg.Version, err)
			}
		}

		body := e.releaseBody(pkg)
		if err := e.host.CreateRelease(ctx, tag, tag, body); err != nil {
			return released, err
		}

		e.logger.Info("released", "package", pkg.Name, "version", pkg.Version.String(), "tag", tag)
		released = append(released, Released{Package: pkg.Name, Version: pkg.Version, Tag: tag})
	}
	return released, nil
}

// releaseBody extracts the changelog notes for the released version,
// without the version header line. A missing section yields an empty body
// rather than a failure.
func (e *Engine) releaseBody(pkg domain.Package) string {
	override, err := e.cfg.Override(pkg.Name)
	if err != nil {
		return ""
	}
	content, err := changelog.Load(e.changelogPath(pkg, override))
	if err != nil {
		return ""
	}
	section, ok := changelog.SectionFor(content, pkg.Version.String())
	if !ok {
		return ""
	}
	// Drop the "## [version](...) - date" header; the release record
	// already names the version.
	_, notes, found := strings.Cut(section, "\n")
	if !found {
		return ""
	}
	return strings.TrimLeft(notes, "\n")
}
