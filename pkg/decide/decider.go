// Package decide turns a change set into per-package release decisions,
// propagating bumps through the dependency graph.
package decide

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/graph"
)

// Options tunes decision making.
type Options struct {
	// FeaturesAlwaysIncrementMinor forces feat-tagged commits to bump the
	// minor component even for pre-1.0 versions, where they would
	// otherwise only bump the patch level.
	FeaturesAlwaysIncrementMinor bool
}

// CompatibilityLookup resolves the API compatibility report for a directly
// changed package. A lookup error degrades the report to not-checked and is
// surfaced as a warning on the decision; it never upgrades the bump and
// never fails the run.
type CompatibilityLookup func(ctx context.Context, pkg domain.Package, previous *semver.Version, previousRef string) (domain.CompatibilityReport, error)

// Decide walks the graph in topological order and emits one decision per
// package that needs a release. Packages with neither direct changes nor
// bumped dependencies are skipped entirely.
func Decide(ctx context.Context, g *graph.Graph, changes domain.ChangeSet, lookup CompatibilityLookup, opts Options) ([]domain.ReleaseDecision, error) {
	bumped := make(map[string]bool, g.Len())
	decisions := make([]domain.ReleaseDecision, 0, g.Len())

	for _, pkg := range g.TopologicalOrder() {
		ch := changes[pkg.Name]
		dec := domain.ReleaseDecision{
			Package:      pkg.Name,
			Previous:     pkg.Version,
			FirstRelease: ch.Marker == "" && ch.Changed,
		}

		if ch.Changed {
			dec.Bump = classify(ch.Commits, pkg.Version, opts)
			dec.Commits = ch.Commits

			if !dec.FirstRelease && lookup != nil {
				report, err := lookup(ctx, pkg, pkg.Version, ch.Marker)
				if err != nil {
					dec.Compat = domain.CompatibilityReport{Status: domain.CompatNotChecked}
					dec.Warnings = append(dec.Warnings,
						(&domain.CompatibilityCheckError{Package: pkg.Name, Err: err}).Error())
				} else {
					dec.Compat = report
					if report.Status == domain.CompatBreaking {
						dec.Bump = dec.Bump.Max(domain.BumpMajor)
					}
				}
			}
		}

		// Any bump to a dependency forces at least a patch release of the
		// dependent, so the rebuilt package picks up the new version.
		var bumpedDeps []string
		for _, dep := range g.DependenciesOf(pkg.Name) {
			if bumped[dep] {
				bumpedDeps = append(bumpedDeps, dep)
			}
		}
		if len(bumpedDeps) > 0 {
			dec.Bump = dec.Bump.Max(domain.BumpPatch)
			if !ch.Changed {
				dec.Commits = []string{
					fmt.Sprintf("updated the following local packages: %s", strings.Join(bumpedDeps, ", ")),
				}
			}
		}

		if dec.Bump == domain.BumpNone {
			continue
		}
		bumped[pkg.Name] = true

		if dec.FirstRelease {
			// The manifest version is released as-is on the first run.
			dec.Next = pkg.Version
		} else {
			dec.Next = domain.NextVersion(pkg.Version, dec.Bump)
		}
		decisions = append(decisions, dec)
	}

	return decisions, nil
}

// classify derives the bump from the attributable commits. The most
// significant conventional tag present wins: any feat commit means Minor,
// otherwise Patch. Pre-1.0 versions downgrade feat to Patch unless the
// features_always_increment_minor option is set.
func classify(commits []string, prev *semver.Version, opts Options) domain.Bump {
	hasFeature := false
	for _, subject := range commits {
		if typ, _, ok := ParseConventional(subject); ok && typ == "feat" {
			hasFeature = true
			break
		}
	}
	if !hasFeature {
		return domain.BumpPatch
	}
	if prev.Major() == 0 && !opts.FeaturesAlwaysIncrementMinor {
		return domain.BumpPatch
	}
	return domain.BumpMinor
}

// ParseConventional splits a conventional commit subject into its type and
// description. It accepts "type: desc", "type(scope): desc" and the
// breaking "!" marker; anything else reports ok=false.
func ParseConventional(subject string) (typ, desc string, ok bool) {
	head, tail, found := strings.Cut(subject, ":")
	if !found {
		return "", "", false
	}
	head = strings.TrimSuffix(strings.TrimSpace(head), "!")
	if i := strings.IndexByte(head, '('); i >= 0 {
		if !strings.HasSuffix(head, ")") {
			return "", "", false
		}
		head = head[:i]
	}
	if head == "" || strings.ContainsAny(head, " \t") {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(tail), true
}
