// Package changelog renders dated, categorized release sections from
// attributable commits and keeps changelog files idempotent across reruns.
package changelog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/caravel/pkg/decide"
	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/ports"
)

// Builder renders per-package changelog sections.
type Builder struct {
	host     ports.HostingClient
	registry ports.RegistryClient
	single   bool
	now      func() time.Time
}

// New creates a builder. registry may be nil; it is only consulted to skip
// versions that were already published when no local tag marker exists.
func New(host ports.HostingClient, registry ports.RegistryClient, single bool, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{host: host, registry: registry, single: single, now: now}
}

// Build renders the section for one decision. It returns nil when the
// target version is already recorded in the existing changelog, or when a
// package without a local release marker turns out to be published in the
// registry already. Rerunning before a release is finalized must never
// duplicate or corrupt changelog history.
func (b *Builder) Build(ctx context.Context, dec domain.ReleaseDecision, existing string) (*domain.ChangelogSection, error) {
	if HasVersion(existing, dec.Next.String()) {
		return nil, nil
	}
	if dec.FirstRelease && b.registry != nil {
		published, err := b.registry.IsPublished(ctx, dec.Package, dec.Next)
		if err == nil && published {
			return nil, nil
		}
		// A registry error is not worth blocking the changelog for; the
		// version-header check above still guarantees idempotence locally.
	}

	date := b.now().Format("2006-01-02")
	var sb strings.Builder
	fmt.Fprintf(&sb, "## [%s](%s) - %s\n", dec.Next, b.versionURL(dec), date)

	for _, cat := range categorize(dec.Commits) {
		fmt.Fprintf(&sb, "\n### %s\n\n", cat.title)
		for _, line := range cat.entries {
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}

	return &domain.ChangelogSection{
		Package: dec.Package,
		Version: dec.Next,
		Date:    b.now(),
		Body:    strings.TrimRight(sb.String(), "\n"),
	}, nil
}

// versionURL links the version header to the platform's compare page, or
// to the tag page for a first release.
func (b *Builder) versionURL(dec domain.ReleaseDecision) string {
	next := domain.TagName(dec.Package, dec.Next, b.single)
	if dec.FirstRelease {
		return b.host.TagURL(next)
	}
	prev := domain.TagName(dec.Package, dec.Previous, b.single)
	return b.host.CompareURL(prev, next)
}

type category struct {
	title   string
	entries []string
}

// categorize partitions commit subjects by conventional prefix: feat goes
// to Added, fix to Fixed, everything else to Other. Order within a category
// is preserved (oldest first); empty categories are omitted.
func categorize(commits []string) []category {
	var added, fixed, other []string
	for _, subject := range commits {
		typ, desc, ok := decide.ParseConventional(subject)
		switch {
		case ok && typ == "feat":
			added = append(added, desc)
		case ok && typ == "fix":
			fixed = append(fixed, desc)
		default:
			other = append(other, subject)
		}
	}
	var out []category
	if len(added) > 0 {
		out = append(out, category{"Added", added})
	}
	if len(fixed) > 0 {
		out = append(out, category{"Fixed", fixed})
	}
	if len(other) > 0 {
		out = append(out, category{"Other", other})
	}
	return out
}
