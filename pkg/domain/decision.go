package domain

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ReleaseDecision records that one package needs a release and why.
// Decisions are only ever emitted with a non-None bump; packages without
// direct or transitive changes get no decision at all.
type ReleaseDecision struct {
	Package string

	// Previous is the version currently on disk; Next is strictly greater
	// whenever a decision is emitted.
	Previous *semver.Version
	Next     *semver.Version

	Bump Bump

	// FirstRelease marks a package that has no release marker yet. Its
	// Next equals Previous (the manifest version is released as-is).
	FirstRelease bool

	// Compat is the API compatibility outcome for this release.
	Compat CompatibilityReport

	// Commits are the subjects attributable to this release, oldest first.
	// For purely transitive bumps this holds the synthetic dependency line.
	Commits []string

	// Warnings collects non-fatal problems (e.g. a failed compatibility
	// check) for the final report.
	Warnings []string
}

// TagName returns the release tag for a package version: "v1.2.3" in a
// single-package workspace, "name-v1.2.3" otherwise.
func TagName(pkg string, v *semver.Version, singlePackage bool) string {
	if singlePackage {
		return fmt.Sprintf("v%s", v)
	}
	return fmt.Sprintf("%s-v%s", pkg, v)
}
