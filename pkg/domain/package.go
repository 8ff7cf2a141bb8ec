package domain

import "github.com/Masterminds/semver/v3"

// Package is one releasable unit of the workspace, as declared by its
// manifest. It is immutable for the duration of a run.
type Package struct {
	// Name uniquely identifies the package within the workspace.
	Name string

	// Version is the version currently recorded in the manifest on disk.
	Version *semver.Version

	// Dir is the package root, relative to the workspace root.
	Dir string

	// Include and Exclude are glob patterns (relative to Dir) that narrow
	// which files belong to the package. An empty Include means all files.
	Include []string
	Exclude []string

	// Dependencies are names of other workspace packages this one depends on.
	Dependencies []string

	// Publish marks the package as eligible for registry publication.
	Publish bool

	// DocsPath optionally names an auxiliary file (e.g. a README) that
	// belongs to the package even when it lives outside Dir. It may point
	// at nothing; detection treats an unresolvable path as a non-match.
	DocsPath string
}

// PackageChanges is the per-package slice of a ChangeSet.
type PackageChanges struct {
	// Changed reports whether any file belonging to the package changed
	// since its last release marker.
	Changed bool

	// Commits holds the attributable commit subjects, oldest first.
	Commits []string

	// Marker is the release marker (tag) the changes were computed against.
	// Empty when the package has never been released.
	Marker string
}

// ChangeSet maps package names to their detected changes.
type ChangeSet map[string]PackageChanges
