package ports

import (
	"context"

	"github.com/aretw0/caravel/pkg/domain"
)

// VersionControl is the command layer over the shared working tree. Calls
// that mutate the checkout (CreateBranch, Checkout, CommitAll) must be
// issued sequentially; the engine never runs them concurrently.
type VersionControl interface {
	// ChangedPaths lists the paths touched between since and the current
	// working state, relative to the repository root.
	ChangedPaths(ctx context.Context, since string) ([]string, error)

	// CommitSubjects lists commit subject lines between since and HEAD
	// that touch the given path, oldest first. An empty since means all
	// history; an empty path means the whole tree.
	CommitSubjects(ctx context.Context, since, path string) ([]string, error)

	// LastReleaseMarker finds the most recent release tag for the package,
	// or ok=false if it has never been released.
	LastReleaseMarker(ctx context.Context, pkg domain.Package, singlePackage bool) (ref string, ok bool, err error)

	CurrentBranch(ctx context.Context) (string, error)

	// IsClean reports whether the working tree has no uncommitted changes,
	// untracked files included. Release commits stage everything, so a
	// dirty tree must refuse to release.
	IsClean(ctx context.Context) (bool, error)

	// CreateBranch creates (or resets) the branch at HEAD and switches to it.
	CreateBranch(ctx context.Context, name string) error

	Checkout(ctx context.Context, ref string) error

	// CommitAll stages every change and commits it with the message.
	CommitAll(ctx context.Context, message string) error

	// Push force-pushes the branch; release branches are engine-owned.
	Push(ctx context.Context, branch string) error

	// Tag creates an annotated tag at HEAD.
	Tag(ctx context.Context, name string) error

	// PushTag pushes a single tag to the default remote.
	PushTag(ctx context.Context, name string) error
}
