package ports

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/aretw0/caravel/pkg/domain"
)

// RegistryClient answers publication questions against the package registry.
type RegistryClient interface {
	// IsPublished reports whether the exact version of the package is
	// already available in the registry.
	IsPublished(ctx context.Context, pkg string, v *semver.Version) (bool, error)

	// Publish uploads the package at its current manifest version.
	Publish(ctx context.Context, pkg domain.Package) error
}
