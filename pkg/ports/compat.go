package ports

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/aretw0/caravel/pkg/domain"
)

// CompatibilityChecker compares a package's working tree against its last
// released version and reports API compatibility.
type CompatibilityChecker interface {
	// Available reports whether the underlying tool is installed. When it
	// is not, the engine proceeds without breaking-change upgrades.
	Available() bool

	// Check runs the comparison. Failures surface as
	// *domain.CompatibilityCheckError and degrade to not-checked.
	Check(ctx context.Context, pkg domain.Package, previous *semver.Version, previousRef string) (domain.CompatibilityReport, error)
}
