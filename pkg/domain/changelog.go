package domain

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// ChangelogSection is one rendered release entry for a package.
type ChangelogSection struct {
	Package string
	Version *semver.Version
	Date    time.Time

	// Body is the full markdown block, starting at the "## [version]"
	// header line.
	Body string
}
