package domain

import (
	"github.com/Masterminds/semver/v3"
)

// Bump is the significance of a version change, ordered so that the
// "never downgrade" rule is a plain comparison.
type Bump int

const (
	BumpNone Bump = iota
	BumpPatch
	BumpMinor
	BumpMajor
)

// Max returns the more significant of the two bumps.
func (b Bump) Max(other Bump) Bump {
	if other > b {
		return other
	}
	return b
}

func (b Bump) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	default:
		return "none"
	}
}

// NextVersion computes the version that follows prev under the given bump.
//
// A Major bump on a pre-1.0 version increments the minor component instead,
// matching semver's convention that 0.x minor releases may break. Minor and
// Patch bumps reset the lower components to zero. BumpNone returns prev
// unchanged.
func NextVersion(prev *semver.Version, b Bump) *semver.Version {
	switch b {
	case BumpMajor:
		if prev.Major() == 0 {
			v := prev.IncMinor()
			return &v
		}
		v := prev.IncMajor()
		return &v
	case BumpMinor:
		v := prev.IncMinor()
		return &v
	case BumpPatch:
		v := prev.IncPatch()
		return &v
	default:
		return prev
	}
}
