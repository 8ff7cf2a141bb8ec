package domain

// CompatStatus is the outcome of comparing a package's working tree against
// its last published version.
type CompatStatus int

const (
	// CompatNotChecked means no comparison ran (tool missing, first
	// release, or the check failed).
	CompatNotChecked CompatStatus = iota
	CompatCompatible
	CompatBreaking
)

func (s CompatStatus) String() string {
	switch s {
	case CompatCompatible:
		return "compatible"
	case CompatBreaking:
		return "breaking"
	default:
		return "not-checked"
	}
}

// CompatibilityReport carries the status plus the tool's diagnostic text,
// attributable to one package.
type CompatibilityReport struct {
	Status CompatStatus

	// Detail is the human-readable report, present for breaking changes.
	Detail string
}
