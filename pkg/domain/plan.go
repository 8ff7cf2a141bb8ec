package domain

// ReleasePlan is the workspace-wide outcome of one planning run. It is
// recomputed fresh every run; the outgoing request is the only persisted
// artifact.
type ReleasePlan struct {
	// Decisions are ordered dependencies-first.
	Decisions []ReleaseDecision

	// Changelogs maps package names to their new sections. A package with
	// a decision but no section already had the version recorded.
	Changelogs map[string]ChangelogSection

	Title  string
	Body   string
	Labels []string
}

// OutgoingRequest mirrors the hosting platform's change request. The
// platform owns it; the engine reads and conditionally overwrites it.
type OutgoingRequest struct {
	Number  int
	Branch  string
	Title   string
	Body    string
	Labels  []string
	HTMLURL string
	Open    bool
}
