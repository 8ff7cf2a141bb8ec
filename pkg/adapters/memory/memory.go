// Package memory provides in-memory implementations of the collaborator
// ports. Tests and embedders script them instead of standing up a real
// repository, forge or registry.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/ports"
)

// VCS is a scriptable VersionControl. Populate the exported fields before
// use; mutating calls are recorded so tests can assert on them.
type VCS struct {
	mu sync.Mutex

	// Branch is the current branch name.
	Branch string

	// Tags lists the release tags that exist.
	Tags []string

	// Changed maps a since-ref to the repository-relative paths touched
	// after it.
	Changed map[string][]string

	// History maps a package dir to its attributable commit subjects,
	// oldest first. The empty key covers whole-tree queries.
	History map[string][]string

	// Dirty marks the working tree as holding uncommitted changes.
	Dirty bool

	// Recorded mutations.
	CreatedBranches []string
	Checkouts       []string
	Commits         []string
	Pushes          []string
	CreatedTags     []string
	PushedTags      []string
}

var _ ports.VersionControl = (*VCS)(nil)

func (v *VCS) ChangedPaths(ctx context.Context, since string) ([]string, error) {
	return v.Changed[since], nil
}

func (v *VCS) CommitSubjects(ctx context.Context, since, path string) ([]string, error) {
	return v.History[path], nil
}

// LastReleaseMarker mirrors the tag naming convention of the git adapter:
// it picks the highest semver tag carrying the package's prefix.
func (v *VCS) LastReleaseMarker(ctx context.Context, pkg domain.Package, singlePackage bool) (string, bool, error) {
	prefix := pkg.Name + "-v"
	if singlePackage {
		prefix = "v"
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	var best *semver.Version
	bestTag := ""
	for _, tag := range append(append([]string(nil), v.Tags...), v.CreatedTags...) {
		if !strings.HasPrefix(tag, prefix) {
			continue
		}
		ver, err := semver.StrictNewVersion(strings.TrimPrefix(tag, prefix))
		if err != nil {
			continue
		}
		if best == nil || ver.GreaterThan(best) {
			best = ver
			bestTag = tag
		}
	}
	return bestTag, bestTag != "", nil
}

func (v *VCS) CurrentBranch(ctx context.Context) (string, error) {
	return v.Branch, nil
}

func (v *VCS) IsClean(ctx context.Context) (bool, error) {
	return !v.Dirty, nil
}

func (v *VCS) CreateBranch(ctx context.Context, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.CreatedBranches = append(v.CreatedBranches, name)
	return nil
}

func (v *VCS) Checkout(ctx context.Context, ref string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Checkouts = append(v.Checkouts, ref)
	return nil
}

func (v *VCS) CommitAll(ctx context.Context, message string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Commits = append(v.Commits, message)
	return nil
}

func (v *VCS) Push(ctx context.Context, branch string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Pushes = append(v.Pushes, branch)
	return nil
}

func (v *VCS) Tag(ctx context.Context, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.CreatedTags = append(v.CreatedTags, name)
	return nil
}

func (v *VCS) PushTag(ctx context.Context, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.PushedTags = append(v.PushedTags, name)
	return nil
}

// Release is one release record created through the Host.
type Release struct {
	Tag  string
	Name string
	Body string
}

// Host is an in-memory HostingClient backed by a slice of requests.
type Host struct {
	mu sync.Mutex

	// BaseURL feeds the compare and tag links.
	BaseURL string

	Requests []domain.OutgoingRequest
	Labels   []string
	Releases []Release

	// RejectLabel, when set, makes EnsureLabelsExist fail for that label.
	RejectLabel string

	nextNumber int
}

var _ ports.HostingClient = (*Host)(nil)

func (h *Host) FindOpenReleaseRequest(ctx context.Context, branchPrefix string) (*domain.OutgoingRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.Requests {
		r := h.Requests[i]
		if r.Open && strings.HasPrefix(r.Branch, branchPrefix) {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (h *Host) CreateRequest(ctx context.Context, title, body, branch string, labels []string) (*domain.OutgoingRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextNumber++
	req := domain.OutgoingRequest{
		Number:  h.nextNumber,
		Branch:  branch,
		Title:   title,
		Body:    body,
		Labels:  append([]string(nil), labels...),
		HTMLURL: fmt.Sprintf("%s/pulls/%d", h.BaseURL, h.nextNumber),
		Open:    true,
	}
	h.Requests = append(h.Requests, req)
	out := req
	return &out, nil
}

func (h *Host) UpdateRequest(ctx context.Context, number int, title, body string, labels []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.Requests {
		if h.Requests[i].Number == number {
			h.Requests[i].Title = title
			h.Requests[i].Body = body
			h.Requests[i].Labels = append([]string(nil), labels...)
			return nil
		}
	}
	return fmt.Errorf("no request #%d", number)
}

func (h *Host) EnsureLabelsExist(ctx context.Context, names []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	have := make(map[string]bool, len(h.Labels))
	for _, l := range h.Labels {
		have[l] = true
	}
	for _, name := range names {
		if have[name] {
			continue
		}
		if name == h.RejectLabel {
			return &domain.LabelError{Label: name, Reason: "rejected by host"}
		}
		h.Labels = append(h.Labels, name)
	}
	return nil
}

func (h *Host) CreateRelease(ctx context.Context, tag, name, body string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Releases = append(h.Releases, Release{Tag: tag, Name: name, Body: body})
	return nil
}

func (h *Host) CompareURL(prevTag, nextTag string) string {
	return fmt.Sprintf("%s/compare/%s...%s", h.BaseURL, prevTag, nextTag)
}

func (h *Host) TagURL(tag string) string {
	return fmt.Sprintf("%s/releases/tag/%s", h.BaseURL, tag)
}

// Registry is an in-memory RegistryClient.
type Registry struct {
	mu sync.Mutex

	// Published holds "name@version" keys for already-published versions.
	Published map[string]bool

	// Uploads records Publish calls as "name@version".
	Uploads []string
}

var _ ports.RegistryClient = (*Registry)(nil)

func (r *Registry) IsPublished(ctx context.Context, pkg string, v *semver.Version) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Published[pkg+"@"+v.String()], nil
}

func (r *Registry) Publish(ctx context.Context, pkg domain.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pkg.Name + "@" + pkg.Version.String()
	if r.Published == nil {
		r.Published = make(map[string]bool)
	}
	r.Published[key] = true
	r.Uploads = append(r.Uploads, key)
	return nil
}
