// Package git implements the VersionControl port by shelling out to the
// git binary, one short-lived process per operation.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/ports"
)

// Client runs git commands against one repository checkout.
type Client struct {
	dir string
}

var _ ports.VersionControl = (*Client)(nil)

// New creates a client for the repository at dir.
func New(dir string) *Client {
	return &Client{dir: dir}
}

// run executes git with the repository as working directory. Callers bound
// execution time through ctx; a timeout surfaces as a collaborator failure.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", c.dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &domain.VersionControlError{
			Op:  args[0],
			Err: fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), err),
		}
	}
	return string(out), nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ChangedPaths lists paths touched between since and HEAD.
func (c *Client) ChangedPaths(ctx context.Context, since string) ([]string, error) {
	out, err := c.run(ctx, "diff", "--name-only", since+"..HEAD")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// CommitSubjects lists subjects between since and HEAD touching path,
// oldest first. git log emits newest first, so the result is reversed
// before returning for stable changelog ordering.
func (c *Client) CommitSubjects(ctx context.Context, since, path string) ([]string, error) {
	args := []string{"log", "--format=%s"}
	if since != "" {
		args = append(args, since+"..HEAD")
	}
	if path != "" && path != "." {
		args = append(args, "--", path)
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	subjects := splitLines(out)
	for i, j := 0, len(subjects)-1; i < j; i, j = i+1, j-1 {
		subjects[i], subjects[j] = subjects[j], subjects[i]
	}
	return subjects, nil
}

// LastReleaseMarker finds the highest release tag for the package under the
// workspace tag naming scheme ("v1.2.3", or "name-v1.2.3" in multi-package
// workspaces).
func (c *Client) LastReleaseMarker(ctx context.Context, pkg domain.Package, singlePackage bool) (string, bool, error) {
	prefix := pkg.Name + "-v"
	if singlePackage {
		prefix = "v"
	}
	out, err := c.run(ctx, "tag", "--list", prefix+"*")
	if err != nil {
		return "", false, err
	}

	type tagged struct {
		tag string
		ver *semver.Version
	}
	var tags []tagged
	for _, tag := range splitLines(out) {
		v, err := semver.StrictNewVersion(strings.TrimPrefix(tag, prefix))
		if err != nil {
			// Not a release tag of ours (e.g. "v2-beta-notes"); skip it.
			continue
		}
		tags = append(tags, tagged{tag, v})
	}
	if len(tags) == 0 {
		return "", false, nil
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ver.LessThan(tags[j].ver) })
	return tags[len(tags)-1].tag, true, nil
}

// IsClean reports whether the working tree is free of uncommitted changes,
// including untracked files.
func (c *Client) IsClean(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CreateBranch creates or resets the branch at HEAD and switches to it.
// Release branches are engine-owned, so resetting is always safe.
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	_, err := c.run(ctx, "checkout", "-B", name)
	return err
}

func (c *Client) Checkout(ctx context.Context, ref string) error {
	_, err := c.run(ctx, "checkout", ref)
	return err
}

// CommitAll stages everything and commits. An empty diff is an error from
// git; callers only commit after writing files.
func (c *Client) CommitAll(ctx context.Context, message string) error {
	if _, err := c.run(ctx, "add", "-A"); err != nil {
		return err
	}
	_, err := c.run(ctx, "commit", "-m", message)
	return err
}

func (c *Client) Push(ctx context.Context, branch string) error {
	_, err := c.run(ctx, "push", "--force", "origin", branch)
	return err
}

func (c *Client) Tag(ctx context.Context, name string) error {
	_, err := c.run(ctx, "tag", "-a", name, "-m", name)
	return err
}

func (c *Client) PushTag(ctx context.Context, name string) error {
	_, err := c.run(ctx, "push", "origin", "refs/tags/"+name)
	return err
}
