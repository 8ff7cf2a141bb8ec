// Package apidiff implements the CompatibilityChecker port by running an
// external API-diff tool over the previous release and the working tree.
package apidiff

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/ports"
)

// DefaultTool is the binary looked up on PATH when none is configured.
const DefaultTool = "apidiff"

// Checker materializes the previous release in a temporary git worktree and
// hands both trees to the diff tool.
type Checker struct {
	tool    string
	repoDir string
}

var _ ports.CompatibilityChecker = (*Checker)(nil)

// New creates a checker for the repository at repoDir. tool may be empty to
// use DefaultTool.
func New(repoDir, tool string) *Checker {
	if tool == "" {
		tool = DefaultTool
	}
	return &Checker{tool: tool, repoDir: repoDir}
}

// Available reports whether the diff tool is installed. When it is not,
// the engine simply proceeds without breaking-change detection.
func (c *Checker) Available() bool {
	_, err := exec.LookPath(c.tool)
	return err == nil
}

// Check compares the package at previousRef against the working tree.
// Every failure is wrapped as a *domain.CompatibilityCheckError; callers
// degrade it to a not-checked report.
func (c *Checker) Check(ctx context.Context, pkg domain.Package, previous *semver.Version, previousRef string) (domain.CompatibilityReport, error) {
	fail := func(err error) (domain.CompatibilityReport, error) {
		return domain.CompatibilityReport{Status: domain.CompatNotChecked},
			&domain.CompatibilityCheckError{Package: pkg.Name, Err: err}
	}

	if !c.Available() {
		return fail(fmt.Errorf("%s is not installed", c.tool))
	}

	worktree, err := os.MkdirTemp("", "caravel-apidiff-*")
	if err != nil {
		return fail(err)
	}
	defer os.RemoveAll(worktree)

	// Worktree creation mutates repository state under .git; callers must
	// not run checks concurrently with each other or with other mutations.
	add := exec.CommandContext(ctx, "git", "-C", c.repoDir, "worktree", "add", "--detach", worktree, previousRef)
	if out, err := add.CombinedOutput(); err != nil {
		return fail(fmt.Errorf("worktree add %s: %s: %w", previousRef, strings.TrimSpace(string(out)), err))
	}
	defer func() {
		remove := exec.Command("git", "-C", c.repoDir, "worktree", "remove", "--force", worktree)
		_ = remove.Run()
	}()

	oldDir := filepath.Join(worktree, filepath.FromSlash(pkg.Dir))
	newDir := filepath.Join(c.repoDir, filepath.FromSlash(pkg.Dir))
	cmd := exec.CommandContext(ctx, c.tool, oldDir, newDir)
	out, err := cmd.CombinedOutput()
	report := strings.TrimSpace(string(out))
	if err != nil {
		if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() == 1 {
			// Exit 1 is the tool's "incompatible" verdict, not a failure.
			return domain.CompatibilityReport{
				Status: domain.CompatBreaking,
				Detail: report,
			}, nil
		}
		return fail(fmt.Errorf("%s: %s: %w", c.tool, report, err))
	}

	if strings.Contains(report, "incompatible") {
		return domain.CompatibilityReport{Status: domain.CompatBreaking, Detail: report}, nil
	}
	return domain.CompatibilityReport{Status: domain.CompatCompatible, Detail: report}, nil
}
