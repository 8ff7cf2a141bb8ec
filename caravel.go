package caravel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/caravel/pkg/changelog"
	"github.com/aretw0/caravel/pkg/config"
	"github.com/aretw0/caravel/pkg/decide"
	"github.com/aretw0/caravel/pkg/detect"
	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/graph"
	"github.com/aretw0/caravel/pkg/planner"
	"github.com/aretw0/caravel/pkg/ports"
	"github.com/aretw0/caravel/pkg/workspace"
)

// Engine is the high-level entry point for the Caravel library. It wires
// the workspace, the collaborator ports and the planning pipeline behind a
// simplified API for the CLI and for embedders.
type Engine struct {
	root     string
	cfg      *config.Config
	vcs      ports.VersionControl
	host     ports.HostingClient
	registry ports.RegistryClient
	compat   ports.CompatibilityChecker
	logger   *slog.Logger
	now      func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithVersionControl injects the version-control collaborator.
func WithVersionControl(vcs ports.VersionControl) Option {
	return func(e *Engine) { e.vcs = vcs }
}

// WithHosting injects the hosting-platform collaborator.
func WithHosting(host ports.HostingClient) Option {
	return func(e *Engine) { e.host = host }
}

// WithRegistry injects the package-registry collaborator. It may be left
// nil; only the already-published changelog guard and publishing use it.
func WithRegistry(registry ports.RegistryClient) Option {
	return func(e *Engine) { e.registry = registry }
}

// WithCompatibilityChecker injects the API-breakage detector. It may be
// left nil or unavailable; decisions then carry not-checked reports.
func WithCompatibilityChecker(checker ports.CompatibilityChecker) Option {
	return func(e *Engine) { e.compat = checker }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithClock overrides the engine's notion of now; tests pin dates with it.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New initializes an Engine over the workspace checkout at root.
func New(root string, cfg *config.Config, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace root: %w", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.ApplyDefaults()
	eng := &Engine{
		root: abs,
		cfg:  cfg,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.vcs == nil {
		return nil, fmt.Errorf("a version-control collaborator is required")
	}
	if eng.host == nil {
		return nil, fmt.Errorf("a hosting collaborator is required")
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return eng, nil
}

// PlanResult is the outcome of one planning run.
type PlanResult struct {
	Plan       *domain.ReleasePlan
	Action     planner.Action
	BaseBranch string

	// Warnings aggregates the non-fatal problems of all decisions.
	Warnings []string

	single bool
}

// Plan builds the dependency graph, detects changes, decides versions,
// renders changelogs and reconciles against the currently open release
// request. It performs no writes; Apply materializes the result.
func (e *Engine) Plan(ctx context.Context) (*PlanResult, error) {
	g, err := e.loadWorkspace()
	if err != nil {
		return nil, err
	}
	single := g.Len() == 1

	base, err := e.vcs.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}

	changes, err := e.detectChanges(ctx, g, single)
	if err != nil {
		return nil, err
	}

	lookup := e.compatibilityLookup(ctx, g, changes)
	decisions, err := decide.Decide(ctx, g, changes, lookup, decide.Options{
		FeaturesAlwaysIncrementMinor: e.cfg.FeaturesAlwaysIncrementMinor,
	})
	if err != nil {
		return nil, err
	}

	sections, err := e.buildChangelogs(ctx, g, decisions, single)
	if err != nil {
		return nil, err
	}

	pl := planner.New(
		planner.Templates{Title: e.cfg.PRName, Body: e.cfg.PRBody},
		e.cfg.PRLabels,
		e.cfg.BranchPrefix,
		e.now,
	)
	plan, err := pl.Plan(decisions, sections)
	if err != nil {
		return nil, err
	}

	result := &PlanResult{Plan: plan, BaseBranch: base, single: single}
	for _, d := range decisions {
		result.Warnings = append(result.Warnings, d.Warnings...)
	}
	for _, w := range result.Warnings {
		e.logger.Warn(w)
	}

	if !materializes(plan) {
		// Nothing would change on disk: every planned version is already
		// recorded. Opening or touching a request would only churn.
		result.Action = planner.Action{Kind: planner.ActionNoOp}
		return result, nil
	}

	// Re-read the open request immediately before deciding; it is an
	// externally-owned resource and may have changed since the last run.
	existing, err := e.host.FindOpenReleaseRequest(ctx, e.cfg.BranchPrefix)
	if err != nil {
		return nil, err
	}
	result.Action = pl.Reconcile(plan, existing)
	return result, nil
}

// materializes reports whether applying the plan would change any file:
// a new changelog section, or a version rewrite.
func materializes(plan *domain.ReleasePlan) bool {
	if len(plan.Decisions) == 0 {
		return false
	}
	for _, d := range plan.Decisions {
		if _, ok := plan.Changelogs[d.Package]; ok {
			return true
		}
		if !d.Next.Equal(d.Previous) {
			return true
		}
	}
	return false
}

// Apply materializes a computed plan: it writes changelogs and manifest
// versions on the release branch, pushes it, and creates or updates the
// outgoing request. A no-op result applies to nothing.
func (e *Engine) Apply(ctx context.Context, result *PlanResult) (*domain.OutgoingRequest, error) {
	if result.Action.Kind == planner.ActionNoOp {
		return nil, nil
	}
	req := result.Action.Request

	// The release commit stages everything, so any stray edit in the
	// working tree would be swept into it and force-pushed.
	clean, err := e.vcs.IsClean(ctx)
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, fmt.Errorf("working tree has uncommitted changes; commit or stash them before releasing")
	}

	// Labels are validated by the planner; here they only need to exist.
	if len(req.Labels) > 0 {
		if err := e.host.EnsureLabelsExist(ctx, req.Labels); err != nil {
			return nil, err
		}
	}

	if err := e.vcs.CreateBranch(ctx, req.Branch); err != nil {
		return nil, err
	}
	restore := func() {
		if err := e.vcs.Checkout(context.WithoutCancel(ctx), result.BaseBranch); err != nil {
			e.logger.Error("failed to restore base branch", "branch", result.BaseBranch, "err", err)
		}
	}
	defer restore()

	if err := e.writeFiles(result.Plan); err != nil {
		return nil, err
	}
	if err := e.vcs.CommitAll(ctx, result.Plan.Title); err != nil {
		return nil, err
	}
	if err := e.vcs.Push(ctx, req.Branch); err != nil {
		return nil, err
	}

	switch result.Action.Kind {
	case planner.ActionCreate:
		created, err := e.host.CreateRequest(ctx, req.Title, req.Body, req.Branch, req.Labels)
		if err != nil {
			return nil, err
		}
		e.logger.Info("release request opened", "number", created.Number, "branch", created.Branch)
		return created, nil
	default: // planner.ActionUpdate
		if err := e.host.UpdateRequest(ctx, req.Number, req.Title, req.Body, req.Labels); err != nil {
			return nil, err
		}
		e.logger.Info("release request updated", "number", req.Number, "branch", req.Branch)
		updated := req
		return &updated, nil
	}
}

// WriteLocal applies the plan's file changes directly to the working tree
// without branching, committing or touching the hosting platform.
func (e *Engine) WriteLocal(result *PlanResult) error {
	if len(result.Plan.Decisions) == 0 {
		return nil
	}
	return e.writeFiles(result.Plan)
}

func (e *Engine) writeFiles(plan *domain.ReleasePlan) error {
	for _, d := range plan.Decisions {
		pkg, override, err := e.packageFor(d.Package)
		if err != nil {
			return err
		}
		if sec, ok := plan.Changelogs[d.Package]; ok && !override.SkipChangelog {
			path := e.changelogPath(pkg, override)
			content, err := changelog.Load(path)
			if err != nil {
				return err
			}
			if err := changelog.Write(path, changelog.Insert(content, sec)); err != nil {
				return err
			}
		}
		if !d.Next.Equal(d.Previous) {
			if err := workspace.WriteVersion(e.root, pkg, d.Next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) changelogPath(pkg domain.Package, override config.PackageOverride) string {
	name := changelog.FileName
	if override.ChangelogPath != "" {
		name = filepath.FromSlash(override.ChangelogPath)
	}
	return filepath.Join(e.root, filepath.FromSlash(pkg.Dir), name)
}

// loadWorkspace discovers packages, applies config overrides and builds
// the dependency graph.
func (e *Engine) loadWorkspace() (*graph.Graph, error) {
	pkgs, err := workspace.Discover(e.root)
	if err != nil {
		return nil, err
	}
	for i := range pkgs {
		override, err := e.cfg.Override(pkgs[i].Name)
		if err != nil {
			return nil, err
		}
		if override.Publish != nil {
			pkgs[i].Publish = *override.Publish
		}
	}
	return graph.Build(pkgs)
}

func (e *Engine) packageFor(name string) (domain.Package, config.PackageOverride, error) {
	pkgs, err := workspace.Discover(e.root)
	if err != nil {
		return domain.Package{}, config.PackageOverride{}, err
	}
	for _, p := range pkgs {
		if p.Name == name {
			override, err := e.cfg.Override(name)
			return p, override, err
		}
	}
	return domain.Package{}, config.PackageOverride{}, fmt.Errorf("package %q disappeared from workspace", name)
}

// detectChanges runs change detection package by package. Detection only
// reads git state, but it shares one process-wide working tree, so it stays
// sequential and ordered.
func (e *Engine) detectChanges(ctx context.Context, g *graph.Graph, single bool) (domain.ChangeSet, error) {
	detector := detect.New(e.vcs, e.root, single, e.logger)
	changes := make(domain.ChangeSet, g.Len())
	for _, pkg := range g.TopologicalOrder() {
		ch, err := detector.Detect(ctx, pkg)
		if err != nil {
			return nil, fmt.Errorf("detecting changes for %s: %w", pkg.Name, err)
		}
		changes[pkg.Name] = ch
	}
	return changes, nil
}

// compatibilityLookup prefetches compatibility reports for the directly
// changed packages and returns a lookup over the collected results. Each
// check materializes a temporary git worktree, which mutates repository
// state, so the checks run strictly one at a time in dependency order.
// Failures are recorded per package and degrade to not-checked at decision
// time; they never abort the prefetch.
func (e *Engine) compatibilityLookup(ctx context.Context, g *graph.Graph, changes domain.ChangeSet) decide.CompatibilityLookup {
	if e.compat == nil || !e.compat.Available() {
		return nil
	}

	type outcome struct {
		report domain.CompatibilityReport
		err    error
	}
	results := make(map[string]outcome)
	for _, pkg := range g.TopologicalOrder() {
		ch := changes[pkg.Name]
		if !ch.Changed || ch.Marker == "" {
			continue
		}
		report, err := e.compat.Check(ctx, pkg, pkg.Version, ch.Marker)
		results[pkg.Name] = outcome{report, err}
	}

	return func(ctx context.Context, pkg domain.Package, previous *semver.Version, previousRef string) (domain.CompatibilityReport, error) {
		out, ok := results[pkg.Name]
		if !ok {
			return domain.CompatibilityReport{Status: domain.CompatNotChecked}, nil
		}
		return out.report, out.err
	}
}

// buildChangelogs renders sections for every decision, in parallel: the
// renders are read-only and independent across packages. Results land in a
// map, so dependency order is reimposed by the callers iterating decisions.
func (e *Engine) buildChangelogs(ctx context.Context, g *graph.Graph, decisions []domain.ReleaseDecision, single bool) (map[string]domain.ChangelogSection, error) {
	builder := changelog.New(e.host, e.registry, single, e.now)

	var mu sync.Mutex
	sections := make(map[string]domain.ChangelogSection, len(decisions))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.cfg.Concurrency)
	for _, dec := range decisions {
		grp.Go(func() error {
			pkg, ok := g.Package(dec.Package)
			if !ok {
				return fmt.Errorf("package %q disappeared from workspace", dec.Package)
			}
			override, err := e.cfg.Override(dec.Package)
			if err != nil {
				return err
			}
			if override.SkipChangelog {
				return nil
			}
			existing, err := changelog.Load(e.changelogPath(pkg, override))
			if err != nil {
				return err
			}
			sec, err := builder.Build(gctx, dec, existing)
			if err != nil || sec == nil {
				return err
			}
			mu.Lock()
			sections[dec.Package] = *sec
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return sections, nil
}
