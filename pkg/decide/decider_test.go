package decide

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/caravel/pkg/domain"
	"github.com/aretw0/caravel/pkg/graph"
)

func mustGraph(t *testing.T, pkgs ...domain.Package) *graph.Graph {
	t.Helper()
	g, err := graph.Build(pkgs)
	require.NoError(t, err)
	return g
}

func pkg(name, version string, deps ...string) domain.Package {
	return domain.Package{
		Name:         name,
		Version:      semver.MustParse(version),
		Dir:          name,
		Dependencies: deps,
	}
}

func decisionFor(t *testing.T, decisions []domain.ReleaseDecision, name string) domain.ReleaseDecision {
	t.Helper()
	for _, d := range decisions {
		if d.Package == name {
			return d
		}
	}
	t.Fatalf("no decision for %s", name)
	return domain.ReleaseDecision{}
}

func TestDecidePropagatesBreakingChange(t *testing.T) {
	// app -> lib -> util; util breaks its API.
	g := mustGraph(t,
		pkg("app", "2.1.0", "lib"),
		pkg("lib", "1.4.2", "util"),
		pkg("util", "1.0.3"),
	)
	changes := domain.ChangeSet{
		"util": {Changed: true, Commits: []string{"fix: rework internals"}, Marker: "util-v1.0.3"},
	}
	lookup := func(ctx context.Context, p domain.Package, prev *semver.Version, ref string) (domain.CompatibilityReport, error) {
		return domain.CompatibilityReport{Status: domain.CompatBreaking, Detail: "removed Exported"}, nil
	}

	decisions, err := Decide(context.Background(), g, changes, lookup, Options{})
	require.NoError(t, err)
	require.Len(t, decisions, 3)

	util := decisionFor(t, decisions, "util")
	assert.Equal(t, domain.BumpMajor, util.Bump)
	assert.Equal(t, "2.0.0", util.Next.String())
	assert.Equal(t, domain.CompatBreaking, util.Compat.Status)

	lib := decisionFor(t, decisions, "lib")
	assert.Equal(t, domain.BumpPatch, lib.Bump)
	assert.Equal(t, "1.4.3", lib.Next.String())
	assert.Equal(t, []string{"updated the following local packages: util"}, lib.Commits)

	app := decisionFor(t, decisions, "app")
	assert.Equal(t, domain.BumpPatch, app.Bump)
	assert.Equal(t, "2.1.1", app.Next.String())
	assert.Equal(t, []string{"updated the following local packages: lib"}, app.Commits)
}

func TestDecideSkipsUnchangedPackages(t *testing.T) {
	g := mustGraph(t, pkg("a", "1.0.0"), pkg("b", "1.0.0"))
	changes := domain.ChangeSet{
		"a": {Changed: true, Commits: []string{"fix: a thing"}, Marker: "a-v1.0.0"},
		"b": {Changed: false, Marker: "b-v1.0.0"},
	}

	decisions, err := Decide(context.Background(), g, changes, nil, Options{})
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "a", decisions[0].Package)
}

func TestDecideFirstRelease(t *testing.T) {
	g := mustGraph(t, pkg("fresh", "0.1.0"))
	changes := domain.ChangeSet{
		"fresh": {Changed: true, Commits: []string{"feat: initial import"}},
	}

	decisions, err := Decide(context.Background(), g, changes, nil, Options{})
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	dec := decisions[0]
	assert.True(t, dec.FirstRelease)
	assert.Equal(t, "0.1.0", dec.Next.String(), "the manifest version ships as-is")
	assert.True(t, dec.Next.Equal(dec.Previous))
}

func TestDecideFeatureBumps(t *testing.T) {
	tests := []struct {
		name string
		prev string
		opts Options
		want string
	}{
		{"post-1.0 feat bumps minor", "1.2.3", Options{}, "1.3.0"},
		{"pre-1.0 feat bumps patch", "0.2.3", Options{}, "0.2.4"},
		{"pre-1.0 feat with override bumps minor", "0.2.3", Options{FeaturesAlwaysIncrementMinor: true}, "0.3.0"},
		{"fix bumps patch", "1.2.3", Options{}, "1.2.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commit := "feat: add widget"
			if tt.want == "1.2.4" {
				commit = "fix: close leak"
			}
			g := mustGraph(t, pkg("p", tt.prev))
			changes := domain.ChangeSet{
				"p": {Changed: true, Commits: []string{commit}, Marker: "p-v" + tt.prev},
			}
			decisions, err := Decide(context.Background(), g, changes, nil, tt.opts)
			require.NoError(t, err)
			require.Len(t, decisions, 1)
			assert.Equal(t, tt.want, decisions[0].Next.String())
		})
	}
}

func TestDecideLookupFailureDegradesToWarning(t *testing.T) {
	g := mustGraph(t, pkg("p", "1.0.0"))
	changes := domain.ChangeSet{
		"p": {Changed: true, Commits: []string{"fix: x"}, Marker: "p-v1.0.0"},
	}
	lookup := func(ctx context.Context, p domain.Package, prev *semver.Version, ref string) (domain.CompatibilityReport, error) {
		return domain.CompatibilityReport{}, errors.New("tool exploded")
	}

	decisions, err := Decide(context.Background(), g, changes, lookup, Options{})
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	dec := decisions[0]
	assert.Equal(t, domain.CompatNotChecked, dec.Compat.Status)
	assert.Equal(t, domain.BumpPatch, dec.Bump, "a failed check never upgrades the bump")
	require.Len(t, dec.Warnings, 1)
	assert.Contains(t, dec.Warnings[0], "compatibility check for p failed")
}

func TestDecideNeverDowngrades(t *testing.T) {
	// A breaking direct change on a dependent must not be reduced by the
	// patch-level dependency propagation.
	g := mustGraph(t, pkg("lib", "1.0.0"), pkg("app", "1.0.0", "lib"))
	changes := domain.ChangeSet{
		"lib": {Changed: true, Commits: []string{"fix: y"}, Marker: "lib-v1.0.0"},
		"app": {Changed: true, Commits: []string{"feat: z"}, Marker: "app-v1.0.0"},
	}

	decisions, err := Decide(context.Background(), g, changes, nil, Options{})
	require.NoError(t, err)

	app := decisionFor(t, decisions, "app")
	assert.Equal(t, domain.BumpMinor, app.Bump)
	assert.Equal(t, "1.1.0", app.Next.String())
}

func TestDecideAdvancesVersionsAcrossRandomInputs(t *testing.T) {
	// Random workspaces, change sets and compatibility outcomes; whatever
	// the mix, versions only move forward and every directly changed
	// package gets a decision. The seed is fixed for deterministic replay.
	rng := rand.New(rand.NewSource(1337))
	subjects := []string{
		"fix: close leak",
		"feat: add widget",
		"feat!: drop old API",
		"chore: tidy imports",
		"refactor(core): split files",
		"not a conventional subject",
	}

	for i := 0; i < 200; i++ {
		// A three-package chain: app -> lib -> util.
		names := []string{"util", "lib", "app"}
		pkgs := make([]domain.Package, 0, len(names))
		for j, name := range names {
			version := fmt.Sprintf("%d.%d.%d", rng.Intn(3), rng.Intn(10), rng.Intn(10))
			if j == 0 {
				pkgs = append(pkgs, pkg(name, version))
			} else {
				pkgs = append(pkgs, pkg(name, version, names[j-1]))
			}
		}
		g := mustGraph(t, pkgs...)

		changes := make(domain.ChangeSet, len(pkgs))
		changedDirectly := make(map[string]bool, len(pkgs))
		for _, p := range pkgs {
			if rng.Intn(2) == 0 {
				changes[p.Name] = domain.PackageChanges{Marker: p.Name + "-v" + p.Version.String()}
				continue
			}
			commits := make([]string, 1+rng.Intn(3))
			for k := range commits {
				commits[k] = subjects[rng.Intn(len(subjects))]
			}
			marker := p.Name + "-v" + p.Version.String()
			if rng.Intn(5) == 0 {
				marker = "" // never released before
			}
			changes[p.Name] = domain.PackageChanges{Changed: true, Commits: commits, Marker: marker}
			changedDirectly[p.Name] = true
		}

		lookup := func(ctx context.Context, p domain.Package, prev *semver.Version, ref string) (domain.CompatibilityReport, error) {
			switch rng.Intn(4) {
			case 0:
				return domain.CompatibilityReport{Status: domain.CompatBreaking}, nil
			case 1:
				return domain.CompatibilityReport{Status: domain.CompatCompatible}, nil
			case 2:
				return domain.CompatibilityReport{Status: domain.CompatNotChecked}, nil
			default:
				return domain.CompatibilityReport{}, errors.New("tool exploded")
			}
		}

		decisions, err := Decide(context.Background(), g, changes, lookup, Options{
			FeaturesAlwaysIncrementMinor: rng.Intn(2) == 0,
		})
		require.NoError(t, err)

		decided := make(map[string]bool, len(decisions))
		for _, dec := range decisions {
			decided[dec.Package] = true
			step := fmt.Sprintf("iteration %d, package %s: %s after %s", i, dec.Package, dec.Next, dec.Previous)
			if dec.FirstRelease {
				require.True(t, dec.Next.Equal(dec.Previous), step)
			} else {
				require.True(t, dec.Next.GreaterThan(dec.Previous), step)
			}
		}
		for name := range changedDirectly {
			require.True(t, decided[name], "iteration %d: no decision for changed package %s", i, name)
		}
	}
}

func TestParseConventional(t *testing.T) {
	tests := []struct {
		subject string
		typ     string
		desc    string
		ok      bool
	}{
		{"feat: add thing", "feat", "add thing", true},
		{"fix(core): close leak", "fix", "close leak", true},
		{"feat!: drop old API", "feat", "drop old API", true},
		{"FEAT: shouting", "feat", "shouting", true},
		{"plain subject line", "", "", false},
		{"fix(unclosed: scope", "", "", false},
		{"two words: not a type", "", "", false},
		{": empty type", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			typ, desc, ok := ParseConventional(tt.subject)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.desc, desc)
		})
	}
}
