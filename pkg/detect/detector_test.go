package detect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/caravel/internal/logging"
	"github.com/aretw0/caravel/pkg/adapters/memory"
	"github.com/aretw0/caravel/pkg/domain"
)

func pkg(name string) domain.Package {
	return domain.Package{
		Name:    name,
		Version: semver.MustParse("1.0.0"),
		Dir:     name,
	}
}

func TestDetectNeverReleased(t *testing.T) {
	vcs := &memory.VCS{
		History: map[string][]string{
			"fresh": {"feat: initial import", "fix: typo"},
		},
	}
	d := New(vcs, t.TempDir(), false, logging.NewNop())

	ch, err := d.Detect(context.Background(), pkg("fresh"))
	require.NoError(t, err)
	assert.True(t, ch.Changed, "an unreleased package always counts as changed")
	assert.Empty(t, ch.Marker)
	assert.Equal(t, []string{"feat: initial import", "fix: typo"}, ch.Commits)
}

func TestDetectFiltersByPackageDir(t *testing.T) {
	vcs := &memory.VCS{
		Tags: []string{"core-v1.0.0", "other-v1.0.0"},
		Changed: map[string][]string{
			"core-v1.0.0":  {"core/engine.go", "docs/readme.md"},
			"other-v1.0.0": {"core/engine.go", "docs/readme.md"},
		},
		History: map[string][]string{
			"core": {"fix: engine panic"},
		},
	}
	d := New(vcs, t.TempDir(), false, logging.NewNop())

	core, err := d.Detect(context.Background(), pkg("core"))
	require.NoError(t, err)
	assert.True(t, core.Changed)
	assert.Equal(t, "core-v1.0.0", core.Marker)
	assert.Equal(t, []string{"fix: engine panic"}, core.Commits)

	other, err := d.Detect(context.Background(), pkg("other"))
	require.NoError(t, err)
	assert.False(t, other.Changed, "no touched path lies under other/")
}

func TestDetectIncludeExcludeGlobs(t *testing.T) {
	base := pkg("core")
	base.Include = []string{"src/**"}
	base.Exclude = []string{"src/**/*_gen.go"}

	tests := []struct {
		name    string
		path    string
		changed bool
	}{
		{"included source file", "core/src/engine.go", true},
		{"outside include set", "core/scripts/build.sh", false},
		{"excluded generated file", "core/src/api/types_gen.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vcs := &memory.VCS{
				Tags:    []string{"core-v1.0.0"},
				Changed: map[string][]string{"core-v1.0.0": {tt.path}},
			}
			d := New(vcs, t.TempDir(), false, logging.NewNop())
			ch, err := d.Detect(context.Background(), base)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, ch.Changed)
		})
	}
}

func TestDetectFollowsSymlinkIntoPackage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "core", "real.go"), []byte("package core\n"), 0o644))
	if err := os.Symlink(filepath.Join("core", "real.go"), filepath.Join(root, "alias.go")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	vcs := &memory.VCS{
		Tags:    []string{"core-v1.0.0"},
		Changed: map[string][]string{"core-v1.0.0": {"alias.go"}},
	}
	d := New(vcs, root, false, logging.NewNop())

	ch, err := d.Detect(context.Background(), pkg("core"))
	require.NoError(t, err)
	assert.True(t, ch.Changed, "a symlink resolving into the package attributes the change to it")
}

func TestDetectDocsPath(t *testing.T) {
	// Resolve the temp dir itself so the docs path comparison is not
	// confused by a symlinked TMPDIR.
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "core"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "core.md"), []byte("# core\n"), 0o644))

	p := pkg("core")
	p.DocsPath = "../docs/core.md"

	vcs := &memory.VCS{
		Tags:    []string{"core-v1.0.0"},
		Changed: map[string][]string{"core-v1.0.0": {"docs/core.md"}},
	}
	d := New(vcs, root, false, logging.NewNop())

	ch, err := d.Detect(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, ch.Changed)
}

func TestDetectUnresolvableDocsPathIsIgnored(t *testing.T) {
	p := pkg("core")
	p.DocsPath = "../does/not/exist.md"

	vcs := &memory.VCS{
		Tags:    []string{"core-v1.0.0"},
		Changed: map[string][]string{"core-v1.0.0": {"unrelated/file.go"}},
	}
	d := New(vcs, t.TempDir(), false, logging.NewNop())

	ch, err := d.Detect(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, ch.Changed, "a dangling docs path never errors and never matches")
}

func TestDetectSinglePackageUsesBareTags(t *testing.T) {
	vcs := &memory.VCS{
		Tags: []string{"v1.0.0", "v0.9.0"},
		Changed: map[string][]string{
			"v1.0.0": {"solo/main.go"},
		},
		History: map[string][]string{
			"solo": {"fix: things"},
		},
	}
	d := New(vcs, t.TempDir(), true, logging.NewNop())

	ch, err := d.Detect(context.Background(), pkg("solo"))
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", ch.Marker, "the highest bare tag wins in a single-package workspace")
	assert.True(t, ch.Changed)
}

func TestUnderDir(t *testing.T) {
	rel, ok := underDir("core", "core/sub/file.go")
	require.True(t, ok)
	assert.Equal(t, "sub/file.go", rel)

	_, ok = underDir("core", "corelib/file.go")
	assert.False(t, ok, "a sibling with the same prefix is not inside the package")

	rel, ok = underDir(".", "anything.go")
	require.True(t, ok)
	assert.Equal(t, "anything.go", rel)
}
