package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, root, dir, content string) {
	t.Helper()
	full := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, ManifestName), []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "pkgs/util", "name: util\nversion: 1.2.0\n")
	writeManifest(t, root, "pkgs/app", `
name: app
version: 0.3.1
dependencies: [util]
include:
  - "src/**"
exclude:
  - "src/**/*_gen.go"
publish: false
docs: ../../docs/app.md
`)

	pkgs, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	app := pkgs[0]
	assert.Equal(t, "app", app.Name, "packages come back sorted by name")
	assert.Equal(t, "0.3.1", app.Version.String())
	assert.Equal(t, "pkgs/app", app.Dir)
	assert.Equal(t, []string{"util"}, app.Dependencies)
	assert.Equal(t, []string{"src/**"}, app.Include)
	assert.False(t, app.Publish)
	assert.Equal(t, "../../docs/app.md", app.DocsPath)

	util := pkgs[1]
	assert.Equal(t, "util", util.Name)
	assert.True(t, util.Publish, "publish defaults to true")
}

func TestDiscoverSkipsHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "core", "name: core\nversion: 1.0.0\n")
	writeManifest(t, root, ".cache/stale", "name: stale\nversion: 9.9.9\n")

	pkgs, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "core", pkgs[0].Name)
}

func TestDiscoverErrors(t *testing.T) {
	t.Run("no manifests", func(t *testing.T) {
		_, err := Discover(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no package.yaml manifests")
	})

	t.Run("duplicate name", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "a", "name: twin\nversion: 1.0.0\n")
		writeManifest(t, root, "b", "name: twin\nversion: 2.0.0\n")
		_, err := Discover(root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate package name "twin"`)
	})

	t.Run("dangling dependency", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "a", "name: a\nversion: 1.0.0\ndependencies: [ghost]\n")
		_, err := Discover(root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `depends on "ghost"`)
	})

	t.Run("loose version string", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "a", "name: a\nversion: v1.0\n")
		_, err := Discover(root)
		require.Error(t, err)
	})

	t.Run("missing name", func(t *testing.T) {
		root := t.TempDir()
		writeManifest(t, root, "a", "version: 1.0.0\n")
		_, err := Discover(root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing package name")
	})
}

func TestWriteVersion(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "core", "name: core\nversion: 1.0.0\ndependencies: [util]\npublish: false\n")
	writeManifest(t, root, "util", "name: util\nversion: 0.1.0\n")

	pkgs, err := Discover(root)
	require.NoError(t, err)
	core := pkgs[0]

	require.NoError(t, WriteVersion(root, core, semver.MustParse("1.1.0")))

	reread, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", reread[0].Version.String())
	assert.Equal(t, []string{"util"}, reread[0].Dependencies, "other manifest fields survive the rewrite")
	assert.False(t, reread[0].Publish)
}
