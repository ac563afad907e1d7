package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/convoy/internal/domain/version"
)

func TestLoadMissingManifest(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "convoy-versions.toml"))
	require.NoError(t, err)
	assert.Empty(t, m.Workspace)
	assert.NotNil(t, m.Packages)
}

func TestLoadInvalidManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convoy-versions.toml")
	require.NoError(t, os.WriteFile(path, []byte("workspace = [broken"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convoy-versions.toml")
	next := version.MustParse("1.4.0")

	m := &Manifest{Packages: map[string]string{}}
	m.Apply(next, map[string]version.SemanticVersion{
		"core": next,
		"cli":  next,
	})
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", loaded.Workspace)
	assert.Equal(t, []string{"cli", "core"}, loaded.PackageNames())
	assert.Equal(t, "1.4.0", loaded.Packages["core"])
	assert.Equal(t, "1.4.0", loaded.Packages["cli"])
}

func TestPrependChangelogCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	err := PrependChangelog(path, version.MustParse("1.0.0"), date, "### Features\n\n- add exporter")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.True(t, strings.HasPrefix(body, "# Changelog\n"))
	assert.Contains(t, body, "## [1.0.0] - 2024-06-15")
	assert.Contains(t, body, "- add exporter")
}

func TestPrependChangelogNewestFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, PrependChangelog(path, version.MustParse("1.0.0"), date, "### Features\n\n- first"))
	require.NoError(t, PrependChangelog(path, version.MustParse("1.1.0"), date.AddDate(0, 1, 0), "### Features\n\n- second"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)

	newer := strings.Index(body, "## [1.1.0]")
	older := strings.Index(body, "## [1.0.0]")
	require.GreaterOrEqual(t, newer, 0)
	require.GreaterOrEqual(t, older, 0)
	assert.Less(t, newer, older, "newest release goes on top")
}

func TestPrependChangelogIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	date := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	v := version.MustParse("1.0.0")

	require.NoError(t, PrependChangelog(path, v, date, "### Features\n\n- add exporter"))
	require.NoError(t, PrependChangelog(path, v, date, "### Features\n\n- add exporter"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "## [1.0.0]"), "re-running must not duplicate the section")
}

func TestPrependChangelogKeepsForeignPreamble(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	require.NoError(t, os.WriteFile(path, []byte("Some notes without the standard header.\n"), 0o644))

	err := PrependChangelog(path, version.MustParse("0.2.0"), time.Now(), "### Bug Fixes\n\n- fix parser")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.True(t, strings.HasPrefix(body, "## [0.2.0]"))
	assert.Contains(t, body, "Some notes without the standard header.")
}
