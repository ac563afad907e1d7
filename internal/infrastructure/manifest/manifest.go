// Package manifest reads and writes the workspace version manifest and the
// changelog file. The manifest records what was last written for each
// workspace member; it is never the version oracle, tags are.
package manifest

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/relicta-tech/convoy/internal/domain/version"
	"github.com/relicta-tech/convoy/internal/errors"
	"github.com/relicta-tech/convoy/internal/fileutil"
)

const (
	// DefaultPath is the manifest location relative to the repository root.
	DefaultPath = "convoy-versions.toml"

	// DefaultChangelogPath is where release notes accumulate.
	DefaultChangelogPath = "CHANGELOG.md"

	// maxFileSize bounds manifest and changelog reads.
	maxFileSize = 16 << 20
)

// Manifest is the on-disk workspace version record.
type Manifest struct {
	// Workspace is the unified workspace version.
	Workspace string `toml:"workspace"`
	// Packages maps member names to their written version. Unified
	// versioning keeps all values equal to Workspace.
	Packages map[string]string `toml:"packages,omitempty"`
}

// Load reads the manifest at path. A missing file yields an empty manifest,
// not an error: a repository that has never released has nothing on disk yet.
func Load(path string) (*Manifest, error) {
	const op = "manifest.Load"

	data, err := fileutil.ReadFileLimited(path, maxFileSize)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Packages: map[string]string{}}, nil
		}
		return nil, errors.IOWrap(err, op, fmt.Sprintf("failed to read manifest at %s", path))
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.ConfigWrap(err, op, fmt.Sprintf("invalid manifest at %s", path))
	}
	if m.Packages == nil {
		m.Packages = map[string]string{}
	}
	return &m, nil
}

// Apply records the new unified version for every given member.
func (m *Manifest) Apply(next version.SemanticVersion, versions map[string]version.SemanticVersion) {
	m.Workspace = next.String()
	if m.Packages == nil {
		m.Packages = map[string]string{}
	}
	for name, v := range versions {
		m.Packages[name] = v.String()
	}
}

// Save writes the manifest atomically.
func Save(path string, m *Manifest) error {
	const op = "manifest.Save"

	data, err := toml.Marshal(m)
	if err != nil {
		return errors.InternalWrap(err, op, "failed to encode manifest")
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return errors.IOWrap(err, op, fmt.Sprintf("failed to write manifest at %s", path))
	}
	return nil
}

// PackageNames returns the member names recorded in the manifest, sorted.
func (m *Manifest) PackageNames() []string {
	names := make([]string, 0, len(m.Packages))
	for name := range m.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const changelogHeader = "# Changelog\n"

// PrependChangelog inserts a new release section at the top of the changelog
// file, below the top-level header, keeping earlier releases intact. Creates
// the file when absent. Writing the same version twice is a no-op so a
// re-run never duplicates a section.
func PrependChangelog(path string, v version.SemanticVersion, date time.Time, markdown string) error {
	const op = "manifest.PrependChangelog"

	section := fmt.Sprintf("## [%s] - %s\n\n%s\n", v.String(), date.Format("2006-01-02"), strings.TrimSpace(markdown))

	existing, err := fileutil.ReadFileLimited(path, maxFileSize)
	if err != nil && !os.IsNotExist(err) {
		return errors.IOWrap(err, op, fmt.Sprintf("failed to read changelog at %s", path))
	}

	body := string(existing)
	if strings.Contains(body, "## ["+v.String()+"]") {
		return nil
	}

	var out string
	switch {
	case body == "":
		out = changelogHeader + "\n" + section
	case strings.HasPrefix(body, changelogHeader):
		rest := strings.TrimPrefix(body, changelogHeader)
		out = changelogHeader + "\n" + section + "\n" + strings.TrimLeft(rest, "\n")
	default:
		out = section + "\n" + body
	}

	if err := fileutil.AtomicWriteFile(path, []byte(out), 0o644); err != nil {
		return errors.IOWrap(err, op, fmt.Sprintf("failed to write changelog at %s", path))
	}
	return nil
}
