// Package config provides configuration management for Convoy.
package config

import (
	"regexp"
	"sort"

	"github.com/relicta-tech/convoy/internal/domain/changelog"
	"github.com/relicta-tech/convoy/internal/domain/changes"
	"github.com/relicta-tech/convoy/internal/domain/version"
	cverrors "github.com/relicta-tech/convoy/internal/errors"
	"github.com/relicta-tech/convoy/internal/infrastructure/manifest"
)

// ConfigFileNames are the base names searched for config files.
var ConfigFileNames = []string{"convoy"}

// ConfigFileExtensions are the supported config file extensions, in
// search order.
var ConfigFileExtensions = []string{"toml", "yaml", "yml", "json"}

// Config is the root configuration for Convoy.
type Config struct {
	// Forge configures the hosting provider connection.
	Forge ForgeConfig `mapstructure:"forge" json:"forge"`
	// Git configures local repository analysis.
	Git GitConfig `mapstructure:"git" json:"git"`
	// Release configures release branch, PR and release object shaping.
	Release ReleaseConfig `mapstructure:"release" json:"release"`
	// Versioning configures commit classification and bump policy.
	Versioning VersioningConfig `mapstructure:"versioning" json:"versioning"`
	// Changelog configures changelog assembly and the changelog file.
	Changelog ChangelogConfig `mapstructure:"changelog" json:"changelog"`
	// Manifest configures the version manifest file.
	Manifest ManifestConfig `mapstructure:"manifest" json:"manifest"`
	// Packages holds per-package overrides of the workspace defaults.
	Packages map[string]PackageConfig `mapstructure:"packages" json:"packages,omitempty"`
	// Output configures CLI output settings.
	Output OutputConfig `mapstructure:"output" json:"output"`
}

// ForgeConfig configures the hosting provider connection.
type ForgeConfig struct {
	// Provider is the hosting provider (github, gitlab, gitea).
	Provider string `mapstructure:"provider" json:"provider"`
	// BaseURL is the API base URL for self-hosted instances.
	// Required for gitea, optional for github/gitlab.
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty"`
	// Token is the API token (can use environment variable expansion).
	Token string `mapstructure:"token" json:"token,omitempty"`
	// Owner is the repository owner or organization.
	Owner string `mapstructure:"owner" json:"owner"`
	// Repo is the repository name.
	Repo string `mapstructure:"repo" json:"repo"`
}

// GitConfig configures local repository analysis.
type GitConfig struct {
	// TagPrefix is the prefix for version tags (default: "v").
	TagPrefix string `mapstructure:"tag_prefix" json:"tag_prefix"`
	// MaxAnalyzeCommits caps how many commits a history scan may walk.
	// Zero means unlimited.
	MaxAnalyzeCommits int `mapstructure:"max_analyze_commits" json:"max_analyze_commits"`
}

// ReleaseConfig configures release branch, PR and release object shaping.
type ReleaseConfig struct {
	// BranchPrefix is the release branch name. Open-PR discovery filters
	// by this name.
	BranchPrefix string `mapstructure:"branch_prefix" json:"branch_prefix"`
	// BaseBranch is the branch release PRs target. Empty means the
	// repository default branch.
	BaseBranch string `mapstructure:"base_branch" json:"base_branch,omitempty"`
	// PRTitle is the pull request title template.
	PRTitle string `mapstructure:"pr_title" json:"pr_title,omitempty"`
	// TagMessage is the annotated tag message template.
	TagMessage string `mapstructure:"tag_message" json:"tag_message,omitempty"`
	// ReleaseName is the release object name template.
	ReleaseName string `mapstructure:"release_name" json:"release_name,omitempty"`
	// PRLabels are labels applied to release PRs on create.
	PRLabels []string `mapstructure:"pr_labels" json:"pr_labels,omitempty"`
	// GitReleaseDraft creates release objects as drafts.
	GitReleaseDraft bool `mapstructure:"git_release_draft" json:"git_release_draft"`
	// GitReleasePrerelease marks release objects as prereleases.
	GitReleasePrerelease bool `mapstructure:"git_release_prerelease" json:"git_release_prerelease"`
}

// VersioningConfig configures commit classification and bump policy.
type VersioningConfig struct {
	// CustomTypes extends the recognized commit types. Custom types never
	// bump the version but group under their own changelog heading.
	CustomTypes []string `mapstructure:"custom_types" json:"custom_types,omitempty"`
	// ReleaseCommits is a regular expression restricting which commits may
	// contribute to the bump decision. Empty means all commits qualify.
	ReleaseCommits string `mapstructure:"release_commits" json:"release_commits,omitempty"`
	// FeaturesAlwaysIncrementMinor forces feature commits to bump minor
	// even while the major version is 0.
	FeaturesAlwaysIncrementMinor bool `mapstructure:"features_always_increment_minor" json:"features_always_increment_minor"`
	// BreakingAlwaysIncrementMajor forces breaking changes to bump major
	// even while the major version is 0.
	BreakingAlwaysIncrementMajor bool `mapstructure:"breaking_always_increment_major" json:"breaking_always_increment_major"`
}

// ChangelogConfig configures changelog assembly and the changelog file.
type ChangelogConfig struct {
	// File is the changelog file path.
	File string `mapstructure:"file" json:"file"`
	// GroupOrder fixes the ordering of changelog groups. Groups not listed
	// follow in first-appearance order.
	GroupOrder []string `mapstructure:"group_order" json:"group_order,omitempty"`
	// Sort is the in-group commit ordering (newest, oldest).
	Sort string `mapstructure:"sort" json:"sort"`
	// Exclude lists groups to drop from the changelog.
	Exclude []string `mapstructure:"exclude" json:"exclude,omitempty"`
	// IncludeAllTypes includes every commit type rather than only the
	// user-facing ones.
	IncludeAllTypes bool `mapstructure:"include_all_types" json:"include_all_types"`
	// ProtectBreaking keeps breaking commits visible even when their group
	// is excluded.
	ProtectBreaking *bool `mapstructure:"protect_breaking" json:"protect_breaking,omitempty"`
}

// ManifestConfig configures the version manifest file.
type ManifestConfig struct {
	// Path is the manifest file path.
	Path string `mapstructure:"path" json:"path"`
}

// PackageConfig overrides workspace defaults for one package. Nil fields
// inherit the workspace value.
type PackageConfig struct {
	// Versioning overrides the workspace versioning configuration.
	Versioning *VersioningConfig `mapstructure:"versioning" json:"versioning,omitempty"`
	// Changelog overrides the workspace changelog configuration.
	Changelog *ChangelogConfig `mapstructure:"changelog" json:"changelog,omitempty"`
}

// OutputConfig configures CLI output settings.
type OutputConfig struct {
	// Format is the output format (text, json).
	Format string `mapstructure:"format" json:"format"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color"`
	// Verbose enables verbose output.
	Verbose bool `mapstructure:"verbose" json:"verbose"`
	// Quiet suppresses non-essential output.
	Quiet bool `mapstructure:"quiet" json:"quiet"`
	// LogLevel is the log level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Forge: ForgeConfig{
			Provider: "github",
		},
		Git: GitConfig{
			TagPrefix: "v",
		},
		Release: ReleaseConfig{
			BranchPrefix: "convoy/release",
		},
		Changelog: ChangelogConfig{
			File: manifest.DefaultChangelogPath,
			Sort: string(changelog.SortNewest),
		},
		Manifest: ManifestConfig{
			Path: manifest.DefaultPath,
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}

// Resolved is the immutable per-package view of the configuration, with
// every policy knob turned into the plain structs the engine consumes.
// It is built once, before any reconciliation runs.
type Resolved struct {
	Package        string
	Classification changes.Config
	Policy         version.Policy
	Changelog      changelog.Config
}

// Resolve materializes the workspace view of the configuration. The
// release_commits pattern is compiled here so malformed configuration
// surfaces before any plan construction.
func (c *Config) Resolve() (*Resolved, error) {
	return c.resolve("", c.Versioning, c.Changelog)
}

// ResolveFor materializes the view of the configuration for one package,
// layering its overrides on the workspace defaults.
func (c *Config) ResolveFor(pkg string) (*Resolved, error) {
	vc := c.Versioning
	cc := c.Changelog
	if override, ok := c.Packages[pkg]; ok {
		if override.Versioning != nil {
			vc = *override.Versioning
		}
		if override.Changelog != nil {
			cc = mergeChangelog(c.Changelog, *override.Changelog)
		}
	}
	return c.resolve(pkg, vc, cc)
}

func (c *Config) resolve(pkg string, vc VersioningConfig, cc ChangelogConfig) (*Resolved, error) {
	const op = "config.Resolve"

	var releaseCommits *regexp.Regexp
	if vc.ReleaseCommits != "" {
		re, err := regexp.Compile(vc.ReleaseCommits)
		if err != nil {
			return nil, cverrors.ConfigWrap(err, op, "invalid release_commits pattern")
		}
		releaseCommits = re
	}

	sortOrder := changelog.SortNewest
	if cc.Sort == string(changelog.SortOldest) {
		sortOrder = changelog.SortOldest
	}

	protectBreaking := true
	if cc.ProtectBreaking != nil {
		protectBreaking = *cc.ProtectBreaking
	}

	return &Resolved{
		Package: pkg,
		Classification: changes.Config{
			CustomTypes:    vc.CustomTypes,
			ReleaseCommits: releaseCommits,
		},
		Policy: version.Policy{
			FeaturesAlwaysIncrementMinor: vc.FeaturesAlwaysIncrementMinor,
			BreakingAlwaysIncrementMajor: vc.BreakingAlwaysIncrementMajor,
		},
		Changelog: changelog.Config{
			GroupOrder:      cc.GroupOrder,
			Sort:            sortOrder,
			ExcludeGroups:   cc.Exclude,
			IncludeAllTypes: cc.IncludeAllTypes,
			ProtectBreaking: protectBreaking,
		},
	}, nil
}

// mergeChangelog layers a package override on the workspace changelog
// defaults. Scalar zero values inherit; slices replace wholesale.
func mergeChangelog(base, override ChangelogConfig) ChangelogConfig {
	out := base
	if override.File != "" {
		out.File = override.File
	}
	if override.Sort != "" {
		out.Sort = override.Sort
	}
	if override.GroupOrder != nil {
		out.GroupOrder = override.GroupOrder
	}
	if override.Exclude != nil {
		out.Exclude = override.Exclude
	}
	if override.IncludeAllTypes {
		out.IncludeAllTypes = true
	}
	if override.ProtectBreaking != nil {
		out.ProtectBreaking = override.ProtectBreaking
	}
	return out
}

// PackageNames returns the configured per-package override names, sorted.
func (c *Config) PackageNames() []string {
	names := make([]string, 0, len(c.Packages))
	for name := range c.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
