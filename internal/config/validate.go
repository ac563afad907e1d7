package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	cverrors "github.com/relicta-tech/convoy/internal/errors"
	"github.com/relicta-tech/convoy/internal/forge"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}

	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error to the validation error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning to the validation error.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: &ValidationError{},
	}
}

// Validate validates the configuration. Validation runs before any plan
// construction so a bad knob fails the run up front.
func (v *Validator) Validate(cfg *Config) error {
	v.validateForge(cfg.Forge)
	v.validateGit(cfg.Git)
	v.validateRelease(cfg.Release)
	v.validateVersioning("versioning", cfg.Versioning)
	v.validateChangelog("changelog", cfg.Changelog)
	v.validatePackages(cfg.Packages)
	v.validateOutput(cfg.Output)

	if v.errors.HasErrors() {
		return cverrors.Validation("config.Validate", v.errors.Error())
	}

	return nil
}

// Warnings returns the warnings collected by the last Validate call.
func (v *Validator) Warnings() []string {
	return v.errors.Warnings
}

func (v *Validator) validateForge(cfg ForgeConfig) {
	if _, err := forge.ParseProvider(cfg.Provider); err != nil {
		v.errors.Addf("forge.provider: must be one of github, gitlab, gitea, got %q", cfg.Provider)
	}

	if cfg.BaseURL != "" {
		if _, err := url.Parse(cfg.BaseURL); err != nil {
			v.errors.Addf("forge.base_url: invalid URL: %s", cfg.BaseURL)
		}
	}

	if strings.EqualFold(cfg.Provider, string(forge.ProviderGitea)) && cfg.BaseURL == "" {
		v.errors.Addf("forge.base_url: required for the gitea provider")
	}

	if cfg.Token == "" {
		v.errors.Warnf("forge.token: not set, remote operations will fail to authenticate")
	}
}

func (v *Validator) validateGit(cfg GitConfig) {
	if cfg.MaxAnalyzeCommits < 0 {
		v.errors.Addf("git.max_analyze_commits: must be >= 0, got %d", cfg.MaxAnalyzeCommits)
	}
	// Note: an empty tag_prefix is valid (some repos tag without a prefix)
}

func (v *Validator) validateRelease(cfg ReleaseConfig) {
	if cfg.BranchPrefix == "" {
		v.errors.Addf("release.branch_prefix: must not be empty")
	} else if strings.ContainsAny(cfg.BranchPrefix, " ~^:?*[\\") {
		v.errors.Addf("release.branch_prefix: not a valid git ref name: %q", cfg.BranchPrefix)
	}

	for _, label := range cfg.PRLabels {
		if strings.TrimSpace(label) == "" {
			v.errors.Addf("release.pr_labels: labels must not be blank")
			break
		}
	}
}

func (v *Validator) validateVersioning(key string, cfg VersioningConfig) {
	if cfg.ReleaseCommits != "" {
		if _, err := regexp.Compile(cfg.ReleaseCommits); err != nil {
			v.errors.Addf("%s.release_commits: invalid pattern: %v", key, err)
		}
	}

	for _, t := range cfg.CustomTypes {
		if strings.TrimSpace(t) == "" {
			v.errors.Addf("%s.custom_types: types must not be blank", key)
			break
		}
	}
}

func (v *Validator) validateChangelog(key string, cfg ChangelogConfig) {
	validSort := []string{"", "newest", "oldest"}
	if !slices.Contains(validSort, cfg.Sort) {
		v.errors.Addf("%s.sort: must be one of [newest oldest], got %q", key, cfg.Sort)
	}
}

func (v *Validator) validatePackages(pkgs map[string]PackageConfig) {
	for name, pkg := range pkgs {
		if strings.TrimSpace(name) == "" {
			v.errors.Addf("packages: package names must not be blank")
			continue
		}
		if pkg.Versioning != nil {
			v.validateVersioning(fmt.Sprintf("packages.%s.versioning", name), *pkg.Versioning)
		}
		if pkg.Changelog != nil {
			v.validateChangelog(fmt.Sprintf("packages.%s.changelog", name), *pkg.Changelog)
		}
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.LogLevel) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLevels, cfg.LogLevel)
	}

	if cfg.Verbose && cfg.Quiet {
		v.errors.Warnf("output: verbose and quiet are both set, quiet wins")
	}
}

// Validate is a convenience wrapper around a fresh Validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
