package plan

import (
	"sort"
	"strings"

	"github.com/relicta-tech/convoy/internal/domain/changelog"
	"github.com/relicta-tech/convoy/internal/domain/changes"
	"github.com/relicta-tech/convoy/internal/domain/version"
)

// Default templates and naming. Overridable through Config.
const (
	DefaultBranch      = "convoy/release"
	DefaultPRTitle     = "chore: release {{ version }}"
	DefaultTagMessage  = "Version {{ version }}"
	DefaultReleaseName = "Version {{ version }}"
)

// Renderer substitutes template variables into a template string.
// Must be total: unresolvable variables render as empty strings.
type Renderer interface {
	RenderString(tmpl string, vars map[string]string) string
}

// Templates are the user-facing text templates of a release.
type Templates struct {
	PRTitle     string
	TagMessage  string
	ReleaseName string
}

// Config controls plan construction.
type Config struct {
	// Branch is the release branch name, the idempotency key for the
	// release PR. Defaults to DefaultBranch.
	Branch string

	// TagPrefix prefixes the tag name. Defaults to "v"; an explicit empty
	// prefix is expressed by leaving this empty and setting NoTagPrefix.
	TagPrefix   string
	NoTagPrefix bool

	Templates Templates
}

// Builder combines version decision, changelog and workspace members into a
// ReleasePlan. Construction is total: it either yields a plan or nil when no
// release is due, never an error.
type Builder struct {
	calc      *version.Calculator
	assembler *changelog.Assembler
	renderer  Renderer
	cfg       Config
}

// NewBuilder creates a plan builder.
func NewBuilder(calc *version.Calculator, assembler *changelog.Assembler, renderer Renderer, cfg Config) *Builder {
	if cfg.Branch == "" {
		cfg.Branch = DefaultBranch
	}
	if cfg.TagPrefix == "" && !cfg.NoTagPrefix {
		cfg.TagPrefix = "v"
	}
	if cfg.Templates.PRTitle == "" {
		cfg.Templates.PRTitle = DefaultPRTitle
	}
	if cfg.Templates.TagMessage == "" {
		cfg.Templates.TagMessage = DefaultTagMessage
	}
	if cfg.Templates.ReleaseName == "" {
		cfg.Templates.ReleaseName = DefaultReleaseName
	}
	return &Builder{calc: calc, assembler: assembler, renderer: renderer, cfg: cfg}
}

// Build computes the plan for the given current version, workspace members
// and classified commits. Returns nil when the version decision is "none":
// absence of a qualifying commit is equivalent to no release.
//
// Unified versioning: every member receives the same next version whether or
// not it changed individually.
func (b *Builder) Build(current version.SemanticVersion, packages []string, classified []changes.ClassifiedCommit) *ReleasePlan {
	decision := b.calc.ComputeNext(current, changes.Summarize(classified))
	if !decision.IsRelease() {
		return nil
	}

	next := decision.Next
	cl := b.assembler.Assemble(classified)

	packages = append([]string(nil), packages...)
	sort.Strings(packages)

	tagName := b.cfg.TagPrefix + next.String()
	vars := map[string]string{
		"version":   next.String(),
		"tag":       tagName,
		"changelog": cl.Markdown(),
	}

	title := b.renderer.RenderString(b.cfg.Templates.PRTitle, vars)
	body := b.composeBody(tagName, next, packages, cl)
	fingerprint := computeFingerprint(tagName, title, body)

	packageVersions := make(map[string]version.SemanticVersion, len(packages))
	for _, name := range packages {
		packageVersions[name] = next
	}

	return &ReleasePlan{
		version:         next,
		decision:        decision,
		tagName:         tagName,
		branch:          b.cfg.Branch,
		prTitle:         title,
		prBody:          body + "\n" + MarkerFor(fingerprint),
		tagMessage:      b.renderer.RenderString(b.cfg.Templates.TagMessage, vars),
		releaseName:     b.renderer.RenderString(b.cfg.Templates.ReleaseName, vars),
		changelog:       cl,
		packageVersions: packageVersions,
		fingerprint:     fingerprint,
	}
}

// composeBody renders the release PR body: header, updated packages, the
// changelog folded into a details block, and contributors.
func (b *Builder) composeBody(tagName string, next version.SemanticVersion, packages []string, cl changelog.Changelog) string {
	var sb strings.Builder

	sb.WriteString("## New release ")
	sb.WriteString(tagName)
	sb.WriteString("\n")

	if len(packages) > 0 {
		sb.WriteString("\n### Packages updated\n\n")
		for _, name := range packages {
			sb.WriteString("- ")
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(next.String())
			sb.WriteString("\n")
		}
	}

	if md := cl.Markdown(); md != "" {
		sb.WriteString("\n<details><summary><i><b>Changelog</b></i></summary>\n\n")
		sb.WriteString(md)
		sb.WriteString("\n\n</details>\n")
	}

	if contributors := cl.Contributors(); len(contributors) > 0 {
		sb.WriteString("\n### Contributors\n\n")
		for _, name := range contributors {
			sb.WriteString("- ")
			sb.WriteString(name)
			sb.WriteString("\n")
		}
	}

	return strings.TrimSpace(sb.String())
}
