// Package changelog assembles classified commits into a structured,
// ordered changelog model.
package changelog

import (
	"sort"
	"strings"

	"github.com/relicta-tech/convoy/internal/domain/changes"
)

// SortOrder controls how commits sort inside a group.
type SortOrder string

const (
	// SortNewest orders commits reverse chronologically. The default.
	SortNewest SortOrder = "newest"
	// SortOldest orders commits chronologically.
	SortOldest SortOrder = "oldest"
)

// Config controls changelog assembly.
type Config struct {
	// GroupOrder fixes the ordering of groups. Groups not listed follow in
	// first-appearance order. Empty means pure first-appearance ordering.
	GroupOrder []string

	// Sort is the in-group commit ordering. Defaults to SortNewest.
	Sort SortOrder

	// ExcludeGroups drops whole groups from the changelog.
	ExcludeGroups []string

	// IncludeAllTypes includes every commit type rather than only the
	// user-facing ones (features, fixes, performance, reverts).
	IncludeAllTypes bool

	// ProtectBreaking keeps breaking commits visible even when their group
	// is excluded or their type would not normally appear.
	ProtectBreaking bool
}

// Group is one named section of the changelog with its ordered commits.
type Group struct {
	name    string
	commits []changes.ClassifiedCommit
}

// Name returns the group heading.
func (g Group) Name() string {
	return g.name
}

// Commits returns the ordered commits of the group.
func (g Group) Commits() []changes.ClassifiedCommit {
	return g.commits
}

// Changelog is the assembled, ordered model handed to rendering.
type Changelog struct {
	groups       []Group
	contributors []string
}

// Groups returns the ordered groups.
func (c Changelog) Groups() []Group {
	return c.groups
}

// Contributors returns the unique commit authors, bots excluded.
func (c Changelog) Contributors() []string {
	return c.contributors
}

// IsEmpty returns true when no commit survived filtering.
func (c Changelog) IsEmpty() bool {
	return len(c.groups) == 0
}

// Markdown renders the changelog as markdown sections, trimmed of leading
// and trailing blank lines.
func (c Changelog) Markdown() string {
	var sb strings.Builder
	for i, g := range c.groups {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("### ")
		sb.WriteString(g.name)
		sb.WriteString("\n\n")
		for _, cc := range g.commits {
			sb.WriteString("- ")
			sb.WriteString(cc.FormattedSubject())
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// Assembler groups, filters and orders classified commits.
type Assembler struct {
	cfg      Config
	excluded map[string]struct{}
	rank     map[string]int
}

// NewAssembler creates an assembler for the given config.
func NewAssembler(cfg Config) *Assembler {
	excluded := make(map[string]struct{}, len(cfg.ExcludeGroups))
	for _, g := range cfg.ExcludeGroups {
		excluded[g] = struct{}{}
	}
	rank := make(map[string]int, len(cfg.GroupOrder))
	for i, g := range cfg.GroupOrder {
		rank[g] = i
	}
	return &Assembler{cfg: cfg, excluded: excluded, rank: rank}
}

// Assemble builds the changelog model. Breaking commits survive every
// exclusion filter when ProtectBreaking is set.
func (a *Assembler) Assemble(classified []changes.ClassifiedCommit) Changelog {
	byGroup := make(map[string][]changes.ClassifiedCommit)
	var appearance []string

	for _, cc := range classified {
		if !a.includes(cc) {
			continue
		}
		name := cc.Group()
		if _, seen := byGroup[name]; !seen {
			appearance = append(appearance, name)
		}
		byGroup[name] = append(byGroup[name], cc)
	}

	a.orderGroups(appearance)

	groups := make([]Group, 0, len(appearance))
	raw := make([]changes.Commit, 0, len(classified))
	for _, name := range appearance {
		commits := byGroup[name]
		a.sortCommits(commits)
		groups = append(groups, Group{name: name, commits: commits})
		for _, cc := range commits {
			raw = append(raw, cc.Commit())
		}
	}

	return Changelog{
		groups:       groups,
		contributors: changes.Contributors(raw),
	}
}

func (a *Assembler) includes(cc changes.ClassifiedCommit) bool {
	if a.cfg.ProtectBreaking && cc.IsBreaking() {
		return true
	}
	if _, drop := a.excluded[cc.Group()]; drop {
		return false
	}
	if a.cfg.IncludeAllTypes {
		return true
	}
	return cc.AffectsChangelog()
}

// orderGroups sorts group names by their configured rank, keeping
// first-appearance order for unranked groups. Ranked groups always precede
// unranked ones.
func (a *Assembler) orderGroups(names []string) {
	if len(a.rank) == 0 {
		return
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := a.rank[names[i]]
		rj, jok := a.rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
}

func (a *Assembler) sortCommits(commits []changes.ClassifiedCommit) {
	oldest := a.cfg.Sort == SortOldest
	sort.SliceStable(commits, func(i, j int) bool {
		if oldest {
			return commits[i].Commit().Date().Before(commits[j].Commit().Date())
		}
		return commits[i].Commit().Date().After(commits[j].Commit().Date())
	})
}
