package changes

import (
	"regexp"
	"runtime"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/relicta-tech/convoy/internal/domain/version"
)

// Regex patterns for parsing conventional commits.
var (
	// Matches: type(scope)!: subject or type!: subject or type(scope): subject or type: subject
	conventionalCommitRegex = regexp.MustCompile(`^(\w+)(?:\(([^)]+)\))?(!)?\s*:\s*(.+)$`)

	// Matches BREAKING CHANGE: or BREAKING-CHANGE: in footer
	breakingChangeRegex = regexp.MustCompile(`(?i)^BREAKING[ -]CHANGE:\s*(.+)$`)
)

// ClassifiedCommit is a Commit enriched with its conventional-commit reading.
// Derived data, recomputed every run and never persisted.
type ClassifiedCommit struct {
	commit Commit

	commitType  CommitType
	scope       string
	description string
	body        string
	breaking    bool
	breakingMsg string
	group       string

	// bumpEligible marks whether this commit may contribute to the version
	// decision. Independent of changelog inclusion.
	bumpEligible bool
}

// Config controls classification.
type Config struct {
	// CustomTypes extends the recognized commit types. Custom types never
	// bump the version but group under their own changelog heading.
	CustomTypes []string

	// ReleaseCommits, when non-nil, restricts which commits are eligible to
	// contribute to the bump decision. Matched against the subject line.
	ReleaseCommits *regexp.Regexp
}

// Classifier turns raw commits into classified records.
// Classification is total: a malformed message classifies as "other" rather
// than failing.
type Classifier struct {
	cfg    Config
	custom map[string]struct{}
}

// NewClassifier creates a classifier for the given config.
func NewClassifier(cfg Config) *Classifier {
	custom := make(map[string]struct{}, len(cfg.CustomTypes))
	for _, t := range cfg.CustomTypes {
		custom[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Classifier{cfg: cfg, custom: custom}
}

// Classify classifies every commit, order-preserving. Each input commit yields
// exactly one classified record. Independent commits are classified across a
// bounded worker pool and joined before returning.
func (cl *Classifier) Classify(commits []Commit) []ClassifiedCommit {
	out := make([]ClassifiedCommit, len(commits))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, c := range commits {
		g.Go(func() error {
			out[i] = cl.classify(c)
			return nil
		})
	}

	// Workers never return errors; classification is total.
	_ = g.Wait()

	return out
}

func (cl *Classifier) classify(c Commit) ClassifiedCommit {
	cc := ClassifiedCommit{
		commit:       c,
		commitType:   CommitTypeOther,
		description:  c.Subject(),
		bumpEligible: cl.eligible(c),
	}

	lines := strings.Split(strings.TrimSpace(c.Message()), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		cc.group = cc.commitType.ChangelogCategory()
		return cc
	}

	matches := conventionalCommitRegex.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if matches != nil {
		token := strings.ToLower(matches[1])
		if t, ok := ParseCommitType(token); ok {
			cc.commitType = t
			cc.group = t.ChangelogCategory()
		} else if _, ok := cl.custom[token]; ok {
			cc.commitType = CommitType(token)
			cc.group = customGroup(token)
		}
		// Unknown type keeps the "other" classification but the structured
		// parts are still extracted.
		cc.scope = matches[2]
		cc.breaking = matches[3] == "!"
		cc.description = strings.TrimSpace(matches[4])
	}

	if cc.group == "" {
		cc.group = cc.commitType.ChangelogCategory()
	}

	cc.parseBodyAndFooter(lines)
	return cc
}

// parseBodyAndFooter scans the message tail for body text and a BREAKING
// CHANGE trailer.
func (cc *ClassifiedCommit) parseBodyAndFooter(lines []string) {
	if len(lines) < 2 {
		return
	}

	bodyStart := 1
	if bodyStart < len(lines) && strings.TrimSpace(lines[bodyStart]) == "" {
		bodyStart++
	}

	var bodyLines []string
	for i := bodyStart; i < len(lines); i++ {
		line := lines[i]
		if bcMatch := breakingChangeRegex.FindStringSubmatch(line); bcMatch != nil {
			cc.breaking = true
			cc.breakingMsg = strings.TrimSpace(bcMatch[1])
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	cc.body = strings.TrimSpace(strings.Join(bodyLines, "\n"))
}

func (cl *Classifier) eligible(c Commit) bool {
	if cl.cfg.ReleaseCommits == nil {
		return true
	}
	return cl.cfg.ReleaseCommits.MatchString(c.Subject())
}

// customGroup derives a changelog heading from a custom commit type.
func customGroup(token string) string {
	r := []rune(token)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Commit returns the underlying raw commit.
func (cc ClassifiedCommit) Commit() Commit {
	return cc.commit
}

// Hash returns the commit hash.
func (cc ClassifiedCommit) Hash() string {
	return cc.commit.Hash()
}

// ShortHash returns the short commit hash.
func (cc ClassifiedCommit) ShortHash() string {
	return cc.commit.ShortHash()
}

// Type returns the commit type.
func (cc ClassifiedCommit) Type() CommitType {
	return cc.commitType
}

// Scope returns the commit scope, empty when absent.
func (cc ClassifiedCommit) Scope() string {
	return cc.scope
}

// Description returns the parsed description (subject without the prefix).
func (cc ClassifiedCommit) Description() string {
	return cc.description
}

// Body returns the commit body.
func (cc ClassifiedCommit) Body() string {
	return cc.body
}

// IsBreaking returns true if this is a breaking change.
func (cc ClassifiedCommit) IsBreaking() bool {
	return cc.breaking
}

// BreakingMessage returns the breaking change trailer text if any.
func (cc ClassifiedCommit) BreakingMessage() string {
	return cc.breakingMsg
}

// Group returns the changelog group this commit belongs to.
func (cc ClassifiedCommit) Group() string {
	return cc.group
}

// BumpEligible returns true if the commit may influence the version decision.
func (cc ClassifiedCommit) BumpEligible() bool {
	return cc.bumpEligible
}

// Author returns the commit author name.
func (cc ClassifiedCommit) Author() string {
	return cc.commit.Author()
}

// AffectsChangelog returns true if this commit should appear in the changelog.
func (cc ClassifiedCommit) AffectsChangelog() bool {
	return cc.commitType.AffectsChangelog() || cc.breaking
}

// FormattedSubject returns the description formatted for changelog display.
func (cc ClassifiedCommit) FormattedSubject() string {
	if cc.scope != "" {
		return "**" + cc.scope + ":** " + cc.description
	}
	return cc.description
}

// String renders the commit back in conventional form.
func (cc ClassifiedCommit) String() string {
	var sb strings.Builder
	sb.Grow(len(cc.scope) + len(cc.description) + 16)
	sb.WriteString(string(cc.commitType))
	if cc.scope != "" {
		sb.WriteString("(")
		sb.WriteString(cc.scope)
		sb.WriteString(")")
	}
	if cc.breaking {
		sb.WriteString("!")
	}
	sb.WriteString(": ")
	sb.WriteString(cc.description)
	return sb.String()
}

// Summarize reduces the bump-eligible subset of classified commits to a
// severity signal.
func Summarize(classified []ClassifiedCommit) version.Signal {
	var sig version.Signal
	for _, cc := range classified {
		if !cc.bumpEligible {
			continue
		}
		if cc.breaking {
			sig.Breaking = true
		}
		if cc.commitType.IsFeature() {
			sig.Feature = true
		}
		if cc.commitType.IsFix() {
			sig.Fix = true
		}
	}
	return sig
}
