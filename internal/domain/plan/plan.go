// Package plan builds the immutable release plan one reconciliation run
// converges toward.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/relicta-tech/convoy/internal/domain/changelog"
	"github.com/relicta-tech/convoy/internal/domain/version"
)

// fingerprintMarker is the hidden marker embedded in the PR body. It carries
// the content hash of the plan so a later run can detect staleness without
// re-reading diff state from the provider.
var fingerprintMarker = regexp.MustCompile(`<!-- convoy:plan:([0-9a-f]{64}) -->`)

// ReleasePlan is the desired remote state for one pending release.
// Built fresh every invocation, never mutated after construction, and
// compared by content fingerprint during reconciliation.
type ReleasePlan struct {
	version         version.SemanticVersion
	decision        version.Decision
	tagName         string
	branch          string
	prTitle         string
	prBody          string
	tagMessage      string
	releaseName     string
	changelog       changelog.Changelog
	packageVersions map[string]version.SemanticVersion
	fingerprint     string
}

// Version returns the version this plan releases.
func (p *ReleasePlan) Version() version.SemanticVersion {
	return p.version
}

// Decision returns the version decision behind the plan.
func (p *ReleasePlan) Decision() version.Decision {
	return p.decision
}

// TagName returns the git tag name, prefix included.
func (p *ReleasePlan) TagName() string {
	return p.tagName
}

// Branch returns the release branch name, the natural idempotency key for
// the release PR.
func (p *ReleasePlan) Branch() string {
	return p.branch
}

// PRTitle returns the desired pull request title.
func (p *ReleasePlan) PRTitle() string {
	return p.prTitle
}

// PRBody returns the desired pull request body, fingerprint marker included.
func (p *ReleasePlan) PRBody() string {
	return p.prBody
}

// TagMessage returns the annotated tag message.
func (p *ReleasePlan) TagMessage() string {
	return p.tagMessage
}

// ReleaseName returns the hosting-provider release title.
func (p *ReleasePlan) ReleaseName() string {
	return p.releaseName
}

// Changelog returns the assembled changelog model.
func (p *ReleasePlan) Changelog() changelog.Changelog {
	return p.changelog
}

// PackageVersions maps every workspace member to its next version.
// Unified versioning invariant: all values are equal.
func (p *ReleasePlan) PackageVersions() map[string]version.SemanticVersion {
	out := make(map[string]version.SemanticVersion, len(p.packageVersions))
	for k, v := range p.packageVersions {
		out[k] = v
	}
	return out
}

// Packages returns the sorted workspace member names.
func (p *ReleasePlan) Packages() []string {
	names := make([]string, 0, len(p.packageVersions))
	for name := range p.packageVersions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint returns the content hash identifying this plan.
func (p *ReleasePlan) Fingerprint() string {
	return p.fingerprint
}

// computeFingerprint hashes the observable content of the plan. Two plans
// with the same fingerprint would produce identical remote state.
func computeFingerprint(tagName, prTitle, body string) string {
	h := sha256.New()
	h.Write([]byte(tagName))
	h.Write([]byte{0})
	h.Write([]byte(prTitle))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}

// MarkerFor renders the hidden body marker for a fingerprint.
func MarkerFor(fingerprint string) string {
	return "<!-- convoy:plan:" + fingerprint + " -->"
}

// ExtractFingerprint pulls the plan fingerprint out of an observed PR body.
// Returns false when no marker is present, which forces an update.
func ExtractFingerprint(body string) (string, bool) {
	m := fingerprintMarker.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StripMarker removes the fingerprint marker from a body, for display.
func StripMarker(body string) string {
	return strings.TrimSpace(fingerprintMarker.ReplaceAllString(body, ""))
}
