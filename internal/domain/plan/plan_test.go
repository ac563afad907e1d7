package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/relicta-tech/convoy/internal/domain/changelog"
	"github.com/relicta-tech/convoy/internal/domain/changes"
	"github.com/relicta-tech/convoy/internal/domain/version"
)

// mapRenderer is a minimal total renderer for tests.
type mapRenderer struct{}

func (mapRenderer) RenderString(tmpl string, vars map[string]string) string {
	out := tmpl
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{ "+k+" }}", v)
	}
	return out
}

func newTestBuilder(policy version.Policy, cfg Config) *Builder {
	return NewBuilder(
		version.NewCalculator(policy),
		changelog.NewAssembler(changelog.Config{}),
		mapRenderer{},
		cfg,
	)
}

func classify(t *testing.T, messages ...string) []changes.ClassifiedCommit {
	t.Helper()
	commits := make([]changes.Commit, len(messages))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, msg := range messages {
		commits[i] = changes.NewCommit(
			strings.Repeat("a", 39)+string(rune('0'+i)),
			msg,
			changes.WithAuthor("Dev One", "dev@example.com"),
			changes.WithDate(base.Add(time.Duration(i)*time.Minute)),
		)
	}
	return changes.NewClassifier(changes.Config{}).Classify(commits)
}

func TestBuildReturnsNilWithoutQualifyingCommits(t *testing.T) {
	b := newTestBuilder(version.Policy{}, Config{})

	if p := b.Build(version.MustParse("1.2.3"), []string{"app"}, nil); p != nil {
		t.Fatalf("expected nil plan for empty history, got %v", p.Version())
	}

	classified := classify(t, "chore: tidy modules", "docs: fix typo")
	if p := b.Build(version.MustParse("1.2.3"), []string{"app"}, classified); p != nil {
		t.Fatalf("expected nil plan for non-releasing commits, got %v", p.Version())
	}
}

func TestBuildComputesVersionAndNames(t *testing.T) {
	b := newTestBuilder(version.Policy{}, Config{})
	classified := classify(t, "fix: handle empty input")

	p := b.Build(version.MustParse("1.2.3"), []string{"app"}, classified)
	if p == nil {
		t.Fatal("expected a plan")
	}

	if got := p.Version().String(); got != "1.2.4" {
		t.Errorf("version = %q, want 1.2.4", got)
	}
	if got := p.TagName(); got != "v1.2.4" {
		t.Errorf("tag = %q, want v1.2.4", got)
	}
	if got := p.Branch(); got != DefaultBranch {
		t.Errorf("branch = %q, want %q", got, DefaultBranch)
	}
	if got := p.PRTitle(); got != "chore: release 1.2.4" {
		t.Errorf("title = %q", got)
	}
	if got := p.TagMessage(); got != "Version 1.2.4" {
		t.Errorf("tag message = %q", got)
	}
	if got := p.ReleaseName(); got != "Version 1.2.4" {
		t.Errorf("release name = %q", got)
	}
	if p.Decision().Bump != version.BumpPatch {
		t.Errorf("bump = %v, want patch", p.Decision().Bump)
	}
}

func TestBuildUnifiedPackageVersions(t *testing.T) {
	b := newTestBuilder(version.Policy{}, Config{})
	classified := classify(t, "feat: add exporter")

	p := b.Build(version.MustParse("1.0.0"), []string{"gateway", "core", "cli"}, classified)
	if p == nil {
		t.Fatal("expected a plan")
	}

	want := []string{"cli", "core", "gateway"}
	got := p.Packages()
	if len(got) != len(want) {
		t.Fatalf("packages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("packages = %v, want %v", got, want)
		}
	}

	for name, v := range p.PackageVersions() {
		if v.String() != "1.1.0" {
			t.Errorf("package %s version = %s, want 1.1.0", name, v)
		}
	}
}

func TestBuildBodyContents(t *testing.T) {
	b := newTestBuilder(version.Policy{}, Config{})
	classified := classify(t, "feat: add exporter", "fix: close file handles")

	p := b.Build(version.MustParse("0.9.0"), []string{"core", "cli"}, classified)
	if p == nil {
		t.Fatal("expected a plan")
	}

	body := p.PRBody()
	for _, want := range []string{
		"## New release v0.10.0",
		"### Packages updated",
		"- cli: 0.10.0",
		"- core: 0.10.0",
		"<details><summary><i><b>Changelog</b></i></summary>",
		"### Features",
		"add exporter",
		"### Bug Fixes",
		"close file handles",
		"### Contributors",
		"- Dev One",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}

	// Packages list must precede the changelog details block.
	if strings.Index(body, "### Packages updated") > strings.Index(body, "<details>") {
		t.Error("packages section should come before the changelog block")
	}
}

func TestBuildEmbedsFingerprintMarker(t *testing.T) {
	b := newTestBuilder(version.Policy{}, Config{})
	classified := classify(t, "fix: retry on timeout")

	p := b.Build(version.MustParse("2.0.0"), []string{"app"}, classified)
	if p == nil {
		t.Fatal("expected a plan")
	}

	fp, ok := ExtractFingerprint(p.PRBody())
	if !ok {
		t.Fatalf("no fingerprint marker in body:\n%s", p.PRBody())
	}
	if fp != p.Fingerprint() {
		t.Errorf("marker fingerprint = %s, plan fingerprint = %s", fp, p.Fingerprint())
	}
	if len(fp) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(fp))
	}

	stripped := StripMarker(p.PRBody())
	if strings.Contains(stripped, "convoy:plan") {
		t.Error("StripMarker left the marker in place")
	}
}

func TestBuildFingerprintIsDeterministic(t *testing.T) {
	b := newTestBuilder(version.Policy{}, Config{})
	classified := classify(t, "feat: add exporter")
	current := version.MustParse("1.0.0")

	p1 := b.Build(current, []string{"app"}, classified)
	p2 := b.Build(current, []string{"app"}, classified)
	if p1.Fingerprint() != p2.Fingerprint() {
		t.Error("identical inputs should fingerprint identically")
	}

	p3 := b.Build(current, []string{"app"}, classify(t, "feat: add importer"))
	if p1.Fingerprint() == p3.Fingerprint() {
		t.Error("different changelog content should fingerprint differently")
	}
}

func TestBuildCustomTemplatesAndBranch(t *testing.T) {
	b := newTestBuilder(version.Policy{}, Config{
		Branch: "release/next",
		Templates: Templates{
			PRTitle:     "release: {{ tag }}",
			TagMessage:  "Release {{ version }}",
			ReleaseName: "{{ tag }}",
		},
	})
	classified := classify(t, "feat: add exporter")

	p := b.Build(version.MustParse("1.0.0"), nil, classified)
	if p == nil {
		t.Fatal("expected a plan")
	}
	if got := p.Branch(); got != "release/next" {
		t.Errorf("branch = %q", got)
	}
	if got := p.PRTitle(); got != "release: v1.1.0" {
		t.Errorf("title = %q", got)
	}
	if got := p.TagMessage(); got != "Release 1.1.0" {
		t.Errorf("tag message = %q", got)
	}
	if got := p.ReleaseName(); got != "v1.1.0" {
		t.Errorf("release name = %q", got)
	}
	if strings.Contains(p.PRBody(), "### Packages updated") {
		t.Error("no packages were given, body should omit the packages section")
	}
}

func TestBuildTagPrefix(t *testing.T) {
	classified := classify(t, "fix: handle empty input")
	current := version.MustParse("1.2.3")

	p := newTestBuilder(version.Policy{}, Config{TagPrefix: "release-"}).Build(current, nil, classified)
	if got := p.TagName(); got != "release-1.2.4" {
		t.Errorf("tag = %q, want release-1.2.4", got)
	}
	if !strings.Contains(p.PRBody(), "## New release release-1.2.4") {
		t.Errorf("body header should carry the tag name:\n%s", p.PRBody())
	}

	p = newTestBuilder(version.Policy{}, Config{NoTagPrefix: true}).Build(current, nil, classified)
	if got := p.TagName(); got != "1.2.4" {
		t.Errorf("tag = %q, want 1.2.4", got)
	}
}

func TestExtractFingerprintAbsent(t *testing.T) {
	if _, ok := ExtractFingerprint("## New release v1.0.0\n\nno marker here"); ok {
		t.Error("expected no fingerprint in a marker-less body")
	}
}
