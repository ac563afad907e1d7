package reconcile

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/convoy/internal/domain/changelog"
	"github.com/relicta-tech/convoy/internal/domain/changes"
	"github.com/relicta-tech/convoy/internal/domain/plan"
	"github.com/relicta-tech/convoy/internal/domain/version"
	"github.com/relicta-tech/convoy/internal/errors"
	"github.com/relicta-tech/convoy/internal/forge"
)

// fakeForge is an in-memory provider recording every mutation.
type fakeForge struct {
	prs      map[int]*forge.PullRequest
	tags     map[string]bool
	releases map[string]*forge.Release
	nextPR   int

	creates int
	updates int
	tagged  int
	relMade int

	failCreatePR  error
	failCreateTag error
	hidePROnce    bool
	tagOnConflict bool
}

func newFakeForge() *fakeForge {
	return &fakeForge{
		prs:      map[int]*forge.PullRequest{},
		tags:     map[string]bool{},
		releases: map[string]*forge.Release{},
		nextPR:   1,
	}
}

func (f *fakeForge) Name() string { return "fake" }

func (f *fakeForge) DefaultBranch(context.Context) (string, error) { return "main", nil }

func (f *fakeForge) FindReleasePR(_ context.Context, branch string) (*forge.PullRequest, error) {
	if f.hidePROnce {
		f.hidePROnce = false
		return nil, nil
	}
	for _, pr := range f.prs {
		if pr.Branch == branch && pr.Open {
			return pr, nil
		}
	}
	return nil, nil
}

func (f *fakeForge) CreateReleasePR(_ context.Context, pr forge.NewPullRequest) (*forge.PullRequest, error) {
	if f.failCreatePR != nil {
		return nil, f.failCreatePR
	}
	f.creates++
	created := &forge.PullRequest{
		Number: f.nextPR,
		Title:  pr.Title,
		Body:   pr.Body,
		Branch: pr.Head,
		Open:   true,
	}
	f.prs[f.nextPR] = created
	f.nextPR++
	return created, nil
}

func (f *fakeForge) UpdateReleasePR(_ context.Context, number int, pr forge.NewPullRequest) (*forge.PullRequest, error) {
	f.updates++
	existing, ok := f.prs[number]
	if !ok {
		return nil, errors.NotFound("fake.UpdateReleasePR", "no such PR")
	}
	existing.Title = pr.Title
	existing.Body = pr.Body
	return existing, nil
}

func (f *fakeForge) TagExists(_ context.Context, tag string) (bool, error) {
	return f.tags[tag], nil
}

func (f *fakeForge) CreateTag(_ context.Context, tag, _, _ string) error {
	if f.failCreateTag != nil {
		if f.tagOnConflict {
			f.tags[tag] = true
		}
		return f.failCreateTag
	}
	f.tagged++
	f.tags[tag] = true
	return nil
}

func (f *fakeForge) GetRelease(_ context.Context, tag string) (*forge.Release, error) {
	return f.releases[tag], nil
}

func (f *fakeForge) CreateRelease(_ context.Context, rel forge.NewRelease) (*forge.Release, error) {
	f.relMade++
	created := &forge.Release{
		TagName: rel.TagName,
		Name:    rel.Name,
		Body:    rel.Body,
		Draft:   rel.Draft,
	}
	f.releases[rel.TagName] = created
	return created, nil
}

type mapRenderer struct{}

func (mapRenderer) RenderString(tmpl string, vars map[string]string) string {
	out := tmpl
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{ "+k+" }}", v)
	}
	return out
}

func buildPlan(t *testing.T, current string, messages ...string) *plan.ReleasePlan {
	t.Helper()
	commits := make([]changes.Commit, len(messages))
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, msg := range messages {
		commits[i] = changes.NewCommit(
			strings.Repeat("b", 39)+string(rune('0'+i)),
			msg,
			changes.WithAuthor("Dev One", "dev@example.com"),
			changes.WithDate(base.Add(time.Duration(i)*time.Minute)),
		)
	}
	classified := changes.NewClassifier(changes.Config{}).Classify(commits)

	builder := plan.NewBuilder(
		version.NewCalculator(version.Policy{}),
		changelog.NewAssembler(changelog.Config{}),
		mapRenderer{},
		plan.Config{},
	)
	return builder.Build(version.MustParse(current), []string{"app"}, classified)
}

func TestReconcilePRNilPlan(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)

	out, err := r.ReconcilePR(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)
	assert.Zero(t, out.Mutations)
	assert.NotEmpty(t, out.RunID)
	assert.Zero(t, f.creates)
}

func TestReconcilePRIsIdempotent(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	first, err := r.ReconcilePR(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionCreatedPR, first.Action)
	assert.Equal(t, 1, first.Mutations)
	assert.Equal(t, string(StateConverged), first.FinalState)

	second, err := r.ReconcilePR(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, second.Action)
	assert.Zero(t, second.Mutations, "second run against converged state must not mutate")
	assert.Equal(t, 1, f.creates)
	assert.Zero(t, f.updates)
}

func TestReconcilePRUpdatesStalePR(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)

	first, err := r.ReconcilePR(context.Background(), buildPlan(t, "1.0.0", "fix: close handles"), Options{})
	require.NoError(t, err)
	require.Equal(t, ActionCreatedPR, first.Action)

	// New history invalidates the fingerprint, the PR body must be rewritten.
	changed := buildPlan(t, "1.0.0", "fix: close handles", "feat: add exporter")
	second, err := r.ReconcilePR(context.Background(), changed, Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdatedPR, second.Action)
	assert.Equal(t, 1, second.Mutations)
	assert.Equal(t, 1, f.updates)

	pr, _ := f.FindReleasePR(context.Background(), changed.Branch())
	fp, ok := plan.ExtractFingerprint(pr.Body)
	require.True(t, ok)
	assert.Equal(t, changed.Fingerprint(), fp)
}

func TestReconcilePRUpdatesWhenMarkerMissing(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	f.prs[1] = &forge.PullRequest{
		Number: 1,
		Title:  "chore: release 1.1.0",
		Body:   "hand-edited body without a marker",
		Branch: p.Branch(),
		Open:   true,
	}
	f.nextPR = 2

	out, err := r.ReconcilePR(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdatedPR, out.Action)
}

func TestReconcilePRDryRun(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	out, err := r.ReconcilePR(context.Background(), p, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, ActionCreatedPR, out.Action)
	assert.Zero(t, out.Mutations)
	assert.Zero(t, f.creates)
}

func TestReconcilePRCreateConflictConverges(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	// Simulate losing the race: the initial lookup sees nothing, the create
	// hits a conflict, and the re-read finds the PR another run opened.
	f.hidePROnce = true
	f.failCreatePR = errors.Conflict("fake.CreateReleasePR", "branch already has a PR")
	f.prs[1] = &forge.PullRequest{Number: 1, Body: p.PRBody(), Branch: p.Branch(), Open: true}
	f.nextPR = 2

	out, err := r.ReconcilePR(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, out.Action)
	assert.Zero(t, out.Mutations)
	assert.Equal(t, 1, out.PR.Number)
}

func TestPublishIsIdempotent(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	first, err := r.Publish(context.Background(), p, "abc123", Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionPublished, first.Action)
	assert.Equal(t, 2, first.Mutations)
	assert.True(t, first.TagCreated)
	assert.Equal(t, string(StateConverged), first.FinalState)

	second, err := r.Publish(context.Background(), p, "abc123", Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionUnchanged, second.Action)
	assert.Zero(t, second.Mutations, "publish re-run must be a pure no-op")
	assert.False(t, second.TagCreated)
	assert.Equal(t, 1, f.tagged)
	assert.Equal(t, 1, f.relMade)
}

func TestPublishCreatesOnlyMissingRelease(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	f.tags[p.TagName()] = true

	out, err := r.Publish(context.Background(), p, "abc123", Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionPublished, out.Action)
	assert.Equal(t, 1, out.Mutations)
	assert.False(t, out.TagCreated)
	assert.Zero(t, f.tagged)
	assert.Equal(t, 1, f.relMade)
	assert.Equal(t, p.ReleaseName(), out.Release.Name)
}

func TestPublishTagConflictConverges(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	// Another runner pushes the tag between our existence check and create:
	// the create conflicts but the re-check sees the tag, so the run goes on
	// to create only the release.
	f.failCreateTag = errors.Conflict("fake.CreateTag", "tag already exists")
	f.tagOnConflict = true

	out, err := r.Publish(context.Background(), p, "abc123", Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionPublished, out.Action)
	assert.Equal(t, 1, out.Mutations, "only the release is created")
	assert.False(t, out.TagCreated)
	assert.Equal(t, 1, f.relMade)
}

func TestPublishDryRun(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)
	p := buildPlan(t, "1.0.0", "feat: add exporter")

	out, err := r.Publish(context.Background(), p, "abc123", Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, ActionPublished, out.Action)
	assert.Zero(t, out.Mutations)
	assert.Zero(t, f.tagged)
	assert.Zero(t, f.relMade)
}

func TestPublishNilPlan(t *testing.T) {
	f := newFakeForge()
	r := New(f, nil)

	out, err := r.Publish(context.Background(), nil, "abc123", Options{})
	require.NoError(t, err)
	assert.Equal(t, ActionNone, out.Action)
	assert.Zero(t, f.tagged)
}
