package reconcile

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/relicta-tech/convoy/internal/domain/plan"
	"github.com/relicta-tech/convoy/internal/errors"
	"github.com/relicta-tech/convoy/internal/forge"
)

// Action is what a reconciliation run did (or would do, in dry-run).
type Action string

const (
	ActionNone      Action = "none"
	ActionCreatedPR Action = "created_pr"
	ActionUpdatedPR Action = "updated_pr"
	ActionUnchanged Action = "unchanged"
	ActionPublished Action = "published"
)

// Options tune one reconciliation run.
type Options struct {
	// DryRun observes and diffs but performs no mutation.
	DryRun bool
	// BaseBranch is the PR target. Empty means the repository default branch.
	BaseBranch string
	// Labels are attached to a newly created release PR.
	Labels []string
	// Draft opens the release PR as a draft.
	Draft bool
	// DraftRelease publishes the provider release as a draft.
	DraftRelease bool
	// PrereleaseRelease forces the prerelease flag on the release object.
	// A prerelease version sets it regardless.
	PrereleaseRelease bool
}

// Outcome reports what one run observed and changed. Mutations counts actual
// provider writes; a re-run against converged state reports zero.
type Outcome struct {
	RunID      string
	Action     Action
	FinalState string
	Mutations  int
	PR         *forge.PullRequest
	Release    *forge.Release
	TagCreated bool
}

// Reconciler converges provider state onto a release plan. It never rolls
// back: a failed run leaves completed steps in place and the next run picks
// up from the observed remote state.
type Reconciler struct {
	forge  forge.Forge
	logger *slog.Logger
}

// New creates a reconciler for the given provider gateway.
func New(f forge.Forge, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{forge: f, logger: logger}
}

// ReconcilePR converges the open release PR onto the plan. The branch name is
// the idempotency key: no open PR on it means create, a stale fingerprint
// means update, a matching fingerprint means nothing to do.
func (r *Reconciler) ReconcilePR(ctx context.Context, p *plan.ReleasePlan, opts Options) (*Outcome, error) {
	const op = "reconcile.ReconcilePR"

	outcome := &Outcome{RunID: uuid.NewString(), Action: ActionNone}
	if p == nil {
		r.logger.Info("no release pending, nothing to reconcile", "run_id", outcome.RunID)
		return outcome, nil
	}

	machine, err := newPRMachine()
	if err != nil {
		return outcome, errors.InternalWrap(err, op, "building reconciliation machine")
	}
	defer func() { outcome.FinalState = string(machine.State()) }()

	log := r.logger.With(
		"run_id", outcome.RunID,
		"provider", r.forge.Name(),
		"branch", p.Branch(),
		"version", p.Version().String(),
	)

	existing, err := r.forge.FindReleasePR(ctx, p.Branch())
	if err != nil {
		machine.Send(EventFail)
		return outcome, errors.Wrap(err, errors.GetKind(err), op, "looking up release PR")
	}

	switch {
	case existing == nil:
		machine.Send(EventPRMissing)
		return r.createPR(ctx, machine, log, p, opts, outcome)

	case prMatchesPlan(existing, p):
		machine.Send(EventPRCurrent)
		log.Info("release PR already matches the plan", "pr", existing.Number)
		outcome.Action = ActionUnchanged
		outcome.PR = existing
		return outcome, nil

	default:
		machine.Send(EventPRStale)
		return r.updatePR(ctx, machine, log, existing, p, outcome, opts)
	}
}

func (r *Reconciler) createPR(ctx context.Context, machine *Machine, log *slog.Logger, p *plan.ReleasePlan, opts Options, outcome *Outcome) (*Outcome, error) {
	const op = "reconcile.createPR"

	if opts.DryRun {
		machine.Send(EventMutated)
		log.Info("dry-run: would create release PR", "title", p.PRTitle())
		outcome.Action = ActionCreatedPR
		return outcome, nil
	}

	base := opts.BaseBranch
	if base == "" {
		var err error
		base, err = r.forge.DefaultBranch(ctx)
		if err != nil {
			machine.Send(EventFail)
			return outcome, errors.Wrap(err, errors.GetKind(err), op, "resolving base branch")
		}
	}

	created, err := r.forge.CreateReleasePR(ctx, forge.NewPullRequest{
		Title:  p.PRTitle(),
		Body:   p.PRBody(),
		Head:   p.Branch(),
		Base:   base,
		Labels: opts.Labels,
		Draft:  opts.Draft,
	})
	if err != nil {
		if errors.IsKind(err, errors.KindConflict) {
			if pr := r.recheckPR(ctx, p); pr != nil {
				// Lost a race against a concurrent run that created it first.
				machine.Send(EventMutated)
				log.Info("release PR appeared concurrently", "pr", pr.Number)
				outcome.Action = ActionUnchanged
				outcome.PR = pr
				return outcome, nil
			}
		}
		machine.Send(EventFail)
		return outcome, errors.Wrap(err, errors.GetKind(err), op, "creating release PR")
	}

	machine.Send(EventMutated)
	log.Info("created release PR", "pr", created.Number, "url", created.URL)
	outcome.Action = ActionCreatedPR
	outcome.Mutations = 1
	outcome.PR = created
	return outcome, nil
}

func (r *Reconciler) updatePR(ctx context.Context, machine *Machine, log *slog.Logger, existing *forge.PullRequest, p *plan.ReleasePlan, outcome *Outcome, opts Options) (*Outcome, error) {
	const op = "reconcile.updatePR"

	if opts.DryRun {
		machine.Send(EventMutated)
		log.Info("dry-run: would update release PR", "pr", existing.Number)
		outcome.Action = ActionUpdatedPR
		outcome.PR = existing
		return outcome, nil
	}

	updated, err := r.forge.UpdateReleasePR(ctx, existing.Number, forge.NewPullRequest{
		Title: p.PRTitle(),
		Body:  p.PRBody(),
	})
	if err != nil {
		machine.Send(EventFail)
		return outcome, errors.Wrap(err, errors.GetKind(err), op, "updating release PR")
	}

	machine.Send(EventMutated)
	log.Info("updated release PR", "pr", updated.Number)
	outcome.Action = ActionUpdatedPR
	outcome.Mutations = 1
	outcome.PR = updated
	return outcome, nil
}

// recheckPR re-reads the release PR after a create conflict.
func (r *Reconciler) recheckPR(ctx context.Context, p *plan.ReleasePlan) *forge.PullRequest {
	pr, err := r.forge.FindReleasePR(ctx, p.Branch())
	if err != nil {
		return nil
	}
	return pr
}

// Publish converges the tag and provider release for the plan. Check before
// act on each: an existing tag is never recreated, an existing release never
// rewritten, and a fully published version is a pure no-op.
func (r *Reconciler) Publish(ctx context.Context, p *plan.ReleasePlan, headSHA string, opts Options) (*Outcome, error) {
	const op = "reconcile.Publish"

	outcome := &Outcome{RunID: uuid.NewString(), Action: ActionNone}
	if p == nil {
		return outcome, nil
	}

	machine, err := newPublishMachine()
	if err != nil {
		return outcome, errors.InternalWrap(err, op, "building publish machine")
	}
	defer func() { outcome.FinalState = string(machine.State()) }()

	log := r.logger.With(
		"run_id", outcome.RunID,
		"provider", r.forge.Name(),
		"tag", p.TagName(),
	)

	exists, err := r.forge.TagExists(ctx, p.TagName())
	if err != nil {
		machine.Send(EventFail)
		return outcome, errors.Wrap(err, errors.GetKind(err), op, "checking tag")
	}

	if exists {
		machine.Send(EventTagPresent)
		log.Debug("tag already exists")
	} else {
		machine.Send(EventTagMissing)
		if opts.DryRun {
			log.Info("dry-run: would create tag", "target", headSHA)
			machine.Send(EventMutated)
		} else {
			if err := r.createTag(ctx, p, headSHA); err != nil {
				machine.Send(EventFail)
				return outcome, errors.Wrap(err, errors.GetKind(err), op, "creating tag")
			}
			log.Info("created tag", "target", headSHA)
			machine.Send(EventMutated)
			outcome.Mutations++
			outcome.TagCreated = true
		}
	}

	existing, err := r.forge.GetRelease(ctx, p.TagName())
	if err != nil {
		machine.Send(EventFail)
		return outcome, errors.Wrap(err, errors.GetKind(err), op, "checking release")
	}

	if existing != nil {
		machine.Send(EventReleasePresent)
		log.Debug("release already exists", "url", existing.URL)
		outcome.Release = existing
		if outcome.Mutations == 0 {
			outcome.Action = ActionUnchanged
		} else {
			outcome.Action = ActionPublished
		}
		return outcome, nil
	}

	machine.Send(EventReleaseMissing)
	if opts.DryRun {
		machine.Send(EventMutated)
		log.Info("dry-run: would create release", "name", p.ReleaseName())
		outcome.Action = ActionPublished
		return outcome, nil
	}

	created, err := r.createRelease(ctx, p, headSHA, opts)
	if err != nil {
		machine.Send(EventFail)
		return outcome, errors.Wrap(err, errors.GetKind(err), op, "creating release")
	}

	machine.Send(EventMutated)
	log.Info("created release", "url", created.URL)
	outcome.Action = ActionPublished
	outcome.Mutations++
	outcome.Release = created
	return outcome, nil
}

func (r *Reconciler) createTag(ctx context.Context, p *plan.ReleasePlan, headSHA string) error {
	err := r.forge.CreateTag(ctx, p.TagName(), headSHA, p.TagMessage())
	if err == nil {
		return nil
	}
	// A conflict means another run tagged first; that is convergence, not
	// failure.
	if errors.IsKind(err, errors.KindConflict) {
		exists, checkErr := r.forge.TagExists(ctx, p.TagName())
		if checkErr == nil && exists {
			return nil
		}
	}
	return err
}

func (r *Reconciler) createRelease(ctx context.Context, p *plan.ReleasePlan, headSHA string, opts Options) (*forge.Release, error) {
	created, err := r.forge.CreateRelease(ctx, forge.NewRelease{
		TagName:    p.TagName(),
		Name:       p.ReleaseName(),
		Body:       p.Changelog().Markdown(),
		TargetSHA:  headSHA,
		Draft:      opts.DraftRelease,
		Prerelease: opts.PrereleaseRelease || p.Version().IsPrerelease(),
	})
	if err == nil {
		return created, nil
	}
	if errors.IsKind(err, errors.KindConflict) {
		existing, checkErr := r.forge.GetRelease(ctx, p.TagName())
		if checkErr == nil && existing != nil {
			return existing, nil
		}
	}
	return nil, err
}

// prMatchesPlan compares the observed PR against the plan. The embedded
// fingerprint is authoritative; a missing marker always forces an update.
func prMatchesPlan(pr *forge.PullRequest, p *plan.ReleasePlan) bool {
	fp, ok := plan.ExtractFingerprint(pr.Body)
	return ok && fp == p.Fingerprint()
}
