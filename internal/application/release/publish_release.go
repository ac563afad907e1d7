package release

import (
	"context"
	"log/slog"
	"time"

	"github.com/relicta-tech/convoy/internal/config"
	"github.com/relicta-tech/convoy/internal/domain/plan"
	"github.com/relicta-tech/convoy/internal/infrastructure/manifest"
	"github.com/relicta-tech/convoy/internal/reconcile"
)

// PublishReleaseInput represents input for the PublishRelease use case.
type PublishReleaseInput struct {
	Packages []string
	DryRun   bool
	// WriteFiles additionally converges the version manifest and changelog
	// files after the remote state.
	WriteFiles bool
}

// PublishReleaseOutput represents output of the PublishRelease use case.
type PublishReleaseOutput struct {
	Plan         *plan.ReleasePlan
	Outcome      *reconcile.Outcome
	ManifestPath string
	Changelog    string
	FilesWritten bool
}

// NothingToRelease reports whether the run ended without a release due.
func (o *PublishReleaseOutput) NothingToRelease() bool {
	return o.Plan == nil
}

// PublishReleaseUseCase converges tag and release objects for the planned
// version, optionally followed by the local manifest and changelog files.
type PublishReleaseUseCase struct {
	planner    *PlanReleaseUseCase
	reconciler *reconcile.Reconciler
	git        GitReader
	cfg        *config.Config
	logger     *slog.Logger
}

// NewPublishReleaseUseCase creates a new PublishReleaseUseCase.
func NewPublishReleaseUseCase(planner *PlanReleaseUseCase, reconciler *reconcile.Reconciler, git GitReader, cfg *config.Config) *PublishReleaseUseCase {
	return &PublishReleaseUseCase{
		planner:    planner,
		reconciler: reconciler,
		git:        git,
		cfg:        cfg,
		logger:     slog.Default().With("usecase", "publish_release"),
	}
}

// Execute plans the release and converges tag, release object and, when
// requested, the local files. File writes happen only after the remote
// converged; a failed remote step leaves the files untouched for the next
// run.
func (uc *PublishReleaseUseCase) Execute(ctx context.Context, input PublishReleaseInput) (*PublishReleaseOutput, error) {
	planned, err := uc.planner.Execute(ctx, PlanReleaseInput{Packages: input.Packages})
	if err != nil {
		return nil, err
	}
	if planned.Plan == nil {
		uc.logger.Info("nothing to release")
		return &PublishReleaseOutput{}, nil
	}
	p := planned.Plan

	headSHA, err := uc.git.HeadSHA(ctx)
	if err != nil {
		return nil, err
	}

	outcome, err := uc.reconciler.Publish(ctx, p, headSHA, reconcile.Options{
		DryRun:            input.DryRun,
		DraftRelease:      uc.cfg.Release.GitReleaseDraft,
		PrereleaseRelease: uc.cfg.Release.GitReleasePrerelease,
	})
	if err != nil {
		return nil, err
	}

	out := &PublishReleaseOutput{
		Plan:         p,
		Outcome:      outcome,
		ManifestPath: uc.cfg.Manifest.Path,
		Changelog:    uc.cfg.Changelog.File,
	}

	if input.WriteFiles && !input.DryRun {
		if err := writeReleaseFiles(uc.cfg, p); err != nil {
			return out, err
		}
		out.FilesWritten = true
	}

	return out, nil
}

// writeReleaseFiles converges the manifest and changelog files onto the plan.
// Both writes are idempotent: an already-recorded version is left alone.
func writeReleaseFiles(cfg *config.Config, p *plan.ReleasePlan) error {
	m, err := manifest.Load(cfg.Manifest.Path)
	if err != nil {
		return err
	}
	m.Apply(p.Version(), p.PackageVersions())
	if err := manifest.Save(cfg.Manifest.Path, m); err != nil {
		return err
	}

	return manifest.PrependChangelog(cfg.Changelog.File, p.Version(), time.Now(), p.Changelog().Markdown())
}
