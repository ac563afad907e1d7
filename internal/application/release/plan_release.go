// Package release provides the application use cases driving release
// reconciliation.
package release

import (
	"context"
	"log/slog"

	"github.com/relicta-tech/convoy/internal/config"
	"github.com/relicta-tech/convoy/internal/domain/changelog"
	"github.com/relicta-tech/convoy/internal/domain/changes"
	"github.com/relicta-tech/convoy/internal/domain/plan"
	"github.com/relicta-tech/convoy/internal/domain/version"
)

// GitReader is the read-only repository view the use cases need.
type GitReader interface {
	HeadSHA(ctx context.Context) (string, error)
	CurrentVersion(ctx context.Context, prefix string) (version.SemanticVersion, bool, error)
	CommitsSince(ctx context.Context, ref string, limit int) ([]changes.Commit, error)
}

// PlanReleaseInput represents input for the PlanRelease use case.
type PlanReleaseInput struct {
	// Packages are the workspace package names the plan covers.
	Packages []string
}

// PlanReleaseOutput represents output of the PlanRelease use case.
type PlanReleaseOutput struct {
	// Plan is nil when no commit qualifies for a release.
	Plan           *plan.ReleasePlan
	CurrentVersion version.SemanticVersion
	FirstRelease   bool
	CommitCount    int
}

// PlanReleaseUseCase computes the release plan for the commits since the
// last version tag. The computation is local and side-effect free.
type PlanReleaseUseCase struct {
	git    GitReader
	cfg    *config.Config
	render plan.Renderer
	logger *slog.Logger
}

// NewPlanReleaseUseCase creates a new PlanReleaseUseCase.
func NewPlanReleaseUseCase(git GitReader, cfg *config.Config, render plan.Renderer) *PlanReleaseUseCase {
	return &PlanReleaseUseCase{
		git:    git,
		cfg:    cfg,
		render: render,
		logger: slog.Default().With("usecase", "plan_release"),
	}
}

// Execute computes the release plan.
func (uc *PlanReleaseUseCase) Execute(ctx context.Context, input PlanReleaseInput) (*PlanReleaseOutput, error) {
	resolved, err := uc.cfg.Resolve()
	if err != nil {
		return nil, err
	}

	prefix := uc.cfg.Git.TagPrefix
	current, found, err := uc.git.CurrentVersion(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// An unreleased repository analyzes its whole history from version zero.
	ref := ""
	if found {
		ref = prefix + current.String()
	}

	commits, err := uc.git.CommitsSince(ctx, ref, uc.cfg.Git.MaxAnalyzeCommits)
	if err != nil {
		return nil, err
	}

	classifier := changes.NewClassifier(resolved.Classification)
	classified := classifier.Classify(commits)

	builder := plan.NewBuilder(
		version.NewCalculator(resolved.Policy),
		changelog.NewAssembler(resolved.Changelog),
		uc.render,
		plan.Config{
			Branch:      uc.cfg.Release.BranchPrefix,
			TagPrefix:   prefix,
			NoTagPrefix: prefix == "",
			Templates: plan.Templates{
				PRTitle:     uc.cfg.Release.PRTitle,
				TagMessage:  uc.cfg.Release.TagMessage,
				ReleaseName: uc.cfg.Release.ReleaseName,
			},
		},
	)

	p := builder.Build(current, input.Packages, classified)
	if p == nil {
		uc.logger.Debug("no release due",
			"current_version", current.String(),
			"commits_analyzed", len(commits))
	} else {
		uc.logger.Debug("release planned",
			"current_version", current.String(),
			"next_version", p.Version().String(),
			"commits_analyzed", len(commits))
	}

	return &PlanReleaseOutput{
		Plan:           p,
		CurrentVersion: current,
		FirstRelease:   !found,
		CommitCount:    len(commits),
	}, nil
}
