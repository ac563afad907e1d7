package release

import (
	"context"
	"log/slog"

	"github.com/relicta-tech/convoy/internal/config"
	"github.com/relicta-tech/convoy/internal/domain/plan"
	"github.com/relicta-tech/convoy/internal/reconcile"
)

// ReleasePRInput represents input for the ReleasePR use case.
type ReleasePRInput struct {
	Packages []string
	DryRun   bool
}

// ReleasePROutput represents output of the ReleasePR use case.
type ReleasePROutput struct {
	Plan    *plan.ReleasePlan
	Outcome *reconcile.Outcome
}

// NothingToRelease reports whether the run ended without a release due.
func (o *ReleasePROutput) NothingToRelease() bool {
	return o.Plan == nil
}

// ReleasePRUseCase plans the next release and converges the release PR
// toward it.
type ReleasePRUseCase struct {
	planner    *PlanReleaseUseCase
	reconciler *reconcile.Reconciler
	cfg        *config.Config
	logger     *slog.Logger
}

// NewReleasePRUseCase creates a new ReleasePRUseCase.
func NewReleasePRUseCase(planner *PlanReleaseUseCase, reconciler *reconcile.Reconciler, cfg *config.Config) *ReleasePRUseCase {
	return &ReleasePRUseCase{
		planner:    planner,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     slog.Default().With("usecase", "release_pr"),
	}
}

// Execute plans and reconciles the release PR. A nil plan is a normal
// terminal state, not an error.
func (uc *ReleasePRUseCase) Execute(ctx context.Context, input ReleasePRInput) (*ReleasePROutput, error) {
	planned, err := uc.planner.Execute(ctx, PlanReleaseInput{Packages: input.Packages})
	if err != nil {
		return nil, err
	}
	if planned.Plan == nil {
		uc.logger.Info("nothing to release")
		return &ReleasePROutput{}, nil
	}

	outcome, err := uc.reconciler.ReconcilePR(ctx, planned.Plan, reconcile.Options{
		DryRun:     input.DryRun,
		BaseBranch: uc.cfg.Release.BaseBranch,
		Labels:     uc.cfg.Release.PRLabels,
	})
	if err != nil {
		return nil, err
	}

	return &ReleasePROutput{Plan: planned.Plan, Outcome: outcome}, nil
}
