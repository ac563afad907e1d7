package release

import (
	"context"
	"log/slog"

	"github.com/relicta-tech/convoy/internal/config"
	"github.com/relicta-tech/convoy/internal/domain/plan"
)

// UpdateInput represents input for the Update use case.
type UpdateInput struct {
	Packages []string
	DryRun   bool
}

// UpdateOutput represents output of the Update use case.
type UpdateOutput struct {
	Plan         *plan.ReleasePlan
	ManifestPath string
	Changelog    string
	FilesWritten bool
}

// NothingToRelease reports whether the run ended without a release due.
func (o *UpdateOutput) NothingToRelease() bool {
	return o.Plan == nil
}

// UpdateUseCase computes the release plan and writes the manifest and
// changelog files. Purely local: no gateway call is ever issued.
type UpdateUseCase struct {
	planner *PlanReleaseUseCase
	cfg     *config.Config
	logger  *slog.Logger
}

// NewUpdateUseCase creates a new UpdateUseCase.
func NewUpdateUseCase(planner *PlanReleaseUseCase, cfg *config.Config) *UpdateUseCase {
	return &UpdateUseCase{
		planner: planner,
		cfg:     cfg,
		logger:  slog.Default().With("usecase", "update"),
	}
}

// Execute computes the plan and converges the local files onto it.
func (uc *UpdateUseCase) Execute(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	planned, err := uc.planner.Execute(ctx, PlanReleaseInput{Packages: input.Packages})
	if err != nil {
		return nil, err
	}
	if planned.Plan == nil {
		uc.logger.Info("nothing to update")
		return &UpdateOutput{}, nil
	}
	p := planned.Plan

	out := &UpdateOutput{
		Plan:         p,
		ManifestPath: uc.cfg.Manifest.Path,
		Changelog:    uc.cfg.Changelog.File,
	}

	if input.DryRun {
		return out, nil
	}

	if err := writeReleaseFiles(uc.cfg, p); err != nil {
		return out, err
	}
	out.FilesWritten = true

	return out, nil
}
