package cli

import (
	"github.com/spf13/cobra"

	"github.com/relicta-tech/convoy/internal/application/release"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Write manifest and changelog files for the planned version",
	Long: `Compute the release plan and converge the local version manifest and
changelog files onto it.

Purely local: no provider call is ever issued. Useful inside the release
PR branch or in air-gapped pipelines.`,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newLocalApp()
	if err != nil {
		return err
	}

	if dryRun {
		printDryRunBanner()
	}

	uc := release.NewUpdateUseCase(a.planner, cfg)
	out, err := uc.Execute(ctx, release.UpdateInput{
		Packages: a.packages,
		DryRun:   dryRun,
	})
	if err != nil {
		return err
	}

	if out.NothingToRelease() {
		if outputJSON {
			return writeJSON(map[string]any{"action": "none", "reason": "nothing to release"})
		}
		printInfo("Nothing to update")
		return nil
	}

	if outputJSON {
		return writeJSON(map[string]any{
			"action":        "update",
			"version":       out.Plan.Version().String(),
			"tag_name":      out.Plan.TagName(),
			"manifest":      out.ManifestPath,
			"changelog":     out.Changelog,
			"files_written": out.FilesWritten,
			"dry_run":       dryRun,
		})
	}

	printTitle("Update to " + out.Plan.TagName())
	if out.FilesWritten {
		printSuccess("Updated " + out.ManifestPath)
		printSuccess("Updated " + out.Changelog)
	} else {
		printSubtle("  dry run, no files written")
	}
	return nil
}
