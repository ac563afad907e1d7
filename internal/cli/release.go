package cli

import (
	"github.com/spf13/cobra"

	"github.com/relicta-tech/convoy/internal/application/release"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Create the tag and release for the planned version",
	Long: `Converge the version tag and the provider release object onto the
computed plan.

The tag is created first and confirmed before the release object is
attempted; a release without its backing tag is meaningless. A run
against already-converged state is a pure no-op.`,
	RunE: runRelease,
}

func runRelease(cmd *cobra.Command, args []string) error {
	return runPublishPath(cmd, false)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Release plus manifest and changelog file writes",
	Long: `Run the release path and then converge the local version manifest and
changelog files onto the same plan.

File writes happen only after the remote converged; a failed remote
step leaves the files untouched for the next run.`,
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	return runPublishPath(cmd, true)
}

// runPublishPath is the shared body of release and publish: the two commands
// differ only in whether local files are written afterwards.
func runPublishPath(cmd *cobra.Command, writeFiles bool) error {
	ctx := cmd.Context()

	a, err := newForgeApp()
	if err != nil {
		return err
	}

	if dryRun {
		printDryRunBanner()
	}

	uc := release.NewPublishReleaseUseCase(a.planner, a.reconciler(), a.repo, cfg)
	out, err := uc.Execute(ctx, release.PublishReleaseInput{
		Packages:   a.packages,
		DryRun:     dryRun,
		WriteFiles: writeFiles,
	})
	if err != nil {
		return err
	}

	if out.NothingToRelease() {
		if outputJSON {
			return writeJSON(map[string]any{"action": "none", "reason": "nothing to release"})
		}
		printInfo("Nothing to release")
		return nil
	}

	if outputJSON {
		result := outcomeJSON(out.Plan.Version().String(), out.Plan.TagName(), out.Outcome)
		result["files_written"] = out.FilesWritten
		return writeJSON(result)
	}

	printOutcome(out.Plan.TagName(), out.Outcome)
	if out.FilesWritten {
		printSuccess("Updated " + out.ManifestPath)
		printSuccess("Updated " + out.Changelog)
	}
	return nil
}
