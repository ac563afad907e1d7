package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/convoy/internal/application/release"
	"github.com/relicta-tech/convoy/internal/reconcile"
)

var releasePRCmd = &cobra.Command{
	Use:   "release-pr",
	Short: "Create or update the release pull request",
	Long: `Analyze commits since the last version tag and converge the release
pull request onto the computed plan.

No open PR on the release branch means create, a stale one means update,
a matching one means nothing to do. Exits 0 with "nothing to release"
when no commit qualifies for a version bump.`,
	RunE: runReleasePR,
}

func runReleasePR(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newForgeApp()
	if err != nil {
		return err
	}

	if dryRun {
		printDryRunBanner()
	}

	uc := release.NewReleasePRUseCase(a.planner, a.reconciler(), cfg)
	out, err := uc.Execute(ctx, release.ReleasePRInput{
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
		printInfo("Nothing to release")
		return nil
	}

	if outputJSON {
		return writeJSON(outcomeJSON(out.Plan.Version().String(), out.Plan.TagName(), out.Outcome))
	}

	printOutcome(out.Plan.TagName(), out.Outcome)
	return nil
}

// printOutcome renders a reconciliation outcome for humans.
func printOutcome(tag string, outcome *reconcile.Outcome) {
	switch outcome.Action {
	case reconcile.ActionCreatedPR:
		printSuccess(fmt.Sprintf("Created release PR for %s", tag))
	case reconcile.ActionUpdatedPR:
		printSuccess(fmt.Sprintf("Updated release PR for %s", tag))
	case reconcile.ActionUnchanged:
		printInfo(fmt.Sprintf("Release PR for %s already up to date", tag))
	case reconcile.ActionPublished:
		printSuccess(fmt.Sprintf("Published %s", tag))
	case reconcile.ActionNone:
		printInfo("Nothing to do")
	}

	if outcome.PR != nil && outcome.PR.URL != "" {
		printSubtle("  " + outcome.PR.URL)
	}
	if outcome.Release != nil && outcome.Release.URL != "" {
		printSubtle("  " + outcome.Release.URL)
	}
	if dryRun {
		printSubtle(fmt.Sprintf("  dry run, %d mutation(s) skipped", outcome.Mutations))
	}
}

// outcomeJSON shapes a reconciliation outcome for machine consumers.
func outcomeJSON(version, tag string, outcome *reconcile.Outcome) map[string]any {
	out := map[string]any{
		"run_id":      outcome.RunID,
		"action":      string(outcome.Action),
		"version":     version,
		"tag_name":    tag,
		"mutations":   outcome.Mutations,
		"final_state": outcome.FinalState,
		"dry_run":     dryRun,
	}
	if outcome.PR != nil {
		out["pr"] = map[string]any{
			"number": outcome.PR.Number,
			"url":    outcome.PR.URL,
			"branch": outcome.PR.Branch,
		}
	}
	if outcome.Release != nil {
		out["release"] = map[string]any{
			"name": outcome.Release.Name,
			"url":  outcome.Release.URL,
		}
	}
	out["tag_created"] = outcome.TagCreated
	return out
}

func writeJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
