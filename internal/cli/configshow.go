package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/relicta-tech/convoy/internal/config"
	"github.com/relicta-tech/convoy/internal/infrastructure/manifest"
)

var (
	showManifestPath string
	showPackage      string
	showOutput       string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Long: `Show the resolved workspace defaults, the per-package overrides and
where the configuration was loaded from.`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().StringVar(&showManifestPath, "manifest-path", "", "version manifest to read package names from")
	configShowCmd.Flags().StringVar(&showPackage, "package", "", "show the resolved view of a single package")
	configShowCmd.Flags().StringVar(&showOutput, "output", "text", "output format (text, json, yaml)")
	configCmd.AddCommand(configShowCmd)
}

// showView is the serializable shape of config show.
type showView struct {
	Source   string               `json:"source,omitempty" yaml:"source,omitempty"`
	Manifest string               `json:"manifest" yaml:"manifest"`
	Forge    config.ForgeConfig   `json:"forge" yaml:"forge"`
	Release  config.ReleaseConfig `json:"release" yaml:"release"`
	Packages []packageView        `json:"packages" yaml:"packages"`
}

// packageView is one package's resolved policy view.
type packageView struct {
	Name                         string   `json:"name" yaml:"name"`
	Version                      string   `json:"version,omitempty" yaml:"version,omitempty"`
	Overridden                   bool     `json:"overridden" yaml:"overridden"`
	CustomTypes                  []string `json:"custom_types,omitempty" yaml:"custom_types,omitempty"`
	ReleaseCommits               string   `json:"release_commits,omitempty" yaml:"release_commits,omitempty"`
	FeaturesAlwaysIncrementMinor bool     `json:"features_always_increment_minor" yaml:"features_always_increment_minor"`
	BreakingAlwaysIncrementMajor bool     `json:"breaking_always_increment_major" yaml:"breaking_always_increment_major"`
	ChangelogSort                string   `json:"changelog_sort" yaml:"changelog_sort"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	manifestPath := cfg.Manifest.Path
	if showManifestPath != "" {
		manifestPath = showManifestPath
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	names := m.PackageNames()
	for _, name := range cfg.PackageNames() {
		if _, ok := m.Packages[name]; !ok {
			names = append(names, name)
		}
	}
	// The workspace itself is always shown, as the first entry.
	names = append([]string{""}, names...)

	view := showView{
		Source:   configPath,
		Manifest: manifestPath,
		Forge:    redactForge(cfg.Forge),
		Release:  cfg.Release,
	}

	for _, name := range names {
		if showPackage != "" && name != showPackage {
			continue
		}
		pv, err := buildPackageView(m, name)
		if err != nil {
			return err
		}
		view.Packages = append(view.Packages, pv)
	}

	if showPackage != "" && len(view.Packages) == 0 {
		return fmt.Errorf("package %q not found in manifest or configuration", showPackage)
	}

	switch showOutput {
	case "json":
		return writeJSON(view)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(view)
	case "text":
		printShowText(view)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (expected text, json or yaml)", showOutput)
	}
}

func buildPackageView(m *manifest.Manifest, name string) (packageView, error) {
	var (
		resolved *config.Resolved
		err      error
	)
	if name == "" {
		resolved, err = cfg.Resolve()
	} else {
		resolved, err = cfg.ResolveFor(name)
	}
	if err != nil {
		return packageView{}, err
	}

	pv := packageView{
		Name:                         name,
		FeaturesAlwaysIncrementMinor: resolved.Policy.FeaturesAlwaysIncrementMinor,
		BreakingAlwaysIncrementMajor: resolved.Policy.BreakingAlwaysIncrementMajor,
		CustomTypes:                  resolved.Classification.CustomTypes,
		ChangelogSort:                string(resolved.Changelog.Sort),
	}
	if name == "" {
		pv.Name = "(workspace)"
		pv.Version = m.Workspace
	} else {
		pv.Version = m.Packages[name]
		_, pv.Overridden = cfg.Packages[name]
	}
	if resolved.Classification.ReleaseCommits != nil {
		pv.ReleaseCommits = resolved.Classification.ReleaseCommits.String()
	}
	return pv, nil
}

// redactForge blanks the token so config show never leaks credentials.
func redactForge(fc config.ForgeConfig) config.ForgeConfig {
	if fc.Token != "" {
		fc.Token = "[REDACTED]"
	}
	return fc
}

func printShowText(view showView) {
	printTitle("Configuration")
	if view.Source != "" {
		printSubtle("  source: " + view.Source)
	} else {
		printSubtle("  source: defaults (no config file found)")
	}
	printSubtle("  manifest: " + view.Manifest)
	fmt.Println()

	fmt.Printf("  provider:      %s\n", view.Forge.Provider)
	if view.Forge.BaseURL != "" {
		fmt.Printf("  base_url:      %s\n", view.Forge.BaseURL)
	}
	if view.Forge.Owner != "" {
		fmt.Printf("  repository:    %s/%s\n", view.Forge.Owner, view.Forge.Repo)
	}
	fmt.Printf("  branch:        %s\n", view.Release.BranchPrefix)
	if len(view.Release.PRLabels) > 0 {
		fmt.Printf("  pr_labels:     %s\n", strings.Join(view.Release.PRLabels, ", "))
	}
	fmt.Println()

	for _, pv := range view.Packages {
		header := pv.Name
		if pv.Version != "" {
			header += " @ " + pv.Version
		}
		if pv.Overridden {
			header += " (overridden)"
		}
		printInfo(header)
		fmt.Printf("    features_always_increment_minor: %v\n", pv.FeaturesAlwaysIncrementMinor)
		fmt.Printf("    breaking_always_increment_major: %v\n", pv.BreakingAlwaysIncrementMajor)
		if pv.ReleaseCommits != "" {
			fmt.Printf("    release_commits: %s\n", pv.ReleaseCommits)
		}
		if len(pv.CustomTypes) > 0 {
			fmt.Printf("    custom_types: %s\n", strings.Join(pv.CustomTypes, ", "))
		}
		fmt.Printf("    changelog_sort: %s\n", pv.ChangelogSort)
	}
}
