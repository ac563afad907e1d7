package cli

import (
	"fmt"

	"github.com/relicta-tech/convoy/internal/application/release"
	"github.com/relicta-tech/convoy/internal/forge"
	"github.com/relicta-tech/convoy/internal/infrastructure/git"
	"github.com/relicta-tech/convoy/internal/infrastructure/manifest"
	"github.com/relicta-tech/convoy/internal/infrastructure/template"
	"github.com/relicta-tech/convoy/internal/reconcile"
)

// app bundles the collaborators a command run needs. Built once per
// invocation from the loaded configuration.
type app struct {
	repo     *git.Repository
	forge    forge.Forge
	planner  *release.PlanReleaseUseCase
	packages []string
}

// newLocalApp wires the collaborators for commands that never touch the
// provider: local git analysis, config resolution and file writes.
func newLocalApp() (*app, error) {
	repo, err := git.Open(".")
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	m, err := manifest.Load(cfg.Manifest.Path)
	if err != nil {
		return nil, err
	}
	packages := m.PackageNames()
	// Per-package config entries name workspace members even before the
	// manifest records a version for them.
	for _, name := range cfg.PackageNames() {
		if _, ok := m.Packages[name]; !ok {
			packages = append(packages, name)
		}
	}

	return &app{
		repo:     repo,
		planner:  release.NewPlanReleaseUseCase(repo, cfg, template.NewRenderer()),
		packages: packages,
	}, nil
}

// newForgeApp wires the collaborators for commands that converge provider
// state, on top of the local ones.
func newForgeApp() (*app, error) {
	a, err := newLocalApp()
	if err != nil {
		return nil, err
	}

	provider, err := forge.ParseProvider(cfg.Forge.Provider)
	if err != nil {
		return nil, err
	}

	f, err := forge.New(forge.Config{
		Provider:   provider,
		BaseURL:    cfg.Forge.BaseURL,
		Token:      cfg.Forge.Token,
		Owner:      cfg.Forge.Owner,
		Repo:       cfg.Forge.Repo,
		Resilience: forge.DefaultResilienceConfig(),
	})
	if err != nil {
		return nil, err
	}
	a.forge = f

	return a, nil
}

// reconciler builds the reconciler over the wired provider gateway.
func (a *app) reconciler() *reconcile.Reconciler {
	return reconcile.New(a.forge, nil)
}
