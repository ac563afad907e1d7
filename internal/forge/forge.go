// Package forge abstracts the hosting providers a release converges on:
// GitHub, GitLab and Gitea. Every implementation exposes the same small
// surface of lookups and mutations so the reconciler stays provider-agnostic.
package forge

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/relicta-tech/convoy/internal/errors"
)

// Provider identifies a hosting provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
	ProviderGitea  Provider = "gitea"
)

// ParseProvider parses a provider name.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderGitLab:
		return ProviderGitLab, nil
	case ProviderGitea:
		return ProviderGitea, nil
	default:
		return "", errors.Validation("forge.ParseProvider",
			fmt.Sprintf("unknown provider %q (expected github, gitlab or gitea)", s))
	}
}

// PullRequest is an observed pull (or merge) request on the provider.
type PullRequest struct {
	Number int
	Title  string
	Body   string
	Branch string
	URL    string
	Open   bool
}

// NewPullRequest describes a pull request to create or the desired state of
// an existing one.
type NewPullRequest struct {
	Title  string
	Body   string
	Head   string
	Base   string
	Labels []string
	Draft  bool
}

// Release is an observed provider release.
type Release struct {
	TagName string
	Name    string
	Body    string
	URL     string
	Draft   bool
}

// NewRelease describes a release to create.
type NewRelease struct {
	TagName    string
	Name       string
	Body       string
	TargetSHA  string
	Draft      bool
	Prerelease bool
}

// Forge is the provider gateway. Lookups return (nil, nil) or (false, nil)
// for absence; only transport and auth failures surface as errors. Mutations
// are plain creates, idempotency lives in the caller's check-then-act loop.
type Forge interface {
	// Name returns the provider name for logging.
	Name() string

	// DefaultBranch returns the repository default branch.
	DefaultBranch(ctx context.Context) (string, error)

	// FindReleasePR returns the open pull request whose head is the given
	// branch, or nil when none exists.
	FindReleasePR(ctx context.Context, branch string) (*PullRequest, error)

	// CreateReleasePR opens a new pull request.
	CreateReleasePR(ctx context.Context, pr NewPullRequest) (*PullRequest, error)

	// UpdateReleasePR rewrites the title and body of an existing pull request.
	UpdateReleasePR(ctx context.Context, number int, pr NewPullRequest) (*PullRequest, error)

	// TagExists reports whether the tag already exists on the remote.
	TagExists(ctx context.Context, tag string) (bool, error)

	// CreateTag creates an annotated tag pointing at the given commit.
	CreateTag(ctx context.Context, tag, sha, message string) error

	// GetRelease returns the release attached to the tag, or nil when there
	// is none.
	GetRelease(ctx context.Context, tag string) (*Release, error)

	// CreateRelease publishes a release for an existing tag.
	CreateRelease(ctx context.Context, rel NewRelease) (*Release, error)
}

// Config selects and configures a provider gateway.
type Config struct {
	Provider Provider
	// BaseURL overrides the API endpoint, required for Gitea and self-hosted
	// GitLab, optional for GitHub Enterprise.
	BaseURL string
	Token   string
	Owner   string
	Repo    string

	Resilience ResilienceConfig
}

// New builds the gateway for the configured provider.
func New(cfg Config) (Forge, error) {
	const op = "forge.New"
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.Validation(op, "repository owner and name are required")
	}
	if cfg.Token == "" {
		return nil, errors.Config(op, "no API token configured for "+string(cfg.Provider))
	}

	switch cfg.Provider {
	case ProviderGitHub:
		return newGitHub(cfg)
	case ProviderGitLab:
		return newGitLab(cfg)
	case ProviderGitea:
		return newGitea(cfg)
	default:
		return nil, errors.Validation(op, fmt.Sprintf("unknown provider %q", cfg.Provider))
	}
}

// statusKind maps an HTTP status to the error kind the reconciler branches
// on. 404 is not mapped here: absence is data, handled at the call site.
func statusKind(status int) errors.Kind {
	switch {
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return errors.KindConflict
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.KindValidation
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errors.KindTimeout
	case status >= 500 || status == http.StatusTooManyRequests:
		return errors.KindNetwork
	default:
		return errors.KindUnknown
	}
}

// statusError wraps a provider error with the kind derived from its status.
func statusError(op string, status int, err error) error {
	switch statusKind(status) {
	case errors.KindConflict:
		return errors.ConflictWrap(err, op, fmt.Sprintf("provider rejected the change (HTTP %d)", status))
	case errors.KindValidation:
		return errors.ValidationWrap(err, op, fmt.Sprintf("authentication or permission failure (HTTP %d)", status))
	case errors.KindTimeout:
		return errors.TimeoutWrap(err, op, fmt.Sprintf("provider timed out (HTTP %d)", status))
	case errors.KindNetwork:
		return errors.NetworkWrap(err, op, fmt.Sprintf("transient provider failure (HTTP %d)", status))
	default:
		return errors.Wrap(err, errors.KindUnknown, op, fmt.Sprintf("provider request failed (HTTP %d)", status))
	}
}
