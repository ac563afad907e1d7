package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/relicta-tech/convoy/internal/errors"
)

// gitea is the Gitea gateway, a thin client over the Gitea REST v1 API.
// Connection-level retries live in the retryablehttp client; the shared
// resilience wrapper adds rate limiting and the circuit breaker, so fortify
// retry is disabled here to avoid retrying twice.
type gitea struct {
	http       *retryablehttp.Client
	baseURL    string
	token      string
	owner      string
	repo       string
	resilience *Resilience
}

func newGitea(cfg Config) (*gitea, error) {
	if cfg.BaseURL == "" {
		return nil, errors.Config("forge.newGitea", "Gitea requires an explicit base URL")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.Logger = nil

	res := cfg.Resilience
	res.RetryAttempts = 0

	return &gitea{
		http:       client,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		resilience: NewResilience(res),
	}, nil
}

func (g *gitea) Name() string { return string(ProviderGitea) }

type giteaRepo struct {
	DefaultBranch string `json:"default_branch"`
}

type giteaPR struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"html_url"`
	State  string `json:"state"`
	Head   struct {
		Ref string `json:"ref"`
	} `json:"head"`
}

type giteaRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	URL     string `json:"html_url"`
	Draft   bool   `json:"draft"`
}

func (g *gitea) DefaultBranch(ctx context.Context) (string, error) {
	const op = "forge.gitea.DefaultBranch"
	return Do(ctx, g.resilience, func(ctx context.Context) (string, error) {
		var repo giteaRepo
		status, err := g.do(ctx, http.MethodGet, g.repoPath(""), nil, &repo)
		if err != nil {
			return "", statusError(op, status, err)
		}
		return repo.DefaultBranch, nil
	})
}

func (g *gitea) FindReleasePR(ctx context.Context, branch string) (*PullRequest, error) {
	const op = "forge.gitea.FindReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		var prs []giteaPR
		status, err := g.do(ctx, http.MethodGet, g.repoPath("/pulls?state=open"), nil, &prs)
		if err != nil {
			return nil, statusError(op, status, err)
		}
		for i := range prs {
			if prs[i].Head.Ref == branch {
				return giteaToPR(&prs[i]), nil
			}
		}
		return nil, nil
	})
}

func (g *gitea) CreateReleasePR(ctx context.Context, pr NewPullRequest) (*PullRequest, error) {
	const op = "forge.gitea.CreateReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		// The pulls endpoint takes label IDs, not names, so labels are not
		// forwarded here.
		payload := map[string]any{
			"title": pr.Title,
			"body":  pr.Body,
			"head":  pr.Head,
			"base":  pr.Base,
		}
		var created giteaPR
		status, err := g.do(ctx, http.MethodPost, g.repoPath("/pulls"), payload, &created)
		if err != nil {
			return nil, statusError(op, status, err)
		}
		return giteaToPR(&created), nil
	})
}

func (g *gitea) UpdateReleasePR(ctx context.Context, number int, pr NewPullRequest) (*PullRequest, error) {
	const op = "forge.gitea.UpdateReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		payload := map[string]any{
			"title": pr.Title,
			"body":  pr.Body,
		}
		var updated giteaPR
		status, err := g.do(ctx, http.MethodPatch, g.repoPath(fmt.Sprintf("/pulls/%d", number)), payload, &updated)
		if err != nil {
			return nil, statusError(op, status, err)
		}
		return giteaToPR(&updated), nil
	})
}

func (g *gitea) TagExists(ctx context.Context, tag string) (bool, error) {
	const op = "forge.gitea.TagExists"
	return Do(ctx, g.resilience, func(ctx context.Context) (bool, error) {
		status, err := g.do(ctx, http.MethodGet, g.repoPath("/tags/"+tag), nil, nil)
		if err != nil {
			if status == http.StatusNotFound {
				return false, nil
			}
			return false, statusError(op, status, err)
		}
		return true, nil
	})
}

func (g *gitea) CreateTag(ctx context.Context, tag, sha, message string) error {
	const op = "forge.gitea.CreateTag"
	_, err := Do(ctx, g.resilience, func(ctx context.Context) (struct{}, error) {
		payload := map[string]any{
			"tag_name": tag,
			"target":   sha,
			"message":  message,
		}
		status, err := g.do(ctx, http.MethodPost, g.repoPath("/tags"), payload, nil)
		if err != nil {
			return struct{}{}, statusError(op, status, err)
		}
		return struct{}{}, nil
	})
	return err
}

func (g *gitea) GetRelease(ctx context.Context, tag string) (*Release, error) {
	const op = "forge.gitea.GetRelease"
	return Do(ctx, g.resilience, func(ctx context.Context) (*Release, error) {
		var rel giteaRelease
		status, err := g.do(ctx, http.MethodGet, g.repoPath("/releases/tags/"+tag), nil, &rel)
		if err != nil {
			if status == http.StatusNotFound {
				return nil, nil
			}
			return nil, statusError(op, status, err)
		}
		return giteaToRelease(&rel), nil
	})
}

func (g *gitea) CreateRelease(ctx context.Context, rel NewRelease) (*Release, error) {
	const op = "forge.gitea.CreateRelease"
	return Do(ctx, g.resilience, func(ctx context.Context) (*Release, error) {
		payload := map[string]any{
			"tag_name":   rel.TagName,
			"name":       rel.Name,
			"body":       rel.Body,
			"draft":      rel.Draft,
			"prerelease": rel.Prerelease,
		}
		if rel.TargetSHA != "" {
			payload["target_commitish"] = rel.TargetSHA
		}
		var created giteaRelease
		status, err := g.do(ctx, http.MethodPost, g.repoPath("/releases"), payload, &created)
		if err != nil {
			return nil, statusError(op, status, err)
		}
		return giteaToRelease(&created), nil
	})
}

func (g *gitea) repoPath(suffix string) string {
	return fmt.Sprintf("%s/api/v1/repos/%s/%s%s", g.baseURL, g.owner, g.repo, suffix)
}

// do performs one API request. Returns the HTTP status and a non-nil error
// for any non-2xx response; the caller decides whether 404 means absence.
func (g *gitea) do(ctx context.Context, method, url string, payload, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "token "+g.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%s %s: HTTP %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func giteaToPR(pr *giteaPR) *PullRequest {
	return &PullRequest{
		Number: pr.Number,
		Title:  pr.Title,
		Body:   pr.Body,
		Branch: pr.Head.Ref,
		URL:    pr.URL,
		Open:   pr.State == "open",
	}
}

func giteaToRelease(rel *giteaRelease) *Release {
	return &Release{
		TagName: rel.TagName,
		Name:    rel.Name,
		Body:    rel.Body,
		URL:     rel.URL,
		Draft:   rel.Draft,
	}
}
