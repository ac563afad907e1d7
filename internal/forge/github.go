package forge

import (
	"context"
	"net/http"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"

	"github.com/relicta-tech/convoy/internal/errors"
)

// gitHub is the GitHub gateway, backed by the REST v3 API.
type gitHub struct {
	client     *github.Client
	owner      string
	repo       string
	resilience *Resilience
}

func newGitHub(cfg Config) (*gitHub, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, errors.ConfigWrap(err, "forge.newGitHub", "invalid GitHub base URL")
		}
	}

	return &gitHub{
		client:     client,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		resilience: NewResilience(cfg.Resilience),
	}, nil
}

func (g *gitHub) Name() string { return string(ProviderGitHub) }

func (g *gitHub) DefaultBranch(ctx context.Context) (string, error) {
	const op = "forge.github.DefaultBranch"
	return Do(ctx, g.resilience, func(ctx context.Context) (string, error) {
		repo, resp, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
		if err != nil {
			return "", statusError(op, respStatus(resp), err)
		}
		return repo.GetDefaultBranch(), nil
	})
}

func (g *gitHub) FindReleasePR(ctx context.Context, branch string) (*PullRequest, error) {
	const op = "forge.github.FindReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		prs, resp, err := g.client.PullRequests.List(ctx, g.owner, g.repo, &github.PullRequestListOptions{
			State:       "open",
			Head:        g.owner + ":" + branch,
			ListOptions: github.ListOptions{PerPage: 10},
		})
		if err != nil {
			return nil, statusError(op, respStatus(resp), err)
		}
		if len(prs) == 0 {
			return nil, nil
		}
		return githubPR(prs[0]), nil
	})
}

func (g *gitHub) CreateReleasePR(ctx context.Context, pr NewPullRequest) (*PullRequest, error) {
	const op = "forge.github.CreateReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		created, resp, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
			Title: github.String(pr.Title),
			Body:  github.String(pr.Body),
			Head:  github.String(pr.Head),
			Base:  github.String(pr.Base),
			Draft: github.Bool(pr.Draft),
		})
		if err != nil {
			return nil, statusError(op, respStatus(resp), err)
		}
		if len(pr.Labels) > 0 {
			// Labels are additive metadata; a failure here does not invalidate
			// the PR that was just created.
			_, _, _ = g.client.Issues.AddLabelsToIssue(ctx, g.owner, g.repo, created.GetNumber(), pr.Labels)
		}
		return githubPR(created), nil
	})
}

func (g *gitHub) UpdateReleasePR(ctx context.Context, number int, pr NewPullRequest) (*PullRequest, error) {
	const op = "forge.github.UpdateReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		updated, resp, err := g.client.PullRequests.Edit(ctx, g.owner, g.repo, number, &github.PullRequest{
			Title: github.String(pr.Title),
			Body:  github.String(pr.Body),
		})
		if err != nil {
			return nil, statusError(op, respStatus(resp), err)
		}
		return githubPR(updated), nil
	})
}

func (g *gitHub) TagExists(ctx context.Context, tag string) (bool, error) {
	const op = "forge.github.TagExists"
	return Do(ctx, g.resilience, func(ctx context.Context) (bool, error) {
		_, resp, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "tags/"+tag)
		if err != nil {
			if respStatus(resp) == http.StatusNotFound {
				return false, nil
			}
			return false, statusError(op, respStatus(resp), err)
		}
		return true, nil
	})
}

func (g *gitHub) CreateTag(ctx context.Context, tag, sha, message string) error {
	const op = "forge.github.CreateTag"
	_, err := Do(ctx, g.resilience, func(ctx context.Context) (struct{}, error) {
		obj, resp, err := g.client.Git.CreateTag(ctx, g.owner, g.repo, &github.Tag{
			Tag:     github.String(tag),
			Message: github.String(message),
			Object: &github.GitObject{
				SHA:  github.String(sha),
				Type: github.String("commit"),
			},
		})
		if err != nil {
			return struct{}{}, statusError(op, respStatus(resp), err)
		}
		_, resp, err = g.client.Git.CreateRef(ctx, g.owner, g.repo, &github.Reference{
			Ref:    github.String("refs/tags/" + tag),
			Object: &github.GitObject{SHA: obj.SHA},
		})
		if err != nil {
			return struct{}{}, statusError(op, respStatus(resp), err)
		}
		return struct{}{}, nil
	})
	return err
}

func (g *gitHub) GetRelease(ctx context.Context, tag string) (*Release, error) {
	const op = "forge.github.GetRelease"
	return Do(ctx, g.resilience, func(ctx context.Context) (*Release, error) {
		rel, resp, err := g.client.Repositories.GetReleaseByTag(ctx, g.owner, g.repo, tag)
		if err != nil {
			if respStatus(resp) == http.StatusNotFound {
				return nil, nil
			}
			return nil, statusError(op, respStatus(resp), err)
		}
		return githubRelease(rel), nil
	})
}

func (g *gitHub) CreateRelease(ctx context.Context, rel NewRelease) (*Release, error) {
	const op = "forge.github.CreateRelease"
	return Do(ctx, g.resilience, func(ctx context.Context) (*Release, error) {
		release := &github.RepositoryRelease{
			TagName:    github.String(rel.TagName),
			Name:       github.String(rel.Name),
			Body:       github.String(rel.Body),
			Draft:      github.Bool(rel.Draft),
			Prerelease: github.Bool(rel.Prerelease),
		}
		if rel.TargetSHA != "" {
			release.TargetCommitish = github.String(rel.TargetSHA)
		}
		created, resp, err := g.client.Repositories.CreateRelease(ctx, g.owner, g.repo, release)
		if err != nil {
			return nil, statusError(op, respStatus(resp), err)
		}
		return githubRelease(created), nil
	})
}

func respStatus(resp *github.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func githubPR(pr *github.PullRequest) *PullRequest {
	return &PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		Branch: pr.GetHead().GetRef(),
		URL:    pr.GetHTMLURL(),
		Open:   pr.GetState() == "open",
	}
}

func githubRelease(rel *github.RepositoryRelease) *Release {
	return &Release{
		TagName: rel.GetTagName(),
		Name:    rel.GetName(),
		Body:    rel.GetBody(),
		URL:     rel.GetHTMLURL(),
		Draft:   rel.GetDraft(),
	}
}
