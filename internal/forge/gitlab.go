package forge

import (
	"context"
	"net/http"

	gitlab "github.com/xanzy/go-gitlab"

	"github.com/relicta-tech/convoy/internal/errors"
)

// gitLab is the GitLab gateway. Merge requests map onto the pull request
// surface; GitLab has no draft releases, so NewRelease.Draft is ignored.
type gitLab struct {
	client     *gitlab.Client
	pid        string
	resilience *Resilience
}

func newGitLab(cfg Config) (*gitLab, error) {
	opts := []gitlab.ClientOptionFunc{}
	if cfg.BaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(cfg.BaseURL))
	}
	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, errors.ConfigWrap(err, "forge.newGitLab", "invalid GitLab client configuration")
	}
	return &gitLab{
		client:     client,
		pid:        cfg.Owner + "/" + cfg.Repo,
		resilience: NewResilience(cfg.Resilience),
	}, nil
}

func (g *gitLab) Name() string { return string(ProviderGitLab) }

func (g *gitLab) DefaultBranch(ctx context.Context) (string, error) {
	const op = "forge.gitlab.DefaultBranch"
	return Do(ctx, g.resilience, func(ctx context.Context) (string, error) {
		project, resp, err := g.client.Projects.GetProject(g.pid, &gitlab.GetProjectOptions{}, gitlab.WithContext(ctx))
		if err != nil {
			return "", statusError(op, glStatus(resp), err)
		}
		return project.DefaultBranch, nil
	})
}

func (g *gitLab) FindReleasePR(ctx context.Context, branch string) (*PullRequest, error) {
	const op = "forge.gitlab.FindReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		mrs, resp, err := g.client.MergeRequests.ListProjectMergeRequests(g.pid, &gitlab.ListProjectMergeRequestsOptions{
			State:        gitlab.Ptr("opened"),
			SourceBranch: gitlab.Ptr(branch),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return nil, statusError(op, glStatus(resp), err)
		}
		if len(mrs) == 0 {
			return nil, nil
		}
		return gitlabMR(mrs[0]), nil
	})
}

func (g *gitLab) CreateReleasePR(ctx context.Context, pr NewPullRequest) (*PullRequest, error) {
	const op = "forge.gitlab.CreateReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		opts := &gitlab.CreateMergeRequestOptions{
			Title:        gitlab.Ptr(pr.Title),
			Description:  gitlab.Ptr(pr.Body),
			SourceBranch: gitlab.Ptr(pr.Head),
			TargetBranch: gitlab.Ptr(pr.Base),
		}
		if len(pr.Labels) > 0 {
			labels := gitlab.LabelOptions(pr.Labels)
			opts.Labels = &labels
		}
		created, resp, err := g.client.MergeRequests.CreateMergeRequest(g.pid, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, statusError(op, glStatus(resp), err)
		}
		return gitlabMR(created), nil
	})
}

func (g *gitLab) UpdateReleasePR(ctx context.Context, number int, pr NewPullRequest) (*PullRequest, error) {
	const op = "forge.gitlab.UpdateReleasePR"
	return Do(ctx, g.resilience, func(ctx context.Context) (*PullRequest, error) {
		updated, resp, err := g.client.MergeRequests.UpdateMergeRequest(g.pid, number, &gitlab.UpdateMergeRequestOptions{
			Title:       gitlab.Ptr(pr.Title),
			Description: gitlab.Ptr(pr.Body),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return nil, statusError(op, glStatus(resp), err)
		}
		return gitlabMR(updated), nil
	})
}

func (g *gitLab) TagExists(ctx context.Context, tag string) (bool, error) {
	const op = "forge.gitlab.TagExists"
	return Do(ctx, g.resilience, func(ctx context.Context) (bool, error) {
		_, resp, err := g.client.Tags.GetTag(g.pid, tag, gitlab.WithContext(ctx))
		if err != nil {
			if glStatus(resp) == http.StatusNotFound {
				return false, nil
			}
			return false, statusError(op, glStatus(resp), err)
		}
		return true, nil
	})
}

func (g *gitLab) CreateTag(ctx context.Context, tag, sha, message string) error {
	const op = "forge.gitlab.CreateTag"
	_, err := Do(ctx, g.resilience, func(ctx context.Context) (struct{}, error) {
		_, resp, err := g.client.Tags.CreateTag(g.pid, &gitlab.CreateTagOptions{
			TagName: gitlab.Ptr(tag),
			Ref:     gitlab.Ptr(sha),
			Message: gitlab.Ptr(message),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return struct{}{}, statusError(op, glStatus(resp), err)
		}
		return struct{}{}, nil
	})
	return err
}

func (g *gitLab) GetRelease(ctx context.Context, tag string) (*Release, error) {
	const op = "forge.gitlab.GetRelease"
	return Do(ctx, g.resilience, func(ctx context.Context) (*Release, error) {
		rel, resp, err := g.client.Releases.GetRelease(g.pid, tag, gitlab.WithContext(ctx))
		if err != nil {
			if glStatus(resp) == http.StatusNotFound {
				return nil, nil
			}
			return nil, statusError(op, glStatus(resp), err)
		}
		return gitlabRelease(rel), nil
	})
}

func (g *gitLab) CreateRelease(ctx context.Context, rel NewRelease) (*Release, error) {
	const op = "forge.gitlab.CreateRelease"
	return Do(ctx, g.resilience, func(ctx context.Context) (*Release, error) {
		created, resp, err := g.client.Releases.CreateRelease(g.pid, &gitlab.CreateReleaseOptions{
			Name:        gitlab.Ptr(rel.Name),
			TagName:     gitlab.Ptr(rel.TagName),
			Description: gitlab.Ptr(rel.Body),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return nil, statusError(op, glStatus(resp), err)
		}
		return gitlabRelease(created), nil
	})
}

func glStatus(resp *gitlab.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func gitlabMR(mr *gitlab.MergeRequest) *PullRequest {
	return &PullRequest{
		Number: mr.IID,
		Title:  mr.Title,
		Body:   mr.Description,
		Branch: mr.SourceBranch,
		URL:    mr.WebURL,
		Open:   mr.State == "opened",
	}
}

func gitlabRelease(rel *gitlab.Release) *Release {
	return &Release{
		TagName: rel.TagName,
		Name:    rel.Name,
		Body:    rel.Description,
		URL:     rel.Links.Self,
	}
}
