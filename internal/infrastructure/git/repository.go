// Package git reads release-relevant state from a local repository: commit
// history since the last version tag, and the tags themselves. Tags are the
// only version oracle; nothing here consults manifest files.
package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/relicta-tech/convoy/internal/domain/changes"
	"github.com/relicta-tech/convoy/internal/domain/version"
	"github.com/relicta-tech/convoy/internal/errors"
)

// errStopIteration signals early termination of commit iteration.
var errStopIteration = stderrors.New("stop iteration")

// DefaultLocalTimeout bounds local read operations so a corrupt or enormous
// repository cannot hang a run.
const DefaultLocalTimeout = 30 * time.Second

// withLocalTimeout applies the local timeout unless the context already
// carries a shorter deadline.
func withLocalTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < DefaultLocalTimeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, DefaultLocalTimeout)
}

// VersionTag is a tag whose name parses as a semantic version.
type VersionTag struct {
	Name    string
	SHA     string
	Version version.SemanticVersion
}

// Repository is a read-mostly view over a local git repository.
type Repository struct {
	repo *gogit.Repository
	path string
}

// Open opens the repository at path.
func Open(path string) (*Repository, error) {
	const op = "git.Open"

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.GitWrap(err, op, "failed to resolve repository path")
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.GitWrap(err, op, fmt.Sprintf("failed to open repository at %s", absPath))
	}

	return &Repository{repo: repo, path: absPath}, nil
}

// Root returns the repository path this view was opened on.
func (r *Repository) Root() string {
	return r.path
}

// HeadSHA returns the current HEAD commit hash.
func (r *Repository) HeadSHA(_ context.Context) (string, error) {
	const op = "git.HeadSHA"

	head, err := r.repo.Head()
	if err != nil {
		return "", errors.GitWrap(err, op, "failed to resolve HEAD")
	}
	return head.Hash().String(), nil
}

// CurrentBranch returns the checked-out branch name, or an error on a
// detached HEAD.
func (r *Repository) CurrentBranch(_ context.Context) (string, error) {
	const op = "git.CurrentBranch"

	head, err := r.repo.Head()
	if err != nil {
		return "", errors.GitWrap(err, op, "failed to resolve HEAD")
	}
	if !head.Name().IsBranch() {
		return "", errors.Git(op, "HEAD is detached")
	}
	return head.Name().Short(), nil
}

// IsClean reports whether the working tree has no uncommitted changes.
func (r *Repository) IsClean(_ context.Context) (bool, error) {
	const op = "git.IsClean"

	worktree, err := r.repo.Worktree()
	if err != nil {
		return false, errors.GitWrap(err, op, "failed to get worktree")
	}
	status, err := worktree.Status()
	if err != nil {
		return false, errors.GitWrap(err, op, "failed to get worktree status")
	}
	return status.IsClean(), nil
}

// CommitsSince returns the commits reachable from HEAD but not from ref,
// newest first. An empty ref walks the whole history. limit caps the walk;
// zero means unbounded.
func (r *Repository) CommitsSince(ctx context.Context, ref string, limit int) ([]changes.Commit, error) {
	const op = "git.CommitsSince"

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	var stop plumbing.Hash
	if ref != "" {
		hash, err := r.resolveRef(ref)
		if err != nil {
			return nil, errors.GitWrap(err, op, fmt.Sprintf("failed to resolve reference %s", ref))
		}
		stop = hash
	}

	head, err := r.repo.Head()
	if err != nil {
		return nil, errors.GitWrap(err, op, "failed to resolve HEAD")
	}

	iter, err := r.repo.Log(&gogit.LogOptions{
		From:  head.Hash(),
		Order: gogit.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, errors.GitWrap(err, op, "failed to open log iterator")
	}
	defer iter.Close()

	var commits []changes.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if ref != "" && c.Hash == stop {
			return errStopIteration
		}
		if limit > 0 && len(commits) >= limit {
			return errStopIteration
		}
		commits = append(commits, convertCommit(c))
		return nil
	})
	if err != nil && !stderrors.Is(err, errStopIteration) {
		if ctx.Err() != nil {
			return nil, errors.TimeoutWrap(ctx.Err(), op, "history walk canceled")
		}
		return nil, errors.GitWrap(err, op, "failed to iterate commits")
	}

	return commits, nil
}

// LatestVersionTag returns the highest version tag matching the prefix, by
// semver precedence rather than tag date. Returns nil when the repository
// carries no version tag, which callers treat as version zero.
func (r *Repository) LatestVersionTag(ctx context.Context, prefix string) (*VersionTag, error) {
	tags, err := r.VersionTags(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return &tags[0], nil
}

// VersionTags returns all tags matching the prefix that parse as semantic
// versions, highest first. Non-version tags are skipped, not errors.
func (r *Repository) VersionTags(ctx context.Context, prefix string) ([]VersionTag, error) {
	const op = "git.VersionTags"

	ctx, cancel := withLocalTimeout(ctx)
	defer cancel()

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, errors.GitWrap(err, op, "failed to open tags iterator")
	}
	defer iter.Close()

	var tags []VersionTag
	err = iter.ForEach(func(tagRef *plumbing.Reference) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := tagRef.Name().Short()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			return nil
		}
		v, parseErr := version.Parse(strings.TrimPrefix(name, prefix))
		if parseErr != nil {
			return nil
		}

		tags = append(tags, VersionTag{
			Name:    name,
			SHA:     r.tagCommitSHA(tagRef),
			Version: v,
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.TimeoutWrap(ctx.Err(), op, "tag walk canceled")
		}
		return nil, errors.GitWrap(err, op, "failed to iterate tags")
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Version.GreaterThan(tags[j].Version)
	})
	return tags, nil
}

// CurrentVersion returns the version of the highest tag, or version zero with
// found=false when the repository has never been released.
func (r *Repository) CurrentVersion(ctx context.Context, prefix string) (version.SemanticVersion, bool, error) {
	tag, err := r.LatestVersionTag(ctx, prefix)
	if err != nil {
		return version.SemanticVersion{}, false, err
	}
	if tag == nil {
		return version.SemanticVersion{}, false, nil
	}
	return tag.Version, true, nil
}

// tagCommitSHA resolves a tag reference to the commit it points at,
// dereferencing annotated tag objects.
func (r *Repository) tagCommitSHA(tagRef *plumbing.Reference) string {
	if obj, err := r.repo.TagObject(tagRef.Hash()); err == nil {
		return obj.Target.String()
	}
	return tagRef.Hash().String()
}

// resolveRef resolves a revision string (tag, branch, hash) to a commit hash.
func (r *Repository) resolveRef(ref string) (plumbing.Hash, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	// Revisions pointing at annotated tags resolve to the tag object.
	if obj, tagErr := r.repo.TagObject(*hash); tagErr == nil {
		return obj.Target, nil
	}
	return *hash, nil
}

func convertCommit(c *object.Commit) changes.Commit {
	return changes.NewCommit(
		c.Hash.String(),
		c.Message,
		changes.WithAuthor(c.Author.Name, c.Author.Email),
		changes.WithDate(c.Author.When),
	)
}
