// internal/collector/collector.go
package collector

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/model"
)

// Source is the part of the GitHub client the collector needs.
type Source interface {
	AuthenticatedLogin(ctx context.Context) (string, error)
	ListOrgRepositories(ctx context.Context, org string) ([]model.Repository, error)
	ListCommits(ctx context.Context, repo model.Repository, author string, since time.Time) ([]model.Commit, error)
	GetCommitDiff(ctx context.Context, repo model.Repository, sha string) (string, error)
}

// Params selects whose activity is collected and from when.
type Params struct {
	Org string
	// Author defaults to the login owning the token when empty.
	Author string
	Since  time.Time
}

// Collector gathers an author's recent commits across an organization.
type Collector struct {
	source      Source
	logger      *slog.Logger
	concurrency int
}

// NewCollector creates a new Collector instance.
func NewCollector(source Source, logger *slog.Logger, concurrency int) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		source:      source,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Collect returns every commit by the author in repositories updated since p.Since.
// Only resolving the author and listing repositories are fatal; per-repository
// and per-diff failures are logged and skipped. The result is unsorted.
func (c *Collector) Collect(ctx context.Context, p Params) ([]model.Commit, error) {
	author := p.Author
	if author == "" {
		login, err := c.source.AuthenticatedLogin(ctx)
		if err != nil {
			return nil, err
		}
		author = login
	}
	logger := c.logger.With("org", p.Org, "author", author, "since", p.Since.Format(time.RFC3339))
	logger.Info("Fetching commits")

	repos, err := c.source.ListOrgRepositories(ctx, p.Org)
	if err != nil {
		return nil, err
	}
	repos = updatedSince(repos, p.Since)
	logger.Info("Listed repositories", "count", len(repos), "repos", repoNames(repos))

	perRepo, err := c.listCommits(ctx, logger, repos, author, p.Since)
	if err != nil {
		return nil, err
	}

	commits, err := c.attachDiffs(ctx, logger, repos, perRepo)
	if err != nil {
		return nil, err
	}
	logger.Info("Collected commits", "count", len(commits))
	return commits, nil
}

// listCommits lists each repository's commits concurrently. Slot i belongs to repos[i].
func (c *Collector) listCommits(ctx context.Context, logger *slog.Logger, repos []model.Repository, author string, since time.Time) ([][]model.Commit, error) {
	perRepo := make([][]model.Commit, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, repo := range repos {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			commits, err := c.source.ListCommits(gctx, repo, author, since)
			if err != nil {
				var listErr *custom_errors.CommitListError
				if errors.As(err, &listErr) && listErr.Kind == custom_errors.CommitListEmptyRepo {
					return nil
				}
				if !errors.Is(err, context.Canceled) {
					logger.Warn("Failed to list commits", "repo", repo.Name, "error", err)
				}
				return nil
			}
			if len(commits) > 0 {
				logger.Info("Found commits", "repo", repo.Name, "count", len(commits))
			}
			perRepo[i] = commits
			return nil
		})
	}

	_ = g.Wait()
	return perRepo, ctx.Err()
}

// attachDiffs fetches every commit's diff concurrently and returns the final,
// flattened commit values. A failed fetch leaves Diff nil.
func (c *Collector) attachDiffs(ctx context.Context, logger *slog.Logger, repos []model.Repository, perRepo [][]model.Commit) ([]model.Commit, error) {
	type job struct {
		repo   model.Repository
		commit model.Commit
	}
	var jobs []job
	for i, commits := range perRepo {
		for _, commit := range commits {
			jobs = append(jobs, job{repo: repos[i], commit: commit})
		}
	}

	out := make([]model.Commit, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, j := range jobs {
		g.Go(func() error {
			commit := j.commit
			if gctx.Err() == nil {
				diff, err := c.source.GetCommitDiff(gctx, j.repo, commit.Hash)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						logger.Warn("Failed to fetch diff", "repo", j.repo.Name, "short_hash", commit.ShortHash, "error", err)
					}
				} else {
					commit.Diff = &diff
				}
			}
			out[i] = commit
			return nil
		})
	}

	_ = g.Wait()
	return out, ctx.Err()
}

func updatedSince(repos []model.Repository, since time.Time) []model.Repository {
	var kept []model.Repository
	for _, r := range repos {
		if !r.UpdatedAt.Before(since) {
			kept = append(kept, r)
		}
	}
	return kept
}

func repoNames(repos []model.Repository) string {
	names := make([]string, len(repos))
	for i, r := range repos {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}
