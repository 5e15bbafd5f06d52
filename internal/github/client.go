// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/model"
)

const (
	// Page size for repository listing; commit listing is capped at one page of this size.
	perPage = 100
	// Length of Commit.ShortHash.
	shortHashLen = 7
)

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client.
// A non-empty baseURL points the client at a GitHub Enterprise or test server.
func NewClient(token, baseURL string, logger *slog.Logger) (*Client, error) {
	ctx := context.Background()
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(ctx, ts)
	}

	gh := github.NewClient(hc)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		logger: logger,
	}, nil
}

// AuthenticatedLogin returns the login of the user owning the token.
func (c *Client) AuthenticatedLogin(ctx context.Context) (string, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", err
	}
	return user.GetLogin(), nil
}

// ListOrgRepositories fetches every repository of an organization.
// It handles API pagination transparently.
func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]model.Repository, error) {
	var allRepos []model.Repository

	opts := &github.RepositoryListByOrgOptions{
		Type: "all",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	for {
		c.logger.Debug("Fetching repositories page", "org", org, "page", opts.Page)

		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, &custom_errors.RepoListError{Org: org, StatusCode: statusCode(err), Err: err}
		}

		for _, repo := range repos {
			allRepos = append(allRepos, toInternalRepository(repo))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRepos, nil
}

// ListCommits fetches up to one page of commits by author since the given time.
// A 409 response (repository without a default branch) is reported as CommitListEmptyRepo.
func (c *Client) ListCommits(ctx context.Context, repo model.Repository, author string, since time.Time) ([]model.Commit, error) {
	opts := &github.CommitsListOptions{
		Author: author,
		Since:  since,
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	commits, _, err := c.gh.Repositories.ListCommits(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		code := statusCode(err)
		kind := custom_errors.CommitListOther
		if code == http.StatusConflict {
			kind = custom_errors.CommitListEmptyRepo
		}
		return nil, &custom_errors.CommitListError{Repo: repo.Name, Kind: kind, StatusCode: code, Err: err}
	}

	out := make([]model.Commit, 0, len(commits))
	for _, commit := range commits {
		out = append(out, toInternalCommit(commit, repo.Name))
	}
	return out, nil
}

// GetCommitDiff fetches a commit as a raw unified diff.
func (c *Client) GetCommitDiff(ctx context.Context, repo model.Repository, sha string) (string, error) {
	diff, _, err := c.gh.Repositories.GetCommitRaw(ctx, repo.Owner, repo.Name, sha, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", &custom_errors.DiffFetchError{Repo: repo.Name, SHA: sha, Err: err}
	}
	return diff, nil
}

// statusCode extracts the HTTP status from a go-github error, or 0.
func statusCode(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode
	}
	return 0
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) model.Repository {
	return model.Repository{
		Owner:     r.GetOwner().GetLogin(),
		Name:      r.GetName(),
		URL:       r.GetHTMLURL(),
		UpdatedAt: r.GetUpdatedAt().Time,
	}
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.Commit.
func toInternalCommit(c *github.RepositoryCommit, repoName string) model.Commit {
	author := c.GetCommit().GetAuthor()
	message := c.GetCommit().GetMessage()
	sha := c.GetSHA()

	commit := model.Commit{
		Hash:        sha,
		ShortHash:   shortHash(sha),
		Subject:     strings.SplitN(message, "\n", 2)[0],
		Message:     message,
		AuthorName:  author.GetName(),
		AuthorEmail: author.GetEmail(),
		Repo:        repoName,
		URL:         c.GetHTMLURL(),
	}
	if date := author.GetDate(); !date.IsZero() {
		commit.Date = date.UTC().Format(time.RFC3339)
		commit.Timestamp = date.Unix()
	}
	return commit
}

func shortHash(sha string) string {
	if len(sha) <= shortHashLen {
		return sha
	}
	return sha[:shortHashLen]
}
