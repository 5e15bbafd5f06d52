// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "standup-reporter/internal/errors"
	"standup-reporter/internal/model"
)

// setupTestClient creates a httptest server and a client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	// We can pass an empty token because we are not authenticating to the real GitHub.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, err := NewClient("", server.URL, logger)
	require.NoError(t, err)

	return client, server
}

var testRepo = model.Repository{Owner: "acme", Name: "web"}

func TestClient_AuthenticatedLogin(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		fmt.Fprintln(w, `{"login": "octocat"}`)
	})
	client, server := setupTestClient(t, handler)
	defer server.Close()

	login, err := client.AuthenticatedLogin(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "octocat", login)
}

func TestClient_ListOrgRepositories(t *testing.T) {
	t.Run("follows pagination links", func(t *testing.T) {
		var requestCount int32
		var serverURL string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, "/orgs/acme/repos", r.URL.Path)
			assert.Equal(t, "all", r.URL.Query().Get("type"))
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))

			if r.URL.Query().Get("page") == "" {
				w.Header().Set("Link", fmt.Sprintf(`<%s/orgs/acme/repos?page=2>; rel="next"`, serverURL))
				fmt.Fprintln(w, `[{"name": "web", "owner": {"login": "acme"}, "updated_at": "2026-10-16T10:00:00Z"}]`)
				return
			}
			fmt.Fprintln(w, `[{"name": "api", "owner": {"login": "acme"}, "updated_at": "2026-01-01T00:00:00Z"}]`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()
		serverURL = server.URL

		repos, err := client.ListOrgRepositories(context.Background(), "acme")

		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
		require.Len(t, repos, 2)
		assert.Equal(t, "web", repos[0].Name)
		assert.Equal(t, "acme", repos[0].Owner)
		assert.Equal(t, time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC), repos[0].UpdatedAt.UTC())
		assert.Equal(t, "api", repos[1].Name)
	})

	t.Run("wraps failures in RepoListError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintln(w, `{"message": "Not Found"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.ListOrgRepositories(context.Background(), "acme")

		var listErr *custom_errors.RepoListError
		require.ErrorAs(t, err, &listErr)
		assert.Equal(t, "acme", listErr.Org)
		assert.Equal(t, http.StatusNotFound, listErr.StatusCode)
	})
}

func TestClient_ListCommits(t *testing.T) {
	since := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	t.Run("normalizes commits", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/acme/web/commits", r.URL.Path)
			assert.Equal(t, "octocat", r.URL.Query().Get("author"))
			assert.Equal(t, "2026-10-15T12:00:00Z", r.URL.Query().Get("since"))
			assert.Equal(t, "100", r.URL.Query().Get("per_page"))
			fmt.Fprintln(w, `[
				{
					"sha": "abcdef1234567890",
					"html_url": "https://github.com/acme/web/commit/abcdef1234567890",
					"commit": {
						"message": "Add login page\n\nWith remember-me support",
						"author": {"name": "Octo Cat", "email": "octo@example.com", "date": "2026-10-16T09:30:00Z"}
					}
				},
				{"sha": "123", "commit": {"message": ""}}
			]`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		commits, err := client.ListCommits(context.Background(), testRepo, "octocat", since)

		require.NoError(t, err)
		require.Len(t, commits, 2)

		c := commits[0]
		assert.Equal(t, "abcdef1234567890", c.Hash)
		assert.Equal(t, "abcdef1", c.ShortHash)
		assert.Equal(t, "Add login page", c.Subject)
		assert.Equal(t, "Add login page\n\nWith remember-me support", c.Message)
		assert.Equal(t, "Octo Cat", c.AuthorName)
		assert.Equal(t, "octo@example.com", c.AuthorEmail)
		assert.Equal(t, "2026-10-16T09:30:00Z", c.Date)
		assert.Equal(t, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC).Unix(), c.Timestamp)
		assert.Equal(t, "web", c.Repo)
		assert.Nil(t, c.Diff)

		assert.Equal(t, "123", commits[1].ShortHash)
		assert.Empty(t, commits[1].Subject)
		assert.Zero(t, commits[1].Timestamp)
	})

	t.Run("reports an empty repository on 409", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprintln(w, `{"message": "Git Repository is empty."}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.ListCommits(context.Background(), testRepo, "octocat", since)

		var listErr *custom_errors.CommitListError
		require.ErrorAs(t, err, &listErr)
		assert.Equal(t, custom_errors.CommitListEmptyRepo, listErr.Kind)
		assert.Equal(t, "web", listErr.Repo)
	})

	t.Run("reports other failures", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.ListCommits(context.Background(), testRepo, "octocat", since)

		var listErr *custom_errors.CommitListError
		require.ErrorAs(t, err, &listErr)
		assert.Equal(t, custom_errors.CommitListOther, listErr.Kind)
		assert.Equal(t, http.StatusInternalServerError, listErr.StatusCode)
	})
}

func TestClient_GetCommitDiff(t *testing.T) {
	t.Run("requests the diff media type", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/acme/web/commits/abc123", r.URL.Path)
			assert.Contains(t, r.Header.Get("Accept"), "diff")
			fmt.Fprint(w, "diff --git a/x b/x\n+hello\n")
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		diff, err := client.GetCommitDiff(context.Background(), testRepo, "abc123")

		require.NoError(t, err)
		assert.Equal(t, "diff --git a/x b/x\n+hello\n", diff)
	})

	t.Run("wraps failures in DiffFetchError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprintln(w, `{"message": "diff too large"}`)
		})
		client, server := setupTestClient(t, handler)
		defer server.Close()

		_, err := client.GetCommitDiff(context.Background(), testRepo, "abc123")

		var diffErr *custom_errors.DiffFetchError
		require.ErrorAs(t, err, &diffErr)
		assert.Equal(t, "abc123", diffErr.SHA)
	})
}
