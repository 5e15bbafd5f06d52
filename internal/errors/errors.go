// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrNoDailyReports is returned when no daily report file exists for the requested week.
var ErrNoDailyReports = errors.New("no daily standup files found for week")

// ErrMissingCredential is returned when a required credential is not configured.
type ErrMissingCredential struct {
	Name string
}

func (e *ErrMissingCredential) Error() string {
	return fmt.Sprintf("%s is a required configuration field", e.Name)
}

// RepoListError is returned when the organization's repositories cannot be listed.
// It aborts the whole run.
type RepoListError struct {
	Org        string
	StatusCode int
	Err        error
}

func (e *RepoListError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("listing repositories for %q failed (status %d): %v", e.Org, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("listing repositories for %q failed: %v", e.Org, e.Err)
}

func (e *RepoListError) Unwrap() error { return e.Err }

// CommitListKind distinguishes why listing a repository's commits failed.
type CommitListKind int

const (
	// CommitListOther covers every failure that is not an empty repository.
	CommitListOther CommitListKind = iota
	// CommitListEmptyRepo means the repository has no default branch yet (HTTP 409).
	CommitListEmptyRepo
)

func (k CommitListKind) String() string {
	switch k {
	case CommitListEmptyRepo:
		return "empty_repo"
	default:
		return "other"
	}
}

// CommitListError is returned when listing one repository's commits fails.
type CommitListError struct {
	Repo       string
	Kind       CommitListKind
	StatusCode int
	Err        error
}

func (e *CommitListError) Error() string {
	return fmt.Sprintf("listing commits for %q failed (%s, status %d): %v", e.Repo, e.Kind, e.StatusCode, e.Err)
}

func (e *CommitListError) Unwrap() error { return e.Err }

// DiffFetchError is returned when a single commit diff cannot be fetched.
type DiffFetchError struct {
	Repo string
	SHA  string
	Err  error
}

func (e *DiffFetchError) Error() string {
	return fmt.Sprintf("fetching diff for %s@%s failed: %v", e.Repo, e.SHA, e.Err)
}

func (e *DiffFetchError) Unwrap() error { return e.Err }

// ClassifyKind distinguishes why a commit produced no classification.
type ClassifyKind int

const (
	ClassifyNoCredential ClassifyKind = iota
	ClassifyNetworkError
	ClassifyParseError
)

func (k ClassifyKind) String() string {
	switch k {
	case ClassifyNoCredential:
		return "no_credential"
	case ClassifyNetworkError:
		return "network_error"
	case ClassifyParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// ClassifyError is returned when a commit could not be classified.
type ClassifyError struct {
	Kind ClassifyKind
	Err  error
}

func (e *ClassifyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("classification skipped: %s", e.Kind)
	}
	return fmt.Sprintf("classification failed (%s): %v", e.Kind, e.Err)
}

func (e *ClassifyError) Unwrap() error { return e.Err }

// IsClassifyKind reports whether err is a ClassifyError of the given kind.
func IsClassifyKind(err error, kind ClassifyKind) bool {
	var ce *ClassifyError
	return errors.As(err, &ce) && ce.Kind == kind
}
