// Package report assembles the daily stand-up text from classified commits.
package report

import (
	"sort"
	"strings"
	"unicode"

	"standup-reporter/internal/model"
)

const (
	// NoCommits is the whole report when nothing was collected.
	NoCommits = "No commits for today."
	// NoStandupItems replaces the Summary body when no commit produced a bullet.
	NoStandupItems = "(no stand-up items)"
	noSubject      = "(no subject)"

	SectionRepositories = "Repositories"
	SectionCommits      = "Commits"
	SectionSummary      = "Summary"
)

// SortCommits returns a copy of commits ordered by timestamp, newest first.
// Equal timestamps keep their input order.
func SortCommits(commits []model.Commit) []model.Commit {
	sorted := make([]model.Commit, len(commits))
	copy(sorted, commits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})
	return sorted
}

// RepoOrder lists repository names by first appearance in commits.
func RepoOrder(commits []model.Commit) []string {
	seen := make(map[string]bool)
	var order []string
	for _, c := range commits {
		if !seen[c.Repo] {
			seen[c.Repo] = true
			order = append(order, c.Repo)
		}
	}
	return order
}

// Stats summarizes what a rendered report contains.
type Stats struct {
	Commits             int
	Repos               int
	Classified          int
	ReposWithNotable    int
	ReposWithAnySummary int
}

// Render builds the daily report. Commits are sorted first, so the output does
// not depend on collection or classification order.
func Render(commits []model.Commit, results model.Classifications) string {
	text, _ := RenderWithStats(commits, results)
	return text
}

// RenderWithStats is Render plus counts for logging.
func RenderWithStats(commits []model.Commit, results model.Classifications) (string, Stats) {
	if len(commits) == 0 {
		return NoCommits, Stats{}
	}

	sorted := SortCommits(commits)
	order := RepoOrder(sorted)

	subjects := make(map[string][]string)
	notable := make(map[string][]string)
	other := make(map[string][]string)
	stats := Stats{Commits: len(sorted), Repos: len(order)}

	for _, c := range sorted {
		subject := c.Subject
		if subject == "" {
			subject = noSubject
		}
		subjects[c.Repo] = append(subjects[c.Repo], subject)

		result, ok := results[c.Key()]
		if !ok {
			continue
		}
		stats.Classified++
		if result.BulletSummary == "" {
			continue
		}
		if result.Notable {
			notable[c.Repo] = append(notable[c.Repo], result.BulletSummary)
		} else {
			other[c.Repo] = append(other[c.Repo], result.BulletSummary)
		}
	}
	stats.ReposWithNotable = len(notable)

	lines := []string{SectionRepositories, strings.Join(order, "\n"), "", SectionCommits}
	for _, repo := range order {
		lines = append(lines, repo)
		for _, s := range subjects[repo] {
			lines = append(lines, "  * "+s)
		}
		lines = append(lines, "")
	}

	lines = append(lines, SectionSummary)
	if len(notable) == 0 && len(other) == 0 {
		lines = append(lines, NoStandupItems)
	} else {
		for _, repo := range order {
			n, o := notable[repo], other[repo]
			if len(n) == 0 && len(o) == 0 {
				continue
			}
			stats.ReposWithAnySummary++
			lines = append(lines, repo)
			for _, b := range n {
				lines = append(lines, "    • "+b)
			}
			for _, b := range o {
				lines = append(lines, "    (context) "+b)
			}
			lines = append(lines, "")
		}
	}

	return strings.TrimRightFunc(strings.Join(lines, "\n"), unicode.IsSpace), stats
}
