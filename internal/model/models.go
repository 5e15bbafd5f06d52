// internal/model/models.go
package model

import "time"

// Repository represents the metadata of a GitHub repository that matters for collection.
type Repository struct {
	Owner     string
	Name      string
	URL       string
	UpdatedAt time.Time
}

// Commit is one normalized commit observed in a repository during a run.
// Values are built once by the collector and never mutated afterwards.
type Commit struct {
	Hash        string
	ShortHash   string
	Subject     string
	Message     string
	AuthorName  string
	AuthorEmail string
	Date        string
	Timestamp   int64
	Repo        string
	URL         string
	// Diff is nil when the diff could not be fetched.
	Diff *string
}

// Key identifies a commit within a single run.
func (c Commit) Key() string {
	return c.Repo + "@" + c.Hash
}

// DiffText returns the diff or an empty string when none was fetched.
func (c Commit) DiffText() string {
	if c.Diff == nil {
		return ""
	}
	return *c.Diff
}

// Category is the classifier's label for a commit.
type Category string

const (
	CategoryFeature        Category = "feature"
	CategoryImprovement    Category = "user-visible improvement"
	CategoryBugFix         Category = "bug fix"
	CategoryInfrastructure Category = "infrastructure"
	CategoryRefactor       Category = "refactor"
	CategoryTooling        Category = "tooling"
	CategoryChore          Category = "chore"
	CategoryExperiment     Category = "experiment"
)

// Categories lists the closed set the classifier is asked to choose from.
var Categories = []Category{
	CategoryFeature,
	CategoryImprovement,
	CategoryBugFix,
	CategoryInfrastructure,
	CategoryRefactor,
	CategoryTooling,
	CategoryChore,
	CategoryExperiment,
}

// Known reports whether c is one of Categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Classification is the AI-derived annotation for one commit.
type Classification struct {
	Category      Category `json:"category"`
	ImpactScore   int      `json:"impact_score"`
	Notable       bool     `json:"standupNotable"`
	BulletSummary string   `json:"bullet_summary"`
	Reasoning     string   `json:"reasoning"`
}

// Classifications maps Commit.Key to the commit's classification.
// Commits without an entry were not classified.
type Classifications map[string]Classification

// DailyReport is a previously written daily report file.
type DailyReport struct {
	Date    string
	Path    string
	Content string
}
