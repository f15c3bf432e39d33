// Package entities contains core business entities.
package entities

import "time"

// RepositoryStatus is the health status projected onto a repository.
type RepositoryStatus string

const (
	// RepositoryIdle marks a repository with no analysis in flight.
	RepositoryIdle RepositoryStatus = "IDLE"
	// RepositoryAnalyzing marks a repository with a RUNNING analysis.
	RepositoryAnalyzing RepositoryStatus = "ANALYZING"
	// RepositoryHealthy marks a repository whose latest run found nothing critical.
	RepositoryHealthy RepositoryStatus = "HEALTHY"
	// RepositoryIssuesFound marks a repository whose latest run produced a critical finding.
	RepositoryIssuesFound RepositoryStatus = "ISSUES_FOUND"
)

// Repository is a tracked GitHub repository.
type Repository struct {
	ID             string
	ExternalRepoID int64
	InstallationID string
	Name           string
	FullName       string
	Private        bool
	DefaultBranch  string
	OwnerLogin     string
	OwnerType      string
	IsActive       bool
	Status         RepositoryStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RepositoryDetails is the live view of a repository fetched from GitHub.
type RepositoryDetails struct {
	ExternalRepoID  int64              `json:"github_repo_id"`
	Name            string             `json:"name"`
	FullName        string             `json:"full_name"`
	Private         bool               `json:"private"`
	HTMLURL         string             `json:"html_url"`
	Description     *string            `json:"description"`
	DefaultBranch   string             `json:"default_branch"`
	Language        *string            `json:"language"`
	Topics          []string           `json:"topics"`
	StargazersCount int                `json:"stargazers_count"`
	ForksCount      int                `json:"forks_count"`
	OpenIssuesCount int                `json:"open_issues_count"`
	Archived        bool               `json:"archived"`
	Visibility      string             `json:"visibility"`
	PushedAt        *time.Time         `json:"pushed_at"`
	RecentCommits   []RepositoryCommit `json:"recent_commits"`
}

// RepositoryCommit is a compact commit projection.
type RepositoryCommit struct {
	SHA        string     `json:"sha"`
	Message    string     `json:"message"`
	AuthorName *string    `json:"author_name"`
	AuthoredAt *time.Time `json:"authored_at"`
	URL        string     `json:"url"`
}
