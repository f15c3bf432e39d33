package entities

import "time"

// Installation maps a GitHub App installation to a local owner.
type Installation struct {
	ID                string
	InstallationID    int64
	AccountLogin      string
	AccountType       string
	InstalledByUserID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// InstallationLink is an upsert request for an installation.
type InstallationLink struct {
	InstallationID int64
	AccountLogin   string
	AccountType    string
	OwnerLogin     string
}

// InstallationToken is a short-lived installation access token.
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

// SyncedRepository is one entry of an installation's repository listing.
type SyncedRepository struct {
	ExternalRepoID int64
	Name           string
	FullName       string
	Private        bool
	DefaultBranch  string
	OwnerLogin     string
	OwnerType      string
}

// SyncResult summarises an installation repository sync.
type SyncResult struct {
	InstallationID int64 `json:"installation_id"`
	Synced         int   `json:"synced"`
	TotalCount     int   `json:"total_count"`
}

// AnalysisJob is the queue payload published after a run is created.
type AnalysisJob struct {
	AnalysisRunID string `json:"analysisRunId"`
	EventID       string `json:"eventId"`
	RepositoryID  string `json:"repositoryId"`
}
