package entities

import (
	"encoding/json"
	"time"
)

// Severity grades a finding.
type Severity string

const (
	// SeverityInfo is informational.
	SeverityInfo Severity = "INFO"
	// SeverityWarning needs attention.
	SeverityWarning Severity = "WARNING"
	// SeverityCritical flips repository health to ISSUES_FOUND.
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// FindingType classifies a finding.
type FindingType string

const (
	FindingAPIBreak      FindingType = "API_BREAK"
	FindingSchemaChange  FindingType = "SCHEMA_CHANGE"
	FindingDependency    FindingType = "DEPENDENCY_RISK"
	FindingCommitSummary FindingType = "COMMIT_SUMMARY"
)

// Finding is an append-only analysis result.
type Finding struct {
	ID            string
	AnalysisRunID string
	RepositoryID  string
	Type          FindingType
	Severity      Severity
	Title         string
	Description   string
	Metadata      json.RawMessage
	CreatedAt     time.Time
}

// FindingDraft is an analyzer output not yet bound to a row.
type FindingDraft struct {
	Type        FindingType
	Severity    Severity
	Title       string
	Description string
	Metadata    map[string]any
}

// ProjectHealth maps the number of CRITICAL findings of a completed run onto repository status.
func ProjectHealth(criticalFindings int64) RepositoryStatus {
	if criticalFindings > 0 {
		return RepositoryIssuesFound
	}
	return RepositoryHealthy
}
