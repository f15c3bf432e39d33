// Package repository contains repository interfaces for persistence layers.
package repository

import (
	"context"

	"github.com/aneeshsharma72067/reposage/internal/entities"
)

// LifecycleInterface describes storage startup/shutdown hooks.
type LifecycleInterface interface {
	OnStart(_ context.Context) error
	OnStop(_ context.Context) error
	Ping(ctx context.Context) error
}

// AnalysisInterface is the guarded analysis run state machine.
// Every method is a single transaction; a transition that matches no row
// returns an error wrapping entities.ErrInvalidLifecycleTransition and rolls back.
type AnalysisInterface interface {
	FindRepositoryByExternalID(ctx context.Context, externalRepoID int64) (*entities.Repository, error)
	CreateAnalysisRun(ctx context.Context, repositoryID string, trigger entities.PushTrigger) (*entities.TriggeredRun, error)
	LoadRunContext(ctx context.Context, runID string) (*entities.RunContext, error)
	CompleteAnalysisRun(ctx context.Context, runID string, draft entities.FindingDraft) (entities.RepositoryStatus, error)
	FailAnalysisRun(ctx context.Context, runID string, errorMessage string) error
	GetAnalysisRun(ctx context.Context, runID string) (*entities.AnalysisRun, error)
	ListFindingsForRun(ctx context.Context, runID string) ([]entities.Finding, error)
}

// InstallationInterface persists installations and the repositories they expose.
type InstallationInterface interface {
	FindUserIDByLogin(ctx context.Context, login string) (string, error)
	UpsertInstallation(ctx context.Context, inst entities.Installation) (*entities.Installation, error)
	GetInstallation(ctx context.Context, installationID int64) (*entities.Installation, error)
	UpsertRepositories(ctx context.Context, installationRowID string, repos []entities.SyncedRepository) (int, error)
}
