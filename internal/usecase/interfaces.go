package usecase

import (
	"context"

	"github.com/aneeshsharma72067/reposage/internal/entities"
)

// WebhookUsecaseInterface ingests provider deliveries. It never reports failure to the caller.
type WebhookUsecaseInterface interface {
	HandleWebhook(ctx context.Context, delivery entities.WebhookDelivery)
}

// AnalysisUsecaseInterface drives analysis runs from trigger to completion.
type AnalysisUsecaseInterface interface {
	TriggerAnalysisFromPush(ctx context.Context, trigger entities.PushTrigger) (*entities.TriggeredRun, error)
	ProcessAnalysisJob(ctx context.Context, job entities.AnalysisJob) error
	AnalysisRun(ctx context.Context, runID string) (*entities.AnalysisRunReport, error)
}

// InstallationUsecaseInterface covers App installations and the repositories they expose.
type InstallationUsecaseInterface interface {
	LinkInstallation(ctx context.Context, installationID int64, userLogin string) (*entities.Installation, error)
	SyncInstallationRepositories(ctx context.Context, installationID int64) (entities.SyncResult, error)
	ResolveInstallation(ctx context.Context, owner, repo string) (int64, error)
	RepositoryDetails(ctx context.Context, owner, repo string) (*entities.RepositoryDetails, error)
}
