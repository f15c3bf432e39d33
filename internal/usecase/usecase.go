package usecase

import (
	"context"

	"github.com/aneeshsharma72067/reposage/internal/usecase/domain"

	"go.uber.org/zap"
)

// InterfaceUsecase aggregates all usecase interfaces.
type InterfaceUsecase interface {
	WebhookUsecaseInterface
	AnalysisUsecaseInterface
	InstallationUsecaseInterface
}

// Deps are the collaborators the usecase layer orchestrates.
type Deps = domain.Deps

// New constructs a new usecase layer with its dependencies.
func New(log *zap.SugaredLogger, ctx context.Context, deps Deps) InterfaceUsecase {
	return domain.New(log, ctx, deps)
}

// IsTerminalJobError reports whether an analysis job error cannot be fixed by redelivery.
func IsTerminalJobError(err error) bool {
	return domain.IsTerminalJobError(err)
}
