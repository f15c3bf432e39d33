package domain

import (
	"context"
	"time"

	"github.com/aneeshsharma72067/reposage/internal/analyzer"
	"github.com/aneeshsharma72067/reposage/internal/entities"
	"github.com/aneeshsharma72067/reposage/internal/repository"

	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
)

// Dispatcher publishes analysis jobs.
type Dispatcher interface {
	Publish(ctx context.Context, job entities.AnalysisJob) (string, error)
}

// CredentialIssuer authenticates as the GitHub App.
type CredentialIssuer interface {
	ResolveInstallationForRepo(ctx context.Context, owner, repo string) (int64, error)
}

// InstallationAPI calls GitHub with installation credentials.
type InstallationAPI interface {
	ListRepositories(ctx context.Context, installationID int64) ([]*github.Repository, int, error)
	RepositoryDetails(ctx context.Context, installationID int64, owner, repo string) (*entities.RepositoryDetails, error)
}

// Deps are the collaborators the usecase layer orchestrates.
type Deps struct {
	Repo          repository.Repository
	Dispatcher    Dispatcher
	Analyzer      analyzer.Analyzer
	Issuer        CredentialIssuer
	Installations InstallationAPI
	WebhookSecret string
	Timeout       time.Duration
}

// Usecase struct implements all usecase interfaces.
type Usecase struct {
	ctx           context.Context
	log           *zap.SugaredLogger
	repo          repository.Repository
	dispatcher    Dispatcher
	analyzer      analyzer.Analyzer
	issuer        CredentialIssuer
	installations InstallationAPI
	webhookSecret []byte
	timeout       time.Duration
}

// New constructs a new usecase layer with its dependencies.
func New(
	log *zap.SugaredLogger,
	ctx context.Context,
	deps Deps,
) *Usecase {
	var secret []byte
	if deps.WebhookSecret != "" {
		secret = []byte(deps.WebhookSecret)
	}
	return &Usecase{
		ctx:           ctx,
		log:           log.Named("usecase"),
		repo:          deps.Repo,
		dispatcher:    deps.Dispatcher,
		analyzer:      deps.Analyzer,
		issuer:        deps.Issuer,
		installations: deps.Installations,
		webhookSecret: secret,
		timeout:       deps.Timeout,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
