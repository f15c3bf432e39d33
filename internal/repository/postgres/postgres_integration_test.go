package postgres

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aneeshsharma72067/reposage/config"
	"github.com/aneeshsharma72067/reposage/internal/entities"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAnalysisLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)
	tracked := seedRepository(t, repo, 1001, 5001)

	run, err := repo.CreateAnalysisRun(ctx, tracked.ID, pushTrigger(5001, "sha-1"))
	require.NoError(t, err)
	require.Equal(t, tracked.ID, run.RepositoryID)

	stored, err := repo.GetAnalysisRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Equal(t, entities.AnalysisRunning, stored.Status)
	require.NotNil(t, stored.StartedAt)
	require.Nil(t, stored.CompletedAt)

	rc, err := repo.LoadRunContext(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.True(t, rc.Event.Processed)
	require.Equal(t, entities.EventPush, rc.Event.Type)
	require.Equal(t, "octo/widgets", rc.FullName)
	require.JSONEq(t, `{"ref":"refs/heads/main","after":"sha-1","pusherName":"octocat","repoFullName":"octo/widgets"}`, string(rc.Event.Payload))

	current, err := repo.FindRepositoryByExternalID(ctx, 5001)
	require.NoError(t, err)
	require.Equal(t, entities.RepositoryAnalyzing, current.Status)

	health, err := repo.CompleteAnalysisRun(ctx, run.AnalysisRunID, draft(entities.SeverityInfo))
	require.NoError(t, err)
	require.Equal(t, entities.RepositoryHealthy, health)

	stored, err = repo.GetAnalysisRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Equal(t, entities.AnalysisCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	findings, err := repo.ListFindingsForRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, tracked.ID, findings[0].RepositoryID)

	// redelivered job
	_, err = repo.CompleteAnalysisRun(ctx, run.AnalysisRunID, draft(entities.SeverityCritical))
	require.ErrorIs(t, err, entities.ErrInvalidLifecycleTransition)
	err = repo.FailAnalysisRun(ctx, run.AnalysisRunID, "late failure")
	require.ErrorIs(t, err, entities.ErrInvalidLifecycleTransition)

	findings, err = repo.ListFindingsForRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	stored, err = repo.GetAnalysisRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Equal(t, entities.AnalysisCompleted, stored.Status)

	current, err = repo.FindRepositoryByExternalID(ctx, 5001)
	require.NoError(t, err)
	require.Equal(t, entities.RepositoryHealthy, current.Status)
}

func TestCriticalFindingMarksIssuesIntegration(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)
	tracked := seedRepository(t, repo, 1002, 5002)

	run, err := repo.CreateAnalysisRun(ctx, tracked.ID, pushTrigger(5002, "sha-crit"))
	require.NoError(t, err)

	health, err := repo.CompleteAnalysisRun(ctx, run.AnalysisRunID, draft(entities.SeverityCritical))
	require.NoError(t, err)
	require.Equal(t, entities.RepositoryIssuesFound, health)

	current, err := repo.FindRepositoryByExternalID(ctx, 5002)
	require.NoError(t, err)
	require.Equal(t, entities.RepositoryIssuesFound, current.Status)

	// a clean follow-up run restores health
	next, err := repo.CreateAnalysisRun(ctx, tracked.ID, pushTrigger(5002, "sha-clean"))
	require.NoError(t, err)
	health, err = repo.CompleteAnalysisRun(ctx, next.AnalysisRunID, draft(entities.SeverityWarning))
	require.NoError(t, err)
	require.Equal(t, entities.RepositoryHealthy, health)
}

func TestFailAnalysisRunIntegration(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)
	tracked := seedRepository(t, repo, 1003, 5003)

	run, err := repo.CreateAnalysisRun(ctx, tracked.ID, pushTrigger(5003, "sha-fail"))
	require.NoError(t, err)

	require.NoError(t, repo.FailAnalysisRun(ctx, run.AnalysisRunID, "analyzer crashed"))

	stored, err := repo.GetAnalysisRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Equal(t, entities.AnalysisFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	require.Equal(t, "analyzer crashed", *stored.ErrorMessage)

	current, err := repo.FindRepositoryByExternalID(ctx, 5003)
	require.NoError(t, err)
	require.Equal(t, entities.RepositoryIdle, current.Status)

	_, err = repo.CompleteAnalysisRun(ctx, run.AnalysisRunID, draft(entities.SeverityInfo))
	require.ErrorIs(t, err, entities.ErrInvalidLifecycleTransition)

	findings, err := repo.ListFindingsForRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestDuplicateDeliveryIntegration(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)
	tracked := seedRepository(t, repo, 1004, 5004)

	first, err := repo.CreateAnalysisRun(ctx, tracked.ID, pushTrigger(5004, "sha-dup"))
	require.NoError(t, err)

	_, err = repo.CreateAnalysisRun(ctx, tracked.ID, pushTrigger(5004, "sha-dup"))
	require.ErrorIs(t, err, entities.ErrEventAlreadyProcessed)

	var runs int
	require.NoError(t, repo.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM analysis_runs r JOIN events e ON e.id=r.event_id WHERE e.repository_id=$1`,
		tracked.ID).Scan(&runs))
	require.Equal(t, 1, runs)

	rc, err := repo.LoadRunContext(ctx, first.AnalysisRunID)
	require.NoError(t, err)
	require.Equal(t, first.EventID, rc.Event.ID)
}

func TestConcurrentCompletionSingleWinnerIntegration(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)
	tracked := seedRepository(t, repo, 1005, 5005)

	run, err := repo.CreateAnalysisRun(ctx, tracked.ID, pushTrigger(5005, "sha-race"))
	require.NoError(t, err)

	const racers = 4
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CompleteAnalysisRun(ctx, run.AnalysisRunID, draft(entities.SeverityInfo))
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.ErrorIs(t, err, entities.ErrInvalidLifecycleTransition)
	}
	require.Equal(t, 1, winners)

	findings, err := repo.ListFindingsForRun(ctx, run.AnalysisRunID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
}

func TestInstallationIntegration(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)

	_, err := repo.FindUserIDByLogin(ctx, "nobody")
	require.ErrorIs(t, err, entities.ErrOwnerNotResolved)

	userID := seedUser(t, repo, "Octocat")
	found, err := repo.FindUserIDByLogin(ctx, "octocat")
	require.NoError(t, err)
	require.Equal(t, userID, found)

	inst, err := repo.UpsertInstallation(ctx, entities.Installation{
		InstallationID: 77, AccountLogin: "octo", AccountType: "Organization", InstalledByUserID: &userID,
	})
	require.NoError(t, err)

	again, err := repo.UpsertInstallation(ctx, entities.Installation{InstallationID: 77, AccountLogin: "octo-renamed", AccountType: "Organization"})
	require.NoError(t, err)
	require.Equal(t, inst.ID, again.ID)
	require.Equal(t, "octo-renamed", again.AccountLogin)
	require.NotNil(t, again.InstalledByUserID)

	_, err = repo.GetInstallation(ctx, 78)
	require.ErrorIs(t, err, entities.ErrInstallationNotFound)

	n, err := repo.UpsertRepositories(ctx, inst.ID, []entities.SyncedRepository{
		{ExternalRepoID: 1, Name: "a", FullName: "octo/a", DefaultBranch: "main"},
		{ExternalRepoID: 2, Name: "b", FullName: "octo/b", DefaultBranch: "main", Private: true},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = repo.UpsertRepositories(ctx, inst.ID, []entities.SyncedRepository{
		{ExternalRepoID: 2, Name: "b2", FullName: "octo/b2", DefaultBranch: "trunk"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	r, err := repo.FindRepositoryByExternalID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "octo/b2", r.FullName)
	require.Equal(t, entities.RepositoryIdle, r.Status)

	_, err = repo.FindRepositoryByExternalID(ctx, 3)
	require.ErrorIs(t, err, entities.ErrRepositoryNotTracked)
}

func pushTrigger(externalRepoID int64, sha string) entities.PushTrigger {
	return entities.PushTrigger{
		DeliveryID:     "delivery-" + sha,
		ExternalRepoID: externalRepoID,
		HeadSHA:        sha,
		Ref:            "refs/heads/main",
		PusherName:     "octocat",
		RepoFullName:   "octo/widgets",
	}
}

func draft(severity entities.Severity) entities.FindingDraft {
	return entities.FindingDraft{
		Type:        entities.FindingCommitSummary,
		Severity:    severity,
		Title:       "summary",
		Description: "test finding",
		Metadata:    map[string]any{"source": "test"},
	}
}

func seedUser(t *testing.T, repo *Postgres, login string) string {
	t.Helper()

	var id string
	require.NoError(t, repo.db.QueryRow(context.Background(),
		`INSERT INTO users(id, github_login) VALUES (gen_random_uuid(), $1) RETURNING id`, login).Scan(&id))
	return id
}

func seedRepository(t *testing.T, repo *Postgres, installationID, externalRepoID int64) *entities.Repository {
	t.Helper()
	ctx := context.Background()

	inst, err := repo.UpsertInstallation(ctx, entities.Installation{
		InstallationID: installationID, AccountLogin: "octo", AccountType: "Organization",
	})
	require.NoError(t, err)

	_, err = repo.UpsertRepositories(ctx, inst.ID, []entities.SyncedRepository{{
		ExternalRepoID: externalRepoID, Name: "widgets", FullName: "octo/widgets", DefaultBranch: "main",
		OwnerLogin: "octo", OwnerType: "Organization",
	}})
	require.NoError(t, err)

	tracked, err := repo.FindRepositoryByExternalID(ctx, externalRepoID)
	require.NoError(t, err)
	return tracked
}

func startRepository(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()

	cfg, cleanup := setupPostgres(t)
	t.Cleanup(cleanup)

	repo := New(ctx, testLogger(t), cfg)
	require.NoError(t, repo.OnStart(ctx))
	t.Cleanup(func() { _ = repo.OnStop(ctx) })
	return repo
}

func setupPostgres(t *testing.T) (*config.Config, func()) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=reposage",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
	})
	require.NoError(t, err)

	hostPort := resource.GetPort("5432/tcp")
	port, err := strconv.Atoi(hostPort)
	require.NoError(t, err)

	migrationsDir, err := filepath.Abs(filepath.Join("..", "..", "..", "db", "migrations"))
	require.NoError(t, err)
	require.DirExists(t, migrationsDir)

	cfg := &config.Config{
		Postgres: config.PostgresConfig{
			Host:           "localhost",
			Port:           port,
			User:           "postgres",
			Password:       "postgres",
			DBName:         "reposage",
			SSLMode:        "disable",
			MigrationsDir:  migrationsDir,
			QueryTimeout:   10 * time.Second,
			MigrateTimeout: 20 * time.Second,
			MaxConns:       8,
			MinConns:       1,
		},
	}

	require.NoError(t, pool.Retry(func() error {
		db, err := sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		return db.Ping()
	}))

	return cfg, func() { _ = pool.Purge(resource) }
}

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()

	l, _ := zap.NewDevelopment()
	t.Cleanup(func() { _ = l.Sync() })
	return l.Sugar()
}
