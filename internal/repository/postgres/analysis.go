package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	selectRepositoryByExternalIDQuery = `
SELECT id, external_repo_id, installation_id, name, full_name, private, default_branch,
       owner_login, owner_type, is_active, status, created_at, updated_at
FROM repositories WHERE external_repo_id=$1`
	insertEventQuery = `
INSERT INTO events(id, repository_id, type, external_event_id, delivery_id, payload, processed)
VALUES ($1,$2,$3,$4,$5,$6,false)
ON CONFLICT (repository_id, type, external_event_id) WHERE external_event_id IS NOT NULL DO NOTHING
RETURNING id`
	selectEventForUpdateQuery = `
SELECT id, processed FROM events
WHERE repository_id=$1 AND type=$2 AND external_event_id=$3 FOR UPDATE`
	insertPendingRunQuery = `
INSERT INTO analysis_runs(id, event_id, status, started_at, completed_at)
VALUES ($1,$2,'PENDING',NULL,NULL)`
	markEventProcessedQuery = `UPDATE events SET processed=true WHERE id=$1 AND processed=false`

	transitionToRunningQuery = `
UPDATE analysis_runs SET status='RUNNING', started_at=NOW(), error_message=NULL
WHERE id=$1 AND status='PENDING' AND started_at IS NULL AND completed_at IS NULL`
	transitionToCompletedQuery = `
UPDATE analysis_runs SET status='COMPLETED', completed_at=NOW(), error_message=NULL
WHERE id=$1 AND status='RUNNING' AND started_at IS NOT NULL AND completed_at IS NULL`
	transitionToFailedQuery = `
UPDATE analysis_runs SET status='FAILED', completed_at=NOW(), error_message=$2
WHERE id=$1 AND status='RUNNING' AND started_at IS NOT NULL AND completed_at IS NULL`

	selectRunRepositoryQuery = `
SELECT e.repository_id FROM analysis_runs r JOIN events e ON e.id = r.event_id WHERE r.id=$1`
	updateRepositoryStatusQuery = `UPDATE repositories SET status=$2, updated_at=NOW() WHERE id=$1`
	insertFindingQuery          = `
INSERT INTO findings(id, analysis_run_id, repository_id, type, severity, title, description, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	selectRunQuery = `
SELECT id, event_id, status, started_at, completed_at, error_message, created_at
FROM analysis_runs WHERE id=$1`
	selectRunContextQuery = `
SELECT r.id, r.event_id, r.status, r.started_at, r.completed_at, r.error_message, r.created_at,
       e.repository_id, e.type, e.external_event_id, e.delivery_id, e.payload, e.processed, e.created_at,
       repo.full_name
FROM analysis_runs r
JOIN events e ON e.id = r.event_id
JOIN repositories repo ON repo.id = e.repository_id
WHERE r.id=$1`
	selectFindingsForRunQuery = `
SELECT id, analysis_run_id, repository_id, type, severity, title, description, metadata, created_at
FROM findings WHERE analysis_run_id=$1 ORDER BY created_at`
)

// FindRepositoryByExternalID returns the tracked repository for a GitHub repository id.
func (p *Postgres) FindRepositoryByExternalID(ctx context.Context, externalRepoID int64) (*entities.Repository, error) {
	var r entities.Repository
	var status string
	err := p.db.QueryRow(ctx, selectRepositoryByExternalIDQuery, externalRepoID).Scan(
		&r.ID, &r.ExternalRepoID, &r.InstallationID, &r.Name, &r.FullName, &r.Private, &r.DefaultBranch,
		&r.OwnerLogin, &r.OwnerType, &r.IsActive, &status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrRepositoryNotTracked
		}
		p.log.Errorw("failed to select repository", "error", err, "external_repo_id", externalRepoID)
		return nil, fmt.Errorf("select repository: %w", err)
	}
	r.Status = entities.RepositoryStatus(status)
	return &r, nil
}

// CreateAnalysisRun records the event, creates its run and moves it PENDING→RUNNING in one transaction,
// so no reader sees a PENDING run without the repository marked ANALYZING.
func (p *Postgres) CreateAnalysisRun(ctx context.Context, repositoryID string, trigger entities.PushTrigger) (*entities.TriggeredRun, error) {
	payload, err := json.Marshal(trigger.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	eventID, err := p.ensureEvent(ctx, tx, repositoryID, trigger, payload)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	if _, err := tx.Exec(ctx, insertPendingRunQuery, runID, eventID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, entities.ErrEventAlreadyProcessed
		}
		p.log.Errorw("failed to insert analysis run", "error", err, "event_id", eventID)
		return nil, fmt.Errorf("insert analysis run: %w", err)
	}

	tag, err := tx.Exec(ctx, markEventProcessedQuery, eventID)
	if err != nil {
		return nil, fmt.Errorf("mark event processed: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return nil, entities.ErrEventAlreadyProcessed
	}

	if err := p.transition(ctx, tx, runID, entities.AnalysisPending, entities.AnalysisRunning, transitionToRunningQuery); err != nil {
		return nil, err
	}
	if err := setRepositoryStatus(ctx, tx, repositoryID, entities.RepositoryAnalyzing); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	p.log.Infow("analysis run created", "analysis_run_id", runID, "event_id", eventID, "repository_id", repositoryID)
	return &entities.TriggeredRun{
		AnalysisRunID: runID,
		EventID:       eventID,
		RepositoryID:  repositoryID,
	}, nil
}

// ensureEvent inserts the event, or returns the existing unprocessed event with the same head SHA.
func (p *Postgres) ensureEvent(ctx context.Context, tx pgx.Tx, repositoryID string, trigger entities.PushTrigger, payload []byte) (string, error) {
	var externalID, deliveryID *string
	if trigger.HeadSHA != "" {
		externalID = &trigger.HeadSHA
	}
	if trigger.DeliveryID != "" {
		deliveryID = &trigger.DeliveryID
	}

	var eventID string
	err := tx.QueryRow(ctx, insertEventQuery,
		uuid.NewString(), repositoryID, string(entities.EventPush), externalID, deliveryID, string(payload),
	).Scan(&eventID)
	if err == nil {
		return eventID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		p.log.Errorw("failed to insert event", "error", err, "repository_id", repositoryID)
		return "", fmt.Errorf("insert event: %w", err)
	}

	var processed bool
	if err := tx.QueryRow(ctx, selectEventForUpdateQuery, repositoryID, string(entities.EventPush), externalID).
		Scan(&eventID, &processed); err != nil {
		return "", fmt.Errorf("select existing event: %w", err)
	}
	if processed {
		return "", entities.ErrEventAlreadyProcessed
	}
	return eventID, nil
}

// CompleteAnalysisRun moves RUNNING→COMPLETED, appends the finding and projects repository health.
func (p *Postgres) CompleteAnalysisRun(ctx context.Context, runID string, draft entities.FindingDraft) (entities.RepositoryStatus, error) {
	if !draft.Severity.Valid() {
		return "", fmt.Errorf("%w: severity %q", entities.ErrInvalidArgument, draft.Severity)
	}
	metadata, err := json.Marshal(draft.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal finding metadata: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := p.transition(ctx, tx, runID, entities.AnalysisRunning, entities.AnalysisCompleted, transitionToCompletedQuery); err != nil {
		return "", err
	}

	repositoryID, err := runRepositoryID(ctx, tx, runID)
	if err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, insertFindingQuery,
		uuid.NewString(), runID, repositoryID, string(draft.Type), string(draft.Severity),
		draft.Title, draft.Description, string(metadata),
	); err != nil {
		p.log.Errorw("failed to insert finding", "error", err, "analysis_run_id", runID)
		return "", fmt.Errorf("insert finding: %w", err)
	}

	health, err := projectHealth(ctx, tx, runID)
	if err != nil {
		return "", err
	}
	if err := setRepositoryStatus(ctx, tx, repositoryID, health); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	p.log.Infow("analysis run completed", "analysis_run_id", runID, "repository_id", repositoryID, "repository_status", health)
	return health, nil
}

// FailAnalysisRun moves RUNNING→FAILED and resets the repository to IDLE.
func (p *Postgres) FailAnalysisRun(ctx context.Context, runID string, errorMessage string) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, transitionToFailedQuery, runID, errorMessage)
	if err != nil {
		return fmt.Errorf("transition to %s: %w", entities.AnalysisFailed, err)
	}
	if tag.RowsAffected() != 1 {
		return &entities.TransitionError{RunID: runID, From: entities.AnalysisRunning, To: entities.AnalysisFailed}
	}

	repositoryID, err := runRepositoryID(ctx, tx, runID)
	if err != nil {
		return err
	}
	if err := setRepositoryStatus(ctx, tx, repositoryID, entities.RepositoryIdle); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	p.log.Infow("analysis run failed", "analysis_run_id", runID, "repository_id", repositoryID, "error_message", errorMessage)
	return nil
}

// transition executes a guarded update; zero affected rows is a lost race or an illegal step.
func (p *Postgres) transition(ctx context.Context, tx pgx.Tx, runID string, from, to entities.AnalysisStatus, query string) error {
	tag, err := tx.Exec(ctx, query, runID)
	if err != nil {
		p.log.Errorw("transition query failed", "error", err, "analysis_run_id", runID, "to", to)
		return fmt.Errorf("transition to %s: %w", to, err)
	}
	if tag.RowsAffected() != 1 {
		return &entities.TransitionError{RunID: runID, From: from, To: to}
	}
	return nil
}

func runRepositoryID(ctx context.Context, tx pgx.Tx, runID string) (string, error) {
	var repositoryID string
	if err := tx.QueryRow(ctx, selectRunRepositoryQuery, runID).Scan(&repositoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", entities.ErrRunNotFound
		}
		return "", fmt.Errorf("select run repository: %w", err)
	}
	return repositoryID, nil
}

func setRepositoryStatus(ctx context.Context, tx pgx.Tx, repositoryID string, status entities.RepositoryStatus) error {
	tag, err := tx.Exec(ctx, updateRepositoryStatusQuery, repositoryID, string(status))
	if err != nil {
		return fmt.Errorf("update repository status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return entities.ErrRepositoryNotTracked
	}
	return nil
}

// GetAnalysisRun returns a run by id.
func (p *Postgres) GetAnalysisRun(ctx context.Context, runID string) (*entities.AnalysisRun, error) {
	var run entities.AnalysisRun
	var status string
	err := p.db.QueryRow(ctx, selectRunQuery, runID).Scan(
		&run.ID, &run.EventID, &status, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage, &run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrRunNotFound
		}
		return nil, fmt.Errorf("select analysis run: %w", err)
	}
	run.Status = entities.AnalysisStatus(status)
	return &run, nil
}

// LoadRunContext returns the run with its event and repository name.
func (p *Postgres) LoadRunContext(ctx context.Context, runID string) (*entities.RunContext, error) {
	var rc entities.RunContext
	var status, eventType string
	var payload []byte
	err := p.db.QueryRow(ctx, selectRunContextQuery, runID).Scan(
		&rc.Run.ID, &rc.Run.EventID, &status, &rc.Run.StartedAt, &rc.Run.CompletedAt, &rc.Run.ErrorMessage, &rc.Run.CreatedAt,
		&rc.RepositoryID, &eventType, &rc.Event.ExternalEventID, &rc.Event.DeliveryID, &payload, &rc.Event.Processed, &rc.Event.CreatedAt,
		&rc.FullName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrRunNotFound
		}
		p.log.Errorw("failed to load run context", "error", err, "analysis_run_id", runID)
		return nil, fmt.Errorf("select run context: %w", err)
	}
	rc.Run.Status = entities.AnalysisStatus(status)
	rc.Event.ID = rc.Run.EventID
	rc.Event.RepositoryID = rc.RepositoryID
	rc.Event.Type = entities.EventType(eventType)
	rc.Event.Payload = payload
	return &rc, nil
}

// ListFindingsForRun returns the findings recorded by a run.
func (p *Postgres) ListFindingsForRun(ctx context.Context, runID string) ([]entities.Finding, error) {
	rows, err := p.db.Query(ctx, selectFindingsForRunQuery, runID)
	if err != nil {
		return nil, fmt.Errorf("select findings: %w", err)
	}
	defer rows.Close()

	findings := make([]entities.Finding, 0)
	for rows.Next() {
		var f entities.Finding
		var findingType, severity string
		var metadata []byte
		if err := rows.Scan(&f.ID, &f.AnalysisRunID, &f.RepositoryID, &findingType, &severity,
			&f.Title, &f.Description, &metadata, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Type = entities.FindingType(findingType)
		f.Severity = entities.Severity(severity)
		f.Metadata = metadata
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return findings, nil
}
