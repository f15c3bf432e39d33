package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	selectUserByLoginQuery  = `SELECT id FROM users WHERE lower(github_login)=lower($1)`
	upsertInstallationQuery = `
INSERT INTO installations(id, installation_id, account_login, account_type, installed_by_user_id)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (installation_id) DO UPDATE
SET account_login=EXCLUDED.account_login,
    account_type=EXCLUDED.account_type,
    installed_by_user_id=COALESCE(EXCLUDED.installed_by_user_id, installations.installed_by_user_id),
    updated_at=NOW()
RETURNING id, installation_id, account_login, account_type, installed_by_user_id, created_at, updated_at`
	selectInstallationQuery = `
SELECT id, installation_id, account_login, account_type, installed_by_user_id, created_at, updated_at
FROM installations WHERE installation_id=$1`
	upsertRepositoryQuery = `
INSERT INTO repositories(id, external_repo_id, installation_id, name, full_name, private, default_branch, owner_login, owner_type, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,true)
ON CONFLICT (external_repo_id) DO UPDATE
SET installation_id=EXCLUDED.installation_id,
    name=EXCLUDED.name,
    full_name=EXCLUDED.full_name,
    private=EXCLUDED.private,
    default_branch=EXCLUDED.default_branch,
    owner_login=EXCLUDED.owner_login,
    owner_type=EXCLUDED.owner_type,
    is_active=true,
    updated_at=NOW()`
)

// FindUserIDByLogin resolves a local user by GitHub login.
func (p *Postgres) FindUserIDByLogin(ctx context.Context, login string) (string, error) {
	var id string
	if err := p.db.QueryRow(ctx, selectUserByLoginQuery, login).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", entities.ErrOwnerNotResolved
		}
		return "", fmt.Errorf("select user: %w", err)
	}
	return id, nil
}

// UpsertInstallation records or refreshes an installation keyed by its GitHub id.
func (p *Postgres) UpsertInstallation(ctx context.Context, inst entities.Installation) (*entities.Installation, error) {
	var out entities.Installation
	err := p.db.QueryRow(ctx, upsertInstallationQuery,
		uuid.NewString(), inst.InstallationID, inst.AccountLogin, inst.AccountType, inst.InstalledByUserID,
	).Scan(&out.ID, &out.InstallationID, &out.AccountLogin, &out.AccountType, &out.InstalledByUserID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		p.log.Errorw("failed to upsert installation", "error", err, "installation_id", inst.InstallationID)
		return nil, fmt.Errorf("upsert installation: %w", err)
	}
	return &out, nil
}

// GetInstallation returns a stored installation by GitHub id.
func (p *Postgres) GetInstallation(ctx context.Context, installationID int64) (*entities.Installation, error) {
	var out entities.Installation
	err := p.db.QueryRow(ctx, selectInstallationQuery, installationID).
		Scan(&out.ID, &out.InstallationID, &out.AccountLogin, &out.AccountType, &out.InstalledByUserID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entities.ErrInstallationNotFound
		}
		return nil, fmt.Errorf("select installation: %w", err)
	}
	return &out, nil
}

// UpsertRepositories attaches the listed repositories to an installation row.
func (p *Postgres) UpsertRepositories(ctx context.Context, installationRowID string, repos []entities.SyncedRepository) (int, error) {
	if len(repos) == 0 {
		return 0, nil
	}

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range repos {
		batch.Queue(upsertRepositoryQuery,
			uuid.NewString(), r.ExternalRepoID, installationRowID, r.Name, r.FullName,
			r.Private, r.DefaultBranch, r.OwnerLogin, r.OwnerType,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for _, r := range repos {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			p.log.Errorw("failed to upsert repository", "error", err, "external_repo_id", r.ExternalRepoID)
			return 0, fmt.Errorf("upsert repository %d: %w", r.ExternalRepoID, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(repos), nil
}
