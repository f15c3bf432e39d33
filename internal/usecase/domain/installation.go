package domain

import (
	"context"
	"fmt"
	"strings"

	"github.com/aneeshsharma72067/reposage/internal/entities"
	"github.com/aneeshsharma72067/reposage/internal/mapper"
)

// LinkInstallation attaches an installation to the local user with the given GitHub login.
func (u *Usecase) LinkInstallation(ctx context.Context, installationID int64, userLogin string) (*entities.Installation, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	userLogin = strings.TrimSpace(userLogin)
	if installationID <= 0 || userLogin == "" {
		return nil, fmt.Errorf("%w: installation id and user login are required", entities.ErrInvalidArgument)
	}

	inst, err := u.linkInstallation(ctx, entities.InstallationLink{
		InstallationID: installationID,
		AccountLogin:   userLogin,
		AccountType:    "User",
		OwnerLogin:     userLogin,
	})
	if err != nil {
		return nil, err
	}
	u.log.Infow("installation callback linked", "installation_id", installationID, "linked_user_id", *inst.InstalledByUserID)
	return inst, nil
}

func (u *Usecase) linkInstallation(ctx context.Context, link entities.InstallationLink) (*entities.Installation, error) {
	userID, err := u.repo.FindUserIDByLogin(ctx, link.OwnerLogin)
	if err != nil {
		return nil, err
	}
	return u.repo.UpsertInstallation(ctx, entities.Installation{
		InstallationID:    link.InstallationID,
		AccountLogin:      link.AccountLogin,
		AccountType:       link.AccountType,
		InstalledByUserID: &userID,
	})
}

// SyncInstallationRepositories mirrors the repositories an installation can access into the store.
func (u *Usecase) SyncInstallationRepositories(ctx context.Context, installationID int64) (entities.SyncResult, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if installationID <= 0 {
		return entities.SyncResult{}, fmt.Errorf("%w: installation id must be positive", entities.ErrInvalidArgument)
	}

	inst, err := u.repo.GetInstallation(ctx, installationID)
	if err != nil {
		return entities.SyncResult{}, err
	}

	listed, total, err := u.installations.ListRepositories(ctx, installationID)
	if err != nil {
		return entities.SyncResult{}, err
	}

	repos := make([]entities.SyncedRepository, 0, len(listed))
	for _, r := range listed {
		synced, ok := mapper.FromGitHubRepository(r)
		if !ok {
			u.log.Warnw("skipping malformed repository entry", "installation_id", installationID, "repo_id", r.GetID())
			continue
		}
		repos = append(repos, synced)
	}

	n, err := u.repo.UpsertRepositories(ctx, inst.ID, repos)
	if err != nil {
		return entities.SyncResult{}, err
	}

	u.log.Infow("installation repositories synced", "installation_id", installationID, "synced", n, "total_count", total)
	return entities.SyncResult{InstallationID: installationID, Synced: n, TotalCount: total}, nil
}

// ResolveInstallation returns the installation backing owner/repo.
func (u *Usecase) ResolveInstallation(ctx context.Context, owner, repo string) (int64, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	return u.issuer.ResolveInstallationForRepo(ctx, owner, repo)
}

// RepositoryDetails resolves the installation for owner/repo and fetches live repository data with it.
func (u *Usecase) RepositoryDetails(ctx context.Context, owner, repo string) (*entities.RepositoryDetails, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	installationID, err := u.issuer.ResolveInstallationForRepo(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return u.installations.RepositoryDetails(ctx, installationID, owner, repo)
}
