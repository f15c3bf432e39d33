// Package mapper converts GitHub API payloads into domain entities.
package mapper

import (
	"fmt"
	"time"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/google/go-github/v68/github"
)

// FromPushEvent builds the analysis trigger carried by a push delivery.
func FromPushEvent(deliveryID string, ev *github.PushEvent) (entities.PushTrigger, error) {
	repo := ev.GetRepo()
	if repo.GetID() == 0 {
		return entities.PushTrigger{}, fmt.Errorf("%w: push payload without repository.id", entities.ErrInvalidArgument)
	}

	return entities.PushTrigger{
		DeliveryID:     deliveryID,
		ExternalRepoID: repo.GetID(),
		HeadSHA:        ev.GetAfter(),
		Ref:            ev.GetRef(),
		PusherName:     ev.GetPusher().GetName(),
		RepoFullName:   repo.GetFullName(),
		Deleted:        ev.GetDeleted(),
	}, nil
}

// FromInstallationEvent extracts the installation link; the owner is the sender when present.
func FromInstallationEvent(ev *github.InstallationEvent) (entities.InstallationLink, error) {
	inst := ev.GetInstallation()
	account := inst.GetAccount()
	if inst.GetID() == 0 || account.GetLogin() == "" || account.GetType() == "" {
		return entities.InstallationLink{}, fmt.Errorf("%w: malformed installation payload", entities.ErrInvalidArgument)
	}

	owner := ev.GetSender().GetLogin()
	if owner == "" {
		owner = account.GetLogin()
	}

	return entities.InstallationLink{
		InstallationID: inst.GetID(),
		AccountLogin:   account.GetLogin(),
		AccountType:    account.GetType(),
		OwnerLogin:     owner,
	}, nil
}

// FromGitHubRepository maps a listed repository; entries without id or name are rejected.
func FromGitHubRepository(r *github.Repository) (entities.SyncedRepository, bool) {
	if r.GetID() == 0 || r.GetName() == "" || r.GetFullName() == "" {
		return entities.SyncedRepository{}, false
	}
	return entities.SyncedRepository{
		ExternalRepoID: r.GetID(),
		Name:           r.GetName(),
		FullName:       r.GetFullName(),
		Private:        r.GetPrivate(),
		DefaultBranch:  r.GetDefaultBranch(),
		OwnerLogin:     r.GetOwner().GetLogin(),
		OwnerType:      r.GetOwner().GetType(),
	}, true
}

// ToRepositoryDetails combines repository metadata with its recent commits.
func ToRepositoryDetails(r *github.Repository, commits []*github.RepositoryCommit) entities.RepositoryDetails {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}

	return entities.RepositoryDetails{
		ExternalRepoID:  r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Private:         r.GetPrivate(),
		HTMLURL:         r.GetHTMLURL(),
		Description:     r.Description,
		DefaultBranch:   r.GetDefaultBranch(),
		Language:        r.Language,
		Topics:          topics,
		StargazersCount: r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		Archived:        r.GetArchived(),
		Visibility:      r.GetVisibility(),
		PushedAt:        timestamp(r.PushedAt),
		RecentCommits:   ToRepositoryCommits(commits),
	}
}

// ToRepositoryCommits maps a slice of commits to their compact projection.
func ToRepositoryCommits(commits []*github.RepositoryCommit) []entities.RepositoryCommit {
	res := make([]entities.RepositoryCommit, 0, len(commits))
	for _, c := range commits {
		author := c.GetCommit().GetAuthor()
		res = append(res, entities.RepositoryCommit{
			SHA:        c.GetSHA(),
			Message:    c.GetCommit().GetMessage(),
			AuthorName: author.Name,
			AuthoredAt: timestamp(author.Date),
			URL:        c.GetHTMLURL(),
		})
	}
	return res
}

func timestamp(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
