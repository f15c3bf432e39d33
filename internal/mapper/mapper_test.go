package mapper

import (
	"testing"
	"time"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/require"
)

func TestFromPushEvent(t *testing.T) {
	ev := &github.PushEvent{
		Ref:    github.Ptr("refs/heads/main"),
		After:  github.Ptr("abc123"),
		Repo:   &github.PushEventRepository{ID: github.Ptr(int64(42)), FullName: github.Ptr("octo/widgets")},
		Pusher: &github.CommitAuthor{Name: github.Ptr("octocat")},
	}

	trigger, err := FromPushEvent("d-1", ev)
	require.NoError(t, err)
	require.Equal(t, entities.PushTrigger{
		DeliveryID:     "d-1",
		ExternalRepoID: 42,
		HeadSHA:        "abc123",
		Ref:            "refs/heads/main",
		PusherName:     "octocat",
		RepoFullName:   "octo/widgets",
	}, trigger)

	_, err = FromPushEvent("d-2", &github.PushEvent{})
	require.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestFromInstallationEvent(t *testing.T) {
	ev := &github.InstallationEvent{
		Action: github.Ptr("created"),
		Installation: &github.Installation{
			ID:      github.Ptr(int64(9)),
			Account: &github.User{Login: github.Ptr("octo-org"), Type: github.Ptr("Organization")},
		},
	}

	link, err := FromInstallationEvent(ev)
	require.NoError(t, err)
	require.Equal(t, int64(9), link.InstallationID)
	require.Equal(t, "octo-org", link.OwnerLogin)

	ev.Sender = &github.User{Login: github.Ptr("alice")}
	link, err = FromInstallationEvent(ev)
	require.NoError(t, err)
	require.Equal(t, "alice", link.OwnerLogin)

	ev.Installation.Account.Type = nil
	_, err = FromInstallationEvent(ev)
	require.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestFromGitHubRepositoryRejectsIncomplete(t *testing.T) {
	_, ok := FromGitHubRepository(&github.Repository{Name: github.Ptr("x")})
	require.False(t, ok)

	r, ok := FromGitHubRepository(&github.Repository{
		ID: github.Ptr(int64(1)), Name: github.Ptr("x"), FullName: github.Ptr("o/x"),
		DefaultBranch: github.Ptr("main"), Owner: &github.User{Login: github.Ptr("o"), Type: github.Ptr("User")},
	})
	require.True(t, ok)
	require.Equal(t, "o", r.OwnerLogin)
	require.Equal(t, "main", r.DefaultBranch)
}

func TestToRepositoryDetails(t *testing.T) {
	pushed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &github.Repository{
		ID: github.Ptr(int64(7)), Name: github.Ptr("w"), FullName: github.Ptr("o/w"),
		PushedAt: &github.Timestamp{Time: pushed},
	}
	commits := []*github.RepositoryCommit{{
		SHA:     github.Ptr("s1"),
		HTMLURL: github.Ptr("https://github.com/o/w/commit/s1"),
		Commit: &github.Commit{
			Message: github.Ptr("init"),
			Author:  &github.CommitAuthor{Name: github.Ptr("Ann"), Date: &github.Timestamp{Time: pushed}},
		},
	}}

	d := ToRepositoryDetails(repo, commits)
	require.Equal(t, int64(7), d.ExternalRepoID)
	require.NotNil(t, d.Topics)
	require.Equal(t, pushed, *d.PushedAt)
	require.Len(t, d.RecentCommits, 1)
	require.Equal(t, "Ann", *d.RecentCommits[0].AuthorName)
	require.Equal(t, "init", d.RecentCommits[0].Message)
}
