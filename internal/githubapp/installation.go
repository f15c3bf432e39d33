package githubapp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aneeshsharma72067/reposage/internal/entities"
	"github.com/aneeshsharma72067/reposage/internal/mapper"

	"github.com/google/go-github/v68/github"
)

const (
	// tokenRotationMargin keeps a cached installation token from being used right up to its expiry.
	tokenRotationMargin = 5 * time.Minute
	recentCommitsLimit  = 10
	listReposPageSize   = 100
)

// InstallationClient calls installation-scoped GitHub endpoints. Tokens are cached per installation
// and re-minted once they come within tokenRotationMargin of expiry.
type InstallationClient struct {
	issuer *Issuer

	mu     sync.Mutex
	tokens map[int64]entities.InstallationToken
}

// NewInstallationClient wraps an Issuer.
func NewInstallationClient(issuer *Issuer) *InstallationClient {
	return &InstallationClient{
		issuer: issuer,
		tokens: make(map[int64]entities.InstallationToken),
	}
}

func (c *InstallationClient) token(ctx context.Context, installationID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.tokens[installationID]; ok && c.issuer.now().Before(tok.ExpiresAt.Add(-tokenRotationMargin)) {
		return tok.Token, nil
	}

	tok, err := c.issuer.IssueInstallationToken(ctx, installationID)
	if err != nil {
		return "", err
	}
	c.tokens[installationID] = *tok
	return tok.Token, nil
}

func (c *InstallationClient) client(ctx context.Context, installationID int64) (*github.Client, error) {
	tok, err := c.token(ctx, installationID)
	if err != nil {
		return nil, err
	}
	return c.issuer.client(tok), nil
}

// ListRepositories returns every repository the installation can access and the reported total.
func (c *InstallationClient) ListRepositories(ctx context.Context, installationID int64) ([]*github.Repository, int, error) {
	client, err := c.client(ctx, installationID)
	if err != nil {
		return nil, 0, err
	}

	var (
		all   []*github.Repository
		total int
	)
	opts := &github.ListOptions{PerPage: listReposPageSize}
	for {
		page, resp, err := client.Apps.ListRepos(ctx, opts)
		if err != nil {
			return nil, 0, c.issuer.classify("list_installation_repositories", resp, err)
		}
		all = append(all, page.Repositories...)
		total = page.GetTotalCount()
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, total, nil
}

// RepositoryDetails fetches repository metadata and its most recent commits.
func (c *InstallationClient) RepositoryDetails(ctx context.Context, installationID int64, owner, repo string) (*entities.RepositoryDetails, error) {
	client, err := c.client(ctx, installationID)
	if err != nil {
		return nil, err
	}

	r, resp, err := client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, c.issuer.classify("get_repository", resp, err)
	}

	commits, resp, err := client.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: recentCommitsLimit},
	})
	if err != nil {
		// an empty repository answers 409 here
		if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusConflict {
			commits = nil
		} else {
			return nil, c.issuer.classify("list_commits", resp, err)
		}
	}

	details := mapper.ToRepositoryDetails(r, commits)
	if details.ExternalRepoID == 0 {
		return nil, fmt.Errorf("%w: repository response without id", entities.ErrTokenExchangeFailed)
	}
	return &details, nil
}
