// Package githubapp authenticates as a GitHub App and talks to the GitHub API on its behalf.
package githubapp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aneeshsharma72067/reposage/config"
	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
)

const (
	appTokenTTL    = 10 * time.Minute
	requestTimeout = 15 * time.Second
)

// Issuer signs App JWTs and exchanges them for installation credentials.
// The key is read on every call; nothing is cached here.
type Issuer struct {
	appID      string
	keyPath    string
	baseURL    *url.URL
	httpClient *http.Client
	log        *zap.SugaredLogger
	now        func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithHTTPClient overrides the outbound HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Issuer) { i.httpClient = c }
}

// WithClock overrides the time source used for JWT claims and skew diagnostics.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer builds an Issuer. Missing App credentials are reported on first use, not here.
func NewIssuer(cfg config.GitHubConfig, log *zap.SugaredLogger, opts ...Option) (*Issuer, error) {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.github.com/"
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	base, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse github api url: %w", err)
	}

	i := &Issuer{
		appID:      strings.TrimSpace(cfg.AppID),
		keyPath:    strings.TrimSpace(cfg.PrivateKeyPath),
		baseURL:    base,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        log.Named("githubapp"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueAppToken signs a fresh RS256 App JWT valid for ten minutes.
func (i *Issuer) IssueAppToken() (string, error) {
	if i.appID == "" || i.keyPath == "" {
		return "", entities.ErrConfigMissing
	}

	pemBytes, err := os.ReadFile(i.keyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", entities.ErrKeyNotFound, i.keyPath)
		}
		return "", fmt.Errorf("%w: %v", entities.ErrKeyNotFound, err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrKeyInvalid, err)
	}

	iat := i.now().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(appTokenTTL)),
		Issuer:    i.appID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: sign: %v", entities.ErrKeyInvalid, err)
	}
	return signed, nil
}

// IssueInstallationToken exchanges an App JWT for an installation access token.
func (i *Issuer) IssueInstallationToken(ctx context.Context, installationID int64) (*entities.InstallationToken, error) {
	if installationID <= 0 {
		return nil, fmt.Errorf("%w: installation id must be positive", entities.ErrInvalidArgument)
	}

	client, err := i.appClient()
	if err != nil {
		return nil, err
	}

	tok, resp, err := client.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, i.classify("create_installation_token", resp, err)
	}
	if tok.GetToken() == "" {
		return nil, &UpstreamError{Kind: entities.ErrTokenExchangeFailed, Status: resp.StatusCode, Message: "response omitted token"}
	}

	i.log.Debugw("installation token issued", "installation_id", installationID, "expires_at", tok.GetExpiresAt().Time)
	return &entities.InstallationToken{Token: tok.GetToken(), ExpiresAt: tok.GetExpiresAt().Time}, nil
}

// ResolveInstallationForRepo finds the installation that grants the App access to owner/repo.
func (i *Issuer) ResolveInstallationForRepo(ctx context.Context, owner, repo string) (int64, error) {
	owner, repo = strings.TrimSpace(owner), strings.TrimSpace(repo)
	if owner == "" || repo == "" {
		return 0, fmt.Errorf("%w: owner and repo are required", entities.ErrInvalidArgument)
	}

	client, err := i.appClient()
	if err != nil {
		return 0, err
	}

	inst, resp, err := client.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return 0, i.classify("find_repository_installation", resp, err)
	}
	if inst.GetID() == 0 {
		return 0, &UpstreamError{Kind: entities.ErrInstallationIDMissing, Status: resp.StatusCode, Message: "response omitted installation id"}
	}
	return inst.GetID(), nil
}

func (i *Issuer) appClient() (*github.Client, error) {
	token, err := i.IssueAppToken()
	if err != nil {
		return nil, err
	}
	return i.client(token), nil
}

func (i *Issuer) client(token string) *github.Client {
	c := github.NewClient(i.httpClient).WithAuthToken(token)
	base := *i.baseURL
	c.BaseURL = &base
	return c
}
