// Package github confirms that the push target exists on GitHub.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// TokenEnv is the environment variable holding the API token.
	TokenEnv = "GITHUB_TOKEN"
	// APIURLEnv overrides the API endpoint, as GitHub Actions does on Enterprise Server.
	APIURLEnv = "GITHUB_API_URL"
)

var (
	ErrNoToken            = errors.New(TokenEnv + " not set")
	ErrRepositoryNotFound = errors.New("repository not found")
)

// Repository is the subset of repository metadata the diagnostics report.
type Repository struct {
	FullName      string
	DefaultBranch string
	Private       bool
	SSHURL        string
}

// Client wraps the go-github client.
type Client struct {
	api *github.Client
	log *zap.Logger
}

// New returns a client authenticated with token.
func New(ctx context.Context, token string, logger *zap.Logger) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		api: github.NewClient(oauth2.NewClient(ctx, ts)),
		log: logger,
	}, nil
}

// FromEnv builds a client from GITHUB_TOKEN and, when set, GITHUB_API_URL.
func FromEnv(ctx context.Context, logger *zap.Logger) (*Client, error) {
	c, err := New(ctx, os.Getenv(TokenEnv), logger)
	if err != nil {
		return nil, err
	}
	if base := os.Getenv(APIURLEnv); base != "" {
		if err := c.SetBaseURL(base); err != nil {
			return nil, fmt.Errorf("%s: %w", APIURLEnv, err)
		}
	}
	return c, nil
}

// SetBaseURL points the client at another API endpoint, such as GitHub Enterprise.
func (c *Client) SetBaseURL(raw string) error {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}
	c.api.BaseURL = u
	return nil
}

// Repository looks up owner/name.
func (c *Client) Repository(ctx context.Context, owner, name string) (Repository, error) {
	repo, resp, err := c.api.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return Repository{}, fmt.Errorf("%w: %s/%s", ErrRepositoryNotFound, owner, name)
		}
		return Repository{}, fmt.Errorf("failed to get repository: %w", err)
	}

	c.log.Debug("repository found", zap.String("repo", repo.GetFullName()))
	return Repository{
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
		SSHURL:        repo.GetSSHURL(),
	}, nil
}

// ParseRepoURL splits a GitHub remote URL (SSH, scp-like or HTTPS) into owner and repository.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	repoURL = strings.TrimSuffix(strings.TrimSpace(repoURL), ".git")

	if rest, ok := strings.CutPrefix(repoURL, "git@github.com:"); ok {
		return splitPath(rest)
	}

	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid repository URL %q", repoURL)
	}
	return splitPath(u.Path)
}

func splitPath(p string) (string, string, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository URL format")
	}
	return parts[0], parts[1], nil
}
