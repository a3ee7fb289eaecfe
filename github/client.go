// Package github implements docindex.RepositoryService and
// docindex.RawContentService against the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every API request.
const DefaultTimeout = 30 * time.Second

// PageSize is the number of repositories requested per listing page.
const PageSize = 100

// DefaultBaseURL is the GitHub REST API endpoint.
const DefaultBaseURL = "https://api.github.com/"

// userAgent identifies requests made by docindex.
const userAgent = "docindex"

// Ensure Client implements docindex.RepositoryService at compile time.
var _ docindex.RepositoryService = (*Client)(nil)

// Client reads organization repositories and trees through go-github.
// It holds no credential: the token is supplied per call and only ever
// placed in the Authorization header of that call.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	timeout    time.Duration
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout    time.Duration
	baseURL    string
	rps        float64
	httpClient *http.Client
}

// WithTimeout sets the per-request timeout.
// Defaults to DefaultTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithBaseURL points the client at another API endpoint, such as a
// GitHub Enterprise server or a test server.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) {
		c.baseURL = u
	}
}

// WithRateLimit paces requests to at most rps per second. Zero or a
// negative value disables local pacing, which is the default.
func WithRateLimit(rps float64) Option {
	return func(c *clientConfig) {
		c.rps = rps
	}
}

// WithHTTPClient sets the underlying HTTP client. Its transport is reused
// for authenticated requests; its timeout is replaced by WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// NewClient creates a new Client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout: DefaultTimeout,
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base, err := url.Parse(cfg.baseURL)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid API base URL %q", cfg.baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	var transport http.RoundTripper
	if cfg.httpClient != nil {
		transport = cfg.httpClient.Transport
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.timeout, Transport: transport},
		baseURL:    base,
		timeout:    cfg.timeout,
	}
	if cfg.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.rps), 1)
	}
	return c, nil
}

// api returns a go-github client for one call. Anonymous calls share the
// plain HTTP client; authenticated calls wrap its transport with a static
// bearer token source.
func (c *Client) api(token docindex.Credential) *github.Client {
	hc := c.httpClient
	if token.IsSet() {
		hc = &http.Client{
			Timeout: c.timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()}),
				Base:   c.httpClient.Transport,
			},
		}
	}

	gh := github.NewClient(hc)
	gh.BaseURL = c.baseURL
	gh.UserAgent = userAgent
	return gh
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return docindex.Errorf(docindex.EUNAVAILABLE, "rate limiter: %v", err)
	}
	return nil
}

// ListRepositories returns one page of the organization's public
// repositories. Entries without a name are dropped.
func (c *Client) ListRepositories(ctx context.Context, org string, page int, token docindex.Credential) ([]*docindex.RepositorySummary, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := &github.RepositoryListByOrgOptions{
		Type:        "public",
		ListOptions: github.ListOptions{PerPage: PageSize, Page: page},
	}
	repos, _, err := c.api(token).Repositories.ListByOrg(ctx, org, opts)
	if err != nil {
		return nil, fmt.Errorf("list repositories of %s (page %d): %w", org, page, translateError(err))
	}

	summaries := make([]*docindex.RepositorySummary, 0, len(repos))
	for _, r := range repos {
		if r.GetName() == "" {
			continue
		}
		summaries = append(summaries, &docindex.RepositorySummary{
			Name:          r.GetName(),
			DefaultBranch: r.GetDefaultBranch(),
			LastPushedAt:  r.GetPushedAt().Time,
		})
	}
	return summaries, nil
}

// FetchTree returns the blob paths of the recursive tree at branch.
// Directories (trees) and submodules (commits) are skipped.
func (c *Client) FetchTree(ctx context.Context, org, repo, branch string, token docindex.Credential) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	tree, _, err := c.api(token).Git.GetTree(ctx, org, repo, escapePath(branch), true)
	if err != nil {
		return nil, fmt.Errorf("fetch tree %s/%s@%s: %w", org, repo, branch, translateError(err))
	}

	paths := make([]string, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		paths = append(paths, entry.GetPath())
	}
	return paths, nil
}
