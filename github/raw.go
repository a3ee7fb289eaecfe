package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
)

// DefaultRawBaseURL serves raw file contents.
const DefaultRawBaseURL = "https://raw.githubusercontent.com/"

// maxRawBytes caps the size of a proxied file.
const maxRawBytes = 16 << 20

// Ensure RawClient implements docindex.RawContentService at compile time.
var _ docindex.RawContentService = (*RawClient)(nil)

// RawClient fetches file contents from the raw content host. It does not
// go through the REST API, so it has no JSON decoding and no pagination.
type RawClient struct {
	client  *http.Client
	baseURL string
}

// RawOption configures a RawClient.
type RawOption func(*RawClient)

// WithRawBaseURL overrides the raw content host.
func WithRawBaseURL(u string) RawOption {
	return func(c *RawClient) {
		c.baseURL = strings.TrimSuffix(u, "/") + "/"
	}
}

// WithRawTimeout sets the request timeout.
// Defaults to DefaultTimeout (30s) if not specified.
func WithRawTimeout(d time.Duration) RawOption {
	return func(c *RawClient) {
		c.client.Timeout = d
	}
}

// NewRawClient creates a new RawClient.
func NewRawClient(opts ...RawOption) *RawClient {
	c := &RawClient{
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: DefaultRawBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRaw returns the file's contents. Markdown files are labelled
// text/markdown so the viewer can render them.
func (c *RawClient) FetchRaw(ctx context.Context, req docindex.RawContentRequest, token docindex.Credential) (*docindex.RawContent, error) {
	u := c.baseURL + url.PathEscape(req.Organization) +
		"/" + url.PathEscape(req.Repository) +
		"/" + url.PathEscape(req.Branch) +
		"/" + escapePath(req.Path)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "invalid raw content request")
	}
	if token.IsSet() {
		httpReq.Header.Set("Authorization", "Bearer "+token.Value())
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch raw %s: %w", req.Path, translateError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch raw %s: %w", req.Path, statusError(resp.StatusCode, ""))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRawBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch raw %s: %w", req.Path, translateError(err))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if docindex.IsMarkdown(req.Path) {
		contentType = "text/markdown; charset=utf-8"
	}

	return &docindex.RawContent{ContentType: contentType, Data: data}, nil
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
