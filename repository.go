package docindex

import (
	"context"
	"time"
)

// RepositorySummary is one entry of an organization's repository listing.
type RepositorySummary struct {
	Name          string
	DefaultBranch string

	// LastPushedAt is zero when the remote reports no push.
	LastPushedAt time.Time
}

// RepositoryService reads repository metadata from the code-hosting API.
// A non-empty token is sent as a bearer credential; an empty token makes
// anonymous requests.
type RepositoryService interface {
	// ListRepositories returns one page of the organization's public
	// repositories. Pages are numbered from 1; an empty page marks the end.
	ListRepositories(ctx context.Context, org string, page int, token Credential) ([]*RepositorySummary, error)

	// FetchTree returns the paths of all regular files in the recursive
	// tree at branch, using a single request.
	// Returns ENOTFOUND if the branch does not resolve.
	FetchTree(ctx context.Context, org, repo, branch string, token Credential) ([]string, error)
}

// RawContentRequest identifies one file at a branch of a repository.
type RawContentRequest struct {
	Organization string
	Repository   string
	Branch       string
	Path         string
}

// RawContent is the body of a file served through the same-origin proxy.
type RawContent struct {
	ContentType string
	Data        []byte
}

// RawContentService fetches raw file contents for the Markdown viewer.
type RawContentService interface {
	// FetchRaw returns the file's bytes.
	// Returns ENOTFOUND if the file does not exist.
	FetchRaw(ctx context.Context, req RawContentRequest, token Credential) (*RawContent, error)
}
