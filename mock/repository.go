package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.RepositoryService = (*RepositoryService)(nil)

// RepositoryService is a mock implementation of docindex.RepositoryService.
type RepositoryService struct {
	ListRepositoriesFn func(ctx context.Context, org string, page int, token docindex.Credential) ([]*docindex.RepositorySummary, error)
	FetchTreeFn        func(ctx context.Context, org, repo, branch string, token docindex.Credential) ([]string, error)
}

func (s *RepositoryService) ListRepositories(ctx context.Context, org string, page int, token docindex.Credential) ([]*docindex.RepositorySummary, error) {
	return s.ListRepositoriesFn(ctx, org, page, token)
}

func (s *RepositoryService) FetchTree(ctx context.Context, org, repo, branch string, token docindex.Credential) ([]string, error) {
	return s.FetchTreeFn(ctx, org, repo, branch, token)
}

var _ docindex.RawContentService = (*RawContentService)(nil)

// RawContentService is a mock implementation of docindex.RawContentService.
type RawContentService struct {
	FetchRawFn func(ctx context.Context, req docindex.RawContentRequest, token docindex.Credential) (*docindex.RawContent, error)
}

func (s *RawContentService) FetchRaw(ctx context.Context, req docindex.RawContentRequest, token docindex.Credential) (*docindex.RawContent, error) {
	return s.FetchRawFn(ctx, req, token)
}
