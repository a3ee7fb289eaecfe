// Package slog provides logging decorators for the domain services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure LoggingRepositoryService implements docindex.RepositoryService.
var _ docindex.RepositoryService = (*LoggingRepositoryService)(nil)

// LoggingRepositoryService wraps a RepositoryService with logging. Listing
// pages are logged at debug level, failed tree fetches as warnings.
type LoggingRepositoryService struct {
	next   docindex.RepositoryService
	logger *slog.Logger
}

// NewLoggingRepositoryService creates a new LoggingRepositoryService.
func NewLoggingRepositoryService(next docindex.RepositoryService, logger *slog.Logger) *LoggingRepositoryService {
	return &LoggingRepositoryService{next: next, logger: logger}
}

func (s *LoggingRepositoryService) ListRepositories(ctx context.Context, org string, page int, token docindex.Credential) (repos []*docindex.RepositorySummary, err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "list repositories",
			"org", org,
			"page", page,
			"count", len(repos),
			"token", token,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListRepositories(ctx, org, page, token)
}

func (s *LoggingRepositoryService) FetchTree(ctx context.Context, org, repo, branch string, token docindex.Credential) (paths []string, err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "fetch tree",
			"repo", org+"/"+repo,
			"branch", branch,
			"count", len(paths),
			"code", docindex.ErrorCode(err),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchTree(ctx, org, repo, branch, token)
}

// Ensure LoggingRawContentService implements docindex.RawContentService.
var _ docindex.RawContentService = (*LoggingRawContentService)(nil)

// LoggingRawContentService wraps a RawContentService with debug logging.
type LoggingRawContentService struct {
	next   docindex.RawContentService
	logger *slog.Logger
}

// NewLoggingRawContentService creates a new LoggingRawContentService.
func NewLoggingRawContentService(next docindex.RawContentService, logger *slog.Logger) *LoggingRawContentService {
	return &LoggingRawContentService{next: next, logger: logger}
}

func (s *LoggingRawContentService) FetchRaw(ctx context.Context, req docindex.RawContentRequest, token docindex.Credential) (content *docindex.RawContent, err error) {
	defer func(begin time.Time) {
		size := 0
		if content != nil {
			size = len(content.Data)
		}
		s.logger.DebugContext(ctx, "fetch raw",
			"repo", req.Organization+"/"+req.Repository,
			"branch", req.Branch,
			"path", req.Path,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchRaw(ctx, req, token)
}
