// Package index provides the documentation indexing pipeline. It
// coordinates repository enumeration, time-window filtering, concurrent
// tree retrieval and publication of the resulting snapshot.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/docindex"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the worker pool size used when none is set.
const DefaultConcurrency = 12

// DefaultBranch is assumed for repositories that report none.
const DefaultBranch = "main"

// Indexer builds snapshots of an organization's documentation files.
type Indexer struct {
	Repositories  docindex.RepositoryService
	Concurrency   int
	ListingPolicy ListingPolicy

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Options are the parameters of one indexing pass.
type Options struct {
	Organization string
	MonthsBack   int
	Prefixes     []string
	Token        docindex.Credential
}

// Validate returns an error if the options cannot produce a snapshot.
func (o Options) Validate() error {
	if o.Organization == "" {
		return docindex.Errorf(docindex.EINVALID, "organization required")
	}
	if o.MonthsBack < 0 {
		return docindex.Errorf(docindex.EINVALID, "months back must not be negative")
	}
	if len(o.Prefixes) == 0 {
		return docindex.Errorf(docindex.EINVALID, "at least one path prefix required")
	}
	return nil
}

// Result holds the outcome of an indexing pass.
type Result struct {
	Snapshot docindex.Snapshot
	Cutoff   time.Time

	Listed  int
	Indexed int
	Failed  int

	// ListingErr is the listing failure that ended enumeration early under
	// BestEffort. The snapshot then covers only the pages listed before it.
	ListingErr error
}

// ProgressEvent reports progress during an indexing pass.
type ProgressEvent struct {
	Type       ProgressType
	Completed  int
	Total      int
	Repository string
	Error      error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressListingTruncated
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting indexing progress.
type ProgressFunc func(event ProgressEvent)

// repoResult holds the outcome of indexing a single repository.
type repoResult struct {
	name  string
	index *docindex.RepositoryIndex
	err   error
}

// Index enumerates the organization, keeps the repositories pushed within
// the time window and fetches their trees concurrently. A repository whose
// tree cannot be fetched is recorded with an empty index; it never fails
// the pass or cancels other fetches. The progress callback is optional.
func (ix *Indexer) Index(ctx context.Context, opts Options, progress ProgressFunc) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(ProgressEvent) {}
	}

	now := time.Now
	if ix.Now != nil {
		now = ix.Now
	}
	result := &Result{Cutoff: docindex.MonthsAgo(now(), opts.MonthsBack)}

	repos, err := ix.recentRepositories(ctx, opts, result, progress)
	if err != nil {
		return nil, err
	}

	concurrency := ix.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	total := len(repos)
	progress(ProgressEvent{Type: ProgressStarted, Total: total})

	resultCh := make(chan repoResult, total)

	// Units never return an error, so the group context is only cancelled
	// by the parent.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for _, repo := range repos {
			g.Go(func() error {
				resultCh <- ix.indexRepository(gctx, opts, repo)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	snap := make(docindex.Snapshot, total)
	var completed int
	for res := range resultCh {
		completed++
		snap[res.name] = res.index

		if res.err != nil {
			result.Failed++
			progress(ProgressEvent{
				Type:       ProgressFailed,
				Completed:  completed,
				Total:      total,
				Repository: res.name,
				Error:      res.err,
			})
			continue
		}
		progress(ProgressEvent{
			Type:       ProgressCompleted,
			Completed:  completed,
			Total:      total,
			Repository: res.name,
		})
	}

	// A cancelled pass has empty entries for every interrupted fetch and
	// must not be published.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(ProgressEvent{Type: ProgressFinished, Completed: total, Total: total})

	result.Snapshot = snap
	result.Indexed = total
	return result, nil
}

// recentRepositories enumerates every repository and keeps those pushed at
// or after the cutoff. A repository without a push time is never kept.
func (ix *Indexer) recentRepositories(ctx context.Context, opts Options, result *Result, progress ProgressFunc) ([]*docindex.RepositorySummary, error) {
	var recent []*docindex.RepositorySummary
	seen := make(map[string]bool)

	for repo, err := range Repositories(ctx, ix.Repositories, opts.Organization, opts.Token) {
		if err != nil {
			if ix.ListingPolicy == FailFast {
				return nil, fmt.Errorf("enumerate repositories: %w", err)
			}
			result.ListingErr = err
			progress(ProgressEvent{Type: ProgressListingTruncated, Error: err})
			break
		}

		result.Listed++
		// Pagination can shift while listing and repeat an entry.
		if repo.Name == "" || seen[repo.Name] {
			continue
		}
		seen[repo.Name] = true

		if repo.LastPushedAt.IsZero() || repo.LastPushedAt.Before(result.Cutoff) {
			continue
		}
		recent = append(recent, repo)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return recent, nil
}

// indexRepository fetches and filters one repository's tree.
func (ix *Indexer) indexRepository(ctx context.Context, opts Options, repo *docindex.RepositorySummary) repoResult {
	branch := repo.DefaultBranch
	if branch == "" {
		branch = DefaultBranch
	}

	paths, err := ix.Repositories.FetchTree(ctx, opts.Organization, repo.Name, branch, opts.Token)
	if err != nil {
		return repoResult{
			name:  repo.Name,
			index: docindex.EmptyRepositoryIndex(branch),
			err:   err,
		}
	}

	return repoResult{
		name:  repo.Name,
		index: docindex.NewRepositoryIndex(branch, docindex.FilterPaths(paths, opts.Prefixes)),
	}
}
