package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// RunConfig is the indexing configuration fixed at startup.
type RunConfig struct {
	Organization string
	MonthsBack   int
	Prefixes     []string
	FastMode     bool
	PublicURL    string

	// Token is used when a run is started without a credential.
	Token docindex.Credential
}

// Ensure Runner implements docindex.IndexRunner at compile time.
var _ docindex.IndexRunner = (*Runner)(nil)

// Runner performs complete indexing runs: index, encode, render, publish.
// At most one run is in flight at a time; a caller arriving during a run
// waits for it to finish and then performs its own.
type Runner struct {
	indexer    *Indexer
	renderer   docindex.SiteRenderer
	publishers []docindex.Publisher
	config     RunConfig

	// Progress, if set, receives the indexer's progress events.
	Progress ProgressFunc

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	sem *semaphore.Weighted

	mu   sync.Mutex
	last *docindex.RunResult
}

// NewRunner creates a Runner. The renderer may be nil, in which case only
// the snapshot document is published.
func NewRunner(indexer *Indexer, renderer docindex.SiteRenderer, config RunConfig, publishers ...docindex.Publisher) *Runner {
	return &Runner{
		indexer:    indexer,
		renderer:   renderer,
		publishers: publishers,
		config:     config,
		sem:        semaphore.NewWeighted(1),
	}
}

// RunIndex runs the indexer and publishes the snapshot through every
// publisher. A failure of any step fails the run; nothing is retried.
func (r *Runner) RunIndex(ctx context.Context, token docindex.Credential) (*docindex.RunResult, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	token = token.Or(r.config.Token)
	started := now()
	res, err := r.indexer.Index(ctx, Options{
		Organization: r.config.Organization,
		MonthsBack:   r.config.MonthsBack,
		Prefixes:     r.config.Prefixes,
		Token:        token,
	}, r.Progress)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", r.config.Organization, err)
	}

	data, err := EncodeSnapshot(res.Snapshot)
	if err != nil {
		return nil, err
	}

	meta := docindex.SnapshotMeta{
		Organization: r.config.Organization,
		FastMode:     r.config.FastMode,
		GeneratedAt:  now().UTC(),
		Digest:       Digest(data),
		PublicURL:    r.config.PublicURL,
	}

	pub := &docindex.Publication{
		Meta: meta,
		Files: []docindex.File{{
			Name:        docindex.SnapshotFileName,
			ContentType: "application/json",
			Data:        data,
		}},
	}
	if r.renderer != nil {
		pages, err := r.renderer.Render(meta, res.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("render pages: %w", err)
		}
		pub.Files = append(pub.Files, pages...)
	}

	var errs []error
	for _, p := range r.publishers {
		if err := p.Publish(ctx, pub); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("publish snapshot: %w", err)
	}

	result := &docindex.RunResult{
		ID:           uuid.NewString(),
		Organization: r.config.Organization,
		Cutoff:       res.Cutoff.Format(docindex.TimestampFormat),
		StartedAt:    started,
		FinishedAt:   now(),
		Listed:       res.Listed,
		Indexed:      res.Indexed,
		Failed:       res.Failed,
		Files:        res.Snapshot.FileCount(),
		Digest:       meta.Digest,
		Token:        token,
	}

	r.mu.Lock()
	r.last = result
	r.mu.Unlock()

	return result, nil
}

// LastResult returns the most recent successful run, or nil.
func (r *Runner) LastResult() *docindex.RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
