package index

import (
	"context"
	"fmt"
	"iter"

	"github.com/fwojciec/docindex"
)

// ListingPolicy decides what a failed listing page does to a run.
type ListingPolicy int

const (
	// BestEffort treats a failed listing page as the last page and keeps
	// the repositories listed so far.
	BestEffort ListingPolicy = iota
	// FailFast aborts the run when any listing page fails.
	FailFast
)

// ParseListingPolicy parses "best-effort" or "fail-fast".
func ParseListingPolicy(s string) (ListingPolicy, error) {
	switch s {
	case "", "best-effort":
		return BestEffort, nil
	case "fail-fast":
		return FailFast, nil
	default:
		return BestEffort, docindex.Errorf(docindex.EINVALID, "unknown listing policy %q", s)
	}
}

// String returns the policy name accepted by ParseListingPolicy.
func (p ListingPolicy) String() string {
	if p == FailFast {
		return "fail-fast"
	}
	return "best-effort"
}

// Repositories returns a lazy sequence over all repositories of org, one
// listing page at a time. Every range over the sequence starts again from
// page 1. The sequence ends at the first empty page; a failed page yields
// the error and ends the sequence.
func Repositories(ctx context.Context, svc docindex.RepositoryService, org string, token docindex.Credential) iter.Seq2[*docindex.RepositorySummary, error] {
	return func(yield func(*docindex.RepositorySummary, error) bool) {
		for page := 1; ; page++ {
			repos, err := svc.ListRepositories(ctx, org, page, token)
			if err != nil {
				yield(nil, &PageError{Page: page, Err: err})
				return
			}
			if len(repos) == 0 {
				return
			}
			for _, r := range repos {
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// PageError reports the listing page that failed.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("listing page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
