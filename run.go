package docindex

import (
	"context"
	"time"
)

// RunResult is the outcome of one indexing run.
type RunResult struct {
	ID           string    `json:"id"`
	Organization string    `json:"organization"`
	Cutoff       string    `json:"cutoff"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`

	// Listed counts repositories returned by enumeration, Indexed those
	// inside the time window, Failed those whose tree fetch failed.
	Listed  int `json:"listed"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
	Files   int `json:"files"`

	Digest string `json:"digest"`

	// Token is the credential the run used after falling back to the
	// configured one. It is masked in logs and never serialised.
	Token Credential `json:"-"`
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// IndexRunner performs a complete indexing run: enumerate, fetch, publish.
// It is invoked by the scheduler and by the manual trigger.
type IndexRunner interface {
	// RunIndex indexes the configured organization and publishes the
	// result. An unset token falls back to the configured credential.
	RunIndex(ctx context.Context, token Credential) (*RunResult, error)
}
