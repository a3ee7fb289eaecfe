package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.IndexRunner = (*IndexRunner)(nil)

// IndexRunner is a mock implementation of docindex.IndexRunner.
type IndexRunner struct {
	RunIndexFn func(ctx context.Context, token docindex.Credential) (*docindex.RunResult, error)
}

func (r *IndexRunner) RunIndex(ctx context.Context, token docindex.Credential) (*docindex.RunResult, error) {
	return r.RunIndexFn(ctx, token)
}
