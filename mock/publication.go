package mock

import (
	"context"

	"github.com/fwojciec/docindex"
)

var _ docindex.SiteRenderer = (*SiteRenderer)(nil)

// SiteRenderer is a mock implementation of docindex.SiteRenderer.
type SiteRenderer struct {
	RenderFn func(meta docindex.SnapshotMeta, snap docindex.Snapshot) ([]docindex.File, error)
}

func (r *SiteRenderer) Render(meta docindex.SnapshotMeta, snap docindex.Snapshot) ([]docindex.File, error) {
	return r.RenderFn(meta, snap)
}

var _ docindex.Publisher = (*Publisher)(nil)

// Publisher is a mock implementation of docindex.Publisher.
type Publisher struct {
	PublishFn func(ctx context.Context, pub *docindex.Publication) error
}

func (p *Publisher) Publish(ctx context.Context, pub *docindex.Publication) error {
	return p.PublishFn(ctx, pub)
}
