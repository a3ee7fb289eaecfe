package docindex

import "context"

// File is one published artifact of a snapshot.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Publication is the complete set of files for one snapshot: the snapshot
// document followed by the pages that reference it.
type Publication struct {
	Meta  SnapshotMeta
	Files []File
}

// SiteRenderer produces the presentation pages for a snapshot.
type SiteRenderer interface {
	Render(meta SnapshotMeta, snap Snapshot) ([]File, error)
}

// Publisher makes a publication durable. Implementations must replace each
// file atomically so that a concurrent reader never observes a partially
// written file.
type Publisher interface {
	Publish(ctx context.Context, pub *Publication) error
}
