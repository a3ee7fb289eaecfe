// Package fs publishes snapshots to the local filesystem.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fwojciec/docindex"
)

// Ensure Publisher implements docindex.Publisher at compile time.
var _ docindex.Publisher = (*Publisher)(nil)

// Publisher writes publications into a directory. Every file is written to
// a temporary file in the same directory and renamed over its target, so a
// reader sees either the previous or the new content.
type Publisher struct {
	dir string

	// Serialises publications so the files of one publication land together.
	mu sync.Mutex
}

// NewPublisher creates the output directory if needed.
func NewPublisher(dir string) (*Publisher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Publisher{dir: dir}, nil
}

// Dir returns the output directory.
func (p *Publisher) Dir() string {
	return p.dir
}

// Publish writes the files in order.
func (p *Publisher) Publish(ctx context.Context, pub *docindex.Publication) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range pub.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !filepath.IsLocal(f.Name) {
			return docindex.Errorf(docindex.EINVALID, "invalid file name %q", f.Name)
		}
		if err := p.writeFile(filepath.Join(p.dir, f.Name), f.Data); err != nil {
			return fmt.Errorf("publish %s: %w", f.Name, err)
		}
	}
	return nil
}

// HasSnapshot reports whether a non-empty snapshot document is published.
func (p *Publisher) HasSnapshot() bool {
	info, err := os.Stat(filepath.Join(p.dir, docindex.SnapshotFileName))
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func (p *Publisher) writeFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// CreateTemp uses 0600; published files are world readable.
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
