package index_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/index"
	"github.com/fwojciec/docindex/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runConfig() index.RunConfig {
	return index.RunConfig{
		Organization: "acme",
		MonthsBack:   6,
		Prefixes:     []string{"docs"},
		FastMode:     true,
		Token:        "ghp_configured_token",
	}
}

func newIndexer(svc docindex.RepositoryService) *index.Indexer {
	return &index.Indexer{Repositories: svc, Now: func() time.Time { return fixedNow }}
}

func TestRunner_RunIndex(t *testing.T) {
	t.Parallel()

	t.Run("publishes the snapshot followed by the rendered pages", func(t *testing.T) {
		t.Parallel()

		svc := pagedService(
			[]*docindex.RepositorySummary{{Name: "alpha", DefaultBranch: "main", LastPushedAt: fixedNow}},
			map[string][]string{"alpha": {"docs/a.md", "src/x.go"}},
		)
		renderer := &mock.SiteRenderer{
			RenderFn: func(meta docindex.SnapshotMeta, snap docindex.Snapshot) ([]docindex.File, error) {
				assert.Equal(t, "acme", meta.Organization)
				assert.True(t, meta.FastMode)
				assert.NotEmpty(t, meta.Digest)
				assert.Equal(t, []string{"alpha"}, snap.Names())
				return []docindex.File{{Name: "index.html", ContentType: "text/html", Data: []byte("<html>")}}, nil
			},
		}
		var published *docindex.Publication
		publisher := &mock.Publisher{
			PublishFn: func(_ context.Context, pub *docindex.Publication) error {
				published = pub
				return nil
			},
		}
		r := index.NewRunner(newIndexer(svc), renderer, runConfig(), publisher)
		r.Now = func() time.Time { return fixedNow }

		result, err := r.RunIndex(context.Background(), "")

		require.NoError(t, err)
		require.NotNil(t, published)
		require.Len(t, published.Files, 2)
		assert.Equal(t, docindex.SnapshotFileName, published.Files[0].Name)
		assert.Equal(t, "index.html", published.Files[1].Name)
		assert.Equal(t, index.Digest(published.Files[0].Data), published.Meta.Digest)

		assert.NotEmpty(t, result.ID)
		assert.Equal(t, "acme", result.Organization)
		assert.Equal(t, "2024-01-15T12:00:00Z", result.Cutoff)
		assert.Equal(t, 1, result.Indexed)
		assert.Equal(t, 1, result.Files)
		assert.Equal(t, published.Meta.Digest, result.Digest)
		assert.Same(t, result, r.LastResult())
	})

	t.Run("publishes only the snapshot without a renderer", func(t *testing.T) {
		t.Parallel()

		var files []docindex.File
		publisher := &mock.Publisher{
			PublishFn: func(_ context.Context, pub *docindex.Publication) error {
				files = pub.Files
				return nil
			},
		}
		r := index.NewRunner(newIndexer(pagedService(nil, nil)), nil, runConfig(), publisher)

		_, err := r.RunIndex(context.Background(), "")

		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.JSONEq(t, `{}`, string(files[0].Data))
	})

	t.Run("uses the caller credential over the configured one", func(t *testing.T) {
		t.Parallel()

		var got []docindex.Credential
		svc := pagedService(nil, nil)
		svc.ListRepositoriesFn = func(_ context.Context, _ string, _ int, tok docindex.Credential) ([]*docindex.RepositorySummary, error) {
			got = append(got, tok)
			return nil, nil
		}
		r := index.NewRunner(newIndexer(svc), nil, runConfig())

		override, err := r.RunIndex(context.Background(), "ghp_caller_override")
		require.NoError(t, err)
		fallback, err := r.RunIndex(context.Background(), "")
		require.NoError(t, err)

		assert.Equal(t, []docindex.Credential{"ghp_caller_override", "ghp_configured_token"}, got)
		assert.Equal(t, docindex.Credential("ghp_caller_override"), override.Token)
		assert.Equal(t, docindex.Credential("ghp_configured_token"), fallback.Token, "result records the resolved credential")
	})

	t.Run("fails when a publisher fails and keeps the previous result", func(t *testing.T) {
		t.Parallel()

		fail := false
		var mirrored int
		local := &mock.Publisher{
			PublishFn: func(context.Context, *docindex.Publication) error {
				if fail {
					return errors.New("disk full")
				}
				return nil
			},
		}
		mirror := &mock.Publisher{
			PublishFn: func(context.Context, *docindex.Publication) error {
				mirrored++
				return nil
			},
		}
		r := index.NewRunner(newIndexer(pagedService(nil, nil)), nil, runConfig(), local, mirror)

		first, err := r.RunIndex(context.Background(), "")
		require.NoError(t, err)

		fail = true
		second, err := r.RunIndex(context.Background(), "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Nil(t, second)
		assert.Same(t, first, r.LastResult())
		assert.Equal(t, 2, mirrored)
	})

	t.Run("does not publish when the render fails", func(t *testing.T) {
		t.Parallel()

		renderer := &mock.SiteRenderer{
			RenderFn: func(docindex.SnapshotMeta, docindex.Snapshot) ([]docindex.File, error) {
				return nil, errors.New("template error")
			},
		}
		publisher := &mock.Publisher{
			PublishFn: func(context.Context, *docindex.Publication) error {
				t.Error("publish must not be called")
				return nil
			},
		}
		r := index.NewRunner(newIndexer(pagedService(nil, nil)), renderer, runConfig(), publisher)

		_, err := r.RunIndex(context.Background(), "")

		require.Error(t, err)
		assert.Nil(t, r.LastResult())
	})

	t.Run("does not publish a failed index", func(t *testing.T) {
		t.Parallel()

		svc := pagedService(nil, nil)
		svc.ListRepositoriesFn = func(context.Context, string, int, docindex.Credential) ([]*docindex.RepositorySummary, error) {
			return nil, docindex.Errorf(docindex.EUNAUTHORIZED, "bad credentials")
		}
		ix := newIndexer(svc)
		ix.ListingPolicy = index.FailFast
		publisher := &mock.Publisher{
			PublishFn: func(context.Context, *docindex.Publication) error {
				t.Error("publish must not be called")
				return nil
			},
		}
		r := index.NewRunner(ix, nil, runConfig(), publisher)

		_, err := r.RunIndex(context.Background(), "")

		assert.Equal(t, docindex.EUNAUTHORIZED, docindex.ErrorCode(err))
	})

	t.Run("serialises concurrent runs", func(t *testing.T) {
		t.Parallel()

		var inFlight, peak atomic.Int32
		svc := pagedService(nil, nil)
		svc.ListRepositoriesFn = func(context.Context, string, int, docindex.Credential) ([]*docindex.RepositorySummary, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(10 * time.Millisecond)
			return nil, nil
		}
		r := index.NewRunner(newIndexer(svc), nil, runConfig())

		var wg sync.WaitGroup
		ids := make([]string, 4)
		for i := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := r.RunIndex(context.Background(), "")
				if assert.NoError(t, err) {
					ids[i] = res.ID
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), peak.Load())
		assert.Len(t, uniq(ids), 4)
	})

	t.Run("a waiting caller gives up when its context ends", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})
		svc := pagedService(nil, nil)
		svc.ListRepositoriesFn = func(context.Context, string, int, docindex.Credential) ([]*docindex.RepositorySummary, error) {
			close(started)
			<-release
			return nil, nil
		}
		r := index.NewRunner(newIndexer(svc), nil, runConfig())

		done := make(chan error, 1)
		go func() {
			_, err := r.RunIndex(context.Background(), "")
			done <- err
		}()
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := r.RunIndex(ctx, "")
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)
		require.NoError(t, <-done)
	})
}

func uniq(ss []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}
