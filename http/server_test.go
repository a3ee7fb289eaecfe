package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/docindex"
	dochttp "github.com/fwojciec/docindex/http"
	"github.com/fwojciec/docindex/mock"
	"github.com/fwojciec/docindex/site"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	runner *mock.IndexRunner
	raw    *mock.RawContentService
	tokens []docindex.Credential
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir()}
	f.runner = &mock.IndexRunner{
		RunIndexFn: func(_ context.Context, token docindex.Credential) (*docindex.RunResult, error) {
			f.tokens = append(f.tokens, token)
			return &docindex.RunResult{ID: "run-1", Organization: "acme", Indexed: 2}, nil
		},
	}
	f.raw = &mock.RawContentService{}
	return f
}

func (f *fixture) publish(t *testing.T, snapshot string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "tree.json"), []byte(snapshot), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "index.html"), []byte("<html>index</html>"), 0o644))
}

func (f *fixture) server(t *testing.T, mutate func(*dochttp.Config)) *dochttp.Server {
	t.Helper()
	renderer, err := site.NewRenderer()
	require.NoError(t, err)

	cfg := dochttp.Config{
		Organization: "acme",
		OutputDir:    f.dir,
		Token:        "ghp_configured_token",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := dochttp.NewServer(cfg, dochttp.Deps{
		Runner:     f.runner,
		Raw:        f.raw,
		Admin:      renderer,
		LastResult: func() *docindex.RunResult { return &docindex.RunResult{ID: "last"} },
		State:      func() string { return "running" },
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "docindex_runs_total 1\n")
		}),
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return s
}

func do(s http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func runRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("requires a runner", func(t *testing.T) {
		t.Parallel()
		_, err := dochttp.NewServer(dochttp.Config{OutputDir: t.TempDir()}, dochttp.Deps{}, slog.New(slog.DiscardHandler))
		assert.ErrorContains(t, err, "runner cannot be nil")
	})

	t.Run("requires a logger", func(t *testing.T) {
		t.Parallel()
		_, err := dochttp.NewServer(dochttp.Config{OutputDir: t.TempDir()}, dochttp.Deps{Runner: &mock.IndexRunner{}}, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("defaults the port", func(t *testing.T) {
		t.Parallel()
		s, err := dochttp.NewServer(dochttp.Config{Host: "0.0.0.0", OutputDir: t.TempDir()}, dochttp.Deps{Runner: &mock.IndexRunner{}}, slog.New(slog.DiscardHandler))
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:5000", s.Addr())
	})
}

func TestServer_Home(t *testing.T) {
	t.Parallel()

	t.Run("redirects to admin before the first snapshot", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/admin", rec.Header().Get("Location"))
	})

	t.Run("redirects to admin when the snapshot is empty", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.publish(t, "")

		rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("serves the index once published", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.publish(t, "{}")

		rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<html>index</html>", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	})

	t.Run("admin first redirects unless skipped", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.publish(t, "{}")
		s := f.server(t, func(c *dochttp.Config) { c.AdminFirst = true })

		rec := do(s, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusFound, rec.Code)

		rec = do(s, httptest.NewRequest(http.MethodGet, "/?skipadmin=1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reports a missing index when skipping admin", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, "/?skipadmin=1", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_Admin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.server(t, func(c *dochttp.Config) { c.AdminSecret = "s3cret" })

	rec := do(s, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="secret"`)
	assert.Contains(t, rec.Body.String(), "running")
	assert.Contains(t, rec.Body.String(), "last")
}

type failingAdmin struct{}

func (failingAdmin) RenderAdmin(w io.Writer, _ site.AdminPage) error {
	_, _ = io.WriteString(w, "<html>partial")
	return errors.New("template exploded")
}

func TestServer_AdminRenderFailure(t *testing.T) {
	t.Parallel()

	// Given: an admin renderer that fails halfway through the page
	f := newFixture(t)
	s, err := dochttp.NewServer(dochttp.Config{Organization: "acme", OutputDir: f.dir}, dochttp.Deps{
		Runner: f.runner,
		Admin:  failingAdmin{},
	}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	// When: requesting the admin page
	rec := do(s, httptest.NewRequest(http.MethodGet, "/admin", nil))

	// Then: the failure is reported with a server error, not a truncated page
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "partial")
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	t.Run("rejects a wrong secret without running", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		s := f.server(t, func(c *dochttp.Config) { c.AdminSecret = "s3cret" })

		req := runRequest(url.Values{"secret": {"guess"}})
		rec := do(s, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.tokens)
	})

	t.Run("rejects a missing secret", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		s := f.server(t, func(c *dochttp.Config) { c.AdminSecret = "s3cret" })

		rec := do(s, runRequest(url.Values{}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.tokens)
	})

	t.Run("accepts the secret from the header", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		s := f.server(t, func(c *dochttp.Config) { c.AdminSecret = "s3cret" })

		req := runRequest(url.Values{})
		req.Header.Set(dochttp.HeaderAdminSecret, "s3cret")
		rec := do(s, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?skipadmin=1", rec.Header().Get("Location"))
		assert.Len(t, f.tokens, 1)
	})

	t.Run("accepts the secret from the form", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		s := f.server(t, func(c *dochttp.Config) { c.AdminSecret = "s3cret" })

		rec := do(s, runRequest(url.Values{"secret": {"s3cret"}}))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("runs without a secret when none is configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		rec := do(f.server(t, nil), runRequest(url.Values{}))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("prefers the form token over the header", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := runRequest(url.Values{"token": {"ghp_from_form"}})
		req.Header.Set(dochttp.HeaderGitHubToken, "ghp_from_header")
		do(f.server(t, nil), req)

		assert.Equal(t, []docindex.Credential{"ghp_from_form"}, f.tokens)
	})

	t.Run("uses the header token when the form has none", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := runRequest(url.Values{})
		req.Header.Set(dochttp.HeaderGitHubToken, "ghp_from_header")
		do(f.server(t, nil), req)

		assert.Equal(t, []docindex.Credential{"ghp_from_header"}, f.tokens)
	})

	t.Run("leaves the token unset so the runner falls back", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		do(f.server(t, nil), runRequest(url.Values{}))

		require.Len(t, f.tokens, 1)
		assert.False(t, f.tokens[0].IsSet())
	})

	t.Run("returns the failure message", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.runner.RunIndexFn = func(context.Context, docindex.Credential) (*docindex.RunResult, error) {
			return nil, errors.New("disk full")
		}

		rec := do(f.server(t, nil), runRequest(url.Values{}))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "disk full")
	})

	t.Run("returns the result as JSON when asked", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		req := runRequest(url.Values{})
		req.Header.Set("Accept", "application/json")
		rec := do(f.server(t, nil), req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var result docindex.RunResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "run-1", result.ID)
	})

	t.Run("survives a cancelled request", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var ctxErr error
		f.runner.RunIndexFn = func(ctx context.Context, _ docindex.Credential) (*docindex.RunResult, error) {
			ctxErr = ctx.Err()
			return &docindex.RunResult{}, nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		do(f.server(t, nil), runRequest(url.Values{}).WithContext(ctx))

		assert.NoError(t, ctxErr)
	})
}

func TestServer_Raw(t *testing.T) {
	t.Parallel()

	t.Run("proxies decoded path parameters", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		var got docindex.RawContentRequest
		var gotToken docindex.Credential
		f.raw.FetchRawFn = func(_ context.Context, req docindex.RawContentRequest, token docindex.Credential) (*docindex.RawContent, error) {
			got, gotToken = req, token
			return &docindex.RawContent{ContentType: "text/markdown; charset=utf-8", Data: []byte("# Hi")}, nil
		}

		rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, "/raw/acme/alpha/release%2F1.0/docs/a%20b.md", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# Hi", rec.Body.String())
		assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Equal(t, docindex.RawContentRequest{
			Organization: "acme",
			Repository:   "alpha",
			Branch:       "release/1.0",
			Path:         "docs/a b.md",
		}, got)
		assert.Equal(t, docindex.Credential("ghp_configured_token"), gotToken)
	})

	t.Run("passes file names with escaped characters through once", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			target string
			want   string
		}{
			{target: "/raw/acme/alpha/main/docs/100%25.md", want: "docs/100%.md"},
			{target: "/raw/acme/alpha/main/docs/a%2520b.md", want: "docs/a%20b.md"},
			{target: "/raw/acme/alpha/main/docs/plain.md", want: "docs/plain.md"},
		}
		for _, tt := range tests {
			t.Run(tt.target, func(t *testing.T) {
				t.Parallel()
				f := newFixture(t)
				var got docindex.RawContentRequest
				f.raw.FetchRawFn = func(_ context.Context, req docindex.RawContentRequest, _ docindex.Credential) (*docindex.RawContent, error) {
					got = req
					return &docindex.RawContent{ContentType: "text/markdown; charset=utf-8", Data: []byte("ok")}, nil
				}

				rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, tt.target, nil))

				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				assert.Equal(t, tt.want, got.Path)
				assert.Equal(t, "main", got.Branch)
			})
		}
	})

	t.Run("maps a missing file to 404", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.raw.FetchRawFn = func(context.Context, docindex.RawContentRequest, docindex.Credential) (*docindex.RawContent, error) {
			return nil, docindex.Errorf(docindex.ENOTFOUND, "not found")
		}

		rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, "/raw/acme/alpha/main/docs/x.md", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("maps other failures to 502", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.raw.FetchRawFn = func(context.Context, docindex.RawContentRequest, docindex.Credential) (*docindex.RawContent, error) {
			return nil, docindex.Errorf(docindex.EUNAUTHORIZED, "bad credentials")
		}

		rec := do(f.server(t, nil), httptest.NewRequest(http.MethodGet, "/raw/acme/alpha/main/docs/x.md", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "bad credentials")
	})
}

func TestServer_StatusHealthAndMetrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	s := f.server(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var status dochttp.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "running", status.State)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, "last", status.LastRun.ID)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docindex_runs_total")
}

func TestServer_StaticFiles(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.publish(t, `{"alpha":{"branch":"main","groups":{},"paths":[]}}`)
	s := f.server(t, nil)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/tree.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alpha":{"branch":"main","groups":{},"paths":[]}}`, rec.Body.String())

	rec = do(s, httptest.NewRequest(http.MethodGet, "/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want int
	}{
		{docindex.EINVALID, http.StatusBadRequest},
		{docindex.ENOTFOUND, http.StatusNotFound},
		{docindex.EUNAUTHORIZED, http.StatusUnauthorized},
		{docindex.ERATELIMIT, http.StatusTooManyRequests},
		{docindex.EUNAVAILABLE, http.StatusBadGateway},
		{docindex.EINTERNAL, http.StatusInternalServerError},
		{"unknown", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dochttp.ErrorStatusCode(tt.code), tt.code)
	}
}
