// Package http serves the published snapshot, the admin page, the manual
// run trigger and the raw content proxy.
package http

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/docindex"
	"github.com/fwojciec/docindex/site"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Header names accepted by the run trigger.
const (
	HeaderAdminSecret = "X-Admin-Secret"
	HeaderGitHubToken = "X-GitHub-Token"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	Organization string
	// OutputDir is the directory the snapshot is published to.
	OutputDir string
	// AdminSecret, when set, must accompany every run request.
	AdminSecret docindex.Credential
	// AdminFirst sends visitors of / to the admin page.
	AdminFirst bool
	// Token is used to fetch raw content.
	Token docindex.Credential
}

// AdminRenderer renders the admin page.
type AdminRenderer interface {
	RenderAdmin(w io.Writer, page site.AdminPage) error
}

// Deps are the collaborators the server delegates to. Only Runner is
// required.
type Deps struct {
	Runner docindex.IndexRunner
	Raw    docindex.RawContentService
	Admin  AdminRenderer

	// LastResult returns the most recent successful run, or nil.
	LastResult func() *docindex.RunResult
	// State returns the scheduler state.
	State func() string
	// HasSnapshot reports whether a non-empty snapshot is published.
	HasSnapshot func() bool

	// Metrics serves the Prometheus exposition.
	Metrics http.Handler
}

// Server provides the HTTP endpoints.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *slog.Logger
	config Config
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 5000
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(e, logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return nil
		}
	})

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleHome)
	s.echo.GET("/admin", s.handleAdmin)
	s.echo.POST("/run", s.handleRun)
	s.echo.GET("/raw/:org/:repo/:branch/*", s.handleRaw)
	s.echo.GET("/status", s.handleStatus)
	s.echo.GET("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}
	s.echo.Static("/", s.config.OutputDir)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	State   string              `json:"state"`
	LastRun *docindex.RunResult `json:"lastRun"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{State: s.state(), LastRun: s.lastResult()})
}

// handleHome serves the index page, or sends the visitor to the admin page
// when configured to or when nothing has been published yet.
func (s *Server) handleHome(c echo.Context) error {
	if c.QueryParam("skipadmin") != "1" && (s.config.AdminFirst || !s.hasSnapshot()) {
		return c.Redirect(http.StatusFound, "/admin")
	}

	data, err := os.ReadFile(filepath.Join(s.config.OutputDir, site.IndexPage))
	if os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "index has not been generated yet")
	} else if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTMLBlob(http.StatusOK, data)
}

func (s *Server) handleAdmin(c echo.Context) error {
	if s.deps.Admin == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	var buf bytes.Buffer
	if err := s.deps.Admin.RenderAdmin(&buf, site.AdminPage{
		Organization:  s.config.Organization,
		RequireSecret: s.config.AdminSecret.IsSet(),
		State:         s.state(),
		LastRun:       s.lastResult(),
	}); err != nil {
		return fmt.Errorf("render admin page: %w", err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// handleRun runs the indexer synchronously. The run survives a client
// disconnect so a started publication always completes.
func (s *Server) handleRun(c echo.Context) error {
	if !s.authorized(c) {
		s.logger.Info("run rejected", "remote", c.RealIP(), "reason", "admin secret mismatch")
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	token := docindex.Credential(c.FormValue("token"))
	if !token.IsSet() {
		token = docindex.Credential(c.Request().Header.Get(HeaderGitHubToken))
	}

	ctx := context.WithoutCancel(c.Request().Context())
	result, err := s.deps.Runner.RunIndex(ctx, token)
	if err != nil {
		return c.String(http.StatusInternalServerError, "index run failed: "+err.Error())
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return c.JSON(http.StatusOK, result)
	}
	return c.Redirect(http.StatusSeeOther, "/?skipadmin=1")
}

// authorized compares the supplied secret in constant time. Without a
// configured secret every request is authorized.
func (s *Server) authorized(c echo.Context) bool {
	if !s.config.AdminSecret.IsSet() {
		return true
	}
	supplied := c.Request().Header.Get(HeaderAdminSecret)
	if supplied == "" {
		supplied = c.FormValue("secret")
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.config.AdminSecret.Value())) == 1
}

// handleRaw proxies a repository file under the same origin as the viewer.
func (s *Server) handleRaw(c echo.Context) error {
	if s.deps.Raw == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	// Echo matches on the raw path only when it differs from the default
	// encoding; parameters are then still escaped.
	escaped := c.Request().URL.RawPath != ""

	var req docindex.RawContentRequest
	for _, p := range []struct {
		dst  *string
		name string
	}{
		{&req.Organization, "org"},
		{&req.Repository, "repo"},
		{&req.Branch, "branch"},
		{&req.Path, "*"},
	} {
		v := c.Param(p.name)
		if escaped {
			var err error
			if v, err = url.PathUnescape(v); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid raw path")
			}
		}
		if v == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid raw path")
		}
		*p.dst = v
	}

	content, err := s.deps.Raw.FetchRaw(c.Request().Context(), req, s.config.Token)
	if err != nil {
		// Anything but a missing file is an upstream failure.
		status := ErrorStatusCode(docindex.ErrorCode(err))
		if status != http.StatusNotFound {
			status = http.StatusBadGateway
		}
		s.logger.Warn("raw fetch failed", "path", req.Path, "status", status, "err", err)
		return c.String(status, "error fetching raw content: "+docindex.ErrorMessage(err))
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=300")
	return c.Blob(http.StatusOK, content.ContentType, content.Data)
}

func (s *Server) state() string {
	if s.deps.State == nil {
		return "idle"
	}
	return s.deps.State()
}

func (s *Server) lastResult() *docindex.RunResult {
	if s.deps.LastResult == nil {
		return nil
	}
	return s.deps.LastResult()
}

func (s *Server) hasSnapshot() bool {
	if s.deps.HasSnapshot == nil {
		info, err := os.Stat(filepath.Join(s.config.OutputDir, docindex.SnapshotFileName))
		return err == nil && info.Size() > 0
	}
	return s.deps.HasSnapshot()
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.Addr())
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
