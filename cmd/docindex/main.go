package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docindex"
	docfs "github.com/fwojciec/docindex/fs"
	"github.com/fwojciec/docindex/github"
	dochttp "github.com/fwojciec/docindex/http"
	"github.com/fwojciec/docindex/index"
	"github.com/fwojciec/docindex/lru"
	"github.com/fwojciec/docindex/minio"
	docprom "github.com/fwojciec/docindex/prometheus"
	"github.com/fwojciec/docindex/site"
	docslog "github.com/fwojciec/docindex/slog"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// EnvFile is loaded before parsing when it exists. Variables already
	// set in the environment win.
	EnvFile string
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{EnvFile: ".env"}
}

// Run parses the arguments, wires the services and either performs a
// single run (--once) or serves until ctx is cancelled.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if m.EnvFile != "" {
		if err := godotenv.Load(m.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", m.EnvFile, err)
		}
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docindex"),
		kong.Description("Index and serve the documentation of a GitHub organization"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	cfg, err := cli.Config()
	if err != nil {
		return err
	}

	logger, err := docslog.NewLogger(stderr, cli.LogFormat, cli.LogLevel)
	if err != nil {
		return err
	}

	app, err := m.wire(cfg, logger)
	if err != nil {
		return err
	}

	if !cfg.RunConfig.FastMode {
		logger.Warn("full mode is not available; trees are fetched in fast mode and only the label changes")
	}

	if cli.Once {
		result, err := app.runner.RunIndex(ctx, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Indexed %d repositories (%d failed), %d files, digest %s\n",
			result.Indexed, result.Failed, result.Files, result.Digest)
		return nil
	}

	return app.serve(ctx)
}

// app holds the wired services.
type app struct {
	runner    docindex.IndexRunner
	scheduler *index.Scheduler
	server    *dochttp.Server
	logger    *slog.Logger
}

// wire builds the service graph. It fails only on invalid configuration or
// an output directory that cannot be created.
func (m *Main) wire(cfg *Config, logger *slog.Logger) (*app, error) {
	client, err := github.NewClient(
		github.WithBaseURL(cfg.GitHubAPIURL),
		github.WithRateLimit(cfg.RequestsPerSecond),
	)
	if err != nil {
		return nil, err
	}

	indexer := &index.Indexer{
		Repositories:  docslog.NewLoggingRepositoryService(client, logger),
		Concurrency:   cfg.Workers,
		ListingPolicy: cfg.ListingPolicy,
	}

	renderer, err := site.NewRenderer()
	if err != nil {
		return nil, err
	}

	local, err := docfs.NewPublisher(cfg.HTTP.OutputDir)
	if err != nil {
		return nil, err
	}
	publishers := []docindex.Publisher{docslog.NewLoggingPublisher(local, "fs", logger)}

	if cfg.S3 != nil {
		mirror, err := minio.NewPublisher(*cfg.S3)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, docslog.NewLoggingPublisher(mirror, "s3", logger))
	}

	runner := index.NewRunner(indexer, renderer, cfg.RunConfig, publishers...)
	runner.Progress = progressLogger(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var instrumented docindex.IndexRunner = docprom.NewInstrumentedRunner(
		docslog.NewLoggingIndexRunner(runner, logger),
		docprom.NewMetrics(reg),
	)

	scheduler := &index.Scheduler{
		Runner:   instrumented,
		Interval: cfg.Interval,
		Logger:   logger,
	}

	raw := lru.NewRawContentCache(
		docslog.NewLoggingRawContentService(github.NewRawClient(github.WithRawBaseURL(cfg.GitHubRawURL)), logger),
		cfg.RawCacheSize,
		cfg.RawCacheTTL,
	)

	server, err := dochttp.NewServer(cfg.HTTP, dochttp.Deps{
		Runner:      instrumented,
		Raw:         raw,
		Admin:       renderer,
		LastResult:  runner.LastResult,
		State:       func() string { return string(scheduler.State()) },
		HasSnapshot: local.HasSnapshot,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		runner:    instrumented,
		scheduler: scheduler,
		server:    server,
		logger:    logger,
	}, nil
}

// serve runs the scheduler and the HTTP server until ctx is cancelled or
// the server fails.
func (a *app) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(a.server.Start)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("stopped")
	return nil
}

// progressLogger reports indexing progress through the logger.
func progressLogger(logger *slog.Logger) index.ProgressFunc {
	return func(e index.ProgressEvent) {
		switch e.Type {
		case index.ProgressStarted:
			logger.Info("indexing repositories", "total", e.Total)
		case index.ProgressListingTruncated:
			logger.Warn("repository listing truncated", "err", e.Error)
		case index.ProgressFailed:
			logger.Warn("repository recorded as empty", "repo", e.Repository, "progress", fmt.Sprintf("%d/%d", e.Completed, e.Total), "err", e.Error)
		case index.ProgressCompleted:
			logger.Debug("repository indexed", "repo", e.Repository, "progress", fmt.Sprintf("%d/%d", e.Completed, e.Total))
		case index.ProgressFinished:
			logger.Debug("indexing finished", "total", e.Total)
		}
	}
}
