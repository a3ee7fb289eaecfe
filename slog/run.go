package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docindex"
)

// Ensure LoggingIndexRunner implements docindex.IndexRunner.
var _ docindex.IndexRunner = (*LoggingIndexRunner)(nil)

// LoggingIndexRunner wraps an IndexRunner with logging.
type LoggingIndexRunner struct {
	next   docindex.IndexRunner
	logger *slog.Logger
}

// NewLoggingIndexRunner creates a new LoggingIndexRunner.
func NewLoggingIndexRunner(next docindex.IndexRunner, logger *slog.Logger) *LoggingIndexRunner {
	return &LoggingIndexRunner{next: next, logger: logger}
}

// RunIndex logs the start of the run and its outcome. The credential is
// logged, masked, as resolved by the runner.
func (r *LoggingIndexRunner) RunIndex(ctx context.Context, token docindex.Credential) (result *docindex.RunResult, err error) {
	r.logger.InfoContext(ctx, "index run starting", "caller_token", token.IsSet())
	defer func(begin time.Time) {
		if err != nil {
			r.logger.ErrorContext(ctx, "index run failed",
				"duration", time.Since(begin),
				"err", err,
			)
			return
		}
		r.logger.InfoContext(ctx, "index run finished",
			"run", result.ID,
			"org", result.Organization,
			"cutoff", result.Cutoff,
			"listed", result.Listed,
			"indexed", result.Indexed,
			"failed", result.Failed,
			"files", result.Files,
			"digest", result.Digest,
			"token", result.Token,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return r.next.RunIndex(ctx, token)
}

// Ensure LoggingPublisher implements docindex.Publisher.
var _ docindex.Publisher = (*LoggingPublisher)(nil)

// LoggingPublisher wraps a Publisher with logging.
type LoggingPublisher struct {
	next   docindex.Publisher
	name   string
	logger *slog.Logger
}

// NewLoggingPublisher creates a new LoggingPublisher. The name identifies
// the destination in log lines.
func NewLoggingPublisher(next docindex.Publisher, name string, logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{next: next, name: name, logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, pub *docindex.Publication) (err error) {
	defer func(begin time.Time) {
		var size int
		for _, f := range pub.Files {
			size += len(f.Data)
		}
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "publish snapshot",
			"destination", p.name,
			"files", len(pub.Files),
			"bytes", size,
			"digest", pub.Meta.Digest,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Publish(ctx, pub)
}
