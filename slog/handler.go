package slog

import (
	"io"
	"log/slog"
	"strings"

	"github.com/fwojciec/docindex"
)

// NewLogger returns a logger writing text or JSON records at the given
// level ("debug", "info", "warn" or "error").
func NewLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, docindex.Errorf(docindex.EINVALID, "unknown log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, docindex.Errorf(docindex.EINVALID, "unknown log format %q", format)
	}
}
