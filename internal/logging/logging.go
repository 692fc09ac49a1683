// Package logging configures the process-wide structured logger, mirroring
// the original's Logging facade: a single place that decides the log
// level and destination (stdout by default, or a file path from the CLI),
// after which every package logs through the standard log/slog package
// directly rather than through a custom wrapper type.
package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Options configures the process-wide logger.
type Options struct {
	// FilePath, if non-empty, redirects log output to this file instead of
	// stdout (spec.md §6's "log file path (string; default stdout)").
	FilePath string
	// Debug enables debug-level logging; otherwise info-level is used.
	Debug bool
}

// Configure installs a JSON slog.Logger as the process default, per
// Options, and returns a closer for the opened log file (a no-op when
// logging to stdout).
func Configure(opts Options) (func() error, error) {
	var out *os.File = os.Stdout
	closer := func() error { return nil }

	if opts.FilePath != "" {
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: opening %q: %w", opts.FilePath, err)
		}
		out = f
		closer = f.Close
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return closer, nil
}
