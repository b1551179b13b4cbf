package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger: human-readable text in development
// and test, JSON in staging and production.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.JSONLogs() {
		return slog.New(slog.NewJSONHandler(w, opts)).With(slog.String("env", c.Env))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
