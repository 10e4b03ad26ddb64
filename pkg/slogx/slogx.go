// Package slogx configures the broker's structured logger and carries a
// request-scoped logger through context.
package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the handler. Zero values give JSON at info on stdout.
type Config struct {
	Service string
	Version string
	Env     string
	Level   string // debug, info, warn or error; slog offsets like "warn+2" work too
	Format  string // json or text

	Output io.Writer
}

// New builds the logger, installs it as slog's default and returns it.
// Attributes whose key names a secret are redacted.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		AddSource:   cfg.Env == "dev",
		Level:       ParseLevel(cfg.Level),
		ReplaceAttr: redactAttr,
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(h).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel reads s as a slog level name, case-insensitively. Unknown or
// empty input means info.
func ParseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
