// Package logging builds the process-wide zerolog logger. It is created once
// at startup and handed to every component; nothing else configures logging.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"document-embed/internal/config"
)

// New returns a logger writing to w according to cfg. Unknown levels fall
// back to info.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()
}

// Component derives a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
