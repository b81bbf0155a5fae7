// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level      string
	Format     string // "text" or "json"
	File       string
	WithCaller bool
	// Out defaults to stderr.
	Out io.Writer
}

// InitLogger replaces the global logger. A non-empty File also receives every
// line, uncolored, through a rotating writer.
func InitLogger(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
		level = l
	}

	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}

	var w io.Writer
	switch cfg.Format {
	case "", "text":
		w = zerolog.ConsoleWriter{Out: out}
	case "json":
		w = out
	default:
		return errors.Errorf("invalid log format %q (want text or json)", cfg.Format)
	}

	if cfg.File != "" {
		w = io.MultiWriter(w, zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			},
		})
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.WithCaller {
		logger = logger.With().Caller().Logger()
	}
	log.Logger = logger
	zerolog.SetGlobalLevel(level)
	return nil
}
