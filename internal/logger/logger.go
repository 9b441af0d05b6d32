// Package logger builds the process logger from configuration.
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gobwas/wsd/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger as described by cfg. The returned closer releases
// the log file, if any; it must be called once the logger is no longer
// used.
func New(cfg *config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	if cfg == nil {
		return zerolog.Nop(), nil, errors.New("logging configuration cannot be nil")
	}
	level, err := zerolog.ParseLevel(string(cfg.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Target {
	case "", config.TargetStderr:
		out = os.Stderr
	case config.TargetStdout:
		out = os.Stdout
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Target,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out, closer = lj, lj
	}

	switch cfg.Format {
	case "", config.LogFormatJSON:
	case config.LogFormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.Target != "" && cfg.Target != config.TargetStderr && cfg.Target != config.TargetStdout,
			TimeFormat: time.RFC3339,
		}
	default:
		closer.Close()
		return zerolog.Nop(), nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closer, nil
}
