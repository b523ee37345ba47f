package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// newLogger returns the console logger used by the CLI. Diagnostics go to
// stderr so they never interleave with the prompt on stdout.
func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func newLoggerWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

func withLogger(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, &log)
}

// loggerFrom returns the logger stored in ctx, or a disabled one.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok {
		return log
	}
	nop := zerolog.Nop()
	return &nop
}
