// Package logging provides the process-wide structured logger used by the
// jws loader.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const loggerKey contextKey = "logger"

// Config controls the shape of the global logger.
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json, console
	Service string
}

// New builds a zerolog.Logger from cfg. Callers typically install the result
// as the global logger and/or thread it through context via WithContext.
func New(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = os.Stdout
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).With().
		Timestamp().
		Str("service", cfg.Service).
		Logger()
}

// WithContext attaches logger to ctx for retrieval by FromContext.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a disabled logger if
// none was attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return zerolog.Nop()
	}
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// RedactJKU shortens a jku URL for log lines, keeping the host but dropping
// any userinfo or query string that might carry credentials.
func RedactJKU(jku string) string {
	cut := strings.IndexAny(jku, "?#")
	if cut >= 0 {
		jku = jku[:cut]
	}
	if at := strings.LastIndex(jku, "@"); at >= 0 {
		if scheme := strings.Index(jku, "://"); scheme >= 0 && scheme < at {
			return jku[:scheme+3] + "[redacted]" + jku[at:]
		}
	}
	return jku
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
