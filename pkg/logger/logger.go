package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownFormat is returned for a format other than json or text.
var ErrUnknownFormat = errors.New("logger: unknown format")

// Config describes the process logger.
type Config struct {
	// Output defaults to stdout.
	Output io.Writer `env:"-"`

	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	Sentry SentryConfig
}

// New builds a logger from cfg. Records are written to cfg.Output and, when
// a Sentry DSN is configured, forwarded to Sentry as well. Extractors add
// request-scoped attributes to every record.
//
// The returned flush function waits for buffered Sentry events; call it
// before the process exits.
func New(cfg Config, extractors ...ContextExtractor) (*slog.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(out, opts)
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
	}

	flush := func() {}
	if cfg.Sentry.DSN != "" {
		sh, f, err := newSentryHandler(cfg.Sentry)
		if err != nil {
			// Sentry is optional; keep logging locally.
			slog.New(handler).Error("failed to initialize Sentry", slog.Any("error", err))
		} else {
			handler = newFanout(handler, sh)
			flush = f
		}
	}

	return slog.New(newDecorator(handler, extractors...)), flush, nil
}

// ParseLevel accepts debug, info, warn, warning and error, case-insensitively.
// Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
}

// NewNope creates a logger that discards all output.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
