// Package logger builds the process slog logger.
//
// [New] creates a JSON (or text) logger at the configured level, optionally
// fanned out to Sentry, and decorated with context extractors that add
// request-scoped attributes to every record:
//
//	log, flush, err := logger.New(cfg.Log,
//	    logger.RequestIDExtractor(),
//	    logger.Static(slog.String("session_id", cfg.SessionID)),
//	)
//	if err != nil {
//	    return err
//	}
//	defer flush()
//
// Store the request id with [WithRequestID]; every record logged with that
// context then carries a request_id attribute.
//
// When SENTRY_DSN is set, errors create Sentry issues and warnings (or only
// errors, with SENTRY_MIN_LEVEL=error) are stored as Sentry logs. A failed
// Sentry initialization falls back to local logging only.
//
// [NewNope] returns a logger that discards everything, for tests and defaults.
package logger
