// Package bdlog configures the process-wide structured logger.
//
// What: a single zerolog.Logger plus component/transaction child-logger
// helpers, used by every core package for lifecycle and error events.
// How: modeled directly on cuemby-warren's pkg/log — a package-level
// Logger set by Init, with With* helpers returning scoped children.
// Why: structured fields (table name, page id, rid, txn id) let an
// operator grep logs by entity instead of parsing prose messages.
package bdlog

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Defaults to a human-readable
// console writer at info level so tests and ad-hoc tools behave
// reasonably even without calling Init.
var Logger zerolog.Logger

func init() {
	Init(Config{Level: InfoLevel})
}

// Level mirrors cuemby-warren's string-keyed level type.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls logger construction.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the global Logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.JSONOutput {
		Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent scopes the logger to a subsystem name, e.g. "buffer",
// "txn", "optimizer".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithTxn scopes the logger to a transaction id and an optional trace id
// used to correlate a transaction's lifecycle across goroutines.
func WithTxn(txnID uint64, trace uuid.UUID) zerolog.Logger {
	return Logger.With().
		Uint64("txn_id", txnID).
		Str("trace_id", trace.String()).
		Logger()
}
