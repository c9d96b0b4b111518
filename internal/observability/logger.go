// Package observability carries the ledger engine's two best-effort
// collaborators: a structured logger and an error sink. Neither may ever
// cause a public operation to fail — both methods below have no error
// return, so a logging or error-sink call can never propagate into the
// caller's result.
package observability

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog: a console writer outside production, structured
// JSON otherwise.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger builds a Logger. env controls formatting only ("production"
// gets structured JSON; anything else gets a human-readable console writer).
func NewLogger(env string) Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if env != "production" {
		zl = zl.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return Logger{zl: zl}
}

// With returns a Logger that always includes the given component name.
func (l Logger) With(component string) Logger {
	return Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Event logs a structured ledger event: action name, the fixed "TOKENS"
// flag, and whatever extra fields the caller attaches.
func (l Logger) Event(action string, data map[string]any) {
	evt := l.zl.Info().Str("action", action).Str("flag", "TOKENS")
	for k, v := range data {
		evt = evt.Interface(k, v)
	}
	evt.Msg(action)
}

// Error logs an error-level event; used by ErrorSink and for infra failures
// the engine has already decided to surface to the caller.
func (l Logger) Error(action string, err error, data map[string]any) {
	evt := l.zl.Error().Str("action", action).Str("flag", "TOKENS").Err(err)
	for k, v := range data {
		evt = evt.Interface(k, v)
	}
	evt.Msg(action)
}
