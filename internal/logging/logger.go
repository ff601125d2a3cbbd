// Package logging builds the zerolog logger shared by the client components.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w.  In the dev environment output goes
// through a console writer; elsewhere it is one JSON object per line.  An
// unknown level name falls back to info.
func New(w io.Writer, env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if env == "dev" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Default is New on stderr.
func Default(env, level string) zerolog.Logger {
	return New(os.Stderr, env, level)
}
