package cliconfig

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger builds the CLI logger: console output when pretty, JSON lines
// otherwise. Validate has already checked the level name.
func Logger(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
