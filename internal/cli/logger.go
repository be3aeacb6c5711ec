package cli

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// initLogger points the global logger at w with Unix timestamps
// and returns it, so it can also be attached to a context.
func initLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log.Logger
}
