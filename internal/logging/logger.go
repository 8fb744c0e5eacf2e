// Package logging configures the process-wide zerolog logger for the CLI.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger from LEOMEDIA_LOG_LEVEL.
// Any zerolog level name is accepted (trace, debug, info, warn, error);
// unset or unrecognized values fall back to info. Output is human-readable
// console format on stderr so job artifacts on stdout stay pipeable.
func Init() {
	level, err := zerolog.ParseLevel(os.Getenv("LEOMEDIA_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}
