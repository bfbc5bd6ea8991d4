package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnvVar names the environment variable that selects the log level.
const LevelEnvVar = "AD_UPLOADER_LOG_LEVEL"

// Init initializes the global logger with configuration from environment variables.
// AD_UPLOADER_LOG_LEVEL controls the log level: trace, debug, info, warn, error (default: info)
// AD_UPLOADER_LOG_FORMAT=json switches from the console writer to raw JSON lines,
// which is what the container log driver should ingest in production.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnvVar)))
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if strings.EqualFold(os.Getenv("AD_UPLOADER_LOG_FORMAT"), "json") {
		out = os.Stderr
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
