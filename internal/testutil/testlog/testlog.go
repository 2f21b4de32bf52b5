package testlog

import (
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const EnvTestLogLevel = "HUBGATE_TEST_LOG_LEVEL"

var configureOnce sync.Once

// Start routes the global logger through a quiet test profile.
func Start(t *testing.T) {
	t.Helper()
	configureOnce.Do(func() {
		level := zerolog.WarnLevel
		if raw := os.Getenv(EnvTestLogLevel); raw != "" {
			if parsed, err := zerolog.ParseLevel(raw); err == nil {
				level = parsed
			}
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:     os.Stderr,
			NoColor: true,
		}).Level(level).With().Timestamp().Logger()
	})
	log.Debug().Str("test", t.Name()).Msg("test_start")
}
