package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	log  zerolog.Logger
)

// Get returns the process-wide logger. The level defaults to info and can
// be lowered to debug with LOG_LEVEL=debug.
func Get() zerolog.Logger {
	once.Do(func() {
		level := zerolog.InfoLevel
		if os.Getenv("LOG_LEVEL") == "debug" {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	})
	return log
}
