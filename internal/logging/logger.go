// Package logging configures the process-wide zerolog logger.
//
//	logging.Init(logging.Config{Level: "info", Format: "console"})
//	log := logging.WithComponent("resolver")
//	log.Info().Str("candidate", name).Msg("[Resolver] exact match")
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn, error. Default: info
	Level string
	// Format is json or console. Default: json
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	logger zerolog.Logger
	mu     sync.RWMutex
)

func init() {
	initLogger(Config{})
}

// Init reconfigures the global logger. Safe to call more than once.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	initLogger(cfg)
}

func initLogger(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}
	logger = zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithComponent returns a child logger tagged with a component field.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// Info starts an info-level event on the global logger.
func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

// Warn starts a warn-level event on the global logger.
func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

// Error starts an error-level event on the global logger.
func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}
