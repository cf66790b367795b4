// Package logging provides the leveled, structured logger shared by all xmatch components.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sif/xmatch/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// TraceLevel indicates a log message's level of criticality
	TraceLevel = iota
	// DebugLevel indicates a log message's level of criticality
	DebugLevel
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
	// FatalLevel indicates a log message's level of criticality
	FatalLevel
)

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(level int) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "TRACE"
	}
}

// StringToLogLevel translates a level name (case-insensitive) to a log level enum, defaulting to InfoLevel
func StringToLogLevel(s string) int {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TraceLevel
	case "DEBUG":
		return DebugLevel
	case "WARN", "WARNING":
		return WarnLevel
	case "ERROR":
		return ErrorLevel
	case "FATAL":
		return FatalLevel
	default:
		return InfoLevel
	}
}

func toZerologLevel(level int) zerolog.Level {
	switch level {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Options configures the root logger
type Options struct {
	Level  int       // one of the level constants above
	Format string    // "console" or "json"
	Writer io.Writer // defaults to os.Stderr
}

// FromEnv builds Options from LOG_LEVEL and LOG_FORMAT
func FromEnv() Options {
	c := config.New().Prefix("LOG_")
	return Options{
		Level:  StringToLogLevel(c.Get("LEVEL", "info")),
		Format: strings.ToLower(c.Get("FORMAT", "console")),
	}
}

var (
	initLock sync.Mutex
	root     atomic.Pointer[zerolog.Logger]
)

// Logger is the logging type used throughout xmatch
type Logger = zerolog.Logger

// Init (re)configures the root logger
func Init(opts Options) {
	initLock.Lock()
	defer initLock.Unlock()
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var w io.Writer = os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}
	if opts.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).Level(toZerologLevel(opts.Level)).With().Timestamp().Logger()
	root.Store(&l)
}

// Get returns the root logger, configuring it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// For returns a child of the root logger tagged with a component name
func For(component string) *Logger {
	l := Get().With().Str("component", component).Logger()
	return &l
}
