// Package logging builds the zerolog loggers shared by the hand cricket service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field keys used across components.
const (
	MatchIDKey     = "matchID"
	InningsKey     = "innings"
	SymbolKey      = "symbol"
	CameraStateKey = "cameraState"
	AttemptKey     = "attempt"
	StrategyKey    = "strategy"
)

// DefaultOutput receives loggers built with a nil writer.
var DefaultOutput io.Writer = os.Stderr

func colorEnabled() bool {
	v := os.Getenv("COLORIZE_LOG")
	if v == "" {
		return true
	}
	return v == "1" || strings.EqualFold(v, "true")
}

// New returns a console logger tagged with the given component name.
// A nil writer logs to DefaultOutput.
func New(name string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = DefaultOutput
	}
	output := zerolog.ConsoleWriter{Out: out, NoColor: !colorEnabled(), TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Str("logger", name).Logger()
}

// SetLevel sets the global log level. Unknown names fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
