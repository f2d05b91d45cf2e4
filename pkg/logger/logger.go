// Package logger is a thin component-tagged wrapper over zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init configures the global logger. format "console" switches to the human
// readable writer, anything else keeps JSON lines.
func Init(level, format string) {
	var out io.Writer = os.Stderr
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	SetOutput(out)
	SetLevel(level)
}

// SetOutput redirects log output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	base = zerolog.New(w).With().Timestamp().Logger().Level(base.GetLevel())
	mu.Unlock()
}

// SetLevel parses a zerolog level name; unknown names fall back to info.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	base = base.Level(lvl)
	mu.Unlock()
}

// Component returns a child logger tagged with component.
func Component(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

func emit(ev *zerolog.Event, fields map[string]interface{}, msg string) {
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}

func DebugCF(component, msg string, fields map[string]interface{}) {
	l := Component(component)
	emit(l.Debug(), fields, msg)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	l := Component(component)
	emit(l.Info(), fields, msg)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	l := Component(component)
	emit(l.Warn(), fields, msg)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	l := Component(component)
	emit(l.Error(), fields, msg)
}

func InfoC(component, msg string) { InfoCF(component, msg, nil) }

