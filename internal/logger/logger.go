// Package logger holds the process-wide slog logger used by every package.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"aigyoo-backend/internal/config"
)

const serviceName = "aigyoo-api"

// Options describe a logger. Level accepts debug, info, warn and error;
// anything else logs at info.
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
	Attrs  []any
}

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(New(Options{Attrs: []any{"service", serviceName}}))
}

// New builds a logger without installing it.
func New(o Options) *slog.Logger {
	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(o.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(out, opts)
	if o.JSON {
		h = slog.NewJSONHandler(out, opts)
	}
	return slog.New(h).With(o.Attrs...)
}

// Set installs l for the package helpers and as slog's default.
func Set(l *slog.Logger) {
	if l == nil {
		return
	}
	current.Store(l)
	slog.SetDefault(l)
}

// Configure installs the logger described by the LOG_* settings.
func Configure(c *config.Config) {
	o := Options{Attrs: []any{"service", serviceName}}
	if c != nil {
		o.Level = c.Log.Level
		o.JSON = strings.EqualFold(c.Log.Format, "json")
	}
	Set(New(o))
}

func Get() *slog.Logger { return current.Load() }

func With(args ...any) *slog.Logger { return Get().With(args...) }

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }
