// Package logger configures the structured loggers shared by every component.
//
// Components receive a *slog.Logger scoped to an Area. The level can be
// changed at runtime, which the config watcher uses for hot reloads.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Area names the subsystem a log record belongs to
type Area string

const (
	AreaSession     Area = "session"
	AreaTransport   Area = "transport"
	AreaRelay       Area = "relay"
	AreaInteraction Area = "interaction"
	AreaRegistry    Area = "registry"
	AreaConfig      Area = "config"
	AreaApp         Area = "app"
)

// Options controls how the root logger is built
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

var level = new(slog.LevelVar)

// New builds the root logger and makes it the slog default.
func New(opts Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	level.Set(lvl)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l, nil
}

// SetLevel changes the level of every logger created by New
func SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// ParseLevel converts a level name into a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// For returns l scoped to an area. A nil logger falls back to the default.
func For(l *slog.Logger, area Area) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("area", string(area))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
