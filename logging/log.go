// Package logging provides component tagged logging on top of log/slog.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentVolume   Component = "volume"
	ComponentResolver Component = "resolver"
	ComponentMSC      Component = "msc"
	ComponentPersist  Component = "persist"
	ComponentCLI      Component = "cli"
)

// Format specifies the output format of the default logger.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

var (
	ErrUnknownLevel  = errors.New("unknown log level")
	ErrUnknownFormat = errors.New("unknown log format")
)

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
	mutex         sync.RWMutex
)

func init() {
	level.Set(slog.LevelWarn)
	defaultLogger = newLogger(os.Stderr, FormatText)
}

func newLogger(w io.Writer, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// ParseFormat accepts text and json. An empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Configure replaces the default logger by one writing to w with the given level and format.
func Configure(w io.Writer, lvl slog.Level, format Format) {
	mutex.Lock()
	defer mutex.Unlock()
	level.Set(lvl)
	defaultLogger = newLogger(w, format)
}

// SetLevel sets the minimum level of the default logger.
func SetLevel(lvl slog.Level) {
	mutex.Lock()
	defer mutex.Unlock()
	level.Set(lvl)
}

func Level() slog.Level {
	mutex.RLock()
	defer mutex.RUnlock()
	return level.Level()
}

// SetLogger replaces the default logger with a custom one.
func SetLogger(logger *slog.Logger) {
	mutex.Lock()
	defer mutex.Unlock()
	defaultLogger = logger
}

// Logger returns the current default logger.
func Logger() *slog.Logger {
	mutex.RLock()
	defer mutex.RUnlock()
	return defaultLogger
}

func log(lvl slog.Level, component Component, msg string, args []any) {
	logger := Logger()
	if !logger.Enabled(context.Background(), lvl) {
		return
	}
	logger.Log(context.Background(), lvl, msg, append([]any{"component", string(component)}, args...)...)
}

func Debug(component Component, msg string, args ...any) {
	log(slog.LevelDebug, component, msg, args)
}

func Info(component Component, msg string, args ...any) {
	log(slog.LevelInfo, component, msg, args)
}

func Warn(component Component, msg string, args ...any) {
	log(slog.LevelWarn, component, msg, args)
}

func Error(component Component, msg string, args ...any) {
	log(slog.LevelError, component, msg, args)
}
