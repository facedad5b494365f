// Package logger provides the leveled logger handed to every component.
// It is a thin layer over the standard log package; there is no package
// level logger, callers construct one and pass it down.
package logger

import (
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is the minimum severity that gets written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// EnvVar selects the log level, e.g. WETTER_LOG=debug.
const EnvVar = "WETTER_LOG"

// ParseLevel maps a level name to a Level. Unknown names yield LevelWarn.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "critical":
		return LevelError
	default:
		return LevelWarn
	}
}

// LevelFromEnv reads EnvVar.
func LevelFromEnv() Level {
	return ParseLevel(os.Getenv(EnvVar))
}

// Logger writes leveled lines with DEBUG/INFO/WARN/ERROR prefixes.
type Logger struct {
	out   *log.Logger
	level Level
	name  string
}

// New returns a Logger writing to w.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		out:   log.New(w, "", log.LstdFlags),
		level: level,
	}
}

// NewRotating returns a Logger writing to a size-rotated file at path.
func NewRotating(path string, level Level) (*Logger, io.Closer) {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 10,
	}
	return New(w, level), w
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

// Named returns a copy of l that tags every line with name.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return nil
	}
	c := *l
	if c.name != "" {
		name = c.name + "." + name
	}
	c.name = name
	return &c
}

func (l *Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, "DEBUG", format, v...) }

func (l *Logger) Infof(format string, v ...any) { l.logf(LevelInfo, "INFO", format, v...) }

func (l *Logger) Warnf(format string, v ...any) { l.logf(LevelWarn, "WARN", format, v...) }

func (l *Logger) Errorf(format string, v ...any) { l.logf(LevelError, "ERROR", format, v...) }

func (l *Logger) logf(level Level, prefix, format string, v ...any) {
	if l == nil || level < l.level {
		return
	}
	if l.name != "" {
		prefix += " " + l.name
	}
	l.out.Printf(prefix+": "+format, v...)
}
