// Package logging provides the structured logging setup shared by every
// audiocore component: a JSON file logger (rotated via lumberjack) plus
// a human-readable console logger, both driven by a shared dynamic level.
package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger *slog.Logger
	consoleLogger    *slog.Logger
	loggerMu         sync.RWMutex
	currentLevel     = new(slog.LevelVar)
	initOnce         sync.Once
)

// Config controls where and how logs are rotated.
type Config struct {
	FilePath   string // JSON log destination; "" disables file logging
	MaxSizeMB  int    // default 100
	MaxBackups int    // default 3
	MaxAgeDays int    // default 28
	Level      slog.Level
}

func defaultReplaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05Z07:00"))
	}
	return a
}

// Init configures the global loggers. Safe to call more than once; only
// the first call takes effect, matching the teacher's initOnce pattern.
func Init(cfg Config) {
	initOnce.Do(func() {
		if cfg.MaxSizeMB == 0 {
			cfg.MaxSizeMB = 100
		}
		if cfg.MaxBackups == 0 {
			cfg.MaxBackups = 3
		}
		if cfg.MaxAgeDays == 0 {
			cfg.MaxAgeDays = 28
		}
		currentLevel.Set(cfg.Level)

		var structuredWriter = os.Stdout
		var fileWriter *lumberjack.Logger
		if cfg.FilePath != "" {
			if dir := filepath.Dir(cfg.FilePath); dir != "." {
				_ = os.MkdirAll(dir, 0o755)
			}
			fileWriter = &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
			}
		}

		var jsonHandler slog.Handler
		if fileWriter != nil {
			jsonHandler = slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{
				Level:       currentLevel,
				ReplaceAttr: defaultReplaceAttr,
			})
		} else {
			jsonHandler = slog.NewJSONHandler(structuredWriter, &slog.HandlerOptions{
				Level:       currentLevel,
				ReplaceAttr: defaultReplaceAttr,
			})
		}
		textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       currentLevel,
			ReplaceAttr: defaultReplaceAttr,
		})

		loggerMu.Lock()
		structuredLogger = slog.New(jsonHandler)
		consoleLogger = slog.New(textHandler)
		loggerMu.Unlock()

		slog.SetDefault(structuredLogger)
	})
}

// SetLevel adjusts the shared dynamic level for all loggers.
func SetLevel(level slog.Level) { currentLevel.Set(level) }

// ForComponent returns a logger tagged with "component"=name, falling
// back to slog.Default if Init was never called (e.g. in unit tests).
func ForComponent(name string) *slog.Logger {
	loggerMu.RLock()
	base := structuredLogger
	loggerMu.RUnlock()
	if base == nil {
		base = slog.Default()
	}
	return base.With("component", name)
}

// orDefault is a defensive guard used by constructors that accept an
// optional *slog.Logger and need a safe default without importing
// ForComponent everywhere (keeps call sites terse: logger := orDefault(l, "session")).
func orDefault(l *slog.Logger, component string) *slog.Logger {
	if l != nil {
		return l
	}
	return ForComponent(component)
}

// Named wraps orDefault for readability at call sites outside this
// package (audiocore/session.New(logger, ...) etc.).
func Named(l *slog.Logger, component string) *slog.Logger {
	return orDefault(l, component)
}
