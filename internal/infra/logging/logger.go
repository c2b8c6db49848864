// Package logging provides file-based logging for lumenflow.
// Entries go to a global log (.git/lumenflow/logs/lumenflow.log) and, when
// scoped to a WU, to a per-WU log (.git/lumenflow/logs/wu-N.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes leveled entries to append-only files.
// Fields are ordered to minimize memory padding.
type Logger struct {
	globalFile *os.File
	wuFiles    map[string]*os.File
	now        func() time.Time
	logsDir    string
	mu         sync.Mutex
	level      slog.Level
}

// New creates a Logger writing under logsDir.
// If logsDir is empty, logging is disabled.
func New(logsDir string, level slog.Level) *Logger {
	return &Logger{
		logsDir: logsDir,
		level:   level,
		wuFiles: make(map[string]*os.File),
		now:     time.Now,
	}
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) openLocked(path string) (*os.File, error) {
	if err := os.MkdirAll(l.logsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func (l *Logger) globalWriter() (*os.File, error) {
	if l.globalFile != nil {
		return l.globalFile, nil
	}
	f, err := l.openLocked(domain.GlobalLogPath(l.logsDir))
	if err != nil {
		return nil, err
	}
	l.globalFile = f
	return f, nil
}

func (l *Logger) wuWriter(wuID string) (*os.File, error) {
	if f, ok := l.wuFiles[wuID]; ok {
		return f, nil
	}
	f, err := l.openLocked(domain.WULogPath(l.logsDir, wuID))
	if err != nil {
		return nil, err
	}
	l.wuFiles[wuID] = f
	return f, nil
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.wuFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.wuFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2026-01-30 09:32:51] [INFO] [WU-100] [pipeline] message
func formatLog(t time.Time, level slog.Level, wuID, category, msg string) string {
	scope := "global"
	if wuID != "" {
		scope = wuID
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		scope,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// log writes to the global log and, when wuID is set, to the WU's log.
func (l *Logger) log(level slog.Level, wuID, category, msg string) {
	if l.logsDir == "" || level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := formatLog(l.now(), level, wuID, category, msg)
	if gf, err := l.globalWriter(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}
	if wuID != "" {
		if wf, err := l.wuWriter(wuID); err == nil {
			_, _ = io.WriteString(wf, entry)
		}
	}
}

// Info logs an info message.
func (l *Logger) Info(wuID, category, msg string) {
	l.log(slog.LevelInfo, wuID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(wuID, category, msg string) {
	l.log(slog.LevelDebug, wuID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(wuID, category, msg string) {
	l.log(slog.LevelWarn, wuID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(wuID, category, msg string) {
	l.log(slog.LevelError, wuID, category, msg)
}
