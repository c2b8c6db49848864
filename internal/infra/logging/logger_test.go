package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenflow/lumenflow/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLogger_Info(t *testing.T) {
	logsDir := t.TempDir()
	logger := New(logsDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("WU-100", "pipeline", "test message")

	content, err := os.ReadFile(domain.GlobalLogPath(logsDir))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[INFO]")
	assert.Contains(t, string(content), "[WU-100]")
	assert.Contains(t, string(content), "[pipeline]")
	assert.Contains(t, string(content), "test message")

	wuContent, err := os.ReadFile(domain.WULogPath(logsDir, "WU-100"))
	require.NoError(t, err)
	assert.Contains(t, string(wuContent), "test message")
}

func TestLogger_GlobalLogOnly(t *testing.T) {
	logsDir := t.TempDir()
	logger := New(logsDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("", "config", "global message")

	content, err := os.ReadFile(domain.GlobalLogPath(logsDir))
	require.NoError(t, err)
	assert.Contains(t, string(content), "[global]")

	entries, err := os.ReadDir(logsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogger_LevelFiltering(t *testing.T) {
	logsDir := t.TempDir()
	logger := New(logsDir, slog.LevelWarn)
	defer func() { _ = logger.Close() }()

	logger.Debug("WU-1", "wu", "debug message")
	logger.Info("WU-1", "wu", "info message")
	logger.Warn("WU-1", "wu", "warn message")
	logger.Error("WU-1", "wu", "error message")

	content, err := os.ReadFile(domain.GlobalLogPath(logsDir))
	require.NoError(t, err)
	assert.NotContains(t, string(content), "debug message")
	assert.NotContains(t, string(content), "info message")
	assert.Contains(t, string(content), "warn message")
	assert.Contains(t, string(content), "error message")
}

func TestLogger_DisabledWhenEmptyDir(t *testing.T) {
	logger := New("", slog.LevelDebug)
	defer func() { _ = logger.Close() }()

	logger.Info("WU-1", "wu", "test message")
	logger.Error("WU-1", "wu", "error message")
}

func TestLogger_LogFormat(t *testing.T) {
	logsDir := t.TempDir()
	logger := New(logsDir, slog.LevelInfo)
	logger.now = func() time.Time { return time.Date(2026, 1, 30, 9, 32, 51, 0, time.UTC) }
	defer func() { _ = logger.Close() }()

	logger.Info("WU-42", "usecase", `wu created: "my wu"`)

	content, err := os.ReadFile(domain.GlobalLogPath(logsDir))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `[2026-01-30 09:32:51] [INFO] [WU-42] [usecase] wu created: "my wu"`, lines[0])
}

func TestLogger_MultipleWUFiles(t *testing.T) {
	logsDir := t.TempDir()
	logger := New(logsDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()

	logger.Info("WU-1", "wu", "message for wu 1")
	logger.Info("WU-2", "wu", "message for wu 2")

	wu1, err := os.ReadFile(domain.WULogPath(logsDir, "WU-1"))
	require.NoError(t, err)
	assert.Contains(t, string(wu1), "message for wu 1")
	assert.NotContains(t, string(wu1), "message for wu 2")

	wu2, err := os.ReadFile(domain.WULogPath(logsDir, "WU-2"))
	require.NoError(t, err)
	assert.Contains(t, string(wu2), "message for wu 2")
}

func TestLogger_CreateLogsDir(t *testing.T) {
	logsDir := filepath.Join(t.TempDir(), "lumenflow", "logs")

	logger := New(logsDir, slog.LevelInfo)
	defer func() { _ = logger.Close() }()
	logger.Info("WU-1", "wu", "test message")

	stat, err := os.Stat(logsDir)
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}
