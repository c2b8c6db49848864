package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lumenflow/lumenflow/internal/domain"
)

// ShowLogsInput contains the parameters for showing a log.
type ShowLogsInput struct {
	WUID  string // Empty selects the global log
	Lines int    // Number of lines to display from the end (0 = all)
}

// ShowLogsOutput contains the log content.
type ShowLogsOutput struct {
	LogPath string
	Content string
}

// ShowLogs is the use case for reading the lumenflow logs.
type ShowLogs struct {
	logsDir string
}

// NewShowLogs creates a new ShowLogs use case.
func NewShowLogs(logsDir string) *ShowLogs {
	return &ShowLogs{logsDir: logsDir}
}

// Execute reads the per-WU log, or the global log when no WU is given.
func (uc *ShowLogs) Execute(_ context.Context, in ShowLogsInput) (*ShowLogsOutput, error) {
	path := domain.GlobalLogPath(uc.logsDir)
	if in.WUID != "" {
		id := domain.NormalizeWUID(in.WUID)
		if _, err := domain.ParseWUNumber(id); err != nil {
			return nil, domain.WrapError(domain.CodeValidation, err, "invalid id")
		}
		path = domain.WULogPath(uc.logsDir, id)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewError(domain.CodeFileNotFound, "no log at %s", path)
		}
		return nil, fmt.Errorf("read log: %w", err)
	}

	result := string(content)
	if in.Lines > 0 {
		lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
		if len(lines) > in.Lines {
			lines = lines[len(lines)-in.Lines:]
		}
		result = strings.Join(lines, "\n") + "\n"
	}
	return &ShowLogsOutput{LogPath: path, Content: result}, nil
}
