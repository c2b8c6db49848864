package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// CLIName is the command name used in user-facing next steps.
const CLIName = "lumenflow"

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Kebab lowercases s and joins runs of non-alphanumerics with "-".
// "Framework: Core" → "framework-core".
func Kebab(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// LaneBranchName returns the branch name for a claimed WU.
// Format: lane/<kebab(lane)>/<kebab(id)>
func LaneBranchName(lane, wuID string) string {
	return fmt.Sprintf("lane/%s/%s", Kebab(lane), Kebab(wuID))
}

// WorktreePath returns the worktree directory for a claimed WU.
func WorktreePath(worktreesDir, lane, wuID string) string {
	return filepath.Join(worktreesDir, fmt.Sprintf("%s-%s", Kebab(lane), Kebab(wuID)))
}

// WUPath returns the path to the WU YAML document.
func WUPath(wuDir, wuID string) string {
	return filepath.Join(wuDir, wuID+".yaml")
}

// StampPath returns the path to the completion stamp.
func StampPath(stampsDir, wuID string) string {
	return filepath.Join(stampsDir, wuID+".done")
}

// WULogPath returns the path to the per-WU log file.
func WULogPath(logsDir, wuID string) string {
	return filepath.Join(logsDir, strings.ToLower(wuID)+".log")
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(logsDir string) string {
	return filepath.Join(logsDir, "lumenflow.log")
}

// LogsDir returns the log directory inside the common git directory.
func LogsDir(gitDir string) string {
	return filepath.Join(gitDir, "lumenflow", "logs")
}

// GlobalConfigDir returns the user config directory under configHome.
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, "lumenflow")
}

// DoneCommand returns the retry command for the completion pipeline.
func DoneCommand(wuID string) string {
	return fmt.Sprintf("%s wu done --id %s", CLIName, wuID)
}

var bulletWUPattern = regexp.MustCompile(`\bWU-\d+\b`)

// ParseBulletWUID extracts the first WU ID referenced by a markdown line.
func ParseBulletWUID(line string) (string, bool) {
	id := bulletWUPattern.FindString(line)
	return id, id != ""
}
