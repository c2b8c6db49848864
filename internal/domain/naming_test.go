package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKebab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Framework: Core", "framework-core"},
		{"WU-100", "wu-100"},
		{"  Ops / Infra  ", "ops-infra"},
		{"already-kebab", "already-kebab"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Kebab(tt.in))
		})
	}
}

func TestLaneBranchName(t *testing.T) {
	assert.Equal(t, "lane/framework-core/wu-100", LaneBranchName("Framework: Core", "WU-100"))
	assert.Equal(t, "lane/operations/wu-7", LaneBranchName("Operations", "wu-7"))
}

func TestPathFunctions(t *testing.T) {
	assert.Equal(t, filepath.Join("worktrees", "framework-core-wu-100"), WorktreePath("worktrees", "Framework: Core", "WU-100"))
	assert.Equal(t, filepath.Join("docs", "wu", "WU-3.yaml"), WUPath(filepath.Join("docs", "wu"), "WU-3"))
	assert.Equal(t, filepath.Join("stamps", "WU-3.done"), StampPath("stamps", "WU-3"))
	assert.Equal(t, filepath.Join("logs", "wu-3.log"), WULogPath("logs", "WU-3"))
	assert.Equal(t, filepath.Join("logs", "lumenflow.log"), GlobalLogPath("logs"))
	assert.Equal(t, filepath.Join(".git", "lumenflow", "logs"), LogsDir(".git"))
	assert.Equal(t, filepath.Join("/home/u/.config", "lumenflow"), GlobalConfigDir("/home/u/.config"))
}

func TestDoneCommand(t *testing.T) {
	assert.Equal(t, "lumenflow wu done --id WU-9", DoneCommand("WU-9"))
}

func TestParseBulletWUID(t *testing.T) {
	tests := []struct {
		line   string
		wantID string
		wantOK bool
	}{
		{"- [WU-12: Add parser](wu/WU-12.yaml)", "WU-12", true},
		{"- WU-4 follow-up for WU-3", "WU-4", true},
		{"(No items)", "", false},
		{"- [SWU-1: not a match]", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			id, ok := ParseBulletWUID(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
