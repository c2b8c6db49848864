package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanRunWithoutGit(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{nil, true},
		{[]string{"help"}, true},
		{[]string{"wu", "claim", "--help"}, true},
		{[]string{"--version"}, true},
		{[]string{"wu", "claim", "--id", "WU-1"}, false},
		{[]string{"init"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, canRunWithoutGit(tt.args), "%v", tt.args)
	}
}
