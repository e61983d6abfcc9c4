package gitutil

import (
	"errors"
	"testing"

	"github.com/samzong/autopush/internal/gitcmd"
	"github.com/stretchr/testify/assert"
)

func TestWrapGitError(t *testing.T) {
	base := errors.New("exit status 1")

	tests := []struct {
		name   string
		result gitcmd.Result
		want   string
	}{
		{
			name:   "prefers stderr",
			result: gitcmd.Result{Stderr: []byte("fatal: bad thing\nhint: more\n"), Stdout: []byte("ignored")},
			want:   "git push failed: fatal: bad thing: exit status 1",
		},
		{
			name:   "falls back to stdout",
			result: gitcmd.Result{Stdout: []byte("nothing to commit, working tree clean\n")},
			want:   "git push failed: nothing to commit, working tree clean: exit status 1",
		},
		{
			name: "no output",
			want: "git push failed: exit status 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapGitError("git push failed", tt.result, base)
			assert.EqualError(t, err, tt.want)
			assert.ErrorIs(t, err, base)
		})
	}
}

func TestValidateBranchName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
	}{
		{name: "main"},
		{name: "master"},
		{name: "release/1.0"},
		{name: "feature_x"},
		{name: "", wantErr: "cannot be empty"},
		{name: "-main", wantErr: "start with '-'"},
		{name: "@", wantErr: "reserved"},
		{name: "feature/", wantErr: "start or end with '/'"},
		{name: "/feature", wantErr: "start or end with '/'"},
		{name: "main.", wantErr: "'.lock'"},
		{name: "main.lock", wantErr: "'.lock'"},
		{name: "a..b", wantErr: `".."`},
		{name: "a@{1}", wantErr: `"@{"`},
		{name: "a//b", wantErr: `"//"`},
		{name: "has space", wantErr: `" "`},
		{name: "tilde~", wantErr: `"~"`},
		{name: "br[acket", wantErr: `"["`},
		{name: `back\slash`, wantErr: `"\\"`},
		{name: "tab\tname", wantErr: "control character"},
		{name: "feature/.hidden", wantErr: "component starting with '.'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBranchName(tt.name)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
