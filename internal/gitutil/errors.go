package gitutil

import (
	"fmt"
	"strings"

	"github.com/samzong/autopush/internal/gitcmd"
)

// WrapGitError builds an error message that prefers git stderr output when present,
// falling back to stdout (git commit reports "nothing to commit" there).
func WrapGitError(action string, result gitcmd.Result, err error) error {
	errMsg := result.StderrString(true)
	if errMsg == "" {
		errMsg = result.StdoutString(true)
	}
	if errMsg != "" {
		return fmt.Errorf("%s: %s: %w", action, firstLine(errMsg), err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
