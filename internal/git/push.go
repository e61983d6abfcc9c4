package git

import (
	"fmt"
	"strings"
)

// PushErrorKind classifies push failures so callers can give actionable advice.
type PushErrorKind int

const (
	PushErrorOther PushErrorKind = iota
	PushErrorAuth
	PushErrorNetwork
	PushErrorNonFastForward
)

func (k PushErrorKind) String() string {
	switch k {
	case PushErrorAuth:
		return "auth"
	case PushErrorNetwork:
		return "network"
	case PushErrorNonFastForward:
		return "non_fast_forward"
	default:
		return "other"
	}
}

var (
	authPatterns = []string{
		"permission denied",
		"authentication failed",
		"could not read username",
		"host key verification failed",
		"could not read from remote repository",
	}
	networkPatterns = []string{
		"could not resolve host",
		"connection refused",
		"network is unreachable",
		"connection timed out",
		"operation timed out",
		"no route to host",
	}
	nonFastForwardPatterns = []string{
		"non-fast-forward",
		"[rejected]",
		"fetch first",
		"updates were rejected",
	}
)

// PushError is returned by Push when git exits non-zero.
type PushError struct {
	Kind   PushErrorKind
	Output string
	Err    error
}

func (e *PushError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("git push failed (%s): %s", e.Kind, e.Output)
	}
	return fmt.Sprintf("git push failed (%s): %v", e.Kind, e.Err)
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// Hint returns user-facing guidance for the failure kind.
func (e *PushError) Hint() string {
	switch e.Kind {
	case PushErrorAuth:
		return "Check your SSH configuration (run `autopush diagnose`)."
	case PushErrorNetwork:
		return "Check your network connection and try again; the local commit is kept."
	case PushErrorNonFastForward:
		return "The remote has commits you don't have. Pull and rebase manually, then push again."
	default:
		return "Inspect the git output above; the local commit is kept for a later retry."
	}
}

// ClassifyPushOutput maps git push output to a PushErrorKind.
func ClassifyPushOutput(output string) PushErrorKind {
	lower := strings.ToLower(output)
	switch {
	case containsAny(lower, nonFastForwardPatterns):
		return PushErrorNonFastForward
	case containsAny(lower, networkPatterns):
		return PushErrorNetwork
	case containsAny(lower, authPatterns):
		return PushErrorAuth
	default:
		return PushErrorOther
	}
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
