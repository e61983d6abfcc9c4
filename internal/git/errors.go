package git

import "errors"

var (
	// ErrNothingToCommit is returned by Commit when the index matches HEAD.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrRemoteNotFound is returned by RemoteURL when the remote is not configured.
	ErrRemoteNotFound = errors.New("remote not found")
	// ErrUnsafeRepository is returned when a mutating command would run against a
	// real repository during tests.
	ErrUnsafeRepository = errors.New("SAFETY: refusing to modify a non-temporary repository during tests")
)
