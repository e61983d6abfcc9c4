// Package workflow runs the stage, commit and push sequence.
package workflow

import (
	"context"

	"github.com/samzong/autopush/internal/git"
)

// GitClient abstracts git operations for testability.
type GitClient interface {
	IsRepository(ctx context.Context) bool
	Init(ctx context.Context) error
	Status(ctx context.Context) (git.ChangeSet, error)
	AddAll(ctx context.Context) error
	StagedDiff(ctx context.Context) (string, error)
	StagedDiffStats(ctx context.Context) (string, error)
	StagedFiles(ctx context.Context) ([]string, error)
	Commit(ctx context.Context, message string, args ...string) error
	RenameBranch(ctx context.Context, name string) error
	RemoteURL(ctx context.Context, name string) (string, error)
	AddRemote(ctx context.Context, name, url string) error
	RemoveRemote(ctx context.Context, name string) error
	Push(ctx context.Context, remote, branch string) error
}

// MessageGenerator produces a commit message for a change payload.
type MessageGenerator interface {
	Generate(ctx context.Context, payload string, files []string) (string, error)
}
