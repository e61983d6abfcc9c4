package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samzong/autopush/internal/gitcmd"
	"github.com/samzong/autopush/internal/gitutil"
	"go.uber.org/zap"
)

// Options configures a Client.
type Options struct {
	Dir      string
	Verbose  bool
	Echo     io.Writer
	Logger   *zap.Logger
	Executor gitcmd.Executor
}

// Client issues the fixed git vocabulary the workflow and the diagnostics need.
type Client struct {
	exec gitcmd.Executor
	dir  string
	log  *zap.Logger
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	executor := opts.Executor
	if executor == nil {
		executor = gitcmd.Runner{
			Dir:     opts.Dir,
			Verbose: opts.Verbose,
			Echo:    opts.Echo,
			Log:     logger,
		}
	}

	return &Client{exec: executor, dir: opts.Dir, log: logger}
}

func (c *Client) run(ctx context.Context, args ...string) (gitcmd.Result, error) {
	return c.exec.Run(ctx, args...)
}

// IsRepository reports whether the working directory is inside a git work tree.
func (c *Client) IsRepository(ctx context.Context) bool {
	result, err := c.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && result.StdoutString(true) == "true"
}

// Init creates a new repository in the working directory.
func (c *Client) Init(ctx context.Context) error {
	result, err := c.run(ctx, "init")
	if err != nil {
		return gitutil.WrapGitError("git init failed", result, err)
	}
	return nil
}

// Status returns the pending changes reported by `git status --porcelain`.
func (c *Client) Status(ctx context.Context) (ChangeSet, error) {
	result, err := c.run(ctx, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return ChangeSet{}, gitutil.WrapGitError("git status failed", result, err)
	}
	return ParsePorcelain(result.StdoutString(false)), nil
}

// AddAll stages every change in the working tree.
func (c *Client) AddAll(ctx context.Context) error {
	if err := c.guardMutation(); err != nil {
		return err
	}
	// -A stages the whole work tree, not just the subtree of the working directory
	result, err := c.run(ctx, "add", "-A")
	if err != nil {
		return gitutil.WrapGitError("git add failed", result, err)
	}
	return nil
}

// StagedDiff returns the unified diff of the index against HEAD.
func (c *Client) StagedDiff(ctx context.Context) (string, error) {
	result, err := c.run(ctx, "diff", "--cached")
	if err != nil {
		return "", gitutil.WrapGitError("git diff --cached failed", result, err)
	}
	return result.StdoutString(false), nil
}

// StagedDiffStats returns `git diff --cached --numstat` output.
func (c *Client) StagedDiffStats(ctx context.Context) (string, error) {
	result, err := c.run(ctx, "diff", "--cached", "--numstat")
	if err != nil {
		return "", gitutil.WrapGitError("git diff --cached --numstat failed", result, err)
	}
	return result.StdoutString(true), nil
}

// StagedFiles lists the staged paths.
func (c *Client) StagedFiles(ctx context.Context) ([]string, error) {
	result, err := c.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, gitutil.WrapGitError("git diff --cached --name-only failed", result, err)
	}
	return nonEmptyLines(result.StdoutString(true)), nil
}

// Commit records the index with message. The message is passed as a single
// argv element, so no shell quoting is involved.
func (c *Client) Commit(ctx context.Context, message string, args ...string) error {
	if err := c.guardMutation(); err != nil {
		return err
	}
	commitArgs := append([]string{"commit", "-m", message}, args...)
	result, err := c.run(ctx, commitArgs...)
	if err != nil {
		if isNothingToCommit(result) {
			c.log.Debug("commit skipped, index matches HEAD")
			return ErrNothingToCommit
		}
		return gitutil.WrapGitError("git commit failed", result, err)
	}
	return nil
}

func isNothingToCommit(result gitcmd.Result) bool {
	out := strings.ToLower(result.Combined())
	return strings.Contains(out, "nothing to commit") ||
		strings.Contains(out, "nothing added to commit") ||
		strings.Contains(out, "no changes added to commit")
}

// RenameBranch forces the current branch to be called name (`git branch -M`).
func (c *Client) RenameBranch(ctx context.Context, name string) error {
	if err := gitutil.ValidateBranchName(name); err != nil {
		return err
	}
	result, err := c.run(ctx, "branch", "-M", name)
	if err != nil {
		return gitutil.WrapGitError("git branch -M failed", result, err)
	}
	return nil
}

// RemoteURL returns the fetch URL of a remote, or ErrRemoteNotFound.
func (c *Client) RemoteURL(ctx context.Context, name string) (string, error) {
	result, err := c.run(ctx, "remote", "get-url", name)
	if err != nil {
		if strings.Contains(strings.ToLower(result.StderrString(true)), "no such remote") {
			return "", fmt.Errorf("%w: %s", ErrRemoteNotFound, name)
		}
		return "", gitutil.WrapGitError("git remote get-url failed", result, err)
	}
	return result.StdoutString(true), nil
}

func (c *Client) AddRemote(ctx context.Context, name, url string) error {
	result, err := c.run(ctx, "remote", "add", name, url)
	if err != nil {
		return gitutil.WrapGitError("git remote add failed", result, err)
	}
	return nil
}

func (c *Client) RemoveRemote(ctx context.Context, name string) error {
	result, err := c.run(ctx, "remote", "remove", name)
	if err != nil {
		return gitutil.WrapGitError("git remote remove failed", result, err)
	}
	return nil
}

// Push publishes branch to remote and sets upstream tracking.
func (c *Client) Push(ctx context.Context, remote, branch string) error {
	if err := c.guardMutation(); err != nil {
		return err
	}
	result, err := c.run(ctx, "push", "-u", remote, branch)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		output := result.StderrString(true)
		if output == "" {
			output = result.StdoutString(true)
		}
		pushErr := &PushError{Kind: ClassifyPushOutput(output), Output: output, Err: err}
		c.log.Warn("push failed",
			zap.String("remote", remote),
			zap.String("branch", branch),
			zap.Stringer("kind", pushErr.Kind),
		)
		return pushErr
	}
	return nil
}

// GlobalConfig reads a global git config value; an unset key yields "".
func (c *Client) GlobalConfig(ctx context.Context, key string) (string, error) {
	result, err := c.run(ctx, "config", "--global", key)
	if err != nil {
		// git config exits 1 for a missing key
		if result.ExitCode == 1 {
			return "", nil
		}
		return "", gitutil.WrapGitError("git config failed", result, err)
	}
	return result.StdoutString(true), nil
}

func (c *Client) SetGlobalConfig(ctx context.Context, key, value string) error {
	result, err := c.run(ctx, "config", "--global", key, value)
	if err != nil {
		return gitutil.WrapGitError("git config failed", result, err)
	}
	return nil
}

// Version returns the semantic part of `git --version`, e.g. "2.43.0".
func (c *Client) Version(ctx context.Context) (string, error) {
	result, err := c.run(ctx, "--version")
	if err != nil {
		return "", gitutil.WrapGitError("git --version failed", result, err)
	}
	return ParseVersionOutput(result.StdoutString(true)), nil
}

// ParseVersionOutput extracts "2.43.0" from "git version 2.43.0 (Apple Git-146)".
func ParseVersionOutput(output string) string {
	fields := strings.Fields(output)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			v := fields[i+1]
			// "2.39.3.windows.1" keeps only the numeric prefix
			parts := strings.Split(v, ".")
			numeric := make([]string, 0, 3)
			for _, p := range parts {
				if p == "" || strings.Trim(p, "0123456789") != "" || len(numeric) == 3 {
					break
				}
				numeric = append(numeric, p)
			}
			return strings.Join(numeric, ".")
		}
	}
	return ""
}

// guardEnv makes mutating commands refuse any directory outside the temp dir.
// The package tests set it so a misconfigured test cannot commit to a real
// checkout.
const guardEnv = "AUTOPUSH_GUARD_TEMP_REPOS"

func (c *Client) guardMutation() error {
	if os.Getenv(guardEnv) != "1" {
		return nil
	}
	if _, isRunner := c.exec.(gitcmd.Runner); !isRunner {
		return nil
	}

	dir := c.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = cwd
	}

	if underTempDir(dir) {
		return nil
	}
	return errors.Join(ErrUnsafeRepository, fmt.Errorf("directory: %s", dir))
}

func underTempDir(dir string) bool {
	tmp, err := filepath.EvalSymlinks(os.TempDir())
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false
	}
	return resolved == tmp || strings.HasPrefix(resolved, tmp+string(filepath.Separator))
}

// nonEmptyLines splits git's line output, dropping blanks and repeats.
func nonEmptyLines(out string) []string {
	var lines []string
	seen := map[string]bool{}
	for line := range strings.SplitSeq(out, "\n") {
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	return lines
}
