// Package diagnose checks the SSH, git and backend setup the push workflow
// depends on and offers to fix the common problems.
package diagnose

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samzong/autopush/internal/gitcmd"
	"github.com/samzong/autopush/internal/github"
	"go.uber.org/zap"
)

// Check names, in execution order.
const (
	CheckSSHKeys    = "ssh-keys"
	CheckSSHAgent   = "ssh-agent"
	CheckSSHProbe   = "ssh-probe"
	CheckGitVersion = "git-version"
	CheckIdentity   = "git-identity"
	CheckRemotes    = "remotes"
	CheckWorkTree   = "working-tree"
	CheckGitHubRepo = "github-repository"
	CheckBackend    = "backend"
)

// DefaultSSHHost is probed when no host is configured.
const DefaultSSHHost = "git@github.com"

// Status is the verdict of a single check.
type Status int

const (
	StatusOK Status = iota
	StatusWarn
	StatusFail
	StatusSkip
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "skip"
	}
}

// Result is the outcome of one check.
type Result struct {
	Name   string
	Status Status
	Detail string
	Lines  []string
}

// Report collects every check result.
type Report struct {
	Results  []Result
	Identity string
}

// Healthy reports whether no check failed.
func (r Report) Healthy() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail {
			return false
		}
	}
	return true
}

// Result returns the result for name.
func (r Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// GitConfig is the part of the git client the checks and fixes need.
type GitConfig interface {
	GlobalConfig(ctx context.Context, key string) (string, error)
	SetGlobalConfig(ctx context.Context, key, value string) error
	Version(ctx context.Context) (string, error)
}

// ConnectionTester verifies a completion backend.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
	Name() string
	Model() string
}

// RepositoryLookup confirms a hosted repository exists.
type RepositoryLookup interface {
	Repository(ctx context.Context, owner, name string) (github.Repository, error)
}

// CommandFactory builds an executor for binary with extra environment entries.
type CommandFactory func(binary string, env ...string) gitcmd.Executor

// Options configures a Diagnoser. Nil dependencies skip the checks that need them.
type Options struct {
	HomeDir     string
	RepoDir     string
	SSHHost     string
	KeyNames    []string
	AgentSocket string

	UserName  string
	UserEmail string

	Owner      string
	Repository string

	Git     GitConfig
	Backend ConnectionTester
	GitHub  RepositoryLookup
	Command CommandFactory
	Logger  *zap.Logger
}

// Diagnoser runs the checks and the remediation actions.
type Diagnoser struct {
	opts Options
	log  *zap.Logger
}

func New(opts Options) *Diagnoser {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HomeDir == "" {
		opts.HomeDir, _ = os.UserHomeDir()
	}
	if opts.RepoDir == "" {
		opts.RepoDir = "."
	}
	if opts.SSHHost == "" {
		opts.SSHHost = DefaultSSHHost
	}
	if opts.AgentSocket == "" {
		opts.AgentSocket = os.Getenv("SSH_AUTH_SOCK")
	}
	if opts.Command == nil {
		logger := opts.Logger
		opts.Command = func(binary string, env ...string) gitcmd.Executor {
			return gitcmd.Runner{Binary: binary, Env: env, Log: logger}
		}
	}
	return &Diagnoser{opts: opts, log: opts.Logger}
}

func (d *Diagnoser) sshDir() string {
	return filepath.Join(d.opts.HomeDir, ".ssh")
}

// Run executes every check. A failing check never stops the others.
func (d *Diagnoser) Run(ctx context.Context) Report {
	checks := []struct {
		name string
		fn   func(ctx context.Context, r *Report) Result
	}{
		{CheckSSHKeys, d.checkKeys},
		{CheckSSHAgent, d.checkAgent},
		{CheckSSHProbe, d.checkProbe},
		{CheckGitVersion, d.checkGitVersion},
		{CheckIdentity, d.checkIdentity},
		{CheckRemotes, d.checkRemotes},
		{CheckWorkTree, d.checkWorkTree},
		{CheckGitHubRepo, d.checkGitHub},
		{CheckBackend, d.checkBackend},
	}

	var report Report
	for _, c := range checks {
		if ctx.Err() != nil {
			break
		}
		res := c.fn(ctx, &report)
		res.Name = c.name
		d.log.Debug("check finished",
			zap.String("check", c.name),
			zap.Stringer("status", res.Status),
			zap.String("detail", res.Detail),
		)
		report.Results = append(report.Results, res)
	}
	return report
}
