package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samzong/autopush/internal/formatter"
	"github.com/samzong/autopush/internal/git"
	"go.uber.org/zap"
)

// FallbackMessage is committed verbatim when message generation fails.
const FallbackMessage = "🚀 Auto commit"

// DefaultRemote is the remote the workflow configures and pushes to.
const DefaultRemote = "origin"

const (
	RemotePolicyReplace = "replace"
	RemotePolicyKeep    = "keep"
)

// ErrCancelled is returned when the context is cancelled between or during steps.
var ErrCancelled = errors.New("operation cancelled")

// Options configures an Orchestrator.
type Options struct {
	DefaultBranch string
	RemoteName    string
	RemoteURL     string
	RemotePolicy  string
	LengthCap     int
	AutoYes       bool
	DryRun        bool
	NoPush        bool
	ErrWriter     io.Writer
	OutWriter     io.Writer
	Logger        *zap.Logger
}

// Orchestrator drives the fixed step sequence against a repository.
type Orchestrator struct {
	git      GitClient
	gen      MessageGenerator
	prompter Prompter
	opts     Options
	log      *zap.Logger
}

// runState carries values produced by earlier steps.
type runState struct {
	changes git.ChangeSet
	payload string
	files   []string
	message string
	remote  string
}

type step struct {
	name string
	fn   func(ctx context.Context, st *runState) StepResult
}

func New(gitClient GitClient, gen MessageGenerator, opts Options) *Orchestrator {
	if opts.ErrWriter == nil {
		opts.ErrWriter = os.Stderr
	}
	if opts.OutWriter == nil {
		opts.OutWriter = os.Stdout
	}
	if opts.RemoteName == "" {
		opts.RemoteName = DefaultRemote
	}
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = "main"
	}
	if opts.RemotePolicy == "" {
		opts.RemotePolicy = RemotePolicyReplace
	}
	if opts.LengthCap <= 0 {
		opts.LengthCap = formatter.DefaultLengthCap
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		git:      gitClient,
		gen:      gen,
		prompter: &InteractivePrompter{ErrWriter: opts.ErrWriter},
		opts:     opts,
		log:      logger,
	}
}

func (o *Orchestrator) SetPrompter(p Prompter) {
	o.prompter = p
}

func (o *Orchestrator) steps() []step {
	return []step{
		{StepEnsureRepository, o.ensureRepository},
		{StepDetectChanges, o.detectChanges},
		{StepStage, o.stage},
		{StepDeriveMessage, o.deriveMessage},
		{StepConfirm, o.confirm},
		{StepCommit, o.commit},
		{StepNormalizeBranch, o.normalizeBranch},
		{StepConfigureRemote, o.configureRemote},
		{StepPush, o.push},
	}
}

// Run executes every step in order. It stops at the first Fatal step, whose
// error is returned, or at a step that halts the run. Nothing is rolled back.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{Branch: o.opts.DefaultBranch}
	st := &runState{}

	for _, s := range o.steps() {
		if ctx.Err() != nil {
			return report, ErrCancelled
		}

		res := s.fn(ctx, st)
		res.Step = s.name
		report.add(res)
		report.Message = st.message
		report.RemoteURL = st.remote

		o.log.Debug("step finished",
			zap.String("step", s.name),
			zap.Stringer("outcome", res.Outcome),
			zap.String("detail", res.Detail),
			zap.Error(res.Err),
		)

		if ctx.Err() != nil {
			return report, ErrCancelled
		}
		if res.Outcome == Fatal {
			return report, fmt.Errorf("%s: %w", s.name, res.Err)
		}
		if res.Halt {
			return report, nil
		}
	}
	return report, nil
}

func (o *Orchestrator) say(format string, args ...any) {
	fmt.Fprintf(o.opts.ErrWriter, format+"\n", args...)
}

func fatal(err error) StepResult {
	return StepResult{Outcome: Fatal, Detail: err.Error(), Err: err}
}

func (o *Orchestrator) ensureRepository(ctx context.Context, _ *runState) StepResult {
	if o.git.IsRepository(ctx) {
		return StepResult{Outcome: Success, Detail: "repository found"}
	}
	o.say("🚀 Initializing local Git repository...")
	if err := o.git.Init(ctx); err != nil {
		return fatal(err)
	}
	return StepResult{Outcome: Success, Detail: "repository initialized"}
}

func (o *Orchestrator) detectChanges(ctx context.Context, st *runState) StepResult {
	changes, err := o.git.Status(ctx)
	if err != nil {
		return fatal(err)
	}
	if changes.Empty() {
		o.say("ℹ️  No changes detected in the repository.")
		o.say("✨ Already up to date!")
		return StepResult{Outcome: NoOp, Detail: "Already up to date", Halt: true}
	}
	st.changes = changes
	return StepResult{Outcome: Success, Detail: fmt.Sprintf("%d changed path(s)", len(changes.Files()))}
}

func (o *Orchestrator) stage(ctx context.Context, _ *runState) StepResult {
	o.say("📁 Changes detected, staging files...")
	if err := o.git.AddAll(ctx); err != nil {
		return fatal(err)
	}
	return StepResult{Outcome: Success, Detail: "all changes staged"}
}

func (o *Orchestrator) deriveMessage(ctx context.Context, st *runState) StepResult {
	payload, files, err := o.buildPayload(ctx, st)
	if err != nil {
		return o.fallback(st, err)
	}
	st.payload, st.files = payload, files

	msg, err := o.gen.Generate(ctx, payload, files)
	if err != nil {
		return o.fallback(st, err)
	}
	st.message = msg
	return StepResult{Outcome: Success, Detail: msg}
}

func (o *Orchestrator) fallback(st *runState, err error) StepResult {
	o.say("⚠️ Message generation failed: %v", err)
	o.log.Warn("message generation failed, using fallback", zap.Error(err))
	st.message = FallbackMessage
	return StepResult{Outcome: Recovered, Detail: FallbackMessage, Err: err}
}

// buildPayload returns the staged diff with its numstat block, or the
// change listing when the diff is empty.
func (o *Orchestrator) buildPayload(ctx context.Context, st *runState) (string, []string, error) {
	diff, err := o.git.StagedDiff(ctx)
	if err != nil {
		return "", nil, err
	}
	files, err := o.git.StagedFiles(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(files) == 0 {
		files = st.changes.Files()
	}

	if strings.TrimSpace(diff) == "" {
		return st.changes.Listing(), files, nil
	}

	stats, err := o.git.StagedDiffStats(ctx)
	if err != nil {
		o.log.Debug("numstat unavailable", zap.Error(err))
		stats = ""
	}
	return formatter.JoinPayload(diff, stats), files, nil
}

func (o *Orchestrator) confirm(ctx context.Context, st *runState) StepResult {
	if o.opts.DryRun {
		o.say("\nGenerated commit message:")
		fmt.Fprintln(o.opts.OutWriter, st.message)
		o.say("Dry run mode, no commit or push")
		return StepResult{Outcome: NoOp, Detail: "dry run", Halt: true}
	}

	if o.opts.AutoYes {
		o.say("Auto-confirming commit message (--yes flag is set)")
		o.say("✅ Final message: %s", st.message)
		return StepResult{Outcome: Success, Detail: "auto-accepted"}
	}

	reply, err := o.prompter.Confirm(ctx, st.message)
	if err != nil {
		return fatal(err)
	}
	if reply == "" {
		o.say("✅ Final message: %s", st.message)
		return StepResult{Outcome: Success, Detail: "accepted"}
	}

	replacement, truncated := formatter.Finalize(reply, o.opts.LengthCap)
	if replacement == "" {
		o.say("Empty message provided, using the proposed message")
		return StepResult{Outcome: Success, Detail: "accepted"}
	}
	if truncated {
		o.say("⚠️ Message truncated to %d characters: %s", o.opts.LengthCap, replacement)
	}
	st.message = replacement
	o.say("✅ Final message: %s", st.message)
	return StepResult{Outcome: Success, Detail: "replaced by user"}
}

func (o *Orchestrator) commit(ctx context.Context, st *runState) StepResult {
	err := o.git.Commit(ctx, st.message)
	switch {
	case errors.Is(err, git.ErrNothingToCommit):
		o.say("⚠️ Nothing to commit.")
		return StepResult{Outcome: NoOp, Detail: "nothing to commit", Halt: true}
	case err != nil:
		return fatal(err)
	}
	o.say("✅ Commit created: %s", st.message)
	return StepResult{Outcome: Success, Detail: st.message}
}

func (o *Orchestrator) normalizeBranch(ctx context.Context, _ *runState) StepResult {
	if err := o.git.RenameBranch(ctx, o.opts.DefaultBranch); err != nil {
		return fatal(err)
	}
	return StepResult{Outcome: Success, Detail: "branch " + o.opts.DefaultBranch}
}

// configureRemote makes the named remote point at the target URL. Running it
// twice always leaves exactly one remote of that name.
func (o *Orchestrator) configureRemote(ctx context.Context, st *runState) StepResult {
	name, target := o.opts.RemoteName, o.opts.RemoteURL
	if target == "" {
		return StepResult{Outcome: NoOp, Detail: "no remote URL configured"}
	}

	current, err := o.git.RemoteURL(ctx, name)
	switch {
	case errors.Is(err, git.ErrRemoteNotFound):
		if err := o.git.AddRemote(ctx, name, target); err != nil {
			return fatal(err)
		}
		o.say("🔗 Remote %s set to %s", name, target)
		st.remote = target
		return StepResult{Outcome: Success, Detail: "added " + target}
	case err != nil:
		return fatal(err)
	case current == target:
		st.remote = target
		return StepResult{Outcome: NoOp, Detail: "already " + target}
	case o.opts.RemotePolicy == RemotePolicyKeep:
		o.say("⚠️ Remote %s points to %s, keeping it (remote_policy=keep)", name, current)
		o.log.Warn("existing remote kept", zap.String("remote", name), zap.String("url", current), zap.String("target", target))
		st.remote = current
		return StepResult{Outcome: NoOp, Detail: "kept " + current}
	}

	if err := o.git.RemoveRemote(ctx, name); err != nil {
		return fatal(err)
	}
	if err := o.git.AddRemote(ctx, name, target); err != nil {
		return fatal(err)
	}
	o.say("🔗 Remote %s changed from %s to %s", name, current, target)
	st.remote = target
	return StepResult{Outcome: Success, Detail: fmt.Sprintf("replaced %s with %s", current, target)}
}

func (o *Orchestrator) push(ctx context.Context, _ *runState) StepResult {
	if o.opts.NoPush {
		return StepResult{Outcome: NoOp, Detail: "push skipped (--no-push)"}
	}

	o.say("🚀 Pushing to %s/%s...", o.opts.RemoteName, o.opts.DefaultBranch)
	if err := o.git.Push(ctx, o.opts.RemoteName, o.opts.DefaultBranch); err != nil {
		return fatal(err)
	}
	o.say("✅ Push succeeded!")
	return StepResult{Outcome: Success, Detail: fmt.Sprintf("%s/%s", o.opts.RemoteName, o.opts.DefaultBranch)}
}
