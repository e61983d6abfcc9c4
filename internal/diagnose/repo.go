package diagnose

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-version"
	"github.com/samzong/autopush/internal/github"
	"go.uber.org/zap"
)

// MinGitVersion is the oldest git that supports init.defaultBranch.
const MinGitVersion = "2.28"

var minGitVersion = version.Must(version.NewVersion(MinGitVersion))

func (d *Diagnoser) checkGitVersion(ctx context.Context, _ *Report) Result {
	if d.opts.Git == nil {
		return Result{Status: StatusSkip, Detail: "git client not configured"}
	}
	raw, err := d.opts.Git.Version(ctx)
	if err != nil {
		return Result{Status: StatusFail, Detail: err.Error()}
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return Result{Status: StatusWarn, Detail: fmt.Sprintf("unrecognised git version %q", raw)}
	}
	if v.LessThan(minGitVersion) {
		return Result{Status: StatusWarn, Detail: fmt.Sprintf("git %s is older than %s, upgrade recommended", v, MinGitVersion)}
	}
	return Result{Status: StatusOK, Detail: "git " + v.String()}
}

func (d *Diagnoser) checkIdentity(ctx context.Context, _ *Report) Result {
	if d.opts.Git == nil {
		return Result{Status: StatusSkip, Detail: "git client not configured"}
	}

	var missing []string
	values := map[string]string{}
	for _, key := range []string{"user.name", "user.email"} {
		v, err := d.opts.Git.GlobalConfig(ctx, key)
		if err != nil {
			return Result{Status: StatusFail, Detail: err.Error()}
		}
		if v == "" {
			missing = append(missing, key)
		}
		values[key] = v
	}

	if len(missing) > 0 {
		return Result{Status: StatusWarn, Detail: strings.Join(missing, ", ") + " not configured"}
	}
	return Result{Status: StatusOK, Detail: fmt.Sprintf("%s <%s>", values["user.name"], values["user.email"])}
}

func (d *Diagnoser) openRepository() (*gogit.Repository, error) {
	return gogit.PlainOpenWithOptions(d.opts.RepoDir, &gogit.PlainOpenOptions{DetectDotGit: true})
}

func (d *Diagnoser) checkRemotes(_ context.Context, _ *Report) Result {
	repo, err := d.openRepository()
	if err != nil {
		return Result{Status: StatusWarn, Detail: "not a git repository"}
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return Result{Status: StatusFail, Detail: err.Error()}
	}
	if len(remotes) == 0 {
		return Result{Status: StatusWarn, Detail: "no remote configured"}
	}

	res := Result{Status: StatusOK, Detail: fmt.Sprintf("%d remote(s)", len(remotes))}
	for _, r := range remotes {
		cfg := r.Config()
		res.Lines = append(res.Lines, fmt.Sprintf("%s\t%s", cfg.Name, strings.Join(cfg.URLs, ", ")))
	}
	sort.Strings(res.Lines)
	return res
}

func (d *Diagnoser) checkWorkTree(_ context.Context, _ *Report) Result {
	repo, err := d.openRepository()
	if err != nil {
		return Result{Status: StatusSkip, Detail: "not a git repository"}
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Result{Status: StatusSkip, Detail: err.Error()}
	}
	status, err := wt.Status()
	if err != nil {
		return Result{Status: StatusFail, Detail: err.Error()}
	}
	if status.IsClean() {
		return Result{Status: StatusOK, Detail: "working tree clean"}
	}

	res := Result{Status: StatusOK, Detail: fmt.Sprintf("%d pending change(s)", len(status))}
	for path, fs := range status {
		res.Lines = append(res.Lines, fmt.Sprintf("%c%c %s", fs.Staging, fs.Worktree, path))
	}
	sort.Strings(res.Lines)
	return res
}

func (d *Diagnoser) checkGitHub(ctx context.Context, _ *Report) Result {
	if d.opts.GitHub == nil {
		return Result{Status: StatusSkip, Detail: github.TokenEnv + " not set"}
	}
	owner, name := d.opts.Owner, d.opts.Repository
	if owner == "" {
		owner, name = d.originRepository()
	}
	if owner == "" || name == "" {
		return Result{Status: StatusSkip, Detail: "repository_owner not configured and origin is not a GitHub URL"}
	}

	repo, err := d.opts.GitHub.Repository(ctx, owner, name)
	switch {
	case errors.Is(err, github.ErrRepositoryNotFound):
		return Result{Status: StatusFail, Detail: fmt.Sprintf("%s/%s does not exist or is not visible to the token", owner, name)}
	case err != nil:
		return Result{Status: StatusWarn, Detail: err.Error()}
	}

	visibility := "public"
	if repo.Private {
		visibility = "private"
	}
	return Result{Status: StatusOK, Detail: fmt.Sprintf("%s (%s), default branch %s", repo.FullName, visibility, repo.DefaultBranch)}
}

// originRepository reads owner and name from the origin remote, or returns
// empty strings when there is no usable origin.
func (d *Diagnoser) originRepository() (string, string) {
	repo, err := d.openRepository()
	if err != nil {
		return "", ""
	}
	remote, err := repo.Remote("origin")
	if err != nil || len(remote.Config().URLs) == 0 {
		return "", ""
	}
	owner, name, err := github.ParseRepoURL(remote.Config().URLs[0])
	if err != nil {
		d.log.Debug("origin is not a GitHub URL", zap.Error(err))
		return "", ""
	}
	return owner, name
}

func (d *Diagnoser) checkBackend(ctx context.Context, _ *Report) Result {
	if d.opts.Backend == nil {
		return Result{Status: StatusSkip, Detail: "backend not configured"}
	}
	if err := d.opts.Backend.TestConnection(ctx); err != nil {
		return Result{Status: StatusWarn, Detail: err.Error()}
	}
	return Result{Status: StatusOK, Detail: fmt.Sprintf("%s serves model %s", d.opts.Backend.Name(), d.opts.Backend.Model())}
}
