package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/samzong/autopush/internal/config"
	"github.com/samzong/autopush/internal/diagnose"
	"github.com/samzong/autopush/internal/git"
	"github.com/samzong/autopush/internal/github"
	"github.com/samzong/autopush/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrUnhealthy is returned when at least one diagnostic check failed.
var ErrUnhealthy = errors.New("diagnostics found problems")

var (
	fixIssues   bool
	diagnoseCmd = &cobra.Command{
		Use:   "diagnose",
		Short: "Check SSH, git and backend setup and offer fixes",
		Long: `Check the SSH keys, agent and connectivity to the hosting provider, the git ` +
			`version and identity, the repository remotes and working tree, the GitHub ` +
			`repository (when GITHUB_TOKEN is set) and the message backend.

Fixes (git identity from config, starting ssh-agent, ssh-add of configured keys) ` +
			`are only applied after confirmation or with --fix.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configErr != nil {
				return fmt.Errorf("configuration error: %w", configErr)
			}
			return runDiagnose(cmd.Context())
		},
	}

	// confirmRemediation asks before anything is changed.
	confirmRemediation = func(healthy bool) (bool, error) {
		title := "Apply the automatic fixes?"
		if !healthy {
			title = "Problems detected. Apply the automatic fixes?"
		}
		var confirm bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(title).
					Description("Sets a missing git identity, starts ssh-agent and adds your keys.").
					Affirmative("Yes, fix").
					Negative("No").
					Value(&confirm),
			),
		)
		if err := form.Run(); err != nil {
			return false, err
		}
		return confirm, nil
	}

	newDiagnoser = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) *diagnose.Diagnoser {
		cwd, _ := os.Getwd()
		opts := diagnose.Options{
			RepoDir:    cwd,
			SSHHost:    cfg.SSHHost,
			KeyNames:   cfg.SSHKeyNames,
			UserName:   cfg.GitUserName,
			UserEmail:  cfg.GitUserEmail,
			Owner:      cfg.RepositoryOwner,
			Repository: cfg.RepositoryNameOrDefault(cwd),
			Git:        git.NewClient(git.Options{Dir: cwd, Verbose: verbose, Echo: errWriter(), Logger: logger}),
			Backend:    newLLMClient(cfg, logger),
			Logger:     logger,
		}
		switch gh, err := github.FromEnv(ctx, logger); {
		case err == nil:
			opts.GitHub = gh
		case !errors.Is(err, github.ErrNoToken):
			logger.Warn("GitHub client unavailable", zap.Error(err))
		}
		return diagnose.New(opts)
	}
)

func init() {
	diagnoseCmd.Flags().BoolVar(&fixIssues, "fix", false, "Apply the automatic fixes without asking")
	diagnoseCmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "Same as --fix")
	rootCmd.AddCommand(diagnoseCmd)
}

func runDiagnose(ctx context.Context) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Close()

	d := newDiagnoser(ctx, cfg, logger.Logger)
	width := terminalWidth()

	sp := ui.NewSpinner("Running diagnostics...")
	sp.Start()
	report := d.Run(ctx)
	sp.Stop()
	diagnose.Render(outWriter(), report, width)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	apply, err := shouldRemediate(report.Healthy())
	if err != nil {
		return err
	}
	if apply {
		fmt.Fprintln(outWriter())
		rem := d.Remediate(ctx)
		diagnose.RenderRemediation(outWriter(), rem, width)
		if rem.Err != nil {
			logger.Warn("some fixes failed", zap.Error(rem.Err))
			fmt.Fprintf(errWriter(), "⚠️ Some fixes failed:\n%v\n", rem.Err)
		}
	}

	if !report.Healthy() {
		fmt.Fprintln(errWriter(), "💡 Re-run `autopush diagnose` after fixing the failing checks.")
		return ErrUnhealthy
	}
	return nil
}

func shouldRemediate(healthy bool) (bool, error) {
	if fixIssues || autoYes {
		return true, nil
	}
	if !stdinIsTerminal() {
		fmt.Fprintln(errWriter(), "Run `autopush diagnose --fix` to apply the automatic fixes.")
		return false, nil
	}
	ok, err := confirmRemediation(healthy)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
