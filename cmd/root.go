package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/samzong/autopush/internal/config"
	"github.com/samzong/autopush/internal/generator"
	"github.com/samzong/autopush/internal/git"
	"github.com/samzong/autopush/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	dryRun    bool
	noPush    bool
	autoYes   bool
	configErr error
	verbose   bool
	rootCmd   = &cobra.Command{
		Use:   "autopush",
		Short: "autopush - stage, commit with a generated message and push",
		Long: `autopush stages every change in the current repository, asks a language model ` +
			`(a local Ollama daemon or an OpenAI-compatible API) for a short emoji-prefixed ` +
			`commit message, lets you accept or replace it, then commits and pushes to origin.`,
		Version: fmt.Sprintf("%s (built at %s)", Version, BuildTime),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configErr != nil {
				return fmt.Errorf("configuration error: %w", configErr)
			}
			return handleErrors(runPush(cmd.Context()))
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// Execute runs the root command with ctx, which main cancels on Ctrl-C.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// RootCmd exposes the command tree for documentation generation.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Configuration file path (default is $XDG_CONFIG_HOME/autopush/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Show git commands and debug logs")
	rootCmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "Accept the generated commit message without asking")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate the message only, do not commit or push")
	rootCmd.Flags().BoolVar(&noPush, "no-push", false, "Commit locally without configuring origin or pushing")

	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	configErr = config.InitConfig(cfgFile)
}

// handleErrors adds advice for failures the user can act on.
func handleErrors(err error) error {
	if err == nil {
		return nil
	}

	var pushErr *git.PushError
	if errors.As(err, &pushErr) {
		fmt.Fprintln(errWriter(), "💡", pushErr.Hint())
	}
	if errors.Is(err, workflow.ErrNotInteractive) {
		fmt.Fprintln(errWriter(), "💡 Run with --yes in scripts and CI")
	}
	return err
}

func runPush(ctx context.Context) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if reason := setupNeeded(cfg, noPush); reason != "" {
		if !stdinIsTerminal() {
			return fmt.Errorf("%w: %s Run: autopush init", config.ErrInvalidConfig, reason)
		}
		ok, err := ensureConfigured(cfg, reason, os.Stdin, errWriter(), runInitWizard)
		if err != nil || !ok {
			return err
		}
		if cfg, err = config.GetConfig(); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	defer logger.Close()
	log := logger.Logger

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	remoteURL := ""
	if !noPush {
		if remoteURL, err = cfg.RemoteURL(cwd); err != nil {
			return err
		}
	}

	log.Debug("starting workflow",
		zap.String("dir", cwd),
		zap.String("backend", cfg.Backend),
		zap.String("remote", remoteURL),
		zap.Bool("dry_run", dryRun),
	)

	gen := generator.New(generator.Options{
		Backend:      newBackend(cfg, log),
		Template:     cfg.PromptTemplate,
		LengthCap:    cfg.MessageLengthCap,
		ShowProgress: true,
		Logger:       log,
	})

	flow := workflow.New(newGitClient(cwd, log), gen, workflow.Options{
		DefaultBranch: cfg.DefaultBranch,
		RemoteURL:     remoteURL,
		RemotePolicy:  cfg.RemotePolicy,
		LengthCap:     cfg.MessageLengthCap,
		AutoYes:       autoYes,
		DryRun:        dryRun,
		NoPush:        noPush,
		ErrWriter:     errWriter(),
		OutWriter:     outWriter(),
		Logger:        log,
	})

	report, err := flow.Run(ctx)
	if report != nil && verbose {
		fmt.Fprintln(errWriter(), report.Summary())
	}
	if err != nil {
		log.Info("workflow stopped", zap.Error(err))
		return err
	}
	if report.Committed() && !noPush {
		fmt.Fprintf(errWriter(), "🎉 %s pushed to %s (%s)\n", report.Message, report.RemoteURL, report.Branch)
	}
	return nil
}
