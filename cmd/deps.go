package cmd

import (
	"github.com/samzong/autopush/internal/config"
	"github.com/samzong/autopush/internal/git"
	"github.com/samzong/autopush/internal/llm"
	"github.com/samzong/autopush/internal/logging"
	"github.com/samzong/autopush/internal/workflow"
	"go.uber.org/zap"
)

// Constructors are variables so tests can substitute fakes.
var (
	newLogger = func(cfg *config.Config) *logging.Logger {
		return logging.New(logging.Options{
			Level:   cfg.LogLevel,
			Verbose: verbose,
			File:    cfg.LogFile,
			Console: errWriter(),
		})
	}

	newGitClient = func(dir string, logger *zap.Logger) workflow.GitClient {
		return git.NewClient(git.Options{
			Dir:     dir,
			Verbose: verbose,
			Echo:    errWriter(),
			Logger:  logger,
		})
	}

	newLLMClient = func(cfg *config.Config, logger *zap.Logger) *llm.Client {
		return llm.NewClient(llm.Options{
			Backend:    cfg.Backend,
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			APIBase:    cfg.APIBase,
			OllamaHost: cfg.OllamaHost,
			Timeout:    cfg.TimeoutDuration(),
			Logger:     logger,
		})
	}

	newBackend = func(cfg *config.Config, logger *zap.Logger) llm.Backend {
		return newLLMClient(cfg, logger)
	}
)
