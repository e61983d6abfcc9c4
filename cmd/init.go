package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samzong/autopush/internal/config"
	"github.com/samzong/autopush/internal/llm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize autopush configuration",
		RunE: func(_ *cobra.Command, _ []string) error {
			if configErr != nil {
				return fmt.Errorf("configuration error: %w", configErr)
			}
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			if err := runInitWizard(os.Stdin, outWriter(), cfg); err != nil {
				return err
			}
			fmt.Fprintln(outWriter(), "Initialization complete.")
			return nil
		},
	}

	saveConfigValues = func(values map[string]string) error {
		for _, key := range wizardKeys {
			if err := config.SetFromString(key, values[key]); err != nil {
				return err
			}
		}
		return config.SaveConfig()
	}

	testBackendConnection = func(ctx context.Context, values map[string]string) error {
		client := llm.NewClient(llm.Options{
			Backend:    values["backend"],
			Model:      values["model"],
			APIKey:     values["api_key"],
			OllamaHost: values["ollama_host"],
			Timeout:    connectionTestTimeout,
			Logger:     zap.NewNop(),
		})
		return client.TestConnection(ctx)
	}
)

const connectionTestTimeout = 15 * time.Second

var wizardKeys = []string{"backend", "model", "api_key", "ollama_host", "repository_owner"}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInitWizard(in io.Reader, out io.Writer, current *config.Config) error {
	cfg, err := initWizardConfig(current)
	if err != nil {
		return err
	}
	readLine := newTrimmedLineReader(in)
	fmt.Fprintln(out, "autopush init - configure the message backend and push target")

	values := map[string]string{
		"api_key":     cfg.APIKey,
		"ollama_host": cfg.OllamaHost,
	}

	if values["backend"], err = promptBackend(out, cfg, readLine); err != nil {
		return err
	}
	if values["model"], err = promptModel(out, cfg, values["backend"], readLine); err != nil {
		return err
	}
	switch values["backend"] {
	case llm.BackendOpenAI:
		if values["api_key"], err = promptAPIKey(out, cfg, readLine); err != nil {
			return err
		}
	default:
		if values["ollama_host"], err = promptWithDefault(out, "Ollama host", cfg.OllamaHost, readLine); err != nil {
			return err
		}
	}
	if values["repository_owner"], err = promptWithDefault(out, "Repository owner (GitHub user or org)", cfg.RepositoryOwner, readLine); err != nil {
		return err
	}

	if err := saveConfigValues(values); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	return maybeTestConnection(out, values, readLine)
}

func initWizardConfig(current *config.Config) (*config.Config, error) {
	if current != nil {
		return current, nil
	}
	return config.GetConfig()
}

func newTrimmedLineReader(in io.Reader) func() (string, error) {
	reader := bufio.NewReader(in)
	return func() (string, error) {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if errors.Is(err, io.EOF) && line == "" {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

func promptBackend(out io.Writer, cfg *config.Config, readLine func() (string, error)) (string, error) {
	current := cfg.Backend
	if current == "" {
		current = config.DefaultBackend
	}
	for {
		fmt.Fprintf(out, "Backend [%s/%s] (default: %s): ", llm.BackendOllama, llm.BackendOpenAI, current)
		line, err := readLine()
		if err != nil {
			return "", err
		}
		switch strings.ToLower(line) {
		case "":
			return current, nil
		case llm.BackendOllama, llm.BackendOpenAI:
			return strings.ToLower(line), nil
		default:
			fmt.Fprintf(out, "Please enter %s or %s.\n", llm.BackendOllama, llm.BackendOpenAI)
		}
	}
}

func promptModel(out io.Writer, cfg *config.Config, backend string, readLine func() (string, error)) (string, error) {
	modelDefault := cfg.Model
	if modelDefault == "" || backend != cfg.Backend {
		modelDefault = llm.DefaultOllamaModel
		if backend == llm.BackendOpenAI {
			modelDefault = llm.DefaultOpenAIModel
		}
	}
	return promptWithDefault(out, "Model", modelDefault, readLine)
}

func promptAPIKey(out io.Writer, cfg *config.Config, readLine func() (string, error)) (string, error) {
	for {
		if cfg.APIKey != "" {
			fmt.Fprint(out, "OpenAI API Key (leave blank to keep current): ")
		} else {
			fmt.Fprint(out, "OpenAI API Key (required): ")
		}

		line, err := readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			if cfg.APIKey != "" {
				return cfg.APIKey, nil
			}
			fmt.Fprintln(out, "API key is required.")
			continue
		}
		return line, nil
	}
}

func promptWithDefault(out io.Writer, label, def string, readLine func() (string, error)) (string, error) {
	shown := def
	if shown == "" {
		shown = "<empty>"
	}
	fmt.Fprintf(out, "%s (default: %s): ", label, shown)

	line, err := readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func maybeTestConnection(out io.Writer, values map[string]string, readLine func() (string, error)) error {
	for {
		fmt.Fprint(out, "Test backend connection now? [Y/n]: ")
		answer, err := readLine()
		if err != nil {
			return err
		}
		switch strings.ToLower(answer) {
		case "", "y", "yes":
			fmt.Fprintln(out, "Testing backend connection...")
			if err := testBackendConnection(context.Background(), values); err != nil {
				fmt.Fprintf(out, "Connection test failed: %v\n", err)
				fmt.Fprintln(out, "You can re-run `autopush init` or update config with `autopush config set`.")
			} else {
				fmt.Fprintln(out, "Connection test succeeded.")
			}
			return nil
		case "n", "no":
			return nil
		default:
			fmt.Fprintln(out, "Please enter y or n.")
		}
	}
}

// setupNeeded names the missing setting that blocks a run, or returns "".
func setupNeeded(cfg *config.Config, skipPush bool) string {
	switch {
	case cfg.Backend == llm.BackendOpenAI && strings.TrimSpace(cfg.APIKey) == "":
		return "An API key is required to generate commit messages with the openai backend."
	case !skipPush && strings.TrimSpace(cfg.RepositoryOwner) == "":
		return "A repository owner is required to configure origin."
	}
	return ""
}

func ensureConfigured(
	cfg *config.Config, reason string, in io.Reader, out io.Writer,
	initRunner func(io.Reader, io.Writer, *config.Config) error,
) (bool, error) {
	fmt.Fprintln(out, "autopush is not fully configured.")
	fmt.Fprintln(out, reason)

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Run `autopush init` now? [Y/n]: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		if errors.Is(err, io.EOF) && strings.TrimSpace(line) == "" {
			fmt.Fprintln(out, "Initialization skipped. Run `autopush init` anytime to configure.")
			return false, nil
		}

		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "", "y", "yes":
			if err := initRunner(reader, out, cfg); err != nil {
				return false, err
			}
			return true, nil
		case "n", "no":
			fmt.Fprintln(out, "Initialization skipped. Run `autopush init` anytime to configure.")
			return false, nil
		default:
			fmt.Fprintln(out, "Please enter y or n.")
		}
	}
}
