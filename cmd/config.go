package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samzong/autopush/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage autopush configuration",
		Long: `Manage autopush configuration: the push target, the message backend ` +
			`and the settings used by autopush diagnose.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configErr != nil {
				return fmt.Errorf("configuration error: %w", configErr)
			}
			return nil
		},
	}

	configSetCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a configuration value. Lists such as ssh_key_names are comma separated.\n\nKeys: " +
			strings.Join(config.Keys(), ", "),
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(_ *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := config.SetFromString(key, value); err != nil {
				return err
			}
			if err := config.SaveConfig(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Fprintf(outWriter(), "%s set to %s\n", key, displayValue(key, viper.Get(key)))
			return nil
		},
	}

	configGetCmd = &cobra.Command{
		Use:               "get [key]",
		Short:             "Show the current configuration",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeConfigKeys,
		RunE: func(_ *cobra.Command, args []string) error {
			keys := config.Keys()
			if len(args) == 1 {
				keys = []string{args[0]}
				if !slices.Contains(config.Keys(), args[0]) {
					return fmt.Errorf("%w: unknown key %q", config.ErrInvalidConfig, args[0])
				}
			} else {
				fmt.Fprintf(outWriter(), "Config file: %s\n", config.ConfigFileUsed())
			}
			for _, key := range keys {
				fmt.Fprintf(outWriter(), "%s: %s\n", key, displayValue(key, viper.Get(key)))
			}
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
}

func completeConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.Keys(), cobra.ShellCompDirectiveNoFileComp
}

// displayValue masks secrets and renders lists the way `config set` accepts them.
func displayValue(key string, value any) string {
	switch v := value.(type) {
	case nil:
		return "<not set>"
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	}

	s := fmt.Sprint(value)
	if s == "" {
		return "<not set>"
	}
	if key == "api_key" {
		return maskSecret(s)
	}
	return s
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:3] + "..." + s[len(s)-4:]
}
