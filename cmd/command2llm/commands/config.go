package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/vmoranv/command2llm/pkg/command2llm/bot"
)

// newConfigCmd creates the `command2llm config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the command2llm configuration.

Examples:
  command2llm config init
  command2llm config show
  command2llm config set-key`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigSetKeyCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			const path = "./config.yaml"
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", path)
			}

			if err := bot.SaveConfigToFile(bot.DefaultConfig(), path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Configuration written to %s\n", path)
			fmt.Println("Set your API key with 'command2llm config set-key'.")
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			// Never print the key itself.
			if cfg.API.APIKey != "" && !bot.IsEnvReference(cfg.API.APIKey) {
				cfg.API.APIKey = "***"
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the LLM API key in the OS keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !bot.KeyringAvailable() {
				return fmt.Errorf("OS keyring not available; set COMMAND2LLM_API_KEY instead")
			}

			fmt.Print("API key: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}

			key := strings.TrimSpace(string(raw))
			if key == "" {
				return fmt.Errorf("empty key, nothing stored")
			}

			logger := newLogger(cmd, bot.DefaultConfig())
			if err := bot.MigrateKeyToKeyring(key, logger); err != nil {
				return err
			}
			fmt.Println("API key stored in the OS keyring.")
			return nil
		},
	}
}
