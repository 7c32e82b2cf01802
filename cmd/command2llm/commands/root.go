// Package commands implements the command2llm CLI using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "command2llm",
		Short: "command2llm - intent-driven command dispatch for chat bots",
		Long: `command2llm watches chat messages and, when a free-text message implies
one of the registered commands, executes that command on the user's behalf.

Examples:
  command2llm serve
  command2llm chat
  command2llm config init
  command2llm config set-key`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
