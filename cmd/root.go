package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aibackend",
	Short: "Chat backend with bounded in-memory sessions",
	Long: `aibackend serves a JSON chat API backed by the Gemini model.

Conversation history lives in a bounded in-memory store: each session keeps
its most recent turns, idle sessions expire, and the total session count is
capped. Running with no subcommand starts the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
