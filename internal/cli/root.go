// Package cli implements the caravel command line interface.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagWorkspace string
	flagConfig    string
	flagDebug     bool
	flagQuiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "caravel",
	Short: "Release automation for multi-package workspaces",
	Long: `Caravel inspects the commit history of a workspace, decides which
packages need a new version, writes their changelogs and keeps a single
release request up to date until it is merged and published.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Best effort: a missing .env simply means the token comes from
		// the real environment.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default <workspace>/.caravel.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress the human-readable summary")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
