package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagDryRun bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Open or update the release request for pending changes",
	Long: `Detects the packages that changed since their last release, decides the
next version of each, renders their changelogs and opens (or updates) the
release request. Prints a JSON summary on stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := createLogger()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		engine, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		result, err := engine.Plan(ctx)
		if err != nil {
			return err
		}

		if flagDryRun {
			return printPreview(result)
		}

		request, err := engine.Apply(ctx, result)
		if err != nil {
			return err
		}
		if request == nil {
			logger.Info("nothing to release")
		}
		if err := printSummary(result, request); err != nil {
			return err
		}
		if !flagQuiet && request != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "release request #%d: %s\n", request.Number, request.HTMLURL)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "render the plan without touching the forge")
	rootCmd.AddCommand(planCmd)
}
