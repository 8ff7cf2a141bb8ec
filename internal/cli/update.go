package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Write pending changelogs and versions into the working tree",
	Long: `Runs the same planning pipeline as plan but applies the file changes
directly to the current checkout. Nothing is branched, committed or sent
to the forge; review and commit the result yourself.`,
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

		result, err := engine.Plan(cmd.Context())
		if err != nil {
			return err
		}
		if len(result.Plan.Decisions) == 0 {
			logger.Info("nothing to release")
			return nil
		}
		if err := engine.WriteLocal(result); err != nil {
			return err
		}
		if !flagQuiet {
			for _, d := range result.Plan.Decisions {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s -> %s\n", d.Package, d.Previous, d.Next)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
