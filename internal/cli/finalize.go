package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Tag, publish and record the merged release",
	Long: `Run after the release request is merged. For every package version
that has no release tag yet this tags it, pushes the tag, publishes the
package when publishing is enabled, and creates the forge release record
from the package's changelog section. Already-tagged versions are skipped,
so an interrupted run can be repeated.`,
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

		released, err := engine.Finalize(cmd.Context())
		if err != nil {
			return err
		}

		type record struct {
			PackageName string `json:"package_name"`
			Version     string `json:"version"`
			Tag         string `json:"tag"`
		}
		out := struct {
			Releases []record `json:"releases"`
		}{Releases: []record{}}
		for _, r := range released {
			out.Releases = append(out.Releases, record{
				PackageName: r.Package,
				Version:     r.Version.String(),
				Tag:         r.Tag,
			})
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(finalizeCmd)
}
