package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/caravel/pkg/graph"
	"github.com/aretw0/caravel/pkg/workspace"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the workspace dependency graph in release order",
	RunE: func(cmd *cobra.Command, args []string) error {
		pkgs, err := workspace.Discover(flagWorkspace)
		if err != nil {
			return err
		}
		g, err := graph.Build(pkgs)
		if err != nil {
			return err
		}
		for _, pkg := range g.TopologicalOrder() {
			deps := g.DependenciesOf(pkg.Name)
			if len(deps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", pkg.Name, pkg.Version)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", pkg.Name, pkg.Version, strings.Join(deps, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
