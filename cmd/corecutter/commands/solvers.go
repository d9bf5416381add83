package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amgaina/CoreCutter/internal/engine"
)

func newSolversCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "solvers",
		Short: "List the registered solver backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := engine.SolverNames()
			out := cmd.OutOrStdout()
			if jsonOutput {
				return json.NewEncoder(out).Encode(names)
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
}
