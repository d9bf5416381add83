package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amgaina/CoreCutter/internal/engine"
)

func newCompareCommand() *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the plan against what-if scenarios",
		Long: `Solve the same demand under several scenarios: the current settings, the
other solver backend, half the kerf and no kerf at all. A scenario that fails
is reported with its error; the others still run.`,
		Example: `  corecutter compare --master 100 --kerf 0.5 -d 50x2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			req, err := in.resolve(ctx, e)
			if err != nil {
				return err
			}

			scenarios := engine.BuildDefaultScenarios(req.cfg, req.settings)
			results := engine.CompareScenarios(ctx, scenarios, req.demands)

			out := cmd.OutOrStdout()
			if jsonOutput {
				type row struct {
					engine.ComparisonResult
					Error string `json:"error,omitempty"`
				}
				rows := make([]row, 0, len(results))
				for _, r := range results {
					rw := row{ComparisonResult: r}
					if r.Err != nil {
						rw.Error = r.Err.Error()
					}
					rows = append(rows, rw)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tCORES\tCUTS\tWASTE %")
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(tw, "%s\t-\t-\t%s\n", r.Scenario.Name, r.Err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.Scenario.Name, r.CoresUsed, r.TotalCuts, r.WastePercent.StringFixed(2))
			}
			return tw.Flush()
		},
	}

	in.bind(cmd)
	return cmd
}
