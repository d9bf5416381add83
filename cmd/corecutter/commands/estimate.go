package commands

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/amgaina/CoreCutter/internal/engine"
	"github.com/amgaina/CoreCutter/internal/model"
)

func newEstimateCommand() *cobra.Command {
	var (
		in    inputFlags
		waste string
		price string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate how many cores to buy without solving",
		Long: `Estimate the number of master cores to purchase from total material alone.
The minimum is a lower bound on the optimal plan; the waste factor adds a
safety margin on top of it.`,
		Example: `  corecutter estimate --master 100 -d 45x40 -d 36x30 --waste 10 --price 12.50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			req, err := in.resolve(ctx, e)
			if err != nil {
				return err
			}

			wastePct, err := decimal.NewFromString(waste)
			if err != nil {
				return fmt.Errorf("invalid --waste %q: %w", waste, err)
			}
			pricePer := decimal.Zero
			if price != "" {
				if pricePer, err = decimal.NewFromString(price); err != nil {
					return fmt.Errorf("invalid --price %q: %w", price, err)
				}
			}

			if _, err := engine.Normalize(req.cfg, req.demands); err != nil {
				return err
			}
			est := model.CalculatePurchaseEstimate(req.cfg, req.demands, wastePct, pricePer)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(est)
			}

			fmt.Fprintf(out, "Total piece length:   %s\n", est.TotalPieceLength)
			fmt.Fprintf(out, "Kerf allowance:       %s\n", est.KerfAllowance)
			fmt.Fprintf(out, "Cores (exact):        %s\n", est.CoresNeededExact.StringFixed(2))
			fmt.Fprintf(out, "Cores (minimum):      %d\n", est.CoresNeededMin)
			fmt.Fprintf(out, "Cores (+%s%% waste):   %d\n", est.WastePercent, est.CoresWithWaste)
			if pricePer.Sign() > 0 {
				fmt.Fprintf(out, "Estimated cost:       %s\n", est.EstimatedCost.StringFixed(2))
			}
			return nil
		},
	}

	in.bind(cmd)
	cmd.Flags().StringVar(&waste, "waste", "10", "waste factor in percent")
	cmd.Flags().StringVar(&price, "price", "", "price per master core")
	return cmd
}
