package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amgaina/CoreCutter/internal/engine"
	"github.com/amgaina/CoreCutter/internal/export"
	"github.com/amgaina/CoreCutter/internal/model"
	"github.com/amgaina/CoreCutter/internal/project"
)

func newOptimizeCommand() *cobra.Command {
	var (
		in         inputFlags
		format     string
		saveJob    string
		recordFile string
		pdfFile    string
		labelsFile string
		xlsxFile   string
		txtFile    string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Compute the minimum-core cutting plan",
		Long: `Compute a cutting plan that satisfies every demand with the fewest master cores.

Demands come from --demand flags, a CSV/Excel file (--input) or a saved job
file (--job). The plan is printed to stdout and can additionally be written
as a PDF report, a sheet of QR-coded core labels, an Excel workbook, a text
file or a JSON run record.`,
		Example: `  # Four 45" pieces and three 36" pieces from 100" cores
  corecutter optimize --master 100 --kerf 0.5 -d 45x4 -d 36x3

  # Read demands from a spreadsheet and export a PDF and labels
  corecutter optimize --master 96 --input orders.xlsx --pdf plan.pdf --labels labels.pdf

  # Run a saved job with the exhaustive backend
  corecutter optimize --job job.yaml --solver exhaustive --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			req, err := in.resolve(ctx, e)
			if err != nil {
				return err
			}
			logger := zerolog.Ctx(ctx)

			if saveJob != "" {
				if err := project.SaveJob(saveJob, req.job); err != nil {
					return err
				}
				logger.Info().Str("path", saveJob).Msg("Job saved")
			}

			logger.Info().
				Str("master_length", req.cfg.MasterLength.String()).
				Str("kerf", req.cfg.Kerf.String()).
				Int("demand_lines", len(req.demands)).
				Int("pieces", model.TotalQuantity(req.demands)).
				Str("solver", req.settings.Solver).
				Msg("Optimizing")

			result, stats, err := engine.New(req.settings).OptimizeWithStats(ctx, req.cfg, req.demands)
			if err != nil {
				return err
			}

			report := export.NewReport(reportOptions(e), req.settings.Solver, req.cfg, result)
			out := cmd.OutOrStdout()
			if jsonOutput || format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(struct {
					ReportID string       `json:"report_id"`
					Result   model.Result `json:"result"`
					Stats    engine.Stats `json:"stats"`
				}{report.ID.String(), result, stats}); err != nil {
					return err
				}
			} else if format == "text" {
				if err := export.WriteText(out, report); err != nil {
					return err
				}
			} else {
				return fmt.Errorf("unknown --format %q (want text or json)", format)
			}

			exports := []struct {
				path  string
				what  string
				write func(string, export.Report) error
			}{
				{pdfFile, "PDF report", export.ExportPDF},
				{labelsFile, "labels", export.ExportLabels},
				{xlsxFile, "workbook", export.ExportXLSX},
				{txtFile, "text report", export.ExportText},
			}
			for _, x := range exports {
				if x.path == "" {
					continue
				}
				if err := x.write(x.path, report); err != nil {
					return fmt.Errorf("failed to write %s: %w", x.what, err)
				}
				logger.Info().Str("path", x.path).Msgf("Wrote %s", x.what)
			}

			if recordFile != "" {
				if err := project.ExportRecord(recordFile, req.settings.Solver, req.job, result); err != nil {
					return err
				}
				logger.Info().Str("path", recordFile).Msg("Wrote run record")
			}
			return nil
		},
	}

	in.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "text", "stdout format: text or json")
	cmd.Flags().StringVar(&saveJob, "save-job", "", "save the resolved job to this file (JSON or YAML)")
	cmd.Flags().StringVar(&recordFile, "record", "", "write a JSON run record (job and plan)")
	cmd.Flags().StringVar(&pdfFile, "pdf", "", "write a PDF report")
	cmd.Flags().StringVar(&labelsFile, "labels", "", "write a PDF sheet of core labels")
	cmd.Flags().StringVar(&xlsxFile, "xlsx", "", "write an Excel workbook")
	cmd.Flags().StringVar(&txtFile, "txt", "", "write the text report to a file")

	return cmd
}

func reportOptions(e *env) export.ReportOptions {
	return export.ReportOptions{
		Title:   e.cfg.Report.Title,
		Company: e.cfg.Report.Company,
		Units:   e.cfg.Report.Units,
	}
}
