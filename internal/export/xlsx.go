package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary  = "Summary"
	SheetPatterns = "Patterns"
	SheetCores    = "Cores"
)

// ExportXLSX writes the report as an Excel workbook with a summary sheet, one
// row per pattern and one row per core.
func ExportXLSX(path string, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetPatterns, SheetCores} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	res := r.Result
	summary := [][]any{
		{"Title", r.Options.Title},
		{"Report ID", r.ID.String()},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Units", r.Options.Units},
		{"Master Core Length", r.Config.MasterLength.InexactFloat64()},
		{"Kerf", r.Config.Kerf.InexactFloat64()},
		{"Cores Required", res.CoresRequired},
		{"Total Kerf Loss", res.TotalKerfLoss().InexactFloat64()},
		{"Total Waste", res.TotalWaste.InexactFloat64()},
		{"Total Waste %", res.TotalWastePercent.Round(4).InexactFloat64()},
		{"Solver", r.Solver},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), header); err != nil {
		return err
	}

	patterns := [][]any{{"Cores", "Pieces", "Pieces Length", "Kerf", "Used", "Waste", "Waste %"}}
	for _, e := range res.CuttingPlan {
		patterns = append(patterns, []any{
			e.Count,
			r.pieceSummary(e),
			e.PiecesLength.InexactFloat64(),
			e.KerfLoss.InexactFloat64(),
			e.Used.InexactFloat64(),
			e.Waste.InexactFloat64(),
			e.WastePercent(r.Config.MasterLength).Round(2).InexactFloat64(),
		})
	}
	if err := writeRows(f, SheetPatterns, patterns); err != nil {
		return err
	}

	cores := [][]any{{"Core", "Width", "Count", "Label", "Waste"}}
	for _, c := range res.Cores() {
		for _, p := range c.Entry.Pattern {
			cores = append(cores, []any{c.Number, p.Width.InexactFloat64(), p.Count, p.Label, c.Entry.Waste.InexactFloat64()})
		}
	}
	if err := writeRows(f, SheetCores, cores); err != nil {
		return err
	}

	for _, sheet := range []string{SheetPatterns, SheetCores} {
		if err := f.SetCellStyle(sheet, "A1", "G1", header); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetSummary, "A", "B", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetPatterns, "B", "B", 48); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
