package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteText writes the plain-text cutting plan: a summary block followed by
// every core in plan order.
func WriteText(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)
	res := r.Result
	rule := strings.Repeat("=", 70)
	thin := strings.Repeat("-", 70)

	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, strings.ToUpper(r.Options.Title))
	if r.Options.Company != "" {
		fmt.Fprintln(bw, r.Options.Company)
	}
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(bw, "Report ID: %s\n", r.ID)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "SUMMARY")
	fmt.Fprintln(bw, thin)
	fmt.Fprintf(bw, "Cores Required:     %d\n", res.CoresRequired)
	fmt.Fprintf(bw, "Master Core Length: %s\n", r.length(r.Config.MasterLength))
	fmt.Fprintf(bw, "Blade Size / Kerf:  %s\n", r.length(r.Config.Kerf))
	fmt.Fprintf(bw, "Total Kerf Loss:    %s\n", r.length(res.TotalKerfLoss()))
	fmt.Fprintf(bw, "Total Waste:        %s\n", r.length(res.TotalWaste))
	fmt.Fprintf(bw, "Total Waste %%:      %s\n", percent(res.TotalWastePercent, 2))
	if r.Solver != "" {
		fmt.Fprintf(bw, "Solver:             %s\n", r.Solver)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "CUTTING PLAN BY CORE")
	fmt.Fprintln(bw, thin)
	if res.CoresRequired == 0 {
		fmt.Fprintln(bw, "Nothing to cut.")
	}
	for _, c := range res.Cores() {
		e := c.Entry
		fmt.Fprintf(bw, "\nCore %d:\n", c.Number)
		fmt.Fprintf(bw, "  Pieces: %s | Kerf: %s | Waste: %s (%s)\n",
			r.length(e.PiecesLength), r.length(e.KerfLoss), r.length(e.Waste),
			percent(e.WastePercent(r.Config.MasterLength), 1))
		for _, p := range e.Pattern {
			line := fmt.Sprintf("    - %d x %s", p.Count, r.length(p.Width))
			if p.Label != "" {
				line += "  " + p.Label
			}
			fmt.Fprintln(bw, line)
		}
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, rule)
	return bw.Flush()
}

// ExportText writes the text plan to path.
func ExportText(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create text export: %w", err)
	}
	if err := WriteText(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write text export: %w", err)
	}
	return f.Close()
}
