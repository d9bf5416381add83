package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/amgaina/CoreCutter/internal/model"
)

// pieceColor represents an RGB color for one demand width.
type pieceColor struct {
	R, G, B int
}

var pieceColors = []pieceColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	barHeight    = 10.0
	barGap       = 9.0
)

// ExportPDF generates a PDF report: a summary page followed by pages with one
// scaled bar per plan entry showing pieces, kerf and waste along the core.
func ExportPDF(path string, r Report) error {
	if r.Config.MasterLength.Sign() <= 0 {
		return fmt.Errorf("report has no master length")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetTitle(r.Options.Title, false)
	pdf.SetCreator("CoreCutter", false)

	pdf.AddPage()
	renderSummaryPage(pdf, r)

	if len(r.Result.CuttingPlan) > 0 {
		colors := colorIndex(r.Result)
		pdf.AddPage()
		y := renderPlanHeader(pdf, r)
		core := 1
		for _, e := range r.Result.CuttingPlan {
			if y+barHeight+barGap > pageHeight-marginBottom {
				pdf.AddPage()
				y = renderPlanHeader(pdf, r)
			}
			renderCoreBar(pdf, r, e, core, y, colors)
			core += e.Count
			y += barHeight + barGap
		}
	}

	return pdf.OutputFileAndClose(path)
}

// colorIndex assigns each distinct width a color, in first-seen order.
func colorIndex(res model.Result) map[string]pieceColor {
	colors := make(map[string]pieceColor)
	for _, e := range res.CuttingPlan {
		for _, p := range e.Pattern {
			key := p.Width.String()
			if _, ok := colors[key]; !ok {
				colors[key] = pieceColors[len(colors)%len(pieceColors)]
			}
		}
	}
	return colors
}

func renderPlanHeader(pdf *fpdf.Fpdf, r Report) float64 {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Cutting Plan (master core %s, kerf %s)", r.length(r.Config.MasterLength), r.length(r.Config.Kerf))
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")
	return marginTop + headerHeight + 4
}

// renderCoreBar draws one plan entry as a horizontal bar scaled to the
// master length.
func renderCoreBar(pdf *fpdf.Fpdf, r Report, e model.PlanEntry, firstCore int, y float64, colors map[string]pieceColor) {
	drawWidth := pageWidth - marginLeft - marginRight
	master, _ := r.Config.MasterLength.Float64()
	kerf, _ := r.Config.Kerf.Float64()
	scale := drawWidth / master

	// Caption
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y-5)
	cores := fmt.Sprintf("Core %d", firstCore)
	if e.Count > 1 {
		cores = fmt.Sprintf("Cores %d-%d (x%d)", firstCore, firstCore+e.Count-1, e.Count)
	}
	caption := fmt.Sprintf("%s: %s | waste %s (%s)", cores, r.pieceSummary(e),
		r.length(e.Waste), percent(e.WastePercent(r.Config.MasterLength), 1))
	pdf.CellFormat(drawWidth, 5, caption, "", 0, "L", false, 0, "")

	// Core background shows waste
	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.4)
	pdf.Rect(marginLeft, y, drawWidth, barHeight, "FD")
	drawHatchPattern(pdf, marginLeft+e.Used.InexactFloat64()*scale, y,
		drawWidth-e.Used.InexactFloat64()*scale, barHeight)

	x := marginLeft
	first := true
	for _, p := range e.Pattern {
		col := colors[p.Width.String()]
		w := p.Width.InexactFloat64() * scale
		for i := 0; i < p.Count; i++ {
			if !first {
				// Kerf sliver between pieces
				pdf.SetFillColor(60, 60, 60)
				pdf.Rect(x, y, math.Max(kerf*scale, 0.2), barHeight, "F")
				x += kerf * scale
			}
			first = false

			pdf.SetFillColor(col.R, col.G, col.B)
			pdf.SetDrawColor(30, 30, 30)
			pdf.SetLineWidth(0.2)
			pdf.Rect(x, y, w, barHeight, "FD")

			text := p.Width.StringFixed(2)
			pdf.SetFont("Helvetica", "", labelFontSize(w, barHeight))
			if tw := pdf.GetStringWidth(text); tw < w-1 {
				pdf.SetXY(x+(w-tw)/2, y+barHeight/2-2)
				pdf.CellFormat(tw, 4, text, "", 0, "C", false, 0, "")
			}
			x += w
		}
	}
	pdf.SetTextColor(0, 0, 0)
}

// drawHatchPattern draws diagonal lines inside a rectangle to mark waste.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	pdf.SetDrawColor(180, 180, 180)
	pdf.SetLineWidth(0.15)

	spacing := 3.0
	maxDist := w + h

	for d := spacing; d < maxDist; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)

		pdf.Line(x1, y1, x2, y2)
	}
}

// renderSummaryPage draws the overall statistics and the plan table.
func renderSummaryPage(pdf *fpdf.Fpdf, r Report) {
	res := r.Result

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, r.Options.Title, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Cores Required", fmt.Sprintf("%d", res.CoresRequired)},
		{"Master Core Length", r.length(r.Config.MasterLength)},
		{"Blade Size / Kerf", r.length(r.Config.Kerf)},
		{"Total Material", r.length(res.TotalMaterial(r.Config.MasterLength))},
		{"Total Kerf Loss", r.length(res.TotalKerfLoss())},
		{"Total Waste", fmt.Sprintf("%s (%s)", r.length(res.TotalWaste), percent(res.TotalWastePercent, 2))},
		{"Efficiency", percent(res.Efficiency(), 2)},
	}
	if r.Solver != "" {
		summaryItems = append(summaryItems, struct {
			label string
			value string
		}{"Solver", r.Solver})
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Pattern Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 117, 35, 35, 30, 30}
	headers := []string{"Cores", "Pieces", "Pieces Length", "Kerf", "Waste", "Waste %"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, e := range res.CuttingPlan {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", e.Count),
			r.pieceSummary(e),
			r.length(e.PiecesLength),
			r.length(e.KerfLoss),
			r.length(e.Waste),
			percent(e.WastePercent(r.Config.MasterLength), 1),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	// Footer
	footer := fmt.Sprintf("Report %s - generated %s", r.ID, r.GeneratedAt.Format("2006-01-02 15:04"))
	if r.Options.Company != "" {
		footer = r.Options.Company + " - " + footer
	}
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, footer, "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

// labelFontSize returns an appropriate font size based on the rectangle dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
