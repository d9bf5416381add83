package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// LabelPiece is one width cut from a labelled core.
type LabelPiece struct {
	Width string `json:"width"`
	Count int    `json:"count"`
	Label string `json:"label,omitempty"`
}

// LabelInfo holds the data encoded into each core label's QR code.
type LabelInfo struct {
	ReportID string       `json:"report"`
	Core     int          `json:"core"`
	Of       int          `json:"of"`
	Master   string       `json:"master"`
	Pieces   []LabelPiece `json:"pieces"`
	Waste    string       `json:"waste"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportLabels generates a PDF with one QR-coded label per master core, so
// each physical core can be tagged with the pieces it is to be cut into.
// Labels are laid out on Avery 5160 sheets (3 columns x 10 rows on US Letter).
func ExportLabels(path string, r Report) error {
	labels := CollectLabelInfos(r)
	if len(labels) == 0 {
		return fmt.Errorf("no cores to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, r, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for core %d: %w", label.Core, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, r Report, x, y float64, info LabelInfo) error {
	// Light border as a cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_core_%d", info.Core)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, fmt.Sprintf("Core %d of %d", info.Core, info.Of), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	line := y + labelPadding + 5
	for i, p := range info.Pieces {
		if i == 3 {
			pdf.SetXY(textX, line)
			pdf.CellFormat(textW, 3.5, fmt.Sprintf("+%d more", len(info.Pieces)-3), "", 1, "L", false, 0, "")
			line += 3.5
			break
		}
		text := fmt.Sprintf("%d x %s %s", p.Count, p.Width, r.Options.Units)
		if p.Label != "" {
			text += " " + p.Label
		}
		pdf.SetXY(textX, line)
		pdf.CellFormat(textW, 3.5, truncate(pdf, text, textW), "", 1, "L", false, 0, "")
		line += 3.5
	}

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, line+0.5)
	pdf.CellFormat(textW, 3, fmt.Sprintf("Waste %s %s", info.Waste, r.Options.Units), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// truncate shortens text with an ellipsis until it fits width.
func truncate(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return text + "..."
}

// CollectLabelInfos returns one label per core, numbered in plan order.
func CollectLabelInfos(r Report) []LabelInfo {
	cores := r.Result.Cores()
	labels := make([]LabelInfo, 0, len(cores))
	for _, c := range cores {
		info := LabelInfo{
			ReportID: r.ID.String(),
			Core:     c.Number,
			Of:       len(cores),
			Master:   r.Config.MasterLength.String(),
			Waste:    c.Entry.Waste.String(),
		}
		for _, p := range c.Entry.Pattern {
			info.Pieces = append(info.Pieces, LabelPiece{
				Width: p.Width.String(),
				Count: p.Count,
				Label: p.Label,
			})
		}
		labels = append(labels, info)
	}
	return labels
}
