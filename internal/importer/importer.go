// Package importer provides CSV and Excel import functionality for demand lists.
// It supports automatic delimiter detection, flexible column mapping, and
// case-insensitive header recognition. Rows with the same width are merged.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/amgaina/CoreCutter/internal/model"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Demands  []model.DemandLine
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	Width    int
	Quantity int
	Label    int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"width":    {"width", "w", "size", "length", "len", "cut", "cut width", "core width"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces", "rolls"},
	"label":    {"label", "name", "part", "description", "desc", "item", "id", "order"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping Width, Quantity, Label and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{Width: -1, Quantity: -1, Label: -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "width":
					if mapping.Width == -1 {
						mapping.Width = i
					}
				case "quantity":
					if mapping.Quantity == -1 {
						mapping.Quantity = i
					}
				case "label":
					if mapping.Label == -1 {
						mapping.Label = i
					}
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{Width: 0, Quantity: 1, Label: 2}, false
	}
	return mapping, true
}

// ParseDemand parses the shorthand WIDTHxQTY[:LABEL], e.g. "45x4" or
// "12.5x10:spine". A bare width means a quantity of one.
func ParseDemand(s string) (model.DemandLine, error) {
	body, label, _ := strings.Cut(strings.TrimSpace(s), ":")
	widthStr, qtyStr, hasQty := strings.Cut(strings.ToLower(body), "x")

	width, err := decimal.NewFromString(strings.TrimSpace(widthStr))
	if err != nil {
		return model.DemandLine{}, fmt.Errorf("invalid width in %q", s)
	}
	qty := 1
	if hasQty {
		qty, err = strconv.Atoi(strings.TrimSpace(qtyStr))
		if err != nil {
			return model.DemandLine{}, fmt.Errorf("invalid quantity in %q", s)
		}
	}
	if width.Sign() <= 0 {
		return model.DemandLine{}, fmt.Errorf("width must be positive in %q", s)
	}
	if qty < 0 {
		return model.DemandLine{}, fmt.Errorf("quantity must not be negative in %q", s)
	}
	return model.DemandLine{Width: width, Quantity: qty, Label: strings.TrimSpace(label)}, nil
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseRow extracts a DemandLine from a row using the given column mapping.
// Returns the demand and any error message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string) (model.DemandLine, string) {
	widthStr := getCell(row, mapping.Width)
	if widthStr == "" {
		return model.DemandLine{}, fmt.Sprintf("%s: Missing width value", rowLabel)
	}
	width, err := decimal.NewFromString(widthStr)
	if err != nil {
		return model.DemandLine{}, fmt.Sprintf("%s: Invalid width '%s'", rowLabel, widthStr)
	}

	qtyStr := getCell(row, mapping.Quantity)
	if qtyStr == "" {
		return model.DemandLine{}, fmt.Sprintf("%s: Missing quantity value", rowLabel)
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return model.DemandLine{}, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr)
	}

	if width.Sign() <= 0 {
		return model.DemandLine{}, fmt.Sprintf("%s: Width must be positive", rowLabel)
	}
	if qty < 0 {
		return model.DemandLine{}, fmt.Sprintf("%s: Quantity must not be negative", rowLabel)
	}

	return model.DemandLine{Width: width, Quantity: qty, Label: getCell(row, mapping.Label)}, ""
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportFile imports demands from a CSV or Excel file, chosen by extension.
func ImportFile(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path)
	default:
		return ImportCSV(path)
	}
}

// ImportCSV imports demands from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", result.Warnings)
}

// ImportCSVFromReader imports demands from a CSV reader with a specific delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports demands from the first sheet of an Excel file.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for both CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		missing := []string{}
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if mapping.Quantity == -1 {
			missing = append(missing, "Quantity")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if _, err := decimal.NewFromString(getCell(rows[0], 0)); err != nil && !isEmptyRow(rows[0]) {
		// Unrecognized header: skip it and keep the positional mapping
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")
	}

	byWidth := make(map[string]int)
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		d, errMsg := parseRow(row, mapping, rowLabel)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}

		key := d.Width.String()
		if at, ok := byWidth[key]; ok {
			result.Demands[at].Quantity += d.Quantity
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: Width %s already listed, quantities merged", rowLabel, key))
			continue
		}
		byWidth[key] = len(result.Demands)
		result.Demands = append(result.Demands, d)
	}

	if len(result.Demands) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
	}
	return result
}
