package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ─── DetectCSVDelimiter Tests ──────────────────────────────

func TestDetectCSVDelimiter_Comma(t *testing.T) {
	data := []byte("Width,Qty,Label\n45,4,A\n36,3,B\n")
	if got := DetectCSVDelimiter(data); got != ',' {
		t.Errorf("expected comma delimiter, got %q", got)
	}
}

func TestDetectCSVDelimiter_Semicolon(t *testing.T) {
	data := []byte("Width;Qty;Label\n45,5;4;A\n36;3;B\n")
	if got := DetectCSVDelimiter(data); got != ';' {
		t.Errorf("expected semicolon delimiter, got %q", got)
	}
}

func TestDetectCSVDelimiter_Tab(t *testing.T) {
	data := []byte("Width\tQty\n45\t4\n36\t3\n")
	if got := DetectCSVDelimiter(data); got != '\t' {
		t.Errorf("expected tab delimiter, got %q", got)
	}
}

func TestDetectCSVDelimiter_Pipe(t *testing.T) {
	data := []byte("Width|Qty\n45|4\n36|3\n")
	if got := DetectCSVDelimiter(data); got != '|' {
		t.Errorf("expected pipe delimiter, got %q", got)
	}
}

// ─── DetectColumns Tests ───────────────────────────────────

func TestDetectColumns_StandardHeaders(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"Width", "Quantity", "Label"})
	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if mapping.Width != 0 || mapping.Quantity != 1 || mapping.Label != 2 {
		t.Errorf("unexpected mapping %+v", mapping)
	}
}

func TestDetectColumns_AliasesAndOrder(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"Order", "PCS", "Core Width"})
	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if mapping.Label != 0 || mapping.Quantity != 1 || mapping.Width != 2 {
		t.Errorf("unexpected mapping %+v", mapping)
	}
}

func TestDetectColumns_NoHeader(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"45", "4", "A"})
	if isHeader {
		t.Error("expected no header")
	}
	if mapping.Width != 0 || mapping.Quantity != 1 || mapping.Label != 2 {
		t.Errorf("expected positional mapping, got %+v", mapping)
	}
}

// ─── ParseDemand Tests ─────────────────────────────────────

func TestParseDemand(t *testing.T) {
	tests := []struct {
		in    string
		width string
		qty   int
		label string
	}{
		{"45x4", "45", 4, ""},
		{"12.5X10", "12.5", 10, ""},
		{" 36 x 3 :spine", "36", 3, "spine"},
		{"7.25", "7.25", 1, ""},
		{"10x0", "10", 0, ""},
	}
	for _, tt := range tests {
		d, err := ParseDemand(tt.in)
		if err != nil {
			t.Errorf("ParseDemand(%q) failed: %v", tt.in, err)
			continue
		}
		if d.Width.String() != tt.width || d.Quantity != tt.qty || d.Label != tt.label {
			t.Errorf("ParseDemand(%q) = %s x %d %q", tt.in, d.Width, d.Quantity, d.Label)
		}
	}
}

func TestParseDemand_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "45xmany", "0x3", "-4x2", "5x-1"} {
		if _, err := ParseDemand(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

// ─── CSV Import Tests ──────────────────────────────────────

func TestImportCSVFromReader_WithHeaders(t *testing.T) {
	csv := "Label,Width,Qty\nSpine,45,4\nCap,36.5,3\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Demands) != 2 {
		t.Fatalf("expected 2 demands, got %d", len(result.Demands))
	}
	d := result.Demands[1]
	if d.Label != "Cap" || d.Width.String() != "36.5" || d.Quantity != 3 {
		t.Errorf("unexpected demand %+v", d)
	}
}

func TestImportCSVFromReader_WithoutHeaders(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("45,4\n36,3,short\n"), ',')

	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Demands) != 2 {
		t.Fatalf("expected 2 demands, got %d", len(result.Demands))
	}
	if result.Demands[1].Label != "short" {
		t.Errorf("expected label 'short', got %q", result.Demands[1].Label)
	}
}

func TestImportCSVFromReader_UnrecognizedHeaderSkipped(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("Breite,Anzahl\n45,4\n"), ',')
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Demands) != 1 {
		t.Fatalf("expected 1 demand, got %d", len(result.Demands))
	}
}

func TestImportCSVFromReader_MergesDuplicateWidths(t *testing.T) {
	csv := "Width,Qty\n45,4\n36,3\n45.0,2\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Demands) != 2 {
		t.Fatalf("expected 2 demands after merge, got %d", len(result.Demands))
	}
	if result.Demands[0].Quantity != 6 {
		t.Errorf("expected merged quantity 6, got %d", result.Demands[0].Quantity)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "merged") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a merge warning, got %v", result.Warnings)
	}
}

func TestImportCSVFromReader_InvalidValues(t *testing.T) {
	csv := "Width,Qty\nwide,4\n45,lots\n0,2\n30,-1\n20,2\n"
	result := ImportCSVFromReader(strings.NewReader(csv), ',')

	if len(result.Errors) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(result.Errors), result.Errors)
	}
	if len(result.Demands) != 1 {
		t.Errorf("expected 1 valid demand, got %d", len(result.Demands))
	}
}

func TestImportCSVFromReader_ZeroQuantityKept(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("45,0\n"), ',')
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Demands) != 1 || result.Demands[0].Quantity != 0 {
		t.Errorf("expected one zero-quantity demand, got %+v", result.Demands)
	}
}

func TestImportCSVFromReader_MissingRequiredColumn(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("Label,Width\nA,45\n"), ',')
	if len(result.Errors) == 0 {
		t.Fatal("expected error for missing quantity column")
	}
	if !strings.Contains(result.Errors[0], "Quantity") {
		t.Errorf("expected error to name Quantity, got %q", result.Errors[0])
	}
}

func TestImportCSVFromReader_EmptyAndBlankRows(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader(""), ',')
	if len(result.Errors) == 0 {
		t.Error("expected error for empty input")
	}

	result = ImportCSVFromReader(strings.NewReader("Width,Qty\n45,1\n,\n36,2\n"), ',')
	if len(result.Errors) > 0 || len(result.Demands) != 2 {
		t.Errorf("expected blank row to be skipped, got %v / %d", result.Errors, len(result.Demands))
	}
}

func TestImportCSVFromReader_OnlyHeaders(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("Width,Qty\n"), ',')
	if len(result.Errors) == 0 {
		t.Error("expected error when no data rows follow the header")
	}
}

func TestImportCSV_SemicolonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demands.csv")
	if err := os.WriteFile(path, []byte("Width;Qty\n45;4\n36;3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	result := ImportFile(path)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Demands) != 2 {
		t.Fatalf("expected 2 demands, got %d", len(result.Demands))
	}
	if !strings.Contains(strings.Join(result.Warnings, "|"), "semicolon") {
		t.Errorf("expected semicolon warning, got %v", result.Warnings)
	}
}

func TestImportCSV_FileNotFound(t *testing.T) {
	result := ImportCSV(filepath.Join(t.TempDir(), "nope.csv"))
	if len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}

func TestImportCSV_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, []byte("  \n"), 0644); err != nil {
		t.Fatal(err)
	}
	result := ImportCSV(path)
	if len(result.Errors) != 1 || result.Errors[0] != "File is empty" {
		t.Errorf("expected 'File is empty', got %v", result.Errors)
	}
}

// ─── Excel Import Tests ────────────────────────────────────

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demands.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, row := range rows {
		for j, cell := range row {
			cellRef, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("failed to create cell reference: %v", err)
			}
			if err := f.SetCellValue(sheet, cellRef, cell); err != nil {
				t.Fatalf("failed to set cell value: %v", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save Excel file: %v", err)
	}
	return path
}

func TestImportExcel_WithHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"Width", "Quantity", "Label"},
		{45, 4, "Spine"},
		{"36.25", 3, "Cap"},
	})

	result := ImportFile(path)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Demands) != 2 {
		t.Fatalf("expected 2 demands, got %d", len(result.Demands))
	}
	if result.Demands[0].Label != "Spine" || result.Demands[0].Width.String() != "45" {
		t.Errorf("unexpected first demand %+v", result.Demands[0])
	}
	if result.Demands[1].Width.String() != "36.25" {
		t.Errorf("expected width 36.25, got %s", result.Demands[1].Width)
	}
}

func TestImportExcel_WithoutHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{45, 4},
		{36, 3},
	})

	result := ImportExcel(path)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Demands) != 2 {
		t.Fatalf("expected 2 demands, got %d", len(result.Demands))
	}
}

func TestImportExcel_FileNotFound(t *testing.T) {
	result := ImportExcel(filepath.Join(t.TempDir(), "nope.xlsx"))
	if len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}
