package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amgaina/CoreCutter/internal/model"
)

// RecordVersion is the format version written into run records.
const RecordVersion = "1.0.0"

// RunRecord is an archived job together with the plan computed for it.
type RunRecord struct {
	Version   string       `json:"version"`
	CreatedAt string       `json:"created_at"`
	Solver    string       `json:"solver"`
	Job       Job          `json:"job"`
	Result    model.Result `json:"result"`
}

// ExportRecord writes a job and its result to a single JSON file.
func ExportRecord(exportPath, solver string, job Job, result model.Result) error {
	record := RunRecord{
		Version:   RecordVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Solver:    solver,
		Job:       job,
		Result:    result,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	if err := os.WriteFile(exportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	return nil
}

// ImportRecord reads a run record written by ExportRecord.
func ImportRecord(importPath string) (RunRecord, error) {
	data, err := os.ReadFile(importPath)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to read run record: %w", err)
	}
	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return RunRecord{}, fmt.Errorf("failed to parse run record: %w", err)
	}
	if record.Version == "" {
		return RunRecord{}, fmt.Errorf("invalid run record: missing version field")
	}
	if record.Result.CuttingPlan == nil {
		record.Result.CuttingPlan = []model.PlanEntry{}
	}
	return record, nil
}
