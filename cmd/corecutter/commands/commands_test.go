package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgaina/CoreCutter/internal/engine"
	"github.com/amgaina/CoreCutter/internal/model"
	"github.com/amgaina/CoreCutter/internal/project"
)

// run executes the CLI in an empty directory so no config file is picked up.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CORECUTTER_LOGGING_LEVEL", "error")

	root := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var textbookArgs = []string{"--master", "100", "--kerf", "0.5", "-d", "45x4:A", "-d", "36x3"}

func TestOptimizeText(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, append([]string{"optimize"}, textbookArgs...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "CORE CUTTING PLAN")
	assert.Contains(t, out, "Cores Required:     4")
	assert.Contains(t, out, "Core 4:")
	assert.NotContains(t, out, "Core 5:")
}

func TestOptimizeJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, append([]string{"optimize", "--json", "--solver", "exhaustive"}, textbookArgs...)...)
	require.NoError(t, err)

	var body struct {
		Result model.Result `json:"result"`
		Stats  engine.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 4, body.Result.CoresRequired)
	assert.Equal(t, model.SolverExhaustive, body.Stats.Solver)
}

func TestOptimizeWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	jobPath := filepath.Join(dir, "job.yaml")
	recordPath := filepath.Join(dir, "out", "run.json")
	args := append([]string{"optimize",
		"--save-job", jobPath,
		"--record", recordPath,
		"--txt", filepath.Join(dir, "plan.txt"),
		"--xlsx", filepath.Join(dir, "plan.xlsx"),
		"--pdf", filepath.Join(dir, "plan.pdf"),
		"--labels", filepath.Join(dir, "labels.pdf"),
	}, textbookArgs...)
	_, err := run(t, args...)
	require.NoError(t, err)

	for _, name := range []string{"job.yaml", "out/run.json", "plan.txt", "plan.xlsx", "plan.pdf", "labels.pdf"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	job, err := project.LoadJob(jobPath)
	require.NoError(t, err)
	assert.Equal(t, "100", job.MasterLength.String())
	assert.Equal(t, "0.5", job.Kerf.String())
	require.Len(t, job.Demands, 2)
	assert.Equal(t, "A", job.Demands[0].Label)

	record, err := project.ImportRecord(recordPath)
	require.NoError(t, err)
	assert.Equal(t, 4, record.Result.CoresRequired)

	// The saved job reproduces the plan.
	out, err := run(t, "optimize", "--job", jobPath, "--json")
	require.NoError(t, err)
	var body struct {
		Result model.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 4, body.Result.CoresRequired)
}

func TestOptimizeFromCSV(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	csvPath := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("width,qty,label\n45,4,A\n36,3,B\n"), 0644))

	out, err := run(t, "optimize", "--master", "100", "--kerf", "0.5", "--input", csvPath, "--json")
	require.NoError(t, err)
	var body struct {
		Result model.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 4, body.Result.CoresRequired)
}

func TestOptimizeErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := run(t, "optimize", "-d", "10x1")
	assert.ErrorContains(t, err, "--master is required")

	_, err = run(t, "optimize", "--master", "100")
	assert.ErrorContains(t, err, "no demands")

	_, err = run(t, "optimize", "--master", "100", "-d", "150x1")
	assert.ErrorIs(t, err, engine.ErrOversizedItem)

	_, err = run(t, "optimize", "--master", "100", "-d", "10x1", "--solver", "nope")
	assert.ErrorIs(t, err, engine.ErrSolverUnavailable)

	_, err = run(t, "optimize", "--master", "100", "-d", "10x1", "--format", "xml")
	assert.ErrorContains(t, err, "unknown --format")
}

func TestCompare(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, "compare", "--master", "100", "--kerf", "0.5", "-d", "50x2")
	require.NoError(t, err)
	assert.Contains(t, out, "SCENARIO")
	assert.Contains(t, out, "Current Settings")
	assert.Contains(t, out, "No Kerf")
}

func TestEstimateJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := run(t, "estimate", "--master", "100", "--kerf", "0", "-d", "50x3", "--waste", "10", "--price", "20", "--json")
	require.NoError(t, err)

	var est model.PurchaseEstimate
	require.NoError(t, json.Unmarshal([]byte(out), &est))
	assert.Equal(t, 2, est.CoresNeededMin)
	assert.Equal(t, 2, est.CoresWithWaste)
	assert.True(t, est.EstimatedCost.Equal(decimal.NewFromInt(40)), "cost %s", est.EstimatedCost)
}

func TestSolvers(t *testing.T) {
	out, err := run(t, "solvers")
	require.NoError(t, err)
	assert.Contains(t, out, model.SolverBranchAndBound)
	assert.Contains(t, out, model.SolverExhaustive)
}
