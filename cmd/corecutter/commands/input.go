package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/amgaina/CoreCutter/internal/importer"
	"github.com/amgaina/CoreCutter/internal/model"
	"github.com/amgaina/CoreCutter/internal/project"
)

// inputFlags are the flags shared by every command that takes a cutting job.
type inputFlags struct {
	master    string
	kerf      string
	demands   []string
	input     string
	job       string
	solver    string
	timeLimit time.Duration
	maxNodes  int
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.master, "master", "m", "", "master core length")
	cmd.Flags().StringVarP(&f.kerf, "kerf", "k", "", "blade kerf (defaults to engine.default_kerf)")
	cmd.Flags().StringArrayVarP(&f.demands, "demand", "d", nil, "demand as WIDTHxQTY[:LABEL], repeatable")
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "CSV or Excel file of demands")
	cmd.Flags().StringVar(&f.job, "job", "", "job file (JSON or YAML)")
	cmd.Flags().StringVar(&f.solver, "solver", "", "solver backend (see 'corecutter solvers')")
	cmd.Flags().DurationVar(&f.timeLimit, "time-limit", 0, "abort the solve after this long")
	cmd.Flags().IntVar(&f.maxNodes, "max-nodes", 0, "search node budget, negative for unlimited")
}

// request is a fully resolved cutting job.
type request struct {
	job      project.Job
	cfg      model.Configuration
	demands  []model.DemandLine
	settings model.SolverSettings
}

// resolve builds the request from a job file and/or command-line flags.
// Flags override values read from the job file.
func (f *inputFlags) resolve(ctx context.Context, e *env) (request, error) {
	logger := zerolog.Ctx(ctx)
	defaultKerf, err := e.cfg.Engine.Kerf()
	if err != nil {
		return request{}, err
	}

	var req request
	req.settings = e.cfg.Engine.Settings()

	name := "cli"
	if f.job != "" {
		job, err := project.LoadJob(f.job)
		if err != nil {
			return request{}, err
		}
		req.cfg, req.demands, err = job.Request(defaultKerf)
		if err != nil {
			return request{}, err
		}
		if job.Solver != "" {
			req.settings.Solver = job.Solver
		}
		name = job.Name
		logger.Debug().Str("job", f.job).Str("id", job.ID.String()).Msg("Job loaded")
	} else {
		req.cfg.Kerf = defaultKerf
	}

	if f.master != "" {
		if req.cfg.MasterLength, err = decimal.NewFromString(f.master); err != nil {
			return request{}, fmt.Errorf("invalid --master %q: %w", f.master, err)
		}
	}
	if f.kerf != "" {
		if req.cfg.Kerf, err = decimal.NewFromString(f.kerf); err != nil {
			return request{}, fmt.Errorf("invalid --kerf %q: %w", f.kerf, err)
		}
	}
	if f.job == "" && f.master == "" {
		return request{}, errors.New("--master is required unless --job is given")
	}

	for _, raw := range f.demands {
		d, err := importer.ParseDemand(raw)
		if err != nil {
			return request{}, err
		}
		req.demands = append(req.demands, d)
	}
	if f.input != "" {
		res := importer.ImportFile(f.input)
		for _, w := range res.Warnings {
			logger.Warn().Str("file", f.input).Msg(w)
		}
		if len(res.Errors) > 0 {
			return request{}, fmt.Errorf("failed to import %s: %s", f.input, strings.Join(res.Errors, "; "))
		}
		req.demands = append(req.demands, res.Demands...)
		if name == "cli" {
			name = strings.TrimSuffix(filepath.Base(f.input), filepath.Ext(f.input))
		}
	}
	if len(req.demands) == 0 {
		return request{}, errors.New("no demands given: use --demand, --input or --job")
	}

	if f.solver != "" {
		req.settings.Solver = f.solver
	}
	if f.timeLimit > 0 {
		req.settings.TimeLimit = f.timeLimit
	}
	if f.maxNodes != 0 {
		req.settings.MaxNodes = f.maxNodes
	}

	req.job = project.NewJob(name, req.cfg, req.demands)
	req.job.Solver = req.settings.Solver
	return req, nil
}
