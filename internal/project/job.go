// Package project persists optimization jobs and their results.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/amgaina/CoreCutter/internal/model"
)

var (
	// ErrUnsupportedFormat is returned for job files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported job file format")

	// ErrInvalidJob is returned when a job file fails validation.
	ErrInvalidJob = errors.New("invalid job")
)

var validate = validator.New()

// Job describes one optimization request as stored on disk. Lengths are kept
// as decimal literals so the file round-trips without loss; JSON accepts
// them as numbers or strings.
type Job struct {
	ID           uuid.UUID   `json:"id" yaml:"id"`
	Name         string      `json:"name,omitempty" yaml:"name,omitempty"`
	MasterLength json.Number `json:"master_length" yaml:"master_length" validate:"required,numeric"`
	Kerf         json.Number `json:"kerf,omitempty" yaml:"kerf,omitempty" validate:"omitempty,numeric"`
	Solver       string      `json:"solver,omitempty" yaml:"solver,omitempty"`
	Demands      []JobDemand `json:"demands" yaml:"demands" validate:"required,min=1,dive"`
	CreatedAt    time.Time   `json:"created_at" yaml:"created_at"`
}

// JobDemand is one demand line of a Job.
type JobDemand struct {
	Width    json.Number `json:"width" yaml:"width" validate:"required,numeric"`
	Quantity int         `json:"quantity" yaml:"quantity" validate:"gte=0"`
	Label    string      `json:"label,omitempty" yaml:"label,omitempty"`
}

// NewJob builds a job from a configuration and demand list.
func NewJob(name string, cfg model.Configuration, demands []model.DemandLine) Job {
	job := Job{
		ID:           uuid.New(),
		Name:         name,
		MasterLength: json.Number(cfg.MasterLength.String()),
		Kerf:         json.Number(cfg.Kerf.String()),
		Demands:      make([]JobDemand, 0, len(demands)),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	for _, d := range demands {
		job.Demands = append(job.Demands, JobDemand{
			Width:    json.Number(d.Width.String()),
			Quantity: d.Quantity,
			Label:    d.Label,
		})
	}
	return job
}

// Validate checks the job's fields.
func (j Job) Validate() error {
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return nil
}

// Request converts the job to engine input. An empty kerf takes
// defaultKerf.
func (j Job) Request(defaultKerf decimal.Decimal) (model.Configuration, []model.DemandLine, error) {
	if err := j.Validate(); err != nil {
		return model.Configuration{}, nil, err
	}
	return ParseRequest(j.MasterLength, j.Kerf, j.Demands, defaultKerf)
}

// ParseRequest converts decimal literals to engine input. Range checks are
// left to the engine so every caller gets the same classified errors.
func ParseRequest(masterLength, kerf json.Number, demands []JobDemand, defaultKerf decimal.Decimal) (model.Configuration, []model.DemandLine, error) {
	master, err := decimal.NewFromString(masterLength.String())
	if err != nil {
		return model.Configuration{}, nil, fmt.Errorf("%w: master_length: %v", ErrInvalidJob, err)
	}
	k := defaultKerf
	if kerf != "" {
		if k, err = decimal.NewFromString(kerf.String()); err != nil {
			return model.Configuration{}, nil, fmt.Errorf("%w: kerf: %v", ErrInvalidJob, err)
		}
	}

	lines := make([]model.DemandLine, 0, len(demands))
	for i, d := range demands {
		w, err := decimal.NewFromString(d.Width.String())
		if err != nil {
			return model.Configuration{}, nil, fmt.Errorf("%w: demand %d width: %v", ErrInvalidJob, i+1, err)
		}
		lines = append(lines, model.DemandLine{Width: w, Quantity: d.Quantity, Label: d.Label})
	}
	return model.Configuration{MasterLength: master, Kerf: k}, lines, nil
}

// DefaultJobsDir returns the default directory for saved jobs, ~/.corecutter/jobs.
func DefaultJobsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".corecutter", "jobs")
}

type codec struct {
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return codec{
			marshal:   func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
			unmarshal: json.Unmarshal,
		}, nil
	case ".yaml", ".yml":
		return codec{marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}, nil
	default:
		return codec{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// SaveJob writes a job as JSON or YAML depending on the file extension.
// It creates any missing parent directories automatically.
func SaveJob(path string, job Job) error {
	c, err := codecFor(path)
	if err != nil {
		return err
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := job.Validate(); err != nil {
		return err
	}
	data, err := c.marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadJob reads a job written by SaveJob or by hand. A job without an ID is
// given a fresh one.
func LoadJob(path string) (Job, error) {
	c, err := codecFor(path)
	if err != nil {
		return Job{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := c.unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("failed to parse job file: %w", err)
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}
