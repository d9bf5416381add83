package model

import "time"

// Solver backend names.
const (
	SolverBranchAndBound = "branch-and-bound" // LP relaxation + branch and bound (default)
	SolverExhaustive     = "exhaustive"       // Pure integer search over core counts
)

// SolverSettings holds optimizer configuration that does not change the
// meaning of a request, only how the integer program is solved.
type SolverSettings struct {
	Solver    string        `json:"solver"`     // Backend name
	TimeLimit time.Duration `json:"time_limit"` // 0 = no time budget
	MaxNodes  int           `json:"max_nodes"`  // Search node budget, 0 = default, negative = unlimited
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() SolverSettings {
	return SolverSettings{
		Solver:    SolverBranchAndBound,
		TimeLimit: 0,
		MaxNodes:  200000,
	}
}

// WithDefaults fills unset fields from DefaultSettings.
func (s SolverSettings) WithDefaults() SolverSettings {
	d := DefaultSettings()
	if s.Solver == "" {
		s.Solver = d.Solver
	}
	if s.MaxNodes == 0 {
		s.MaxNodes = d.MaxNodes
	}
	return s
}
