package run

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
	"mcsim/domain/summary"
)

// Limits applied to requests before anything is allocated.
const (
	MaxTotalTrials   = 50_000_000
	MaxHistogramBins = 1000
)

var inputNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// InputDecl declares one named model input and its distribution.
type InputDecl struct {
	Name   string                  `json:"name"`
	Family kernel.Family           `json:"family"`
	Params kernel.DistributionSpec `json:"params"`
}

// Validate checks the name, the family tag and the family's parameters.
func (d InputDecl) Validate() error {
	if !inputNamePattern.MatchString(d.Name) {
		return core.NewInputError(core.ErrInvalidInput, d.Name, "name must be an identifier")
	}
	if !d.Family.Valid() {
		return core.NewInputError(core.ErrUnknownFamily, d.Name, d.Family.String())
	}
	p1, p2, p3 := float64(d.Params.Param1), float64(d.Params.Param2), float64(d.Params.Param3)
	for _, v := range []float64{p1, p2, p3} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewInputError(core.ErrInvalidParameter, d.Name, "parameters must be finite")
		}
	}

	switch d.Family {
	case kernel.FamilyNormal, kernel.FamilyLognormal:
		if p2 < 0 {
			return core.NewInputError(core.ErrInvalidParameter, d.Name, fmt.Sprintf("standard deviation %g is negative", p2))
		}
	case kernel.FamilyUniform:
		if p2 <= p1 {
			return core.NewInputError(core.ErrInvalidParameter, d.Name, fmt.Sprintf("max %g must exceed min %g", p2, p1))
		}
	case kernel.FamilyTriangular:
		if p2 <= p1 {
			return core.NewInputError(core.ErrInvalidParameter, d.Name, fmt.Sprintf("max %g must exceed min %g", p2, p1))
		}
		if p3 < p1 || p3 > p2 {
			return core.NewInputError(core.ErrInvalidParameter, d.Name, fmt.Sprintf("mode %g outside [%g, %g]", p3, p1, p2))
		}
	case kernel.FamilyExponential:
		if p1 <= 0 {
			return core.NewInputError(core.ErrInvalidParameter, d.Name, fmt.Sprintf("rate %g must be positive", p1))
		}
	}
	return nil
}

// Request is everything needed to execute one simulation run.
type Request struct {
	Name          string      `json:"name"`
	Formula       string      `json:"formula"`
	Inputs        []InputDecl `json:"inputs"`
	Lanes         int         `json:"lanes"`
	TrialsPerLane int         `json:"trials_per_lane"`
	Seed          int64       `json:"seed"`
	HistogramBins int         `json:"histogram_bins"`
}

// Trials returns the total number of trial outcomes the run produces.
func (r *Request) Trials() int {
	return r.Lanes * r.TrialsPerLane
}

// InputNames returns input names in declaration order.
func (r *Request) InputNames() []string {
	names := make([]string, len(r.Inputs))
	for i, in := range r.Inputs {
		names[i] = in.Name
	}
	return names
}

// Validate checks the request shape. The formula itself is checked by the compiler.
func (r *Request) Validate() error {
	if r.Formula == "" {
		return core.NewValidationError("formula", "cannot be empty")
	}
	if len(r.Inputs) > kernel.MaxInputs {
		return fmt.Errorf("%w: %d > %d", core.ErrTooManyInputs, len(r.Inputs), kernel.MaxInputs)
	}
	seen := make(map[string]bool, len(r.Inputs))
	for _, in := range r.Inputs {
		if err := in.Validate(); err != nil {
			return err
		}
		if seen[in.Name] {
			return core.NewInputError(core.ErrDuplicateInput, in.Name, "declared twice")
		}
		seen[in.Name] = true
	}
	if r.Lanes <= 0 {
		return core.NewValidationError("lanes", fmt.Sprintf("must be positive, got %d", r.Lanes))
	}
	if r.TrialsPerLane <= 0 {
		return core.NewValidationError("trials_per_lane", fmt.Sprintf("must be positive, got %d", r.TrialsPerLane))
	}
	if r.Lanes > MaxTotalTrials/r.TrialsPerLane {
		return core.NewValidationError("lanes", fmt.Sprintf("%d lanes x %d trials exceeds %d", r.Lanes, r.TrialsPerLane, MaxTotalTrials))
	}
	if r.HistogramBins < 0 || r.HistogramBins > MaxHistogramBins {
		return core.NewValidationError("histogram_bins", fmt.Sprintf("must be in [0, %d]", MaxHistogramBins))
	}
	return nil
}

// InputSet converts the declarations into the kernel's read-only form.
func (r *Request) InputSet() (*kernel.InputSet, error) {
	specs := make([]kernel.DistributionSpec, len(r.Inputs))
	families := make([]kernel.Family, len(r.Inputs))
	for i, in := range r.Inputs {
		specs[i] = in.Params
		families[i] = in.Family
	}
	return kernel.NewInputSet(specs, families)
}

// Result is a finished run: its manifest, output summary and timing. Raw
// outputs are kept in memory for exports but never persisted.
type Result struct {
	Manifest    Manifest         `json:"manifest"`
	Summary     *summary.Summary `json:"summary"`
	Duration    time.Duration    `json:"duration_ns"`
	CompletedAt core.Timestamp   `json:"completed_at"`
	Outputs     []float64        `json:"-"`
}
