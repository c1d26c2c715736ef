package kernel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Family tags a distribution. The integer values are part of the host
// encoding and must not change.
type Family int32

const (
	FamilyNormal      Family = 0
	FamilyUniform     Family = 1
	FamilyTriangular  Family = 2
	FamilyExponential Family = 3
	FamilyLognormal   Family = 4
)

var familyNames = [...]string{
	FamilyNormal:      "normal",
	FamilyUniform:     "uniform",
	FamilyTriangular:  "triangular",
	FamilyExponential: "exponential",
	FamilyLognormal:   "lognormal",
}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	return f >= FamilyNormal && f <= FamilyLognormal
}

func (f Family) String() string {
	if !f.Valid() {
		return fmt.Sprintf("family(%d)", int32(f))
	}
	return familyNames[f]
}

// ParseFamily maps a case-insensitive family name, or its integer tag, to a Family.
func ParseFamily(s string) (Family, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(name); err == nil {
		if f := Family(n); f.Valid() {
			return f, nil
		}
		return -1, fmt.Errorf("distribution family tag %d out of range", n)
	}
	for i, n := range familyNames {
		if n == name {
			return Family(i), nil
		}
	}
	return -1, fmt.Errorf("unknown distribution family %q", s)
}

func (f Family) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", f)
	}
	return []byte(f.String()), nil
}

func (f *Family) UnmarshalText(b []byte) error {
	parsed, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// UnmarshalJSON accepts a family name or its integer tag.
func (f *Family) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var name string
		if err := json.Unmarshal(b, &name); err != nil {
			return err
		}
		return f.UnmarshalText([]byte(name))
	}
	return f.UnmarshalText(b)
}

// DistributionSpec holds the three parameter slots of a distribution. Their
// meaning depends on the family:
//
//	Normal       mean     stdDev    -
//	Uniform      min      max       -
//	Triangular   min      max       mode
//	Exponential  rate     -         -
//	Lognormal    logMean  logStdDev -
type DistributionSpec struct {
	Param1 float32 `json:"param1"`
	Param2 float32 `json:"param2"`
	Param3 float32 `json:"param3"`
}

// DrawCount returns how many uniform draws Sample consumes for family.
// Callers that replay streams rely on this.
func DrawCount(family Family) int {
	switch family {
	case FamilyNormal, FamilyLognormal:
		return 2
	case FamilyUniform, FamilyTriangular, FamilyExponential:
		return 1
	default:
		return 0
	}
}

// Sample draws one value from the distribution described by spec and family,
// advancing state. An unknown family returns 0 without drawing.
func Sample(state *GeneratorState, spec DistributionSpec, family Family) float64 {
	p1 := float64(spec.Param1)
	p2 := float64(spec.Param2)
	switch family {
	case FamilyNormal:
		return state.NextNormal(p1, p2)
	case FamilyUniform:
		return p1 + state.NextUniform()*(p2-p1)
	case FamilyTriangular:
		return sampleTriangular(state, p1, p2, float64(spec.Param3))
	case FamilyExponential:
		return -math.Log(1-state.NextUniform()) / p1
	case FamilyLognormal:
		return math.Exp(state.NextNormal(p1, p2))
	default:
		return 0
	}
}

func sampleTriangular(state *GeneratorState, min, max, mode float64) float64 {
	u := state.NextUniform()
	fc := (mode - min) / (max - min)
	if u < fc {
		return min + math.Sqrt(u*(max-min)*(mode-min))
	}
	return max - math.Sqrt((1-u)*(max-min)*(max-mode))
}
