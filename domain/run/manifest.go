package run

import (
	"fmt"
	"strings"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
)

// CodeVersion is folded into every fingerprint; bump it whenever sampling
// or evaluation semantics change.
const CodeVersion = "1.0.0"

// Manifest is the complete description needed to replay a run. Lane
// states are not stored: they are re-derived from Name and Seed.
type Manifest struct {
	RunID         core.RunID     `json:"run_id"`
	Name          string         `json:"name"`
	Formula       string         `json:"formula"`
	Inputs        []InputDecl    `json:"inputs"`
	Lanes         int            `json:"lanes"`
	TrialsPerLane int            `json:"trials_per_lane"`
	Seed          int64          `json:"seed"`
	ProgramHash   core.Hash      `json:"program_hash"`
	CodeVersion   string         `json:"code_version"`
	Fingerprint   core.Hash      `json:"fingerprint"`
	CreatedAt     core.Timestamp `json:"created_at"`
}

// NewManifest records a validated request together with its compiled program.
func NewManifest(runID core.RunID, req *Request, program *kernel.ModelProgram) *Manifest {
	programHash := core.NewHash(kernel.EncodeProgram(program))
	inputs := make([]InputDecl, len(req.Inputs))
	copy(inputs, req.Inputs)

	m := &Manifest{
		RunID:         runID,
		Name:          req.Name,
		Formula:       req.Formula,
		Inputs:        inputs,
		Lanes:         req.Lanes,
		TrialsPerLane: req.TrialsPerLane,
		Seed:          req.Seed,
		ProgramHash:   programHash,
		CodeVersion:   CodeVersion,
		CreatedAt:     core.Now(),
	}
	m.Fingerprint = m.computeFingerprint()
	return m
}

// computeFingerprint hashes every parameter that influences the outputs.
// The run ID and creation time are deliberately left out.
func (m *Manifest) computeFingerprint() core.Hash {
	var b strings.Builder
	fmt.Fprintf(&b, "name:%s|program:%s|lanes:%d|trials:%d|seed:%d|code:%s",
		m.Name, m.ProgramHash, m.Lanes, m.TrialsPerLane, m.Seed, m.CodeVersion)
	for _, in := range m.Inputs {
		fmt.Fprintf(&b, "|input:%s:%d:%g:%g:%g",
			in.Name, in.Family, in.Params.Param1, in.Params.Param2, in.Params.Param3)
	}
	return core.NewHash([]byte(b.String()))
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Formula == "" {
		return core.NewValidationError("run_manifest", "formula cannot be empty")
	}
	if m.ProgramHash.IsEmpty() {
		return core.NewValidationError("run_manifest", "program_hash cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewValidationError("run_manifest", "code_version cannot be empty")
	}
	if !m.Fingerprint.Equals(m.computeFingerprint()) {
		return core.NewValidationError("run_manifest", "fingerprint does not match contents")
	}
	return nil
}

// Request rebuilds the request that produced the manifest, for replays.
func (m *Manifest) Request(histogramBins int) *Request {
	inputs := make([]InputDecl, len(m.Inputs))
	copy(inputs, m.Inputs)
	return &Request{
		Name:          m.Name,
		Formula:       m.Formula,
		Inputs:        inputs,
		Lanes:         m.Lanes,
		TrialsPerLane: m.TrialsPerLane,
		Seed:          m.Seed,
		HistogramBins: histogramBins,
	}
}
