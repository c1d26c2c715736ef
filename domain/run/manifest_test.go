package run

import (
	"testing"

	"mcsim/domain/core"
	"mcsim/domain/kernel"
)

func sampleRequest() *Request {
	return &Request{
		Name:    "margin",
		Formula: "(price - cost) * units",
		Inputs: []InputDecl{
			{Name: "price", Family: kernel.FamilyTriangular, Params: kernel.DistributionSpec{Param1: 8, Param2: 14, Param3: 10}},
			{Name: "cost", Family: kernel.FamilyNormal, Params: kernel.DistributionSpec{Param1: 6, Param2: 0.5}},
			{Name: "units", Family: kernel.FamilyUniform, Params: kernel.DistributionSpec{Param1: 900, Param2: 1100}},
		},
		Lanes:         64,
		TrialsPerLane: 16,
		Seed:          42,
	}
}

func sampleProgram() *kernel.ModelProgram {
	return kernel.MustModelProgram(
		kernel.PushInput(0), kernel.PushInput(1), kernel.Binary(kernel.OpSub),
		kernel.PushInput(2), kernel.Binary(kernel.OpMul),
	)
}

func TestManifestFingerprint_Deterministic(t *testing.T) {
	// Same inputs produce identical fingerprints, regardless of run ID
	m1 := NewManifest(core.NewRunID(), sampleRequest(), sampleProgram())
	m2 := NewManifest(core.NewRunID(), sampleRequest(), sampleProgram())

	if m1.Fingerprint != m2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", m1.Fingerprint, m2.Fingerprint)
	}
	if m1.RunID == m2.RunID {
		t.Errorf("Expected distinct run IDs")
	}
	if err := m1.Validate(); err != nil {
		t.Errorf("Manifest should validate: %v", err)
	}
}

func TestManifestFingerprint_Unique(t *testing.T) {
	base := NewManifest(core.NewRunID(), sampleRequest(), sampleProgram())

	testCases := []struct {
		name   string
		mutate func(r *Request)
	}{
		{"different seed", func(r *Request) { r.Seed = 43 }},
		{"different lanes", func(r *Request) { r.Lanes = 65 }},
		{"different trials", func(r *Request) { r.TrialsPerLane = 17 }},
		{"different name", func(r *Request) { r.Name = "margin-v2" }},
		{"different param", func(r *Request) { r.Inputs[1].Params.Param2 = 0.75 }},
		{"different family", func(r *Request) { r.Inputs[1].Family = kernel.FamilyLognormal }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleRequest()
			tc.mutate(req)
			m := NewManifest(core.NewRunID(), req, sampleProgram())
			if m.Fingerprint == base.Fingerprint {
				t.Errorf("Fingerprint should change for %s", tc.name)
			}
		})
	}

	other := NewManifest(core.NewRunID(), sampleRequest(), kernel.MustModelProgram(kernel.PushInput(0)))
	if other.Fingerprint == base.Fingerprint {
		t.Error("Fingerprint should change with the program")
	}
}

func TestManifest_ValidateDetectsTampering(t *testing.T) {
	m := NewManifest(core.NewRunID(), sampleRequest(), sampleProgram())
	m.Seed = 7
	if err := m.Validate(); err == nil {
		t.Error("Expected fingerprint mismatch after tampering")
	}

	empty := &Manifest{}
	if err := empty.Validate(); err == nil {
		t.Error("Expected error for empty manifest")
	}
}

func TestManifestRequest_RoundTrip(t *testing.T) {
	m := NewManifest(core.NewRunID(), sampleRequest(), sampleProgram())

	back := m.Request(25)
	if back.Name != "margin" || len(back.Inputs) != 3 || back.HistogramBins != 25 {
		t.Fatalf("unexpected rebuilt request: %+v", back)
	}
	again := NewManifest(m.RunID, back, sampleProgram())
	if again.Fingerprint != m.Fingerprint {
		t.Errorf("replayed manifest fingerprint %s, want %s", again.Fingerprint, m.Fingerprint)
	}
}
