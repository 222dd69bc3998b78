package params

import (
	"math"
	"testing"

	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/quad"
)

func TestDefaultsValidate(t *testing.T) {
	if err := New().Validate(); err != nil {
		t.Fatalf("default parameters should validate: %v", err)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Parameters)
	}{
		{"zero grid size", func(p *Parameters) { p.Targets.LDOSGridSize = 0 }},
		{"negative spacing", func(p *Parameters) { p.Targets.LDOSGridSpacingEV = -0.1 }},
		{"negative temperature", func(p *Parameters) { p.Targets.TemperatureK = -1 }},
		{"unknown integration method", func(p *Parameters) { p.Targets.IntegrationMethod = "gauss" }},
		{"zero fermi iterations", func(p *Parameters) { p.Targets.FermiMaxIterations = 0 }},
		{"unknown descriptor", func(p *Parameters) { p.Descriptors.Kind = "soap" }},
		{"zero cutoff", func(p *Parameters) { p.Descriptors.CutoffRadiusAA = 0 }},
		{"unknown input scaler", func(p *Parameters) { p.Data.InputScaler = "robust" }},
		{"unknown output scaler", func(p *Parameters) { p.Data.OutputScaler = "robust" }},
		{"zero batch size", func(p *Parameters) { p.Data.BatchSize = 0 }},
	}
	for _, tc := range cases {
		p := New()
		tc.mutate(p)
		err := p.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		var cfgErr *errors.ConfigurationError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected ConfigurationError, got %v", tc.name, err)
		}
	}
}

func TestSimpsonEvenGridNeedsFallback(t *testing.T) {
	p := New()
	p.Targets.IntegrationMethod = quad.Simpson
	p.Targets.LDOSGridSize = 250 // even
	if err := p.Validate(); err == nil {
		t.Fatal("even grid with Simpson and no fallback should fail validation")
	}
	p.Targets.SimpsonFallback = true
	if err := p.Validate(); err != nil {
		t.Fatalf("fallback enabled should validate: %v", err)
	}
	p.Targets.SimpsonFallback = false
	p.Targets.LDOSGridSize = 251
	if err := p.Validate(); err != nil {
		t.Fatalf("odd grid should validate: %v", err)
	}
}

func TestEnergyGrid(t *testing.T) {
	p := New()
	grid := p.Targets.EnergyGrid()
	if len(grid) != p.Targets.LDOSGridSize {
		t.Fatalf("grid size %d, want %d", len(grid), p.Targets.LDOSGridSize)
	}
	if grid[0] != p.Targets.LDOSGridOffsetEV {
		t.Errorf("grid start %v, want %v", grid[0], p.Targets.LDOSGridOffsetEV)
	}
	for i := 1; i < len(grid); i++ {
		if math.Abs(grid[i]-grid[i-1]-p.Targets.LDOSGridSpacingEV) > 1e-12 {
			t.Fatalf("non-uniform spacing at %d", i)
		}
	}

	// Callers get independent copies.
	grid[0] = 1e9
	if p.Targets.EnergyGrid()[0] == 1e9 {
		t.Error("EnergyGrid returned a shared slice")
	}
}
