// Package params holds the settings structs consumed by the pipeline
// components. A Parameters value is constructed explicitly and passed by
// pointer into each component's constructor; there is no ambient global
// configuration.
package params

import (
	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/quad"
)

// ScalerType names the normalization applied to a quantity.
type ScalerType string

const (
	// ScalerNone disables scaling.
	ScalerNone ScalerType = "none"
	// ScalerMinMax scales each feature into [0, 1] using the observed range.
	ScalerMinMax ScalerType = "feature-wise-minmax"
	// ScalerStandard standardizes each feature to zero mean, unit variance.
	ScalerStandard ScalerType = "feature-wise-standard"
)

// Targets configures the target calculators (Density, DOS, LDOS).
type Targets struct {
	// LDOSGridSize is the number of energy samples of the LDOS/DOS grid.
	LDOSGridSize int

	// LDOSGridSpacingEV is the energy grid spacing in eV.
	LDOSGridSpacingEV float64

	// LDOSGridOffsetEV is the energy of the first grid sample in eV.
	LDOSGridOffsetEV float64

	// TemperatureK is the electronic temperature in K used in occupation
	// functions.
	TemperatureK float64

	// IntegrationMethod selects the quadrature rule for derived quantities.
	IntegrationMethod quad.Method

	// SimpsonFallback allows Simpson integration to silently downgrade to
	// the trapezoid rule on even sample counts instead of failing.
	SimpsonFallback bool

	// FermiToleranceElectrons is the convergence tolerance of the
	// self-consistent Fermi solve, in electrons.
	FermiToleranceElectrons float64

	// FermiMaxIterations caps the Fermi root-finder.
	FermiMaxIterations int
}

// Descriptors configures the descriptor calculators.
type Descriptors struct {
	// Kind selects the descriptor: "bispectrum" or "atomic-density".
	Kind string

	// CutoffRadiusAA is the neighborhood cutoff radius in Angstrom.
	CutoffRadiusAA float64

	// TwoJMax is the bispectrum expansion-order parameter (2*j_max).
	TwoJMax int

	// GaussianSigmaAA is the width of the atomic-density Gaussians in
	// Angstrom.
	GaussianSigmaAA float64

	// ElementWeightFuzz is a small per-element perturbation applied to the
	// descriptor element weights to avoid degenerate symmetry between
	// species.
	ElementWeightFuzz float64
}

// Data configures the data handler.
type Data struct {
	// UseLazyLoading materializes only the requested minibatch instead of
	// full snapshots.
	UseLazyLoading bool

	// InputScaler and OutputScaler select the normalization per quantity.
	InputScaler  ScalerType
	OutputScaler ScalerType

	// ShuffleSeed seeds the per-epoch enumeration order of the lazy
	// dataset. Split membership never depends on it.
	ShuffleSeed int64

	// BatchSize is the minibatch size of the lazy dataset.
	BatchSize int
}

// Parameters aggregates all component settings.
type Parameters struct {
	Targets     Targets
	Descriptors Descriptors
	Data        Data
}

// New returns Parameters populated with the usual defaults: a 250-point LDOS
// grid starting at -10 eV with 0.1 eV spacing, room temperature, analytic
// integration, and feature-wise min-max input scaling.
func New() *Parameters {
	return &Parameters{
		Targets: Targets{
			LDOSGridSize:            250,
			LDOSGridSpacingEV:       0.1,
			LDOSGridOffsetEV:        -10.0,
			TemperatureK:            298.0,
			IntegrationMethod:       quad.Analytic,
			FermiToleranceElectrons: 1e-8,
			FermiMaxIterations:      100,
		},
		Descriptors: Descriptors{
			Kind:              "bispectrum",
			CutoffRadiusAA:    4.67637,
			TwoJMax:           10,
			GaussianSigmaAA:   1.3,
			ElementWeightFuzz: 0.001,
		},
		Data: Data{
			UseLazyLoading: false,
			InputScaler:    ScalerMinMax,
			OutputScaler:   ScalerNone,
			ShuffleSeed:    42,
			BatchSize:      1000,
		},
	}
}

// Validate checks the settings for internal consistency.
func (p *Parameters) Validate() error {
	if p.Targets.LDOSGridSize <= 0 {
		return errors.NewConfigurationError("Targets.LDOSGridSize",
			"must be positive", p.Targets.LDOSGridSize)
	}
	if p.Targets.LDOSGridSpacingEV <= 0 {
		return errors.NewConfigurationError("Targets.LDOSGridSpacingEV",
			"must be positive", p.Targets.LDOSGridSpacingEV)
	}
	if p.Targets.TemperatureK < 0 {
		return errors.NewConfigurationError("Targets.TemperatureK",
			"must be non-negative", p.Targets.TemperatureK)
	}
	if !p.Targets.IntegrationMethod.Valid() {
		return errors.NewConfigurationError("Targets.IntegrationMethod",
			"does not match an implemented method", string(p.Targets.IntegrationMethod))
	}
	if p.Targets.IntegrationMethod == quad.Simpson &&
		p.Targets.LDOSGridSize%2 == 0 && !p.Targets.SimpsonFallback {
		return errors.NewConfigurationError("Targets.IntegrationMethod",
			"Simpson integration requires an odd LDOS grid size unless SimpsonFallback is set",
			p.Targets.LDOSGridSize)
	}
	if p.Targets.FermiMaxIterations <= 0 {
		return errors.NewConfigurationError("Targets.FermiMaxIterations",
			"must be positive", p.Targets.FermiMaxIterations)
	}
	switch p.Descriptors.Kind {
	case "bispectrum", "atomic-density":
	default:
		return errors.NewConfigurationError("Descriptors.Kind",
			"must be \"bispectrum\" or \"atomic-density\"", p.Descriptors.Kind)
	}
	if p.Descriptors.CutoffRadiusAA <= 0 {
		return errors.NewConfigurationError("Descriptors.CutoffRadiusAA",
			"must be positive", p.Descriptors.CutoffRadiusAA)
	}
	switch p.Data.InputScaler {
	case ScalerNone, ScalerMinMax, ScalerStandard:
	default:
		return errors.NewConfigurationError("Data.InputScaler",
			"unknown scaler type", string(p.Data.InputScaler))
	}
	switch p.Data.OutputScaler {
	case ScalerNone, ScalerMinMax, ScalerStandard:
	default:
		return errors.NewConfigurationError("Data.OutputScaler",
			"unknown scaler type", string(p.Data.OutputScaler))
	}
	if p.Data.BatchSize <= 0 {
		return errors.NewConfigurationError("Data.BatchSize",
			"must be positive", p.Data.BatchSize)
	}
	return nil
}

// EnergyGrid materializes the target energy grid in eV. The grid is
// read-only once constructed: callers receive a fresh slice each time.
func (t *Targets) EnergyGrid() []float64 {
	grid := make([]float64, t.LDOSGridSize)
	for i := range grid {
		grid[i] = t.LDOSGridOffsetEV + float64(i)*t.LDOSGridSpacingEV
	}
	return grid
}
