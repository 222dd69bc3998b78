// Package descriptors implements the grid descriptor calculators that turn an
// atomic configuration into the per-grid-point input vectors of the surrogate
// model. Two descriptors are provided: the bispectrum data contract for raw
// grids produced by an external engine, and a natively computed Gaussian
// atomic-density descriptor.
//
// Descriptors are dimensionless; the only registered unit string is "None".
package descriptors

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/atoms"
	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
)

// Calculator is the capability interface shared by the descriptor types.
type Calculator interface {
	// Kind returns the configured descriptor name.
	Kind() string

	// FeatureSize returns the per-grid-point feature dimension.
	FeatureSize() int

	// ConvertUnits accepts only the "None" unit and returns the data
	// unchanged; descriptors are dimensionless.
	ConvertUnits(data []float64, unit string) ([]float64, error)

	// BackconvertUnits is the inverse of ConvertUnits.
	BackconvertUnits(data []float64, unit string) ([]float64, error)

	// CalculateFromConfiguration evaluates the descriptor on the spatial
	// grid of the given configuration, returning a (grid points x features)
	// matrix with z fastest. Descriptors backed by an external engine
	// return ErrNotImplemented; their grids arrive via raw-grid loading.
	CalculateFromConfiguration(cfg *atoms.Configuration, dims [3]int) (*mat.Dense, error)
}

// New constructs the configured descriptor calculator.
func New(p *params.Parameters) (Calculator, error) {
	switch p.Descriptors.Kind {
	case "bispectrum":
		return NewBispectrum(p), nil
	case "atomic-density":
		return NewAtomicDensity(p), nil
	default:
		return nil, errors.NewConfigurationError("Descriptors.Kind",
			"must be \"bispectrum\" or \"atomic-density\"", p.Descriptors.Kind)
	}
}

// convertNone implements the dimensionless unit contract shared by all
// descriptors.
func convertNone(component string, data []float64, unit string) ([]float64, error) {
	if unit != "None" {
		return nil, errors.NewUnsupportedUnitError(component, unit)
	}
	out := make([]float64, len(data))
	copy(out, data)
	return out, nil
}

// elementWeights assigns each distinct element symbol a weight near one,
// perturbed by the configured fuzz so that chemically distinct species never
// collapse onto identical descriptor channels. Symbols are ordered
// alphabetically for a deterministic channel layout.
func elementWeights(symbols []string, fuzz float64) (map[string]float64, []string) {
	seen := map[string]bool{}
	var order []string
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			order = append(order, s)
		}
	}
	sort.Strings(order)
	weights := make(map[string]float64, len(order))
	for i, s := range order {
		weights[s] = 1.0 + fuzz*float64(i)
	}
	return weights, order
}
