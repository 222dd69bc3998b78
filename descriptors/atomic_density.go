package descriptors

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/atoms"
	"github.com/matml/dftgo/core/parallel"
	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	pkglog "github.com/matml/dftgo/pkg/log"
)

// AtomicDensity is the Gaussian atomic-density descriptor, computed natively
// on the spatial grid. Each grid point receives one channel per distinct
// element: the sum of normalized Gaussians centered on the atoms of that
// element, evaluated at the minimum-image distance and truncated at the
// cutoff radius. The normalization makes each atom's contribution integrate
// to its element weight over all space, so the channels partition the total
// atomic density.
type AtomicDensity struct {
	p *params.Descriptors

	// featureSize is fixed after the first evaluation; the element set of
	// a configuration defines the channel count.
	featureSize int
}

// NewAtomicDensity creates an atomic-density descriptor from the configured
// Gaussian width and cutoff.
func NewAtomicDensity(p *params.Parameters) *AtomicDensity {
	return &AtomicDensity{p: &p.Descriptors}
}

// Kind returns "atomic-density".
func (a *AtomicDensity) Kind() string { return "atomic-density" }

// FeatureSize returns the channel count: the number of distinct elements of
// the last evaluated configuration, or zero before any evaluation.
func (a *AtomicDensity) FeatureSize() int { return a.featureSize }

// ConvertUnits accepts only "None"; descriptors are dimensionless.
func (a *AtomicDensity) ConvertUnits(data []float64, unit string) ([]float64, error) {
	return convertNone("AtomicDensity", data, unit)
}

// BackconvertUnits accepts only "None".
func (a *AtomicDensity) BackconvertUnits(data []float64, unit string) ([]float64, error) {
	return convertNone("AtomicDensity", data, unit)
}

// CalculateFromConfiguration evaluates the descriptor on a dims-shaped grid
// spanning the configuration's cell, returning a (grid points x elements)
// matrix with z fastest. Positions are wrapped into the cell first; the
// per-point loop is parallelized.
func (a *AtomicDensity) CalculateFromConfiguration(cfg *atoms.Configuration, dims [3]int) (*mat.Dense, error) {
	points := dims[0] * dims[1] * dims[2]
	if points <= 0 {
		return nil, errors.NewConfigurationError("grid_dimensions",
			"all grid dimensions must be positive", dims)
	}
	if cfg.NumAtoms() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "AtomicDensity.CalculateFromConfiguration")
	}
	if err := cfg.EnforcePBC(); err != nil {
		return nil, err
	}

	weights, order := elementWeights(cfg.Symbols, a.p.ElementWeightFuzz)
	channel := make(map[string]int, len(order))
	for i, s := range order {
		channel[s] = i
	}
	a.featureSize = len(order)

	atomScaled, err := cfg.ScaledPositions()
	if err != nil {
		return nil, err
	}

	sigma := a.p.GaussianSigmaAA
	if sigma <= 0 {
		return nil, errors.NewConfigurationError("Descriptors.GaussianSigmaAA",
			"must be positive", sigma)
	}
	cutoff := a.p.CutoffRadiusAA
	cutoffSq := cutoff * cutoff
	norm := math.Pow(2*math.Pi*sigma*sigma, -1.5)

	slog.Debug("evaluating atomic-density descriptor",
		slog.String(pkglog.ComponentKey, "descriptors"),
		slog.String(pkglog.OperationKey, "atomic_density"),
		slog.Any(pkglog.GridDimensionsKey, dims),
		slog.Int("atoms", cfg.NumAtoms()),
		slog.Int("channels", len(order)))

	out := mat.NewDense(points, len(order), nil)
	nx, ny, nz := dims[0], dims[1], dims[2]
	parallel.ParallelizeWithThreshold(points, 1024, func(start, end int) {
		for idx := start; idx < end; idx++ {
			iz := idx % nz
			iy := (idx / nz) % ny
			ix := idx / (nz * ny)
			gridScaled := [3]float64{
				float64(ix) / float64(nx),
				float64(iy) / float64(ny),
				float64(iz) / float64(nz),
			}
			for ai, as := range atomScaled {
				d := cfg.MinimumImage([3]float64{
					gridScaled[0] - as[0],
					gridScaled[1] - as[1],
					gridScaled[2] - as[2],
				})
				cart := cfg.CartesianFromScaled(d)
				distSq := cart[0]*cart[0] + cart[1]*cart[1] + cart[2]*cart[2]
				if distSq > cutoffSq {
					continue
				}
				sym := cfg.Symbols[ai]
				v := weights[sym] * norm * math.Exp(-distSq/(2*sigma*sigma))
				col := channel[sym]
				out.Set(idx, col, out.At(idx, col)+v)
			}
		}
	})
	return out, nil
}

var _ Calculator = (*AtomicDensity)(nil)
