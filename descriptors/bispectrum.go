package descriptors

import (
	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/atoms"
	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
)

// Bispectrum is the data contract for bispectrum descriptor grids. The
// components themselves are computed by an external engine; this type owns
// the feature-dimension arithmetic, the raw-grid layout (three leading
// coordinate columns followed by the components) and the shape checks on
// load.
type Bispectrum struct {
	p *params.Descriptors
}

// NewBispectrum creates a bispectrum descriptor from the configured
// expansion order and cutoff.
func NewBispectrum(p *params.Parameters) *Bispectrum {
	return &Bispectrum{p: &p.Descriptors}
}

// Kind returns "bispectrum".
func (b *Bispectrum) Kind() string { return "bispectrum" }

// FeatureSize returns the number of bispectrum components for the configured
// expansion order. The count enumerates the coupled index triples
// (j1, j2, j) with j2 <= j1 <= j, |j1-j2| <= j <= min(2*jmax, j1+j2).
func (b *Bispectrum) FeatureSize() int {
	twoJMax := b.p.TwoJMax
	count := 0
	for j1 := 0; j1 <= twoJMax; j1++ {
		for j2 := 0; j2 <= j1; j2++ {
			for j := j1 - j2; j <= minInt(twoJMax, j1+j2); j += 2 {
				if j >= j1 {
					count++
				}
			}
		}
	}
	return count
}

// RawFeatureSize returns the column count of a raw engine grid: the three
// grid-point coordinates followed by the components.
func (b *Bispectrum) RawFeatureSize() int { return 3 + b.FeatureSize() }

// ConvertUnits accepts only "None"; descriptors are dimensionless.
func (b *Bispectrum) ConvertUnits(data []float64, unit string) ([]float64, error) {
	return convertNone("Bispectrum", data, unit)
}

// BackconvertUnits accepts only "None".
func (b *Bispectrum) BackconvertUnits(data []float64, unit string) ([]float64, error) {
	return convertNone("Bispectrum", data, unit)
}

// CalculateFromConfiguration is not available for the bispectrum: the grids
// come from the external engine and are loaded via ReadRawGrid.
func (b *Bispectrum) CalculateFromConfiguration(cfg *atoms.Configuration, dims [3]int) (*mat.Dense, error) {
	return nil, errors.Wrap(errors.ErrNotImplemented,
		"Bispectrum.CalculateFromConfiguration: bispectrum grids are produced by the external engine")
}

// ReadRawGrid validates and reshapes a flattened raw engine grid into a
// (grid points x features) matrix, stripping the three coordinate columns.
// data must be flattened row-wise with z fastest and have
// nx*ny*nz*RawFeatureSize values.
func (b *Bispectrum) ReadRawGrid(data []float64, dims [3]int) (*mat.Dense, error) {
	points := dims[0] * dims[1] * dims[2]
	rawCols := b.RawFeatureSize()
	if points <= 0 || len(data) != points*rawCols {
		return nil, errors.NewShapeMismatchError("Bispectrum.ReadRawGrid",
			[]int{points, rawCols}, []int{len(data)}, "raw descriptor grid")
	}

	cols := b.FeatureSize()
	out := mat.NewDense(points, cols, nil)
	for i := 0; i < points; i++ {
		row := data[i*rawCols : (i+1)*rawCols]
		out.SetRow(i, row[3:])
	}
	return out, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

var _ Calculator = (*Bispectrum)(nil)
