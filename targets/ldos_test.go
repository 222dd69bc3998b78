package targets

import (
	"math"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/atoms"
	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/quad"
	"github.com/matml/dftgo/units"
)

// testLDOS builds a small LDOS whose every grid point carries the same
// Gaussian local spectrum, over a cubic aluminium-like cell.
func testLDOS(t *testing.T, p *params.Parameters, electrons float64) (*LDOS, *AdditionalCalculationData) {
	t.Helper()
	dims := [3]int{4, 4, 4}
	points := dims[0] * dims[1] * dims[2]

	cell := &atoms.Configuration{
		Symbols:   []string{"Al"},
		Positions: [][3]float64{{0, 0, 0}},
		Cell: [3][3]float64{
			{4.0, 0, 0},
			{0, 4.0, 0},
			{0, 0, 4.0},
		},
		PBC: [3]bool{true, true, true},
	}

	ldos := NewLDOS(p)
	eGrid := ldos.EnergyGrid()
	// Per-point spectrum scaled so the derived DOS holds 2*electrons
	// states in total.
	spectrum := gaussianDOS(eGrid, 0, 1.0, 2*electrons/cell.Volume())
	data := make([]float64, points*len(eGrid))
	for i := 0; i < points; i++ {
		copy(data[i*len(eGrid):(i+1)*len(eGrid)], spectrum)
	}
	require.NoError(t, ldos.ReadFromArray(data, dims))

	acd := &AdditionalCalculationData{
		NumberOfElectrons: electrons,
		Atoms:             cell,
		GridDimensions:    dims,
	}
	ldos.AttachCalculationData(acd)
	return ldos, acd
}

func TestLDOSToDOS(t *testing.T) {
	p := symmetricParams()
	ldos, _ := testLDOS(t, p, 5.0)

	dos, err := ldos.ToDOS()
	require.NoError(t, err)

	// Spatial sum times voxel volume: uniform LDOS means dos = spectrum *
	// cell volume, holding 10 states.
	total, err := dos.NumberOfElectrons(10.0) // fully occupied window
	require.NoError(t, err)
	assert.InDelta(t, 10.0, total, 1e-6)

	// The derivation is cached.
	again, err := ldos.ToDOS()
	require.NoError(t, err)
	assert.Same(t, dos, again)

	ldos.UncacheDOS()
	fresh, err := ldos.ToDOS()
	require.NoError(t, err)
	assert.NotSame(t, dos, fresh)
}

func TestLDOSSelfConsistentFermi(t *testing.T) {
	p := symmetricParams()
	ldos, _ := testLDOS(t, p, 5.0)

	eF, err := ldos.SelfConsistentFermiEnergy()
	require.NoError(t, err)
	// Symmetric spectrum, half occupation.
	assert.InDelta(t, 0.0, eF, 1e-4)
}

func TestLDOSToDensityAnalytic(t *testing.T) {
	p := symmetricParams()
	ldos, acd := testLDOS(t, p, 5.0)

	density, err := ldos.ToDensity()
	require.NoError(t, err)

	// Each grid point's density is the analytic occupied integral of its
	// local spectrum.
	eF, err := ldos.SelfConsistentFermiEnergy()
	require.NoError(t, err)
	eGrid := ldos.EnergyGrid()
	ne := len(eGrid)
	row := ldos.Data()[:ne]
	want := quad.AnalyticElectronCount(eGrid, row, eF, p.Targets.TemperatureK)
	assert.InDelta(t, want, density.Data()[0], 1e-12)

	// Integrating the density recovers the electron count.
	density.AttachCalculationData(acd)
	n, err := density.NumberOfElectrons()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, n, 1e-4)
}

func TestLDOSToDensityQuadratureAgreesWithAnalytic(t *testing.T) {
	pA := symmetricParams()
	ldosA, _ := testLDOS(t, pA, 5.0)
	densityA, err := ldosA.ToDensity()
	require.NoError(t, err)

	pQ := symmetricParams()
	pQ.Targets.IntegrationMethod = quad.Trapezoid
	ldosQ, _ := testLDOS(t, pQ, 5.0)
	densityQ, err := ldosQ.ToDensity()
	require.NoError(t, err)

	assert.InDelta(t, densityA.Data()[0], densityQ.Data()[0], 1e-3)
}

func TestLDOSTotalEnergyNeedsContributions(t *testing.T) {
	p := symmetricParams()
	ldos, acd := testLDOS(t, p, 5.0)

	_, err := ldos.TotalEnergy()
	require.Error(t, err)
	var missing *errors.MissingContextError
	assert.True(t, errors.As(err, &missing))

	acd.SetEnergyContributions(12.0, -30.0, -25.0, -40.0)
	eTotal, err := ldos.TotalEnergy()
	require.NoError(t, err)

	eF, err := ldos.SelfConsistentFermiEnergy()
	require.NoError(t, err)
	eBand, err := ldos.BandEnergy(eF)
	require.NoError(t, err)
	tS, err := ldos.EntropyContribution(eF)
	require.NoError(t, err)

	want := eBand - 12.0 + (-30.0) + (-25.0) + (-40.0) - tS
	assert.InDelta(t, want, eTotal, 1e-10)
}

func TestLDOSReadFromPredictions(t *testing.T) {
	p := symmetricParams()
	ldos := NewLDOS(p)
	ne := ldos.FeatureSize()

	pred := mat.NewDense(27, ne, nil)
	for i := 0; i < 27; i++ {
		for j := 0; j < ne; j++ {
			pred.Set(i, j, float64(i+j))
		}
	}

	// Cubic inference from the row count.
	require.NoError(t, ldos.ReadFromPredictions(pred, [3]int{}))
	assert.Equal(t, [3]int{3, 3, 3}, ldos.GridDimensions())
	assert.InDelta(t, 26.0+float64(ne-1), ldos.Data()[27*ne-1], 1e-12)

	// A non-cube row count without explicit dims fails.
	bad := mat.NewDense(26, ne, nil)
	err := ldos.ReadFromPredictions(bad, [3]int{})
	require.Error(t, err)
	var shapeErr *errors.ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))

	// Explicit dims must match the row count.
	err = ldos.ReadFromPredictions(pred, [3]int{2, 2, 2})
	require.Error(t, err)
	assert.True(t, errors.As(err, &shapeErr))

	// A diverged model output carrying Inf is rejected at ingestion.
	pred.Set(3, 1, math.Inf(1))
	err = ldos.ReadFromPredictions(pred, [3]int{})
	require.Error(t, err)
	var instErr *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &instErr))
}

func TestLDOSUnitConversionRoundTrip(t *testing.T) {
	p := symmetricParams()
	ldos := NewLDOS(p)
	data := []float64{1.0, 0.25, 3.5}

	conv, err := ldos.ConvertUnits(data, "1/(Ry*Bohr^3)")
	require.NoError(t, err)
	b3 := units.BohrToAngstrom * units.BohrToAngstrom * units.BohrToAngstrom
	assert.InDelta(t, 1.0/(units.RydbergToEV*b3), conv[0], 1e-15)

	back, err := ldos.BackconvertUnits(conv, "1/(Ry*Bohr^3)")
	require.NoError(t, err)
	for i := range data {
		assert.InDelta(t, data[i], back[i], 1e-10*math.Abs(data[i]))
	}

	_, err = ldos.ConvertUnits(data, "eV")
	require.Error(t, err)
}

func TestLDOSUncacheDensity(t *testing.T) {
	p := symmetricParams()
	ldos, _ := testLDOS(t, p, 5.0)

	d1, err := ldos.ToDensity()
	require.NoError(t, err)
	d2, err := ldos.ToDensity()
	require.NoError(t, err)
	assert.Same(t, d1, d2)

	ldos.UncacheDensity()
	d3, err := ldos.ToDensity()
	require.NoError(t, err)
	assert.NotSame(t, d1, d3)
}

func TestLDOSReadFromCubeSeries(t *testing.T) {
	p := params.New()
	p.Targets.LDOSGridSize = 5
	p.Targets.LDOSGridSpacingEV = 1.0
	p.Targets.LDOSGridOffsetEV = -2.0

	ldos := NewLDOS(p)
	ne := ldos.FeatureSize()
	meta := testCubeMeta()
	points := meta.Dims[0] * meta.Dims[1] * meta.Dims[2]

	dir := t.TempDir()
	raw := make([][]float64, ne)
	for j := 0; j < ne; j++ {
		slice := make([]float64, points)
		for i := range slice {
			slice[i] = float64(i+1) * float64(j+1) * 1e-3
		}
		raw[j] = slice
		path := filepath.Join(dir, "Al_ldos_"+strconv.Itoa(j+1)+".cube")
		require.NoError(t, WriteCube(path, slice, meta))
	}

	gotMeta, err := ldos.ReadFromCube(filepath.Join(dir, "Al_ldos_*.cube"))
	require.NoError(t, err)
	assert.Equal(t, meta.Dims, gotMeta.Dims)
	assert.Equal(t, meta.Dims, ldos.GridDimensions())

	// Slices land energy-fastest, converted from 1/(Ry*Bohr^3).
	b3 := units.BohrToAngstrom * units.BohrToAngstrom * units.BohrToAngstrom
	factor := 1 / (units.RydbergToEV * b3)
	data := ldos.Data()
	require.Len(t, data, points*ne)
	for _, idx := range []int{0, 1, points - 1} {
		for j := 0; j < ne; j++ {
			want := raw[j][idx] * factor
			assert.InDelta(t, want, data[idx*ne+j], 1e-6*math.Abs(want))
		}
	}

	// A pattern without a placeholder is a configuration error, not a
	// silent single-file read.
	_, err = ldos.ReadFromCube(filepath.Join(dir, "Al_ldos_1.cube"))
	require.Error(t, err)
	var confErr *errors.ConfigurationError
	assert.True(t, errors.As(err, &confErr))
}

func TestLDOSToDensityAtRecomputesPerFermiEnergy(t *testing.T) {
	p := symmetricParams()
	ldos, _ := testLDOS(t, p, 5.0)

	low, err := ldos.ToDensityAt(-8.0)
	require.NoError(t, err)
	high, err := ldos.ToDensityAt(8.0)
	require.NoError(t, err)

	// A barely occupied and a fully occupied window must not share a
	// cached result.
	assert.NotSame(t, low, high)
	assert.Less(t, low.Data()[0], high.Data()[0])

	// The same Fermi energy hits the cache.
	again, err := ldos.ToDensityAt(8.0)
	require.NoError(t, err)
	assert.Same(t, high, again)
}
