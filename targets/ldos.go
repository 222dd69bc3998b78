package targets

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/core/parallel"
	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/quad"
	"github.com/matml/dftgo/units"
)

// LDOS is the local density of states target calculator: one DOS-sized
// vector per spatial grid point, in 1/(eV*A^3). Data is flattened with the
// energy index fastest, then z, y, x, so row i of the (points x energies)
// view is the local spectrum of grid point i.
//
// The LDOS is the quantity a surrogate model predicts; everything else
// (density, DOS, band energy, entropy, total energy) is derived from it.
// Derived quantities are cached until the underlying data changes.
type LDOS struct {
	p     *params.Targets
	eGrid []float64
	data  []float64
	dims  [3]int

	acd *AdditionalCalculationData

	// Derivation cache. ToDensity and ToDOS are expensive enough that
	// repeated total-energy evaluations must not recompute them.
	mu                 sync.Mutex
	cachedDOS          *DOS
	cachedDensity      *Density
	cachedDensityFermi float64
}

// NewLDOS creates an LDOS calculator on the configured energy grid.
func NewLDOS(p *params.Parameters) *LDOS {
	return &LDOS{
		p:     &p.Targets,
		eGrid: p.Targets.EnergyGrid(),
	}
}

// FeatureSize returns the energy grid size, the per-grid-point dimension.
func (l *LDOS) FeatureSize() int { return len(l.eGrid) }

// EnergyGrid returns a copy of the energy grid in eV.
func (l *LDOS) EnergyGrid() []float64 {
	grid := make([]float64, len(l.eGrid))
	copy(grid, l.eGrid)
	return grid
}

// Data returns the flattened LDOS values, energy fastest. Nil until loaded.
func (l *LDOS) Data() []float64 { return l.data }

// GridDimensions returns the spatial grid shape.
func (l *LDOS) GridDimensions() [3]int { return l.dims }

// AttachCalculationData attaches externally supplied calculation context
// and invalidates all cached derivations.
func (l *LDOS) AttachCalculationData(acd *AdditionalCalculationData) {
	l.acd = acd
	l.Uncache()
}

// CalculationData returns the attached context, or nil.
func (l *LDOS) CalculationData() *AdditionalCalculationData { return l.acd }

// ReadFromArray loads LDOS values flattened energy fastest over the given
// spatial grid. The length must be nx*ny*nz*len(energy grid).
func (l *LDOS) ReadFromArray(data []float64, dims [3]int) error {
	ne := len(l.eGrid)
	total := dims[0] * dims[1] * dims[2] * ne
	if total <= 0 || len(data) != total {
		return errors.NewShapeMismatchError("LDOS.ReadFromArray",
			[]int{dims[0] * dims[1] * dims[2], ne}, []int{len(data)}, "spatial grid x energy grid")
	}
	if err := errors.CheckNumericalStability("LDOS.ReadFromArray", data, 0); err != nil {
		return err
	}
	l.data = make([]float64, len(data))
	copy(l.data, data)
	l.dims = dims
	l.Uncache()
	return nil
}

// ReadFromCube loads the LDOS from a series of cube files, one per energy
// grid sample. pattern must contain a "*" that is replaced by the 1-based
// energy index, matching the numbering of the external code's
// post-processing output. All slices must share the same spatial grid. Cube
// files store the LDOS in 1/(Ry*Bohr^3); values are converted to the
// internal 1/(eV*A^3) convention on load.
func (l *LDOS) ReadFromCube(pattern string) (*CubeMeta, error) {
	if !strings.Contains(pattern, "*") {
		return nil, errors.NewConfigurationError("ldos.cube_pattern",
			"pattern must contain a * placeholder for the energy index", pattern)
	}

	ne := len(l.eGrid)
	var (
		data []float64
		meta *CubeMeta
	)
	for j := 0; j < ne; j++ {
		path := strings.Replace(pattern, "*", strconv.Itoa(j+1), 1)
		slice, m, err := ReadCube(path)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			meta = m
			data = make([]float64, m.Dims[0]*m.Dims[1]*m.Dims[2]*ne)
		} else if m.Dims != meta.Dims {
			return nil, errors.NewShapeMismatchError("LDOS.ReadFromCube",
				meta.Dims[:], m.Dims[:], path)
		}
		converted, err := l.ConvertUnits(slice, "1/(Ry*Bohr^3)")
		if err != nil {
			return nil, err
		}
		for i, v := range converted {
			data[i*ne+j] = v
		}
	}

	l.data = data
	l.dims = meta.Dims
	l.Uncache()
	return meta, nil
}

// ReadFromPredictions loads model output shaped (grid points x energy grid).
// dims gives the spatial grid; a zero dims infers a cubic grid from the row
// count, failing if the count is not a perfect cube.
func (l *LDOS) ReadFromPredictions(predictions mat.Matrix, dims [3]int) error {
	rows, cols := predictions.Dims()
	if cols != len(l.eGrid) {
		return errors.NewShapeMismatchError("LDOS.ReadFromPredictions",
			[]int{rows, len(l.eGrid)}, []int{rows, cols}, "energy grid")
	}
	if dims == [3]int{} {
		side := int(math.Round(math.Cbrt(float64(rows))))
		if side*side*side != rows {
			return errors.NewShapeMismatchError("LDOS.ReadFromPredictions",
				[]int{side * side * side}, []int{rows}, "cubic grid inference")
		}
		dims = [3]int{side, side, side}
	} else if dims[0]*dims[1]*dims[2] != rows {
		return errors.NewShapeMismatchError("LDOS.ReadFromPredictions",
			[]int{dims[0] * dims[1] * dims[2]}, []int{rows}, "spatial grid")
	}
	// Model output can carry NaN/Inf from a diverged training run; reject
	// it here rather than poisoning every derived observable.
	if err := errors.CheckMatrix("LDOS.ReadFromPredictions", predictions, rows, cols, 0); err != nil {
		return err
	}

	data := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data[i*cols+j] = predictions.At(i, j)
		}
	}
	l.data = data
	l.dims = dims
	l.Uncache()
	return nil
}

// ConvertUnits converts LDOS data from the named unit to the internal
// 1/(eV*A^3) convention.
func (l *LDOS) ConvertUnits(data []float64, unit string) ([]float64, error) {
	switch unit {
	case "1/(eV*A^3)":
		return scaleCopy(data, 1), nil
	case "1/(Ry*Bohr^3)":
		b3 := units.BohrToAngstrom * units.BohrToAngstrom * units.BohrToAngstrom
		return scaleCopy(data, 1/(units.RydbergToEV*b3)), nil
	default:
		return nil, errors.NewUnsupportedUnitError("LDOS", unit)
	}
}

// BackconvertUnits converts LDOS data from the internal convention to the
// named unit.
func (l *LDOS) BackconvertUnits(data []float64, unit string) ([]float64, error) {
	switch unit {
	case "1/(eV*A^3)":
		return scaleCopy(data, 1), nil
	case "1/(Ry*Bohr^3)":
		b3 := units.BohrToAngstrom * units.BohrToAngstrom * units.BohrToAngstrom
		return scaleCopy(data, units.RydbergToEV*b3), nil
	default:
		return nil, errors.NewUnsupportedUnitError("LDOS", unit)
	}
}

// Uncache drops every cached derivation (DOS, density and the Fermi energy
// cached on the derived DOS).
func (l *LDOS) Uncache() {
	l.mu.Lock()
	l.cachedDOS = nil
	l.cachedDensity = nil
	l.mu.Unlock()
}

// UncacheDOS drops the cached DOS derivation, and with it the cached
// self-consistent Fermi energy.
func (l *LDOS) UncacheDOS() {
	l.mu.Lock()
	l.cachedDOS = nil
	l.mu.Unlock()
}

// UncacheDensity drops the cached density derivation.
func (l *LDOS) UncacheDensity() {
	l.mu.Lock()
	l.cachedDensity = nil
	l.mu.Unlock()
}

// ToDOS derives the density of states by summing the LDOS over the spatial
// grid and scaling by the voxel volume. The result is cached; it shares the
// attached calculation context.
func (l *LDOS) ToDOS() (*DOS, error) {
	if l.data == nil {
		return nil, errors.NewNotFittedError("LDOS", "ToDOS")
	}
	if l.acd == nil || l.acd.Atoms == nil {
		return nil, errors.NewMissingContextError("LDOS.ToDOS", "cell geometry")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cachedDOS != nil {
		return l.cachedDOS, nil
	}

	ne := len(l.eGrid)
	points := len(l.data) / ne
	voxel := l.acd.Atoms.Volume() / float64(points)

	sums := make([]float64, ne)
	var sumMu sync.Mutex
	parallel.ParallelizeWithThreshold(points, 4096, func(start, end int) {
		local := make([]float64, ne)
		for i := start; i < end; i++ {
			row := l.data[i*ne : (i+1)*ne]
			for j, v := range row {
				local[j] += v
			}
		}
		sumMu.Lock()
		for j, v := range local {
			sums[j] += v
		}
		sumMu.Unlock()
	})
	for j := range sums {
		sums[j] *= voxel
	}

	dos := &DOS{p: l.p, eGrid: l.EnergyGrid()}
	dos.acd = l.acd
	dos.data = sums
	l.cachedDOS = dos
	return dos, nil
}

// SelfConsistentFermiEnergy solves for the Fermi energy on the derived DOS,
// caching the result with the DOS derivation.
func (l *LDOS) SelfConsistentFermiEnergy() (float64, error) {
	dos, err := l.ToDOS()
	if err != nil {
		return 0, err
	}
	return dos.SelfConsistentFermiEnergy()
}

// ToDensity derives the electronic density by integrating each grid point's
// local spectrum against the Fermi function at the self-consistent Fermi
// energy. With the analytic method the integration is a weighted sum using
// precomputed density weights; the quadrature methods evaluate the occupied
// integrand per point. The result is cached.
func (l *LDOS) ToDensity() (*Density, error) {
	eF, err := l.SelfConsistentFermiEnergy()
	if err != nil {
		return nil, err
	}
	return l.densityAt(eF)
}

// ToDensityAt derives the density at an explicit Fermi energy, bypassing the
// self-consistent solve. The result is cached.
func (l *LDOS) ToDensityAt(fermiEnergy float64) (*Density, error) {
	if l.data == nil {
		return nil, errors.NewNotFittedError("LDOS", "ToDensityAt")
	}
	return l.densityAt(fermiEnergy)
}

func (l *LDOS) densityAt(fermiEnergy float64) (*Density, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// The cache is only valid for the Fermi energy it was computed at; an
	// explicit ToDensityAt with a different value recomputes.
	if l.cachedDensity != nil && l.cachedDensityFermi == fermiEnergy {
		return l.cachedDensity, nil
	}

	ne := len(l.eGrid)
	points := len(l.data) / ne
	values := make([]float64, points)

	if l.p.IntegrationMethod == quad.Analytic {
		weights := quad.DensityWeights(l.eGrid, fermiEnergy, l.p.TemperatureK)
		parallel.ParallelizeWithThreshold(points, 4096, func(start, end int) {
			for i := start; i < end; i++ {
				row := l.data[i*ne : (i+1)*ne]
				sum := 0.0
				for j, v := range row {
					sum += v * weights[j]
				}
				values[i] = sum
			}
		})
	} else {
		occ := make([]float64, ne)
		for j, e := range l.eGrid {
			occ[j] = quad.FermiFunction(e, fermiEnergy, l.p.TemperatureK)
		}
		var firstErr error
		var errMu sync.Mutex
		parallel.ParallelizeWithThreshold(points, 4096, func(start, end int) {
			integrand := make([]float64, ne)
			for i := start; i < end; i++ {
				row := l.data[i*ne : (i+1)*ne]
				for j, v := range row {
					integrand[j] = v * occ[j]
				}
				var v float64
				var err error
				if l.p.SimpsonFallback {
					v, err = quad.IntegrateWithFallback(l.p.IntegrationMethod, integrand, l.p.LDOSGridSpacingEV)
				} else {
					v, err = quad.Integrate(l.p.IntegrationMethod, integrand, l.p.LDOSGridSpacingEV)
				}
				if err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
					return
				}
				values[i] = v
			}
		})
		if firstErr != nil {
			return nil, firstErr
		}
	}

	density := &Density{p: l.p, data: values, dims: l.dims, acd: l.acd}
	l.cachedDensity = density
	l.cachedDensityFermi = fermiEnergy
	return density, nil
}

// NumberOfElectrons integrates the occupied derived DOS. A NaN fermiEnergy
// selects the self-consistent value.
func (l *LDOS) NumberOfElectrons(fermiEnergy float64) (float64, error) {
	dos, err := l.ToDOS()
	if err != nil {
		return 0, err
	}
	return dos.NumberOfElectrons(fermiEnergy)
}

// BandEnergy integrates E times the occupied derived DOS.
func (l *LDOS) BandEnergy(fermiEnergy float64) (float64, error) {
	dos, err := l.ToDOS()
	if err != nil {
		return 0, err
	}
	return dos.BandEnergy(fermiEnergy)
}

// EntropyContribution computes T*S on the derived DOS.
func (l *LDOS) EntropyContribution(fermiEnergy float64) (float64, error) {
	dos, err := l.ToDOS()
	if err != nil {
		return 0, err
	}
	return dos.EntropyContribution(fermiEnergy)
}

// TotalEnergy composes the total free energy from the LDOS and the attached
// density-based energy contributions:
//
//	E = E_band - integral(rho * v_Hxc) + E_H + E_xc + E_Ewald - T*S
//
// The band energy and entropy come from the derived DOS at the
// self-consistent Fermi energy; the remaining terms must have been attached
// via SetEnergyContributions, otherwise a MissingContextError is returned.
func (l *LDOS) TotalEnergy() (float64, error) {
	if l.data == nil {
		return 0, errors.NewNotFittedError("LDOS", "TotalEnergy")
	}
	if l.acd == nil {
		return 0, errors.NewMissingContextError("LDOS.TotalEnergy", "calculation context")
	}
	if !l.acd.EnergyContributions {
		return 0, errors.NewMissingContextError("LDOS.TotalEnergy",
			"density-based energy contributions (rho*v_Hxc, Hartree, XC, Ewald)")
	}

	eF, err := l.SelfConsistentFermiEnergy()
	if err != nil {
		return 0, err
	}
	eBand, err := l.BandEnergy(eF)
	if err != nil {
		return 0, err
	}
	tS, err := l.EntropyContribution(eF)
	if err != nil {
		return 0, err
	}

	return eBand - l.acd.RhoTimesVHxcEV + l.acd.HartreeEnergyEV +
		l.acd.XCEnergyEV + l.acd.EwaldEnergyEV - tS, nil
}

var (
	_ Target         = (*LDOS)(nil)
	_ DensityDeriver = (*LDOS)(nil)
	_ DOSDeriver     = (*LDOS)(nil)
)
