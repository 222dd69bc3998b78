package targets

import (
	"fmt"
	"math"

	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/quad"
	"github.com/matml/dftgo/units"
)

// Density is the electronic density target calculator: one scalar per
// spatial grid point, in electrons/A^3, flattened with z fastest.
type Density struct {
	p    *params.Targets
	data []float64
	dims [3]int

	acd *AdditionalCalculationData
}

// NewDensity creates a density calculator.
func NewDensity(p *params.Parameters) *Density {
	return &Density{p: &p.Targets}
}

// FeatureSize returns 1: the density is a single scalar per grid point.
func (d *Density) FeatureSize() int { return 1 }

// Data returns the flattened density values. Nil until loaded.
func (d *Density) Data() []float64 { return d.data }

// GridDimensions returns the spatial grid shape.
func (d *Density) GridDimensions() [3]int { return d.dims }

// AttachCalculationData attaches externally supplied calculation context.
func (d *Density) AttachCalculationData(acd *AdditionalCalculationData) { d.acd = acd }

// CalculationData returns the attached context, or nil.
func (d *Density) CalculationData() *AdditionalCalculationData { return d.acd }

// ReadFromArray loads density values flattened with z fastest.
func (d *Density) ReadFromArray(data []float64, dims [3]int) error {
	total := dims[0] * dims[1] * dims[2]
	if total <= 0 || len(data) != total {
		return errors.NewShapeMismatchError("Density.ReadFromArray",
			[]int{total}, []int{len(data)}, "spatial grid")
	}
	if err := errors.CheckNumericalStability("Density.ReadFromArray", data, 0); err != nil {
		return err
	}
	d.data = make([]float64, len(data))
	copy(d.data, data)
	d.dims = dims
	return nil
}

// ReadFromCube loads the density from a cube file. Cube files store the
// density in 1/Bohr^3; values are converted to the internal 1/A^3
// convention on load.
func (d *Density) ReadFromCube(path string) (*CubeMeta, error) {
	data, meta, err := ReadCube(path)
	if err != nil {
		return nil, err
	}
	converted, err := d.ConvertUnits(data, "1/Bohr^3")
	if err != nil {
		return nil, err
	}
	d.data = converted
	d.dims = meta.Dims
	return meta, nil
}

// WriteAsCube writes the density to a cube file, converting back to the
// format's 1/Bohr^3 convention. The header geometry comes from the attached
// calculation data; meta overrides it when non-nil.
func (d *Density) WriteAsCube(path string, meta *CubeMeta) error {
	if d.data == nil {
		return errors.NewNotFittedError("Density", "WriteAsCube")
	}
	if meta == nil {
		m, err := d.cubeMetaFromContext()
		if err != nil {
			return err
		}
		meta = m
	}
	converted, err := d.BackconvertUnits(d.data, "1/Bohr^3")
	if err != nil {
		return err
	}
	return WriteCube(path, converted, meta)
}

// cubeMetaFromContext builds a cube header from the attached cell and grid.
func (d *Density) cubeMetaFromContext() (*CubeMeta, error) {
	if d.acd == nil || d.acd.Atoms == nil {
		return nil, errors.NewMissingContextError("Density.WriteAsCube", "cell geometry")
	}
	meta := &CubeMeta{
		Comment: [2]string{"Electronic density", "z fastest"},
		Dims:    d.dims,
	}
	cell := d.acd.Atoms.Cell
	for axis := 0; axis < 3; axis++ {
		for j := 0; j < 3; j++ {
			meta.Voxel[axis][j] = cell[axis][j] / float64(d.dims[axis]) / units.BohrToAngstrom
		}
	}
	for i, sym := range d.acd.Atoms.Symbols {
		pos := d.acd.Atoms.Positions[i]
		meta.Atoms = append(meta.Atoms, CubeAtom{
			Number: atomicNumber(sym),
			Position: [3]float64{
				pos[0] / units.BohrToAngstrom,
				pos[1] / units.BohrToAngstrom,
				pos[2] / units.BohrToAngstrom,
			},
		})
	}
	return meta, nil
}

// ConvertUnits converts density data from the named unit to the internal
// 1/A^3 convention.
func (d *Density) ConvertUnits(data []float64, unit string) ([]float64, error) {
	switch unit {
	case "1/A^3":
		return scaleCopy(data, 1), nil
	case "1/Bohr^3":
		b3 := units.BohrToAngstrom * units.BohrToAngstrom * units.BohrToAngstrom
		return scaleCopy(data, 1/b3), nil
	default:
		return nil, errors.NewUnsupportedUnitError("Density", unit)
	}
}

// BackconvertUnits converts density data from the internal convention to
// the named unit.
func (d *Density) BackconvertUnits(data []float64, unit string) ([]float64, error) {
	switch unit {
	case "1/A^3":
		return scaleCopy(data, 1), nil
	case "1/Bohr^3":
		b3 := units.BohrToAngstrom * units.BohrToAngstrom * units.BohrToAngstrom
		return scaleCopy(data, b3), nil
	default:
		return nil, errors.NewUnsupportedUnitError("Density", unit)
	}
}

// NumberOfElectrons integrates the density over the cell. The analytic and
// rectangle methods reduce to summation times the voxel volume, which is
// exact for a periodic grid; trapezoid and Simpson integrate along each
// axis in turn, assuming an orthogonal cell.
func (d *Density) NumberOfElectrons() (float64, error) {
	if d.data == nil {
		return 0, errors.NewNotFittedError("Density", "NumberOfElectrons")
	}
	if d.acd == nil || d.acd.Atoms == nil {
		return 0, errors.NewMissingContextError("Density.NumberOfElectrons", "cell geometry")
	}

	switch d.p.IntegrationMethod {
	case quad.Analytic, quad.Rectangle:
		var sum float64
		for _, v := range d.data {
			sum += v
		}
		voxel := d.acd.Atoms.Volume() / float64(len(d.data))
		return sum * voxel, nil
	case quad.Trapezoid, quad.Simpson:
		return d.integrateAxes()
	default:
		return 0, errors.NewConfigurationError("targets.integration_method",
			"unknown integration method", string(d.p.IntegrationMethod))
	}
}

// integrateAxes performs successive 1-D quadrature along z, then y, then x.
func (d *Density) integrateAxes() (float64, error) {
	nx, ny, nz := d.dims[0], d.dims[1], d.dims[2]
	cell := d.acd.Atoms.Cell
	hx := axisLength(cell[0]) / float64(nx)
	hy := axisLength(cell[1]) / float64(ny)
	hz := axisLength(cell[2]) / float64(nz)

	integrate := func(y []float64, h float64) (float64, error) {
		if d.p.SimpsonFallback {
			return quad.IntegrateWithFallback(d.p.IntegrationMethod, y, h)
		}
		return quad.Integrate(d.p.IntegrationMethod, y, h)
	}

	planes := make([]float64, nx)
	line := make([]float64, ny)
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			zStart := (ix*ny + iy) * nz
			v, err := integrate(d.data[zStart:zStart+nz], hz)
			if err != nil {
				return 0, err
			}
			line[iy] = v
		}
		v, err := integrate(line, hy)
		if err != nil {
			return 0, err
		}
		planes[ix] = v
	}
	return integrate(planes, hx)
}

func axisLength(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// atomicNumber maps an element symbol to its atomic number. Unknown symbols
// map to zero, which cube readers treat as a dummy atom.
func atomicNumber(symbol string) int {
	if z, ok := atomicNumbers[symbol]; ok {
		return z
	}
	return 0
}

var atomicNumbers = map[string]int{
	"H": 1, "He": 2, "Li": 3, "Be": 4, "B": 5, "C": 6, "N": 7, "O": 8,
	"F": 9, "Ne": 10, "Na": 11, "Mg": 12, "Al": 13, "Si": 14, "P": 15,
	"S": 16, "Cl": 17, "Ar": 18, "K": 19, "Ca": 20, "Fe": 26, "Ni": 28,
	"Cu": 29, "Zn": 30, "Ag": 47, "Au": 79,
}

// String describes the loaded grid.
func (d *Density) String() string {
	return fmt.Sprintf("Density(grid=%dx%dx%d)", d.dims[0], d.dims[1], d.dims[2])
}

var _ Target = (*Density)(nil)
