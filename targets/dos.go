package targets

import (
	"bufio"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	pkglog "github.com/matml/dftgo/pkg/log"
	"github.com/matml/dftgo/quad"
	"github.com/matml/dftgo/units"
)

// DOS is the density-of-states target calculator: a 1-D array over the
// energy grid, in states per eV.
type DOS struct {
	p     *params.Targets
	eGrid []float64
	data  []float64

	acd *AdditionalCalculationData

	// Fermi cache. The solve is CPU-bound and read-heavy; a single-writer
	// guard keeps concurrent readers from racing a recomputation.
	fermiMu     sync.Mutex
	fermiEnergy float64
	fermiSolved bool
}

// NewDOS creates a DOS calculator on the configured energy grid.
func NewDOS(p *params.Parameters) *DOS {
	return &DOS{
		p:     &p.Targets,
		eGrid: p.Targets.EnergyGrid(),
	}
}

// FeatureSize returns the energy grid size.
func (d *DOS) FeatureSize() int { return len(d.eGrid) }

// EnergyGrid returns a copy of the energy grid in eV.
func (d *DOS) EnergyGrid() []float64 {
	grid := make([]float64, len(d.eGrid))
	copy(grid, d.eGrid)
	return grid
}

// Data returns the DOS samples. Nil until loaded.
func (d *DOS) Data() []float64 { return d.data }

// AttachCalculationData attaches externally supplied calculation context.
// Replacing the context invalidates the cached Fermi energy.
func (d *DOS) AttachCalculationData(acd *AdditionalCalculationData) {
	d.acd = acd
	d.UncacheFermiEnergy()
}

// CalculationData returns the attached context, or nil.
func (d *DOS) CalculationData() *AdditionalCalculationData { return d.acd }

// ReadFromArray loads DOS samples. The sample count must match the
// configured energy grid; loading new data invalidates the cached Fermi
// energy.
func (d *DOS) ReadFromArray(dos []float64) error {
	if len(dos) != len(d.eGrid) {
		return errors.NewShapeMismatchError("DOS.ReadFromArray",
			[]int{len(d.eGrid)}, []int{len(dos)}, "energy grid")
	}
	if err := errors.CheckNumericalStability("DOS.ReadFromArray", dos, 0); err != nil {
		return err
	}
	d.data = make([]float64, len(dos))
	copy(d.data, dos)
	d.UncacheFermiEnergy()
	return nil
}

// ReadFromTextFile loads a DOS from a two-column text file (energy, dos).
// The first line is treated as a comment and skipped. The file's energy
// column replaces the configured grid, since external codes emit their own
// sampling.
func (d *DOS) ReadFromTextFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "DOS.ReadFromTextFile")
	}
	defer file.Close()

	var eGrid, dos []float64
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue // header comment
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return errors.NewIOFormatError(path, "dos text", lineNo, "expected two columns")
		}
		e, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return errors.NewIOFormatError(path, "dos text", lineNo, "unparseable energy")
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return errors.NewIOFormatError(path, "dos text", lineNo, "unparseable dos value")
		}
		eGrid = append(eGrid, e)
		dos = append(dos, v)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "DOS.ReadFromTextFile")
	}
	if len(dos) == 0 {
		return errors.NewIOFormatError(path, "dos text", lineNo, "no samples found")
	}
	// ParseFloat accepts "NaN" and "Inf"; a poisoned sample is rejected at
	// ingestion, not during the Fermi solve.
	if err := errors.CheckNumericalStability("DOS.ReadFromTextFile", dos, 0); err != nil {
		return err
	}

	d.eGrid = eGrid
	d.data = dos
	d.UncacheFermiEnergy()
	return nil
}

// SynthesizeFromEigenvalues builds the DOS from Kohn-Sham eigenvalues and
// k-point weights by broadening each eigenvalue onto the energy grid.
// eigenvalues is indexed [band][kpoint]; weights has one entry per k-point.
// With sigma > 0 a Gaussian of that width (in eV) is used; sigma == 0
// selects the moment-preserving discretized delta.
func (d *DOS) SynthesizeFromEigenvalues(eigenvalues [][]float64, weights []float64, sigma float64) error {
	if len(eigenvalues) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DOS.SynthesizeFromEigenvalues")
	}
	for _, band := range eigenvalues {
		if len(band) != len(weights) {
			return errors.NewShapeMismatchError("DOS.SynthesizeFromEigenvalues",
				[]int{len(weights)}, []int{len(band)}, "k-point weights")
		}
	}

	dos := make([]float64, len(d.eGrid))
	for _, band := range eigenvalues {
		var broadened [][]float64
		if sigma > 0 {
			broadened = quad.Gaussian(d.eGrid, band, sigma)
		} else {
			broadened = quad.DeltaM1(d.eGrid, band)
		}
		for k, row := range broadened {
			w := weights[k]
			for j, v := range row {
				dos[j] += w * v
			}
		}
	}

	d.data = dos
	d.UncacheFermiEnergy()
	return nil
}

// ConvertUnits converts DOS data from the named unit to the internal 1/eV
// convention.
func (d *DOS) ConvertUnits(data []float64, unit string) ([]float64, error) {
	switch unit {
	case "1/eV":
		return scaleCopy(data, 1), nil
	case "1/Ry":
		return scaleCopy(data, 1/units.RydbergToEV), nil
	default:
		return nil, errors.NewUnsupportedUnitError("DOS", unit)
	}
}

// BackconvertUnits converts DOS data from the internal convention to the
// named unit.
func (d *DOS) BackconvertUnits(data []float64, unit string) ([]float64, error) {
	switch unit {
	case "1/eV":
		return scaleCopy(data, 1), nil
	case "1/Ry":
		return scaleCopy(data, units.RydbergToEV), nil
	default:
		return nil, errors.NewUnsupportedUnitError("DOS", unit)
	}
}

// SelfConsistentFermiEnergy solves for the Fermi energy that reproduces the
// attached electron count, caching the result. The solve runs under a
// single-writer guard per instance.
func (d *DOS) SelfConsistentFermiEnergy() (float64, error) {
	if d.data == nil {
		return 0, errors.NewNotFittedError("DOS", "SelfConsistentFermiEnergy")
	}
	if d.acd == nil {
		return 0, errors.NewMissingContextError("DOS.SelfConsistentFermiEnergy", "number of electrons")
	}

	d.fermiMu.Lock()
	defer d.fermiMu.Unlock()
	if d.fermiSolved {
		return d.fermiEnergy, nil
	}

	eF, iters, err := solveFermiEnergy(d.p, d.eGrid, d.data, d.acd.NumberOfElectrons)
	if err != nil {
		return 0, err
	}
	slog.Debug("self-consistent Fermi energy solved",
		slog.String(pkglog.ComponentKey, "targets"),
		slog.String(pkglog.OperationKey, "fermi_solve"),
		slog.Float64(pkglog.FermiEnergyKey, eF),
		slog.Int(pkglog.IterationsKey, iters))
	d.fermiEnergy = eF
	d.fermiSolved = true
	return eF, nil
}

// UncacheFermiEnergy drops the cached self-consistent Fermi energy.
func (d *DOS) UncacheFermiEnergy() {
	d.fermiMu.Lock()
	d.fermiSolved = false
	d.fermiMu.Unlock()
}

// NumberOfElectrons integrates the occupied DOS. A NaN fermiEnergy selects
// the cached self-consistent value (solving if needed).
func (d *DOS) NumberOfElectrons(fermiEnergy float64) (float64, error) {
	eF, err := d.resolveFermi(fermiEnergy, "NumberOfElectrons")
	if err != nil {
		return 0, err
	}
	return electronCount(d.p, d.eGrid, d.data, eF)
}

// BandEnergy integrates E times the occupied DOS.
func (d *DOS) BandEnergy(fermiEnergy float64) (float64, error) {
	eF, err := d.resolveFermi(fermiEnergy, "BandEnergy")
	if err != nil {
		return 0, err
	}
	return bandEnergy(d.p, d.eGrid, d.data, eF)
}

// EntropyContribution computes T*S, the electronic entropy contribution to
// the total energy.
func (d *DOS) EntropyContribution(fermiEnergy float64) (float64, error) {
	eF, err := d.resolveFermi(fermiEnergy, "EntropyContribution")
	if err != nil {
		return 0, err
	}
	return entropyContribution(d.p, d.eGrid, d.data, eF)
}

// resolveFermi returns the explicit Fermi energy when finite, otherwise the
// cached/solved self-consistent value.
func (d *DOS) resolveFermi(fermiEnergy float64, method string) (float64, error) {
	if d.data == nil {
		return 0, errors.NewNotFittedError("DOS", method)
	}
	if !isNaN(fermiEnergy) {
		return fermiEnergy, nil
	}
	return d.SelfConsistentFermiEnergy()
}

func scaleCopy(data []float64, factor float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v * factor
	}
	return out
}

func isNaN(x float64) bool { return x != x }

var _ Target = (*DOS)(nil)
