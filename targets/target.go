// Package targets implements the physical reconstruction engine: parsing and
// postprocessing for the electronic density, the density of states (DOS) and
// the local density of states (LDOS), including the self-consistent Fermi
// level solve, band energy, entropy and total-energy composition.
//
// Internal unit conventions: energies in eV, lengths in Angstrom, the
// density in electrons/A^3, the DOS in 1/eV and the LDOS in 1/(eV*A^3).
// External formats (Rydberg, Bohr) are handled by the explicit unit
// conversion pairs on each target type.
package targets

import (
	"github.com/matml/dftgo/atoms"
)

// Target is the capability interface shared by the closed set of target
// calculators (Density, DOS, LDOS).
type Target interface {
	// FeatureSize returns the per-grid-point dimension of this quantity
	// when used as an ML target (1 for density, energy grid size for
	// DOS/LDOS).
	FeatureSize() int

	// ConvertUnits converts data from the named unit into the internal
	// convention. Pure and stateless; an unregistered unit string fails
	// with UnsupportedUnitError.
	ConvertUnits(data []float64, unit string) ([]float64, error)

	// BackconvertUnits converts data from the internal convention back
	// into the named unit. Exact inverse of ConvertUnits for every
	// supported unit.
	BackconvertUnits(data []float64, unit string) ([]float64, error)
}

// DensityDeriver is the extended capability of targets that can derive the
// electronic density (the LDOS can, the DOS cannot).
type DensityDeriver interface {
	Target
	ToDensity() (*Density, error)
}

// DOSDeriver is the extended capability of targets that can derive the
// density of states.
type DOSDeriver interface {
	Target
	ToDOS() (*DOS, error)
}

// AdditionalCalculationData carries the externally supplied context a target
// needs for total-energy composition: structural data plus the scalar energy
// contributions computed by the external total-energy module. Energies are
// stored in eV, geometry in Angstrom.
type AdditionalCalculationData struct {
	FermiEnergyEV     float64
	NumberOfElectrons float64
	TotalEnergyEV     float64 // reference DFT total energy, when available

	Atoms          *atoms.Configuration
	GridDimensions [3]int

	// Density-based energy contributions, attached separately via
	// SetEnergyContributions when they come from the external
	// total-energy module rather than the output file.
	EwaldEnergyEV       float64
	HartreeEnergyEV     float64
	XCEnergyEV          float64
	RhoTimesVHxcEV      float64
	EnergyContributions bool // true once the four contributions are attached
}

// SetEnergyContributions attaches the density-based energy contributions
// (in eV): integral of density times v_Hxc, Hartree energy, exchange-
// correlation energy and Ewald energy.
func (a *AdditionalCalculationData) SetEnergyContributions(rhoTimesVHxc, hartree, xc, ewald float64) {
	a.RhoTimesVHxcEV = rhoTimesVHxc
	a.HartreeEnergyEV = hartree
	a.XCEnergyEV = xc
	a.EwaldEnergyEV = ewald
	a.EnergyContributions = true
}

// VoxelVolumeAA returns the volume of one spatial grid voxel in Angstrom^3.
func (a *AdditionalCalculationData) VoxelVolumeAA() float64 {
	points := a.GridDimensions[0] * a.GridDimensions[1] * a.GridDimensions[2]
	if a.Atoms == nil || points == 0 {
		return 0
	}
	return a.Atoms.Volume() / float64(points)
}
