package targets

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/units"
)

const scfOutput = `
     Program PWSCF starts

     lattice parameter (alat)  =       7.6534  a.u.
     unit-cell volume          =     448.3004 (a.u.)^3
     number of atoms/cell      =            4
     number of electrons       =        12.00

     crystal axes: (cart. coord. in units of alat)
               a(1) = (   1.000000   0.000000   0.000000 )
               a(2) = (   0.000000   1.000000   0.000000 )
               a(3) = (   0.000000   0.000000   1.000000 )

     Dense  grid:    12165 G-vectors     FFT dimensions: (  36,  36,  36)

     site n.     atom                  positions (alat units)
         1           Al  tau(   1) = (   0.0000000   0.0000000   0.0000000  )
         2           Al  tau(   2) = (   0.5000000   0.5000000   0.0000000  )
         3           Al  tau(   3) = (   0.5000000   0.0000000   0.5000000  )
         4           Al  tau(   4) = (   0.0000000   0.5000000   0.5000000  )

     the Fermi energy is     7.7386 ev

!    total energy              =    -158.00230099 Ry
     ewald contribution        =    -215.23329920 Ry
     hartree contribution      =       0.17327913 Ry
     xc contribution           =     -23.55545618 Ry
`

func TestReadAdditionalCalculationData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scf.out")
	require.NoError(t, os.WriteFile(path, []byte(scfOutput), 0o644))

	acd, err := ReadAdditionalCalculationData(path)
	require.NoError(t, err)

	assert.InDelta(t, 12.0, acd.NumberOfElectrons, 1e-12)
	assert.InDelta(t, 7.7386, acd.FermiEnergyEV, 1e-12)
	assert.Equal(t, [3]int{36, 36, 36}, acd.GridDimensions)
	assert.InDelta(t, -158.00230099*units.RydbergToEV, acd.TotalEnergyEV, 1e-8)

	require.NotNil(t, acd.Atoms)
	assert.Equal(t, 4, acd.Atoms.NumAtoms())
	assert.Equal(t, []string{"Al", "Al", "Al", "Al"}, acd.Atoms.Symbols)

	alatAA := 7.6534 * units.BohrToAngstrom
	assert.InDelta(t, alatAA, acd.Atoms.Cell[0][0], 1e-10)
	assert.InDelta(t, 0.0, acd.Atoms.Cell[0][1], 1e-12)
	// Positions in alat units are converted to Angstrom.
	assert.InDelta(t, 0.5*alatAA, acd.Atoms.Positions[1][0], 1e-10)

	// All three printed contributions are present, so they are attached
	// (the rho*v_Hxc term still comes from elsewhere).
	assert.InDelta(t, -215.23329920*units.RydbergToEV, acd.EwaldEnergyEV, 1e-8)
	assert.InDelta(t, 0.17327913*units.RydbergToEV, acd.HartreeEnergyEV, 1e-8)
	assert.InDelta(t, -23.55545618*units.RydbergToEV, acd.XCEnergyEV, 1e-8)
	assert.False(t, acd.EnergyContributions)

	// Voxel volume follows from cell and FFT grid.
	wantVoxel := math.Pow(alatAA, 3) / float64(36*36*36)
	assert.InDelta(t, wantVoxel, acd.VoxelVolumeAA(), 1e-10)
}

func TestReadAdditionalCalculationDataRequiresElectrons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scf.out")
	require.NoError(t, os.WriteFile(path, []byte("no useful content\n"), 0o644))

	_, err := ReadAdditionalCalculationData(path)
	require.Error(t, err)
	var ioErr *errors.IOFormatError
	assert.True(t, errors.As(err, &ioErr))
}

func TestSetEnergyContributions(t *testing.T) {
	acd := &AdditionalCalculationData{}
	assert.False(t, acd.EnergyContributions)
	acd.SetEnergyContributions(1, 2, 3, 4)
	assert.True(t, acd.EnergyContributions)
	assert.Equal(t, 1.0, acd.RhoTimesVHxcEV)
	assert.Equal(t, 2.0, acd.HartreeEnergyEV)
	assert.Equal(t, 3.0, acd.XCEnergyEV)
	assert.Equal(t, 4.0, acd.EwaldEnergyEV)
}
