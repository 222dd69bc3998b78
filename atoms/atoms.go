// Package atoms provides the minimal atomic-structure model the pipeline
// needs: element symbols, Cartesian positions, the simulation cell and
// periodic-boundary handling. Positions and cell vectors are in Angstrom.
package atoms

import (
	"math"

	"github.com/matml/dftgo/pkg/errors"
)

// Configuration is one atomic configuration with its simulation cell.
type Configuration struct {
	// Symbols holds the element symbol per atom.
	Symbols []string

	// Positions holds Cartesian positions in Angstrom, one [3] per atom.
	Positions [][3]float64

	// Cell holds the three lattice vectors in Angstrom, row-wise.
	Cell [3][3]float64

	// PBC marks the periodic directions.
	PBC [3]bool
}

// NumAtoms returns the atom count.
func (c *Configuration) NumAtoms() int {
	return len(c.Positions)
}

// Volume returns the cell volume in Angstrom^3 (the absolute value of the
// cell determinant).
func (c *Configuration) Volume() float64 {
	a, b, d := c.Cell[0], c.Cell[1], c.Cell[2]
	det := a[0]*(b[1]*d[2]-b[2]*d[1]) -
		a[1]*(b[0]*d[2]-b[2]*d[0]) +
		a[2]*(b[0]*d[1]-b[1]*d[0])
	return math.Abs(det)
}

// ScaledPositions returns positions in fractional cell coordinates.
// Fails for a singular cell.
func (c *Configuration) ScaledPositions() ([][3]float64, error) {
	inv, err := invert3(c.Cell)
	if err != nil {
		return nil, err
	}
	scaled := make([][3]float64, len(c.Positions))
	for i, p := range c.Positions {
		// row vector times inverse cell matrix
		for j := 0; j < 3; j++ {
			scaled[i][j] = p[0]*inv[0][j] + p[1]*inv[1][j] + p[2]*inv[2][j]
		}
	}
	return scaled, nil
}

// EnforcePBC wraps all atomic positions into the primary cell along the
// periodic directions. The external descriptor engines do not guarantee
// wrapped input, so this runs before any feature evaluation.
func (c *Configuration) EnforcePBC() error {
	scaled, err := c.ScaledPositions()
	if err != nil {
		return err
	}
	for i := range scaled {
		for j := 0; j < 3; j++ {
			if !c.PBC[j] {
				continue
			}
			scaled[i][j] -= math.Floor(scaled[i][j])
		}
	}
	for i, s := range scaled {
		for j := 0; j < 3; j++ {
			c.Positions[i][j] = s[0]*c.Cell[0][j] + s[1]*c.Cell[1][j] + s[2]*c.Cell[2][j]
		}
	}
	return nil
}

// MinimumImage returns the displacement d in scaled coordinates wrapped to
// the nearest periodic image, component-wise in [-0.5, 0.5) along periodic
// directions.
func (c *Configuration) MinimumImage(d [3]float64) [3]float64 {
	for j := 0; j < 3; j++ {
		if c.PBC[j] {
			d[j] -= math.Round(d[j])
		}
	}
	return d
}

// CartesianFromScaled converts a scaled displacement to Cartesian Angstrom.
func (c *Configuration) CartesianFromScaled(s [3]float64) [3]float64 {
	var out [3]float64
	for j := 0; j < 3; j++ {
		out[j] = s[0]*c.Cell[0][j] + s[1]*c.Cell[1][j] + s[2]*c.Cell[2][j]
	}
	return out
}

func invert3(m [3][3]float64) ([3][3]float64, error) {
	var inv [3][3]float64
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if math.Abs(det) < 1e-14 {
		return inv, errors.NewConfigurationError("cell", "singular cell matrix", m)
	}
	invDet := 1.0 / det
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return inv, nil
}
