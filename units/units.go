// Package units collects the physical constants and conversion factors used
// throughout the pipeline. Energies are handled in electron volts internally;
// lengths arrive in either Bohr or Angstrom depending on the producing code,
// so every conversion is an explicit named factor rather than an implicit
// convention.
package units

import "math"

const (
	// Boltzmann is Boltzmann's constant in eV/K.
	Boltzmann = 8.617333262145e-5

	// RydbergToEV converts energies from Rydberg to eV.
	RydbergToEV = 13.6056980659

	// BohrToAngstrom converts lengths from Bohr radii to Angstrom.
	BohrToAngstrom = 0.52917721

	// HartreeToEV converts energies from Hartree to eV.
	HartreeToEV = 2.0 * RydbergToEV
)

// AngstromToBohr converts a length in Angstrom to Bohr radii.
func AngstromToBohr(x float64) float64 { return x / BohrToAngstrom }

// BohrToAngstromValue converts a length in Bohr radii to Angstrom.
func BohrToAngstromValue(x float64) float64 { return x * BohrToAngstrom }

// RydbergToEVValue converts an energy in Rydberg to eV.
func RydbergToEVValue(x float64) float64 { return x * RydbergToEV }

// EVToRydberg converts an energy in eV to Rydberg.
func EVToRydberg(x float64) float64 { return x / RydbergToEV }

// CubicBohrToCubicAngstrom converts a volume in Bohr^3 to Angstrom^3.
func CubicBohrToCubicAngstrom(v float64) float64 {
	return v * math.Pow(BohrToAngstrom, 3)
}

// CubicAngstromToCubicBohr converts a volume in Angstrom^3 to Bohr^3.
func CubicAngstromToCubicBohr(v float64) float64 {
	return v / math.Pow(BohrToAngstrom, 3)
}
