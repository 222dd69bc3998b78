package quad

import (
	"math"

	"github.com/matml/dftgo/units"
)

// Antiderivatives of the Fermi function times powers of (E - eFermi),
// expressed through polylogarithms of -exp(x). These are the building blocks
// of the analytic integration method: integrating the Fermi function against
// a linearly interpolated DOS reduces to differences of these integrals at
// the grid points, with no quadrature truncation error and no overflow in
// the tails.

// FermiIntegral0 is the antiderivative of f(E) evaluated at energy:
//
//	kB T (x + Li1(-e^x)),  x = (E - eFermi) / (kB T)
//
// Li1(-e^x) = -ln(1+e^x), so the whole expression collapses to
// -kB T ln(1+e^{-x}), which is evaluated with a stable softplus.
func FermiIntegral0(energy, fermiEnergy, temperatureK float64) float64 {
	kT := units.Boltzmann * temperatureK
	x := (energy - fermiEnergy) / kT
	return -kT * softplus(-x)
}

// FermiIntegral1 is the antiderivative of (E - eFermi) f(E):
//
//	(kB T)^2 (x^2/2 + x Li1(-e^x) - Li2(-e^x))
func FermiIntegral1(energy, fermiEnergy, temperatureK float64) float64 {
	kT := units.Boltzmann * temperatureK
	x := (energy - fermiEnergy) / kT
	return kT * kT * (x*x/2 - x*softplus(x) - polyLog2NegExp(x))
}

// FermiIntegral2 is the antiderivative of (E - eFermi)^2 f(E):
//
//	(kB T)^3 (x^3/3 + x^2 Li1(-e^x) - 2x Li2(-e^x) + 2 Li3(-e^x))
func FermiIntegral2(energy, fermiEnergy, temperatureK float64) float64 {
	kT := units.Boltzmann * temperatureK
	x := (energy - fermiEnergy) / kT
	return kT * kT * kT *
		(x*x*x/3 - x*x*softplus(x) - 2*x*polyLog2NegExp(x) + 2*polyLog3NegExp(x))
}

// polyLog2NegExp computes Li2(-exp(x)) for real x.
//
// For x <= 0 the defining series converges (|z| <= 1, alternating). For
// x > 0 the inversion identity
//
//	Li2(-e^x) = -x^2/2 - pi^2/6 - Li2(-e^{-x})
//
// maps the argument back into the convergent region.
func polyLog2NegExp(x float64) float64 {
	if x > 0 {
		return -x*x/2 - math.Pi*math.Pi/6 - polyLog2NegExp(-x)
	}
	z := -math.Exp(x)
	return polyLogSeries(z, 2)
}

// polyLog3NegExp computes Li3(-exp(x)) for real x, using
//
//	Li3(-e^x) = Li3(-e^{-x}) - x^3/6 - pi^2 x / 6
//
// for positive arguments.
func polyLog3NegExp(x float64) float64 {
	if x > 0 {
		return polyLog3NegExp(-x) - x*x*x/6 - math.Pi*math.Pi*x/6
	}
	z := -math.Exp(x)
	return polyLogSeries(z, 3)
}

// polyLogSeries sums Li_s(z) = sum_k z^k / k^s for |z| <= 1, z <= 0.
// The series is alternating, so truncation error is bounded by the first
// omitted term.
func polyLogSeries(z float64, s int) float64 {
	if z == 0 {
		return 0
	}
	sum := 0.0
	term := z
	for k := 1; k < 200; k++ {
		contrib := term / math.Pow(float64(k), float64(s))
		sum += contrib
		if math.Abs(contrib) < 1e-16*math.Abs(sum)+1e-300 {
			break
		}
		term *= z
	}
	return sum
}

// DensityWeights computes per-sample weights w such that sum(dos * w) equals
// the analytic integral of the Fermi function times the linearly interpolated
// dos over the energy grid. The grid may be non-uniform.
func DensityWeights(energies []float64, fermiEnergy, temperatureK float64) []float64 {
	n := len(energies)
	weights := make([]float64, n)
	if n < 2 {
		return weights
	}

	for i := 0; i < n-1; i++ {
		deltaE := energies[i+1] - energies[i]
		fi0 := FermiIntegral0(energies[i+1], fermiEnergy, temperatureK) -
			FermiIntegral0(energies[i], fermiEnergy, temperatureK)
		fi1 := FermiIntegral1(energies[i+1], fermiEnergy, temperatureK) -
			FermiIntegral1(energies[i], fermiEnergy, temperatureK)

		weights[i+1] += fi1/deltaE + fi0*(1.0+(fermiEnergy-energies[i+1])/deltaE)
		weights[i] += -fi1/deltaE + fi0*(1.0-(fermiEnergy-energies[i])/deltaE)
	}
	return weights
}

// EnergyWeights computes per-sample weights w such that sum(dos * w) equals
// the analytic integral of E times the Fermi function times the linearly
// interpolated dos.
func EnergyWeights(energies []float64, fermiEnergy, temperatureK float64) []float64 {
	n := len(energies)
	weights := make([]float64, n)
	if n < 2 {
		return weights
	}

	for i := 0; i < n-1; i++ {
		deltaE := energies[i+1] - energies[i]
		fi1 := FermiIntegral1(energies[i+1], fermiEnergy, temperatureK) -
			FermiIntegral1(energies[i], fermiEnergy, temperatureK)
		fi2 := FermiIntegral2(energies[i+1], fermiEnergy, temperatureK) -
			FermiIntegral2(energies[i], fermiEnergy, temperatureK)

		weights[i+1] += fi2/deltaE + fi1*(1.0+(fermiEnergy-energies[i+1])/deltaE)
		weights[i] += -fi2/deltaE + fi1*(1.0-(fermiEnergy-energies[i])/deltaE)
	}

	density := DensityWeights(energies, fermiEnergy, temperatureK)
	for i := range weights {
		weights[i] += fermiEnergy * density[i]
	}
	return weights
}

// AnalyticElectronCount integrates the Fermi function times the linearly
// interpolated dos analytically, yielding the occupied-state count.
func AnalyticElectronCount(energies, dos []float64, fermiEnergy, temperatureK float64) float64 {
	weights := DensityWeights(energies, fermiEnergy, temperatureK)
	sum := 0.0
	for i, d := range dos {
		sum += d * weights[i]
	}
	return sum
}

// AnalyticBandEnergy integrates E times the Fermi function times the linearly
// interpolated dos analytically.
func AnalyticBandEnergy(energies, dos []float64, fermiEnergy, temperatureK float64) float64 {
	weights := EnergyWeights(energies, fermiEnergy, temperatureK)
	sum := 0.0
	for i, d := range dos {
		sum += d * weights[i]
	}
	return sum
}
