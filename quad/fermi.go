package quad

import (
	"math"

	"github.com/matml/dftgo/units"
)

// FermiFunction evaluates the Fermi-Dirac occupation
//
//	f(E) = 1 / (1 + exp((E - eFermi) / (kB T)))
//
// in an overflow-safe form. The reduced argument x = (E-eFermi)/(kB T) is
// evaluated per grid point, so the tails are clamped to exactly 0 and 1
// instead of producing Inf/NaN that would poison downstream sums.
// At T = 0 the occupation degenerates to a step function.
func FermiFunction(energy, fermiEnergy, temperatureK float64) float64 {
	if temperatureK == 0 {
		if energy > fermiEnergy {
			return 0
		}
		return 1
	}
	x := (energy - fermiEnergy) / (units.Boltzmann * temperatureK)
	// exp(±40) already under/overflows the occupation beyond float64
	// resolution of 1.
	if x > 40 {
		return math.Exp(-x) // asymptotic tail, still exact to ulp
	}
	if x < -40 {
		return 1
	}
	return 1 / (1 + math.Exp(x))
}

// EntropyKernel evaluates the entropy weighting
//
//	g(E) = f ln f + (1-f) ln(1-f)
//
// of the Fermi-Dirac occupation, in a form that stays finite in both tails.
// Using the softplus identity, g = (1-f)x - ln(1+exp(x)) with
// x = (E-eFermi)/(kB T); both terms cancel smoothly as |x| grows.
func EntropyKernel(energy, fermiEnergy, temperatureK float64) float64 {
	if temperatureK == 0 {
		return 0
	}
	x := (energy - fermiEnergy) / (units.Boltzmann * temperatureK)
	f := FermiFunction(energy, fermiEnergy, temperatureK)
	return (1-f)*x - softplus(x)
}

// softplus computes ln(1+exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}
