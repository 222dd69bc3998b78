package quad

import "math"

// Gaussian evaluates a normalized Gaussian delta representation on an energy
// grid for each center:
//
//	g(E) = 1/sqrt(pi sigma^2) exp(-((E - center)/sigma)^2)
//
// Note the convention without the factor 1/sqrt(2) in the exponent; the
// normalization matches it so each row integrates to one.
// The result has shape [len(centers)][len(eGrid)].
func Gaussian(eGrid, centers []float64, sigma float64) [][]float64 {
	norm := 1.0 / math.Sqrt(math.Pi*sigma*sigma)
	result := make([][]float64, len(centers))
	for i, c := range centers {
		row := make([]float64, len(eGrid))
		for j, e := range eGrid {
			d := (e - c) / sigma
			row[j] = norm * math.Exp(-d*d)
		}
		result[i] = row
	}
	return result
}

// DeltaM1 evaluates a discretized delta function that preserves the 0th and
// 1st moments of each center: every center contributes linear weights to its
// two bracketing grid points. Centers outside the grid contribute nothing.
// The result has shape [len(centers)][len(eGrid)].
func DeltaM1(eGrid, centers []float64) [][]float64 {
	result := make([][]float64, len(centers))
	for i, c := range centers {
		row := make([]float64, len(eGrid))
		result[i] = row

		// Locate the bracketing interval.
		j := -1
		for k := 0; k < len(eGrid)-1; k++ {
			if c >= eGrid[k] && c <= eGrid[k+1] {
				j = k
				break
			}
		}
		if j < 0 {
			continue
		}
		spacing := eGrid[j+1] - eGrid[j]
		upper := (c - eGrid[j]) / spacing
		row[j] = (1.0 - upper) / spacing
		row[j+1] = upper / spacing
	}
	return result
}

// GaussianIntegral returns the exact integral of the Gaussian convention used
// by Gaussian() over [a, b] for one center. Used as the analytic reference
// when the integrand is known to be Gaussian.
func GaussianIntegral(a, b, center, sigma float64) float64 {
	// The convention integrates to (1/2)(erf((b-c)/sigma) - erf((a-c)/sigma)).
	return 0.5 * (math.Erf((b-center)/sigma) - math.Erf((a-center)/sigma))
}
