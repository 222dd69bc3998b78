// Package quad provides the 1-D quadrature and occupation-function helpers
// used by the physical reconstruction layer. Quadrature over the energy grid
// backs every derived quantity (electron count, band energy, entropy), so the
// methods here are deliberately small, deterministic and overflow-safe.
package quad

import (
	"gonum.org/v1/gonum/integrate"

	"github.com/matml/dftgo/pkg/errors"
)

// Method selects the quadrature rule applied over an energy grid.
type Method string

const (
	// Rectangle is the rectangle (midpoint-free, left-sum) rule.
	Rectangle Method = "rectangle"

	// Trapezoid is the composite trapezoid rule.
	Trapezoid Method = "trapz"

	// Simpson is the composite Simpson rule. Requires an odd number of
	// samples (an even number of intervals).
	Simpson Method = "simps"

	// Analytic integrates the Fermi function against the linearly
	// interpolated integrand exactly, using polylogarithm identities.
	// Only meaningful for occupation-weighted integrals.
	Analytic Method = "analytical"
)

// Valid reports whether m names an implemented quadrature method.
func (m Method) Valid() bool {
	switch m {
	case Rectangle, Trapezoid, Simpson, Analytic:
		return true
	}
	return false
}

// Integrate computes the integral of uniformly spaced samples y with grid
// spacing h using the given method.
//
// Simpson requires len(y) to be odd; if it is not, a ConfigurationError is
// returned and no fallback is applied. Use IntegrateWithFallback when a
// silent downgrade to the trapezoid rule is acceptable.
func Integrate(method Method, y []float64, h float64) (float64, error) {
	if len(y) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "quad.Integrate")
	}
	if h <= 0 {
		return 0, errors.NewConfigurationError("spacing", "must be positive", h)
	}

	switch method {
	case Rectangle:
		sum := 0.0
		for _, v := range y {
			sum += v
		}
		return sum * h, nil
	case Trapezoid:
		return integrate.Trapezoidal(uniformGrid(len(y), h), y), nil
	case Simpson:
		if len(y) < 3 {
			return 0, errors.NewConfigurationError("samples",
				"Simpson integration needs at least 3 samples", len(y))
		}
		if len(y)%2 == 0 {
			return 0, errors.NewConfigurationError("samples",
				"Simpson integration requires an odd sample count", len(y))
		}
		return integrate.Simpsons(uniformGrid(len(y), h), y), nil
	default:
		return 0, errors.NewConfigurationError("integration_method",
			"does not match an implemented method", string(method))
	}
}

// IntegrateWithFallback behaves like Integrate but downgrades Simpson to the
// trapezoid rule when the sample count is even, emitting a warning instead of
// failing.
func IntegrateWithFallback(method Method, y []float64, h float64) (float64, error) {
	if method == Simpson && len(y) >= 3 && len(y)%2 == 0 {
		errors.Warn(errors.NewConvergenceWarning("simpson_quadrature", 0,
			"even sample count, falling back to trapezoid rule"))
		method = Trapezoid
	}
	return Integrate(method, y, h)
}

// IntegrateXYWithFallback behaves like IntegrateXY but downgrades Simpson to
// the trapezoid rule when the sample count is even, emitting a warning
// instead of failing.
func IntegrateXYWithFallback(method Method, x, y []float64) (float64, error) {
	if method == Simpson && len(y) >= 3 && len(y)%2 == 0 {
		errors.Warn(errors.NewConvergenceWarning("simpson_quadrature", 0,
			"even sample count, falling back to trapezoid rule"))
		method = Trapezoid
	}
	return IntegrateXY(method, x, y)
}

// IntegrateXY computes the integral of y sampled at (possibly non-uniform)
// coordinates x.
func IntegrateXY(method Method, x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.NewShapeMismatchError("quad.IntegrateXY",
			[]int{len(x)}, []int{len(y)}, "abscissae vs ordinates")
	}
	if len(y) == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "quad.IntegrateXY")
	}

	switch method {
	case Rectangle:
		sum := 0.0
		for i := 0; i < len(y)-1; i++ {
			sum += y[i] * (x[i+1] - x[i])
		}
		return sum, nil
	case Trapezoid:
		return integrate.Trapezoidal(x, y), nil
	case Simpson:
		if len(y) < 3 {
			return 0, errors.NewConfigurationError("samples",
				"Simpson integration needs at least 3 samples", len(y))
		}
		if len(y)%2 == 0 {
			return 0, errors.NewConfigurationError("samples",
				"Simpson integration requires an odd sample count", len(y))
		}
		return integrate.Simpsons(x, y), nil
	default:
		return 0, errors.NewConfigurationError("integration_method",
			"does not match an implemented method", string(method))
	}
}

func uniformGrid(n int, h float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i) * h
	}
	return x
}
