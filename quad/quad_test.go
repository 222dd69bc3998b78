package quad

import (
	"math"
	"testing"

	"github.com/matml/dftgo/pkg/errors"
)

func sample(n int, h float64, f func(x float64) float64) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = f(float64(i) * h)
	}
	return y
}

func TestTrapezoidLinearExact(t *testing.T) {
	// The trapezoid rule is exact for linear integrands.
	y := sample(11, 0.5, func(x float64) float64 { return 3*x + 1 })
	got, err := Integrate(Trapezoid, y, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	want := 1.5*5*5 + 5.0 // integral of 3x+1 over [0,5]
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("trapezoid integral %v, want %v", got, want)
	}
}

func TestSimpsonCubicExact(t *testing.T) {
	// Simpson's rule is exact for cubics.
	y := sample(5, 0.5, func(x float64) float64 { return x * x * x })
	got, err := Integrate(Simpson, y, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-4.0) > 1e-12 {
		t.Errorf("Simpson integral %v, want 4", got)
	}
}

func TestSimpsonEvenSampleCountFails(t *testing.T) {
	y := sample(4, 1.0, func(x float64) float64 { return x })
	_, err := Integrate(Simpson, y, 1.0)
	if err == nil {
		t.Fatal("expected error for even sample count")
	}
	var cfgErr *errors.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestSimpsonFallbackDowngrades(t *testing.T) {
	y := sample(4, 1.0, func(x float64) float64 { return 2 * x })
	got, err := IntegrateWithFallback(Simpson, y, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	// Trapezoid is exact for the linear integrand.
	if math.Abs(got-9.0) > 1e-12 {
		t.Errorf("fallback integral %v, want 9", got)
	}
}

func TestIntegrateRejectsBadInput(t *testing.T) {
	if _, err := Integrate(Trapezoid, nil, 0.1); err == nil {
		t.Error("expected error for empty samples")
	}
	if _, err := Integrate(Trapezoid, []float64{1, 2}, -1); err == nil {
		t.Error("expected error for non-positive spacing")
	}
	if _, err := Integrate(Method("nope"), []float64{1, 2}, 0.1); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestIntegrateXYNonUniform(t *testing.T) {
	x := []float64{0, 0.5, 1.5, 2.0, 4.0}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 2*xi + 3
	}
	got, err := IntegrateXY(Trapezoid, x, y)
	if err != nil {
		t.Fatal(err)
	}
	want := 16.0 + 12.0 // integral of 2x+3 over [0,4]
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("non-uniform trapezoid %v, want %v", got, want)
	}
}

func TestIntegrateXYFallbackDowngrades(t *testing.T) {
	x := []float64{0, 0.5, 1.5, 3.0}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 2 * xi
	}
	got, err := IntegrateXYWithFallback(Simpson, x, y)
	if err != nil {
		t.Fatal(err)
	}
	// Trapezoid is exact for the linear integrand over [0,3].
	if math.Abs(got-9.0) > 1e-12 {
		t.Errorf("fallback integral %v, want 9", got)
	}
}

func TestMethodValid(t *testing.T) {
	for _, m := range []Method{Rectangle, Trapezoid, Simpson, Analytic} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if Method("gauss").Valid() {
		t.Error("unknown method reported valid")
	}
}

func TestFermiFunctionLimits(t *testing.T) {
	const eF, T = 5.0, 298.0
	if got := FermiFunction(eF, eF, T); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("f at the Fermi energy = %v, want 0.5", got)
	}
	if got := FermiFunction(eF-10, eF, T); got != 1 {
		t.Errorf("deep occupied tail = %v, want exactly 1", got)
	}
	if got := FermiFunction(eF+10, eF, T); got != 0 && got > 1e-100 {
		t.Errorf("deep unoccupied tail = %v, want ~0", got)
	}
	// T = 0 degenerates to a step.
	if got := FermiFunction(eF-1e-9, eF, 0); got != 1 {
		t.Errorf("T=0 below Fermi = %v, want 1", got)
	}
	if got := FermiFunction(eF+1e-9, eF, 0); got != 0 {
		t.Errorf("T=0 above Fermi = %v, want 0", got)
	}
}

func TestFermiFunctionMonotone(t *testing.T) {
	const eF, T = 0.0, 500.0
	prev := 1.1
	for e := -2.0; e <= 2.0; e += 0.01 {
		f := FermiFunction(e, eF, T)
		if f > prev {
			t.Fatalf("occupation increased at E=%v", e)
		}
		prev = f
	}
}

func TestEntropyKernelSymmetricAndFinite(t *testing.T) {
	const eF, T = 0.0, 298.0
	// g is symmetric about the Fermi energy and finite in both tails.
	for _, d := range []float64{0.01, 0.05, 0.1} {
		lo := EntropyKernel(eF-d, eF, T)
		hi := EntropyKernel(eF+d, eF, T)
		if math.Abs(lo-hi) > 1e-10 {
			t.Errorf("kernel asymmetric at +-%v: %v vs %v", d, lo, hi)
		}
		if lo >= 0 {
			t.Errorf("kernel should be negative near the Fermi energy, got %v", lo)
		}
	}
	for _, e := range []float64{-50, 50} {
		g := EntropyKernel(e, eF, T)
		if math.IsNaN(g) || math.IsInf(g, 0) || math.Abs(g) > 1e-10 {
			t.Errorf("tail kernel at %v eV = %v, want ~0", e, g)
		}
	}
	// Peak value at the Fermi energy is -2 ln 2.
	peak := EntropyKernel(eF, eF, T)
	if math.Abs(peak+2*math.Ln2) > 1e-12 {
		t.Errorf("peak kernel %v, want %v", peak, -2*math.Ln2)
	}
}
