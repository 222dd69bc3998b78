package quad

import (
	"math"
	"testing"
)

func TestPolylogKnownValues(t *testing.T) {
	// Li2(-1) = -pi^2/12, Li3(-1) = -3 zeta(3)/4.
	if got, want := polyLog2NegExp(0), -math.Pi*math.Pi/12; math.Abs(got-want) > 1e-12 {
		t.Errorf("Li2(-1) = %v, want %v", got, want)
	}
	const zeta3 = 1.2020569031595943
	if got, want := polyLog3NegExp(0), -0.75*zeta3; math.Abs(got-want) > 1e-12 {
		t.Errorf("Li3(-1) = %v, want %v", got, want)
	}
}

func TestPolylogInversionContinuity(t *testing.T) {
	// The inversion identities must agree with the series at the switch
	// point and vary smoothly across it.
	for _, fn := range []func(float64) float64{polyLog2NegExp, polyLog3NegExp} {
		below := fn(-1e-9)
		above := fn(1e-9)
		if math.Abs(below-above) > 1e-7 {
			t.Errorf("discontinuity across x=0: %v vs %v", below, above)
		}
	}
}

func TestFermiIntegral0IsAntiderivative(t *testing.T) {
	const eF, T = 1.0, 1000.0
	// Central difference of the antiderivative reproduces the occupation.
	for _, e := range []float64{-1, 0.5, 1.0, 1.5, 3} {
		const h = 1e-5
		deriv := (FermiIntegral0(e+h, eF, T) - FermiIntegral0(e-h, eF, T)) / (2 * h)
		f := FermiFunction(e, eF, T)
		if math.Abs(deriv-f) > 1e-6 {
			t.Errorf("d/dE FI0 at %v = %v, occupation %v", e, deriv, f)
		}
	}
}

func TestAnalyticElectronCountMatchesQuadrature(t *testing.T) {
	// A smooth DOS integrated analytically must agree with a fine
	// trapezoid quadrature of dos * f.
	const eF, T = 0.5, 298.0
	n := 2001
	h := 0.01
	energies := make([]float64, n)
	dos := make([]float64, n)
	for i := range energies {
		e := -10.0 + float64(i)*h
		energies[i] = e
		dos[i] = math.Exp(-e * e / 8.0)
	}

	analytic := AnalyticElectronCount(energies, dos, eF, T)

	integrand := make([]float64, n)
	for i := range integrand {
		integrand[i] = dos[i] * FermiFunction(energies[i], eF, T)
	}
	quadrature, err := Integrate(Trapezoid, integrand, h)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(analytic-quadrature) > 1e-3*math.Abs(quadrature) {
		t.Errorf("analytic count %v vs quadrature %v", analytic, quadrature)
	}
}

func TestAnalyticBandEnergyMatchesQuadrature(t *testing.T) {
	const eF, T = -0.5, 298.0
	n := 2001
	h := 0.01
	energies := make([]float64, n)
	dos := make([]float64, n)
	for i := range energies {
		e := -10.0 + float64(i)*h
		energies[i] = e
		dos[i] = 1.0 + 0.1*e
	}

	analytic := AnalyticBandEnergy(energies, dos, eF, T)

	integrand := make([]float64, n)
	for i := range integrand {
		integrand[i] = energies[i] * dos[i] * FermiFunction(energies[i], eF, T)
	}
	quadrature, err := Integrate(Trapezoid, integrand, h)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(analytic-quadrature) > 1e-3*math.Abs(quadrature) {
		t.Errorf("analytic band energy %v vs quadrature %v", analytic, quadrature)
	}
}

func TestDensityWeightsConstantDOS(t *testing.T) {
	// With dos == 1 the weighted sum is the integral of the occupation
	// itself, which for a window deep below the Fermi energy is just the
	// window width.
	const eF, T = 100.0, 298.0
	n := 101
	h := 0.1
	energies := make([]float64, n)
	for i := range energies {
		energies[i] = float64(i) * h
	}
	weights := DensityWeights(energies, eF, T)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	want := energies[n-1] - energies[0]
	if math.Abs(sum-want) > 1e-10 {
		t.Errorf("fully occupied window integrates to %v, want %v", sum, want)
	}
}

func TestGaussianRowsNormalized(t *testing.T) {
	n := 4001
	h := 0.01
	eGrid := make([]float64, n)
	for i := range eGrid {
		eGrid[i] = -20.0 + float64(i)*h
	}
	rows := Gaussian(eGrid, []float64{-3.0, 0.0, 2.5}, 0.5)
	for i, row := range rows {
		integral, err := Integrate(Trapezoid, row, h)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(integral-1.0) > 1e-8 {
			t.Errorf("row %d integrates to %v, want 1", i, integral)
		}
	}
}

func TestGaussianIntegralWholeLine(t *testing.T) {
	got := GaussianIntegral(-1e6, 1e6, 0.3, 0.7)
	if math.Abs(got-1.0) > 1e-12 {
		t.Errorf("whole-line Gaussian integral %v, want 1", got)
	}
}

func TestDeltaM1PreservesMoments(t *testing.T) {
	n := 21
	h := 0.5
	eGrid := make([]float64, n)
	for i := range eGrid {
		eGrid[i] = float64(i) * h
	}
	centers := []float64{0.1, 3.25, 7.0, 9.99}
	rows := DeltaM1(eGrid, centers)
	for i, row := range rows {
		var m0, m1 float64
		for j, w := range row {
			m0 += w * h
			m1 += w * eGrid[j] * h
		}
		if math.Abs(m0-1.0) > 1e-12 {
			t.Errorf("center %v: 0th moment %v, want 1", centers[i], m0)
		}
		if math.Abs(m1-centers[i]) > 1e-12 {
			t.Errorf("center %v: 1st moment %v", centers[i], m1)
		}
	}
}

func TestDeltaM1OutOfRangeCenters(t *testing.T) {
	eGrid := []float64{0, 1, 2}
	rows := DeltaM1(eGrid, []float64{-5, 7})
	for i, row := range rows {
		for _, w := range row {
			if w != 0 {
				t.Errorf("out-of-range center %d contributed weight %v", i, w)
			}
		}
	}
}
