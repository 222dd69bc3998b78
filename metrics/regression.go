// Package metrics provides the regression metrics used to compare predicted
// physical observables against their ground-truth reconstruction: grid
// quantities (LDOS, density) element-wise and derived scalars (band energy,
// total energy) directly.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/pkg/errors"
)

// MAE computes the mean absolute error between two equally sized samples.
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i, t := range yTrue {
		sum += math.Abs(t - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

// MSE computes the mean squared error.
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	var sum float64
	for i, t := range yTrue {
		diff := t - yPred[i]
		sum += diff * diff
	}
	return sum / float64(len(yTrue)), nil
}

// RMSE computes the root mean squared error.
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// R2Score computes the coefficient of determination. A constant yTrue has no
// variance to explain and is rejected.
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}

	var mean float64
	for _, t := range yTrue {
		mean += t
	}
	mean /= float64(len(yTrue))

	var tss, rss float64
	for i, t := range yTrue {
		tss += (t - mean) * (t - mean)
		diff := t - yPred[i]
		rss += diff * diff
	}
	if tss == 0 {
		return 0, errors.Newf("R2Score: no variance in yTrue")
	}
	return 1 - rss/tss, nil
}

// GridMAE computes the element-wise mean absolute error between two grid
// tensors of equal shape, e.g. a predicted and a ground-truth LDOS.
func GridMAE(yTrue, yPred mat.Matrix) (float64, error) {
	if err := checkGridPair("GridMAE", yTrue, yPred); err != nil {
		return 0, err
	}
	r, c := yTrue.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum += math.Abs(yTrue.At(i, j) - yPred.At(i, j))
		}
	}
	return sum / float64(r*c), nil
}

// GridRMSE computes the element-wise root mean squared error between two
// grid tensors of equal shape.
func GridRMSE(yTrue, yPred mat.Matrix) (float64, error) {
	if err := checkGridPair("GridRMSE", yTrue, yPred); err != nil {
		return 0, err
	}
	r, c := yTrue.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			diff := yTrue.At(i, j) - yPred.At(i, j)
			sum += diff * diff
		}
	}
	return math.Sqrt(sum / float64(r*c)), nil
}

func checkPair(metric string, yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return errors.Wrap(errors.ErrEmptyData, metric)
	}
	if len(yTrue) != len(yPred) {
		return errors.NewShapeMismatchError(metric,
			[]int{len(yTrue)}, []int{len(yPred)}, "sample count")
	}
	return nil
}

func checkGridPair(metric string, yTrue, yPred mat.Matrix) error {
	rt, ct := yTrue.Dims()
	rp, cp := yPred.Dims()
	if rt == 0 || ct == 0 {
		return errors.Wrap(errors.ErrEmptyData, metric)
	}
	if rt != rp || ct != cp {
		return errors.NewShapeMismatchError(metric,
			[]int{rt, ct}, []int{rp, cp}, "grid tensor")
	}
	return nil
}
