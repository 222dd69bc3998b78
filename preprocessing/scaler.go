// Package preprocessing provides the normalization applied to descriptor and
// target quantities before training.
//
// The central type is DataScaler, which supports min-max and mean-std
// scaling per feature dimension, fitted either in one shot over an in-memory
// array or incrementally over many snapshots via PartialFit. Incremental
// statistics use exact running min/max and Welford's streaming algorithm for
// mean and variance, so the result matches a one-shot fit over the
// concatenated data up to floating-point tolerance.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/core/model"
	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
)

// DataScaler normalizes a quantity feature-wise. After fitting, Transform
// applies (x - Offset) / Scale per feature and InverseTransform reverses it
// exactly up to floating-point round-trip tolerance.
//
// All statistics fields are exported for gob serialization via model.Save /
// model.Load.
type DataScaler struct {
	model.StateManager

	// Type selects min-max, standard or no scaling.
	Type params.ScalerType

	// Offset and Scale are the finalized transform parameters per feature.
	Offset []float64
	Scale  []float64

	// Running accumulators for incremental fitting.
	DataMin []float64
	DataMax []float64
	Mean    []float64
	M2      []float64 // sum of squared deviations (Welford)
	Count   float64

	// Accumulating reports whether an incremental fit is in progress.
	Accumulating bool
}

// NewDataScaler creates a DataScaler of the given type.
func NewDataScaler(scalerType params.ScalerType) *DataScaler {
	return &DataScaler{Type: scalerType}
}

// Fit computes the scaling statistics in one shot over an in-memory array.
// Calling Fit while an incremental fit is accumulating is a documented
// misuse and returns a ConfigurationError.
func (s *DataScaler) Fit(X mat.Matrix) error {
	if s.Accumulating {
		return errors.NewConfigurationError("DataScaler",
			"Fit called while incremental fitting is in progress", s.Type)
	}
	s.StartPartialFit()
	if err := s.PartialFit(X); err != nil {
		s.Accumulating = false
		return err
	}
	return s.FinishPartialFit()
}

// StartPartialFit resets the running accumulators for a fresh incremental
// fit.
func (s *DataScaler) StartPartialFit() {
	s.Reset()
	s.Offset = nil
	s.Scale = nil
	s.DataMin = nil
	s.DataMax = nil
	s.Mean = nil
	s.M2 = nil
	s.Count = 0
	s.Accumulating = true
}

// PartialFit folds one batch into the running statistics. The feature count
// is fixed by the first batch; later batches must match.
func (s *DataScaler) PartialFit(X mat.Matrix) error {
	if !s.Accumulating {
		return errors.NewConfigurationError("DataScaler",
			"PartialFit called without StartPartialFit", s.Type)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DataScaler.PartialFit")
	}

	if s.DataMin == nil {
		s.initAccumulators(c)
	} else if c != len(s.DataMin) {
		return errors.NewShapeMismatchError("DataScaler.PartialFit",
			[]int{len(s.DataMin)}, []int{c}, "feature dimension")
	}

	for i := 0; i < r; i++ {
		s.Count++
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if v < s.DataMin[j] {
				s.DataMin[j] = v
			}
			if v > s.DataMax[j] {
				s.DataMax[j] = v
			}
			// Welford update: numerically stable streaming mean/variance.
			delta := v - s.Mean[j]
			s.Mean[j] += delta / s.Count
			s.M2[j] += delta * (v - s.Mean[j])
		}
	}
	return nil
}

// FinishPartialFit converts the accumulators into the final per-feature
// scale and offset. Idempotent once finalized.
func (s *DataScaler) FinishPartialFit() error {
	if s.IsFitted() {
		return nil
	}
	if s.DataMin == nil || s.Count == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DataScaler.FinishPartialFit")
	}

	nFeatures := len(s.DataMin)
	s.Offset = make([]float64, nFeatures)
	s.Scale = make([]float64, nFeatures)

	for j := 0; j < nFeatures; j++ {
		var offset, scale float64
		switch s.Type {
		case params.ScalerMinMax:
			offset = s.DataMin[j]
			scale = s.DataMax[j] - s.DataMin[j]
		case params.ScalerStandard:
			offset = s.Mean[j]
			scale = math.Sqrt(s.M2[j] / s.Count)
		case params.ScalerNone:
			offset = 0
			scale = 1
		default:
			return errors.NewConfigurationError("DataScaler.Type",
				"unknown scaler type", string(s.Type))
		}
		// A vanishing scale means the feature is constant across the
		// data. Scaling degenerates; apply the identity for this
		// dimension instead of dividing by zero.
		if math.Abs(scale) < 1e-8 {
			offset = 0
			scale = 1
		}
		s.Offset[j] = offset
		s.Scale[j] = scale
	}

	s.Accumulating = false
	s.SetDimensions(nFeatures, int(s.Count))
	s.SetFitted()
	return nil
}

// Transform applies the fitted scaling.
func (s *DataScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("DataScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != len(s.Scale) {
		return nil, errors.NewShapeMismatchError("DataScaler.Transform",
			[]int{len(s.Scale)}, []int{c}, "feature dimension")
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Offset[j])/s.Scale[j])
		}
	}
	return result, nil
}

// InverseTransform reverses the fitted scaling.
func (s *DataScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.RequireFitted("DataScaler", "InverseTransform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != len(s.Scale) {
		return nil, errors.NewShapeMismatchError("DataScaler.InverseTransform",
			[]int{len(s.Scale)}, []int{c}, "feature dimension")
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Offset[j])
		}
	}
	return result, nil
}

// String returns a readable description of the scaler.
func (s *DataScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("DataScaler(type=%s)", s.Type)
	}
	return fmt.Sprintf("DataScaler(type=%s, n_features=%d)", s.Type, len(s.Scale))
}

func (s *DataScaler) initAccumulators(nFeatures int) {
	s.DataMin = make([]float64, nFeatures)
	s.DataMax = make([]float64, nFeatures)
	s.Mean = make([]float64, nFeatures)
	s.M2 = make([]float64, nFeatures)
	for j := range s.DataMin {
		s.DataMin[j] = math.Inf(1)
		s.DataMax[j] = math.Inf(-1)
	}
}

// compile-time interface checks
var _ model.IncrementalTransformer = (*DataScaler)(nil)
