package model

import "gonum.org/v1/gonum/mat"

// Transformer is the interface for feature-wise data transformations.
// The data handler accepts any Transformer for its scaling passes.
type Transformer interface {
	// Fit learns the transformation parameters from a full in-memory array.
	Fit(X mat.Matrix) error

	// Transform applies the learned transformation.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// InverseTransform reverses the learned transformation.
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}

// IncrementalTransformer is a Transformer whose statistics can be
// accumulated over batches too large to hold in memory at once.
type IncrementalTransformer interface {
	Transformer

	// StartPartialFit resets the running accumulators.
	StartPartialFit()

	// PartialFit folds one batch into the running statistics.
	PartialFit(X mat.Matrix) error

	// FinishPartialFit converts the accumulators into usable scale and
	// offset parameters. Idempotent once finalized.
	FinishPartialFit() error
}
