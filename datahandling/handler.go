package datahandling

import (
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	pkglog "github.com/matml/dftgo/pkg/log"
	"github.com/matml/dftgo/preprocessing"
	"github.com/matml/dftgo/targets"
)

// DataHandler orchestrates the conversion of registered snapshots into
// scaled train/validation/test tensors. PrepareData drives two passes: the
// first accumulates scaler statistics (incrementally when lazy loading is
// enabled), the second materializes scaled tensors per split or builds lazy
// datasets that load one minibatch at a time.
type DataHandler struct {
	p         *params.Parameters
	snapshots []*Snapshot

	// InputScaler and OutputScaler are fitted during PrepareData and remain
	// available for transforming model predictions back to physical units.
	InputScaler  *preprocessing.DataScaler
	OutputScaler *preprocessing.DataScaler

	prepared bool
	gridDims [3]int

	inputs  map[Role]*mat.Dense
	outputs map[Role]*mat.Dense
	lazy    map[Role]*LazyDataset
}

// NewDataHandler creates a data handler with scalers configured per the
// data settings.
func NewDataHandler(p *params.Parameters) *DataHandler {
	return &DataHandler{
		p:            p,
		InputScaler:  preprocessing.NewDataScaler(p.Data.InputScaler),
		OutputScaler: preprocessing.NewDataScaler(p.Data.OutputScaler),
		inputs:       map[Role]*mat.Dense{},
		outputs:      map[Role]*mat.Dense{},
		lazy:         map[Role]*LazyDataset{},
	}
}

// AddSnapshot registers a snapshot. Data is not loaded until PrepareData.
func (h *DataHandler) AddSnapshot(s *Snapshot) error {
	if h.prepared {
		return errors.NewConfigurationError("DataHandler",
			"AddSnapshot called after PrepareData", s.Name)
	}
	if !s.Role.Valid() {
		return errors.NewConfigurationError("Snapshot.Role",
			"must be train, validation or test", string(s.Role))
	}
	if !s.Format.Valid() {
		return errors.NewConfigurationError("Snapshot.Format",
			"unknown storage format", string(s.Format))
	}
	h.snapshots = append(h.snapshots, s)
	return nil
}

// NumSnapshots returns the registered snapshot count.
func (h *DataHandler) NumSnapshots() int { return len(h.snapshots) }

// Snapshot returns the i-th registered snapshot.
func (h *DataHandler) Snapshot(i int) *Snapshot { return h.snapshots[i] }

// GridDimensions returns the common spatial grid of the prepared snapshots.
func (h *DataHandler) GridDimensions() [3]int { return h.gridDims }

// PrepareData runs the two preparation passes. A snapshot whose descriptor
// and target grids disagree on spatial shape fails here with a
// ShapeMismatchError rather than surfacing later during training.
func (h *DataHandler) PrepareData() error {
	if h.prepared {
		return nil
	}
	if len(h.snapshots) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DataHandler.PrepareData")
	}

	slog.Info("preparing data",
		slog.String(pkglog.ComponentKey, "datahandling"),
		slog.String(pkglog.OperationKey, "prepare_data"),
		slog.Int("snapshots", len(h.snapshots)),
		slog.Bool("lazy", h.p.Data.UseLazyLoading))

	// Pass 1: shape validation and scaler statistics. With lazy loading the
	// grids are dropped again after each accumulation; otherwise they are
	// kept for pass 2.
	type loaded struct{ in, out *GridArray }
	var cache []loaded

	h.InputScaler.StartPartialFit()
	h.OutputScaler.StartPartialFit()
	for i, s := range h.snapshots {
		in, err := s.LoadDescriptor()
		if err != nil {
			return err
		}
		out, err := s.LoadTarget()
		if err != nil {
			return err
		}
		if in.Dims != out.Dims {
			return errors.NewShapeMismatchError("DataHandler.PrepareData",
				[]int{in.Dims[0], in.Dims[1], in.Dims[2]},
				[]int{out.Dims[0], out.Dims[1], out.Dims[2]},
				s.Name)
		}
		if i == 0 {
			h.gridDims = in.Dims
		} else if in.Dims != h.gridDims {
			return errors.NewShapeMismatchError("DataHandler.PrepareData",
				[]int{h.gridDims[0], h.gridDims[1], h.gridDims[2]},
				[]int{in.Dims[0], in.Dims[1], in.Dims[2]},
				s.Name)
		}
		if err := h.InputScaler.PartialFit(in.Matrix()); err != nil {
			return err
		}
		if err := h.OutputScaler.PartialFit(out.Matrix()); err != nil {
			return err
		}
		if !h.p.Data.UseLazyLoading {
			cache = append(cache, loaded{in, out})
		}
	}
	if err := h.InputScaler.FinishPartialFit(); err != nil {
		return err
	}
	if err := h.OutputScaler.FinishPartialFit(); err != nil {
		return err
	}

	// Pass 2: materialized tensors per split, or lazy datasets that defer
	// loading to minibatch access.
	if h.p.Data.UseLazyLoading {
		points := h.gridDims[0] * h.gridDims[1] * h.gridDims[2]
		for _, role := range []Role{RoleTrain, RoleValidation, RoleTest} {
			ds, err := newLazyDataset(h.p, h.snapshots, role, points, h.InputScaler, h.OutputScaler)
			if err != nil {
				return err
			}
			h.lazy[role] = ds
		}
	} else {
		rows := map[Role]int{}
		points := h.gridDims[0] * h.gridDims[1] * h.gridDims[2]
		for _, s := range h.snapshots {
			rows[s.Role] += points
		}
		offsets := map[Role]int{}
		for role, n := range rows {
			h.inputs[role] = mat.NewDense(n, h.InputScaler.NFeatures, nil)
			h.outputs[role] = mat.NewDense(n, h.OutputScaler.NFeatures, nil)
		}
		for i, s := range h.snapshots {
			scaledIn, err := h.InputScaler.Transform(cache[i].in.Matrix())
			if err != nil {
				return err
			}
			scaledOut, err := h.OutputScaler.Transform(cache[i].out.Matrix())
			if err != nil {
				return err
			}
			off := offsets[s.Role]
			copyRows(h.inputs[s.Role], off, scaledIn)
			copyRows(h.outputs[s.Role], off, scaledOut)
			offsets[s.Role] = off + points
		}
	}

	h.prepared = true
	return nil
}

// TrainingInputs returns the scaled training descriptor tensor.
func (h *DataHandler) TrainingInputs() (*mat.Dense, error) { return h.split(h.inputs, RoleTrain) }

// TrainingOutputs returns the scaled training target tensor.
func (h *DataHandler) TrainingOutputs() (*mat.Dense, error) { return h.split(h.outputs, RoleTrain) }

// ValidationInputs returns the scaled validation descriptor tensor.
func (h *DataHandler) ValidationInputs() (*mat.Dense, error) {
	return h.split(h.inputs, RoleValidation)
}

// ValidationOutputs returns the scaled validation target tensor.
func (h *DataHandler) ValidationOutputs() (*mat.Dense, error) {
	return h.split(h.outputs, RoleValidation)
}

// TestInputs returns the scaled test descriptor tensor.
func (h *DataHandler) TestInputs() (*mat.Dense, error) { return h.split(h.inputs, RoleTest) }

// TestOutputs returns the scaled test target tensor.
func (h *DataHandler) TestOutputs() (*mat.Dense, error) { return h.split(h.outputs, RoleTest) }

func (h *DataHandler) split(tensors map[Role]*mat.Dense, role Role) (*mat.Dense, error) {
	if !h.prepared {
		return nil, errors.NewNotFittedError("DataHandler", "split access")
	}
	if h.p.Data.UseLazyLoading {
		return nil, errors.NewConfigurationError("DataHandler",
			"materialized split access in lazy-loading mode, use LazySplit", string(role))
	}
	t, ok := tensors[role]
	if !ok {
		return nil, errors.Wrap(errors.ErrEmptyData, "DataHandler: no snapshots with role "+string(role))
	}
	return t, nil
}

// LazySplit returns the lazy dataset of one split. Only available in
// lazy-loading mode after PrepareData.
func (h *DataHandler) LazySplit(role Role) (*LazyDataset, error) {
	if !h.prepared {
		return nil, errors.NewNotFittedError("DataHandler", "LazySplit")
	}
	if !h.p.Data.UseLazyLoading {
		return nil, errors.NewConfigurationError("DataHandler",
			"LazySplit requires lazy-loading mode", string(role))
	}
	return h.lazy[role], nil
}

// SnapshotCalculationOutput loads snapshot i's raw target grid into an LDOS
// calculator, bypassing tensor scaling. The returned calculator derives the
// physical ground truth (band energy, electron count, total energy) used to
// validate predictions.
func (h *DataHandler) SnapshotCalculationOutput(i int) (*targets.LDOS, error) {
	if i < 0 || i >= len(h.snapshots) {
		return nil, errors.NewConfigurationError("DataHandler",
			"snapshot index out of range", i)
	}
	grid, err := h.snapshots[i].LoadTarget()
	if err != nil {
		return nil, err
	}
	ldos := targets.NewLDOS(h.p)
	if grid.Features != ldos.FeatureSize() {
		return nil, errors.NewShapeMismatchError("DataHandler.SnapshotCalculationOutput",
			[]int{ldos.FeatureSize()}, []int{grid.Features}, h.snapshots[i].Name)
	}
	if err := ldos.ReadFromArray(grid.Data, grid.Dims); err != nil {
		return nil, err
	}
	return ldos, nil
}

func copyRows(dst *mat.Dense, offset int, src mat.Matrix) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(offset+i, j, src.At(i, j))
		}
	}
}
