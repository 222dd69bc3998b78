// Package datahandling turns registered snapshots into the aligned, scaled
// tensors consumed by model training: snapshot registration and manifests,
// the two-pass preparation drive (scaler statistics, then materialized or
// lazy tensors) and the per-split views.
package datahandling

import (
	"compress/gzip"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/core/model"
	"github.com/matml/dftgo/pkg/errors"
)

// Role tags a snapshot's split membership.
type Role string

const (
	RoleTrain      Role = "train"
	RoleValidation Role = "validation"
	RoleTest       Role = "test"
)

// Valid reports whether the role is one of the three split tags.
func (r Role) Valid() bool {
	switch r {
	case RoleTrain, RoleValidation, RoleTest:
		return true
	}
	return false
}

// StorageFormat names how a snapshot's grids are stored.
type StorageFormat string

const (
	// FormatMemory keeps the grids as in-memory arrays on the snapshot.
	FormatMemory StorageFormat = "memory"
	// FormatGob stores each grid as a gob-encoded file.
	FormatGob StorageFormat = "gob"
	// FormatGzipGob stores each grid as a gzip-compressed gob file.
	FormatGzipGob StorageFormat = "gob.gz"
)

// Valid reports whether the format is implemented.
func (f StorageFormat) Valid() bool {
	switch f {
	case FormatMemory, FormatGob, FormatGzipGob:
		return true
	}
	return false
}

// GridArray is the serializable payload of one snapshot grid: a spatial grid
// of feature vectors, flattened row-wise with z fastest. Fields are exported
// for gob encoding.
type GridArray struct {
	Dims     [3]int
	Features int
	Data     []float64
}

// Points returns the spatial grid point count.
func (g *GridArray) Points() int { return g.Dims[0] * g.Dims[1] * g.Dims[2] }

// Matrix returns the (points x features) dense view of the grid. The matrix
// shares the underlying data.
func (g *GridArray) Matrix() *mat.Dense {
	return mat.NewDense(g.Points(), g.Features, g.Data)
}

// check verifies internal consistency of the payload.
func (g *GridArray) check(context string) error {
	points := g.Points()
	if points <= 0 || g.Features <= 0 || len(g.Data) != points*g.Features {
		return errors.NewShapeMismatchError(context,
			[]int{points, g.Features}, []int{len(g.Data)}, "grid payload")
	}
	return nil
}

// Snapshot pairs one descriptor source with one target source, a role and a
// storage format. Registration is cheap: file-backed formats are loaded only
// during preparation.
type Snapshot struct {
	// Name identifies the snapshot in logs and manifests.
	Name string

	// DescriptorPath and TargetPath locate file-backed grids. Empty for
	// in-memory snapshots.
	DescriptorPath string
	TargetPath     string

	Role   Role
	Format StorageFormat

	// In-memory payloads, set directly for FormatMemory and populated on
	// load for the file-backed formats when eager loading is active.
	DescriptorData *GridArray
	TargetData     *GridArray
}

// LoadDescriptor materializes the snapshot's descriptor grid.
func (s *Snapshot) LoadDescriptor() (*GridArray, error) {
	return s.load(s.DescriptorData, s.DescriptorPath, "descriptor")
}

// LoadTarget materializes the snapshot's target grid.
func (s *Snapshot) LoadTarget() (*GridArray, error) {
	return s.load(s.TargetData, s.TargetPath, "target")
}

func (s *Snapshot) load(inMemory *GridArray, path, kind string) (*GridArray, error) {
	if s.Format == FormatMemory {
		if inMemory == nil {
			return nil, errors.Wrap(errors.ErrEmptyData, "Snapshot."+kind)
		}
		if err := inMemory.check("Snapshot." + kind); err != nil {
			return nil, err
		}
		return inMemory, nil
	}
	grid, err := ReadGridArray(path, s.Format)
	if err != nil {
		return nil, err
	}
	if err := grid.check("Snapshot." + kind); err != nil {
		return nil, err
	}
	return grid, nil
}

// WriteGridArray serializes a grid payload in the given storage format.
func WriteGridArray(path string, grid *GridArray, format StorageFormat) error {
	switch format {
	case FormatGob:
		return model.Save(grid, path)
	case FormatGzipGob:
		file, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "WriteGridArray")
		}
		defer file.Close()
		zw := gzip.NewWriter(file)
		if err := model.SaveTo(grid, zw); err != nil {
			return errors.Wrap(err, "WriteGridArray")
		}
		return errors.Wrap(zw.Close(), "WriteGridArray")
	default:
		return errors.NewConfigurationError("storage_format",
			"not a file-backed storage format", string(format))
	}
}

// ReadGridArray deserializes a grid payload written by WriteGridArray.
func ReadGridArray(path string, format StorageFormat) (*GridArray, error) {
	grid := &GridArray{}
	switch format {
	case FormatGob:
		if err := model.Load(grid, path); err != nil {
			return nil, errors.Wrap(err, "ReadGridArray")
		}
	case FormatGzipGob:
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "ReadGridArray")
		}
		defer file.Close()
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, errors.NewIOFormatError(path, "gob.gz", 0, "not a gzip stream")
		}
		defer zr.Close()
		if err := model.LoadFrom(grid, zr); err != nil {
			return nil, errors.Wrap(err, "ReadGridArray")
		}
	default:
		return nil, errors.NewConfigurationError("storage_format",
			"not a file-backed storage format", string(format))
	}
	return grid, nil
}
