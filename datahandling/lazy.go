package datahandling

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/preprocessing"
)

// LazyDataset is a finite, restartable sequence of scaled minibatches over
// the snapshots of one split. Split membership is fixed when the dataset is
// built and never changes; StartEpoch shuffles only the enumeration order of
// snapshots, so every epoch yields the same total count and the same
// per-index membership. Minibatches never cross snapshot boundaries, and
// only the snapshot backing the requested minibatch is materialized.
type LazyDataset struct {
	p         *params.Data
	role      Role
	snapshots []*Snapshot // split members, in registration order
	points    []int       // samples per member

	inScaler  *preprocessing.DataScaler
	outScaler *preprocessing.DataScaler

	order   []int // epoch enumeration of split members
	batches []batchRef

	// Single-snapshot cache: minibatch access is sequential in the common
	// case, so one cached load covers a whole snapshot's batches.
	cachedIdx int
	cachedIn  *mat.Dense
	cachedOut *mat.Dense
}

// batchRef locates one minibatch inside a split member.
type batchRef struct {
	member int // index into order
	offset int // first row
	rows   int
}

func newLazyDataset(p *params.Parameters, all []*Snapshot, role Role,
	pointsPerSnapshot int, inScaler, outScaler *preprocessing.DataScaler) (*LazyDataset, error) {

	ds := &LazyDataset{
		p:         &p.Data,
		role:      role,
		inScaler:  inScaler,
		outScaler: outScaler,
		cachedIdx: -1,
	}
	// Shapes were validated during preparation: every snapshot shares the
	// same spatial grid, so the sample count needs no load here.
	for _, s := range all {
		if s.Role != role {
			continue
		}
		ds.snapshots = append(ds.snapshots, s)
		ds.points = append(ds.points, pointsPerSnapshot)
	}

	ds.order = make([]int, len(ds.snapshots))
	for i := range ds.order {
		ds.order[i] = i
	}
	ds.rebuildBatches()
	return ds, nil
}

// Len returns the total sample count of the split.
func (d *LazyDataset) Len() int {
	total := 0
	for _, n := range d.points {
		total += n
	}
	return total
}

// Role returns the split this dataset enumerates.
func (d *LazyDataset) Role() Role { return d.role }

// MinibatchCount returns the number of minibatches per epoch.
func (d *LazyDataset) MinibatchCount() int { return len(d.batches) }

// StartEpoch reshuffles the snapshot enumeration order deterministically
// from the configured seed and the epoch number. Split membership and the
// total sample count are unaffected.
func (d *LazyDataset) StartEpoch(epoch int) {
	rng := rand.New(rand.NewSource(d.p.ShuffleSeed + int64(epoch)))
	rng.Shuffle(len(d.order), func(i, j int) {
		d.order[i], d.order[j] = d.order[j], d.order[i]
	})
	d.rebuildBatches()
	d.cachedIdx = -1
}

// Minibatch materializes the k-th minibatch of the current epoch, returning
// the scaled descriptor and target rows.
func (d *LazyDataset) Minibatch(k int) (*mat.Dense, *mat.Dense, error) {
	if k < 0 || k >= len(d.batches) {
		return nil, nil, errors.NewConfigurationError("LazyDataset",
			"minibatch index out of range", k)
	}
	ref := d.batches[k]
	snapIdx := d.order[ref.member]
	if err := d.ensureLoaded(snapIdx); err != nil {
		return nil, nil, err
	}

	in := d.cachedIn.Slice(ref.offset, ref.offset+ref.rows, 0, d.cachedIn.RawMatrix().Cols)
	out := d.cachedOut.Slice(ref.offset, ref.offset+ref.rows, 0, d.cachedOut.RawMatrix().Cols)
	return mat.DenseCopyOf(in), mat.DenseCopyOf(out), nil
}

func (d *LazyDataset) ensureLoaded(snapIdx int) error {
	if d.cachedIdx == snapIdx {
		return nil
	}
	s := d.snapshots[snapIdx]
	in, err := s.LoadDescriptor()
	if err != nil {
		return err
	}
	out, err := s.LoadTarget()
	if err != nil {
		return err
	}
	scaledIn, err := d.inScaler.Transform(in.Matrix())
	if err != nil {
		return err
	}
	scaledOut, err := d.outScaler.Transform(out.Matrix())
	if err != nil {
		return err
	}
	d.cachedIn = mat.DenseCopyOf(scaledIn)
	d.cachedOut = mat.DenseCopyOf(scaledOut)
	d.cachedIdx = snapIdx
	return nil
}

func (d *LazyDataset) rebuildBatches() {
	d.batches = d.batches[:0]
	batch := d.p.BatchSize
	for member, snapIdx := range d.order {
		n := d.points[snapIdx]
		for off := 0; off < n; off += batch {
			rows := batch
			if off+rows > n {
				rows = n - off
			}
			d.batches = append(d.batches, batchRef{member: member, offset: off, rows: rows})
		}
	}
}
