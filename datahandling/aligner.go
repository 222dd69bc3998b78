package datahandling

import (
	"log/slog"

	"github.com/matml/dftgo/params"
	"github.com/matml/dftgo/pkg/errors"
	pkglog "github.com/matml/dftgo/pkg/log"
)

// LDOSAligner aligns the energy axes of several LDOS snapshot grids to a
// common reference. Snapshots computed with different energy windows place
// the spectral onset at different grid bins; the aligner shifts each
// snapshot by whole bins so the onsets coincide, then truncates the left
// edge (where shifted snapshots have no data) and optionally the right edge
// above a cutoff energy.
type LDOSAligner struct {
	p *params.Targets

	// ReferenceIndex selects the snapshot whose onset the others are
	// shifted to.
	ReferenceIndex int

	// OnsetThreshold is the fraction of a snapshot's peak mean spectrum
	// that counts as the spectral onset.
	OnsetThreshold float64

	// LeftTruncate drops this many extra bins from the left edge after
	// alignment.
	LeftTruncate int

	// RightTruncateEV drops bins above this energy when TruncateRight is
	// set.
	TruncateRight   bool
	RightTruncateEV float64
}

// NewLDOSAligner creates an aligner with the usual defaults: reference
// snapshot zero and a 1e-5 relative onset threshold.
func NewLDOSAligner(p *params.Parameters) *LDOSAligner {
	return &LDOSAligner{
		p:              &p.Targets,
		OnsetThreshold: 1e-5,
	}
}

// Align shifts every LDOS grid onto the reference snapshot's energy axis and
// truncates to the common window. All grids must share the configured
// feature size; the returned grids share a new, shorter energy grid, which
// is returned alongside.
func (a *LDOSAligner) Align(grids []*GridArray) ([]*GridArray, []float64, error) {
	if len(grids) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "LDOSAligner.Align")
	}
	if a.ReferenceIndex < 0 || a.ReferenceIndex >= len(grids) {
		return nil, nil, errors.NewConfigurationError("LDOSAligner.ReferenceIndex",
			"out of range", a.ReferenceIndex)
	}
	ne := a.p.LDOSGridSize
	for _, g := range grids {
		if g.Features != ne {
			return nil, nil, errors.NewShapeMismatchError("LDOSAligner.Align",
				[]int{ne}, []int{g.Features}, "energy grid")
		}
	}

	onsets := make([]int, len(grids))
	for i, g := range grids {
		onsets[i] = a.onsetBin(g)
	}
	refOnset := onsets[a.ReferenceIndex]

	// Shifting right leaves a zero-filled gap at the left edge; the largest
	// such gap bounds the usable window for every snapshot.
	maxShift := 0
	shifts := make([]int, len(grids))
	for i, onset := range onsets {
		shifts[i] = refOnset - onset
		if shifts[i] > maxShift {
			maxShift = shifts[i]
		}
		if -shifts[i] > maxShift {
			maxShift = -shifts[i]
		}
	}

	left := maxShift + a.LeftTruncate
	right := ne
	if a.TruncateRight {
		grid := a.p.EnergyGrid()
		for right > 0 && grid[right-1] > a.RightTruncateEV {
			right--
		}
	}
	right -= maxShift
	if left >= right {
		return nil, nil, errors.NewConfigurationError("LDOSAligner",
			"truncation leaves an empty energy window", [2]int{left, right})
	}

	newNE := right - left
	aligned := make([]*GridArray, len(grids))
	for i, g := range grids {
		points := g.Points()
		out := &GridArray{Dims: g.Dims, Features: newNE, Data: make([]float64, points*newNE)}
		shift := shifts[i]
		for pt := 0; pt < points; pt++ {
			src := g.Data[pt*ne : (pt+1)*ne]
			dst := out.Data[pt*newNE : (pt+1)*newNE]
			for j := 0; j < newNE; j++ {
				srcIdx := left + j - shift
				if srcIdx >= 0 && srcIdx < ne {
					dst[j] = src[srcIdx]
				}
			}
		}
		aligned[i] = out
	}

	fullGrid := a.p.EnergyGrid()
	newGrid := make([]float64, newNE)
	copy(newGrid, fullGrid[left:right])

	slog.Info("aligned LDOS energy axes",
		slog.String(pkglog.ComponentKey, "datahandling"),
		slog.String(pkglog.OperationKey, "ldos_align"),
		slog.Int("snapshots", len(grids)),
		slog.Int(pkglog.EnergyGridSizeKey, newNE),
		slog.Int("reference_onset", refOnset))
	return aligned, newGrid, nil
}

// onsetBin finds the first energy bin whose mean spectral weight exceeds the
// threshold fraction of the peak.
func (a *LDOSAligner) onsetBin(g *GridArray) int {
	ne := g.Features
	points := g.Points()
	mean := make([]float64, ne)
	for pt := 0; pt < points; pt++ {
		row := g.Data[pt*ne : (pt+1)*ne]
		for j, v := range row {
			mean[j] += v
		}
	}
	peak := 0.0
	for j := range mean {
		mean[j] /= float64(points)
		if mean[j] > peak {
			peak = mean[j]
		}
	}
	cut := a.OnsetThreshold * peak
	for j, v := range mean {
		if v > cut {
			return j
		}
	}
	return 0
}
