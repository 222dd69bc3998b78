package datahandling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matml/dftgo/params"
)

// shiftedGrid builds a one-point LDOS grid whose spectrum is a block of ones
// starting at the given bin.
func shiftedGrid(ne, onset, width int) *GridArray {
	g := &GridArray{Dims: [3]int{1, 1, 1}, Features: ne, Data: make([]float64, ne)}
	for j := onset; j < onset+width && j < ne; j++ {
		g.Data[j] = 1.0
	}
	return g
}

func alignerParams() *params.Parameters {
	p := params.New()
	p.Targets.LDOSGridSize = 40
	p.Targets.LDOSGridSpacingEV = 0.5
	p.Targets.LDOSGridOffsetEV = -10.0
	return p
}

func TestAlignShiftsOnsetsTogether(t *testing.T) {
	p := alignerParams()
	a := NewLDOSAligner(p)

	grids := []*GridArray{
		shiftedGrid(40, 10, 12), // reference
		shiftedGrid(40, 13, 12), // shifted right by 3 bins
		shiftedGrid(40, 8, 12),  // shifted left by 2 bins
	}

	aligned, newGrid, err := a.Align(grids)
	require.NoError(t, err)
	require.Len(t, aligned, 3)

	// All aligned spectra now start at the same bin.
	onset0 := firstNonzero(aligned[0].Data)
	for i := 1; i < 3; i++ {
		assert.Equal(t, onset0, firstNonzero(aligned[i].Data), "grid %d onset", i)
	}

	// The shared energy grid shrank by the truncated window and stays
	// uniform.
	assert.Equal(t, aligned[0].Features, len(newGrid))
	assert.Less(t, len(newGrid), 40)
	for j := 1; j < len(newGrid); j++ {
		assert.InDelta(t, 0.5, newGrid[j]-newGrid[j-1], 1e-12)
	}
}

func TestAlignLeftTruncate(t *testing.T) {
	p := alignerParams()
	a := NewLDOSAligner(p)
	a.LeftTruncate = 4

	grids := []*GridArray{shiftedGrid(40, 10, 20), shiftedGrid(40, 10, 20)}
	aligned, _, err := a.Align(grids)
	require.NoError(t, err)
	// No shifts needed, so exactly the extra truncation is removed.
	assert.Equal(t, 36, aligned[0].Features)
}

func TestAlignRightTruncate(t *testing.T) {
	p := alignerParams()
	a := NewLDOSAligner(p)
	a.TruncateRight = true
	a.RightTruncateEV = 0.0 // grid spans [-10, 9.5]; cut the positive half

	grids := []*GridArray{shiftedGrid(40, 5, 10), shiftedGrid(40, 5, 10)}
	aligned, newGrid, err := a.Align(grids)
	require.NoError(t, err)
	assert.LessOrEqual(t, newGrid[len(newGrid)-1], 0.0)
	assert.Equal(t, len(newGrid), aligned[0].Features)
}

func TestAlignRejectsBadInput(t *testing.T) {
	p := alignerParams()
	a := NewLDOSAligner(p)

	_, _, err := a.Align(nil)
	require.Error(t, err)

	a.ReferenceIndex = 5
	_, _, err = a.Align([]*GridArray{shiftedGrid(40, 5, 5)})
	require.Error(t, err)

	a.ReferenceIndex = 0
	_, _, err = a.Align([]*GridArray{{Dims: [3]int{1, 1, 1}, Features: 13, Data: make([]float64, 13)}})
	require.Error(t, err)
}

func firstNonzero(data []float64) int {
	for i, v := range data {
		if v != 0 {
			return i
		}
	}
	return -1
}
