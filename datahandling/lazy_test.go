package datahandling

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lazyHandler(t *testing.T, seed int64) *DataHandler {
	t.Helper()
	p := testParams()
	p.Data.UseLazyLoading = true
	p.Data.ShuffleSeed = seed
	rng := rand.New(rand.NewSource(seed))
	dims := [3]int{3, 3, 3}

	h := NewDataHandler(p)
	for _, name := range []string{"tr0", "tr1", "tr2"} {
		require.NoError(t, h.AddSnapshot(memorySnapshot(rng, name, RoleTrain, dims, 4, 11)))
	}
	require.NoError(t, h.AddSnapshot(memorySnapshot(rng, "va0", RoleValidation, dims, 4, 11)))
	require.NoError(t, h.PrepareData())
	return h
}

func TestLazyModeBlocksMaterializedAccess(t *testing.T) {
	h := lazyHandler(t, 42)
	_, err := h.TrainingInputs()
	require.Error(t, err)
}

func TestLazyDatasetCounts(t *testing.T) {
	h := lazyHandler(t, 42)

	train, err := h.LazySplit(RoleTrain)
	require.NoError(t, err)
	assert.Equal(t, 81, train.Len()) // three snapshots of 27 points

	// 27 points per snapshot at batch size 7: 4 minibatches each.
	assert.Equal(t, 12, train.MinibatchCount())

	val, err := h.LazySplit(RoleValidation)
	require.NoError(t, err)
	assert.Equal(t, 27, val.Len())
}

func TestLazyDatasetEpochInvariants(t *testing.T) {
	h := lazyHandler(t, 42)
	train, err := h.LazySplit(RoleTrain)
	require.NoError(t, err)

	// Epochs change the enumeration order only: the total count, minibatch
	// count and batch shapes stay fixed.
	for epoch := 0; epoch < 3; epoch++ {
		train.StartEpoch(epoch)
		assert.Equal(t, 81, train.Len())
		assert.Equal(t, 12, train.MinibatchCount())

		total := 0
		for k := 0; k < train.MinibatchCount(); k++ {
			in, out, err := train.Minibatch(k)
			require.NoError(t, err)
			rIn, cIn := in.Dims()
			rOut, cOut := out.Dims()
			assert.Equal(t, rIn, rOut)
			assert.Equal(t, 4, cIn)
			assert.Equal(t, 11, cOut)
			assert.LessOrEqual(t, rIn, 7)
			total += rIn
		}
		assert.Equal(t, 81, total)
	}
}

func TestLazyDatasetShuffleIsDeterministic(t *testing.T) {
	// Two handlers with the same seed enumerate identically.
	a := lazyHandler(t, 7)
	b := lazyHandler(t, 7)

	trainA, err := a.LazySplit(RoleTrain)
	require.NoError(t, err)
	trainB, err := b.LazySplit(RoleTrain)
	require.NoError(t, err)

	trainA.StartEpoch(1)
	trainB.StartEpoch(1)
	for k := 0; k < trainA.MinibatchCount(); k++ {
		inA, _, err := trainA.Minibatch(k)
		require.NoError(t, err)
		inB, _, err := trainB.Minibatch(k)
		require.NoError(t, err)
		assert.Equal(t, inA.RawMatrix().Data, inB.RawMatrix().Data, "minibatch %d", k)
	}
}

func TestLazyDatasetOutOfRange(t *testing.T) {
	h := lazyHandler(t, 42)
	train, err := h.LazySplit(RoleTrain)
	require.NoError(t, err)
	_, _, err = train.Minibatch(-1)
	require.Error(t, err)
	_, _, err = train.Minibatch(train.MinibatchCount())
	require.Error(t, err)
}

func TestLazySplitUnavailableInEagerMode(t *testing.T) {
	p := testParams()
	rng := rand.New(rand.NewSource(1))
	h := NewDataHandler(p)
	require.NoError(t, h.AddSnapshot(memorySnapshot(rng, "tr0", RoleTrain, [3]int{3, 3, 3}, 4, 11)))
	require.NoError(t, h.PrepareData())

	_, err := h.LazySplit(RoleTrain)
	require.Error(t, err)
}
