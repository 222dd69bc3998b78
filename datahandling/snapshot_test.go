package datahandling

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridArrayRoundTripGob(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	grid := &GridArray{Dims: [3]int{2, 3, 4}, Features: 5, Data: make([]float64, 2*3*4*5)}
	for i := range grid.Data {
		grid.Data[i] = rng.NormFloat64()
	}

	for _, format := range []StorageFormat{FormatGob, FormatGzipGob} {
		path := filepath.Join(t.TempDir(), "grid."+string(format))
		require.NoError(t, WriteGridArray(path, grid, format))

		loaded, err := ReadGridArray(path, format)
		require.NoError(t, err, "%s", format)
		assert.Equal(t, grid.Dims, loaded.Dims)
		assert.Equal(t, grid.Features, loaded.Features)
		assert.Equal(t, grid.Data, loaded.Data)
	}
}

func TestGridArrayMemoryFormatRejected(t *testing.T) {
	grid := &GridArray{Dims: [3]int{1, 1, 1}, Features: 1, Data: []float64{1}}
	err := WriteGridArray("x", grid, FormatMemory)
	require.Error(t, err)
	_, err = ReadGridArray("x", FormatMemory)
	require.Error(t, err)
}

func TestSnapshotLoadFileBacked(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dir := t.TempDir()
	dims := [3]int{2, 2, 2}

	in := &GridArray{Dims: dims, Features: 3, Data: make([]float64, 8*3)}
	out := &GridArray{Dims: dims, Features: 4, Data: make([]float64, 8*4)}
	for i := range in.Data {
		in.Data[i] = rng.NormFloat64()
	}
	inPath := filepath.Join(dir, "in.gob.gz")
	outPath := filepath.Join(dir, "out.gob.gz")
	require.NoError(t, WriteGridArray(inPath, in, FormatGzipGob))
	require.NoError(t, WriteGridArray(outPath, out, FormatGzipGob))

	s := &Snapshot{
		Name:           "snap",
		DescriptorPath: inPath,
		TargetPath:     outPath,
		Role:           RoleTrain,
		Format:         FormatGzipGob,
	}
	gotIn, err := s.LoadDescriptor()
	require.NoError(t, err)
	assert.Equal(t, in.Data, gotIn.Data)

	gotOut, err := s.LoadTarget()
	require.NoError(t, err)
	assert.Equal(t, dims, gotOut.Dims)
}

func TestSnapshotMemoryLoadValidates(t *testing.T) {
	s := &Snapshot{Name: "bad", Role: RoleTrain, Format: FormatMemory}
	_, err := s.LoadDescriptor()
	require.Error(t, err, "missing payload")

	s.DescriptorData = &GridArray{Dims: [3]int{2, 2, 2}, Features: 3, Data: make([]float64, 5)}
	_, err = s.LoadDescriptor()
	require.Error(t, err, "inconsistent payload")
}

func TestManifestRoundTrip(t *testing.T) {
	snaps := []*Snapshot{
		{Name: "s0", DescriptorPath: "in0.gob", TargetPath: "out0.gob", Role: RoleTrain, Format: FormatGob},
		{Name: "s1", DescriptorPath: "in1.gob.gz", TargetPath: "out1.gob.gz", Role: RoleValidation, Format: FormatGzipGob},
		{Name: "s2", DescriptorPath: "in2.gob", TargetPath: "out2.gob", Role: RoleTest, Format: FormatGob},
	}

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, SaveManifest(path, snaps))

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, s := range loaded {
		assert.Equal(t, snaps[i].Name, s.Name, "order preserved")
		assert.Equal(t, snaps[i].Role, s.Role)
		assert.Equal(t, snaps[i].Format, s.Format)
		assert.Equal(t, snaps[i].DescriptorPath, s.DescriptorPath)
		assert.Equal(t, snaps[i].TargetPath, s.TargetPath)
	}
}

func TestManifestRejectsMemorySnapshots(t *testing.T) {
	err := SaveManifest(filepath.Join(t.TempDir(), "m.json"),
		[]*Snapshot{{Name: "mem", Role: RoleTrain, Format: FormatMemory}})
	require.Error(t, err)
}

func TestLoadManifestRejectsUnknownRole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	payload := `[{"name":"x","descriptor_path":"a","target_path":"b","role":"holdout","format":"gob"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	_, err := LoadManifest(path)
	require.Error(t, err)
}
