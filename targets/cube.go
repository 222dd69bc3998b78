package targets

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matml/dftgo/pkg/errors"
)

// CubeAtom is one atom record of a cube file header. Position is in Bohr,
// as the format prescribes.
type CubeAtom struct {
	Number   int
	Charge   float64
	Position [3]float64
}

// CubeMeta is the header of a volumetric cube file: origin and voxel vectors
// in Bohr, grid dimensions and the atom list.
type CubeMeta struct {
	Comment [2]string
	Origin  [3]float64
	Dims    [3]int
	Voxel   [3][3]float64
	Atoms   []CubeAtom
}

// ReadCube reads a volumetric grid from a cube file. The returned data is
// flattened with z fastest (the format's storage order), length
// nx*ny*nz.
func ReadCube(path string) (data []float64, meta *CubeMeta, err error) {
	defer errors.Recover(&err, "ReadCube")

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "ReadCube")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	meta = &CubeMeta{}
	lineNo := 0

	nextLine := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", errors.Wrap(err, "ReadCube")
			}
			return "", errors.NewIOFormatError(path, "cube", lineNo, "unexpected end of file")
		}
		lineNo++
		return scanner.Text(), nil
	}

	for i := 0; i < 2; i++ {
		line, err := nextLine()
		if err != nil {
			return nil, nil, err
		}
		meta.Comment[i] = line
	}

	// Atom count and origin.
	line, err := nextLine()
	if err != nil {
		return nil, nil, err
	}
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed atom count line")
	}
	nAtoms, err := strconv.Atoi(fields[0])
	if err != nil || nAtoms < 0 {
		return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed atom count")
	}
	for j := 0; j < 3; j++ {
		v, err := strconv.ParseFloat(fields[j+1], 64)
		if err != nil {
			return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed origin")
		}
		meta.Origin[j] = v
	}

	// Grid dimensions and voxel vectors.
	for axis := 0; axis < 3; axis++ {
		line, err := nextLine()
		if err != nil {
			return nil, nil, err
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed voxel line")
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n <= 0 {
			return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed grid dimension")
		}
		meta.Dims[axis] = n
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed voxel vector")
			}
			meta.Voxel[axis][j] = v
		}
	}

	// Atom records.
	meta.Atoms = make([]CubeAtom, 0, nAtoms)
	for i := 0; i < nAtoms; i++ {
		line, err := nextLine()
		if err != nil {
			return nil, nil, err
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed atom record")
		}
		var atom CubeAtom
		atom.Number, err = strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed atomic number")
		}
		atom.Charge, err = strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed atom charge")
		}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(fields[j+2], 64)
			if err != nil {
				return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed atom position")
			}
			atom.Position[j] = v
		}
		meta.Atoms = append(meta.Atoms, atom)
	}

	// Volumetric data, whitespace-separated, z fastest.
	total := meta.Dims[0] * meta.Dims[1] * meta.Dims[2]
	data = make([]float64, 0, total)
	for scanner.Scan() {
		lineNo++
		for _, f := range strings.Fields(scanner.Text()) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, nil, errors.NewIOFormatError(path, "cube", lineNo, "malformed grid value")
			}
			data = append(data, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "ReadCube")
	}
	if len(data) != total {
		return nil, nil, errors.NewIOFormatError(path, "cube", lineNo,
			fmt.Sprintf("expected %d grid values, found %d", total, len(data)))
	}
	return data, meta, nil
}

// WriteCube writes a volumetric grid to a cube file. data must be flattened
// with z fastest and have length matching meta.Dims. Values are written in
// the format's fixed-width scientific notation, six per line; a written file
// read back reproduces the grid within format precision.
func WriteCube(path string, data []float64, meta *CubeMeta) error {
	total := meta.Dims[0] * meta.Dims[1] * meta.Dims[2]
	if len(data) != total {
		return errors.NewShapeMismatchError("WriteCube",
			[]int{total}, []int{len(data)}, path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "WriteCube")
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	comment0 := meta.Comment[0]
	if comment0 == "" {
		comment0 = "Cube file written by dftgo"
	}
	fmt.Fprintf(w, "%s\n%s\n", comment0, meta.Comment[1])
	fmt.Fprintf(w, "%5d %11.6f %11.6f %11.6f\n",
		len(meta.Atoms), meta.Origin[0], meta.Origin[1], meta.Origin[2])
	for axis := 0; axis < 3; axis++ {
		fmt.Fprintf(w, "%5d %11.6f %11.6f %11.6f\n", meta.Dims[axis],
			meta.Voxel[axis][0], meta.Voxel[axis][1], meta.Voxel[axis][2])
	}
	for _, atom := range meta.Atoms {
		fmt.Fprintf(w, "%5d %11.6f %11.6f %11.6f %11.6f\n", atom.Number,
			atom.Charge, atom.Position[0], atom.Position[1], atom.Position[2])
	}
	for i, v := range data {
		fmt.Fprintf(w, " %13.6E", v)
		if (i+1)%6 == 0 {
			fmt.Fprintln(w)
		}
	}
	if total%6 != 0 {
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "WriteCube")
	}
	return nil
}
