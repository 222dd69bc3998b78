package targets

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/matml/dftgo/atoms"
	"github.com/matml/dftgo/pkg/errors"
	"github.com/matml/dftgo/units"
)

// ReadAdditionalCalculationData parses the self-consistent-field output file
// of the external DFT code and extracts the scalar and structural context
// needed for total-energy composition: electron count, Fermi energy, cell,
// atom positions, FFT grid dimensions and the energy contributions that the
// code prints (Ewald, Hartree, exchange-correlation), all converted to the
// internal eV/Angstrom conventions.
//
// The parser is line-oriented and tolerant of unrelated content; a file that
// yields no electron count is rejected as malformed rather than silently
// defaulted.
func ReadAdditionalCalculationData(path string) (acd *AdditionalCalculationData, err error) {
	defer errors.Recover(&err, "ReadAdditionalCalculationData")

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "ReadAdditionalCalculationData")
	}
	defer file.Close()

	acd = &AdditionalCalculationData{}
	config := &atoms.Configuration{PBC: [3]bool{true, true, true}}

	var (
		alatBohr      float64
		haveElectrons bool
		haveCell      bool
		ewald         float64
		hartree       float64
		xc            float64
		haveEwald     bool
		haveHartree   bool
		haveXC        bool
	)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.Contains(line, "lattice parameter (alat)"):
			v, err := floatAfter(line, "=")
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable lattice parameter")
			}
			alatBohr = v

		case strings.Contains(line, "number of electrons"):
			v, err := floatAfter(line, "=")
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable electron count")
			}
			acd.NumberOfElectrons = v
			haveElectrons = true

		case strings.Contains(line, "the Fermi energy is"):
			fields := strings.Fields(line)
			// "the Fermi energy is   7.7386 ev"
			if len(fields) < 5 {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable Fermi energy")
			}
			v, err := strconv.ParseFloat(fields[len(fields)-2], 64)
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable Fermi energy")
			}
			acd.FermiEnergyEV = v

		case strings.Contains(line, "FFT dimensions:"):
			dims, err := parseFFTDimensions(line)
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable FFT dimensions")
			}
			acd.GridDimensions = dims

		case strings.Contains(line, "crystal axes:"):
			if alatBohr == 0 {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "crystal axes before lattice parameter")
			}
			for i := 0; i < 3; i++ {
				if !scanner.Scan() {
					return nil, errors.NewIOFormatError(path, "scf output", lineNo, "truncated crystal axes block")
				}
				lineNo++
				vec, err := parseAxisLine(scanner.Text())
				if err != nil {
					return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable crystal axis")
				}
				for j := 0; j < 3; j++ {
					config.Cell[i][j] = vec[j] * alatBohr * units.BohrToAngstrom
				}
			}
			haveCell = true

		case strings.Contains(line, "!") && strings.Contains(line, "total energy"):
			v, err := floatAfter(line, "=")
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable total energy")
			}
			acd.TotalEnergyEV = v * units.RydbergToEV

		case strings.Contains(line, "ewald contribution"):
			v, err := floatAfter(line, "=")
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable ewald contribution")
			}
			ewald, haveEwald = v*units.RydbergToEV, true

		case strings.Contains(line, "hartree contribution"):
			v, err := floatAfter(line, "=")
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable hartree contribution")
			}
			hartree, haveHartree = v*units.RydbergToEV, true

		case strings.Contains(line, "xc contribution"):
			v, err := floatAfter(line, "=")
			if err != nil {
				return nil, errors.NewIOFormatError(path, "scf output", lineNo, "unparseable xc contribution")
			}
			xc, haveXC = v*units.RydbergToEV, true

		case strings.Contains(line, "site n.") && strings.Contains(line, "positions"):
			inAlat := strings.Contains(line, "alat units")
			for scanner.Scan() {
				lineNo++
				symbol, pos, ok := parsePositionLine(scanner.Text())
				if !ok {
					break
				}
				if inAlat {
					for j := 0; j < 3; j++ {
						pos[j] *= alatBohr * units.BohrToAngstrom
					}
				}
				config.Symbols = append(config.Symbols, symbol)
				config.Positions = append(config.Positions, pos)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "ReadAdditionalCalculationData")
	}

	if !haveElectrons {
		return nil, errors.NewIOFormatError(path, "scf output", 0, "no electron count found")
	}
	if haveCell {
		acd.Atoms = config
	}
	// The rho*v_hxc term is only available from the external total-energy
	// module, so the contributions are attached only when all printed
	// pieces are present and the caller supplies the missing one.
	if haveEwald && haveHartree && haveXC {
		acd.EwaldEnergyEV = ewald
		acd.HartreeEnergyEV = hartree
		acd.XCEnergyEV = xc
	}
	return acd, nil
}

func floatAfter(line, sep string) (float64, error) {
	idx := strings.Index(line, sep)
	if idx < 0 {
		return 0, errors.New("separator not found")
	}
	fields := strings.Fields(line[idx+len(sep):])
	if len(fields) == 0 {
		return 0, errors.New("no value after separator")
	}
	return strconv.ParseFloat(fields[0], 64)
}

// parseFFTDimensions parses "FFT dimensions: (  36,  36,  36)".
func parseFFTDimensions(line string) ([3]int, error) {
	var dims [3]int
	open := strings.Index(line, "(")
	close := strings.Index(line, ")")
	if open < 0 || close < open {
		return dims, errors.New("no parenthesized dimensions")
	}
	parts := strings.Split(line[open+1:close], ",")
	if len(parts) != 3 {
		return dims, errors.New("expected three dimensions")
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return dims, err
		}
		dims[i] = v
	}
	return dims, nil
}

// parseAxisLine parses "a(1) = (   1.000000   0.000000   0.000000 )".
func parseAxisLine(line string) ([3]float64, error) {
	var vec [3]float64
	open := strings.Index(line, "(")
	// skip the "a(1)" parenthesis
	if open >= 0 {
		next := strings.Index(line[open+1:], "(")
		if next >= 0 {
			open = open + 1 + next
		}
	}
	close := strings.LastIndex(line, ")")
	if open < 0 || close < open {
		return vec, errors.New("no parenthesized vector")
	}
	fields := strings.Fields(line[open+1 : close])
	if len(fields) != 3 {
		return vec, errors.New("expected three components")
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return vec, err
		}
		vec[i] = v
	}
	return vec, nil
}

// parsePositionLine parses one atom line of the positions block:
//
//	"1  Al  tau(  1) = (  0.0000000  0.0000000  0.0000000  )"
func parsePositionLine(line string) (string, [3]float64, bool) {
	var pos [3]float64
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", pos, false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return "", pos, false
	}
	symbol := fields[1]

	open := strings.LastIndex(line, "(")
	close := strings.LastIndex(line, ")")
	if open < 0 || close < open {
		return "", pos, false
	}
	comps := strings.Fields(line[open+1 : close])
	if len(comps) != 3 {
		return "", pos, false
	}
	for i, c := range comps {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return "", pos, false
		}
		pos[i] = v
	}
	return symbol, pos, true
}
