// Package dftgo provides the data pipeline and physical post-processing for
// surrogate models of density functional theory calculations.
//
// The library converts volumetric model outputs (the local density of states
// on a real-space grid) back into physical observables: density of states,
// electronic density, self-consistent Fermi energy and total energy. Around
// that core it supplies the snapshot handling, scaling and lazy-loading
// machinery a training pipeline needs.
//
// # Quick Start
//
// Reconstructing observables from an LDOS:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/matml/dftgo/params"
//	    "github.com/matml/dftgo/targets"
//	)
//
//	func main() {
//	    p := params.New()
//	    ldos := targets.NewLDOS(p)
//	    if _, err := ldos.ReadFromCube("Al_ldos_*.cube"); err != nil {
//	        log.Fatal(err)
//	    }
//	    acd, err := targets.ReadAdditionalCalculationData("Al.pw.scf.out")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    ldos.AttachCalculationData(acd)
//
//	    eTotal, err := ldos.TotalEnergy()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("total energy [eV]:", eTotal)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - targets: LDOS, DOS and density observables plus the Fermi solve
//   - descriptors: grid descriptors (bispectrum, atomic density)
//   - datahandling: snapshots, lazy datasets, manifests, alignment
//   - preprocessing: incremental feature and target scaling
//   - quad: quadrature, broadening and analytic Fermi integrals
//   - atoms: atomic configurations and cell geometry
//   - params: run configuration
//   - metrics: regression metrics
//   - units: unit conversions between external codes and eV/Angstrom
//   - core/model: fitted-state management and persistence
//   - core/parallel: parallel processing utilities
//
// All energies are handled in eV and all lengths in Angstrom internally;
// the units package converts at the file boundaries.
package dftgo
