// Package log defines standard attribute keys for pipeline operations.
//
// Using these keys consistently makes logs from snapshot conversion, scaling
// and physical reconstruction filterable by the same fields everywhere.

package log

// Component and operation context.
const (
	// ComponentKey identifies which package is performing the operation.
	// Examples: "datahandling", "targets", "descriptors", "preprocessing"
	ComponentKey = "component"

	// OperationKey specifies the pipeline operation being performed.
	// Standard values: "prepare_data", "fit", "transform", "fermi_solve",
	// "total_energy", "read_cube"
	OperationKey = "operation"
)

// Snapshot and grid context.
const (
	// SnapshotKey identifies the snapshot being processed, usually the
	// descriptor file name.
	SnapshotKey = "snapshot"

	// RoleKey is the split role of a snapshot: "train", "validation", "test".
	RoleKey = "snapshot.role"

	// GridDimensionsKey holds the spatial grid dimensions [nx, ny, nz].
	GridDimensionsKey = "grid.dimensions"

	// GridPointsKey holds the flattened spatial grid point count.
	GridPointsKey = "grid.points"

	// FeaturesKey indicates the descriptor feature count per grid point.
	FeaturesKey = "grid.features"

	// EnergyGridSizeKey holds the number of energy samples of a DOS/LDOS.
	EnergyGridSizeKey = "energy_grid.size"
)

// Physical quantities.
const (
	// FermiEnergyKey holds a Fermi energy in eV.
	FermiEnergyKey = "fermi_energy_ev"

	// ElectronCountKey holds a (possibly fractional) electron count.
	ElectronCountKey = "electron_count"

	// BandEnergyKey holds a band energy in eV.
	BandEnergyKey = "band_energy_ev"

	// TotalEnergyKey holds a total energy in eV.
	TotalEnergyKey = "total_energy_ev"

	// TemperatureKey holds a temperature in K.
	TemperatureKey = "temperature_k"
)

// Performance metrics.
const (
	// DurationMsKey records elapsed wall time in milliseconds.
	DurationMsKey = "duration_ms"

	// IterationsKey records solver iterations used.
	IterationsKey = "iterations"
)
