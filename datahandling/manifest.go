package datahandling

import (
	"encoding/json"
	"os"

	"github.com/matml/dftgo/pkg/errors"
)

// snapshotRecord is the JSON wire form of one manifest entry.
type snapshotRecord struct {
	Name           string `json:"name"`
	DescriptorPath string `json:"descriptor_path"`
	TargetPath     string `json:"target_path"`
	Role           string `json:"role"`
	Format         string `json:"format"`
}

// SaveManifest writes an ordered snapshot manifest as JSON. Only file-backed
// snapshots can be listed; in-memory payloads have no stable identity across
// processes.
func SaveManifest(path string, snapshots []*Snapshot) error {
	records := make([]snapshotRecord, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Format == FormatMemory {
			return errors.NewConfigurationError("manifest",
				"in-memory snapshots cannot be listed in a manifest", s.Name)
		}
		records = append(records, snapshotRecord{
			Name:           s.Name,
			DescriptorPath: s.DescriptorPath,
			TargetPath:     s.TargetPath,
			Role:           string(s.Role),
			Format:         string(s.Format),
		})
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "SaveManifest")
	}
	return errors.Wrap(os.WriteFile(path, payload, 0o644), "SaveManifest")
}

// LoadManifest reads a manifest written by SaveManifest, preserving snapshot
// order and roles.
func LoadManifest(path string) ([]*Snapshot, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "LoadManifest")
	}

	var records []snapshotRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, errors.NewIOFormatError(path, "manifest", 0, "not a JSON snapshot list")
	}

	snapshots := make([]*Snapshot, 0, len(records))
	for i, rec := range records {
		role := Role(rec.Role)
		if !role.Valid() {
			return nil, errors.NewIOFormatError(path, "manifest", i, "unknown role "+rec.Role)
		}
		format := StorageFormat(rec.Format)
		if !format.Valid() || format == FormatMemory {
			return nil, errors.NewIOFormatError(path, "manifest", i, "unknown storage format "+rec.Format)
		}
		snapshots = append(snapshots, &Snapshot{
			Name:           rec.Name,
			DescriptorPath: rec.DescriptorPath,
			TargetPath:     rec.TargetPath,
			Role:           role,
			Format:         format,
		})
	}
	return snapshots, nil
}
