package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Save serializes a component (a struct with exported state, e.g. a fitted
// scaler) to a file using gob encoding.
//
// Example:
//
//	scaler := preprocessing.NewDataScaler(...)
//	// ... fitting ...
//	err := model.Save(scaler, "scaler.gob")
func Save(component interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(component); err != nil {
		return fmt.Errorf("failed to encode component: %w", err)
	}

	return nil
}

// Load deserializes a component previously written with Save.
// The target must be a pointer to a struct of the same type.
func Load(component interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(component); err != nil {
		return fmt.Errorf("failed to decode component: %w", err)
	}

	return nil
}

// SaveTo and LoadFrom are io.Writer/io.Reader variants, used by the
// compressed snapshot storage format.

// SaveTo gob-encodes a component to the given writer.
func SaveTo(component interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(component); err != nil {
		return fmt.Errorf("failed to encode component: %w", err)
	}
	return nil
}

// LoadFrom gob-decodes a component from the given reader.
func LoadFrom(component interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(component); err != nil {
		return fmt.Errorf("failed to decode component: %w", err)
	}
	return nil
}
