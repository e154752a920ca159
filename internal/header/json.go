package header

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/banshee-data/mosaic.offsets/internal/fsutil"
)

// LoadJSON reads a batch stored as a JSON array of keyword objects.
func LoadJSON(fsys fsutil.FileSystem, path string) (Batch, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read header batch: %w", err)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a JSON array of keyword objects.
func ParseJSON(data []byte) (Batch, error) {
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse header batch JSON: %w", err)
	}
	for i, rec := range batch {
		if rec == nil {
			return nil, fmt.Errorf("header %d is null", i)
		}
	}
	return batch, nil
}

// WriteJSON encodes batch as an indented JSON array.
func WriteJSON(w io.Writer, batch Batch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return fmt.Errorf("failed to encode header batch: %w", err)
	}
	return nil
}
