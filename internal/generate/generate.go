package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Artifact is a file written by a generator.
type Artifact struct {
	// Path is the logical path relative to the bundle root.
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Generator writes files into a bundle root.
type Generator interface {
	// Name identifies the generator in logs.
	Name() string

	// Generate writes its files below root. A nil or empty blob disables
	// the generator.
	Generate(ctx context.Context, root string, blob json.RawMessage) ([]Artifact, error)
}

// decodeBlob strictly decodes a generator blob. It reports false for an
// empty blob.
func decodeBlob(name string, blob json.RawMessage, v any) (bool, error) {
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return false, fmt.Errorf("%s: invalid settings: %w", name, err)
	}
	return true, nil
}
