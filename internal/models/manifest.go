package models

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
)

//go:embed embedded_manifest.json
var embeddedManifest []byte

// Variant describes one downloadable ggml model build.
type Variant struct {
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	// SHA256 is verified after download when non-empty; the update_manifest
	// tool fills it in.
	SHA256    string `json:"sha256,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// Manifest maps variant names (base, small, medium, ...) to model builds.
type Manifest struct {
	Variants map[string]Variant `json:"variants"`
}

// DefaultManifest parses the manifest embedded in the binary.
func DefaultManifest() (Manifest, error) {
	return LoadManifest(bytes.NewReader(embeddedManifest))
}

// LoadManifest decodes a manifest from r.
func LoadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("models: decode manifest: %w", err)
	}
	if len(m.Variants) == 0 {
		return Manifest{}, fmt.Errorf("models: manifest has no variants")
	}
	return m, nil
}
