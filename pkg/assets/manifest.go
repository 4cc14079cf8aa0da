// Package assets reads and writes the bundle manifest.
//
// After a build, vbundle writes bundle-manifest.json to the output root. It
// maps every transformed source path to the variants emitted for it, so
// that HTML and CSS references can be rewritten by downstream tooling:
//
//	{
//	  "version": 1,
//	  "entries": {
//	    "img/logo.png": [
//	      {"path": "img/logo-192w.webp", "format": "webp", "width": 192, "height": 192, "size": 2210},
//	      {"path": "img/logo-192w.png", "format": "png", "width": 192, "height": 192, "size": 9120}
//	    ]
//	  }
//	}
//
// This package loads that manifest and resolves sources to a fallback
// variant or a srcset:
//
//	manifest, _ := assets.Load("dist/bundle-manifest.json")
//	resolver := assets.NewResolver(manifest, "/")
//
//	resolver.Asset("img/logo.png")          // "/img/logo-512w.png"
//	manifest.SrcSet("img/logo.png", "webp") // "img/logo-192w.webp 192w, img/logo-512w.webp 512w"
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// FileName is the manifest's file name in the output root.
const FileName = "bundle-manifest.json"

const manifestVersion = 1

// Variant is one emitted file for a source.
type Variant struct {
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Size   int64  `json:"size"`
}

// Manifest maps source paths to their variants.
// It is safe for concurrent use.
type Manifest struct {
	entries map[string][]Variant
	mu      sync.RWMutex
}

type document struct {
	Version int                  `json:"version"`
	Entries map[string][]Variant `json:"entries"`
}

// NewManifest creates an empty manifest.
// Use Load() to create a manifest from a JSON file.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string][]Variant),
	}
}

// Load reads a bundle-manifest.json file and returns a Manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", doc.Version)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string][]Variant)
	}

	return &Manifest{entries: doc.Entries}, nil
}

// Save writes the manifest. Keys and variants are written in a stable
// order.
func (m *Manifest) Save(path string) error {
	data, err := m.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// MarshalJSON implements json.Marshaler.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// encoding/json sorts map keys.
	return json.MarshalIndent(document{Version: manifestVersion, Entries: m.entries}, "", "  ")
}

// Set replaces the variants of source.
func (m *Manifest) Set(source string, variants []Variant) {
	sorted := append([]Variant(nil), variants...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Width != sorted[j].Width {
			return sorted[i].Width < sorted[j].Width
		}
		return sorted[i].Path < sorted[j].Path
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[source] = sorted
}

// Delete removes source from the manifest.
func (m *Manifest) Delete(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, source)
}

// Variants returns a copy of the variants of source.
func (m *Manifest) Variants(source string) []Variant {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Variant(nil), m.entries[source]...)
}

// Resolve returns the fallback variant path for source: the widest variant
// in a universally supported format (JPEG or PNG), else the widest variant.
// If source has no variants, it is returned unchanged.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	variants := m.entries[source]
	if len(variants) == 0 {
		return source
	}
	best := -1
	bestUniversal := false
	for i, v := range variants {
		universal := v.Format == "jpeg" || v.Format == "png"
		switch {
		case best < 0,
			universal && !bestUniversal,
			universal == bestUniversal && v.Width > variants[best].Width:
			best, bestUniversal = i, universal
		}
	}
	return variants[best].Path
}

// SrcSet returns a srcset attribute value for the variants of source in
// format, ascending by width.
func (m *Manifest) SrcSet(source, format string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var parts []string
	for _, v := range m.entries[source] {
		if v.Format == format && v.Width > 0 {
			parts = append(parts, fmt.Sprintf("%s %dw", v.Path, v.Width))
		}
	}
	return strings.Join(parts, ", ")
}

// Has returns true if the manifest contains the given source path.
func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[source]
	return ok
}

// Len returns the number of sources in the manifest.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Sources returns the source paths, sorted.
func (m *Manifest) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
