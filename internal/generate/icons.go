package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/vango-dev/bundler/internal/codec"
	"github.com/vango-dev/bundler/internal/images"
)

// IconSettings configures the icon generator.
type IconSettings struct {
	// Source is the logical path of the source image.
	Source string `json:"source"`

	// Sizes are the square edge lengths to render.
	Sizes []int `json:"sizes,omitempty"`

	// Dir is the output directory, relative to the bundle root.
	Dir string `json:"dir,omitempty"`

	// Name is the file name prefix.
	Name string `json:"name,omitempty"`

	// Manifest writes a web app manifest icon list when set.
	Manifest string `json:"manifest,omitempty"`
}

// DefaultIconSizes are rendered when no sizes are configured.
var DefaultIconSizes = []int{16, 32, 180, 192, 512}

// ManifestIcon is one entry of a web app manifest "icons" list.
type ManifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// Icons renders a PNG icon set from a single source image.
type Icons struct {
	Codec codec.Codec
}

// Name implements Generator.
func (g *Icons) Name() string { return "icons" }

// Generate implements Generator.
func (g *Icons) Generate(ctx context.Context, root string, blob json.RawMessage) ([]Artifact, error) {
	var s IconSettings
	ok, err := decodeBlob(g.Name(), blob, &s)
	if err != nil || !ok {
		return nil, err
	}
	if s.Source == "" {
		return nil, fmt.Errorf("icons: source is required")
	}
	if len(s.Sizes) == 0 {
		s.Sizes = DefaultIconSizes
	}
	if s.Dir == "" {
		s.Dir = "icons"
	}
	if s.Name == "" {
		s.Name = "icon"
	}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(s.Source)))
	if err != nil {
		return nil, fmt.Errorf("icons: %w", err)
	}
	src, err := g.Codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("icons: %s: %w", s.Source, err)
	}
	orig := images.Size{Width: src.Bounds().Dx(), Height: src.Bounds().Dy()}

	var (
		artifacts []Artifact
		manifest  []ManifestIcon
	)
	for _, edge := range s.Sizes {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		if edge <= 0 {
			return artifacts, fmt.Errorf("icons: invalid size %d", edge)
		}
		size := orig.FitWithin(images.Size{Width: edge, Height: edge})
		encoded, err := g.Codec.Encode(ctx, g.Codec.Resize(src, size.Width, size.Height), images.PNG, codec.EncodeParams{Quality: 100, Lossless: true})
		if err != nil {
			return artifacts, fmt.Errorf("icons: %dpx: %w", edge, err)
		}

		logical := path.Join(s.Dir, fmt.Sprintf("%s-%d.png", s.Name, edge))
		a, err := writeArtifact(root, logical, encoded)
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, a)
		manifest = append(manifest, ManifestIcon{
			Src:   "/" + logical,
			Sizes: fmt.Sprintf("%dx%d", size.Width, size.Height),
			Type:  "image/png",
		})
	}

	if s.Manifest != "" {
		data, err := json.MarshalIndent(struct {
			Icons []ManifestIcon `json:"icons"`
		}{manifest}, "", "  ")
		if err != nil {
			return artifacts, err
		}
		a, err := writeArtifact(root, s.Manifest, append(data, '\n'))
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func writeArtifact(root, logical string, data []byte) (Artifact, error) {
	dst := filepath.Join(root, filepath.FromSlash(logical))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Artifact{}, err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: logical, Size: int64(len(data))}, nil
}
