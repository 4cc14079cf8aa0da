package codec

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/vango-dev/bundler/internal/images"
)

// ErrUnsupportedFormat is returned when no encoder or decoder is available
// for a format.
var ErrUnsupportedFormat = stderrors.New("codec: unsupported format")

// EncodeParams are encoder options.
type EncodeParams struct {
	// Quality is the encoder's native quality parameter.
	Quality int

	// Lossless selects the encoder's lossless mode when it has one.
	Lossless bool
}

// Codec decodes, resizes and encodes images.
type Codec interface {
	Decode(data []byte) (image.Image, error)
	Encode(ctx context.Context, img image.Image, format images.Format, p EncodeParams) ([]byte, error)
	Resize(img image.Image, width, height int) image.Image
}

// Tool is an external encoder or decoder binary.
type Tool struct {
	Path string

	// Args builds the command line for converting in to out.
	Args func(in, out string, p EncodeParams) []string
}

// DefaultEncoders are the external encoders used for formats Go cannot
// encode natively.
var DefaultEncoders = map[images.Format]Tool{
	images.WebP: {Path: "cwebp", Args: func(in, out string, p EncodeParams) []string {
		args := []string{"-quiet", "-mt", "-q", fmt.Sprint(p.Quality)}
		if p.Lossless {
			args = append(args, "-lossless")
		}
		return append(args, in, "-o", out)
	}},
	images.AVIF: {Path: "avifenc", Args: func(in, out string, p EncodeParams) []string {
		if p.Lossless {
			return []string{"--lossless", in, out}
		}
		return []string{"-q", fmt.Sprint(p.Quality), in, out}
	}},
	images.JXL: {Path: "cjxl", Args: func(in, out string, p EncodeParams) []string {
		q := p.Quality
		if p.Lossless {
			q = 100
		}
		return []string{in, out, "-q", fmt.Sprint(q)}
	}},
}

// DefaultDecoders convert formats Go cannot decode natively to PNG.
var DefaultDecoders = map[images.Format]Tool{
	images.AVIF: {Path: "avifdec", Args: func(in, out string, _ EncodeParams) []string {
		return []string{in, out}
	}},
	images.JXL: {Path: "djxl", Args: func(in, out string, _ EncodeParams) []string {
		return []string{in, out}
	}},
}

// Std is the default Codec.
type Std struct {
	Encoders map[images.Format]Tool
	Decoders map[images.Format]Tool

	// TempDir holds intermediate files for external tools.
	TempDir string
}

// NewStd creates a Std codec with the default external tools.
func NewStd() *Std {
	return &Std{Encoders: DefaultEncoders, Decoders: DefaultDecoders}
}

// Decode decodes JPEG, PNG, GIF and WebP natively, and AVIF and JPEG XL
// through external decoders.
func (c *Std) Decode(data []byte) (image.Image, error) {
	if f, ok := sniff(data); ok {
		tool, ok := c.Decoders[f]
		if !ok {
			return nil, fmt.Errorf("%w: decode %s", ErrUnsupportedFormat, f)
		}
		out, err := c.run(context.Background(), tool, data, ".png", EncodeParams{})
		if err != nil {
			return nil, err
		}
		data = out
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// sniff detects the formats that need an external decoder.
func sniff(data []byte) (images.Format, bool) {
	switch {
	case len(data) >= 12 && string(data[4:8]) == "ftyp" && (string(data[8:12]) == "avif" || string(data[8:12]) == "avis"):
		return images.AVIF, true
	case bytes.HasPrefix(data, []byte{0xff, 0x0a}),
		bytes.HasPrefix(data, []byte("\x00\x00\x00\x0cJXL \r\n\x87\n")):
		return images.JXL, true
	}
	return "", false
}

// Encode encodes img in format.
func (c *Std) Encode(ctx context.Context, img image.Image, format images.Format, p EncodeParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch format {
	case images.JPEG:
		q := p.Quality
		if p.Lossless || q <= 0 || q > 100 {
			q = 100
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return buf.Bytes(), nil
	case images.PNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), nil
	}

	tool, ok := c.Encoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: encode %s", ErrUnsupportedFormat, format)
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode intermediate png: %w", err)
	}
	spec := images.Formats[format]
	return c.run(ctx, tool, buf.Bytes(), spec.Ext, p)
}

// run feeds data to an external tool through temporary files.
func (c *Std) run(ctx context.Context, tool Tool, data []byte, outExt string, p EncodeParams) ([]byte, error) {
	path, err := exec.LookPath(tool.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnsupportedFormat, tool.Path)
	}

	dir, err := os.MkdirTemp(c.TempDir, "vbundle-codec-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out"+outExt)
	if err := os.WriteFile(in, data, 0644); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, tool.Args(in, out, p)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", tool.Path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return os.ReadFile(out)
}

// Resize scales img to width x height with Catmull-Rom resampling.
func (c *Std) Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
