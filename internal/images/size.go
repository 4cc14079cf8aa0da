package images

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Size is a raster size in pixels. A zero Height means "derive from the
// source aspect ratio".
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height,omitempty"`
}

// String returns the size as WxH.
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Empty reports whether the size has no area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// FitWithin scales s to fit inside box while preserving its aspect ratio.
// A non-positive box dimension is unbounded. The scale factor is clamped to
// at most 1, so sizes are never enlarged.
func (s Size) FitWithin(box Size) Size {
	if s.Empty() {
		return s
	}
	ratio := 1.0
	if box.Width > 0 {
		ratio = math.Min(ratio, float64(box.Width)/float64(s.Width))
	}
	if box.Height > 0 {
		ratio = math.Min(ratio, float64(box.Height)/float64(s.Height))
	}
	return s.scale(ratio)
}

func (s Size) scale(ratio float64) Size {
	w := int(math.Round(float64(s.Width) * ratio))
	h := int(math.Round(float64(s.Height) * ratio))
	return Size{Width: max(w, 1), Height: max(h, 1)}
}

// UnmarshalJSON accepts a bare width (192), a "WxH" string ("192x108"), or
// an object ({"width": 192, "height": 108}).
func (s *Size) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, "{"):
		type plain Size
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*s = Size(p)
	case strings.HasPrefix(trimmed, `"`):
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := ParseSize(str)
		if err != nil {
			return err
		}
		*s = parsed
	default:
		w, err := strconv.Atoi(trimmed)
		if err != nil {
			return fmt.Errorf("invalid size %s", trimmed)
		}
		*s = Size{Width: w}
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("invalid size %s: negative dimension", trimmed)
	}
	return nil
}

// ParseSize parses "W", "WxH" or "W×H".
func ParseSize(str string) (Size, error) {
	str = strings.ReplaceAll(strings.TrimSpace(str), "×", "x")
	w, h, found := strings.Cut(strings.ToLower(str), "x")
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Size{}, fmt.Errorf("invalid size %q", str)
	}
	size := Size{Width: width}
	if found {
		height, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return Size{}, fmt.Errorf("invalid size %q", str)
		}
		size.Height = height
	}
	return size, nil
}
