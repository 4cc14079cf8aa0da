package images

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultDedupRatio drops a candidate width w when
	// DefaultDedupRatio*larger <= w <= larger for an accepted larger width.
	DefaultDedupRatio = 0.60

	// FallbackCeiling bounds the derived fallback size.
	FallbackCeiling = 1920

	// DefaultMaxSize bounds every generated size.
	DefaultMaxSize = 1920
)

// DefaultBreakpoints is the ladder of reference screen widths used by auto
// resize.
var DefaultBreakpoints = []int{320, 480, 640, 768, 1024, 1280, 1536, 1920, 2560}

// ErrDegenerateSize is returned for images with zero width or height.
var ErrDegenerateSize = errors.New("images: degenerate image size")

// ResizePolicy controls Plan.
type ResizePolicy struct {
	// Auto derives candidate widths from Breakpoints and SizeHints.
	Auto bool

	// CustomSizes are explicit bounding boxes; a zero height is unbounded.
	CustomSizes []Size

	// FallbackSize is used when set; otherwise one is derived from the
	// original, MaxSize and FallbackCeiling.
	FallbackSize *Size

	MinSize int
	MaxSize int

	// KeepOriginal adds the original dimensions to the set.
	KeepOriginal bool

	Breakpoints []int

	// SizeHints are viewport-relative ("50vw") or pixel ("320px") widths.
	SizeHints []string

	DedupRatio float64
}

func (p ResizePolicy) withDefaults() ResizePolicy {
	if p.MaxSize <= 0 {
		p.MaxSize = DefaultMaxSize
	}
	if p.DedupRatio <= 0 || p.DedupRatio >= 1 {
		p.DedupRatio = DefaultDedupRatio
	}
	if len(p.Breakpoints) == 0 {
		p.Breakpoints = DefaultBreakpoints
	}
	if len(p.SizeHints) == 0 {
		p.SizeHints = []string{"100vw"}
	}
	return p
}

// SizeSet is an ascending list of distinct sizes.
type SizeSet []Size

// Widths returns the widths of the set.
func (s SizeSet) Widths() []int {
	out := make([]int, len(s))
	for i, size := range s {
		out[i] = size.Width
	}
	return out
}

// Responsive reports whether the set has more than one size.
func (s SizeSet) Responsive() bool {
	return len(s) > 1
}

// Plan computes the target sizes for an image of the given original size.
func Plan(original Size, policy ResizePolicy) (SizeSet, error) {
	if original.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrDegenerateSize, original)
	}
	p := policy.withDefaults()
	box := Size{Width: p.MaxSize, Height: p.MaxSize}

	fallback := original.FitWithin(Size{Width: min(p.MaxSize, FallbackCeiling), Height: min(p.MaxSize, FallbackCeiling)})
	if p.FallbackSize != nil && p.FallbackSize.Width > 0 {
		fallback = original.FitWithin(*p.FallbackSize).FitWithin(box)
	}

	var candidates []Size
	if p.Auto {
		widths, err := autoWidths(p.Breakpoints, p.SizeHints)
		if err != nil {
			return nil, err
		}
		for _, w := range widths {
			candidates = append(candidates, original.FitWithin(Size{Width: w}).FitWithin(box))
		}
	}
	for _, custom := range p.CustomSizes {
		if custom.Width <= 0 {
			continue
		}
		candidates = append(candidates, original.FitWithin(custom).FitWithin(box))
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if c.Width >= p.MinSize {
			kept = append(kept, c)
		}
	}
	candidates = append(kept, fallback)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Width != candidates[j].Width {
			return candidates[i].Width > candidates[j].Width
		}
		return candidates[i].Height > candidates[j].Height
	})

	var accepted []Size
	for _, c := range candidates {
		if !withinBand(c, accepted, p.DedupRatio) {
			accepted = append(accepted, c)
		}
	}

	if p.KeepOriginal {
		accepted = append(accepted, original)
	}
	return normalize(accepted), nil
}

// withinBand reports whether c is visually indistinguishable from an
// already accepted larger size.
func withinBand(c Size, accepted []Size, ratio float64) bool {
	for _, a := range accepted {
		if c.Width <= a.Width && float64(c.Width) >= ratio*float64(a.Width) {
			return true
		}
	}
	return false
}

func normalize(sizes []Size) SizeSet {
	seen := make(map[Size]struct{}, len(sizes))
	out := make(SizeSet, 0, len(sizes))
	for _, s := range sizes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Width != out[j].Width {
			return out[i].Width < out[j].Width
		}
		return out[i].Height < out[j].Height
	})
	return out
}

// HintKind distinguishes size hint units.
type HintKind int

const (
	HintViewport HintKind = iota
	HintPixels
)

// SizeHint is a parsed "50vw" or "320px" hint.
type SizeHint struct {
	Kind  HintKind
	Value float64
}

// ParseSizeHint parses a size hint. A bare number is read as pixels.
func ParseSizeHint(s string) (SizeHint, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	kind := HintPixels
	num := raw
	switch {
	case strings.HasSuffix(raw, "vw"):
		kind = HintViewport
		num = strings.TrimSuffix(raw, "vw")
	case strings.HasSuffix(raw, "px"):
		num = strings.TrimSuffix(raw, "px")
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return SizeHint{}, fmt.Errorf("invalid size hint %q", s)
	}
	if kind == HintViewport && v > 100 {
		return SizeHint{}, fmt.Errorf("invalid size hint %q: above 100vw", s)
	}
	return SizeHint{Kind: kind, Value: v}, nil
}

// autoWidths combines the breakpoint ladder with the size hints.
func autoWidths(breakpoints []int, hints []string) ([]int, error) {
	var widths []int
	for _, raw := range hints {
		hint, err := ParseSizeHint(raw)
		if err != nil {
			return nil, err
		}
		if hint.Kind == HintPixels {
			widths = append(widths, int(hint.Value))
			continue
		}
		for _, bp := range breakpoints {
			if w := int(float64(bp) * hint.Value / 100); w > 0 {
				widths = append(widths, w)
			}
		}
	}
	return widths, nil
}
