package images

import (
	"sort"
	"strings"
)

// Format names an output image format.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	WebP Format = "webp"
	AVIF Format = "avif"
	JXL  Format = "jxl"
)

// ParamRange is the inclusive range of an encoder's quality parameter.
// Higher values always mean higher fidelity.
type ParamRange struct {
	Min int
	Max int
}

// Clamp limits v to the range.
func (r ParamRange) Clamp(v int) int {
	return min(max(v, r.Min), r.Max)
}

// FormatSpec describes how quality search drives one encoder.
type FormatSpec struct {
	Format Format

	// Ext is the file extension including the dot.
	Ext string

	// Range is the encoder's quality parameter range.
	Range ParamRange

	// Probes are the low and high parameters encoded during the search.
	Probes [2]int

	// Lossless reports whether the encoder has a lossless mode, used when
	// the quality dial is 1 or the search resolves to Range.Max.
	Lossless bool

	// Searchable is false for formats whose output does not depend on a
	// quality parameter (PNG); they always encode at Range.Max.
	Searchable bool
}

// Formats is the format table used by quality search. The probe choices are
// empirically tuned; callers may replace entries.
var Formats = map[Format]FormatSpec{
	JPEG: {Format: JPEG, Ext: ".jpg", Range: ParamRange{1, 100}, Probes: [2]int{60, 90}, Searchable: true},
	PNG:  {Format: PNG, Ext: ".png", Range: ParamRange{100, 100}, Probes: [2]int{100, 100}, Lossless: true},
	WebP: {Format: WebP, Ext: ".webp", Range: ParamRange{0, 100}, Probes: [2]int{60, 90}, Lossless: true, Searchable: true},
	AVIF: {Format: AVIF, Ext: ".avif", Range: ParamRange{0, 100}, Probes: [2]int{50, 85}, Lossless: true, Searchable: true},
	JXL:  {Format: JXL, Ext: ".jxl", Range: ParamRange{0, 100}, Probes: [2]int{60, 90}, Lossless: true, Searchable: true},
}

var aliases = map[string]Format{
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"webp": WebP,
	"avif": AVIF,
	"jxl":  JXL,
}

// ParseFormat resolves a format name or alias, case-insensitively.
func ParseFormat(name string) (Format, bool) {
	f, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// LookupFormat returns the spec for a format name or alias.
func LookupFormat(name string) (FormatSpec, bool) {
	f, ok := ParseFormat(name)
	if !ok {
		return FormatSpec{}, false
	}
	spec, ok := Formats[f]
	return spec, ok
}

// FormatForExt returns the format of a file extension (".JPG", ".png").
func FormatForExt(ext string) (Format, bool) {
	return ParseFormat(strings.TrimPrefix(ext, "."))
}

// FormatNames returns the canonical format names, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(Formats))
	for f := range Formats {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}
