package config

import (
	"slices"

	"github.com/vango-dev/bundler/internal/images"
)

// OverrideRule applies Settings to every file whose logical path matches
// Pattern.
type OverrideRule struct {
	Pattern  string   `json:"pattern"`
	Settings Settings `json:"settings"`

	// Remove marks matching files for deletion.
	Remove bool `json:"remove,omitempty"`
}

// Settings is a partial configuration. A nil leaf leaves the inherited value
// untouched; a non-nil slice replaces the inherited slice.
type Settings struct {
	Images *ImageSettings  `json:"images,omitempty"`
	Minify *MinifySettings `json:"minify,omitempty"`
}

// ImageSettings is the partial form of ImagePolicy.
type ImageSettings struct {
	Enabled       *bool         `json:"enabled,omitempty"`
	TargetFormats []string      `json:"targetFormats,omitempty"`
	Quality       *float64      `json:"quality,omitempty"`
	MinSize       *int          `json:"minSize,omitempty"`
	MaxSize       *int          `json:"maxSize,omitempty"`
	Resize        *bool         `json:"resize,omitempty"`
	Sizes         []images.Size `json:"sizes,omitempty"`
	FallbackSize  *images.Size  `json:"fallbackSize,omitempty"`
	KeepOriginal  *bool         `json:"keepOriginal,omitempty"`
	Breakpoints   []int         `json:"breakpoints,omitempty"`
	SizeHints     []string      `json:"sizeHints,omitempty"`
	DedupRatio    *float64      `json:"dedupRatio,omitempty"`
}

// MinifySettings is the partial form of MinifyPolicy.
type MinifySettings struct {
	Enabled          *bool `json:"enabled,omitempty"`
	KeepComments     *bool `json:"keepComments,omitempty"`
	KeepWhitespace   *bool `json:"keepWhitespace,omitempty"`
	KeepDocumentTags *bool `json:"keepDocumentTags,omitempty"`
	KeepNames        *bool `json:"keepNames,omitempty"`
	Precision        *int  `json:"precision,omitempty"`
}

// Clone returns a deep copy of the policy.
func (p ImagePolicy) Clone() ImagePolicy {
	p.TargetFormats = slices.Clone(p.TargetFormats)
	p.Sizes = slices.Clone(p.Sizes)
	p.Breakpoints = slices.Clone(p.Breakpoints)
	p.SizeHints = slices.Clone(p.SizeHints)
	if p.FallbackSize != nil {
		fb := *p.FallbackSize
		p.FallbackSize = &fb
	}
	return p
}

// Merge returns a copy of p with every leaf set in s applied. Neither p nor
// s is modified.
func (p ImagePolicy) Merge(s *ImageSettings) ImagePolicy {
	out := p.Clone()
	if s == nil {
		return out
	}
	setIf(&out.Enabled, s.Enabled)
	setIf(&out.Quality, s.Quality)
	setIf(&out.MinSize, s.MinSize)
	setIf(&out.MaxSize, s.MaxSize)
	setIf(&out.Resize, s.Resize)
	setIf(&out.KeepOriginal, s.KeepOriginal)
	setIf(&out.DedupRatio, s.DedupRatio)
	if s.FallbackSize != nil {
		fb := *s.FallbackSize
		out.FallbackSize = &fb
	}
	if s.TargetFormats != nil {
		out.TargetFormats = slices.Clone(s.TargetFormats)
	}
	if s.Sizes != nil {
		out.Sizes = slices.Clone(s.Sizes)
	}
	if s.Breakpoints != nil {
		out.Breakpoints = slices.Clone(s.Breakpoints)
	}
	if s.SizeHints != nil {
		out.SizeHints = slices.Clone(s.SizeHints)
	}
	return out
}

// Merge returns a copy of p with every leaf set in s applied.
func (p MinifyPolicy) Merge(s *MinifySettings) MinifyPolicy {
	if s == nil {
		return p
	}
	setIf(&p.Enabled, s.Enabled)
	setIf(&p.KeepComments, s.KeepComments)
	setIf(&p.KeepWhitespace, s.KeepWhitespace)
	setIf(&p.KeepDocumentTags, s.KeepDocumentTags)
	setIf(&p.KeepNames, s.KeepNames)
	setIf(&p.Precision, s.Precision)
	return p
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// ResizePolicy converts the policy for the size planner.
func (p ImagePolicy) ResizePolicy() images.ResizePolicy {
	return images.ResizePolicy{
		Auto:         p.Resize,
		CustomSizes:  slices.Clone(p.Sizes),
		FallbackSize: p.Clone().FallbackSize,
		MinSize:      p.MinSize,
		MaxSize:      p.MaxSize,
		KeepOriginal: p.KeepOriginal,
		Breakpoints:  slices.Clone(p.Breakpoints),
		SizeHints:    slices.Clone(p.SizeHints),
		DedupRatio:   p.DedupRatio,
	}
}

// Formats looks up the target formats. Unknown names are skipped; Validate
// rejects them before a build starts.
func (p ImagePolicy) Formats() []images.FormatSpec {
	out := make([]images.FormatSpec, 0, len(p.TargetFormats))
	seen := make(map[images.Format]bool)
	for _, name := range p.TargetFormats {
		spec, ok := images.LookupFormat(name)
		if !ok || seen[spec.Format] {
			continue
		}
		seen[spec.Format] = true
		out = append(out, spec)
	}
	return out
}
