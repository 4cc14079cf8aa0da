// Package images plans responsive image variants and picks encoder quality.
//
// The package is codec-agnostic. Plan computes the set of output sizes for
// one source image; FindQuality probes an encoder through caller-supplied
// functions to find the quality parameter whose predicted similarity to the
// source matches a target; Expand turns a size set and a list of target
// formats into encode jobs.
//
// # Size planning
//
//	set, err := images.Plan(images.Size{Width: 2000, Height: 1000}, images.ResizePolicy{
//	    Auto:    true,
//	    MaxSize: 1920,
//	})
//	// set: 480x240, 1024x512, 1920x960
//
// Candidate widths closer than DedupRatio to an already accepted larger width
// are dropped, so the set never contains visually indistinguishable variants.
//
// # Quality search
//
// Quality is a dial in [0,1]. A dial of 1 selects the format's lossless (or
// highest) setting without probing. Otherwise two probe encodes are decoded
// and compared to the source, a line is fitted through the two points and
// inverted for the target. When similarity does not improve between the low
// and the high probe the search gives up and uses the format maximum.
package images
