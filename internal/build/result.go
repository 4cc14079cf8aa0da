package build

import (
	"time"

	"github.com/vango-dev/bundler/internal/cache"
	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/generate"
	"github.com/vango-dev/bundler/pkg/assets"
)

// Phase names.
const (
	PhaseDiscard = "discard"
	PhaseImage   = "image"
	PhaseText    = "text"
)

// Progress is reported while a build runs. Step is set for coarse build
// steps; Phase, Completed, Total and Path for phase tasks.
type Progress struct {
	Step      string
	Phase     string
	Completed int
	Total     int
	Path      string
	Err       error
}

// PhaseStats summarizes one phase.
type PhaseStats struct {
	Name string `json:"name"`

	// Files is the number of files the phase selected.
	Files int `json:"files"`

	// Changed is the number of files the phase rewrote or removed.
	Changed int `json:"changed"`

	// Failed is the number of files left untouched after an error.
	Failed int `json:"failed"`

	// Tasks is the number of scheduled tasks.
	Tasks int `json:"tasks"`

	BytesBefore int64         `json:"bytesBefore"`
	BytesAfter  int64         `json:"bytesAfter"`
	Duration    time.Duration `json:"duration"`
}

// Saved returns the bytes removed by the phase.
func (s PhaseStats) Saved() int64 {
	return s.BytesBefore - s.BytesAfter
}

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Output is the path to the output directory.
	Output string

	Phases []PhaseStats

	// CacheStatus reports what the cache envelope check found.
	CacheStatus string

	Cache cache.Stats

	// Generated lists the files written by generators.
	Generated []generate.Artifact

	Manifest *assets.Manifest

	Warnings []*errors.BundleError
}

// BytesBefore is the total size of the files the phases read.
func (r *Result) BytesBefore() int64 {
	var n int64
	for _, p := range r.Phases {
		n += p.BytesBefore
	}
	return n
}

// BytesAfter is the total size of the files the phases wrote or kept.
func (r *Result) BytesAfter() int64 {
	var n int64
	for _, p := range r.Phases {
		n += p.BytesAfter
	}
	return n
}

// Saved returns the total bytes saved.
func (r *Result) Saved() int64 {
	return r.BytesBefore() - r.BytesAfter()
}

// Phase returns the stats of the named phase.
func (r *Result) Phase(name string) (PhaseStats, bool) {
	for _, p := range r.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return PhaseStats{}, false
}
