package build

import (
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/bundler/internal/cache"
	"github.com/vango-dev/bundler/internal/codec"
	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/metrics"
	"github.com/vango-dev/bundler/pkg/assets"
)

// Run is the state of one build. It is created once by Builder.Build and
// passed to every phase.
type Run struct {
	Config   *config.Config
	Resolver *config.Resolver

	// Cache is nil when no usable cache directory is available.
	Cache *cache.Cache

	Codec      codec.Codec
	Similarity codec.Similarity
	Minifier   codec.Minifier

	// Root is the working tree.
	Root string

	Concurrency int
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Tracer      trace.Tracer
	Manifest    *assets.Manifest

	onProgress func(Progress)

	mu        sync.Mutex
	warnings  []*errors.BundleError
	generated map[string]bool
}

// Warn records a non-fatal error.
func (r *Run) Warn(err *errors.BundleError) {
	r.mu.Lock()
	r.warnings = append(r.warnings, err)
	r.mu.Unlock()

	attrs := []any{"code", err.Code}
	if err.Path != "" {
		attrs = append(attrs, "path", err.Path)
	}
	if err.Wrapped != nil {
		attrs = append(attrs, "err", err.Wrapped)
	}
	r.Logger.Warn(err.Message, attrs...)
}

// Warnings returns the recorded warnings in the order they occurred.
func (r *Run) Warnings() []*errors.BundleError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*errors.BundleError(nil), r.warnings...)
}

// markGenerated records files written by a pre-phase generator. They are
// final and skipped by the image phase.
func (r *Run) markGenerated(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generated == nil {
		r.generated = make(map[string]bool)
	}
	for _, p := range paths {
		r.generated[p] = true
	}
}

func (r *Run) isGenerated(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generated[path]
}

func (r *Run) progress(p Progress) {
	if r.onProgress != nil {
		r.onProgress(p)
	}
}
