package build

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/bundler/internal/cache"
	"github.com/vango-dev/bundler/internal/codec"
	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/generate"
	"github.com/vango-dev/bundler/internal/metrics"
	"github.com/vango-dev/bundler/internal/scheduler"
	"github.com/vango-dev/bundler/pkg/assets"
)

const tracerName = "github.com/vango-dev/bundler/internal/build"

// Options configures the builder.
type Options struct {
	// ToolVersion is recorded in the cache envelope.
	ToolVersion string

	// Output overrides the configured output directory.
	Output string

	// NoCache disables the persistent cache for this build.
	NoCache bool

	// IgnoreErrors downgrades fatal cache and generator errors and invalid
	// override rules to warnings.
	IgnoreErrors bool

	// Concurrency overrides the computed scheduler limit.
	Concurrency int

	// Collaborators. Nil values use the defaults from package codec.
	Codec      codec.Codec
	Similarity codec.Similarity
	Minifier   codec.Minifier

	// Icons and ServiceWorker replace the default generators.
	Icons         generate.Generator
	ServiceWorker generate.Generator

	// Remote is an optional cache mirror.
	Remote cache.Remote

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	// OnProgress is called with progress updates.
	OnProgress func(Progress)
}

// Builder handles bundle builds.
type Builder struct {
	config  *config.Config
	options Options
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	// Apply config defaults to options
	if !options.IgnoreErrors && cfg.IgnoreErrors {
		options.IgnoreErrors = true
	}
	if options.Codec == nil {
		options.Codec = codec.NewStd()
	}
	if options.Similarity == nil {
		options.Similarity = codec.SSIM{}
	}
	if options.Minifier == nil {
		options.Minifier = codec.TextMinifier{}
	}
	if options.Icons == nil {
		options.Icons = &generate.Icons{Codec: options.Codec}
	}
	if options.ServiceWorker == nil {
		options.ServiceWorker = generate.Precache{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Tracer == nil {
		options.Tracer = otel.Tracer(tracerName)
	}

	return &Builder{
		config:  cfg,
		options: options,
	}
}

// OutputPath returns the directory the build writes to.
func (b *Builder) OutputPath() string {
	if b.options.Output != "" {
		if filepath.IsAbs(b.options.Output) {
			return b.options.Output
		}
		return filepath.Join(b.config.Dir(), b.options.Output)
	}
	return b.config.OutputPath()
}

// Build performs a build.
func (b *Builder) Build(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	ctx, span := b.options.Tracer.Start(ctx, "vbundle.build",
		trace.WithAttributes(attribute.String("vbundle.project", b.config.Name)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		b.options.Metrics.ObserveBuild(time.Since(start), err)
	}()

	run := &Run{
		Codec:      b.options.Codec,
		Similarity: b.options.Similarity,
		Minifier:   b.options.Minifier,
		Logger:     b.options.Logger,
		Metrics:    b.options.Metrics,
		Tracer:     b.options.Tracer,
		Manifest:   assets.NewManifest(),
		onProgress: b.options.OnProgress,
	}

	cfg, err := b.validate(run)
	if err != nil {
		return nil, err
	}
	run.Config = cfg
	run.Resolver, err = config.NewResolver(cfg, 0)
	if err != nil {
		return nil, err
	}
	run.Concurrency = b.concurrency()

	inputDir := cfg.InputPath()
	if info, statErr := os.Stat(inputDir); statErr != nil || !info.IsDir() {
		return nil, errors.New("B400").WithPath(inputDir).
			WithSuggestion("Set \"input\" in vbundle.json to an existing directory")
	}
	outputDir := b.OutputPath()
	if err := checkOutput(outputDir, inputDir, cfg.Dir(), cfg.CachePath()); err != nil {
		return nil, err
	}

	// Copy input into a working tree
	b.step(run, "Copying input tree...")
	work, err := newWorkingTree(outputDir)
	if err != nil {
		return nil, errors.New("B401").WithPath(outputDir).Wrap(err)
	}
	run.Root = work
	promoted := false
	defer func() {
		if !promoted {
			os.RemoveAll(work)
		}
	}()
	if err := copyTree(inputDir, work, []string{outputDir, cfg.CachePath()}); err != nil {
		return nil, errors.New("B401").WithPath(inputDir).Wrap(err)
	}

	result = &Result{Output: outputDir, Manifest: run.Manifest}

	// Open the cache
	b.step(run, "Checking cache...")
	result.CacheStatus, err = b.openCache(ctx, run)
	if err != nil {
		return nil, err
	}

	paths, err := enumerate(work)
	if err != nil {
		return nil, errors.New("B401").Wrap(err)
	}
	for _, i := range run.Resolver.Unmatched(paths) {
		run.Warn(errors.New("B105").
			WithDetail(fmt.Sprintf("overrides[%d] pattern %q matched no files", i, cfg.Overrides[i].Pattern)))
	}

	// Pre-phase generator
	artifacts, err := b.generate(ctx, run, b.options.Icons, cfg.Icons)
	if err != nil {
		return nil, err
	}
	result.Generated = append(result.Generated, artifacts...)
	for _, a := range artifacts {
		run.markGenerated(a.Path)
	}

	// Phases
	for _, newPhase := range phases {
		p := newPhase()
		b.step(run, fmt.Sprintf("Running %s phase...", p.Name()))
		stats, err := runPhase(ctx, run, p)
		if err != nil {
			return nil, err
		}
		result.Phases = append(result.Phases, stats)
	}

	// Write manifest
	b.step(run, "Writing manifest...")
	if err := run.Manifest.Save(filepath.Join(work, assets.FileName)); err != nil {
		return nil, errors.New("B402").Wrap(err)
	}

	// Post-phase generator
	artifacts, err = b.generate(ctx, run, b.options.ServiceWorker, cfg.ServiceWorker)
	if err != nil {
		return nil, err
	}
	result.Generated = append(result.Generated, artifacts...)

	// Seal the cache
	if run.Cache != nil {
		result.Cache = run.Cache.Stats()
		run.Metrics.ObserveCache(result.Cache.Hits, result.Cache.Misses, result.Cache.RemoteHits)
		if _, err := run.Cache.Seal(ctx); err != nil {
			run.Warn(errors.FromError(err, "B202"))
		}
	}

	b.step(run, "Writing output...")
	if err := promote(work, outputDir); err != nil {
		return nil, errors.New("B402").WithPath(outputDir).Wrap(err)
	}
	promoted = true

	result.Warnings = run.Warnings()
	result.Duration = time.Since(start)
	return result, nil
}

// validate checks the configuration. With IgnoreErrors, invalid override
// rules are dropped with a warning instead of failing the build.
func (b *Builder) validate(run *Run) (*config.Config, error) {
	cfg := b.config
	if b.options.IgnoreErrors {
		if bad := cfg.InvalidOverrides(); len(bad) > 0 {
			for i := range cfg.Overrides {
				if err, ok := bad[i]; ok {
					be := errors.FromError(err, "B102")
					be.Fatal = false
					run.Warn(be)
				}
			}
			cfg = cfg.WithoutOverrides(bad)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (b *Builder) concurrency() int {
	if b.options.Concurrency > 0 {
		return b.options.Concurrency
	}
	return scheduler.Concurrency(scheduler.Limits{
		Ceiling:       b.config.Concurrency.Ceiling,
		PerTaskMemory: b.config.Concurrency.PerTaskMemory,
	})
}

// openCache prepares the cache. An unusable cache directory is fatal only
// when the cache is required and errors are not ignored; otherwise the
// build continues without caching.
func (b *Builder) openCache(ctx context.Context, run *Run) (string, error) {
	cfg := run.Config
	remote := b.options.Remote
	if remote == nil && cfg.Cache.Remote != nil && !b.options.NoCache {
		r, err := cache.NewS3Remote(ctx, cache.S3Options{
			Bucket:   cfg.Cache.Remote.Bucket,
			Prefix:   cfg.Cache.Remote.Prefix,
			Region:   cfg.Cache.Remote.Region,
			Endpoint: cfg.Cache.Remote.Endpoint,
			ReadOnly: cfg.Cache.Remote.ReadOnly,
		})
		if err != nil {
			run.Warn(errors.New("B204").Wrap(err))
		} else {
			remote = r
		}
	}

	c := cache.Open(cache.Options{
		Dir:         cfg.CachePath(),
		Enabled:     cfg.Cache.Enabled && !b.options.NoCache,
		ToolVersion: b.options.ToolVersion,
		ConfigHash:  cfg.Hash(),
		Remote:      remote,
		Logger:      run.Logger,
	})
	status, err := c.Ensure(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.New("B404").Wrap(ctx.Err())
		}
		if cfg.Cache.Required && !b.options.IgnoreErrors {
			return "", err
		}
		be := errors.FromError(err, "B200")
		be.Fatal = false
		run.Warn(be)
		return "unavailable", nil
	}
	run.Cache = c
	return status.String(), nil
}

// generate runs a generator. Failures are fatal unless errors are ignored.
func (b *Builder) generate(ctx context.Context, run *Run, g generate.Generator, blob json.RawMessage) ([]generate.Artifact, error) {
	if g == nil || len(strings.TrimSpace(string(blob))) == 0 {
		return nil, nil
	}
	b.step(run, fmt.Sprintf("Generating %s...", g.Name()))

	ctx, span := run.Tracer.Start(ctx, "vbundle.generate",
		trace.WithAttributes(attribute.String("vbundle.generator", g.Name())))
	defer span.End()

	artifacts, err := g.Generate(ctx, run.Root, blob)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		be := errors.New("B403").WithDetail(g.Name()).Wrap(err)
		if !b.options.IgnoreErrors {
			return nil, be
		}
		be.Fatal = false
		run.Warn(be)
	}
	return artifacts, nil
}

// step reports build progress.
func (b *Builder) step(run *Run, step string) {
	run.Logger.Debug(step)
	run.progress(Progress{Step: step})
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.OutputPath())
}

// CleanCache removes the cache directory.
func (b *Builder) CleanCache() error {
	return cache.Clean(b.config.CachePath())
}
