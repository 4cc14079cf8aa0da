package build

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/bundler/internal/cache"
	"github.com/vango-dev/bundler/internal/codec"
	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/images"
	"github.com/vango-dev/bundler/internal/scheduler"
	"github.com/vango-dev/bundler/pkg/assets"
)

// CacheKindImage is the cache transform kind of encoded image variants.
const CacheKindImage = "image"

// imagePhase plans responsive sizes for every source image and encodes one
// variant per size and target format.
type imagePhase struct {
	sources []*imageSource

	// owners maps task index to its source.
	owners []*imageSource
}

// imageSource is one source image and the jobs expanded from it. The
// decoded bitmap is shared by the jobs and dropped after the last one.
type imageSource struct {
	path   string
	data   []byte
	policy config.ImagePolicy
	sizes  images.SizeSet
	jobs   []images.EncodeJob

	// names are the variant paths, one per job.
	names   []string
	outputs [][]byte

	once      sync.Once
	img       image.Image
	decodeErr error
	pending   atomic.Int32
	failed    atomic.Bool
}

func (p *imagePhase) Name() string { return PhaseImage }

func (p *imagePhase) Plan(ctx context.Context, run *Run, paths []string, stats *PhaseStats) ([]scheduler.Task, error) {
	existing := make(map[string]bool, len(paths))
	for _, logical := range paths {
		existing[logical] = true
	}
	// claimed maps each planned variant path to the source emitting it.
	claimed := make(map[string]string)

	var tasks []scheduler.Task
	for _, logical := range paths {
		if run.isGenerated(logical) {
			continue
		}
		if _, ok := images.FormatForExt(path.Ext(logical)); !ok {
			continue
		}
		eff := run.Resolver.Resolve(logical)
		if !eff.Images.Enabled || eff.Remove {
			continue
		}
		formats := eff.Images.Formats()
		if len(formats) == 0 {
			continue
		}
		stats.Files++

		src, err := p.plan(run, logical, eff.Images, formats)
		if err != nil {
			stats.Failed++
			warnTask(run, logical, err)
			continue
		}
		if err := claimVariants(src, existing, claimed); err != nil {
			stats.Failed++
			warnTask(run, logical, err)
			continue
		}
		p.sources = append(p.sources, src)
		src.pending.Store(int32(len(src.jobs)))

		for i, job := range src.jobs {
			tasks = append(tasks, scheduler.Task{
				Name: fmt.Sprintf("%s %s", logical, job),
				Run: func(ctx context.Context) error {
					return src.encode(ctx, run, i)
				},
			})
			p.owners = append(p.owners, src)
		}
	}
	return tasks, nil
}

// plan reads a source image and expands its encode jobs.
func (p *imagePhase) plan(run *Run, logical string, policy config.ImagePolicy, formats []images.FormatSpec) (*imageSource, error) {
	data, err := os.ReadFile(hostPath(run.Root, logical))
	if err != nil {
		return nil, errors.New("B405").WithPath(logical).Wrap(err)
	}

	original, err := dimensions(run.Codec, data)
	if err != nil {
		return nil, errors.New("B300").WithPath(logical).Wrap(err)
	}
	sizes, err := images.Plan(original, policy.ResizePolicy())
	if err != nil {
		code := "B303"
		if stderrors.Is(err, images.ErrDegenerateSize) {
			code = "B302"
		}
		return nil, errors.New(code).WithPath(logical).Wrap(err)
	}

	jobs := images.Expand(sizes, formats, policy.Quality)
	stem := strings.TrimSuffix(logical, path.Ext(logical))
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = images.VariantName(stem, job, sizes.Responsive())
	}
	return &imageSource{
		path:    logical,
		data:    data,
		policy:  policy,
		sizes:   sizes,
		jobs:    jobs,
		names:   names,
		outputs: make([][]byte, len(jobs)),
	}, nil
}

// claimVariants reserves the variant paths of src. A variant may only
// replace src itself; a path that exists in the tree or is claimed by an
// earlier source fails src, which is then left in place.
func claimVariants(src *imageSource, existing map[string]bool, claimed map[string]string) error {
	for _, name := range src.names {
		if owner, ok := claimed[name]; ok {
			return errors.New("B405").WithPath(src.path).
				WithDetail(fmt.Sprintf("variant %s is also emitted by %s", name, owner))
		}
		if name != src.path && existing[name] {
			return errors.New("B405").WithPath(src.path).
				WithDetail(fmt.Sprintf("variant %s would overwrite an existing file", name))
		}
	}
	for _, name := range src.names {
		claimed[name] = src.path
	}
	return nil
}

// dimensions reads the image size from its header, falling back to a full
// decode for formats without a registered config decoder.
func dimensions(c codec.Codec, data []byte) (images.Size, error) {
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		return images.Size{Width: cfg.Width, Height: cfg.Height}, nil
	}
	img, err := c.Decode(data)
	if err != nil {
		return images.Size{}, err
	}
	b := img.Bounds()
	return images.Size{Width: b.Dx(), Height: b.Dy()}, nil
}

// imageKey is the cache key of one encode job.
func imageKey(source []byte, job images.EncodeJob) cache.Key {
	return cache.NewKey(source, CacheKindImage, cache.Params{
		"format":  string(job.Format.Format),
		"width":   job.Size.Width,
		"height":  job.Size.Height,
		"quality": job.QualityLabel(),
	})
}

func (s *imageSource) decode(c codec.Codec) (image.Image, error) {
	s.once.Do(func() {
		s.img, s.decodeErr = c.Decode(s.data)
	})
	return s.img, s.decodeErr
}

func (s *imageSource) release() {
	if s.pending.Add(-1) == 0 {
		s.img = nil
	}
}

func (s *imageSource) fail(err error) error {
	s.failed.Store(true)
	return err
}

// encode runs job i: cache lookup, then quality search and encode on a miss.
func (s *imageSource) encode(ctx context.Context, run *Run, i int) error {
	defer s.release()
	if s.failed.Load() {
		return nil
	}
	job := s.jobs[i]
	key := imageKey(s.data, job)

	if run.Cache != nil {
		entry, ok, err := run.Cache.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			s.outputs[i] = entry.Data
			return nil
		}
	}

	img, err := s.decode(run.Codec)
	if err != nil {
		return s.fail(errors.New("B300").WithPath(s.path).Wrap(err))
	}
	ref := run.Codec.Resize(img, job.Size.Width, job.Size.Height)

	search := images.Search{
		Encode: func(ctx context.Context, param int, lossless bool) ([]byte, error) {
			return run.Codec.Encode(ctx, ref, job.Format.Format, codec.EncodeParams{Quality: param, Lossless: lossless})
		},
		Decode:     run.Codec.Decode,
		Similarity: run.Similarity.Similarity,
		Reference:  ref,
	}
	data, q, err := images.EncodeAdaptive(ctx, search, job.Quality, job.Format)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		code := "B301"
		if stderrors.Is(err, codec.ErrUnsupportedFormat) {
			code = "B304"
		}
		return s.fail(errors.New(code).WithPath(s.path).WithDetail(job.String()).Wrap(err))
	}
	run.Logger.Debug("encoded variant",
		"path", s.path,
		"job", job.String(),
		"param", q.Param,
		"lossless", q.Lossless,
		"guarded", q.Guarded,
		"size", len(data),
	)

	if run.Cache != nil {
		if err := run.Cache.Put(ctx, key, data); err != nil {
			be := errors.FromError(err, "B201")
			be.Fatal = false
			run.Warn(be.WithPath(s.path))
		}
	}
	s.outputs[i] = data
	return nil
}

func (p *imagePhase) Apply(ctx context.Context, run *Run, report scheduler.Report, stats *PhaseStats) error {
	failures := make(map[*imageSource]error)
	for i, outcome := range report.Outcomes {
		src := p.owners[i]
		if outcome.Err != nil && failures[src] == nil {
			failures[src] = outcome.Err
		}
	}

	for _, src := range p.sources {
		stats.BytesBefore += int64(len(src.data))
		if err := failures[src]; err != nil {
			stats.Failed++
			stats.BytesAfter += int64(len(src.data))
			warnTask(run, src.path, err)
			continue
		}

		variants, after, err := p.write(run, src)
		if err != nil {
			return err
		}
		stats.Changed++
		stats.BytesAfter += after
		run.Manifest.Set(src.path, variants)
	}
	return nil
}

// write emits the variants of src and removes the source unless it is kept
// or was overwritten. It returns the variants and the bytes left on disk.
// Variant paths were reserved by claimVariants, so no other file is
// replaced.
func (p *imagePhase) write(run *Run, src *imageSource) ([]assets.Variant, int64, error) {
	var (
		variants    []assets.Variant
		after       int64
		overwritten bool
	)
	for i, job := range src.jobs {
		name := src.names[i]
		data := src.outputs[i]
		if err := os.WriteFile(hostPath(run.Root, name), data, 0644); err != nil {
			return nil, 0, errors.New("B402").WithPath(name).Wrap(err)
		}
		if name == src.path {
			overwritten = true
		}
		after += int64(len(data))
		variants = append(variants, assets.Variant{
			Path:   name,
			Format: string(job.Format.Format),
			Width:  job.Size.Width,
			Height: job.Size.Height,
			Size:   int64(len(data)),
		})
	}

	switch {
	case overwritten:
	case src.policy.KeepOriginal:
		after += int64(len(src.data))
	default:
		if err := os.Remove(hostPath(run.Root, src.path)); err != nil && !os.IsNotExist(err) {
			return nil, 0, errors.New("B402").WithPath(src.path).Wrap(err)
		}
	}
	return variants, after, nil
}
