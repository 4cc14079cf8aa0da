package build

import (
	"context"
	"os"
	"path"

	"github.com/vango-dev/bundler/internal/cache"
	"github.com/vango-dev/bundler/internal/codec"
	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/scheduler"
)

// CacheKindMinify is the cache transform kind of minified text.
const CacheKindMinify = "minify"

// textPhase minifies markup, stylesheets, scripts, data and vector files.
// A file is only rewritten when the minified output is smaller.
type textPhase struct {
	paths  []string
	before []int64
	after  []int64
}

func (p *textPhase) Name() string { return PhaseText }

func (p *textPhase) Plan(ctx context.Context, run *Run, paths []string, stats *PhaseStats) ([]scheduler.Task, error) {
	var tasks []scheduler.Task
	for _, logical := range paths {
		kind, ok := codec.KindForExt(path.Ext(logical))
		if !ok {
			continue
		}
		eff := run.Resolver.Resolve(logical)
		if !eff.Minify.Enabled || eff.Remove {
			continue
		}

		i := len(p.paths)
		p.paths = append(p.paths, logical)
		p.before = append(p.before, 0)
		p.after = append(p.after, 0)
		opts := minifyOptions(eff.Minify)
		tasks = append(tasks, scheduler.Task{
			Name: logical,
			Run: func(ctx context.Context) error {
				return p.minify(ctx, run, i, kind, opts)
			},
		})
	}
	stats.Files = len(p.paths)
	return tasks, nil
}

func minifyOptions(policy config.MinifyPolicy) codec.MinifyOptions {
	return codec.MinifyOptions{
		KeepComments:     policy.KeepComments,
		KeepWhitespace:   policy.KeepWhitespace,
		KeepDocumentTags: policy.KeepDocumentTags,
		KeepNames:        policy.KeepNames,
		Precision:        policy.Precision,
	}
}

func minifyKey(source []byte, kind codec.Kind, opts codec.MinifyOptions) cache.Key {
	return cache.NewKey(source, CacheKindMinify, cache.Params{
		"kind":             string(kind),
		"keepComments":     opts.KeepComments,
		"keepWhitespace":   opts.KeepWhitespace,
		"keepDocumentTags": opts.KeepDocumentTags,
		"keepNames":        opts.KeepNames,
		"precision":        opts.Precision,
	})
}

func (p *textPhase) minify(ctx context.Context, run *Run, i int, kind codec.Kind, opts codec.MinifyOptions) error {
	logical := p.paths[i]
	host := hostPath(run.Root, logical)
	data, err := os.ReadFile(host)
	if err != nil {
		return err
	}
	p.before[i] = int64(len(data))
	p.after[i] = int64(len(data))

	key := minifyKey(data, kind, opts)
	var out []byte
	if run.Cache != nil {
		entry, ok, err := run.Cache.Get(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			out = entry.Data
		}
	}
	if out == nil {
		out, err = run.Minifier.Minify(kind, data, opts)
		if err != nil {
			return errors.New("B303").WithPath(logical).Wrap(err)
		}
		if run.Cache != nil {
			if err := run.Cache.Put(ctx, key, out); err != nil {
				be := errors.FromError(err, "B201")
				be.Fatal = false
				run.Warn(be.WithPath(logical))
			}
		}
	}

	if len(out) >= len(data) {
		return nil
	}
	if err := os.WriteFile(host, out, 0644); err != nil {
		return errors.New("B402").WithPath(logical).Wrap(err)
	}
	p.after[i] = int64(len(out))
	return nil
}

func (p *textPhase) Apply(ctx context.Context, run *Run, report scheduler.Report, stats *PhaseStats) error {
	for i, outcome := range report.Outcomes {
		if outcome.Err != nil {
			stats.Failed++
			warnTask(run, p.paths[i], outcome.Err)
		} else if p.after[i] < p.before[i] {
			stats.Changed++
		}
		stats.BytesBefore += p.before[i]
		stats.BytesAfter += p.after[i]
	}
	return nil
}
