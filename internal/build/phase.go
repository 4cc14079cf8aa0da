package build

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/scheduler"
)

// phase is one step of the pipeline. Plan runs on the build goroutine and
// returns the tasks to schedule; Apply runs after every task has finished.
type phase interface {
	Name() string
	Plan(ctx context.Context, run *Run, paths []string, stats *PhaseStats) ([]scheduler.Task, error)
	Apply(ctx context.Context, run *Run, report scheduler.Report, stats *PhaseStats) error
}

// phases run in order, each a barrier for the next.
var phases = []func() phase{
	func() phase { return &discardPhase{} },
	func() phase { return &imagePhase{} },
	func() phase { return &textPhase{} },
}

func runPhase(ctx context.Context, run *Run, p phase) (stats PhaseStats, err error) {
	start := time.Now()
	stats.Name = p.Name()

	ctx, span := run.Tracer.Start(ctx, "vbundle.phase",
		trace.WithAttributes(attribute.String("vbundle.phase", p.Name())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("vbundle.files", stats.Files),
			attribute.Int("vbundle.failed", stats.Failed),
			attribute.Int64("vbundle.bytes_saved", stats.Saved()),
		)
		span.End()
	}()

	paths, err := enumerate(run.Root)
	if err != nil {
		return stats, errors.New("B401").Wrap(err)
	}

	tasks, err := p.Plan(ctx, run, paths, &stats)
	if err != nil {
		return stats, err
	}
	stats.Tasks = len(tasks)

	for i := range tasks {
		tasks[i].Run = observed(run, p.Name(), tasks[i].Run)
	}

	report := scheduler.Run(ctx, tasks, scheduler.Options{
		Concurrency: run.Concurrency,
		Logger:      run.Logger,
		OnProgress: func(sp scheduler.Progress) {
			run.progress(Progress{
				Phase:     p.Name(),
				Completed: sp.Completed,
				Total:     sp.Total,
				Path:      sp.Task,
				Err:       sp.Err,
			})
		},
	})
	if ctx.Err() != nil {
		return stats, errors.New("B404").Wrap(ctx.Err())
	}

	if err := p.Apply(ctx, run, report, &stats); err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)
	run.Metrics.ObserveBytes(p.Name(), stats.BytesBefore, stats.BytesAfter)

	run.Logger.Debug("phase complete",
		"phase", p.Name(),
		"files", stats.Files,
		"changed", stats.Changed,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)
	return stats, nil
}

// observed wraps a task function with metrics and a span.
func observed(run *Run, phase string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		start := time.Now()
		ctx, span := run.Tracer.Start(ctx, "vbundle.task",
			trace.WithAttributes(attribute.String("vbundle.phase", phase)))
		err := fn(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		run.Metrics.ObserveTask(phase, err, time.Since(start))
		return err
	}
}

// warnTask converts a task error into a recorded warning.
func warnTask(run *Run, path string, err error) {
	be := errors.FromError(err, "B405")
	if be.Path == "" {
		be = be.WithPath(path)
	}
	be.Fatal = false
	run.Warn(be)
}
