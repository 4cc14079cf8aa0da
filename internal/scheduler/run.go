package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is a unit of work.
type Task struct {
	// Name identifies the task in progress reports and logs.
	Name string

	Run func(ctx context.Context) error
}

// Progress is reported once per completed task.
type Progress struct {
	Completed int
	Total     int
	Task      string
	Err       error
}

// Options configures Run.
type Options struct {
	// Concurrency is the maximum number of tasks running at once. Values
	// below 1 run tasks one at a time.
	Concurrency int

	// OnProgress is called after each task completes. Calls never overlap.
	OnProgress func(Progress)

	Logger *slog.Logger
}

// Outcome is the result of one task.
type Outcome struct {
	Name     string
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Report summarizes a Run. Outcomes are in task order.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
	Duration  time.Duration
}

// Errors returns the failed outcomes, in task order.
func (r Report) Errors() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// PanicError is returned for a task that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Run executes tasks and blocks until every task has completed.
func Run(ctx context.Context, tasks []Task, opts Options) Report {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := max(opts.Concurrency, 1)

	report := Report{
		Total:    len(tasks),
		Outcomes: make([]Outcome, len(tasks)),
	}

	var (
		mu        sync.Mutex
		completed int
	)
	finish := func(i int, o Outcome) {
		mu.Lock()
		defer mu.Unlock()

		report.Outcomes[i] = o
		switch {
		case o.Err == nil:
			report.Succeeded++
		case o.Skipped:
			report.Skipped++
			report.Failed++
		default:
			report.Failed++
		}
		completed++
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{
				Completed: completed,
				Total:     len(tasks),
				Task:      o.Name,
				Err:       o.Err,
			})
		}
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, task := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				finish(i, Outcome{Name: task.Name, Err: err, Skipped: true})
				return nil
			}
			taskStart := time.Now()
			err := runTask(ctx, task)
			if err != nil {
				logger.Debug("task failed", "task", task.Name, "err", err)
			}
			finish(i, Outcome{Name: task.Name, Err: err, Duration: time.Since(taskStart)})
			return nil
		})
	}
	g.Wait()

	report.Duration = time.Since(start)
	return report
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	if task.Run == nil {
		return fmt.Errorf("task %q has no function", task.Name)
	}
	return task.Run(ctx)
}
