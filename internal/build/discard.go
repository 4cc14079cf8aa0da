package build

import (
	"context"
	"os"

	"github.com/vango-dev/bundler/internal/scheduler"
)

// discardPhase deletes files marked for removal by an override rule.
type discardPhase struct {
	paths []string
	sizes []int64
}

func (p *discardPhase) Name() string { return PhaseDiscard }

func (p *discardPhase) Plan(ctx context.Context, run *Run, paths []string, stats *PhaseStats) ([]scheduler.Task, error) {
	var tasks []scheduler.Task
	for _, path := range paths {
		if !run.Resolver.Resolve(path).Remove {
			continue
		}
		host := hostPath(run.Root, path)
		info, err := os.Stat(host)
		if err != nil {
			continue
		}
		p.paths = append(p.paths, path)
		p.sizes = append(p.sizes, info.Size())
		tasks = append(tasks, scheduler.Task{
			Name: path,
			Run: func(context.Context) error {
				return os.Remove(host)
			},
		})
	}
	stats.Files = len(p.paths)
	return tasks, nil
}

func (p *discardPhase) Apply(ctx context.Context, run *Run, report scheduler.Report, stats *PhaseStats) error {
	for i, outcome := range report.Outcomes {
		stats.BytesBefore += p.sizes[i]
		if outcome.Err != nil {
			stats.Failed++
			stats.BytesAfter += p.sizes[i]
			warnTask(run, p.paths[i], outcome.Err)
			continue
		}
		stats.Changed++
	}
	return nil
}
