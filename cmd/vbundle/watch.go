package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bundler/internal/build"
	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/watch"
)

func watchCmd() *cobra.Command {
	var (
		flags    buildFlags
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the bundle when files change",
		Long: `Build the bundle, then rebuild whenever a file in the project changes.

Changes to vbundle.json reload the configuration. The output and cache
directories are not watched, and are re-derived when the configuration
reloads.

Examples:
  vbundle watch
  vbundle watch --interval=1s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runWatch(cfg, flags, interval)
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 200*time.Millisecond, "Polling interval")
	return cmd
}

func runWatch(cfg *config.Config, flags buildFlags, interval time.Duration) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\n  Stopping...")
		cancel()
	}()

	var mu sync.Mutex
	rebuild := func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		if reason != "" {
			info("%s", reason)
		}
		result, err := runBuild(ctx, cfg, flags)
		if err == nil {
			err = checkWarnings(result, flags.strict)
		}
		if err != nil && ctx.Err() == nil {
			reportError(err)
		}
	}

	rebuild("")

	w := watch.New(watch.Config{
		Root:     cfg.Dir(),
		Ignore:   watchIgnore(cfg, flags),
		Interval: interval,
	})
	w.OnChange(func(changes []watch.Change) {
		for _, c := range changes {
			if c.Path != config.ConfigFileName {
				continue
			}
			reloaded, err := config.LoadFile(cfg.Path())
			if err != nil {
				reportError(err)
				return
			}
			mu.Lock()
			cfg = reloaded
			mu.Unlock()
			w.SetIgnore(watchIgnore(reloaded, flags))
			break
		}
		rebuild(describeChanges(changes))
	})

	info("Watching %s for changes...", cfg.Dir())
	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// watchIgnore extends the default ignore list with the output and cache
// directories and stale working trees.
func watchIgnore(cfg *config.Config, flags buildFlags) []string {
	ignore := append([]string(nil), watch.DefaultIgnore...)
	output := build.New(cfg, build.Options{Output: flags.output}).OutputPath()
	for _, dir := range []string{output, cfg.CachePath()} {
		rel, err := filepath.Rel(cfg.Dir(), dir)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		ignore = append(ignore, filepath.ToSlash(rel))
	}
	return append(ignore, ".vbundle-work-*")
}

func describeChanges(changes []watch.Change) string {
	if len(changes) == 1 {
		return fmt.Sprintf("%s %s, rebuilding...", changes[0].Path, changes[0].Op)
	}
	return fmt.Sprintf("%d files changed, rebuilding...", len(changes))
}
