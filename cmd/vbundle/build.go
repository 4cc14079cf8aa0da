package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bundler/internal/build"
	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/metrics"
)

type buildFlags struct {
	output       string
	noCache      bool
	ignoreErrors bool
	concurrency  int
	metricsFile  string
	strict       bool
}

func (f buildFlags) validate() error {
	if f.concurrency < 0 {
		return errors.New("B500").
			WithDetail(fmt.Sprintf("--concurrency must not be negative, got %d", f.concurrency))
	}
	return nil
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output directory (default from vbundle.json)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Ignore and remove the build cache")
	cmd.Flags().BoolVar(&f.ignoreErrors, "ignore-errors", false, "Downgrade cache, generator and override errors to warnings")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "j", 0, "Maximum concurrent tasks (default: derived from CPUs and memory)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each build")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Exit with status 2 when the build produced warnings")
}

func buildCmd() *cobra.Command {
	var flags buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the bundle",
		Long: `Build the bundle from the input directory.

This command:
  • Removes files marked by override rules
  • Encodes responsive image variants
  • Minifies markup, stylesheets, scripts, data and SVG
  • Generates icons and a service worker (if configured)
  • Writes bundle-manifest.json

Examples:
  vbundle build
  vbundle build --output=public
  vbundle build --no-cache --concurrency=2
  vbundle build --strict --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				cancel()
			}()

			fmt.Println("  Building bundle...")
			fmt.Println()
			result, err := runBuild(ctx, cfg, flags)
			if err != nil {
				return err
			}
			return checkWarnings(result, flags.strict)
		},
	}

	flags.register(cmd)
	return cmd
}

// runBuild runs one build and prints its summary.
func runBuild(ctx context.Context, cfg *config.Config, flags buildFlags) (*build.Result, error) {
	var m *metrics.Metrics
	if flags.metricsFile != "" {
		m = metrics.New()
	}

	builder := build.New(cfg, build.Options{
		ToolVersion:  version,
		Output:       flags.output,
		NoCache:      flags.noCache,
		IgnoreErrors: flags.ignoreErrors,
		Concurrency:  flags.concurrency,
		Logger:       newLogger(),
		Metrics:      m,
		OnProgress:   progressPrinter(),
	})

	result, err := builder.Build(ctx)

	if m != nil {
		if werr := m.WriteTextfile(flags.metricsFile); werr != nil {
			warn("Could not write metrics: %v", werr)
		}
	}
	if err != nil {
		return nil, err
	}

	printResult(result)
	return result, nil
}

// progressPrinter prints build steps, and task failures as they happen.
func progressPrinter() func(build.Progress) {
	return func(p build.Progress) {
		switch {
		case p.Step != "":
			info("%s", p.Step)
		case p.Err != nil && verbose:
			errorMsg("%s: %v", p.Path, p.Err)
		}
	}
}

// checkWarnings fails a strict build that produced warnings.
func checkWarnings(result *build.Result, strict bool) error {
	if !strict || len(result.Warnings) == 0 {
		return nil
	}
	return errors.New("B406").
		WithDetail(fmt.Sprintf("%d warnings; first: %s", len(result.Warnings), result.Warnings[0].FormatCompact())).
		WithSuggestion("Fix the files listed above or run without --strict")
}

// printWarnings prints build warnings to w, one JSON object per line with
// --json.
func printWarnings(w io.Writer, warnings []*errors.BundleError) {
	if jsonOutput {
		for _, be := range warnings {
			fmt.Fprintln(w, be.FormatJSON())
		}
		return
	}
	fmt.Fprintf(w, "\033[33m⚠\033[0m %d warnings\n", len(warnings))
	for _, be := range warnings {
		fmt.Fprintf(w, "    %s\n", be.FormatCompact())
		if verbose && be.Detail != "" {
			fmt.Fprintf(w, "      %s\n", be.Detail)
		}
	}
	fmt.Fprintln(w)
}

func printResult(result *build.Result) {
	fmt.Println()
	success("Build complete in %s", result.Duration.Round(time.Millisecond))
	fmt.Println()

	fmt.Println("  Phases:")
	for _, p := range result.Phases {
		line := fmt.Sprintf("    %-8s %4d files, %4d changed", p.Name, p.Files, p.Changed)
		if p.Failed > 0 {
			line += fmt.Sprintf(", %d failed", p.Failed)
		}
		if p.BytesBefore > 0 {
			line += fmt.Sprintf("  %s → %s", formatBytes(p.BytesBefore), formatBytes(p.BytesAfter))
		}
		fmt.Println(line)
	}
	fmt.Println()

	fmt.Printf("  Cache:    %s (%d hits, %d misses", result.CacheStatus, result.Cache.Hits, result.Cache.Misses)
	if result.Cache.RemoteHits > 0 {
		fmt.Printf(", %d remote", result.Cache.RemoteHits)
	}
	fmt.Println(")")
	if len(result.Generated) > 0 {
		fmt.Printf("  Generated: %d files\n", len(result.Generated))
	}
	fmt.Printf("  Output:   %s/\n", result.Output)
	fmt.Printf("  Saved:    %s\n", formatBytes(result.Saved()))
	fmt.Println()

	switch {
	case len(result.Warnings) == 0:
	case jsonOutput:
		printWarnings(os.Stderr, result.Warnings)
	default:
		printWarnings(os.Stdout, result.Warnings)
	}
}
