package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	verbose    bool
	noColor    bool
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vbundle",
		Short: "Build optimized web-app bundles",
		Long: `vbundle builds a deployable web-app bundle from a source tree.

Every file is transformed according to vbundle.json and its glob-matched
overrides. Results are cached by content hash, so unchanged files are
never processed twice:

  • Responsive image variants with perceptual quality search
  • HTML, CSS, JS, JSON and SVG minification
  • Icon sets and a service-worker precache list
  • Bundle manifest mapping each source to its variants`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to vbundle.json (default: search from the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print errors and warnings to stderr as JSON lines")

	rootCmd.AddCommand(
		buildCmd(),
		watchCmd(),
		cleanCmd(),
		resolveCmd(),
		errorsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(exitCode(err))
	}
}

// reportError prints err to stderr, as JSON with --json.
func reportError(err error) {
	if jsonOutput {
		errors.PrintJSON(err, "B500")
		return
	}
	errors.PrintError(err)
}

// exitCode maps an error to the process exit status: 130 when the build
// was interrupted, 1 for fatal errors, 2 for non-fatal ones.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.HasCode(err, "B404"):
		return 130
	case errors.IsFatal(err):
		return 1
	default:
		return 2
	}
}

// loadConfig loads vbundle.json from --config or the project root.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.LoadFromWorkingDir()
}

// newLogger returns the logger passed to the pipeline.
func newLogger() *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	sign := ""
	if b < 0 {
		sign, b = "-", -b
	}
	if b < unit {
		return fmt.Sprintf("%s%d B", sign, b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %cB", sign, float64(b)/float64(div), "KMGTPE"[exp])
}
