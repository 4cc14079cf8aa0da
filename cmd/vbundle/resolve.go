package main

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/pathmatch"
)

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Print the effective configuration of files",
		Long: `Print the configuration that applies to each path after every
matching override rule has been merged.

Paths are relative to the input directory.

Examples:
  vbundle resolve images/hero.png
  vbundle resolve index.html app.css`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runResolve(cmd.OutOrStdout(), cfg, args)
		},
	}
	return cmd
}

func runResolve(w io.Writer, cfg *config.Config, paths []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	resolver, err := config.NewResolver(cfg, len(paths))
	if err != nil {
		return err
	}

	out := make([]config.Effective, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			if rel, err := filepath.Rel(cfg.InputPath(), p); err == nil {
				p = rel
			}
		}
		out = append(out, resolver.Resolve(pathmatch.Normalize(p)))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(out) == 1 {
		return enc.Encode(out[0])
	}
	return enc.Encode(out)
}
