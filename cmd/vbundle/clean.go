package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/bundler/internal/build"
)

func cleanCmd() *cobra.Command {
	var (
		output    string
		keepCache bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the build output and cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			builder := build.New(cfg, build.Options{Output: output})
			if err := builder.Clean(); err != nil {
				return err
			}
			success("Removed %s", builder.OutputPath())

			if keepCache {
				return nil
			}
			if err := builder.CleanCache(); err != nil {
				return err
			}
			success("Removed %s", cfg.CachePath())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from vbundle.json)")
	cmd.Flags().BoolVar(&keepCache, "keep-cache", false, "Keep the build cache")
	return cmd
}
