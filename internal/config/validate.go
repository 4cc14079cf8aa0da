package config

import (
	"fmt"

	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/images"
	"github.com/vango-dev/bundler/internal/pathmatch"
)

// Validate checks the configuration for errors. It returns the first
// error found.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("B101").WithDetail("input must not be empty")
	}
	if err := validateImages("images", c.Images); err != nil {
		return err
	}
	if c.Concurrency.Ceiling < 0 || c.Concurrency.PerTaskMemory < 0 {
		return errors.New("B106").
			WithDetail(fmt.Sprintf("ceiling=%d perTaskMemory=%d", c.Concurrency.Ceiling, c.Concurrency.PerTaskMemory))
	}
	if c.Cache.Remote != nil && c.Cache.Remote.Bucket == "" {
		return errors.New("B101").
			WithDetail("cache.remote.bucket must be set when cache.remote is present")
	}
	for i, rule := range c.Overrides {
		if err := validateRule(i, rule); err != nil {
			return err
		}
	}
	return nil
}

// InvalidOverrides returns the errors of every invalid override rule, keyed
// by rule index.
func (c *Config) InvalidOverrides() map[int]error {
	bad := make(map[int]error)
	for i, rule := range c.Overrides {
		if err := validateRule(i, rule); err != nil {
			bad[i] = err
		}
	}
	return bad
}

// WithoutOverrides returns a shallow copy of c with the given override
// rules dropped.
func (c *Config) WithoutOverrides(drop map[int]error) *Config {
	out := *c
	out.Overrides = make([]OverrideRule, 0, len(c.Overrides))
	for i, rule := range c.Overrides {
		if _, skip := drop[i]; !skip {
			out.Overrides = append(out.Overrides, rule)
		}
	}
	return &out
}

func validateRule(i int, rule OverrideRule) error {
	if err := pathmatch.Validate(rule.Pattern); err != nil {
		return errors.New("B102").
			WithDetail(fmt.Sprintf("overrides[%d]: %v", i, err)).
			WithSuggestion("Patterns use shell glob syntax: *, **, {a,b}, [a-z]").
			Wrap(err)
	}
	if rule.Settings.Images != nil {
		// Validate the rule's image settings in isolation over a permissive base.
		merged := ImagePolicy{Quality: DefaultQuality}.Merge(rule.Settings.Images)
		if err := validateImages(fmt.Sprintf("overrides[%d].settings.images", i), merged); err != nil {
			return err
		}
	}
	return nil
}

func validateImages(field string, p ImagePolicy) error {
	for _, name := range p.TargetFormats {
		if _, ok := images.LookupFormat(name); !ok {
			return errors.New("B104").
				WithDetail(fmt.Sprintf("%s.targetFormats: unknown format %q", field, name)).
				WithSuggestion(fmt.Sprintf("Use one of %v", images.FormatNames()))
		}
	}
	bad := func(msg string, args ...any) error {
		return errors.New("B103").WithDetail(field + "." + fmt.Sprintf(msg, args...))
	}
	if p.Quality < 0 || p.Quality > 1 {
		return bad("quality must be between 0 and 1, got %g", p.Quality)
	}
	if p.MinSize < 0 || p.MaxSize < 0 {
		return bad("minSize and maxSize must not be negative")
	}
	if p.MaxSize > 0 && p.MinSize > p.MaxSize {
		return bad("minSize %d is larger than maxSize %d", p.MinSize, p.MaxSize)
	}
	if p.DedupRatio < 0 || p.DedupRatio >= 1 {
		return bad("dedupRatio must be in [0,1), got %g", p.DedupRatio)
	}
	for _, bp := range p.Breakpoints {
		if bp <= 0 {
			return bad("breakpoints must be positive, got %d", bp)
		}
	}
	for _, hint := range p.SizeHints {
		if _, err := images.ParseSizeHint(hint); err != nil {
			return bad("sizeHints: %v", err)
		}
	}
	return nil
}
