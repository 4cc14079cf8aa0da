package config

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vango-dev/bundler/internal/pathmatch"
)

// DefaultResolverCacheSize is the number of resolved paths a Resolver keeps.
const DefaultResolverCacheSize = 4096

// Effective is the configuration that applies to one file.
type Effective struct {
	// Path is the logical path the configuration was resolved for.
	Path string `json:"path"`

	Images ImagePolicy  `json:"images"`
	Minify MinifyPolicy `json:"minify"`

	// Remove reports whether any matching rule marked the file for deletion.
	Remove bool `json:"remove"`

	// Rules are the indices of the matching override rules, in order.
	Rules []int `json:"rules,omitempty"`
}

// Clone returns a deep copy of e.
func (e Effective) Clone() Effective {
	e.Images = e.Images.Clone()
	if e.Rules != nil {
		e.Rules = append([]int(nil), e.Rules...)
	}
	return e
}

// Resolve folds every override rule that matches path over the global
// policies, in declaration order. Rules with malformed patterns never match.
func Resolve(global *Config, rules []OverrideRule, path string) Effective {
	path = pathmatch.Normalize(path)
	eff := Effective{
		Path:   path,
		Images: global.Images.Clone(),
		Minify: global.Minify,
	}
	for i, rule := range rules {
		if !pathmatch.MustMatch(rule.Pattern, path) {
			continue
		}
		eff.Rules = append(eff.Rules, i)
		eff.Images = eff.Images.Merge(rule.Settings.Images)
		eff.Minify = eff.Minify.Merge(rule.Settings.Minify)
		eff.Remove = eff.Remove || rule.Remove
	}
	return eff
}

// Resolver resolves effective configurations for a single, immutable
// Config and memoizes the results by path.
type Resolver struct {
	cfg  *Config
	memo *lru.Cache[string, Effective]
}

// NewResolver creates a Resolver. A non-positive size uses
// DefaultResolverCacheSize.
func NewResolver(cfg *Config, size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultResolverCacheSize
	}
	memo, err := lru.New[string, Effective](size)
	if err != nil {
		return nil, err
	}
	return &Resolver{cfg: cfg, memo: memo}, nil
}

// Config returns the configuration the resolver was created for.
func (r *Resolver) Config() *Config {
	return r.cfg
}

// Resolve returns the effective configuration for a logical path. The
// returned value is owned by the caller.
func (r *Resolver) Resolve(path string) Effective {
	path = pathmatch.Normalize(path)
	if eff, ok := r.memo.Get(path); ok {
		return eff.Clone()
	}
	eff := Resolve(r.cfg, r.cfg.Overrides, path)
	r.memo.Add(path, eff)
	return eff.Clone()
}

// Unmatched returns the indices of the override rules that match none of
// paths.
func (r *Resolver) Unmatched(paths []string) []int {
	hit := make([]bool, len(r.cfg.Overrides))
	for _, p := range paths {
		for _, i := range r.Resolve(p).Rules {
			hit[i] = true
		}
	}
	var out []int
	for i, ok := range hit {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}
