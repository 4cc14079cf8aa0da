package config

import (
	"reflect"
	"testing"

	"github.com/vango-dev/bundler/internal/images"
)

func ptr[T any](v T) *T { return &v }

func TestResolveOverrideOrder(t *testing.T) {
	cfg := New()
	cfg.Overrides = []OverrideRule{
		{Pattern: "*.svg", Settings: Settings{Images: &ImageSettings{Quality: ptr(1.0)}}},
		{Pattern: "**/*", Settings: Settings{Images: &ImageSettings{Quality: ptr(0.5)}}},
	}

	eff := Resolve(cfg, cfg.Overrides, "a.svg")
	if eff.Images.Quality != 0.5 {
		t.Errorf("a.svg quality = %v, want 0.5 (later rule wins)", eff.Images.Quality)
	}
	if !reflect.DeepEqual(eff.Rules, []int{0, 1}) {
		t.Errorf("Rules = %v, want [0 1]", eff.Rules)
	}

	// Reversing the rules reverses the winner.
	rev := []OverrideRule{cfg.Overrides[1], cfg.Overrides[0]}
	if q := Resolve(cfg, rev, "a.svg").Images.Quality; q != 1.0 {
		t.Errorf("reversed quality = %v, want 1", q)
	}
}

func TestResolveMergeSemantics(t *testing.T) {
	cfg := New()
	cfg.Images.Breakpoints = []int{320, 640}
	cfg.Overrides = []OverrideRule{
		{Pattern: "img/**", Settings: Settings{Images: &ImageSettings{
			TargetFormats: []string{"avif"},
			KeepOriginal:  ptr(true),
		}}},
		{Pattern: "img/raw/*", Remove: true},
		{Pattern: "img/raw/*.png", Settings: Settings{
			Images: &ImageSettings{MaxSize: ptr(800)},
			Minify: &MinifySettings{KeepComments: ptr(true)},
		}},
		{Pattern: "**/*.png", Settings: Settings{Images: &ImageSettings{Breakpoints: []int{}}}},
	}

	eff := Resolve(cfg, cfg.Overrides, "./img/raw/a.png")

	if eff.Path != "img/raw/a.png" {
		t.Errorf("Path = %q", eff.Path)
	}
	if !reflect.DeepEqual(eff.Images.TargetFormats, []string{"avif"}) {
		t.Errorf("TargetFormats = %v, want replaced by [avif]", eff.Images.TargetFormats)
	}
	if !eff.Images.KeepOriginal {
		t.Error("KeepOriginal should be set")
	}
	if eff.Images.MaxSize != 800 {
		t.Errorf("MaxSize = %d, want 800", eff.Images.MaxSize)
	}
	if eff.Images.Quality != cfg.Images.Quality {
		t.Errorf("Quality = %v, want inherited %v", eff.Images.Quality, cfg.Images.Quality)
	}
	if !eff.Remove {
		t.Error("Remove is sticky once set")
	}
	if !eff.Minify.KeepComments || !eff.Minify.Enabled {
		t.Errorf("Minify = %+v, want merged", eff.Minify)
	}
	if eff.Images.Breakpoints == nil || len(eff.Images.Breakpoints) != 0 {
		t.Errorf("Breakpoints = %v, want replaced by empty", eff.Images.Breakpoints)
	}

	other := Resolve(cfg, cfg.Overrides, "css/site.css")
	if other.Remove || len(other.Rules) != 0 {
		t.Errorf("unmatched path got %+v", other)
	}
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	cfg := New()
	cfg.Images.Sizes = []images.Size{{Width: 100}}
	cfg.Overrides = []OverrideRule{
		{Pattern: "*", Settings: Settings{Images: &ImageSettings{TargetFormats: []string{"png"}}}},
	}
	before := cfg.Hash()

	eff := Resolve(cfg, cfg.Overrides, "x.jpg")
	eff.Images.TargetFormats[0] = "jxl"
	eff.Images.Sizes[0].Width = 999

	if cfg.Hash() != before {
		t.Error("Resolve result aliases the config")
	}
	if cfg.Overrides[0].Settings.Images.TargetFormats[0] != "png" {
		t.Error("Resolve result aliases the rule")
	}
}

func TestResolverDeterministic(t *testing.T) {
	cfg := New()
	cfg.Overrides = []OverrideRule{
		{Pattern: "**/*.{jpg,png}", Settings: Settings{Images: &ImageSettings{Quality: ptr(0.7)}}},
		{Pattern: "thumbs/*", Settings: Settings{Images: &ImageSettings{MaxSize: ptr(256)}}},
	}

	r, err := NewResolver(cfg, 2)
	if err != nil {
		t.Fatal(err)
	}

	paths := []string{"thumbs/a.jpg", "b.png", "c.css", "thumbs/a.jpg", "d/e.jpg", "b.png"}
	for _, p := range paths {
		got := r.Resolve(p)
		want := Resolve(cfg, cfg.Overrides, p)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Resolve(%q) = %+v, want %+v", p, got, want)
		}
	}

	// Mutating a returned value never leaks into later lookups.
	first := r.Resolve("b.png")
	first.Images.TargetFormats[0] = "bmp"
	if r.Resolve("b.png").Images.TargetFormats[0] == "bmp" {
		t.Error("memoized value was mutated through a returned copy")
	}
}

func TestResolverUnmatched(t *testing.T) {
	cfg := New()
	cfg.Overrides = []OverrideRule{
		{Pattern: "*.svg"},
		{Pattern: "fonts/**", Remove: true},
		{Pattern: "**/*.html"},
	}

	r, err := NewResolver(cfg, 0)
	if err != nil {
		t.Fatal(err)
	}

	got := r.Unmatched([]string{"index.html", "icons/a.svg"})
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Unmatched = %v, want [1]", got)
	}
}

func TestImagePolicyFormats(t *testing.T) {
	p := ImagePolicy{TargetFormats: []string{"webp", "jpg", "jpeg", "nope", "png"}}
	formats := p.Formats()

	var names []images.Format
	for _, f := range formats {
		names = append(names, f.Format)
	}
	want := []images.Format{images.WebP, images.JPEG, images.PNG}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Formats() = %v, want %v", names, want)
	}
}
