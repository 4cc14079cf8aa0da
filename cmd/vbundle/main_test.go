package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/bundler/internal/build"
	"github.com/vango-dev/bundler/internal/config"
	"github.com/vango-dev/bundler/internal/errors"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 << 20, "5.0 MB"},
		{-2048, "-2.0 KB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in), "formatBytes(%d)", tt.in)
	}
}

func TestBuildFlagsValidate(t *testing.T) {
	assert.NoError(t, buildFlags{concurrency: 4}.validate())

	err := buildFlags{concurrency: -1}.validate()
	assert.True(t, errors.HasCode(err, "B500"))
}

func TestRunResolve(t *testing.T) {
	dir := t.TempDir()
	cfgJSON := `{
  "images": {"quality": 0.8},
  "overrides": [
    {"pattern": "**/*.svg", "settings": {"images": {"quality": 1}}},
    {"pattern": "**/*", "settings": {"images": {"quality": 0.5}}},
    {"pattern": "legacy/**", "remove": true}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(cfgJSON), 0644))
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runResolve(&buf, cfg, []string{"a.svg"}))

	var eff config.Effective
	require.NoError(t, json.Unmarshal(buf.Bytes(), &eff))
	assert.Equal(t, "a.svg", eff.Path)
	assert.Equal(t, 0.5, eff.Images.Quality)
	assert.Equal(t, []int{0, 1}, eff.Rules)
	assert.False(t, eff.Remove)

	buf.Reset()
	require.NoError(t, runResolve(&buf, cfg, []string{"legacy/old.js", filepath.Join(cfg.InputPath(), "b.png")}))

	var many []config.Effective
	require.NoError(t, json.Unmarshal(buf.Bytes(), &many))
	require.Len(t, many, 2)
	assert.True(t, many[0].Remove)
	assert.Equal(t, "b.png", many[1].Path)
}

func TestWatchIgnore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(`{"output": "public"}`), 0644))
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	ignore := watchIgnore(cfg, buildFlags{})
	assert.Contains(t, ignore, "public")
	assert.Contains(t, ignore, config.DefaultCacheDir)
	assert.Contains(t, ignore, ".vbundle-work-*")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"cancelled", errors.New("B404"), 130},
		{"cancelled wrapped", errors.New("B401").Wrap(errors.New("B404")), 130},
		{"fatal", errors.New("B402"), 1},
		{"plain error", os.ErrNotExist, 1},
		{"warnings", errors.New("B406"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestCheckWarnings(t *testing.T) {
	clean := &build.Result{}
	warned := &build.Result{Warnings: []*errors.BundleError{errors.New("B405").WithPath("a.png")}}

	assert.NoError(t, checkWarnings(clean, true))
	assert.NoError(t, checkWarnings(warned, false))

	err := checkWarnings(warned, true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, "B406"))
	assert.False(t, errors.IsFatal(err))
	assert.Equal(t, 2, exitCode(err))
}

func TestPrintWarningsJSON(t *testing.T) {
	jsonOutput = true
	defer func() { jsonOutput = false }()

	be := errors.New("B405").WithPath("img/a.png")
	be.Fatal = false

	var buf bytes.Buffer
	printWarnings(&buf, []*errors.BundleError{be, errors.New("B105")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "B405", decoded["code"])
	assert.Equal(t, "img/a.png", decoded["path"])
	assert.Equal(t, false, decoded["fatal"])
}

func TestPrintWarningsText(t *testing.T) {
	var buf bytes.Buffer
	printWarnings(&buf, []*errors.BundleError{errors.New("B405").WithPath("img/a.png")})
	assert.Contains(t, buf.String(), "1 warnings")
	assert.Contains(t, buf.String(), "B405: File left unchanged (img/a.png)")
}

func TestRunErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runErrors(&buf, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, len(errors.GetAllCodes()))
	assert.Contains(t, buf.String(), "B402")

	buf.Reset()
	require.NoError(t, runErrors(&buf, []string{"B405"}))
	assert.Contains(t, buf.String(), "File left unchanged (pipeline, warning)")
	assert.Contains(t, buf.String(), "errors/B405")

	err := runErrors(&buf, []string{"B999"})
	assert.True(t, errors.HasCode(err, "B500"))
}
