package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"

	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/images"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vbundle.json"

	// DefaultInput is the default source directory.
	DefaultInput = "src"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultCacheDir is the default build cache directory.
	DefaultCacheDir = ".vbundle-cache"

	// DefaultQuality is the default image quality dial.
	DefaultQuality = 0.8

	// DefaultMinSize is the narrowest generated image variant.
	DefaultMinSize = 64

	// DefaultPerTaskMemory is the memory budget assumed per concurrent task.
	DefaultPerTaskMemory = 256 << 20

	// DefaultConcurrencyCeiling bounds the number of concurrent tasks.
	DefaultConcurrencyCeiling = 8
)

// Config represents the complete vbundle.json configuration.
type Config struct {
	// Name is the project alias, used as the metrics namespace and in logs.
	Name string `json:"name,omitempty"`

	// Input is the source tree to bundle.
	Input string `json:"input,omitempty"`

	// Output is the directory the bundle is written to.
	Output string `json:"output,omitempty"`

	// Cache configures the content-addressed build cache.
	Cache CacheConfig `json:"cache"`

	// Images is the default image policy.
	Images ImagePolicy `json:"images"`

	// Minify is the default text minification policy.
	Minify MinifyPolicy `json:"minify"`

	// Overrides are applied in order to matching files.
	Overrides []OverrideRule `json:"overrides,omitempty"`

	// Concurrency bounds the transform scheduler.
	Concurrency ConcurrencyConfig `json:"concurrency"`

	// Icons is passed to the icon-set generator as-is.
	Icons json.RawMessage `json:"icons,omitempty"`

	// ServiceWorker is passed to the service-worker generator as-is.
	ServiceWorker json.RawMessage `json:"serviceWorker,omitempty"`

	// IgnoreErrors downgrades fatal cache and generator errors to warnings.
	IgnoreErrors bool `json:"ignoreErrors,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// CacheConfig contains build cache settings.
type CacheConfig struct {
	// Enabled toggles the cache. A disabled cache is deleted at the end of
	// the run.
	Enabled bool `json:"enabled"`

	// Dir is the cache directory.
	Dir string `json:"dir,omitempty"`

	// Required makes an unusable cache directory a fatal error.
	Required bool `json:"required,omitempty"`

	// Remote configures an optional S3 mirror.
	Remote *RemoteCacheConfig `json:"remote,omitempty"`
}

// RemoteCacheConfig points the cache at an S3-compatible bucket.
type RemoteCacheConfig struct {
	Bucket   string `json:"bucket"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`

	// ReadOnly disables uploads.
	ReadOnly bool `json:"readOnly,omitempty"`
}

// ImagePolicy controls how raster images are resized and re-encoded.
type ImagePolicy struct {
	// Enabled toggles image processing.
	Enabled bool `json:"enabled"`

	// TargetFormats are the formats every image is encoded to.
	TargetFormats []string `json:"targetFormats,omitempty"`

	// Quality is the quality dial in [0,1]; 1 is lossless.
	Quality float64 `json:"quality"`

	MinSize int `json:"minSize,omitempty"`
	MaxSize int `json:"maxSize,omitempty"`

	// Resize enables automatic breakpoint sizes.
	Resize bool `json:"resize"`

	// Sizes are explicit output sizes.
	Sizes []images.Size `json:"sizes,omitempty"`

	FallbackSize *images.Size `json:"fallbackSize,omitempty"`

	// KeepOriginal keeps the source file and adds its size to the set.
	KeepOriginal bool `json:"keepOriginal,omitempty"`

	Breakpoints []int    `json:"breakpoints,omitempty"`
	SizeHints   []string `json:"sizeHints,omitempty"`

	// DedupRatio is the proximity band; 0 uses images.DefaultDedupRatio.
	DedupRatio float64 `json:"dedupRatio,omitempty"`
}

// MinifyPolicy controls text minification.
type MinifyPolicy struct {
	Enabled          bool `json:"enabled"`
	KeepComments     bool `json:"keepComments,omitempty"`
	KeepWhitespace   bool `json:"keepWhitespace,omitempty"`
	KeepDocumentTags bool `json:"keepDocumentTags,omitempty"`
	KeepNames        bool `json:"keepNames,omitempty"`
	// Precision is the number of significant digits kept in numbers; 0 keeps all.
	Precision int `json:"precision,omitempty"`
}

// ConcurrencyConfig bounds the scheduler.
type ConcurrencyConfig struct {
	// Ceiling is the maximum number of concurrent tasks.
	Ceiling int `json:"ceiling,omitempty"`

	// PerTaskMemory is the memory assumed per task, in bytes.
	PerTaskMemory int64 `json:"perTaskMemory,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Input:  DefaultInput,
		Output: DefaultOutput,
		Cache: CacheConfig{
			Enabled: true,
			Dir:     DefaultCacheDir,
		},
		Images: ImagePolicy{
			Enabled:       true,
			TargetFormats: []string{"webp", "jpeg"},
			Quality:       DefaultQuality,
			MinSize:       DefaultMinSize,
			MaxSize:       images.DefaultMaxSize,
			Resize:        true,
		},
		Minify: MinifyPolicy{
			Enabled: true,
		},
		Concurrency: ConcurrencyConfig{
			Ceiling:       DefaultConcurrencyCeiling,
			PerTaskMemory: DefaultPerTaskMemory,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for vbundle.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("B100").
				WithDetail("No vbundle.json found in " + filepath.Dir(path)).
				WithSuggestion("Create vbundle.json with at least {\"input\": \"src\"}")
		}
		return nil, errors.New("B101").Wrap(err)
	}

	cfg, err := Parse(data)
	if err != nil {
		var be *errors.BundleError
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &be) && stderrors.As(err, &syntaxErr) {
			be.WithOffset(path, data, syntaxErr.Offset)
		}
		return nil, err
	}

	cfg.configPath = path
	return cfg, nil
}

// Parse decodes a vbundle.json document over the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.New("B101").
			WithDetail("Failed to parse vbundle.json: " + err.Error()).
			WithSuggestion("Check that vbundle.json is valid JSON and uses only known keys").
			Wrap(err)
	}
	if dec.More() {
		return nil, errors.New("B101").
			WithDetail("vbundle.json contains more than one JSON value")
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("B101").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("B101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Input == "" {
		c.Input = DefaultInput
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = DefaultCacheDir
	}
	if c.Images.MaxSize == 0 {
		c.Images.MaxSize = images.DefaultMaxSize
	}
	if c.Concurrency.Ceiling == 0 {
		c.Concurrency.Ceiling = DefaultConcurrencyCeiling
	}
	if c.Concurrency.PerTaskMemory == 0 {
		c.Concurrency.PerTaskMemory = DefaultPerTaskMemory
	}
}

// InputPath returns the absolute path to the input directory.
func (c *Config) InputPath() string {
	return c.resolve(c.Input)
}

// OutputPath returns the absolute path to the build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Output)
}

// CachePath returns the absolute path to the cache directory.
func (c *Config) CachePath() string {
	return c.resolve(c.Cache.Dir)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Hash returns a digest of every setting that affects transform output.
// Paths, concurrency and cache location are excluded.
func (c *Config) Hash() string {
	data, _ := json.Marshal(struct {
		Images    ImagePolicy    `json:"images"`
		Minify    MinifyPolicy   `json:"minify"`
		Overrides []OverrideRule `json:"overrides"`
	}{c.Images, c.Minify, c.Overrides})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing vbundle.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("B100").
				WithDetail("No vbundle.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create vbundle.json in the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
