package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	Fatal    bool
	DocURL   string
}

const docBase = "https://vango.dev/docs/bundler/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (B100-B199)
	// ============================================

	"B100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "vbundle looks for vbundle.json in the project root or any parent directory.",
		Fatal:    true,
		DocURL:   docBase + "B100",
	},
	"B101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "vbundle.json could not be parsed.",
		Fatal:    true,
		DocURL:   docBase + "B101",
	},
	"B102": {
		Category: CategoryConfig,
		Message:  "Invalid override pattern",
		Detail:   "An override rule has a glob pattern that cannot be parsed.",
		Fatal:    true,
		DocURL:   docBase + "B102",
	},
	"B103": {
		Category: CategoryConfig,
		Message:  "Invalid image settings",
		Detail:   "An image policy value is out of range.",
		Fatal:    true,
		DocURL:   docBase + "B103",
	},
	"B104": {
		Category: CategoryConfig,
		Message:  "Unknown output format",
		Detail:   "Target formats must be one of jpeg, png, webp, avif or jxl.",
		Fatal:    true,
		DocURL:   docBase + "B104",
	},
	"B105": {
		Category: CategoryConfig,
		Message:  "Override rule matched no files",
		Detail:   "The pattern of an override rule did not match any file in the input tree.",
		Fatal:    false,
		DocURL:   docBase + "B105",
	},
	"B106": {
		Category: CategoryConfig,
		Message:  "Invalid concurrency settings",
		Detail:   "Concurrency ceiling and per-task memory must not be negative.",
		Fatal:    true,
		DocURL:   docBase + "B106",
	},

	// ============================================
	// Cache Errors (B200-B299)
	// ============================================

	"B200": {
		Category: CategoryCache,
		Message:  "Cache directory unusable",
		Detail:   "The build cache directory could not be created or read.",
		Fatal:    true,
		DocURL:   docBase + "B200",
	},
	"B201": {
		Category: CategoryCache,
		Message:  "Cache write failed",
		Detail:   "An artifact could not be written to the build cache. The build continues without caching it.",
		Fatal:    false,
		DocURL:   docBase + "B201",
	},
	"B202": {
		Category: CategoryCache,
		Message:  "Cache seal failed",
		Detail:   "The cache envelope could not be written. The next run rebuilds the cache from empty.",
		Fatal:    false,
		DocURL:   docBase + "B202",
	},
	"B203": {
		Category: CategoryCache,
		Message:  "Cache key collision",
		Detail:   "Two different artifacts were produced for the same content key. The first stored artifact is kept.",
		Fatal:    false,
		DocURL:   docBase + "B203",
	},
	"B204": {
		Category: CategoryCache,
		Message:  "Remote cache unavailable",
		Detail:   "The remote cache mirror could not be reached. Only the local cache is used.",
		Fatal:    false,
		DocURL:   docBase + "B204",
	},

	// ============================================
	// Codec Errors (B300-B399)
	// ============================================

	"B300": {
		Category: CategoryCodec,
		Message:  "Image decode failed",
		Detail:   "The image could not be decoded. The original file is left in place.",
		Fatal:    false,
		DocURL:   docBase + "B300",
	},
	"B301": {
		Category: CategoryCodec,
		Message:  "Image encode failed",
		Detail:   "The encoder rejected the image. The original file is left in place.",
		Fatal:    false,
		DocURL:   docBase + "B301",
	},
	"B302": {
		Category: CategoryCodec,
		Message:  "Degenerate image size",
		Detail:   "The image has zero width or height and cannot be resized.",
		Fatal:    false,
		DocURL:   docBase + "B302",
	},
	"B303": {
		Category: CategoryCodec,
		Message:  "Minification failed",
		Detail:   "The minifier rejected the file. The original file is left in place.",
		Fatal:    false,
		DocURL:   docBase + "B303",
	},
	"B304": {
		Category: CategoryCodec,
		Message:  "Unsupported format",
		Detail:   "No encoder is available for the requested format.",
		Fatal:    false,
		DocURL:   docBase + "B304",
	},

	// ============================================
	// Pipeline Errors (B400-B499)
	// ============================================

	"B400": {
		Category: CategoryPipeline,
		Message:  "Input directory not found",
		Detail:   "The input directory configured in vbundle.json does not exist.",
		Fatal:    true,
		DocURL:   docBase + "B400",
	},
	"B401": {
		Category: CategoryPipeline,
		Message:  "Working tree setup failed",
		Detail:   "The temporary working copy of the input tree could not be created.",
		Fatal:    true,
		DocURL:   docBase + "B401",
	},
	"B402": {
		Category: CategoryPipeline,
		Message:  "Output write failed",
		Detail:   "The build output could not be written.",
		Fatal:    true,
		DocURL:   docBase + "B402",
	},
	"B403": {
		Category: CategoryPipeline,
		Message:  "Generator failed",
		Detail:   "An icon or service-worker generator returned an error.",
		Fatal:    true,
		DocURL:   docBase + "B403",
	},
	"B404": {
		Category: CategoryPipeline,
		Message:  "Build interrupted",
		Detail:   "The build was cancelled. In-flight tasks were drained before exit.",
		Fatal:    true,
		DocURL:   docBase + "B404",
	},
	"B405": {
		Category: CategoryPipeline,
		Message:  "File left unchanged",
		Detail:   "A file could not be transformed or removed and was kept as it was.",
		Fatal:    false,
		DocURL:   docBase + "B405",
	},
	"B406": {
		Category: CategoryPipeline,
		Message:  "Build completed with warnings",
		Detail:   "The output was written, but some files were left unchanged or some settings were ignored.",
		Fatal:    false,
		DocURL:   docBase + "B406",
	},

	// ============================================
	// CLI Errors (B500-B599)
	// ============================================

	"B500": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Fatal:    true,
		DocURL:   docBase + "B500",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
