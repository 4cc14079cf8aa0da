// Package build drives a vbundle build.
//
// A build copies the input tree into a temporary working tree next to the
// output directory, runs a fixed sequence of phases over it and then
// promotes it to the output directory:
//
//   - icons generator (when configured)
//   - discard: delete files whose effective configuration has remove set
//   - image: resize and re-encode raster images into responsive variants
//   - text: minify markup, stylesheets, scripts, JSON and SVG
//   - bundle-manifest.json and the service-worker generator
//
// Each phase is a barrier: it enumerates the working tree, resolves the
// effective configuration per file, schedules its tasks on the bounded
// scheduler and applies the results before the next phase starts. Transform
// results go through the content-addressed cache, so unchanged inputs are
// never re-encoded.
//
// Per-file failures become warnings on the Result and leave the file
// untouched. Fatal errors drain the running tasks, remove the working tree
// and leave the previous output in place.
//
// # Usage
//
//	builder := build.New(cfg, build.Options{ToolVersion: version})
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Built in %s, saved %d bytes\n", result.Duration, result.Saved())
//
// # Output Structure
//
//	dist/
//	├── index.html
//	├── img/
//	│   ├── hero-640w.webp
//	│   ├── hero-640w.jpg
//	│   ├── hero-1280w.webp
//	│   └── hero-1280w.jpg
//	├── sw.js                   # service worker (optional)
//	└── bundle-manifest.json    # source → variants
package build
