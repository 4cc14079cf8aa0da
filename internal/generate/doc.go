// Package generate implements the build's file generators.
//
// Generators run around the transform phases: Icons runs before them and
// renders a square icon set from one source image; Precache runs after them
// and writes a service worker with a revisioned precache list of the final
// bundle. Each generator is configured by an opaque JSON blob from
// vbundle.json and is skipped when the blob is empty.
package generate
