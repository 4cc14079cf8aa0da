// Package codec provides the default image codec, perceptual similarity
// metric and text minifier used by the build pipeline.
//
// JPEG and PNG are encoded in pure Go. WebP, AVIF and JPEG XL are encoded
// by the external cwebp, avifenc and cjxl binaries when they are on PATH;
// requesting a format whose tool is missing returns ErrUnsupportedFormat.
// WebP is decoded in pure Go with golang.org/x/image/webp.
//
// Text minification is backed by github.com/tdewolff/minify/v2.
package codec
