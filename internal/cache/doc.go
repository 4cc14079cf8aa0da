// Package cache implements the content-addressed build cache.
//
// Every transform result is stored under a Key derived from the SHA-256 of
// the source bytes, the transform kind and a canonical serialization of the
// transform parameters. The same bytes transformed with the same parameters
// always map to the same entry, whatever the source path.
//
// # Layout
//
//	.vbundle-cache/
//	  envelope.json           folder hash, tool version, config hash
//	  objects/
//	    3f/
//	      3fa4...e1           artifact bytes
//	      3fa4...e1.json      sidecar metadata
//
// The envelope is checked by Ensure at the start of a run. Any mismatch
// (a changed tool version or config, or files touched outside vbundle)
// discards the whole directory. Seal rewrites the envelope at the end of a
// successful run.
//
// Entries are written to a temporary file and renamed into place, so a
// reader never observes a partial artifact. A corrupted entry is removed
// and reported as a miss.
package cache
