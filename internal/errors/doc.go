// Package errors provides structured, actionable error messages for vbundle.
//
// Every error raised by the build carries a registered code (e.g. "B101")
// which maps to:
//   - a category (config, cache, codec, pipeline, cli)
//   - a short message and a longer explanation
//   - whether the condition aborts the run
//   - a documentation URL
//
// # Error Categories
//
//   - config: vbundle.json could not be loaded or failed validation
//   - cache: the build cache could not be opened, read or sealed
//   - codec: an image or text transform failed for one file
//   - pipeline: the build itself could not proceed (missing input, I/O)
//   - cli: command-line usage errors
//
// Codec errors are recoverable: the build logs them as warnings and leaves
// the affected file untouched. Config and pipeline errors are fatal unless
// the build runs with --ignore-errors and the code allows downgrading.
//
// # Usage
//
//	err := errors.New("B102").
//	    WithLocation("vbundle.json", 14, 18).
//	    WithDetail(`override #2 has pattern "src/{a,b"`).
//	    WithSuggestion("Close the brace group or escape the brace")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR B102: Invalid override pattern
//	//
//	//   vbundle.json:14:18
//	//
//	//     12 │   "overrides": [
//	//     13 │     {
//	//   → 14 │       "pattern": "src/{a,b",
//	//        │                  ^
//	//     15 │       "settings": {}
//	//     16 │     }
//	//
//	//   override #2 has pattern "src/{a,b"
//	//
//	//   Hint: Close the brace group or escape the brace
package errors
