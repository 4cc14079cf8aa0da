// Package pathmatch matches logical file paths against shell-glob patterns.
//
// Paths are always treated as POSIX-style, forward-slash separated paths
// relative to the input root, regardless of the host filesystem. Patterns
// support `*`, `**`, `?`, brace groups (`{png,jpg}`) and character classes
// (`[a-z]`).
//
// A pattern that contains no slash is matched against the base name as well
// as the full path, so `*.svg` matches both `logo.svg` and `icons/logo.svg`.
package pathmatch

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Normalize converts a host path into a logical path: forward slashes, no
// leading "./" or "/", cleaned.
func Normalize(p string) string {
	p = filepath.ToSlash(p)
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// Validate reports an error if pattern cannot be parsed.
func Validate(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty pattern")
	}
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid glob pattern %q", pattern)
	}
	return nil
}

// Match reports whether the logical path matches pattern. The only error
// returned is for a malformed pattern.
func Match(pattern, p string) (bool, error) {
	p = Normalize(p)
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

	ok, err := doublestar.Match(pattern, p)
	if err != nil {
		return false, fmt.Errorf("match %q: %w", pattern, err)
	}
	if ok || strings.Contains(pattern, "/") {
		return ok, nil
	}
	return doublestar.Match(pattern, path.Base(p))
}

// MustMatch is Match for patterns already checked with Validate.
func MustMatch(pattern, p string) bool {
	ok, err := Match(pattern, p)
	return ok && err == nil
}
