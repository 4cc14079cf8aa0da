package build

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vango-dev/bundler/internal/errors"
	"github.com/vango-dev/bundler/internal/pathmatch"
)

const workPrefix = ".vbundle-work-"

// newWorkingTree creates an empty working tree next to output, so the final
// promotion is a rename on the same filesystem.
func newWorkingTree(output string) (string, error) {
	parent := filepath.Dir(output)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", err
	}
	return os.MkdirTemp(parent, workPrefix)
}

// copyTree copies every regular file below src into dst. Directories in
// skip (absolute paths) are not descended into.
func copyTree(src, dst string, skip []string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != src && (isSkipped(path, skip) || strings.HasPrefix(d.Name(), workPrefix)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		return copyFile(path, target)
	})
}

func isSkipped(path string, skip []string) bool {
	for _, s := range skip {
		if s != "" && path == s {
			return true
		}
	}
	return false
}

// checkOutput rejects an output directory that equals or contains one of
// the protected directories, since promotion removes the output first.
func checkOutput(output string, protected ...string) error {
	out, err := filepath.Abs(output)
	if err != nil {
		return errors.New("B402").WithPath(output).Wrap(err)
	}
	for _, dir := range protected {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if contains(out, abs) {
			return errors.New("B402").WithPath(output).
				WithDetail(fmt.Sprintf("The output directory contains %s and would be deleted by the build", abs)).
				WithSuggestion("Set \"output\" in vbundle.json to a directory outside the input and project directories")
		}
	}
	return nil
}

// contains reports whether path is dir or lies below it.
func contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// promote replaces output with the working tree.
func promote(work, output string) error {
	if err := os.RemoveAll(output); err != nil {
		return err
	}
	return os.Rename(work, output)
}

// enumerate lists the logical paths of every file below root, sorted.
func enumerate(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, pathmatch.Normalize(rel))
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

// hostPath converts a logical path below root to a host path.
func hostPath(root, logical string) string {
	return filepath.Join(root, filepath.FromSlash(logical))
}

// copyFile copies a file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
