package images

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// ListImageFiles returns the supported image files directly inside a directory.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []string: The file paths, sorted by name. Subdirectories and other files are skipped.
//   - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := FormatFromPath(entry.Name()); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
