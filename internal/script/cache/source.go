package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// ErrSourceNotFound is returned when no source directory holds the file.
var ErrSourceNotFound = errors.New("script source not found")

// SourceLoader reads the source of a script file.
type SourceLoader interface {
	Load(file string) (string, error)
}

// DirLoader resolves relative files against a list of directories. Later
// directories take precedence over earlier ones. Absolute paths are read
// directly.
type DirLoader struct {
	dirs []string
}

// NewDirLoader creates a loader over dirs, in declaration order.
func NewDirLoader(dirs ...string) *DirLoader {
	return &DirLoader{dirs: slices.Clone(dirs)}
}

// Dirs returns the configured directories.
func (l *DirLoader) Dirs() []string {
	return slices.Clone(l.dirs)
}

func (l *DirLoader) Load(file string) (string, error) {
	if filepath.IsAbs(file) {
		return readSource(file)
	}

	for _, dir := range slices.Backward(l.dirs) {
		src, err := readSource(filepath.Join(dir, filepath.Clean("/"+file)))
		if errors.Is(err, ErrSourceNotFound) {
			continue
		}
		return src, err
	}
	return "", fmt.Errorf("%w: %s", ErrSourceNotFound, file)
}

func readSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrSourceNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(b), nil
}
