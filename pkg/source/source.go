// Package source loads assembly files by name for the front end.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"zasm/pkg/utils"
)

// ErrNotFound is returned (wrapped) by a Loader when a file does not exist.
var ErrNotFound = errors.New("file not found")

// Loader reads a source file and returns its lines.
type Loader interface {
	Load(path string) ([]string, error)
}

// FileLoader reads files from disk. Relative paths are taken from the working
// directory.
type FileLoader struct{}

func (FileLoader) Load(path string) ([]string, error) {
	fullPath, _, err := utils.GetPathInfo(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return SplitLines(string(data)), nil
}

// MapLoader serves files from memory, keyed by cleaned path.
type MapLoader map[string][]string

func (m MapLoader) Load(path string) ([]string, error) {
	lines, ok := m[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return append([]string(nil), lines...), nil
}

// SplitLines splits text into lines, accepting both \n and \r\n endings.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Resolve returns the path of an include written in file from. Absolute paths
// are kept; relative ones are taken from the directory of from.
func Resolve(from, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(filepath.Dir(from), path)
}

// Key returns the name under which a path is tracked for include cycles.
func Key(path string) string {
	if full, _, err := utils.GetPathInfo(path); err == nil {
		return full
	}
	return filepath.Clean(path)
}
