// Package registry discovers GGUF model files on disk and exposes them as
// the model catalog served over the API.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"promptd/internal/common/fsutil"
	"promptd/pkg/types"
)

// GGUFScanner builds a model catalog from *.gguf files in a directory.
type GGUFScanner struct{}

// NewGGUFScanner returns a scanner. The zero value is also usable.
func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan lists the *.gguf files under dir (case-insensitive extension match,
// non-recursive). ID and Name are the full filename; Path is absolute. A
// leading '~' in dir is expanded to the user's home directory.
func (s *GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.Model{
			ID:   name,
			Name: name,
			Path: filepath.Join(abs, name),
		})
	}
	return models, nil
}

// LoadDir is a convenience wrapper around a one-shot scan.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// Resolve returns the model whose ID or Name matches id.
func Resolve(models []types.Model, id string) (types.Model, bool) {
	for _, m := range models {
		if m.ID == id || m.Name == id {
			return m, true
		}
	}
	return types.Model{}, false
}
