package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
)

// Loader reads one tabular source into a raw batch.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) (*dataset.Batch, error)
}

// Options tune how sources are read. Zero values pick per-format defaults.
type Options struct {
	Delimiter rune
	SheetName string
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a format has no registered loader.
var ErrUnsupported = errors.New("unsupported source format")

// LoadFile selects a loader based on filename and returns the raw batch. The
// batch is named after the file's base name.
func LoadFile(path string, opt Options) (*dataset.Batch, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	for _, l := range registry {
		if l.CanLoad(path) {
			b, err := l.Load(path, opt)
			if err != nil {
				return nil, err
			}
			b.Path = path
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

// Supported reports whether some registered loader accepts filename.
func Supported(filename string) bool {
	for _, l := range registry {
		if l.CanLoad(filename) {
			return true
		}
	}
	return false
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}
