package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Locator discovers vector index directories laid out as <base>/<name>.
type Locator struct {
	fs afero.Fs
}

func NewLocator(fs afero.Fs) *Locator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Locator{fs: fs}
}

// Discover lists the immediate subdirectories of baseDir sorted by name. A
// missing base directory yields no directories and no error.
func (l *Locator) Discover(ctx context.Context, baseDir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(l.fs, baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read vector store base dir %s: %w", baseDir, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirs = append(dirs, filepath.Join(baseDir, entry.Name()))
	}
	sort.Strings(dirs)
	return dirs, nil
}

// CollectionName maps a vector store directory to its index name.
func CollectionName(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}
