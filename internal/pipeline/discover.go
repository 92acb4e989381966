package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/backmassage/roflconv/internal/config"
)

// Entry is one item of the source folder.
type Entry struct {
	Path      string
	Name      string // Base name including extension.
	Container bool   // Regular file ending in .rofl.
}

// BaseName returns the entry name without the container extension.
func (e Entry) BaseName() string {
	return strings.TrimSuffix(e.Name, config.ContainerExt)
}

// Discover lists sourceDir (not recursively) and returns its entries sorted
// by name. Only regular files whose name ends in ".rofl" (case-sensitive)
// are marked as containers; everything else, directories included, is
// returned so the caller can report it as ignored.
func Discover(sourceDir string) ([]Entry, error) {
	dirents, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", sourceDir)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		entries = append(entries, Entry{
			Path:      filepath.Join(sourceDir, name),
			Name:      name,
			Container: !d.IsDir() && strings.HasSuffix(name, config.ContainerExt),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
