package classpath

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/maypok86/otter"
)

// ArchiveIndex remembers the entry names of archive roots between
// resolutions, so repeated scans of an unchanged classpath do not reread
// central directories. Entries are keyed by path, size and modification
// time; a rewritten archive gets a fresh listing.
//
// ArchiveIndex only serves root selection. Scanning always reads archives
// afresh.
type ArchiveIndex struct {
	cache otter.Cache[string, []string]
	list  func(path string) ([]string, error)
}

// NewArchiveIndex creates an index holding up to capacity archives.
func NewArchiveIndex(capacity int) (*ArchiveIndex, error) {
	cache, err := otter.MustBuilder[string, []string](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create archive index: %w", err)
	}
	return &ArchiveIndex{cache: cache, list: listArchive}, nil
}

// Close releases the cache.
func (x *ArchiveIndex) Close() {
	x.cache.Close()
}

// Select is a RootSelector backed by the index. Directory roots are handled
// like SelectRoot.
func (x *ArchiveIndex) Select(root, prefix string) (string, bool, error) {
	info, err := os.Stat(root)
	if err != nil || info.IsDir() || !isArchiveFileName(root) {
		return SelectRoot(root, prefix)
	}

	key := fmt.Sprintf("%s|%d|%d", root, info.Size(), info.ModTime().UnixNano())
	names, ok := x.cache.Get(key)
	if !ok {
		names, err = x.list(root)
		if err != nil {
			return "", false, err
		}
		x.cache.Set(key, names)
	}

	// names is sorted, so the first name >= prefix decides.
	i := sort.SearchStrings(names, prefix)
	if i < len(names) && strings.HasPrefix(names[i], prefix) {
		return root, true, nil
	}
	return "", false, nil
}

// listArchive returns the sorted entry names of a zip archive.
func listArchive(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, nil
}
