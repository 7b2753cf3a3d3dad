package classpath

import "strings"

// Recognized file-kind suffixes.
const (
	ClassSuffix = ".class"
	JarSuffix   = ".jar"
	ZipSuffix   = ".zip"
)

// nestedSeparator joins an archive path with the path of an entry inside it.
const nestedSeparator = "!/"

// EntryFilter decides which archive-internal paths qualify for delivery.
// A path qualifies if it starts with any of the prefixes. The test is a plain
// string prefix test and is not aware of path segments.
type EntryFilter struct {
	prefixes []string
}

// NewEntryFilter creates an EntryFilter over a copy of prefixes.
func NewEntryFilter(prefixes []string) EntryFilter {
	return EntryFilter{prefixes: append([]string(nil), prefixes...)}
}

// Match reports whether path begins with at least one prefix.
func (f EntryFilter) Match(path string) bool {
	for _, prefix := range f.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isClassName(name string) bool {
	return strings.HasSuffix(name, ClassSuffix)
}

// isArchiveEntryName classifies an archive-internal name. Case-sensitive.
func isArchiveEntryName(name string) bool {
	return strings.HasSuffix(name, JarSuffix) || strings.HasSuffix(name, ZipSuffix)
}

// isArchiveFileName classifies a top-level classpath file. Case-insensitive.
func isArchiveFileName(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, JarSuffix) || strings.HasSuffix(lower, ZipSuffix)
}
