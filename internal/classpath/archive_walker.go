package classpath

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
)

// visitFunc receives one artifact. The artifact's reader is only valid for
// the duration of the call.
type visitFunc func(a Artifact) error

// walker holds the per-scan state shared by the directory and archive walks.
type walker struct {
	filter   EntryFilter
	visit    visitFunc
	maxDepth int
	logger   *log.Logger
	report   func(Diagnostic)

	// visitedDirs guards directory recursion against symlink cycles.
	visitedDirs map[string]struct{}
}

// walkArchive scans a top-level archive through a random-access cursor.
func (w *walker) walkArchive(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fatal("open", path, err)
	}
	defer zr.Close()

	w.logger.Debug("Scanning archive", "path", path)
	return w.walkEntries(newZipCursor(&zr.Reader), path, 0)
}

// walkEntries applies the filter to every entry of cursor and recurses into
// nested archives. depth is 0 for a top-level archive.
func (w *walker) walkEntries(cursor EntryCursor, origin string, depth int) error {
	for {
		entry, err := cursor.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fatal("read", origin, err)
		}
		if entry.IsDir {
			continue
		}
		w.logger.Debug("Scanning entry", "archive", origin, "entry", entry.Name)

		if isArchiveEntryName(entry.Name) {
			if err := w.walkNested(cursor, entry, origin, depth); err != nil {
				return err
			}
		}
		if w.filter.Match(entry.Name) && isClassName(entry.Name) {
			if err := w.deliverEntry(cursor, entry, origin); err != nil {
				return err
			}
		}
	}
}

// walkNested recurses into an archive stored as an entry of the current
// archive. An entry whose bytes cannot be opened is recorded and skipped.
func (w *walker) walkNested(cursor EntryCursor, entry Entry, origin string, depth int) (err error) {
	location := origin + nestedSeparator + entry.Name
	if w.maxDepth > 0 && depth >= w.maxDepth {
		return fatal("open", location, fmt.Errorf("%w: limit is %d", ErrNestingTooDeep, w.maxDepth))
	}

	rc, err := cursor.Open()
	if err != nil {
		w.report(Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeNestedArchiveUnreadable,
			Message:  fmt.Sprintf("unable to scan %s: %v", location, err),
			Path:     location,
			Cause:    err,
		})
		return nil
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fatal("read", location, cerr)
		}
	}()

	return w.walkEntries(newStreamCursor(rc), location, depth+1)
}

// deliverEntry hands the current entry's bytes to the visitor and releases
// them afterwards. For a nested archive this closes only the current entry.
func (w *walker) deliverEntry(cursor EntryCursor, entry Entry, origin string) (err error) {
	rc, err := cursor.Open()
	if err != nil {
		return fatal("open", origin+nestedSeparator+entry.Name, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = fatal("read", origin+nestedSeparator+entry.Name, cerr)
		}
	}()

	return w.visit(Artifact{Element: origin, Path: entry.Name, InArchive: true, Reader: rc})
}
