package classpath

import (
	"fmt"
	"os"
	"path/filepath"
)

// walkDirectory delivers every class file below root. Directory elements
// are never prefix-filtered.
func (w *walker) walkDirectory(root string) error {
	return w.walkFolder(root, root)
}

func (w *walker) walkFolder(root, dir string) error {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		if _, seen := w.visitedDirs[resolved]; seen {
			return nil
		}
		w.visitedDirs[resolved] = struct{}{}
	}

	// A directory that cannot be listed is treated as empty.
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.report(Diagnostic{
			Severity: SeverityInfo,
			Code:     CodeDirectoryUnreadable,
			Message:  fmt.Sprintf("skipping unreadable directory %s: %v", dir, err),
			Path:     dir,
			Cause:    err,
		})
		return nil
	}

	for _, de := range entries {
		path := filepath.Join(dir, de.Name())
		info, err := os.Stat(path)
		if err != nil {
			// Dangling symlink or a file removed since listing.
			continue
		}
		switch {
		case info.IsDir():
			if err := w.walkFolder(root, path); err != nil {
				return err
			}
		case info.Mode().IsRegular() && isClassName(de.Name()):
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = de.Name()
			}
			if err := w.deliverFile(root, path, filepath.ToSlash(rel)); err != nil {
				return err
			}
		}
	}
	return nil
}

// deliverFile opens path, hands it to the visitor and closes it on every
// exit path. rel is the element-relative path used for diagnostics.
func (w *walker) deliverFile(element, path, rel string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fatal("open", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fatal("close", path, cerr)
		}
	}()

	return w.visit(Artifact{Element: element, Path: rel, Reader: f})
}
