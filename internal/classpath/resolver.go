package classpath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Element is a resolved classpath location: a directory, an archive or a
// bare file.
type Element struct {
	Path string
}

// Resolver turns scan prefixes into an ordered list of unique elements.
type Resolver interface {
	ResolveUnique(prefixes []string) ([]Element, error)
}

// RootSelector decides which element, if any, a search root contributes for
// a prefix. It is used only during resolution and never filters archive
// entries; that is EntryFilter's job.
type RootSelector func(root, prefix string) (element string, ok bool, err error)

// FSResolver resolves prefixes against the filesystem.
//
// A prefix that names an existing path is an element on its own. In
// addition, every search root is offered each prefix: a directory root
// contributes root/prefix when it exists, and an archive root contributes
// itself when one of its entries starts with the prefix.
//
// Elements are deduplicated by canonical identity (absolute path with
// symlinks evaluated, then os.SameFile); the first occurrence wins.
type FSResolver struct {
	// Roots are the search roots, in lookup order.
	Roots []string
	// Select overrides the default root selection.
	Select RootSelector
}

func (r *FSResolver) ResolveUnique(prefixes []string) ([]Element, error) {
	selectRoot := r.Select
	if selectRoot == nil {
		selectRoot = SelectRoot
	}

	var (
		elements []Element
		seen     = make(map[string]struct{})
		infos    []os.FileInfo
	)
	add := func(path string) {
		canonical, info, ok := canonicalize(path)
		if !ok {
			return
		}
		if _, dup := seen[canonical]; dup {
			return
		}
		for _, other := range infos {
			if os.SameFile(info, other) {
				return
			}
		}
		seen[canonical] = struct{}{}
		infos = append(infos, info)
		elements = append(elements, Element{Path: canonical})
	}

	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		add(prefix)
		for _, root := range r.Roots {
			element, ok, err := selectRoot(root, prefix)
			if err != nil {
				return nil, fmt.Errorf("failed to search classpath root %s: %w", root, err)
			}
			if ok {
				add(element)
			}
		}
	}
	return elements, nil
}

// SelectRoot is the default RootSelector.
func SelectRoot(root, prefix string) (string, bool, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	if info.IsDir() {
		candidate := filepath.Join(root, filepath.FromSlash(prefix))
		if _, err := os.Stat(candidate); err != nil {
			return "", false, nil
		}
		return candidate, true, nil
	}

	if !isArchiveFileName(root) {
		return "", false, nil
	}
	zr, err := zip.OpenReader(root)
	if err != nil {
		return "", false, err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) {
			return root, true, nil
		}
	}
	return "", false, nil
}

func canonicalize(path string) (string, os.FileInfo, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", nil, false
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", nil, false
	}
	return resolved, info, true
}
