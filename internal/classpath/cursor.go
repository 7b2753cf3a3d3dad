package classpath

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Entry is one member of an archive as seen during iteration. It is only
// meaningful until the owning cursor advances.
type Entry struct {
	Name  string
	IsDir bool
}

// EntryCursor iterates the entries of one archive in the order the archive
// yields them and gives access to the bytes of the current entry.
//
// A cursor is owned by a single call chain. Entries must be consumed in
// order: once Next returns, readers obtained for earlier entries are no
// longer valid.
type EntryCursor interface {
	// Next advances to the next entry. It returns io.EOF when the archive
	// has no more entries.
	Next() (Entry, error)

	// Open returns the bytes of the current entry. Closing the returned
	// reader releases only the current entry.
	Open() (io.ReadCloser, error)
}

func newEntry(name string) Entry {
	return Entry{Name: name, IsDir: strings.HasSuffix(name, "/")}
}

// zipCursor walks a random-access archive. Open is a direct lookup and may be
// repeated for the same entry.
type zipCursor struct {
	files []*zip.File
	pos   int
}

func newZipCursor(r *zip.Reader) *zipCursor {
	return &zipCursor{files: r.File, pos: -1}
}

func (c *zipCursor) Next() (Entry, error) {
	if c.pos+1 >= len(c.files) {
		c.pos = len(c.files)
		return Entry{}, io.EOF
	}
	c.pos++
	return newEntry(c.files[c.pos].Name), nil
}

func (c *zipCursor) Open() (io.ReadCloser, error) {
	if c.pos < 0 || c.pos >= len(c.files) {
		return nil, ErrNoCurrentEntry
	}
	return c.files[c.pos].Open()
}
