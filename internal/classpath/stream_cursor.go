package classpath

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

const (
	localHeaderSignature    = 0x04034b50
	dataDescriptorSignature = 0x08074b50

	// localHeaderLen is the fixed part of a local file header after the signature.
	localHeaderLen = 26

	zip64ExtraID = 0x0001
	uint32max    = 0xffffffff

	flagEncrypted      = 0x1
	flagDataDescriptor = 0x8
)

// streamCursor decodes a zip archive from a forward-only stream by reading
// local file headers in order. It is used for archives nested inside another
// archive's entry, which cannot be randomly accessed.
//
// Iteration stops at the first record that is not a local file header, which
// is normally the central directory.
type streamCursor struct {
	r    *bufio.Reader
	cur  *streamEntry
	done bool
}

type streamEntry struct {
	name   string
	method uint16
	flags  uint16
	crc32  uint32
	zip64  bool

	// raw holds the compressed bytes when sizes are known from the header.
	// It is nil when sizes follow the data in a data descriptor.
	raw io.Reader

	body     *entryReader
	closer   io.Closer
	opened   bool
	finished bool
}

func (e *streamEntry) hasDataDescriptor() bool {
	return e.flags&flagDataDescriptor != 0
}

func newStreamCursor(r io.Reader) *streamCursor {
	// bufio.Reader is an io.ByteReader, so the decompressor reads exactly
	// the deflate stream and nothing past it.
	return &streamCursor{r: bufio.NewReader(r)}
}

func (c *streamCursor) Next() (Entry, error) {
	if c.cur != nil {
		if err := c.finish(c.cur); err != nil {
			return Entry{}, err
		}
		c.cur = nil
	}
	if c.done {
		return Entry{}, io.EOF
	}

	var sig [4]byte
	if _, err := io.ReadFull(c.r, sig[:]); err != nil {
		if errors.Is(err, io.EOF) {
			c.done = true
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("failed to read entry signature: %w", err)
	}
	if binary.LittleEndian.Uint32(sig[:]) != localHeaderSignature {
		c.done = true
		return Entry{}, io.EOF
	}

	e, err := c.readLocalHeader()
	if err != nil {
		c.done = true
		return Entry{}, err
	}
	c.cur = e
	return newEntry(e.name), nil
}

func (c *streamCursor) readLocalHeader() (*streamEntry, error) {
	var buf [localHeaderLen]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return nil, fmt.Errorf("failed to read local file header: %w", noEOF(err))
	}
	le := binary.LittleEndian
	e := &streamEntry{
		flags:  le.Uint16(buf[2:]),
		method: le.Uint16(buf[4:]),
		crc32:  le.Uint32(buf[10:]),
	}
	compressed := uint64(le.Uint32(buf[14:]))
	uncompressed := uint64(le.Uint32(buf[18:]))
	nameLen := int(le.Uint16(buf[22:]))
	extraLen := int(le.Uint16(buf[24:]))

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(c.r, name); err != nil {
		return nil, fmt.Errorf("failed to read entry name: %w", noEOF(err))
	}
	e.name = string(name)

	extra := make([]byte, extraLen)
	if _, err := io.ReadFull(c.r, extra); err != nil {
		return nil, fmt.Errorf("failed to read extra field of %s: %w", e.name, noEOF(err))
	}
	for len(extra) >= 4 {
		id := le.Uint16(extra)
		size := int(le.Uint16(extra[2:]))
		extra = extra[4:]
		if size > len(extra) {
			break
		}
		field := extra[:size]
		extra = extra[size:]
		if id != zip64ExtraID {
			continue
		}
		e.zip64 = true
		if uncompressed == uint32max && len(field) >= 8 {
			uncompressed = le.Uint64(field)
			field = field[8:]
		}
		if compressed == uint32max && len(field) >= 8 {
			compressed = le.Uint64(field)
		}
	}

	if e.hasDataDescriptor() {
		// The end of the data can only be found by decoding it.
		if e.method != zip.Deflate {
			return nil, fmt.Errorf("entry %s: only deflated entries can have a data descriptor (method %d)", e.name, e.method)
		}
		return e, nil
	}
	e.raw = io.LimitReader(c.r, int64(compressed))
	return e, nil
}

// Open returns the current entry's uncompressed bytes. It may be called once
// per entry.
func (c *streamCursor) Open() (io.ReadCloser, error) {
	e := c.cur
	if e == nil || e.finished {
		return nil, ErrNoCurrentEntry
	}
	if e.opened {
		return nil, ErrEntryConsumed
	}
	if e.flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("entry %s: encrypted entries are not supported", e.name)
	}

	src := e.raw
	if src == nil {
		src = c.r
	}
	var r io.Reader
	switch e.method {
	case zip.Store:
		r = src
	case zip.Deflate:
		fr := flate.NewReader(src)
		e.closer = fr
		r = fr
	default:
		return nil, fmt.Errorf("entry %s: %w (method %d)", e.name, zip.ErrAlgorithm, e.method)
	}
	e.opened = true
	e.body = &entryReader{
		r:     r,
		hash:  crc32.NewIEEE(),
		want:  e.crc32,
		check: !e.hasDataDescriptor(),
	}
	return &entryHandle{cursor: c, entry: e}, nil
}

// finish consumes whatever is left of e so the stream is positioned at the
// next header. It is idempotent.
func (c *streamCursor) finish(e *streamEntry) error {
	if e.finished {
		return nil
	}
	e.finished = true

	switch {
	case e.body != nil:
		_, err := io.Copy(io.Discard, e.body)
		if e.closer != nil {
			e.closer.Close()
		}
		if err != nil {
			return fmt.Errorf("failed to read entry %s: %w", e.name, err)
		}
	case e.hasDataDescriptor():
		fr := flate.NewReader(c.r)
		_, err := io.Copy(io.Discard, fr)
		fr.Close()
		if err != nil {
			return fmt.Errorf("failed to skip entry %s: %w", e.name, err)
		}
	}
	if e.raw != nil {
		if _, err := io.Copy(io.Discard, e.raw); err != nil {
			return fmt.Errorf("failed to skip entry %s: %w", e.name, err)
		}
	}
	if e.hasDataDescriptor() {
		return c.readDataDescriptor(e)
	}
	return nil
}

// readDataDescriptor reads the record that trails a deflated entry written
// in streaming mode. The signature is optional.
func (c *streamCursor) readDataDescriptor(e *streamEntry) error {
	le := binary.LittleEndian
	var word [4]byte
	if _, err := io.ReadFull(c.r, word[:]); err != nil {
		return fmt.Errorf("failed to read data descriptor of %s: %w", e.name, noEOF(err))
	}
	crc := le.Uint32(word[:])
	if crc == dataDescriptorSignature {
		if _, err := io.ReadFull(c.r, word[:]); err != nil {
			return fmt.Errorf("failed to read data descriptor of %s: %w", e.name, noEOF(err))
		}
		crc = le.Uint32(word[:])
	}
	sizes := 8
	if e.zip64 {
		sizes = 16
	}
	if _, err := c.r.Discard(sizes); err != nil {
		return fmt.Errorf("failed to read data descriptor of %s: %w", e.name, noEOF(err))
	}
	if e.body != nil && e.body.eof && e.body.hash.Sum32() != crc {
		return fmt.Errorf("entry %s: %w", e.name, zip.ErrChecksum)
	}
	return nil
}

// entryHandle is the reader handed out by streamCursor.Open. Closing it
// finishes the current entry and leaves the underlying stream open.
type entryHandle struct {
	cursor *streamCursor
	entry  *streamEntry
}

func (h *entryHandle) Read(p []byte) (int, error) {
	if h.entry.finished {
		return 0, io.EOF
	}
	return h.entry.body.Read(p)
}

func (h *entryHandle) Close() error {
	return h.cursor.finish(h.entry)
}

// entryReader tracks the CRC-32 of the bytes read and verifies it at EOF
// when the expected value is known upfront.
type entryReader struct {
	r     io.Reader
	hash  hash.Hash32
	want  uint32
	check bool
	eof   bool
}

func (r *entryReader) Read(p []byte) (int, error) {
	if r.eof {
		return 0, io.EOF
	}
	n, err := r.r.Read(p)
	r.hash.Write(p[:n])
	if errors.Is(err, io.EOF) {
		r.eof = true
		if r.check && r.hash.Sum32() != r.want {
			return n, zip.ErrChecksum
		}
	}
	return n, err
}

func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
