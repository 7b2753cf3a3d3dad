package classpath

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// methodOpaque is a compression method no reader knows how to decode.
const methodOpaque uint16 = 99

type zipEntry struct {
	name   string
	body   []byte
	method uint16
}

// buildZip writes a zip archive with the package writer. Entries use
// Deflate unless another method is set; files get a data descriptor.
func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(methodOpaque, func(w io.Writer) (io.WriteCloser, error) {
		return nopWriteCloser{w}, nil
	})
	for _, e := range entries {
		method := e.method
		if method == 0 {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		require.NoError(t, err)
		_, err = w.Write(e.body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type rawEntry struct {
	name   string
	body   []byte
	method uint16
	crc    *uint32
}

// rawZip writes local file headers with sizes known upfront, the layout
// produced by most jar tools for stored entries. It ends with a central
// directory signature and no directory, which is all a stream reader sees.
func rawZip(entries ...rawEntry) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	for _, e := range entries {
		crc := crc32.ChecksumIEEE(e.body)
		if e.crc != nil {
			crc = *e.crc
		}
		binary.Write(&buf, le, uint32(localHeaderSignature))
		binary.Write(&buf, le, uint16(20))
		binary.Write(&buf, le, uint16(0))
		binary.Write(&buf, le, e.method)
		binary.Write(&buf, le, uint32(0))
		binary.Write(&buf, le, crc)
		binary.Write(&buf, le, uint32(len(e.body)))
		binary.Write(&buf, le, uint32(len(e.body)))
		binary.Write(&buf, le, uint16(len(e.name)))
		binary.Write(&buf, le, uint16(0))
		buf.WriteString(e.name)
		buf.Write(e.body)
	}
	binary.Write(&buf, le, uint32(0x02014b50))
	return buf.Bytes()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func writeFile(t *testing.T, path string, content []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// recordingConsumer captures delivered artifacts by location.
type recordingConsumer struct {
	mu        sync.Mutex
	order     []string
	bodies    map[string][]byte
	finished  int
	processed int
	failOn    string
	failErr   error
}

func newRecordingConsumer() *recordingConsumer {
	return &recordingConsumer{bodies: make(map[string][]byte)}
}

func (c *recordingConsumer) Process(a Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, err := io.ReadAll(a)
	if err != nil {
		return err
	}
	c.processed++
	loc := a.Location()
	c.order = append(c.order, loc)
	c.bodies[loc] = body
	if c.failOn != "" && loc == c.failOn {
		return c.failErr
	}
	return nil
}

func (c *recordingConsumer) Finish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished++
	return nil
}

// classBytes returns a body that looks like a class file header followed by
// a marker, so each fixture is distinguishable.
func classBytes(marker string) []byte {
	return append([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 61}, marker...)
}

func u32(v uint32) *uint32 { return &v }

// tempDir returns a fresh directory with symlinks evaluated, matching the
// canonical paths the resolver produces.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}
