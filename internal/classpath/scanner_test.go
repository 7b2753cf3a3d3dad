package classpath

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// - Directory tree: every .class file delivered once with exact bytes, others ignored, Finish once
// - Directory example: lib/A.class and lib/sub/B.class with prefix "lib"
// - Top-level archive: only prefix-matching .class entries delivered, directories never
// - Nested archive: inner class delivered once, the nested archive itself never
// - Deep nesting: archives nested several levels are scanned
// - Nesting limit: exceeding the depth fails with ErrNestingTooDeep
// - Duplicate classpath entries deliver each artifact once
// - Unopenable nested archive: recorded as diagnostic, scan continues, Finish once
// - Broken top-level archive: fatal *ScanError, Finish never called
// - Consumer error: fatal *ScanError wrapping the consumer's error, Finish never called
// - Bare file element: delivered as is without suffix filtering
// - Unreadable directory: treated as empty

func TestScan_DirectoryTree(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	classes := map[string][]byte{
		"A.class":           classBytes("A"),
		"pkg/B.class":       classBytes("B"),
		"pkg/deep/C.class":  classBytes("C"),
		"other/x/y/D.class": classBytes("D"),
	}
	for rel, body := range classes {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), body)
	}
	writeFile(t, filepath.Join(root, "README.md"), []byte("docs"))
	writeFile(t, filepath.Join(root, "pkg", "B.java"), []byte("source"))
	writeFile(t, filepath.Join(root, "pkg", "classes.txt"), []byte("list"))

	consumer := newRecordingConsumer()
	err := New().Scan([]string{root}, consumer)
	require.NoError(t, err)

	assert.Equal(t, len(classes), consumer.processed)
	assert.Equal(t, 1, consumer.finished)
	for rel, body := range classes {
		assert.Equal(t, body, consumer.bodies[filepath.Join(root, filepath.FromSlash(rel))], rel)
	}
}

func TestScan_DirectoryExample(t *testing.T) {
	t.Parallel()

	base := tempDir(t)
	writeFile(t, filepath.Join(base, "lib", "A.class"), []byte("bytes-of-A"))
	writeFile(t, filepath.Join(base, "lib", "sub", "B.class"), []byte("bytes-of-B"))

	consumer := newRecordingConsumer()
	scanner := New(WithResolver(&FSResolver{Roots: []string{base}}))
	require.NoError(t, scanner.Scan([]string{"lib"}, consumer))

	lib, err := filepath.EvalSymlinks(filepath.Join(base, "lib"))
	require.NoError(t, err)
	require.Equal(t, 2, consumer.processed)
	assert.Equal(t, []string{
		filepath.Join(lib, "A.class"),
		filepath.Join(lib, "sub", "B.class"),
	}, consumer.order)
	assert.Equal(t, "bytes-of-A", string(consumer.bodies[filepath.Join(lib, "A.class")]))
	assert.Equal(t, "bytes-of-B", string(consumer.bodies[filepath.Join(lib, "sub", "B.class")]))
	assert.Equal(t, 1, consumer.finished)
}

func TestScan_TopLevelArchiveFiltersEntries(t *testing.T) {
	t.Parallel()

	dir := tempDir(t)
	jar := writeFile(t, filepath.Join(dir, "app.jar"), buildZip(t,
		zipEntry{name: "com/"},
		zipEntry{name: "com/acme/"},
		zipEntry{name: "com/acme/Service.class", body: classBytes("Service")},
		zipEntry{name: "com/acme/model/User.class", body: classBytes("User")},
		zipEntry{name: "com/acme/notes.txt", body: []byte("not a class")},
		zipEntry{name: "com/other/Thing.class", body: classBytes("Thing")},
		zipEntry{name: "META-INF/MANIFEST.MF", body: []byte("Manifest-Version: 1.0\n")},
	))

	consumer := newRecordingConsumer()
	scanner := New(WithResolver(&FSResolver{Roots: []string{jar}}))
	require.NoError(t, scanner.Scan([]string{"com/acme"}, consumer))

	jar, err := filepath.EvalSymlinks(jar)
	require.NoError(t, err)
	assert.Equal(t, []string{
		jar + "!/com/acme/Service.class",
		jar + "!/com/acme/model/User.class",
	}, consumer.order)
	assert.Equal(t, classBytes("User"), consumer.bodies[jar+"!/com/acme/model/User.class"])
	assert.Equal(t, 1, consumer.finished)
}

func TestScan_NestedArchive(t *testing.T) {
	t.Parallel()

	inner := buildZip(t,
		zipEntry{name: "com/acme/inner/"},
		zipEntry{name: "com/acme/inner/E.class", body: classBytes("E")},
		zipEntry{name: "org/thirdparty/F.class", body: classBytes("F")},
	)
	dir := tempDir(t)
	jar := writeFile(t, filepath.Join(dir, "fat.jar"), buildZip(t,
		zipEntry{name: "BOOT-INF/lib/inner.jar", body: inner},
		zipEntry{name: "com/acme/Outer.class", body: classBytes("Outer")},
	))

	consumer := newRecordingConsumer()
	scanner := New(WithResolver(&FSResolver{Roots: []string{jar}}))
	require.NoError(t, scanner.Scan([]string{"com/acme"}, consumer))

	jar, err := filepath.EvalSymlinks(jar)
	require.NoError(t, err)
	nested := jar + "!/BOOT-INF/lib/inner.jar!/com/acme/inner/E.class"
	assert.Equal(t, []string{nested, jar + "!/com/acme/Outer.class"}, consumer.order)
	assert.Equal(t, classBytes("E"), consumer.bodies[nested])
	assert.Equal(t, 1, consumer.finished)
	assert.Empty(t, scanner.Diagnostics())
}

func TestScan_StoredNestedArchive(t *testing.T) {
	t.Parallel()

	inner := rawZip(
		rawEntry{name: "com/acme/S.class", body: classBytes("S")},
		rawEntry{name: "com/acme/T.class", body: classBytes("T")},
	)
	dir := tempDir(t)
	jar := writeFile(t, filepath.Join(dir, "outer.zip"), buildZip(t,
		zipEntry{name: "libs/stored.jar", body: inner},
	))

	consumer := newRecordingConsumer()
	require.NoError(t, New().Scan([]string{jar, "com/acme"}, consumer))
	assert.Equal(t, 2, consumer.processed)
}

// nestChain builds an archive nested depth times, with a class at the bottom.
func nestChain(t *testing.T, depth int) []byte {
	t.Helper()
	data := buildZip(t, zipEntry{name: "com/acme/Bottom.class", body: classBytes("Bottom")})
	for i := 0; i < depth; i++ {
		data = buildZip(t, zipEntry{name: "lib/level.jar", body: data})
	}
	return data
}

func TestScan_DeepNesting(t *testing.T) {
	t.Parallel()

	jar := writeFile(t, filepath.Join(tempDir(t), "deep.jar"), nestChain(t, 5))

	consumer := newRecordingConsumer()
	require.NoError(t, New().Scan([]string{jar, "com/acme"}, consumer))
	require.Equal(t, 1, consumer.processed)
	assert.Contains(t, consumer.order[0], "lib/level.jar!/lib/level.jar!/lib/level.jar!/lib/level.jar!/lib/level.jar!/com/acme/Bottom.class")
}

func TestScan_NestingLimit(t *testing.T) {
	t.Parallel()

	jar := writeFile(t, filepath.Join(tempDir(t), "deep.jar"), nestChain(t, 3))

	tests := []struct {
		name     string
		maxDepth int
		wantErr  bool
	}{
		{"below limit", 4, false},
		{"at limit", 3, false},
		{"above limit", 2, true},
		{"unbounded", 0, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			consumer := newRecordingConsumer()
			err := New(WithMaxNestingDepth(tt.maxDepth)).Scan([]string{jar, "com/acme"}, consumer)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, 1, consumer.processed)
				assert.Equal(t, 1, consumer.finished)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNestingTooDeep)
			var scanErr *ScanError
			require.ErrorAs(t, err, &scanErr)
			assert.Contains(t, scanErr.Path, "lib/level.jar")
			assert.Zero(t, consumer.finished)
		})
	}
}

func TestScan_DuplicateElements(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	writeFile(t, filepath.Join(root, "A.class"), classBytes("A"))
	writeFile(t, filepath.Join(root, "sub", "B.class"), classBytes("B"))
	link := filepath.Join(tempDir(t), "alias")
	require.NoError(t, os.Symlink(root, link))

	consumer := newRecordingConsumer()
	err := New().Scan([]string{root, root, root + string(filepath.Separator) + ".", link}, consumer)
	require.NoError(t, err)

	assert.Equal(t, 2, consumer.processed)
	assert.Equal(t, 1, consumer.finished)
}

func TestScan_UnopenableNestedArchive(t *testing.T) {
	t.Parallel()

	good := buildZip(t, zipEntry{name: "com/acme/Good.class", body: classBytes("Good")})
	dir := tempDir(t)
	first := writeFile(t, filepath.Join(dir, "first.jar"), buildZip(t,
		zipEntry{name: "lib/broken.jar", body: []byte("opaque"), method: methodOpaque},
		zipEntry{name: "lib/good.jar", body: good},
		zipEntry{name: "com/acme/Top.class", body: classBytes("Top")},
	))
	second := writeFile(t, filepath.Join(dir, "second.jar"), buildZip(t,
		zipEntry{name: "com/acme/Sibling.class", body: classBytes("Sibling")},
	))

	consumer := newRecordingConsumer()
	scanner := New()
	require.NoError(t, scanner.Scan([]string{first, second, "com/acme"}, consumer))

	assert.Equal(t, 3, consumer.processed)
	assert.Equal(t, 1, consumer.finished)

	diags := scanner.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, CodeNestedArchiveUnreadable, diags[0].Code)
	assert.Equal(t, SeverityWarning, diags[0].Severity)
	assert.Contains(t, diags[0].Path, "lib/broken.jar")
	assert.Error(t, diags[0].Cause)
}

func TestScan_BrokenTopLevelArchive(t *testing.T) {
	t.Parallel()

	dir := tempDir(t)
	good := writeFile(t, filepath.Join(dir, "good.jar"), buildZip(t,
		zipEntry{name: "com/acme/A.class", body: classBytes("A")},
	))
	broken := writeFile(t, filepath.Join(dir, "broken.jar"), []byte("definitely not a zip archive"))

	consumer := newRecordingConsumer()
	err := New().Scan([]string{good, broken, "com/acme"}, consumer)
	require.Error(t, err)

	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "open", scanErr.Op)
	assert.Contains(t, scanErr.Path, "broken.jar")
	assert.NotNil(t, errors.Unwrap(scanErr))
	assert.Zero(t, consumer.finished)
	assert.Equal(t, 1, consumer.processed)
}

func TestScan_ConsumerError(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	writeFile(t, filepath.Join(root, "A.class"), classBytes("A"))
	writeFile(t, filepath.Join(root, "B.class"), classBytes("B"))

	errBoom := errors.New("boom")
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	consumer := newRecordingConsumer()
	consumer.failOn = filepath.Join(resolved, "A.class")
	consumer.failErr = errBoom

	err = New().Scan([]string{root}, consumer)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	var scanErr *ScanError
	require.ErrorAs(t, err, &scanErr)
	assert.Equal(t, "process", scanErr.Op)
	assert.Equal(t, 1, consumer.processed)
	assert.Zero(t, consumer.finished)
}

func TestScan_BareFileElement(t *testing.T) {
	t.Parallel()

	path := writeFile(t, filepath.Join(tempDir(t), "Standalone.bin"), []byte("raw bytes"))

	consumer := newRecordingConsumer()
	require.NoError(t, New().Scan([]string{path}, consumer))

	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	assert.Equal(t, []string{resolved}, consumer.order)
	assert.Equal(t, "raw bytes", string(consumer.bodies[resolved]))
}

func TestScan_UnreadableDirectory(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := tempDir(t)
	writeFile(t, filepath.Join(root, "A.class"), classBytes("A"))
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "Hidden.class"), classBytes("Hidden"))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	consumer := newRecordingConsumer()
	scanner := New()
	require.NoError(t, scanner.Scan([]string{root}, consumer))

	assert.Equal(t, 1, consumer.processed)
	assert.Equal(t, 1, consumer.finished)
	require.Len(t, scanner.Diagnostics(), 1)
	assert.Equal(t, CodeDirectoryUnreadable, scanner.Diagnostics()[0].Code)
}

func TestScan_EmptyPrefixes(t *testing.T) {
	t.Parallel()

	consumer := newRecordingConsumer()
	require.NoError(t, New().Scan(nil, consumer))
	assert.Zero(t, consumer.processed)
	assert.Equal(t, 1, consumer.finished)
}

func TestConsumerFuncs(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	writeFile(t, filepath.Join(root, "A.class"), classBytes("A"))

	var processed, finished int
	err := New().Scan([]string{root}, ConsumerFuncs{
		ProcessFunc: func(Artifact) error { processed++; return nil },
		FinishFunc:  func() error { finished++; return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, finished)

	assert.NoError(t, ConsumerFuncs{}.Process(Artifact{}))
	assert.NoError(t, ConsumerFuncs{}.Finish())
}
