package storage

// Test Plan:
// - WriteScan stores the scan row with its artifact count and prefixes
// - ListArtifacts returns artifacts of one scan ordered by location
// - GetScan returns (nil, nil) for an unknown scan
// - ListScans and LatestScan order by start time, newest first
// - FindBySHA256 finds the same class across scans
// - PruneScans keeps only the newest scans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScan(t *testing.T, w *ArtifactWriter, id string, started time.Time, artifacts ...*Artifact) {
	t.Helper()
	scan := &Scan{
		ID:         id,
		Prefixes:   []string{"com/acme/", "/opt/lib"},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	require.NoError(t, w.WriteScan(scan, artifacts))
}

func TestWriteScan_RoundTrip(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	writeScan(t, NewArtifactWriter(db), "scan-1", started,
		&Artifact{Location: "/opt/lib/app.jar!/com/acme/B.class", Element: "/opt/lib/app.jar", Path: "com/acme/B.class", InArchive: true, SizeBytes: 12, SHA256: "bb", MagicOK: true, MajorVersion: 61},
		&Artifact{Location: "/opt/lib/classes/A.class", Element: "/opt/lib/classes", Path: "A.class", SizeBytes: 3, SHA256: "aa"},
	)

	r := NewArtifactReader(db)
	scan, err := r.GetScan("scan-1")
	require.NoError(t, err)
	require.NotNil(t, scan)
	assert.Equal(t, 2, scan.ArtifactCount)
	assert.Equal(t, []string{"com/acme/", "/opt/lib"}, scan.Prefixes)
	assert.True(t, scan.StartedAt.Equal(started))
	assert.True(t, scan.FinishedAt.Equal(started.Add(time.Second)))

	artifacts, err := r.ListArtifacts("scan-1")
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "/opt/lib/app.jar!/com/acme/B.class", artifacts[0].Location)
	assert.True(t, artifacts[0].InArchive)
	assert.True(t, artifacts[0].MagicOK)
	assert.Equal(t, 61, artifacts[0].MajorVersion)
	assert.Equal(t, "scan-1", artifacts[0].ScanID)
	assert.Equal(t, "/opt/lib/classes/A.class", artifacts[1].Location)
	assert.False(t, artifacts[1].InArchive)
	assert.Equal(t, int64(3), artifacts[1].SizeBytes)
}

func TestGetScan_NotFound(t *testing.T) {
	t.Parallel()

	scan, err := NewArtifactReader(NewTestDB(t)).GetScan("missing")
	require.NoError(t, err)
	assert.Nil(t, scan)

	latest, err := NewArtifactReader(NewTestDB(t)).LatestScan()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestListScans_NewestFirst(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	w := NewArtifactWriter(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeScan(t, w, "old", base)
	writeScan(t, w, "new", base.Add(10*time.Millisecond))
	writeScan(t, w, "mid", base.Add(5*time.Millisecond))

	r := NewArtifactReader(db)
	scans, err := r.ListScans()
	require.NoError(t, err)
	var ids []string
	for _, s := range scans {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)

	latest, err := r.LatestScan()
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
}

func TestFindBySHA256(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	w := NewArtifactWriter(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeScan(t, w, "s1", base, &Artifact{Location: "/a/X.class", SHA256: "same"})
	writeScan(t, w, "s2", base.Add(time.Minute),
		&Artifact{Location: "/b/X.class", SHA256: "same"},
		&Artifact{Location: "/b/Y.class", SHA256: "other"},
	)

	found, err := NewArtifactReader(db).FindBySHA256("same")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "s1", found[0].ScanID)
	assert.Equal(t, "s2", found[1].ScanID)
}

func TestPruneScans(t *testing.T) {
	t.Parallel()

	db := NewTestDB(t)
	w := NewArtifactWriter(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3", "s4"} {
		writeScan(t, w, id, base.Add(time.Duration(i)*time.Minute), &Artifact{Location: "/x/" + id + ".class", SHA256: id})
	}

	removed, err := w.PruneScans(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	scans, err := NewArtifactReader(db).ListScans()
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "s4", scans[0].ID)
	assert.Equal(t, "s3", scans[1].ID)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM artifacts").Scan(&count))
	assert.Equal(t, 2, count)
}
