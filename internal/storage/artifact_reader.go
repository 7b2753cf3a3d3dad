package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ArtifactReader queries recorded scans.
type ArtifactReader struct {
	db *sql.DB
}

// NewArtifactReader creates an ArtifactReader.
// DB should have schema already created.
func NewArtifactReader(db *sql.DB) *ArtifactReader {
	return &ArtifactReader{db: db}
}

func selectScans() sq.SelectBuilder {
	return sq.Select("scan_id", "prefixes", "started_at", "finished_at", "artifact_count").
		From("scans")
}

// GetScan retrieves a single scan.
// Returns (nil, nil) if the scan is not found.
func (r *ArtifactReader) GetScan(scanID string) (*Scan, error) {
	scan, err := scanRow(selectScans().
		Where(sq.Eq{"scan_id": scanID}).
		RunWith(r.db).
		QueryRow())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan %s: %w", scanID, err)
	}
	return scan, nil
}

// LatestScan retrieves the most recently started scan.
// Returns (nil, nil) if no scan was recorded.
func (r *ArtifactReader) LatestScan() (*Scan, error) {
	scan, err := scanRow(selectScans().
		OrderBy("started_at DESC").
		Limit(1).
		RunWith(r.db).
		QueryRow())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan: %w", err)
	}
	return scan, nil
}

// ListScans retrieves all scans, newest first.
func (r *ArtifactReader) ListScans() ([]*Scan, error) {
	rows, err := selectScans().
		OrderBy("started_at DESC").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// ListArtifacts retrieves the artifacts of a scan ordered by location.
func (r *ArtifactReader) ListArtifacts(scanID string) ([]*Artifact, error) {
	return r.queryArtifacts(sq.Eq{"scan_id": scanID})
}

// FindBySHA256 retrieves every recorded artifact with the given digest,
// across all scans.
func (r *ArtifactReader) FindBySHA256(digest string) ([]*Artifact, error) {
	return r.queryArtifacts(sq.Eq{"sha256": digest})
}

func (r *ArtifactReader) queryArtifacts(where sq.Eq) ([]*Artifact, error) {
	rows, err := sq.Select(artifactColumns...).
		From("artifacts").
		Where(where).
		OrderBy("scan_id", "location").
		RunWith(r.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		a := &Artifact{}
		err := rows.Scan(
			&a.ScanID,
			&a.Location,
			&a.Element,
			&a.Path,
			&a.InArchive,
			&a.SizeBytes,
			&a.SHA256,
			&a.MagicOK,
			&a.MajorVersion,
			&a.MinorVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*Scan, error) {
	scan := &Scan{}
	var prefixes, startedAt, finishedAt string
	if err := row.Scan(&scan.ID, &prefixes, &startedAt, &finishedAt, &scan.ArtifactCount); err != nil {
		return nil, err
	}
	if prefixes != "" {
		scan.Prefixes = strings.Split(prefixes, prefixSeparator)
	}
	scan.StartedAt, _ = time.Parse(timeLayout, startedAt)
	scan.FinishedAt, _ = time.Parse(timeLayout, finishedAt)
	return scan, nil
}
