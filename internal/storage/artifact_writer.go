package storage

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

const prefixSeparator = "\n"

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var artifactColumns = []string{
	"scan_id", "location", "element", "path", "in_archive",
	"size_bytes", "sha256", "magic_ok", "major_version", "minor_version",
}

// ArtifactWriter records completed scans.
type ArtifactWriter struct {
	db *sql.DB
}

// NewArtifactWriter creates an ArtifactWriter.
// DB must have schema already created via CreateSchema().
func NewArtifactWriter(db *sql.DB) *ArtifactWriter {
	return &ArtifactWriter{db: db}
}

// WriteScan stores a scan and its artifacts in a single transaction.
// ArtifactCount is taken from len(artifacts).
func (w *ArtifactWriter) WriteScan(scan *Scan, artifacts []*Artifact) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	scan.ArtifactCount = len(artifacts)
	_, err = sq.Insert("scans").
		Columns("scan_id", "prefixes", "started_at", "finished_at", "artifact_count").
		Values(
			scan.ID,
			strings.Join(scan.Prefixes, prefixSeparator),
			scan.StartedAt.UTC().Format(timeLayout),
			scan.FinishedAt.UTC().Format(timeLayout),
			scan.ArtifactCount,
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write scan %s: %w", scan.ID, err)
	}

	if len(artifacts) > 0 {
		// Build the query once with Squirrel, then prepare it for the batch
		sqlStr, _, err := sq.Insert("artifacts").
			Columns(artifactColumns...).
			Values("", "", "", "", false, 0, "", false, 0, 0).
			Options("OR REPLACE").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build SQL: %w", err)
		}

		stmt, err := tx.Prepare(sqlStr)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, a := range artifacts {
			_, err := stmt.Exec(
				scan.ID,
				a.Location,
				a.Element,
				a.Path,
				a.InArchive,
				a.SizeBytes,
				a.SHA256,
				a.MagicOK,
				a.MajorVersion,
				a.MinorVersion,
			)
			if err != nil {
				return fmt.Errorf("failed to insert artifact %s: %w", a.Location, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan %s: %w", scan.ID, err)
	}
	return nil
}

// DeleteScan removes a scan. Its artifacts are removed by cascade.
func (w *ArtifactWriter) DeleteScan(scanID string) error {
	_, err := sq.Delete("scans").
		Where(sq.Eq{"scan_id": scanID}).
		RunWith(w.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete scan %s: %w", scanID, err)
	}
	return nil
}

// PruneScans keeps the newest keep scans and deletes the rest.
func (w *ArtifactWriter) PruneScans(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	newest := sq.Select("scan_id").
		From("scans").
		OrderBy("started_at DESC").
		Limit(uint64(keep))
	sub, args, err := newest.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL: %w", err)
	}

	res, err := sq.Delete("scans").
		Where("scan_id NOT IN ("+sub+")", args...).
		RunWith(w.db).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to prune scans: %w", err)
	}
	return res.RowsAffected()
}
