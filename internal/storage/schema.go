package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to catalog_metadata when the schema is created.
const SchemaVersion = "1.0"

// CreateSchema creates all tables and indexes of the artifact catalog.
// Uses a transaction so schema creation succeeds or fails as a whole.
//
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"scans", createScansTable},
		{"artifacts", createArtifactsTable},
		{"catalog_metadata", createCatalogMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO catalog_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap catalog_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the schema version, or "0" for a database that
// has no catalog yet.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='catalog_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check catalog_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM catalog_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in catalog_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

const createScansTable = `
CREATE TABLE scans (
    scan_id TEXT PRIMARY KEY,                    -- UUID
    prefixes TEXT NOT NULL,                      -- Scan prefixes, newline separated
    started_at TEXT NOT NULL,                    -- ISO 8601
    finished_at TEXT NOT NULL,                   -- ISO 8601
    artifact_count INTEGER NOT NULL DEFAULT 0
)
`

const createArtifactsTable = `
CREATE TABLE artifacts (
    scan_id TEXT NOT NULL,
    location TEXT NOT NULL,                      -- Element joined with path, "!/" inside archives
    element TEXT NOT NULL,                       -- Classpath element or nested archive location
    path TEXT NOT NULL,                          -- Element-relative path, empty for bare files
    in_archive INTEGER NOT NULL DEFAULT 0,       -- Boolean
    size_bytes INTEGER NOT NULL DEFAULT 0,
    sha256 TEXT NOT NULL,
    magic_ok INTEGER NOT NULL DEFAULT 0,         -- Boolean: starts with 0xCAFEBABE
    major_version INTEGER NOT NULL DEFAULT 0,
    minor_version INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (scan_id, location),
    FOREIGN KEY (scan_id) REFERENCES scans(scan_id) ON DELETE CASCADE
)
`

const createCatalogMetadataTable = `
CREATE TABLE catalog_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

func getAllIndexes() []string {
	return []string{
		"CREATE INDEX idx_scans_started_at ON scans(started_at)",
		"CREATE INDEX idx_artifacts_sha256 ON artifacts(sha256)",
		"CREATE INDEX idx_artifacts_element ON artifacts(scan_id, element)",
	}
}
