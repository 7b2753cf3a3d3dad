package storage

import "time"

// Data transfer structs mirroring the tables in schema.go.

// Scan is one completed scan. Maps to the scans table.
type Scan struct {
	ID            string    // scan_id: UUID
	Prefixes      []string  // prefixes: stored joined
	StartedAt     time.Time // started_at
	FinishedAt    time.Time // finished_at
	ArtifactCount int       // artifact_count: denormalized count
}

// Artifact is one class artifact recorded by a scan. Maps to the artifacts
// table.
type Artifact struct {
	ScanID       string
	Location     string
	Element      string
	Path         string
	InArchive    bool
	SizeBytes    int64
	SHA256       string
	MagicOK      bool // header starts with 0xCAFEBABE
	MajorVersion int
	MinorVersion int
}
