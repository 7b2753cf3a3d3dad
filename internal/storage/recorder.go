package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mvp-joe/classpath-scanner/internal/classpath"
)

// Recorder is a classpath.Consumer that fingerprints every artifact and
// stores the scan when it finishes. Nothing is written for a scan that
// fails, so the catalog only ever holds complete scans.
//
// A Recorder records one scan; create a new one for each Scan call.
type Recorder struct {
	writer    *ArtifactWriter
	scan      *Scan
	artifacts []*Artifact
	now       func() time.Time
}

// NewRecorder starts recording a scan of prefixes.
func NewRecorder(db *sql.DB, prefixes []string) *Recorder {
	r := &Recorder{
		writer: NewArtifactWriter(db),
		now:    time.Now,
	}
	r.scan = &Scan{
		ID:        uuid.New().String(),
		Prefixes:  append([]string(nil), prefixes...),
		StartedAt: r.now(),
	}
	return r
}

// ScanID returns the identifier the scan will be stored under.
func (r *Recorder) ScanID() string {
	return r.scan.ID
}

// Count returns the number of artifacts processed so far.
func (r *Recorder) Count() int {
	return len(r.artifacts)
}

func (r *Recorder) Process(a classpath.Artifact) error {
	h := sha256.New()
	header := make([]byte, classHeaderSize)

	n, err := io.ReadFull(io.TeeReader(a, h), header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("failed to read %s: %w", a.Location(), err)
	}
	rest, err := io.Copy(h, a)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", a.Location(), err)
	}

	ch := ParseClassHeader(header[:n])
	r.artifacts = append(r.artifacts, &Artifact{
		ScanID:       r.scan.ID,
		Location:     a.Location(),
		Element:      a.Element,
		Path:         a.Path,
		InArchive:    a.InArchive,
		SizeBytes:    int64(n) + rest,
		SHA256:       hex.EncodeToString(h.Sum(nil)),
		MagicOK:      ch.MagicOK,
		MajorVersion: ch.Major,
		MinorVersion: ch.Minor,
	})
	return nil
}

func (r *Recorder) Finish() error {
	r.scan.FinishedAt = r.now()
	return r.writer.WriteScan(r.scan, r.artifacts)
}
