package storage

import "errors"

// ErrSchemaMismatch is returned by Open for a catalog written by an
// incompatible version.
var ErrSchemaMismatch = errors.New("catalog schema version mismatch")
