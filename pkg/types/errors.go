package types

import (
	"errors"
	"fmt"
)

// Archive errors.
var (
	ErrArchiveNotFound = errors.New("archive not found")
	ErrArchiveCorrupt  = errors.New("archive is corrupt")
	ErrMissingMember   = errors.New("archive member not found")
	ErrDuplicateMember = errors.New("archive member already written")
)

// Selection and resolution errors.
var (
	ErrInvalidPattern    = errors.New("invalid selection pattern")
	ErrMultipleDocuments = errors.New("note has more than one background document")
)

// RelationalError reports a failed query or write against a SQLite store.
type RelationalError struct {
	Op    string // "query", "exec", "commit", ...
	Query string
	Err   error
}

func (e *RelationalError) Error() string {
	return fmt.Sprintf("sqlite %s: %v", e.Op, e.Err)
}

func (e *RelationalError) Unwrap() error { return e.Err }

// SourceError reports that the backup archive or its database could not be
// opened. It aborts the whole run.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("could not open source %q: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// RecordError reports that one note could not be extracted.
type RecordError struct {
	NoteID string
	Name   string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("could not extract record %s (%q): %v", e.NoteID, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// MissingDependencyError is returned by the startup capability check when a
// required runtime component is unavailable.
type MissingDependencyError struct {
	Name string
	Hint string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency %s: %s", e.Name, e.Hint)
}
