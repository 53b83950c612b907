package ledger

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotRecording is returned by Persist on a ledger that is not in
// RECORD mode.
var ErrNotRecording = errors.New("ledger is not in record mode")

// ReplayExhaustedError reports a REPLAY request for a key whose queue is
// empty: the test made more calls of that kind than were recorded.
type ReplayExhaustedError struct {
	Key CallKey
}

// Error implements the error interface.
func (e *ReplayExhaustedError) Error() string {
	return fmt.Sprintf("replay exhausted for %s: no recorded outcomes left (re-record the snapshot)", e.Key)
}

// SnapshotMissingError reports that REPLAY was requested but no snapshot
// exists at Path.
type SnapshotMissingError struct {
	Path string
}

// Error implements the error interface.
func (e *SnapshotMissingError) Error() string {
	return fmt.Sprintf("no recorded snapshot at %s (run the test with -store-db-data first)", e.Path)
}

// Unwrap makes errors.Is(err, fs.ErrNotExist) hold.
func (e *SnapshotMissingError) Unwrap() error {
	return fs.ErrNotExist
}

// UnrecordableError reports a successful call whose result could not be
// converted to a persistable value. The call's result was still returned
// to the caller; the snapshot is refused at Persist.
type UnrecordableError struct {
	Key CallKey
	Err error
}

// Error implements the error interface.
func (e *UnrecordableError) Error() string {
	return fmt.Sprintf("cannot record result of %s: %v", e.Key, e.Err)
}

// Unwrap returns the conversion error.
func (e *UnrecordableError) Unwrap() error {
	return e.Err
}

// RecordedError is a replayed failure whose kind has no registered
// decoder. It keeps the kind and message of the original error.
type RecordedError struct {
	Kind    string
	Message string
}

// Error implements the error interface.
func (e *RecordedError) Error() string {
	return e.Message
}

// IsReplayExhausted returns true if err is a ReplayExhaustedError.
// Uses errors.As to handle wrapped errors.
func IsReplayExhausted(err error) bool {
	var re *ReplayExhaustedError
	return errors.As(err, &re)
}

// IsSnapshotMissing returns true if err is a SnapshotMissingError.
// Uses errors.As to handle wrapped errors.
func IsSnapshotMissing(err error) bool {
	var sm *SnapshotMissingError
	return errors.As(err, &sm)
}

// IsUnrecordable returns true if err is an UnrecordableError.
func IsUnrecordable(err error) bool {
	var ue *UnrecordableError
	return errors.As(err, &ue)
}
