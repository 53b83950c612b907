package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/roach88/dbtape/internal/ledger"
)

// FileStore implements ledger.SnapshotStore with one SQLite file per
// snapshot path.
type FileStore struct {
	logger *slog.Logger
}

// NewFileStore creates a FileStore. A nil logger discards output.
func NewFileStore(logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{logger: logger}
}

var _ ledger.SnapshotStore = (*FileStore)(nil)

// Save writes snap to path atomically. Missing directories are created.
// An existing snapshot at path is replaced only once the new one is
// complete.
func (f *FileStore) Save(ctx context.Context, path string, snap ledger.Snapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+uuid.NewString())
	if err := writeFile(ctx, tmp, snap); err != nil {
		removeQuietly(tmp)
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		removeQuietly(tmp)
		return fmt.Errorf("save snapshot %s: %w", path, err)
	}

	f.logger.Debug("snapshot saved", "path", path, "outcomes", snap.Len())
	return nil
}

func writeFile(ctx context.Context, path string, snap ledger.Snapshot) error {
	s, err := Open(path)
	if err != nil {
		return err
	}
	if err := s.WriteSnapshot(ctx, snap); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func removeQuietly(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + "-journal")
}

// Load reads and verifies the snapshot at path. A missing file yields a
// *ledger.SnapshotMissingError.
func (f *FileStore) Load(ctx context.Context, path string) (ledger.Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.Snapshot{}, &ledger.SnapshotMissingError{Path: path}
		}
		return ledger.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	s, err := OpenReadOnly(path)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	defer s.Close()

	snap, err := s.VerifiedSnapshot(ctx)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load snapshot %s: %w", path, err)
	}

	f.logger.Debug("snapshot loaded", "path", path, "outcomes", snap.Len())
	return snap, nil
}

// Info summarizes a snapshot file.
type Info struct {
	Path          string
	FormatVersion string
	Digest        string
	Outcomes      int
	Failures      int
	Keys          map[ledger.CallKey]int
	Verified      bool
}

// Inspect reads the snapshot at path without loading it into a ledger.
// With verify set the digest is checked and a mismatch is an error.
func Inspect(ctx context.Context, path string, verify bool) (Info, ledger.Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, ledger.Snapshot{}, &ledger.SnapshotMissingError{Path: path}
		}
		return Info{}, ledger.Snapshot{}, fmt.Errorf("inspect: %w", err)
	}

	s, err := OpenReadOnly(path)
	if err != nil {
		return Info{}, ledger.Snapshot{}, fmt.Errorf("inspect %s: %w", path, err)
	}
	defer s.Close()

	meta, err := s.Meta(ctx)
	if err != nil {
		return Info{}, ledger.Snapshot{}, fmt.Errorf("inspect %s: %w", path, err)
	}

	read := s.ReadSnapshot
	if verify {
		read = s.VerifiedSnapshot
	}
	snap, err := read(ctx)
	if err != nil {
		return Info{}, ledger.Snapshot{}, fmt.Errorf("inspect %s: %w", path, err)
	}

	info := Info{
		Path:          path,
		FormatVersion: meta[MetaFormatVersion],
		Digest:        meta[MetaDigest],
		Outcomes:      snap.Len(),
		Keys:          make(map[ledger.CallKey]int),
		Verified:      verify,
	}
	for _, e := range snap.Entries {
		info.Keys[e.Key]++
		if e.Outcome.IsFailure() {
			info.Failures++
		}
	}
	return info, snap, nil
}
