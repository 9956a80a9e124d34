package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/julianstephens/lightsout/internal/constants"
)

var (
	// ErrConflict is returned when the on-disk record changed since it was read.
	ErrConflict = errors.New("concurrent write conflict")
	// ErrCorrupt is returned when a persisted record cannot be decoded.
	ErrCorrupt = errors.New("state corrupt")
	// ErrNoChange may be returned by an update's mutate func to skip the write.
	ErrNoChange = errors.New("no change")
)

// Version is an opaque token identifying the content a record was read at.
// The zero Version means the file did not exist.
type Version string

// NoVersion is the version of an absent file.
const NoVersion Version = ""

func fingerprint(data []byte) Version {
	sum := sha256.Sum256(data)
	return Version(hex.EncodeToString(sum[:]))
}

// FileStore is a directory of JSON documents supporting compare-and-swap
// writes. Readers never take a lock: every write replaces the target with a
// rename, so a reader sees either the old or the new content. Writers hold a
// short advisory lock on "<name>.lock" while they compare and replace.
type FileStore struct {
	dir      string
	lockWait time.Duration

	// OnConflict, when set, is called with the record name on every rejected write.
	OnConflict func(name string)
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:      dir,
		lockWait: constants.CommitLockWait,
	}
}

// Dir returns the directory holding the records.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the on-disk path of a record.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Read returns the raw content of a record and its version. An absent file is
// not an error: it yields nil data and NoVersion.
func (s *FileStore) Read(name string) ([]byte, Version, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NoVersion, nil
		}
		return nil, NoVersion, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, fingerprint(data), nil
}

// CompareAndSwap replaces the record with data only if its current version
// equals expected. It returns the new version, or ErrConflict.
func (s *FileStore) CompareAndSwap(ctx context.Context, name string, expected Version, data []byte) (Version, error) {
	if err := os.MkdirAll(s.dir, constants.StateDirMode); err != nil {
		return NoVersion, fmt.Errorf("failed to create state directory: %w", err)
	}

	target := s.Path(name)
	lock := flock.New(target + ".lock")

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	locked, err := lock.TryLockContext(lockCtx, constants.CommitLockRetry)
	if err != nil {
		return NoVersion, fmt.Errorf("failed to acquire commit lock for %s: %w", name, err)
	}
	if !locked {
		return NoVersion, fmt.Errorf("failed to acquire commit lock for %s", name)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	_, current, err := s.Read(name)
	if err != nil {
		return NoVersion, err
	}
	if current != expected {
		if s.OnConflict != nil {
			s.OnConflict(name)
		}
		return NoVersion, fmt.Errorf("%s: %w", name, ErrConflict)
	}

	if err := writeAtomic(target, data); err != nil {
		return NoVersion, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return fingerprint(data), nil
}

// writeAtomic writes data to a temp file beside path and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, constants.StateFileMode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
