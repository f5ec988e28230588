// Package file stores the session as a blob file and the scan flag as a
// marker file, both inside one directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
)

const (
	sessionFile = "session.bin"
	flagFile    = "scan.flag"
)

type Store struct {
	dir   string
	codec store.Codec
}

func NewStore(dir string, codec store.Codec) *Store {
	return &Store{dir: dir, codec: codec}
}

func (s *Store) Sessions() store.Sessions   { return &sessionsRepo{s: s} }
func (s *Store) ScanFlags() store.ScanFlags { return &scanFlagsRepo{s: s} }

// ApplyMigrations creates the storage directory.
func (s *Store) ApplyMigrations() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Ping checks that the storage directory exists.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// writeAtomic replaces name so a reader never sees a partial file.
func (s *Store) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(name))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

type sessionsRepo struct {
	s *Store
}

func (r *sessionsRepo) GetSession(ctx context.Context) (domain.Session, error) {
	blob, err := os.ReadFile(r.s.path(sessionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Session{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return r.s.codec.Decode(blob)
}

func (r *sessionsRepo) PutSession(ctx context.Context, sess domain.Session) error {
	blob, err := r.s.codec.Encode(sess)
	if err != nil {
		return err
	}
	return r.s.writeAtomic(sessionFile, blob)
}

func (r *sessionsRepo) DeleteSession(ctx context.Context) error {
	return removeIfExists(r.s.path(sessionFile))
}

type scanFlagsRepo struct {
	s *Store
}

func (r *scanFlagsRepo) SetScanFlag(ctx context.Context) error {
	return r.s.writeAtomic(flagFile, nil)
}

func (r *scanFlagsRepo) ClearScanFlag(ctx context.Context) error {
	return removeIfExists(r.s.path(flagFile))
}

func (r *scanFlagsRepo) ScanFlag(ctx context.Context) (bool, error) {
	_, err := os.Stat(r.s.path(flagFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
