package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db    *sql.DB
	dsn   string
	codec store.Codec
}

// DSN builds the connection string for a database file.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

func NewStore(dsn string, codec store.Codec) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Both tables hold a single row; one connection avoids SQLITE_BUSY and
	// keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	return &Store{
		db:    db,
		dsn:   dsn,
		codec: codec,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Sessions() store.Sessions   { return &sessionsRepo{db: s.db, codec: s.codec} }
func (s *Store) ScanFlags() store.ScanFlags { return &scanFlagsRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

type sessionsRepo struct {
	db    *sql.DB
	codec store.Codec
}

func (r *sessionsRepo) GetSession(ctx context.Context) (domain.Session, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT blob FROM sessions WHERE slot = 1`).Scan(&blob)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return r.codec.Decode(blob)
}

func (r *sessionsRepo) PutSession(ctx context.Context, sess domain.Session) error {
	blob, err := r.codec.Encode(sess)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (slot, blob, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		blob, time.Now().Unix(),
	)
	return err
}

func (r *sessionsRepo) DeleteSession(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE slot = 1`)
	return err
}

type scanFlagsRepo struct {
	db *sql.DB
}

func (r *scanFlagsRepo) SetScanFlag(ctx context.Context) error {
	return r.put(ctx, true)
}

func (r *scanFlagsRepo) ClearScanFlag(ctx context.Context) error {
	return r.put(ctx, false)
}

func (r *scanFlagsRepo) ScanFlag(ctx context.Context) (bool, error) {
	var confirmed bool
	err := r.db.QueryRowContext(ctx, `SELECT confirmed FROM scan_flags WHERE slot = 1`).Scan(&confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

func (r *scanFlagsRepo) put(ctx context.Context, confirmed bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_flags (slot, confirmed, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET confirmed = excluded.confirmed, updated_at = excluded.updated_at`,
		confirmed, time.Now().Unix(),
	)
	return err
}
