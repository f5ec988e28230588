package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root persistence interface. Concrete drivers (file, sqlite,
// redis) implement it. Every driver holds at most one session; saving
// replaces whatever was there.
type Store interface {
	Sessions() Sessions
	ScanFlags() ScanFlags

	// ApplyMigrations prepares the backing storage (schema, directories).
	ApplyMigrations() error

	Close() error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}

type Sessions interface {
	// GetSession returns the stored session or ErrNotFound.
	GetSession(ctx context.Context) (domain.Session, error)

	// PutSession overwrites the single session slot.
	PutSession(ctx context.Context, s domain.Session) error

	// DeleteSession empties the slot. Deleting an empty slot is not an error.
	DeleteSession(ctx context.Context) error
}

// ScanFlags persists whether the most recent scan was confirmed.
type ScanFlags interface {
	SetScanFlag(ctx context.Context) error
	ClearScanFlag(ctx context.Context) error

	// ScanFlag reports whether the flag is set. A missing flag is false.
	ScanFlag(ctx context.Context) (bool, error)
}
