// Package redis keeps the session and scan flag as two keys under a prefix.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
)

const DefaultPrefix = "zujuan"

type Store struct {
	redis  *redis.Client
	prefix string
	codec  store.Codec
}

func NewStore(client *redis.Client, prefix string, codec store.Codec) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix, codec: codec}
}

func (s *Store) Sessions() store.Sessions   { return &sessionsRepo{s: s} }
func (s *Store) ScanFlags() store.ScanFlags { return &scanFlagsRepo{s: s} }

// ApplyMigrations is a no-op; keys need no schema.
func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return s.redis.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Store) sessionKey() string { return s.prefix + ":session" }
func (s *Store) flagKey() string    { return s.prefix + ":scanflag" }

type sessionsRepo struct {
	s *Store
}

func (r *sessionsRepo) GetSession(ctx context.Context) (domain.Session, error) {
	blob, err := r.s.redis.Get(ctx, r.s.sessionKey()).Bytes()
	if errors.Is(err, redis.Nil) {
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
	return r.s.redis.Set(ctx, r.s.sessionKey(), blob, 0).Err()
}

func (r *sessionsRepo) DeleteSession(ctx context.Context) error {
	return r.s.redis.Del(ctx, r.s.sessionKey()).Err()
}

type scanFlagsRepo struct {
	s *Store
}

func (r *scanFlagsRepo) SetScanFlag(ctx context.Context) error {
	return r.s.redis.Set(ctx, r.s.flagKey(), "1", 0).Err()
}

func (r *scanFlagsRepo) ClearScanFlag(ctx context.Context) error {
	return r.s.redis.Del(ctx, r.s.flagKey()).Err()
}

func (r *scanFlagsRepo) ScanFlag(ctx context.Context) (bool, error) {
	n, err := r.s.redis.Exists(ctx, r.s.flagKey()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
