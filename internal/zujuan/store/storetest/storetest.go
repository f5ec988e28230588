// Package storetest holds behaviour shared by every store driver.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/pkg/idx"
)

// Session returns a populated session for round-trip checks.
func Session(t testing.TB) domain.Session {
	t.Helper()
	return domain.Session{
		ID: idx.New().String(),
		Cookies: []domain.Cookie{
			{Name: "zj_session", Value: "tok-" + idx.New().String()},
			{Name: "visitor", Value: "v1"},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// Run exercises a driver. newStore must return a fresh, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("empty store has no session", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Sessions().GetSession(ctx)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		s := newStore(t)
		want := Session(t)

		require.NoError(t, s.Sessions().PutSession(ctx, want))

		got, err := s.Sessions().GetSession(ctx)
		require.NoError(t, err)
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, want.Cookies, got.Cookies)
		require.True(t, want.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("put overwrites single slot", func(t *testing.T) {
		s := newStore(t)
		first, second := Session(t), Session(t)

		require.NoError(t, s.Sessions().PutSession(ctx, first))
		require.NoError(t, s.Sessions().PutSession(ctx, second))

		got, err := s.Sessions().GetSession(ctx)
		require.NoError(t, err)
		require.Equal(t, second.ID, got.ID)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Sessions().DeleteSession(ctx), "deleting an empty slot")
		require.NoError(t, s.Sessions().PutSession(ctx, Session(t)))
		require.NoError(t, s.Sessions().DeleteSession(ctx))

		_, err := s.Sessions().GetSession(ctx)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("scan flag", func(t *testing.T) {
		s := newStore(t)
		flags := s.ScanFlags()

		set, err := flags.ScanFlag(ctx)
		require.NoError(t, err)
		require.False(t, set)

		require.NoError(t, flags.SetScanFlag(ctx))
		set, err = flags.ScanFlag(ctx)
		require.NoError(t, err)
		require.True(t, set)

		require.NoError(t, flags.ClearScanFlag(ctx))
		set, err = flags.ScanFlag(ctx)
		require.NoError(t, err)
		require.False(t, set)

		require.NoError(t, flags.ClearScanFlag(ctx), "clearing twice")
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
