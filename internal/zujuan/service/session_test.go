package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/pkg/idx"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

func storedSession(cookie *http.Cookie) domain.Session {
	return domain.Session{
		ID:        idx.New().String(),
		Cookies:   domain.CookiesFromHTTP([]*http.Cookie{cookie}),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSessionSaveLoad(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	_, found, err := fx.sessions.Load(ctx)
	require.NoError(t, err)
	require.False(t, found)

	want := storedSession(fx.srv.IssueSession())
	require.NoError(t, fx.sessions.Save(ctx, want))

	got, found, err := fx.sessions.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Cookies, got.Cookies)

	require.NoError(t, fx.sessions.Clear(ctx))
	_, found, err = fx.sessions.Load(ctx)
	require.NoError(t, err)
	require.False(t, found)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	ctx := context.Background()

	sess := storedSession(fx.srv.IssueSession())

	valid, err := fx.sessions.Validate(ctx, sess)
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = fx.sessions.Validate(ctx, domain.Session{})
	require.NoError(t, err)
	require.False(t, valid)

	fx.srv.RevokeAll()
	valid, err = fx.sessions.Validate(ctx, sess)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestLoginByStoredSession(t *testing.T) {
	t.Parallel()

	t.Run("absent", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)

		_, err := fx.sessions.LoginByStoredSession(context.Background())
		require.ErrorIs(t, err, zujuansdk.ErrLogout)

		var lerr *zujuansdk.LogoutError
		require.ErrorAs(t, err, &lerr)
		require.Equal(t, "session invalid, re-authentication required", lerr.Reason)
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()

		want := storedSession(fx.srv.IssueSession())
		require.NoError(t, fx.sessions.Save(ctx, want))

		got, err := fx.sessions.LoginByStoredSession(ctx)
		require.NoError(t, err)
		require.Equal(t, want.ID, got.ID)
	})

	t.Run("malformed id", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()

		sess := storedSession(fx.srv.IssueSession())
		sess.ID = "not-a-ulid"
		require.NoError(t, fx.sessions.Save(ctx, sess))

		_, err := fx.sessions.LoginByStoredSession(ctx)
		require.ErrorIs(t, err, zujuansdk.ErrLogout)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()

		require.NoError(t, fx.sessions.Save(ctx, storedSession(fx.srv.IssueSession())))
		fx.srv.RevokeAll()

		_, err := fx.sessions.LoginByStoredSession(ctx)
		require.ErrorIs(t, err, zujuansdk.ErrLogout)
	})

	t.Run("remote unreachable", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t)
		ctx := context.Background()

		require.NoError(t, fx.sessions.Save(ctx, storedSession(fx.srv.IssueSession())))
		fx.srv.Close()

		_, err := fx.sessions.LoginByStoredSession(ctx)
		require.Error(t, err)
		require.NotErrorIs(t, err, zujuansdk.ErrLogout)
	})
}
