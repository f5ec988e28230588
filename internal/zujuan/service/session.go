package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/pkg/idx"
	"github.com/aussiebroadwan/zujuan/pkg/slogx"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

// SessionService owns the persisted session: loading, saving, and checking
// it against the live service.
type SessionService struct {
	Store  store.Store
	Client *zujuansdk.SDKClient
}

// Load returns the stored session. found is false when nothing is stored.
func (s *SessionService) Load(ctx context.Context) (domain.Session, bool, error) {
	sess, err := s.Store.Sessions().GetSession(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("load session: %w", err)
	}
	return sess, true, nil
}

// Save replaces the stored session.
func (s *SessionService) Save(ctx context.Context, sess domain.Session) error {
	if err := s.Store.Sessions().PutSession(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear forgets the stored session so the next login requires a scan.
func (s *SessionService) Clear(ctx context.Context) error {
	if err := s.Store.Sessions().DeleteSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Resume binds a stored session to a live cookie jar.
func (s *SessionService) Resume(sess domain.Session) (*zujuansdk.Session, error) {
	return s.Client.ResumeSession(sess.HTTPCookies())
}

// Validate probes the profile page with sess. Redirects and non-200 replies
// mean the session is stale; transport failures are returned as errors.
func (s *SessionService) Validate(ctx context.Context, sess domain.Session) (bool, error) {
	if sess.IsZero() {
		return false, nil
	}

	remote, err := s.Resume(sess)
	if err != nil {
		return false, err
	}

	valid, err := remote.Probe(ctx)
	if err != nil {
		return false, fmt.Errorf("validate session: %w", err)
	}
	return valid, nil
}

// LoginByStoredSession returns the stored session if it still authenticates.
// An absent, malformed or stale session yields a *zujuansdk.LogoutError.
func (s *SessionService) LoginByStoredSession(ctx context.Context) (domain.Session, error) {
	log := slogx.FromContext(ctx)

	sess, found, err := s.Load(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if !found {
		log.InfoContext(ctx, "no stored session")
		return domain.Session{}, zujuansdk.NewSessionInvalidError()
	}
	if _, err := idx.Parse(sess.ID); err != nil {
		log.WarnContext(ctx, "stored session has malformed id", "session_id", sess.ID)
		return domain.Session{}, zujuansdk.NewSessionInvalidError()
	}

	valid, err := s.Validate(ctx, sess)
	if err != nil {
		return domain.Session{}, err
	}
	if !valid {
		log.InfoContext(ctx, "stored session rejected by remote", "session_id", sess.ID)
		return domain.Session{}, zujuansdk.NewSessionInvalidError()
	}

	log.InfoContext(ctx, "stored session valid",
		"session_id", sess.ID,
		"session_age", time.Since(sess.CreatedAt).Round(time.Second))
	return sess, nil
}
