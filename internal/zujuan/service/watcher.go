package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
)

// SessionWatcher periodically re-validates a session while long work runs
// on it, and calls OnStale once when the remote service stops accepting it.
type SessionWatcher struct {
	Sessions *SessionService
	Session  domain.Session
	Logger   *slog.Logger
	Interval time.Duration

	// OnStale runs on the watcher goroutine.
	OnStale func()

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSessionWatcher creates a watcher. If interval is 0 or negative,
// defaults to 5 minutes.
func NewSessionWatcher(sessions *SessionService, sess domain.Session, logger *slog.Logger, interval time.Duration) *SessionWatcher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &SessionWatcher{
		Sessions: sessions,
		Session:  sess,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background check loop. Call Stop to end it.
func (w *SessionWatcher) Start() {
	go w.run()
	w.Logger.Info("session watcher started", "interval", w.Interval)
}

// Stop ends the loop and blocks until an in-progress check has finished.
func (w *SessionWatcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.Logger.Info("session watcher stopped")
}

func (w *SessionWatcher) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.check() {
				return
			}
		case <-w.stopCh:
			return
		}
	}
}

// check reports whether watching should continue. Transport errors are
// logged and retried on the next tick; only an explicit rejection counts as
// stale.
func (w *SessionWatcher) check() bool {
	ctx, cancel := context.WithTimeout(context.Background(), w.Interval)
	defer cancel()

	valid, err := w.Sessions.Validate(ctx, w.Session)
	if err != nil {
		w.Logger.Warn("session check failed", "session_id", w.Session.ID, "error", err)
		return true
	}
	if valid {
		w.Logger.Debug("session still valid", "session_id", w.Session.ID)
		return true
	}

	w.Logger.Warn("session no longer accepted by remote", "session_id", w.Session.ID)
	if w.OnStale != nil {
		w.OnStale()
	}
	return false
}
