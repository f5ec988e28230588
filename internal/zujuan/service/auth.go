package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/domain"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/pkg/idx"
	"github.com/aussiebroadwan/zujuan/pkg/slogx"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = 60 * time.Second
)

var (
	// ErrScanTimeout is returned by Login when the code was not scanned in
	// time. It is not one of the SDK error kinds: the caller decides whether
	// to start over with a fresh code.
	ErrScanTimeout = errors.New("scan login: code not scanned before timeout")

	ErrPollInProgress = errors.New("scan login: poll already in progress")
)

// TracerName names the tracer that records login attempts.
const TracerName = "github.com/aussiebroadwan/zujuan/internal/zujuan/service"

// AuthState is the position of an AuthFlow in the login sequence.
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateCodeIssued
	StatePolling
	StateScanConfirmed
	StateLoggedIn
	StateFailed
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateCodeIssued:
		return "code_issued"
	case StatePolling:
		return "polling"
	case StateScanConfirmed:
		return "scan_confirmed"
	case StateLoggedIn:
		return "logged_in"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// ScanState records whether the current poll saw a confirmed scan.
type ScanState int

const (
	ScanCleared ScanState = iota
	ScanConfirmed
)

// AuthFlow drives the delegated QR login. Each IssueCode starts a new
// anonymous remote session; the later steps of the same attempt reuse it.
//
// Only one poll may run at a time; a concurrent PollForScan fails with
// ErrPollInProgress.
type AuthFlow struct {
	Client   *zujuansdk.SDKClient
	Sessions *SessionService

	// Flags mirrors the scan state into durable storage when set.
	Flags store.ScanFlags

	// Interval is the wait between status requests. Timeout bounds the
	// whole poll when called through Login.
	Interval time.Duration
	Timeout  time.Duration

	// ImagePath receives the code image during Login. Empty skips saving.
	ImagePath string

	// Tracer records one span per Login. Nil uses the global provider.
	Tracer trace.Tracer

	pollMu sync.Mutex

	mu     sync.Mutex
	state  AuthState
	scan   ScanState
	remote *zujuansdk.Session
}

// State returns the current login state.
func (f *AuthFlow) State() AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// ScanState returns the scan marker of the most recent poll.
func (f *AuthFlow) ScanState() ScanState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scan
}

// IssueCode starts a login attempt and returns the absolute URL of the code
// image.
func (f *AuthFlow) IssueCode(ctx context.Context) (string, error) {
	remote, err := f.Client.NewSession()
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.remote = remote
	f.state = StateUnauthenticated
	f.mu.Unlock()

	if err := remote.OpenLoginPage(ctx); err != nil {
		f.setState(StateFailed)
		return "", fmt.Errorf("open login page: %w", err)
	}

	codeURL, err := remote.QRCodeURL(ctx)
	if err != nil {
		f.setState(StateFailed)
		return "", err
	}

	f.setState(StateCodeIssued)
	slogx.FromContext(ctx).InfoContext(ctx, "login code issued")
	return codeURL, nil
}

// SaveCodeImage downloads the code image and writes it to ImagePath,
// replacing the image of any earlier attempt.
func (f *AuthFlow) SaveCodeImage(ctx context.Context, codeURL string) error {
	if f.ImagePath == "" {
		return errors.New("no code image path configured")
	}

	remote, err := f.session()
	if err != nil {
		return err
	}

	img, err := remote.FetchQRCode(ctx, codeURL)
	if err != nil {
		return fmt.Errorf("fetch code image: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.ImagePath), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(f.ImagePath, img, 0o644); err != nil {
		return fmt.Errorf("write code image: %w", err)
	}

	slogx.FromContext(ctx).InfoContext(ctx, "scan the login code", "path", f.ImagePath)
	return nil
}

// DeriveTicket extracts the ticket from a code image URL.
func DeriveTicket(codeURL string) (string, error) {
	return zujuansdk.TicketFromURL(codeURL)
}

// PollForScan clears the scan marker, then asks the remote service up to
// timeout/Interval times whether ticket was scanned, waiting Interval
// between requests. It returns true as soon as a scan is confirmed and false
// once the attempts run out. Request failures and context cancellation end
// the poll with an error.
func (f *AuthFlow) PollForScan(ctx context.Context, ticket string, timeout time.Duration) (bool, error) {
	if !f.pollMu.TryLock() {
		return false, ErrPollInProgress
	}
	defer f.pollMu.Unlock()

	log := slogx.FromContext(ctx)

	if err := f.setScan(ctx, ScanCleared); err != nil {
		return false, fmt.Errorf("clear scan flag: %w", err)
	}

	remote, err := f.session()
	if err != nil {
		return false, err
	}

	interval := f.interval()
	attempts := int(timeout / interval)

	f.setState(StatePolling)
	log.DebugContext(ctx, "polling for scan", "attempts", attempts, "interval", interval)

	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := remote.CheckScan(ctx, ticket)
		if err != nil {
			f.setState(StateFailed)
			return false, fmt.Errorf("poll scan status: %w", err)
		}

		if status.Confirmed() {
			if err := f.setScan(ctx, ScanConfirmed); err != nil {
				f.setState(StateFailed)
				return false, fmt.Errorf("set scan flag: %w", err)
			}
			f.setState(StateScanConfirmed)
			log.InfoContext(ctx, "scan confirmed", "attempt", attempt)
			return true, nil
		}

		if status.Code != zujuansdk.ScanCodePending {
			log.WarnContext(ctx, "unexpected scan status", "code", status.Code, "attempt", attempt)
		}

		if attempt == attempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			f.setState(StateFailed)
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	f.setState(StateFailed)
	log.InfoContext(ctx, "scan not confirmed before timeout", "attempts", attempts)
	return false, nil
}

// CompleteLogin exchanges a confirmed ticket for credentials and stores
// them as the current session.
func (f *AuthFlow) CompleteLogin(ctx context.Context, ticket string) (domain.Session, error) {
	remote, err := f.session()
	if err != nil {
		return domain.Session{}, err
	}

	if err := remote.ExchangeTicket(ctx, ticket); err != nil {
		f.setState(StateFailed)
		return domain.Session{}, err
	}

	sess := domain.Session{
		ID:        idx.New().String(),
		Cookies:   domain.CookiesFromHTTP(remote.Cookies()),
		CreatedAt: time.Now().UTC(),
	}

	if err := f.Sessions.Save(ctx, sess); err != nil {
		f.setState(StateFailed)
		return domain.Session{}, err
	}

	f.setState(StateLoggedIn)
	slogx.FromContext(ctx).InfoContext(ctx, "scan login complete", "session_id", sess.ID)
	return sess, nil
}

// Login runs a full attempt: issue a code, save its image, wait for the
// scan and exchange the ticket. ErrScanTimeout means nobody scanned.
func (f *AuthFlow) Login(ctx context.Context) (domain.Session, error) {
	attemptID := idx.New().String()
	ctx, log := slogx.With(ctx, "attempt_id", attemptID)

	ctx, span := f.tracer().Start(ctx, "zujuan.login",
		trace.WithAttributes(attribute.String("zujuan.attempt_id", attemptID)))
	defer span.End()

	sess, err := f.login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WarnContext(ctx, "scan login failed", "error", err, "state", f.State().String())
		return domain.Session{}, err
	}

	span.SetStatus(codes.Ok, "")
	return sess, nil
}

func (f *AuthFlow) tracer() trace.Tracer {
	if f.Tracer != nil {
		return f.Tracer
	}
	return otel.Tracer(TracerName)
}

func (f *AuthFlow) login(ctx context.Context) (domain.Session, error) {
	codeURL, err := f.IssueCode(ctx)
	if err != nil {
		return domain.Session{}, err
	}

	if f.ImagePath != "" {
		if err := f.SaveCodeImage(ctx, codeURL); err != nil {
			f.setState(StateFailed)
			return domain.Session{}, err
		}
	}

	ticket, err := DeriveTicket(codeURL)
	if err != nil {
		f.setState(StateFailed)
		return domain.Session{}, err
	}

	confirmed, err := f.PollForScan(ctx, ticket, f.timeout())
	if err != nil {
		return domain.Session{}, err
	}
	if !confirmed {
		return domain.Session{}, ErrScanTimeout
	}

	return f.CompleteLogin(ctx, ticket)
}

func (f *AuthFlow) session() (*zujuansdk.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.remote == nil {
		remote, err := f.Client.NewSession()
		if err != nil {
			return nil, err
		}
		f.remote = remote
	}
	return f.remote, nil
}

func (f *AuthFlow) setState(s AuthState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *AuthFlow) setScan(ctx context.Context, s ScanState) error {
	f.mu.Lock()
	f.scan = s
	f.mu.Unlock()

	if f.Flags == nil {
		return nil
	}
	if s == ScanConfirmed {
		return f.Flags.SetScanFlag(ctx)
	}
	return f.Flags.ClearScanFlag(ctx)
}

func (f *AuthFlow) interval() time.Duration {
	if f.Interval <= 0 {
		return DefaultPollInterval
	}
	return f.Interval
}

func (f *AuthFlow) timeout() time.Duration {
	if f.Timeout <= 0 {
		return DefaultPollTimeout
	}
	return f.Timeout
}
