// Package zujuansdktest provides an in-process fake of the zujuan site for
// tests of code built on zujuansdk.
package zujuansdktest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"

	"github.com/aussiebroadwan/zujuan/pkg/idx"
	"github.com/aussiebroadwan/zujuan/pkg/zujuansdk"
)

const (
	// SessionCookie is the cookie the fake sets on a successful exchange.
	SessionCookie = "zj_session"

	// ProfileCookie is scoped to the profile path and set on every
	// authenticated profile view.
	ProfileCookie = "zj_profile"
)

// Server is a fake remote service. Exported fields may be changed before the
// first request that depends on them.
type Server struct {
	*httptest.Server

	// Ticket is embedded in the code image URL and expected by the status
	// and exchange endpoints.
	Ticket string

	// ConfirmAfter is the number of pending status replies before the scan is
	// confirmed. Negative means never.
	ConfirmAfter int

	// PendingCode is returned while the scan is not confirmed.
	PendingCode int

	// ExchangeStatus overrides the exchange response when not 200.
	ExchangeStatus int

	// QRPage replaces the QR page markup when non-empty.
	QRPage string

	Username string
	Listing  []zujuansdk.ListingRecord

	QRImage []byte

	// PaperDelay slows every paper request, authenticated or not.
	PaperDelay time.Duration

	// RevokeAfterPapers revokes every session once that many papers have
	// been served. Zero never revokes.
	RevokeAfterPapers int

	mu        sync.Mutex
	polls     int
	exchanges int
	papers    int
	sessions  map[string]bool
	lastPoll  map[string]string
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Ticket:         "gQH47jwAAAAAAAAAAS5odHRw",
		ConfirmAfter:   2,
		ExchangeStatus: http.StatusOK,
		Username:       "Wang Fang",
		QRImage:        QRCode(t, "https://weixin.qq.com/q/fake"),
		sessions:       map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /login/qrcode", s.handleQRPage)
	mux.HandleFunc("GET /qrcode.png", s.handleQRImage)
	mux.HandleFunc("GET /wechat/issubscribe", s.handleStatus)
	mux.HandleFunc("GET /wechat/login", s.handleExchange)
	mux.HandleFunc("GET /home", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /user", s.authenticated(s.handleProfile))
	mux.HandleFunc("GET /zujuan", s.authenticated(s.handleListing))
	mux.HandleFunc("GET /paper/{pid}", s.delayed(s.authenticated(s.handlePaper)))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// JumpURL is the landing page the exchange redirects to.
func (s *Server) JumpURL() string { return s.URL + "/home" }

// Client returns an SDK client pointed at the fake.
func (s *Server) Client() *zujuansdk.SDKClient {
	c := zujuansdk.NewSDKClient(s.URL, s.JumpURL())
	c.Transport = http.DefaultTransport
	return c
}

// Polls returns how many status requests were served.
func (s *Server) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Exchanges returns how many exchange requests were served.
func (s *Server) Exchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchanges
}

// LastPoll returns the query of the most recent status request.
func (s *Server) LastPoll() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoll
}

// IssueSession registers a valid session and returns its cookie, as if an
// exchange had happened earlier.
func (s *Server) IssueSession() *http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := idx.New().String()
	s.sessions[token] = true
	return &http.Cookie{Name: SessionCookie, Value: token}
}

// RevokeAll invalidates every issued session.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = map[string]bool{}
}

// QRCode renders content as a PNG QR code.
func QRCode(t testing.TB, content string) []byte {
	t.Helper()

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		t.Fatalf("encode qr: %v", err)
	}
	code, err = barcode.Scale(code, 128, 128)
	if err != nil {
		t.Fatalf("scale qr: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func (s *Server) handleLogin(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "visitor", Value: idx.New().String(), Path: "/"})
	_, _ = fmt.Fprint(w, `<html><body><a href="/login/qrcode">scan</a></body></html>`)
}

func (s *Server) handleQRPage(w http.ResponseWriter, _ *http.Request) {
	if s.QRPage != "" {
		_, _ = fmt.Fprint(w, s.QRPage)
		return
	}
	_, _ = fmt.Fprintf(w, `<html><body>
<div class="wrp_code"><img src="/qrcode.png?ticket=%s" alt="qr"><span>scan me</span></div>
</body></html>`, html.EscapeString(s.Ticket))
}

func (s *Server) handleQRImage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(s.QRImage)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	s.polls++
	polls := s.polls
	s.lastPoll = map[string]string{
		"ticket":   q.Get("ticket"),
		"jump_url": q.Get("jump_url"),
		"r":        q.Get("r"),
	}
	s.mu.Unlock()

	code := s.PendingCode
	if q.Get("ticket") == s.Ticket && s.ConfirmAfter >= 0 && polls > s.ConfirmAfter {
		code = zujuansdk.ScanCodeConfirmed
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(zujuansdk.ScanStatus{Code: code})
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.exchanges++
	s.mu.Unlock()

	if s.ExchangeStatus != http.StatusOK {
		w.WriteHeader(s.ExchangeStatus)
		return
	}
	if r.URL.Query().Get("ticket") != s.Ticket {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	cookie := s.IssueSession()
	cookie.Path = "/"
	http.SetCookie(w, cookie)
	http.Redirect(w, r, r.URL.Query().Get("jump_url"), http.StatusFound)
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)

		s.mu.Lock()
		ok := err == nil && s.sessions[c.Value]
		s.mu.Unlock()

		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: ProfileCookie, Value: "1", Path: "/user"})

	name := ""
	if s.Username != "" {
		name = fmt.Sprintf(`<span id="J_realname">
  %s
</span>`, html.EscapeString(s.Username))
	}
	_, _ = fmt.Fprintf(w, `<html><body><div class="user-info">%s</div></body></html>`, name)
}

func (s *Server) handleListing(w http.ResponseWriter, _ *http.Request) {
	var items bytes.Buffer
	for _, rec := range s.Listing {
		fmt.Fprintf(&items, `<li><p class="test-txt-p1"><a pid="%s" href="%s">%s</a></p></li>`,
			html.EscapeString(rec.PID), html.EscapeString(rec.Href), html.EscapeString(rec.Text))
	}
	_, _ = fmt.Fprintf(w, `<html><body><ul class="f-cb">%s</ul></body></html>`, items.String())
}

func (s *Server) delayed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.PaperDelay > 0 {
			time.Sleep(s.PaperDelay)
		}
		next(w, r)
	}
}

func (s *Server) handlePaper(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.papers++
	if s.RevokeAfterPapers > 0 && s.papers == s.RevokeAfterPapers {
		s.sessions = map[string]bool{}
	}
	s.mu.Unlock()

	_, _ = fmt.Fprintf(w, `<html><head><title>Paper %s</title></head><body></body></html>`,
		html.EscapeString(r.PathValue("pid")))
}
