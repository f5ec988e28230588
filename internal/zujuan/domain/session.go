package domain

import (
	"net/http"
	"time"
)

// Cookie is the persisted part of an HTTP cookie. The remote service only
// looks at name and value, so scope attributes are rebuilt on resume.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Session is the credential bundle produced by a successful scan login.
type Session struct {
	ID        string    `json:"id"` // ULID assigned at login
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
}

// IsZero reports whether s carries no credentials.
func (s Session) IsZero() bool { return len(s.Cookies) == 0 }

// HTTPCookies converts the stored cookies for a cookie jar.
func (s Session) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// CookiesFromHTTP keeps name and value of each cookie.
func CookiesFromHTTP(cookies []*http.Cookie) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}
