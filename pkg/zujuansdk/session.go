package zujuansdk

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// Session is one cookie jar bound to the remote service. It is either
// anonymous (during login) or authenticated (after the ticket exchange or
// when resumed from stored cookies); the SDK cannot tell the two apart
// without calling Probe.
//
// A Session is safe for concurrent use: the cookie jar and http.Client both
// synchronise internally.
type Session struct {
	client *SDKClient
	base   *url.URL
	jar    *cookiejar.Jar

	// follow follows redirects, as the ticket exchange requires.
	follow *http.Client
	// direct stops at the first response so a redirect to the login form is
	// visible to the caller.
	direct *http.Client
}

func newSession(c *SDKClient, base *url.URL, jar *cookiejar.Jar) *Session {
	return &Session{
		client: c,
		base:   base,
		jar:    jar,
		follow: &http.Client{
			Transport: c.Transport,
			Jar:       jar,
			Timeout:   c.Timeout,
		},
		direct: &http.Client{
			Transport: c.Transport,
			Jar:       jar,
			Timeout:   c.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Cookies exports the cookies the jar would send to the base URL and to the
// profile and listing pages, so cookies scoped to those paths are kept. Only
// name and value survive the export; when two scopes carry the same name the
// base URL's cookie wins.
func (s *Session) Cookies() []*http.Cookie {
	targets := []*url.URL{
		s.base,
		s.base.JoinPath(s.client.Paths.Profile),
		s.base.JoinPath(s.client.Paths.Listing),
	}

	seen := make(map[string]bool)
	var out []*http.Cookie
	for _, u := range targets {
		for _, c := range s.jar.Cookies(u) {
			if seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			out = append(out, c)
		}
	}
	return out
}
